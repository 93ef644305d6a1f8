package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/skillbridge-matcher/internal/profile"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestExplainerExplain(t *testing.T) {
	t.Parallel()
	stub := &stubGenerator{response: "  Strong Go background; Kubernetes is a gap.  "}
	explainer := NewExplainer(stub, zap.NewNop(), 0)

	skills := []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11"}
	candidate := profile.Candidate{ID: "c1", Skills: skills, ExperienceYears: 4, Location: "Nairobi"}
	job := profile.Job{ID: "j1", Title: "Go Developer", RequiredSkills: []string{"go", "kubernetes"}, ExperienceYears: 3, Location: "Nairobi"}

	text, err := explainer.Explain(context.Background(), candidate, job, 0.8567)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text == nil || *text != "Strong Go background; Kubernetes is a gap." {
		t.Fatalf("unexpected explanation %v", text)
	}

	for _, want := range []string{
		"Match Score: 0.86",
		"- Skills: s1, s2, s3, s4, s5, s6, s7, s8, s9, s10\n",
		"- Experience: 4 years",
		"- Title: Go Developer",
		"- Required Skills: go, kubernetes",
		"- Required Experience: 3 years",
	} {
		if !strings.Contains(stub.lastPrompt, want) {
			t.Fatalf("expected %q in prompt:\n%s", want, stub.lastPrompt)
		}
	}
	if strings.Contains(stub.lastPrompt, "s11") {
		t.Fatalf("prompt must carry at most 10 candidate skills")
	}
	if strings.Contains(stub.lastPrompt, "{{") {
		t.Fatalf("unreplaced placeholder in prompt:\n%s", stub.lastPrompt)
	}
}

func TestExplainerEmptyResponse(t *testing.T) {
	t.Parallel()
	text, err := NewExplainer(&stubGenerator{response: "``` ```"}, nil, 0).Explain(context.Background(), profile.Candidate{}, profile.Job{}, 0)
	if err != nil || text != nil {
		t.Fatalf("expected no explanation, got %v %v", text, err)
	}
}

func TestExplainerPropagatesErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("quota exceeded")
	_, err := NewExplainer(&stubGenerator{err: boom}, nil, 0).Explain(context.Background(), profile.Candidate{}, profile.Job{}, 0.5)
	if !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
}
