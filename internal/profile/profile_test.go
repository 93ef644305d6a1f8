package profile

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestNormalizeSkill(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		expect string
	}{
		{input: "  Python ", expect: "python"},
		{input: "Machine   Learning", expect: "machine learning"},
		{input: "SQL", expect: "sql"},
		{input: "   ", expect: ""},
	}

	for _, tt := range tests {
		if got := NormalizeSkill(tt.input); got != tt.expect {
			t.Fatalf("NormalizeSkill(%q): expected %q, got %q", tt.input, tt.expect, got)
		}
	}
}

func TestCanonicalSkill(t *testing.T) {
	t.Parallel()

	if got := CanonicalSkill("Golang"); got != "go" {
		t.Fatalf("expected go, got %q", got)
	}
	if got := CanonicalSkill("K8s"); got != "kubernetes" {
		t.Fatalf("expected kubernetes, got %q", got)
	}
	if got := CanonicalSkill("Rust"); got != "rust" {
		t.Fatalf("expected rust, got %q", got)
	}
}

func TestSetOperations(t *testing.T) {
	t.Parallel()

	candidate := NewSet([]string{"Python", "SQL", "python", ""}, false)
	required := NewSet([]string{"python", "sql", "AWS"}, false)

	if candidate.Len() != 2 {
		t.Fatalf("expected 2 unique skills, got %d", candidate.Len())
	}

	if got := candidate.Intersect(required).Sorted(); !reflect.DeepEqual(got, []string{"python", "sql"}) {
		t.Fatalf("unexpected intersection: %v", got)
	}

	if got := required.Minus(candidate).Sorted(); !reflect.DeepEqual(got, []string{"aws"}) {
		t.Fatalf("unexpected difference: %v", got)
	}

	if got := NewSet(nil, false).Sorted(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}

	canonical := NewSet([]string{"golang", "Go"}, true)
	if canonical.Len() != 1 || !canonical.Has("go") {
		t.Fatalf("expected aliases to collapse, got %v", canonical.Sorted())
	}
}

func TestJobEmbeddingText(t *testing.T) {
	t.Parallel()

	job := Job{
		Title:           "Backend Engineer",
		Description:     "Build APIs",
		RequiredSkills:  []string{"Python", "SQL"},
		PreferredSkills: []string{"Docker"},
		ExperienceYears: 3,
		Location:        "Nairobi",
	}

	expected := "Title: Backend Engineer\nDescription: Build APIs\nRequired Skills: Python, SQL\nPreferred Skills: Docker\nExperience: 3 years\nLocation: Nairobi"
	if got := job.EmbeddingText(); got != expected {
		t.Fatalf("unexpected embedding text:\n%s", got)
	}

	if job.EmbeddingText() != job.EmbeddingText() {
		t.Fatal("embedding text must be stable")
	}
}

func TestCandidateEmbeddingText(t *testing.T) {
	t.Parallel()

	c := Candidate{
		Description:     "Data engineer",
		Skills:          []string{"Python", "Spark"},
		ExperienceYears: 4,
		JobTitles:       []string{"Data Engineer at Acme"},
		Location:        "Kisumu",
	}

	text := c.EmbeddingText()
	for _, want := range []string{"Data engineer\n", "Skills: Python, Spark\n", "Experience: 4 years; Data Engineer at Acme\n", "Location: Kisumu"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in %q", want, text)
		}
	}
}

func TestNormalizeClampsAndDedupes(t *testing.T) {
	t.Parallel()

	c := Candidate{ID: " c1 ", Skills: []string{"Go", " go", "SQL"}, ExperienceYears: -3}.Normalize()
	if c.ID != "c1" {
		t.Fatalf("expected trimmed id, got %q", c.ID)
	}
	if c.ExperienceYears != 0 {
		t.Fatalf("expected clamped experience, got %d", c.ExperienceYears)
	}
	if !reflect.DeepEqual(c.Skills, []string{"Go", "SQL"}) {
		t.Fatalf("unexpected skills: %v", c.Skills)
	}

	j := Job{ExperienceYears: -1, SalaryMin: -10}.Normalize()
	if j.ExperienceYears != 0 || j.SalaryMin != 0 {
		t.Fatalf("expected clamped job, got %+v", j)
	}
}

func TestLoadJob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	content := `id: job-1
title: Data Analyst
required_skills: [Python, SQL, AWS]
preferred_skills: [Docker]
experience_years: 5
location: Kisumu
salary_min: 1000
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	job, err := LoadJob(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.ID != "job-1" || job.ExperienceYears != 5 || job.SalaryMin != 1000 {
		t.Fatalf("unexpected job: %+v", job)
	}
	if !reflect.DeepEqual(job.RequiredSkills, []string{"Python", "SQL", "AWS"}) {
		t.Fatalf("unexpected required skills: %v", job.RequiredSkills)
	}
}

func TestLoadCandidateRequiresID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidate.json")
	if err := os.WriteFile(path, []byte(`{"skills": ["go"]}`), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadCandidate(path); err == nil {
		t.Fatal("expected error for candidate without id")
	}
}
