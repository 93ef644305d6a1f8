package gemini

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/skillbridge-matcher/internal/ai"
	"github.com/spigell/skillbridge-matcher/internal/logger"
	"github.com/spigell/skillbridge-matcher/internal/profile"
	"github.com/spigell/skillbridge-matcher/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

//go:embed explain_prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	promptSkillLimit    = 10
)

// Explainer asks Gemini to justify a match in a few sentences.
type Explainer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.Explainer = (*Explainer)(nil)

func NewExplainer(generator contentGenerator, l *zap.Logger, maxLogLength int) *Explainer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Explainer{
		generator: generator,
		logger:    logger.OrNop(l),
		maxLogLen: maxLogLength,
	}
}

func (e *Explainer) Explain(ctx context.Context, candidate profile.Candidate, job profile.Job, overall float64) (*string, error) {
	if e == nil || e.generator == nil {
		return nil, errors.New("explainer is not initialized")
	}

	prompt := buildPrompt(candidate, job, overall)
	e.logger.Debug("gemini explanation request",
		zap.String("candidate_id", candidate.ID),
		zap.String("job_id", job.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), "`"))
	e.logger.Debug("gemini explanation response",
		zap.String("candidate_id", candidate.ID),
		zap.String("job_id", job.ID),
		zap.String("response_preview", utils.TruncateForLog(text, e.maxLogLen)),
	)
	if text == "" {
		return nil, nil
	}
	return &text, nil
}

func buildPrompt(candidate profile.Candidate, job profile.Job, overall float64) string {
	skills := candidate.Skills
	if len(skills) > promptSkillLimit {
		skills = skills[:promptSkillLimit]
	}
	replacer := strings.NewReplacer(
		"{{MATCH_SCORE}}", strconv.FormatFloat(overall, 'f', 2, 64),
		"{{CANDIDATE_SKILLS}}", strings.Join(skills, ", "),
		"{{CANDIDATE_EXPERIENCE}}", strconv.Itoa(candidate.ExperienceYears),
		"{{CANDIDATE_LOCATION}}", candidate.Location,
		"{{JOB_TITLE}}", job.Title,
		"{{JOB_REQUIRED_SKILLS}}", strings.Join(job.RequiredSkills, ", "),
		"{{JOB_EXPERIENCE}}", strconv.Itoa(job.ExperienceYears),
		"{{JOB_LOCATION}}", job.Location,
	)
	return strings.TrimSpace(replacer.Replace(promptTemplate))
}
