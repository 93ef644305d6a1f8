package matching

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/skillbridge-matcher/internal/profile"
)

// Step is a post-processing stage applied to scored matches before the
// final sort and truncation.
type Step interface {
	Name() string
	Apply(ctx context.Context, req Request, matches []Match) ([]Match, StepStat, error)
}

// StepStat describes the result of executing a step.
type StepStat struct {
	Name    string `json:"name"`
	Initial int    `json:"initial"`
	Dropped int    `json:"dropped"`
	Left    int    `json:"left"`
	Boosted int    `json:"boosted,omitempty"`
}

// Request is what steps know about the current match request.
type Request struct {
	Direction Direction
	Candidate *profile.Candidate
	Job       *profile.Job
	History   History
	Limit     int
}

// History summarises what the requester interacted with before: jobs a
// candidate applied to, or candidates a recruiter shortlisted.
type History struct {
	Categories []string `mapstructure:"categories"`
	Companies  []string `mapstructure:"companies"`
	Skills     []string `mapstructure:"skills"`
}

// Empty reports whether the history carries no signal.
func (h History) Empty() bool {
	return len(h.Categories) == 0 && len(h.Companies) == 0 && len(h.Skills) == 0
}

func runSteps(ctx context.Context, l *zap.Logger, steps []Step, req Request, matches []Match) ([]Match, []StepStat, error) {
	stats := make([]StepStat, 0, len(steps))
	for _, step := range steps {
		next, info, err := step.Apply(ctx, req, matches)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
		info.Name = step.Name()
		l.Debug("rerank step",
			zap.String("name", info.Name),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
			zap.Int("boosted", info.Boosted),
		)
		stats = append(stats, info)
		matches = next
	}
	return matches, stats, nil
}

type identityStep struct{}

// Identity returns a step that leaves matches untouched.
func Identity() Step { return identityStep{} }

func (identityStep) Name() string { return "identity" }

func (identityStep) Apply(_ context.Context, _ Request, matches []Match) ([]Match, StepStat, error) {
	return matches, StepStat{Initial: len(matches), Left: len(matches)}, nil
}

type minimumScoreStep struct {
	threshold float64
}

// MinimumScore drops matches whose rank score is below threshold.
func MinimumScore(threshold float64) Step {
	return &minimumScoreStep{threshold: threshold}
}

func (s *minimumScoreStep) Name() string { return "minimum_score" }

func (s *minimumScoreStep) Apply(_ context.Context, _ Request, matches []Match) ([]Match, StepStat, error) {
	initial := len(matches)
	if s.threshold <= 0 {
		return matches, StepStat{Initial: initial, Left: initial}, nil
	}
	kept := matches[:0:0]
	for _, m := range matches {
		if m.RankScore >= s.threshold {
			kept = append(kept, m)
		}
	}
	return kept, StepStat{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}

type historyBoostStep struct {
	factor float64
}

// HistoryBoost raises the rank score of counterparts resembling the
// request history. The rule-based Score is left as computed. The boost moves a score towards 1 by at most factor of
// the remaining distance, so scores stay within [0, 1]. With an empty
// history or a non-positive factor the step is the identity.
func HistoryBoost(factor float64) Step {
	if factor > 1 {
		factor = 1
	}
	return &historyBoostStep{factor: factor}
}

func (s *historyBoostStep) Name() string { return "history_boost" }

func (s *historyBoostStep) Apply(_ context.Context, req Request, matches []Match) ([]Match, StepStat, error) {
	stat := StepStat{Initial: len(matches), Left: len(matches)}
	if s.factor <= 0 || req.History.Empty() {
		return matches, stat, nil
	}

	categories := profile.NewSet(req.History.Categories, false)
	companies := profile.NewSet(req.History.Companies, false)
	skills := profile.NewSet(req.History.Skills, true)

	out := make([]Match, len(matches))
	for i, m := range matches {
		affinity := historyAffinity(m, categories, companies, skills)
		if affinity > 0 {
			m.RankScore += s.factor * affinity * (1 - m.RankScore)
			stat.Boosted++
		}
		out[i] = m
	}
	return out, stat, nil
}

// historyAffinity is the share of history signals the counterpart matches.
func historyAffinity(m Match, categories, companies, skills profile.Set) float64 {
	var signals, hits int
	var counterpartSkills []string
	switch {
	case m.Job != nil:
		counterpartSkills = append(append(counterpartSkills, m.Job.RequiredSkills...), m.Job.PreferredSkills...)
		if categories.Len() > 0 {
			signals++
			if categories.Has(profile.NormalizeSkill(m.Job.Category)) {
				hits++
			}
		}
		if companies.Len() > 0 {
			signals++
			if companies.Has(profile.NormalizeSkill(m.Job.Company)) {
				hits++
			}
		}
	case m.Candidate != nil:
		counterpartSkills = m.Candidate.Skills
		if categories.Len() > 0 {
			signals++
			for _, industry := range m.Candidate.Industries {
				if categories.Has(profile.NormalizeSkill(industry)) {
					hits++
					break
				}
			}
		}
	}
	if skills.Len() > 0 {
		signals++
		if profile.NewSet(counterpartSkills, true).Intersect(skills).Len() > 0 {
			hits++
		}
	}
	if signals == 0 {
		return 0
	}
	return float64(hits) / float64(signals)
}
