package matching

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/skillbridge-matcher/internal/profile"
	"github.com/spigell/skillbridge-matcher/internal/scoring"
)

// explain annotates matches in place. Failures only leave Explanation nil.
func (o *Orchestrator) explain(ctx context.Context, log *zap.Logger, req Request, matches []Match) {
	if o.explainer == nil {
		log.Debug("explanations requested but no explainer is configured")
		return
	}
	top := len(matches)
	if o.opts.ExplainTop > 0 && o.opts.ExplainTop < top {
		top = o.opts.ExplainTop
	}
	for i := 0; i < top; i++ {
		m := &matches[i]
		var (
			candidate profile.Candidate
			job       profile.Job
		)
		switch req.Direction {
		case JobsForCandidate:
			candidate, job = *req.Candidate, *m.Job
		case CandidatesForJob:
			candidate, job = *m.Candidate, *req.Job
		}
		text, err := o.explainer.Explain(ctx, candidate, job, m.Score.OverallScore)
		if err != nil {
			log.Warn("explanation failed", zap.String("counterpart_id", m.CounterpartID), zap.Error(err))
			continue
		}
		m.Explanation = text
	}
}

// PairResult is the evaluation of one candidate against one job.
type PairResult struct {
	CandidateID string         `json:"candidate_id"`
	JobID       string         `json:"job_id"`
	Score       scoring.Result `json:"match_details"`
	Explanation *string        `json:"explanation,omitempty"`
}

// ScorePair scores a single candidate and job without touching the index.
// When explain is set and an explainer is configured the result carries an
// explanation; explanation failures are logged and otherwise ignored.
func (o *Orchestrator) ScorePair(ctx context.Context, candidate profile.Candidate, job profile.Job, explain bool) PairResult {
	candidate = candidate.Normalize()
	job = job.Normalize()
	res := PairResult{
		CandidateID: candidate.ID,
		JobID:       job.ID,
		Score:       o.scorer.ScoreCandidateForJob(candidate, job),
	}
	if !explain || o.explainer == nil {
		return res
	}
	text, err := o.explainer.Explain(ctx, candidate, job, res.Score.OverallScore)
	if err != nil {
		o.logger.Warn("explanation failed", zap.String("candidate_id", candidate.ID), zap.String("job_id", job.ID), zap.Error(err))
		return res
	}
	res.Explanation = text
	return res
}
