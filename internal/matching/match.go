// Package matching ranks jobs for a candidate and candidates for a job by
// combining vector similarity with the explainable rule-based score.
package matching

import (
	"sort"

	"github.com/spigell/skillbridge-matcher/internal/profile"
	"github.com/spigell/skillbridge-matcher/internal/scoring"
)

// Direction tells which side of the market a ranking was computed for.
type Direction string

const (
	JobsForCandidate Direction = "jobs_for_candidate"
	CandidatesForJob Direction = "candidates_for_job"
)

// Match is one ranked counterpart. Exactly one of Job and Candidate is set,
// depending on the direction of the ranking.
type Match struct {
	CounterpartID   string         `json:"counterpart_id"`
	VectorID        string         `json:"vector_id"`
	SimilarityScore float64        `json:"similarity_score"`
	Score           scoring.Result `json:"match_details"`
	// RankScore orders the ranking. It starts at Score.OverallScore and
	// only rerank steps change it.
	RankScore   float64            `json:"rank_score"`
	Explanation *string            `json:"explanation,omitempty"`
	Job         *profile.Job       `json:"job,omitempty"`
	Candidate   *profile.Candidate `json:"candidate,omitempty"`
}

// Ranking is the result of a match request.
type Ranking struct {
	Direction Direction `json:"direction"`
	Matches   []Match   `json:"matches"`
	// SimilarityAvailable is false when no embedding was available and the
	// ranking is purely rule-based.
	SimilarityAvailable bool       `json:"similarity_available"`
	Steps               []StepStat `json:"steps,omitempty"`
}

// sortMatches orders by rank score, then similarity, then ids, so equal
// inputs always yield the same ranking.
func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.RankScore != b.RankScore {
			return a.RankScore > b.RankScore
		}
		if a.SimilarityScore != b.SimilarityScore {
			return a.SimilarityScore > b.SimilarityScore
		}
		if a.CounterpartID != b.CounterpartID {
			return a.CounterpartID < b.CounterpartID
		}
		return a.VectorID < b.VectorID
	})
}
