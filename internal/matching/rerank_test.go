package matching

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/spigell/skillbridge-matcher/internal/profile"
	"github.com/spigell/skillbridge-matcher/internal/scoring"
	"github.com/spigell/skillbridge-matcher/internal/vectorindex"
)

func jobMatch(id string, overall float64, job profile.Job) Match {
	job.ID = id
	return Match{CounterpartID: id, Score: scoring.Result{OverallScore: overall}, RankScore: overall, Job: &job}
}

func TestMinimumScoreStep(t *testing.T) {
	t.Parallel()
	matches := []Match{
		jobMatch("a", 0.9, profile.Job{}),
		jobMatch("b", 0.3, profile.Job{}),
		jobMatch("c", 0.5, profile.Job{}),
	}
	kept, stat, err := MinimumScore(0.5).Apply(context.Background(), Request{}, matches)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := ids(kept); !equalIDs(got, []string{"a", "c"}) {
		t.Fatalf("unexpected matches %v", got)
	}
	if stat.Initial != 3 || stat.Dropped != 1 || stat.Left != 2 {
		t.Fatalf("unexpected stat %+v", stat)
	}
}

func TestHistoryBoost(t *testing.T) {
	t.Parallel()
	matches := []Match{
		jobMatch("fintech", 0.6, profile.Job{Category: "Finance", Company: "M-Pesa", RequiredSkills: []string{"Go"}}),
		jobMatch("retail", 0.6, profile.Job{Category: "Retail", Company: "Naivas"}),
	}

	t.Run("empty history is identity", func(t *testing.T) {
		t.Parallel()
		out, stat, err := HistoryBoost(0.5).Apply(context.Background(), Request{}, matches)
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		for i := range out {
			if out[i].RankScore != matches[i].RankScore {
				t.Fatalf("expected rank scores unchanged, got %f", out[i].RankScore)
			}
		}
		if stat.Boosted != 0 {
			t.Fatalf("unexpected stat %+v", stat)
		}
	})

	t.Run("boost stays bounded", func(t *testing.T) {
		t.Parallel()
		req := Request{History: History{Categories: []string{"finance"}, Companies: []string{"m-pesa"}, Skills: []string{"golang", "go"}}}
		out, stat, err := HistoryBoost(5).Apply(context.Background(), req, matches)
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		if stat.Boosted != 1 {
			t.Fatalf("expected one boosted match, got %+v", stat)
		}
		if got := out[0].RankScore; got <= 0.6 || got > 1 {
			t.Fatalf("expected boosted rank score in (0.6, 1], got %f", got)
		}
		if out[0].Score.OverallScore != 0.6 {
			t.Fatalf("expected overall score to stay the weighted sum, got %f", out[0].Score.OverallScore)
		}
		if out[1].RankScore != 0.6 {
			t.Fatalf("expected unrelated match unchanged, got %f", out[1].RankScore)
		}
		if matches[0].RankScore != 0.6 {
			t.Fatalf("input slice was modified")
		}
	})
}

func TestStepsRunThroughOrchestrator(t *testing.T) {
	t.Parallel()
	idx := newIndex(t, 2)
	addJob(t, idx, []float32{1, 0}, profile.Job{ID: "weak", RequiredSkills: []string{"cobol"}, ExperienceYears: 20, Location: "Mombasa"})
	addJob(t, idx, []float32{0, 1}, profile.Job{ID: "strong", RequiredSkills: []string{"go"}, Location: "Kisumu"})

	o := newOrchestrator(t, Config{Index: idx, Steps: []Step{MinimumScore(0.5), HistoryBoost(0.2)}})
	ranking, err := o.MatchJobsForCandidate(context.Background(), goDev, []float32{1, 0}, vectorindex.Filter{}, 5)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if got := ids(ranking.Matches); !equalIDs(got, []string{"strong"}) {
		t.Fatalf("expected the weak match to be dropped, got %v", got)
	}
	if len(ranking.Steps) != 2 || ranking.Steps[0].Name != "minimum_score" || ranking.Steps[0].Dropped != 1 {
		t.Fatalf("unexpected step stats %+v", ranking.Steps)
	}
}

func TestHistoryBoostKeepsScoreExplainable(t *testing.T) {
	t.Parallel()
	idx := newIndex(t, 2)
	addJob(t, idx, []float32{1, 0}, profile.Job{ID: "plain", RequiredSkills: []string{"go", "kubernetes"}, Location: "Kisumu", Category: "Retail"})
	addJob(t, idx, []float32{0, 1}, profile.Job{ID: "liked", RequiredSkills: []string{"go", "rust", "scala"}, Location: "Mombasa", Category: "Finance"})

	o := newOrchestrator(t, Config{Index: idx, Steps: []Step{HistoryBoost(1)}})
	ranking, err := o.MatchJobsForCandidate(context.Background(), goDev, []float32{1, 0}, vectorindex.Filter{}, 5,
		WithHistory(History{Categories: []string{"finance"}}))
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if got := ids(ranking.Matches); !equalIDs(got, []string{"liked", "plain"}) {
		t.Fatalf("expected the boosted job first, got %v", got)
	}
	for _, m := range ranking.Matches {
		s := m.Score
		want := 0.5*s.SkillScore + 0.3*s.ExperienceScore + 0.2*s.LocationScore
		if math.Abs(s.OverallScore-want) > 1e-9 {
			t.Fatalf("%s: overall %f is not the weighted sum %f", m.CounterpartID, s.OverallScore, want)
		}
	}
	if liked := ranking.Matches[0]; math.Abs(liked.RankScore-1) > 1e-9 || liked.Score.OverallScore >= ranking.Matches[1].Score.OverallScore {
		t.Fatalf("expected a full boost to lift a weaker match to 1, got %+v", liked)
	}
	if plain := ranking.Matches[1]; plain.RankScore != plain.Score.OverallScore {
		t.Fatalf("expected unboosted rank score to equal overall, got %f and %f", plain.RankScore, plain.Score.OverallScore)
	}
}

type fakeExplainer struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *fakeExplainer) Explain(_ context.Context, c profile.Candidate, j profile.Job, overall float64) (*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c.ID+"/"+j.ID)
	if f.fail[j.ID] || f.fail[c.ID] {
		return nil, errors.New("quota exceeded")
	}
	text := "fits " + j.ID
	return &text, nil
}

func TestExplanations(t *testing.T) {
	t.Parallel()
	idx := newIndex(t, 2)
	addJob(t, idx, []float32{1, 0}, profile.Job{ID: "j-1", RequiredSkills: []string{"go"}, Location: "Kisumu"})
	addJob(t, idx, []float32{1, 0.1}, profile.Job{ID: "j-2", RequiredSkills: []string{"go", "docker"}, Location: "Kisumu"})
	addJob(t, idx, []float32{0, 1}, profile.Job{ID: "j-3", RequiredSkills: []string{"rust"}})

	t.Run("not requested", func(t *testing.T) {
		t.Parallel()
		explainer := &fakeExplainer{}
		o := newOrchestrator(t, Config{Index: idx, Explainer: explainer})
		ranking, err := o.MatchJobsForCandidate(context.Background(), goDev, []float32{1, 0}, vectorindex.Filter{}, 3)
		if err != nil {
			t.Fatalf("match: %v", err)
		}
		if len(explainer.calls) != 0 || ranking.Matches[0].Explanation != nil {
			t.Fatalf("expected no explanations, got %v", explainer.calls)
		}
	})

	t.Run("failures leave ordering intact", func(t *testing.T) {
		t.Parallel()
		explainer := &fakeExplainer{fail: map[string]bool{"j-2": true}}
		opts := DefaultOptions()
		opts.ExplainTop = 2
		o := newOrchestrator(t, Config{Index: idx, Explainer: explainer, Options: opts})
		ranking, err := o.MatchJobsForCandidate(context.Background(), goDev, []float32{1, 0}, vectorindex.Filter{}, 3, WithExplanations())
		if err != nil {
			t.Fatalf("match: %v", err)
		}
		if got := ids(ranking.Matches); !equalIDs(got, []string{"j-1", "j-2", "j-3"}) {
			t.Fatalf("unexpected order %v", got)
		}
		if e := ranking.Matches[0].Explanation; e == nil || *e != "fits j-1" {
			t.Fatalf("expected an explanation for j-1, got %v", e)
		}
		if ranking.Matches[1].Explanation != nil || ranking.Matches[2].Explanation != nil {
			t.Fatalf("expected no explanation for failed or untouched matches")
		}
		if len(explainer.calls) != 2 {
			t.Fatalf("expected two explain calls, got %v", explainer.calls)
		}
	})
}

func TestScorePair(t *testing.T) {
	t.Parallel()
	job := profile.Job{ID: "j-1", RequiredSkills: []string{"go", "docker", "kafka"}, ExperienceYears: 2, Location: "kisumu"}

	o := newOrchestrator(t, Config{Index: &recordingSearcher{}, Explainer: &fakeExplainer{}})
	res := o.ScorePair(context.Background(), goDev, job, true)
	if res.CandidateID != "u-1" || res.JobID != "j-1" {
		t.Fatalf("unexpected ids %+v", res)
	}
	wantOverall := 0.5*(2.0/3.0) + 0.3 + 0.2
	if math.Abs(res.Score.OverallScore-wantOverall) > 1e-9 {
		t.Fatalf("expected overall %f, got %f", wantOverall, res.Score.OverallScore)
	}
	if res.Explanation == nil {
		t.Fatalf("expected an explanation")
	}

	failing := newOrchestrator(t, Config{Index: &recordingSearcher{}, Explainer: &fakeExplainer{fail: map[string]bool{"j-1": true}}})
	if res := failing.ScorePair(context.Background(), goDev, job, true); res.Explanation != nil {
		t.Fatalf("expected no explanation after a failure")
	}
}
