package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/viper"
	"go.uber.org/zap/zaptest"

	"github.com/spigell/skillbridge-matcher/internal/config"
	"github.com/spigell/skillbridge-matcher/internal/matching"
	"github.com/spigell/skillbridge-matcher/internal/profile"
	"github.com/spigell/skillbridge-matcher/internal/scoring"
	"github.com/spigell/skillbridge-matcher/internal/vectorindex"
)

func init() {
	color.NoColor = true
}

func TestCollectionFromArg(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    vectorindex.Collection
		wantErr bool
	}{
		{"resume", vectorindex.CollectionResumes, false},
		{"jobs", vectorindex.CollectionJobs, false},
		{"vacancy", "", true},
	}
	for _, tt := range tests {
		got, err := collectionFromArg(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("collectionFromArg(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestRenderRanking(t *testing.T) {
	t.Parallel()
	explanation := "Strong Go background."
	r := matching.Ranking{
		Direction: matching.JobsForCandidate,
		Matches: []matching.Match{{
			CounterpartID:   "j-1",
			SimilarityScore: 0.91,
			Score: scoring.Result{
				OverallScore:          0.8,
				SkillScore:            1,
				SkillMatchPercentage:  100,
				MatchedRequiredSkills: []string{"go"},
				MissingSkills:         []string{},
			},
			RankScore:   0.9,
			Explanation: &explanation,
			Job:         &profile.Job{ID: "j-1", Title: "Backend engineer", Company: "Safaricom"},
		}},
		Steps: []matching.StepStat{{Name: "history_boost", Initial: 1, Left: 1}},
	}

	var buf bytes.Buffer
	renderRanking(&buf, r)
	out := buf.String()
	for _, want := range []string{"j-1", "Backend engineer @ Safaricom", "0.80", "rank 0.90", "matched: go", explanation, "step history_boost", "similarity unavailable"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestAppendExclusions(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "exclude.json")
	r := matching.Ranking{Matches: []matching.Match{{CounterpartID: "j-1", Job: &profile.Job{ID: "j-1"}}}}

	if err := appendExclusions("", r); err == nil {
		t.Fatalf("expected an error without a path")
	}
	for i := 0; i < 2; i++ {
		if err := appendExclusions(path, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	excluded, err := matching.LoadExclusions(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := excluded.IDs(); len(got) != 2 || got[0] != "j-1" {
		t.Fatalf("unexpected ids %v", got)
	}
}

func TestNeedIndexMemoryBackendIsReady(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load(viper.New(), "", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Index.Backend = config.IndexMemory

	svc := newServices(cfg, zaptest.NewLogger(t))
	defer svc.Close()
	ctx := context.Background()

	idx, err := svc.needIndex(ctx)
	if err != nil {
		t.Fatalf("need index: %v", err)
	}
	for _, c := range vectorindex.Collections {
		info, err := idx.CollectionInfo(ctx, c)
		if err != nil {
			t.Fatalf("info %s: %v", c, err)
		}
		if info.Dimension != cfg.Embedding.Dimension {
			t.Fatalf("collection %s has dimension %d, want %d", c, info.Dimension, cfg.Embedding.Dimension)
		}
	}

	vec := make([]float32, cfg.Embedding.Dimension)
	vec[0] = 1
	if _, err := idx.Upsert(ctx, vectorindex.CollectionResumes, vec, vectorindex.CandidatePayload{UserID: "u-1", Skills: []string{"go"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	indexer, err := svc.needIndexer(ctx)
	if err != nil {
		t.Fatalf("need indexer: %v", err)
	}
	res, err := indexer.IndexJob(ctx, profile.Job{ID: "j-1", Title: "Go developer", RequiredSkills: []string{"go", "sql"}}, "")
	if err != nil {
		t.Fatalf("index job: %v", err)
	}
	if !res.EmbeddingAvailable || res.VectorID == "" {
		t.Fatalf("unexpected index result %+v", res)
	}
}
