package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/skillbridge-matcher/internal/ai"
	"github.com/spigell/skillbridge-matcher/internal/logger"
	"github.com/spigell/skillbridge-matcher/internal/profile"
	"github.com/spigell/skillbridge-matcher/internal/scoring"
	"github.com/spigell/skillbridge-matcher/internal/vectorindex"
)

// ErrNoIndex is returned by match requests of an orchestrator built without
// a vector index.
var ErrNoIndex = errors.New("no vector index configured")

// ErrEmbeddingUnavailable is returned when a request needs an embedding that
// could not be produced and the fallback policy does not allow degrading.
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

// FallbackPolicy decides what happens when the query embedding is missing.
type FallbackPolicy string

const (
	// FallbackScan ranks the filtered population by rule-based score only.
	FallbackScan FallbackPolicy = "scan"
	// FallbackFail rejects the request with ErrEmbeddingUnavailable.
	FallbackFail FallbackPolicy = "fail"
)

// ParseFallbackPolicy accepts "scan" (also the empty string) and "fail".
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch FallbackPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FallbackScan:
		return FallbackScan, nil
	case FallbackFail:
		return FallbackFail, nil
	default:
		return "", fmt.Errorf("unknown fallback policy %q", s)
	}
}

// Searcher is the part of the vector index the orchestrator reads from.
type Searcher interface {
	Search(ctx context.Context, collection vectorindex.Collection, query []float32, filter vectorindex.Filter, limit int) ([]vectorindex.Hit, error)
	Scan(ctx context.Context, collection vectorindex.Collection, filter vectorindex.Filter, limit int) ([]vectorindex.Hit, error)
}

// Options tune the orchestrator.
type Options struct {
	// OverFetch multiplies the limit when querying the index so rule-based
	// re-ranking has room to reorder.
	OverFetch int `mapstructure:"over-fetch"`
	// ScanLimit caps the population examined without an embedding.
	ScanLimit int `mapstructure:"scan-limit"`
	// Fallback is applied when the query embedding is empty.
	Fallback FallbackPolicy `mapstructure:"fallback"`
	// ExplainTop caps how many top matches get an explanation; zero explains all returned.
	ExplainTop int `mapstructure:"explain-top"`
}

// DefaultOptions mirror the documented defaults.
func DefaultOptions() Options {
	return Options{OverFetch: 2, ScanLimit: 500, Fallback: FallbackScan}
}

// Config wires an Orchestrator.
type Config struct {
	Index     Searcher
	Scorer    *scoring.Scorer
	Options   Options
	Steps     []Step
	Explainer ai.Explainer
	Logger    *zap.Logger
}

// Orchestrator is stateless between requests and safe for concurrent use.
type Orchestrator struct {
	index     Searcher
	scorer    *scoring.Scorer
	opts      Options
	steps     []Step
	explainer ai.Explainer
	logger    *zap.Logger
}

// New validates cfg and builds an Orchestrator. Index may be nil when only
// ScorePair is used.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Scorer == nil {
		cfg.Scorer = scoring.Default()
	}
	opts := cfg.Options
	if opts.OverFetch < 1 {
		return nil, fmt.Errorf("over-fetch must be at least 1, got %d", opts.OverFetch)
	}
	if opts.ScanLimit < 1 {
		return nil, fmt.Errorf("scan limit must be at least 1, got %d", opts.ScanLimit)
	}
	fallback, err := ParseFallbackPolicy(string(opts.Fallback))
	if err != nil {
		return nil, err
	}
	opts.Fallback = fallback

	steps := cfg.Steps
	if len(steps) == 0 {
		steps = []Step{Identity()}
	}
	return &Orchestrator{
		index:     cfg.Index,
		scorer:    cfg.Scorer,
		opts:      opts,
		steps:     steps,
		explainer: cfg.Explainer,
		logger:    logger.OrNop(cfg.Logger),
	}, nil
}

// CallOption adjusts a single match request.
type CallOption func(*call)

type call struct {
	explain bool
	history History
}

// WithExplanations asks for explanations of the returned matches when an
// explainer is configured.
func WithExplanations() CallOption {
	return func(c *call) { c.explain = true }
}

// WithHistory passes the requester history to the rerank steps.
func WithHistory(h History) CallOption {
	return func(c *call) { c.history = h }
}

// MatchJobsForCandidate ranks jobs for candidate. An empty embedding is
// handled by the fallback policy.
func (o *Orchestrator) MatchJobsForCandidate(ctx context.Context, candidate profile.Candidate, embedding []float32, filter vectorindex.Filter, limit int, opts ...CallOption) (Ranking, error) {
	candidate = candidate.Normalize()
	subject := scoring.SubjectFromCandidate(candidate)

	build := func(hit vectorindex.Hit) (Match, error) {
		payload, err := hit.DecodeJob()
		if err != nil {
			return Match{}, err
		}
		job := payload.Job()
		return Match{
			CounterpartID:   job.ID,
			VectorID:        hit.VectorID,
			SimilarityScore: hit.Score,
			Score:           o.scorer.Score(subject, scoring.RequirementsFromJob(job)),
			Job:             &job,
		}, nil
	}
	req := Request{Direction: JobsForCandidate, Candidate: &candidate, Limit: limit}
	return o.rank(ctx, vectorindex.CollectionJobs, req, embedding, filter, build, opts)
}

// MatchCandidatesForJob ranks candidates for job.
func (o *Orchestrator) MatchCandidatesForJob(ctx context.Context, job profile.Job, embedding []float32, filter vectorindex.Filter, limit int, opts ...CallOption) (Ranking, error) {
	job = job.Normalize()
	requirements := scoring.RequirementsFromJob(job)

	build := func(hit vectorindex.Hit) (Match, error) {
		payload, err := hit.DecodeCandidate()
		if err != nil {
			return Match{}, err
		}
		candidate := payload.Candidate()
		return Match{
			CounterpartID:   candidate.ID,
			VectorID:        hit.VectorID,
			SimilarityScore: hit.Score,
			Score:           o.scorer.Score(scoring.SubjectFromCandidate(candidate), requirements),
			Candidate:       &candidate,
		}, nil
	}
	req := Request{Direction: CandidatesForJob, Job: &job, Limit: limit}
	return o.rank(ctx, vectorindex.CollectionResumes, req, embedding, filter, build, opts)
}

func (o *Orchestrator) rank(
	ctx context.Context,
	collection vectorindex.Collection,
	req Request,
	embedding []float32,
	filter vectorindex.Filter,
	build func(vectorindex.Hit) (Match, error),
	opts []CallOption,
) (Ranking, error) {
	var c call
	for _, opt := range opts {
		opt(&c)
	}
	req.History = c.history

	ranking := Ranking{Direction: req.Direction, Matches: []Match{}, SimilarityAvailable: len(embedding) > 0}
	if o.index == nil {
		return Ranking{}, ErrNoIndex
	}
	if err := filter.Validate(collection); err != nil {
		return Ranking{}, err
	}

	log := o.logger.With(
		zap.String("direction", string(req.Direction)),
		zap.String(logger.FieldCollection, string(collection)),
		zap.Int("limit", req.Limit),
	)
	if req.Limit <= 0 {
		return ranking, nil
	}

	var (
		hits []vectorindex.Hit
		err  error
	)
	if ranking.SimilarityAvailable {
		hits, err = o.index.Search(ctx, collection, embedding, filter, req.Limit*o.opts.OverFetch)
	} else {
		if o.opts.Fallback == FallbackFail {
			return Ranking{}, ErrEmbeddingUnavailable
		}
		log.Warn("embedding unavailable, ranking by rule-based score only", zap.Int("scan_limit", o.opts.ScanLimit))
		hits, err = o.index.Scan(ctx, collection, filter, o.opts.ScanLimit)
	}
	if err != nil {
		return Ranking{}, fmt.Errorf("query %s: %w", collection, err)
	}

	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		m, err := build(hit)
		if err != nil {
			log.Warn("skipping point with unreadable payload", zap.String("vector_id", hit.VectorID), zap.Error(err))
			continue
		}
		if !ranking.SimilarityAvailable {
			m.SimilarityScore = 0
		}
		m.RankScore = m.Score.OverallScore
		matches = append(matches, m)
	}

	matches, stats, err := runSteps(ctx, log, o.steps, req, matches)
	if err != nil {
		return Ranking{}, err
	}
	sortMatches(matches)
	if len(matches) > req.Limit {
		matches = matches[:req.Limit]
	}

	if c.explain {
		o.explain(ctx, log, req, matches)
	}

	log.Info("ranking computed",
		zap.Int("hits", len(hits)),
		zap.Int("returned", len(matches)),
		zap.Bool("similarity_available", ranking.SimilarityAvailable),
	)
	ranking.Matches = matches
	ranking.Steps = stats
	return ranking, nil
}
