// Package scoring implements the deterministic, explainable match score
// between a candidate and a job.
package scoring

import (
	"math"

	"github.com/spigell/skillbridge-matcher/internal/profile"
)

// Subject is the side of a match that owns skills and experience (the candidate).
type Subject struct {
	ID              string
	Skills          []string
	ExperienceYears int
	Location        string
}

// Requirements is the side of a match that states what is needed (the job).
type Requirements struct {
	ID              string
	RequiredSkills  []string
	PreferredSkills []string
	ExperienceYears int
	Location        string
}

// Result is an explained match. Skill lists are normalized and sorted.
type Result struct {
	OverallScore           float64  `json:"overall_score"`
	SkillMatchPercentage   float64  `json:"skill_match_percentage"`
	SkillScore             float64  `json:"skill_score"`
	ExperienceScore        float64  `json:"experience_score"`
	LocationScore          float64  `json:"location_score"`
	MatchedRequiredSkills  []string `json:"matched_required_skills"`
	MatchedPreferredSkills []string `json:"matched_preferred_skills"`
	MissingSkills          []string `json:"missing_skills"`
	ExperienceMatch        bool     `json:"experience_match"`
	CandidateExperience    int      `json:"candidate_experience"`
	RequiredExperience     int      `json:"required_experience"`
	LocationMatch          bool     `json:"location_match"`
}

// Scorer is safe for concurrent use; it holds only its immutable policy.
type Scorer struct {
	policy Policy
}

// New returns a scorer for policy, or an error if the policy is invalid.
func New(policy Policy) (*Scorer, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{policy: policy}, nil
}

// Default returns a scorer with the default policy.
func Default() *Scorer {
	return &Scorer{policy: DefaultPolicy()}
}

func (s *Scorer) Policy() Policy { return s.policy }

// Score evaluates subject against req. It is total over its inputs and
// never fails: negative experience values are treated as zero.
func (s *Scorer) Score(subject Subject, req Requirements) Result {
	p := s.policy

	have := profile.NewSet(subject.Skills, p.CanonicalSkills)
	required := profile.NewSet(req.RequiredSkills, p.CanonicalSkills)
	preferred := profile.NewSet(req.PreferredSkills, p.CanonicalSkills)

	matchedRequired := have.Intersect(required)
	matchedPreferred := have.Intersect(preferred)

	skillPct := 100.0
	if required.Len() > 0 {
		skillPct = 100 * float64(matchedRequired.Len()) / float64(required.Len())
	}

	candidateExp := max(subject.ExperienceYears, 0)
	requiredExp := max(req.ExperienceYears, 0)
	experienceMatch := candidateExp >= requiredExp
	experienceScore := 1.0
	if !experienceMatch {
		gap := float64(requiredExp - candidateExp)
		experienceScore = math.Max(0, 1-gap/p.ExperienceDivisor)
	}

	jobLocation := profile.NormalizeLocation(req.Location)
	locationMatch := true
	if jobLocation != "" {
		locationMatch = profile.NormalizeLocation(subject.Location) == jobLocation
	}
	locationScore := 1.0
	if !locationMatch {
		locationScore = p.MismatchLocationScore
	}

	skillScore := skillPct / 100
	overall := p.Weights.Skills*skillScore +
		p.Weights.Experience*experienceScore +
		p.Weights.Location*locationScore

	return Result{
		OverallScore:           clamp01(overall),
		SkillMatchPercentage:   skillPct,
		SkillScore:             skillScore,
		ExperienceScore:        experienceScore,
		LocationScore:          locationScore,
		MatchedRequiredSkills:  matchedRequired.Sorted(),
		MatchedPreferredSkills: matchedPreferred.Sorted(),
		MissingSkills:          required.Minus(have).Sorted(),
		ExperienceMatch:        experienceMatch,
		CandidateExperience:    candidateExp,
		RequiredExperience:     requiredExp,
		LocationMatch:          locationMatch,
	}
}

// ScoreCandidateForJob scores a candidate against a job.
func (s *Scorer) ScoreCandidateForJob(c profile.Candidate, j profile.Job) Result {
	return s.Score(SubjectFromCandidate(c), RequirementsFromJob(j))
}

// ScoreJobForCandidate is the same evaluation seen from the job listing side.
func (s *Scorer) ScoreJobForCandidate(j profile.Job, c profile.Candidate) Result {
	return s.Score(SubjectFromCandidate(c), RequirementsFromJob(j))
}

func SubjectFromCandidate(c profile.Candidate) Subject {
	return Subject{
		ID:              c.ID,
		Skills:          c.Skills,
		ExperienceYears: c.ExperienceYears,
		Location:        c.Location,
	}
}

func RequirementsFromJob(j profile.Job) Requirements {
	return Requirements{
		ID:              j.ID,
		RequiredSkills:  j.RequiredSkills,
		PreferredSkills: j.PreferredSkills,
		ExperienceYears: j.ExperienceYears,
		Location:        j.Location,
	}
}

// clamp01 guards against float drift when weights sum to 1 within tolerance.
// NaN maps to 0.
func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
