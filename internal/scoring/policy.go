package scoring

import (
	"fmt"
	"math"
)

const (
	DefaultSkillsWeight          = 0.5
	DefaultExperienceWeight      = 0.3
	DefaultLocationWeight        = 0.2
	DefaultExperienceDivisor     = 10.0
	DefaultMismatchLocationScore = 0.5

	weightTolerance = 1e-9
)

// Weights are the coefficients of the overall score. They must be
// non-negative and sum to one.
type Weights struct {
	Skills     float64 `mapstructure:"skills" json:"skills"`
	Experience float64 `mapstructure:"experience" json:"experience"`
	Location   float64 `mapstructure:"location" json:"location"`
}

// Policy is the full set of tunables of the scorer.
type Policy struct {
	Weights Weights
	// ExperienceDivisor is the shortfall, in years, at which the experience score reaches zero.
	ExperienceDivisor float64
	// MismatchLocationScore is the location score used when locations differ.
	MismatchLocationScore float64
	// CanonicalSkills collapses well-known aliases (golang/go, k8s/kubernetes) before comparing.
	CanonicalSkills bool
}

func DefaultWeights() Weights {
	return Weights{
		Skills:     DefaultSkillsWeight,
		Experience: DefaultExperienceWeight,
		Location:   DefaultLocationWeight,
	}
}

func DefaultPolicy() Policy {
	return Policy{
		Weights:               DefaultWeights(),
		ExperienceDivisor:     DefaultExperienceDivisor,
		MismatchLocationScore: DefaultMismatchLocationScore,
	}
}

// Validate checks that the weights form a convex combination.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{"skills": w.Skills, "experience": w.Experience, "location": w.Location} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %s must be a non-negative number, got %v", name, v)
		}
	}
	if sum := w.Skills + w.Experience + w.Location; math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("weights must sum to 1, got %v", sum)
	}
	return nil
}

// Validate checks every tunable of the policy.
func (p Policy) Validate() error {
	if err := p.Weights.Validate(); err != nil {
		return err
	}
	if p.ExperienceDivisor <= 0 || math.IsNaN(p.ExperienceDivisor) {
		return fmt.Errorf("experience divisor must be positive, got %v", p.ExperienceDivisor)
	}
	if p.MismatchLocationScore < 0 || p.MismatchLocationScore > 1 || math.IsNaN(p.MismatchLocationScore) {
		return fmt.Errorf("mismatch location score must be within [0, 1], got %v", p.MismatchLocationScore)
	}
	return nil
}
