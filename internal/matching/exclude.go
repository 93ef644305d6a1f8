package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spigell/skillbridge-matcher/internal/profile"
)

// Exclusions is the content of an exclude file: counterparts that should
// never be returned again, e.g. jobs already applied to.
type Exclusions struct {
	Items []*Excluded
}

type Excluded struct {
	ID         string
	Title      string
	Company    string
	ExcludedAt time.Time
}

// LoadExclusions reads an exclude file. An empty file holds no exclusions.
func LoadExclusions(path string) (*Exclusions, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() == 0 {
		return &Exclusions{}, nil
	}

	var excluded Exclusions
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, fmt.Errorf("decoding exclude file %q: %w", path, err)
	}
	return &excluded, nil
}

// ExclusionsFrom records every match of r at the given time.
func ExclusionsFrom(r Ranking, at time.Time) *Exclusions {
	out := &Exclusions{Items: make([]*Excluded, 0, len(r.Matches))}
	for _, m := range r.Matches {
		e := &Excluded{ID: m.CounterpartID, ExcludedAt: at}
		switch {
		case m.Job != nil:
			e.Title, e.Company = m.Job.Title, m.Job.Company
		case m.Candidate != nil:
			e.Title = m.Candidate.Title
		}
		out.Items = append(out.Items, e)
	}
	return out
}

func (e *Exclusions) Append(other *Exclusions) {
	e.Items = append(e.Items, other.Items...)
}

func (e *Exclusions) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

// ToFile overwrites path with the exclusions.
func (e *Exclusions) ToFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

type excludeStep struct {
	name string
	keep func(Match) bool
}

func (s *excludeStep) Name() string { return s.name }

func (s *excludeStep) Apply(_ context.Context, _ Request, matches []Match) ([]Match, StepStat, error) {
	initial := len(matches)
	kept := make([]Match, 0, initial)
	for _, m := range matches {
		if s.keep(m) {
			kept = append(kept, m)
		}
	}
	return kept, StepStat{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}

// ExcludeIDs drops counterparts whose id is listed.
func ExcludeIDs(ids []string) Step {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return &excludeStep{name: "exclude_ids", keep: func(m Match) bool {
		_, found := set[m.CounterpartID]
		return !found
	}}
}

// ExcludeCompanies drops jobs posted by the listed companies. Company names
// compare case-insensitively. Candidates are never dropped.
func ExcludeCompanies(companies []string) Step {
	set := profile.NewSet(companies, false)
	return &excludeStep{name: "exclude_companies", keep: func(m Match) bool {
		return m.Job == nil || !set.Has(profile.NormalizeSkill(m.Job.Company))
	}}
}
