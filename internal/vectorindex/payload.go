package vectorindex

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/skillbridge-matcher/internal/profile"
)

// Payload is the structured metadata stored next to a vector.
type Payload interface {
	Collection() Collection
	EntityID() string
	Validate() error
	Fields() (map[string]any, error)
}

// CandidatePayload is the schema of points in the resumes collection.
type CandidatePayload struct {
	UserID          string   `mapstructure:"user_id"`
	Title           string   `mapstructure:"title,omitempty"`
	Skills          []string `mapstructure:"skills"`
	ExperienceYears int      `mapstructure:"experience_years"`
	Location        string   `mapstructure:"location,omitempty"`
	EducationLevel  string   `mapstructure:"education_level,omitempty"`
	JobTitles       []string `mapstructure:"job_titles,omitempty"`
	Industries      []string `mapstructure:"industries,omitempty"`
}

// JobPayload is the schema of points in the jobs collection.
type JobPayload struct {
	JobID           string   `mapstructure:"job_id"`
	Title           string   `mapstructure:"title,omitempty"`
	RequiredSkills  []string `mapstructure:"required_skills"`
	PreferredSkills []string `mapstructure:"preferred_skills,omitempty"`
	ExperienceYears int      `mapstructure:"experience_years"`
	Location        string   `mapstructure:"location,omitempty"`
	EmploymentType  string   `mapstructure:"employment_type,omitempty"`
	SalaryMin       int      `mapstructure:"salary_min,omitempty"`
	SalaryMax       int      `mapstructure:"salary_max,omitempty"`
	Category        string   `mapstructure:"category,omitempty"`
	Company         string   `mapstructure:"company,omitempty"`
}

// CandidatePayloadFrom builds the stored payload of a candidate.
func CandidatePayloadFrom(c profile.Candidate) CandidatePayload {
	c = c.Normalize()
	return CandidatePayload{
		UserID:          c.ID,
		Title:           strings.TrimSpace(c.Title),
		Skills:          nonNil(c.Skills),
		ExperienceYears: c.ExperienceYears,
		Location:        c.Location,
		EducationLevel:  c.EducationLevel,
		JobTitles:       c.JobTitles,
		Industries:      c.Industries,
	}
}

// JobPayloadFrom builds the stored payload of a job.
func JobPayloadFrom(j profile.Job) JobPayload {
	j = j.Normalize()
	return JobPayload{
		JobID:           j.ID,
		Title:           strings.TrimSpace(j.Title),
		RequiredSkills:  nonNil(j.RequiredSkills),
		PreferredSkills: j.PreferredSkills,
		ExperienceYears: j.ExperienceYears,
		Location:        j.Location,
		EmploymentType:  j.EmploymentType,
		SalaryMin:       j.SalaryMin,
		SalaryMax:       j.SalaryMax,
		Category:        j.Category,
		Company:         j.Company,
	}
}

func (CandidatePayload) Collection() Collection { return CollectionResumes }
func (p CandidatePayload) EntityID() string    { return p.UserID }

func (p CandidatePayload) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidPayload)
	}
	if p.ExperienceYears < 0 {
		return fmt.Errorf("%w: experience_years must not be negative", ErrInvalidPayload)
	}
	return nil
}

func (p CandidatePayload) Fields() (map[string]any, error) {
	return toFields(p)
}

// Candidate converts the payload back to a profile.
func (p CandidatePayload) Candidate() profile.Candidate {
	return profile.Candidate{
		ID:              p.UserID,
		Title:           p.Title,
		Skills:          p.Skills,
		ExperienceYears: p.ExperienceYears,
		Location:        p.Location,
		EducationLevel:  p.EducationLevel,
		JobTitles:       p.JobTitles,
		Industries:      p.Industries,
	}
}

func (JobPayload) Collection() Collection { return CollectionJobs }
func (p JobPayload) EntityID() string    { return p.JobID }

func (p JobPayload) Validate() error {
	if strings.TrimSpace(p.JobID) == "" {
		return fmt.Errorf("%w: job_id is required", ErrInvalidPayload)
	}
	if p.ExperienceYears < 0 {
		return fmt.Errorf("%w: experience_years must not be negative", ErrInvalidPayload)
	}
	if p.SalaryMin < 0 || p.SalaryMax < 0 {
		return fmt.Errorf("%w: salaries must not be negative", ErrInvalidPayload)
	}
	if p.SalaryMax > 0 && p.SalaryMin > p.SalaryMax {
		return fmt.Errorf("%w: salary_min %d exceeds salary_max %d", ErrInvalidPayload, p.SalaryMin, p.SalaryMax)
	}
	return nil
}

func (p JobPayload) Fields() (map[string]any, error) {
	return toFields(p)
}

// Job converts the payload back to a profile.
func (p JobPayload) Job() profile.Job {
	return profile.Job{
		ID:              p.JobID,
		Title:           p.Title,
		RequiredSkills:  p.RequiredSkills,
		PreferredSkills: p.PreferredSkills,
		ExperienceYears: p.ExperienceYears,
		Location:        p.Location,
		EmploymentType:  p.EmploymentType,
		SalaryMin:       p.SalaryMin,
		SalaryMax:       p.SalaryMax,
		Category:        p.Category,
		Company:         p.Company,
	}
}

// DecodeCandidatePayload decodes a stored map into a CandidatePayload.
// Numbers may arrive as float64 (JSON) or int64 (gRPC).
func DecodeCandidatePayload(fields map[string]any) (CandidatePayload, error) {
	var p CandidatePayload
	if err := decode(fields, &p); err != nil {
		return CandidatePayload{}, err
	}
	return p, nil
}

// DecodeJobPayload decodes a stored map into a JobPayload.
func DecodeJobPayload(fields map[string]any) (JobPayload, error) {
	var p JobPayload
	if err := decode(fields, &p); err != nil {
		return JobPayload{}, err
	}
	return p, nil
}

func decode(fields map[string]any, dst any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           dst,
	})
	if err != nil {
		return fmt.Errorf("create payload decoder: %w", err)
	}
	if err := decoder.Decode(fields); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func toFields(p any) (map[string]any, error) {
	fields := map[string]any{}
	if err := mapstructure.Decode(p, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	// Empty lists carry no information and are treated as absent.
	for k, v := range fields {
		if list, ok := v.([]string); ok && len(list) == 0 {
			if k == "skills" || k == "required_skills" {
				fields[k] = []string{}
				continue
			}
			delete(fields, k)
		}
	}
	return fields, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
