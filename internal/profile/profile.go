// Package profile holds the normalized candidate and job records the
// matching engine works on, and the text templates used to embed them.
package profile

import (
	"fmt"
	"strings"
)

// Candidate is the matchable view of a résumé.
type Candidate struct {
	ID              string   `json:"id" mapstructure:"id"`
	Title           string   `json:"title,omitempty" mapstructure:"title"`
	Description     string   `json:"description,omitempty" mapstructure:"description"`
	Skills          []string `json:"skills" mapstructure:"skills"`
	ExperienceYears int      `json:"experience_years" mapstructure:"experience_years"`
	Location        string   `json:"location,omitempty" mapstructure:"location"`
	EducationLevel  string   `json:"education_level,omitempty" mapstructure:"education_level"`
	JobTitles       []string `json:"job_titles,omitempty" mapstructure:"job_titles"`
	Industries      []string `json:"industries,omitempty" mapstructure:"industries"`
	Education       []string `json:"education,omitempty" mapstructure:"education"`
}

// Job is the matchable view of a job posting.
type Job struct {
	ID              string   `json:"id" mapstructure:"id"`
	Title           string   `json:"title,omitempty" mapstructure:"title"`
	Description     string   `json:"description,omitempty" mapstructure:"description"`
	RequiredSkills  []string `json:"required_skills" mapstructure:"required_skills"`
	PreferredSkills []string `json:"preferred_skills,omitempty" mapstructure:"preferred_skills"`
	ExperienceYears int      `json:"experience_years" mapstructure:"experience_years"`
	Location        string   `json:"location,omitempty" mapstructure:"location"`
	EmploymentType  string   `json:"employment_type,omitempty" mapstructure:"employment_type"`
	SalaryMin       int      `json:"salary_min,omitempty" mapstructure:"salary_min"`
	SalaryMax       int      `json:"salary_max,omitempty" mapstructure:"salary_max"`
	Category        string   `json:"category,omitempty" mapstructure:"category"`
	Company         string   `json:"company,omitempty" mapstructure:"company"`
}

// Normalize returns a copy with trimmed fields, de-duplicated skills in
// their original spelling and non-negative experience.
func (c Candidate) Normalize() Candidate {
	c.ID = strings.TrimSpace(c.ID)
	c.Location = strings.TrimSpace(c.Location)
	c.Skills = dedupe(c.Skills)
	c.JobTitles = dedupe(c.JobTitles)
	c.Industries = dedupe(c.Industries)
	if c.ExperienceYears < 0 {
		c.ExperienceYears = 0
	}
	return c
}

// Normalize returns a copy with trimmed fields, de-duplicated skills and
// non-negative experience and salaries.
func (j Job) Normalize() Job {
	j.ID = strings.TrimSpace(j.ID)
	j.Location = strings.TrimSpace(j.Location)
	j.EmploymentType = strings.TrimSpace(j.EmploymentType)
	j.RequiredSkills = dedupe(j.RequiredSkills)
	j.PreferredSkills = dedupe(j.PreferredSkills)
	if j.ExperienceYears < 0 {
		j.ExperienceYears = 0
	}
	if j.SalaryMin < 0 {
		j.SalaryMin = 0
	}
	if j.SalaryMax < 0 {
		j.SalaryMax = 0
	}
	return j
}

// EmbeddingText renders the job with the stable template used for embeddings.
func (j Job) EmbeddingText() string {
	return fmt.Sprintf("Title: %s\nDescription: %s\nRequired Skills: %s\nPreferred Skills: %s\nExperience: %d years\nLocation: %s",
		strings.TrimSpace(j.Title),
		strings.TrimSpace(j.Description),
		strings.Join(j.RequiredSkills, ", "),
		strings.Join(j.PreferredSkills, ", "),
		j.ExperienceYears,
		strings.TrimSpace(j.Location),
	)
}

// EmbeddingText renders the candidate with the stable résumé template.
func (c Candidate) EmbeddingText() string {
	var b strings.Builder
	if title := strings.TrimSpace(c.Title); title != "" {
		fmt.Fprintf(&b, "Title: %s\n", title)
	}
	if summary := strings.TrimSpace(c.Description); summary != "" {
		fmt.Fprintf(&b, "%s\n", summary)
	}
	fmt.Fprintf(&b, "Skills: %s\n", strings.Join(c.Skills, ", "))
	fmt.Fprintf(&b, "Experience: %d years", c.ExperienceYears)
	if len(c.JobTitles) > 0 {
		fmt.Fprintf(&b, "; %s", strings.Join(c.JobTitles, "; "))
	}
	b.WriteString("\n")
	if len(c.Education) > 0 {
		fmt.Fprintf(&b, "Education: %s\n", strings.Join(c.Education, "; "))
	}
	fmt.Fprintf(&b, "Location: %s", strings.TrimSpace(c.Location))
	return b.String()
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := NormalizeSkill(v)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
