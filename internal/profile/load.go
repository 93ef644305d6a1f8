package profile

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadCandidate reads a candidate record from a YAML, JSON or TOML file.
func LoadCandidate(path string) (Candidate, error) {
	var c Candidate
	if err := load(path, &c); err != nil {
		return Candidate{}, err
	}
	if c.ID == "" {
		return Candidate{}, fmt.Errorf("candidate in %q has no id", path)
	}
	return c.Normalize(), nil
}

// LoadJob reads a job record from a YAML, JSON or TOML file.
func LoadJob(path string) (Job, error) {
	var j Job
	if err := load(path, &j); err != nil {
		return Job{}, err
	}
	if j.ID == "" {
		return Job{}, fmt.Errorf("job in %q has no id", path)
	}
	return j.Normalize(), nil
}

func load(path string, dst any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("profile path is required")
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading profile %q: %w", path, err)
	}

	if err := v.Unmarshal(dst); err != nil {
		return fmt.Errorf("decoding profile %q: %w", path, err)
	}
	return nil
}
