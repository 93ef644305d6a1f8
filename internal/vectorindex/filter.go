package vectorindex

import (
	"fmt"
	"strings"
)

// Op is a predicate operator.
type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpLte Op = "lte"
	OpGt  Op = "gt"
	OpLt  Op = "lt"
)

// Condition is a single predicate on a payload field.
type Condition struct {
	Field string `mapstructure:"field"`
	Op    Op     `mapstructure:"op"`
	Value any    `mapstructure:"value"`
}

// Filter is a conjunction of conditions. The zero Filter matches every point.
type Filter struct {
	Must []Condition
}

// Eq builds an equality condition. On list fields it matches when any element equals value.
func Eq(field string, value any) Condition { return Condition{Field: field, Op: OpEq, Value: value} }

// Gte builds a range condition field >= value.
func Gte(field string, value int) Condition { return Condition{Field: field, Op: OpGte, Value: value} }

// Lte builds a range condition field <= value.
func Lte(field string, value int) Condition { return Condition{Field: field, Op: OpLte, Value: value} }

// And returns a filter holding every condition.
func And(conds ...Condition) Filter {
	return Filter{Must: conds}
}

// Empty reports whether the filter has no conditions.
func (f Filter) Empty() bool { return len(f.Must) == 0 }

// Validate checks every condition against the schema of collection.
func (f Filter) Validate(collection Collection) error {
	if !collection.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	for _, c := range f.Must {
		if err := c.validate(collection); err != nil {
			return err
		}
	}
	return nil
}

func (c Condition) validate(collection Collection) error {
	kind, ok := collection.FieldKind(c.Field)
	if !ok {
		return fmt.Errorf("%w: field %q is not filterable in %s", ErrInvalidFilter, c.Field, collection)
	}
	switch c.Op {
	case OpEq:
		if kind == KindInteger {
			if _, ok := number(c.Value); !ok {
				return fmt.Errorf("%w: field %q expects a number, got %T", ErrInvalidFilter, c.Field, c.Value)
			}
			return nil
		}
		if s, ok := c.Value.(string); !ok || strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: field %q expects a non-empty string", ErrInvalidFilter, c.Field)
		}
	case OpGte, OpLte, OpGt, OpLt:
		if kind != KindInteger {
			return fmt.Errorf("%w: range operator %s on %s field %q", ErrInvalidFilter, c.Op, kind, c.Field)
		}
		if _, ok := number(c.Value); !ok {
			return fmt.Errorf("%w: field %q expects a number, got %T", ErrInvalidFilter, c.Field, c.Value)
		}
	default:
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, c.Op)
	}
	return nil
}

// Match evaluates the filter against stored payload fields. A condition on
// an absent field does not match.
func (f Filter) Match(fields map[string]any) bool {
	for _, c := range f.Must {
		if !c.match(fields) {
			return false
		}
	}
	return true
}

func (c Condition) match(fields map[string]any) bool {
	stored, ok := fields[c.Field]
	if !ok || stored == nil {
		return false
	}
	switch v := stored.(type) {
	case string:
		want, ok := c.Value.(string)
		return ok && c.Op == OpEq && v == want
	case []string:
		return c.Op == OpEq && containsString(v, c.Value)
	case []any:
		if c.Op != OpEq {
			return false
		}
		for _, item := range v {
			if s, ok := item.(string); ok && any(s) == c.Value {
				return true
			}
		}
		return false
	}
	got, ok := number(stored)
	if !ok {
		return false
	}
	want, ok := number(c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case OpEq:
		return got == want
	case OpGte:
		return got >= want
	case OpLte:
		return got <= want
	case OpGt:
		return got > want
	case OpLt:
		return got < want
	}
	return false
}

func containsString(values []string, want any) bool {
	s, ok := want.(string)
	if !ok {
		return false
	}
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Number converts a numeric condition value to float64.
func Number(v any) (float64, bool) { return number(v) }

// JobFilters is the query shape accepted when searching jobs.
type JobFilters struct {
	Location       string `mapstructure:"location"`
	EmploymentType string `mapstructure:"employment_type"`
	MinSalary      int    `mapstructure:"min_salary"`
}

// Filter converts the shape to a Filter; zero values are ignored.
func (f JobFilters) Filter() Filter {
	var out Filter
	if s := strings.TrimSpace(f.Location); s != "" {
		out.Must = append(out.Must, Eq("location", s))
	}
	if s := strings.TrimSpace(f.EmploymentType); s != "" {
		out.Must = append(out.Must, Eq("employment_type", s))
	}
	if f.MinSalary > 0 {
		out.Must = append(out.Must, Gte("salary_min", f.MinSalary))
	}
	return out
}

// CandidateFilters is the query shape accepted when searching résumés.
type CandidateFilters struct {
	Location      string `mapstructure:"location"`
	MinExperience int    `mapstructure:"min_experience"`
}

// Filter converts the shape to a Filter; zero values are ignored.
func (f CandidateFilters) Filter() Filter {
	var out Filter
	if s := strings.TrimSpace(f.Location); s != "" {
		out.Must = append(out.Must, Eq("location", s))
	}
	if f.MinExperience > 0 {
		out.Must = append(out.Must, Gte("experience_years", f.MinExperience))
	}
	return out
}
