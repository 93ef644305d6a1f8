package vectorindex

import "fmt"

// Collection names one of the two vector collections.
type Collection string

const (
	CollectionResumes Collection = "resumes"
	CollectionJobs    Collection = "jobs"
)

// Collections lists every collection managed by the index.
var Collections = []Collection{CollectionResumes, CollectionJobs}

// FieldKind is the value type of a payload field.
type FieldKind int

const (
	KindKeyword FieldKind = iota
	KindKeywordList
	KindInteger
)

func (k FieldKind) String() string {
	switch k {
	case KindKeyword:
		return "keyword"
	case KindKeywordList:
		return "keyword[]"
	case KindInteger:
		return "integer"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// schemas lists the filterable payload fields of each collection.
var schemas = map[Collection]map[string]FieldKind{
	CollectionResumes: {
		"user_id":          KindKeyword,
		"skills":           KindKeywordList,
		"experience_years": KindInteger,
		"location":         KindKeyword,
		"education_level":  KindKeyword,
		"job_titles":       KindKeywordList,
		"industries":       KindKeywordList,
	},
	CollectionJobs: {
		"job_id":           KindKeyword,
		"required_skills":  KindKeywordList,
		"preferred_skills": KindKeywordList,
		"experience_years": KindInteger,
		"location":         KindKeyword,
		"employment_type":  KindKeyword,
		"salary_min":       KindInteger,
		"salary_max":       KindInteger,
		"category":         KindKeyword,
		"company":          KindKeyword,
	},
}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	_, ok := schemas[c]
	return ok
}

// FieldKind returns the kind of field in c.
func (c Collection) FieldKind(field string) (FieldKind, bool) {
	kind, ok := schemas[c][field]
	return kind, ok
}

// EntityField is the payload key that carries the external entity id.
func (c Collection) EntityField() string {
	if c == CollectionJobs {
		return "job_id"
	}
	return "user_id"
}
