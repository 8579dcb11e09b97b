package model

// Term is a candidate entity extracted from one document.
// Many terms may share the same surface text across documents.
type Term struct {
	ID           int64         `json:"id"`
	DocumentID   int64         `json:"document_id"`
	Text         string        `json:"term"`
	Category     string        `json:"category"`
	Definition   string        `json:"definition,omitempty"`
	Frequency    int           `json:"frequency"`
	Confidence   float64       `json:"confidence"`
	RawRelations []RawRelation `json:"related_terms,omitempty"`
}

// RawRelation is a relation proposed by the extraction step, before resolution
type RawRelation struct {
	Target     string  `json:"target"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence,omitempty"`
}

// Document carries only what recency weighting needs
type Document struct {
	ID          int64  `json:"id"`
	Title       string `json:"title,omitempty"`
	LastUpdated string `json:"last_updated,omitempty"` // Raw timestamp, parsed leniently
}

// Rule whitelists a (subject category, predicate, object category) triple
type Rule struct {
	SubjectCategory string `json:"subject_category" yaml:"subject"`
	Predicate       string `json:"predicate" yaml:"predicate"`
	ObjectCategory  string `json:"object_category" yaml:"object"`
	Description     string `json:"description,omitempty" yaml:"description,omitempty"`
}

// MatchMethod records which resolution step produced a match
type MatchMethod string

const (
	MatchExactLocal  MatchMethod = "exact_local"
	MatchFuzzyLocal  MatchMethod = "fuzzy_local"
	MatchFuzzyGlobal MatchMethod = "fuzzy_global"
	MatchNone        MatchMethod = "unmatched"
)
