package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/ontograph/internal/model"
)

type triple struct {
	subject   string
	predicate string
	object    string
}

// Schema is the closed predicate and category vocabulary built from the
// ontology rules. It is immutable after NewSchema.
type Schema struct {
	predicates map[string]struct{}
	categories map[string]struct{}
	rules      map[triple]string
}

// NewSchema validates the rules and builds the vocabulary.
// Matching is case-insensitive; duplicate triples collapse.
func NewSchema(rules []model.Rule) (*Schema, error) {
	s := &Schema{
		predicates: make(map[string]struct{}),
		categories: make(map[string]struct{}),
		rules:      make(map[triple]string, len(rules)),
	}

	for i, r := range rules {
		t := triple{
			subject:   fold(r.SubjectCategory),
			predicate: fold(r.Predicate),
			object:    fold(r.ObjectCategory),
		}
		if t.subject == "" || t.predicate == "" || t.object == "" {
			return nil, fmt.Errorf("rule %d: subject, predicate and object are required (got %q, %q, %q)",
				i, r.SubjectCategory, r.Predicate, r.ObjectCategory)
		}
		if strings.ContainsAny(t.predicate, " \t\n") {
			return nil, fmt.Errorf("rule %d: predicate %q must not contain whitespace", i, r.Predicate)
		}

		s.predicates[t.predicate] = struct{}{}
		s.categories[t.subject] = struct{}{}
		s.categories[t.object] = struct{}{}
		if _, exists := s.rules[t]; !exists || r.Description != "" {
			s.rules[t] = r.Description
		}
	}

	return s, nil
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// HasPredicate reports whether the predicate is in the vocabulary
func (s *Schema) HasPredicate(predicate string) bool {
	_, ok := s.predicates[fold(predicate)]
	return ok
}

// HasCategory reports whether the category appears in any rule
func (s *Schema) HasCategory(category string) bool {
	_, ok := s.categories[fold(category)]
	return ok
}

// Allows reports whether the triple is whitelisted
func (s *Schema) Allows(subject, predicate, object string) bool {
	_, ok := s.rules[triple{fold(subject), fold(predicate), fold(object)}]
	return ok
}

// Describe returns the description attached to a triple
func (s *Schema) Describe(subject, predicate, object string) string {
	return s.rules[triple{fold(subject), fold(predicate), fold(object)}]
}

// Predicates returns the vocabulary in sorted order
func (s *Schema) Predicates() []string {
	out := make([]string, 0, len(s.predicates))
	for p := range s.predicates {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of distinct rules
func (s *Schema) Len() int {
	return len(s.rules)
}
