package match

import (
	"sort"

	"github.com/ppiankov/ontograph/internal/model"
)

// PoolOptions gates which terms enter the cross-document pool
type PoolOptions struct {
	MinFrequency  int
	MinConfidence float64
}

// DefaultPoolOptions returns frequency >= 2 or confidence >= 0.8
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{MinFrequency: 2, MinConfidence: 0.8}
}

// Registry is the read-only term index for one build run.
// It is safe for concurrent use once constructed.
type Registry struct {
	byID   map[int64]model.Term
	byDoc  map[int64][]model.Term
	docIDs []int64
	local  map[int64]*Candidates
	global *Candidates
}

// Match is a resolved relation target
type Match struct {
	Term   model.Term
	Method model.MatchMethod
}

// NewRegistry indexes all terms and precomputes the global pool
func NewRegistry(terms []model.Term, opts PoolOptions) *Registry {
	r := &Registry{
		byID:  make(map[int64]model.Term, len(terms)),
		byDoc: make(map[int64][]model.Term),
		local: make(map[int64]*Candidates),
	}

	var pool []model.Term
	for _, t := range terms {
		r.byID[t.ID] = t
		r.byDoc[t.DocumentID] = append(r.byDoc[t.DocumentID], t)
		if t.Frequency >= opts.MinFrequency || t.Confidence >= opts.MinConfidence {
			pool = append(pool, t)
		}
	}

	for docID, docTerms := range r.byDoc {
		sort.Slice(docTerms, func(i, j int) bool { return docTerms[i].ID < docTerms[j].ID })
		r.local[docID] = NewCandidates(docTerms)
		r.docIDs = append(r.docIDs, docID)
	}
	sort.Slice(r.docIDs, func(i, j int) bool { return r.docIDs[i] < r.docIDs[j] })

	r.global = NewCandidates(pool)
	return r
}

// DocumentIDs returns every document id in ascending order
func (r *Registry) DocumentIDs() []int64 {
	return r.docIDs
}

// TermsForDocument returns the document's terms ordered by id
func (r *Registry) TermsForDocument(docID int64) []model.Term {
	return r.byDoc[docID]
}

// Term looks a term up by id
func (r *Registry) Term(id int64) (model.Term, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// Len returns the number of indexed terms
func (r *Registry) Len() int {
	return len(r.byID)
}

// GlobalPoolSize returns the number of distinct keys in the global pool
func (r *Registry) GlobalPoolSize() int {
	return r.global.Len()
}

// Resolve maps a target text to a term, trying local exact, local fuzzy, then
// global fuzzy. The second return value is false when nothing matched.
func (r *Registry) Resolve(docID int64, target string) (Match, bool) {
	return r.resolve(docID, target, nil)
}

// ResolveFrom resolves a target named by source's raw relations. The fuzzy
// passes never pick source itself; an exact hit on it is still returned.
func (r *Registry) ResolveFrom(source model.Term, target string) (Match, bool) {
	return r.resolve(source.DocumentID, target, []int64{source.ID})
}

func (r *Registry) resolve(docID int64, target string, exclude []int64) (Match, bool) {
	key := Normalize(target)
	if key == "" {
		return Match{Method: model.MatchNone}, false
	}

	if local, ok := r.local[docID]; ok {
		if t, ok := local.Exact(key); ok {
			return Match{Term: t, Method: model.MatchExactLocal}, true
		}
		if t, ok := local.Fuzzy(key, exclude...); ok {
			return Match{Term: t, Method: model.MatchFuzzyLocal}, true
		}
	}

	if t, ok := r.global.Fuzzy(key, exclude...); ok {
		return Match{Term: t, Method: model.MatchFuzzyGlobal}, true
	}

	return Match{Method: model.MatchNone}, false
}
