package match

import (
	"slices"
	"sort"
	"strings"

	"github.com/ppiankov/ontograph/internal/model"
)

// Candidates is an immutable normalized-key index over terms.
// When several terms share a key the best one is kept (see better).
type Candidates struct {
	byKey map[string]model.Term
	keys  []string // Sorted, used for deterministic substring scans
}

// NewCandidates indexes the given terms by normalized text
func NewCandidates(terms []model.Term) *Candidates {
	c := &Candidates{byKey: make(map[string]model.Term, len(terms))}

	for _, t := range terms {
		key := Normalize(t.Text)
		if key == "" {
			continue
		}
		if cur, ok := c.byKey[key]; !ok || better(t, cur) {
			c.byKey[key] = t
		}
	}

	c.keys = make([]string, 0, len(c.byKey))
	for k := range c.byKey {
		c.keys = append(c.keys, k)
	}
	sort.Strings(c.keys)

	return c
}

// better reports whether a should replace b for the same key:
// higher frequency, then higher confidence, then lower id.
func better(a, b model.Term) bool {
	if a.Frequency != b.Frequency {
		return a.Frequency > b.Frequency
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.ID < b.ID
}

// Len returns the number of distinct keys
func (c *Candidates) Len() int {
	return len(c.keys)
}

// Exact looks up an already-normalized key
func (c *Candidates) Exact(key string) (model.Term, bool) {
	if key == "" {
		return model.Term{}, false
	}
	t, ok := c.byKey[key]
	return t, ok
}

// Fuzzy returns the first candidate (in key order) whose key contains, or is
// contained in, the query key. Terms whose id is in exclude are skipped.
func (c *Candidates) Fuzzy(key string, exclude ...int64) (model.Term, bool) {
	if key == "" {
		return model.Term{}, false
	}
	for _, k := range c.keys {
		if !strings.Contains(k, key) && !strings.Contains(key, k) {
			continue
		}
		if t := c.byKey[k]; !slices.Contains(exclude, t.ID) {
			return t, true
		}
	}
	return model.Term{}, false
}
