package query

import (
	"strconv"
	"strings"
)

// DefaultRadius is the subgraph radius when none is given
const DefaultRadius = 2

// TermsRequest looks up every term with a surface text
type TermsRequest struct {
	Text string `form:"text" json:"text" binding:"required"`
}

// BFSRequest walks outgoing edges from Start
type BFSRequest struct {
	Start          string   `form:"start" json:"start" binding:"required"`
	TargetCategory string   `form:"category" json:"category"`
	MaxDepth       *int     `form:"max_depth" json:"max_depth" binding:"omitempty,gte=0,lte=10"`
	MinConfidence  *float64 `form:"min_confidence" json:"min_confidence" binding:"omitempty,gte=0,lte=1"`
	Limit          *int     `form:"limit" json:"limit" binding:"omitempty,gte=1,lte=1000"`
}

// ImpactRequest groups downstream terms by depth
type ImpactRequest struct {
	Term          string   `form:"term" json:"term" binding:"required"`
	MaxDepth      *int     `form:"max_depth" json:"max_depth" binding:"omitempty,gte=0,lte=10"`
	MinConfidence *float64 `form:"min_confidence" json:"min_confidence" binding:"omitempty,gte=0,lte=1"`
}

// PathRequest asks for the shortest chain between two terms
type PathRequest struct {
	Start         string   `form:"start" json:"start" binding:"required"`
	End           string   `form:"end" json:"end" binding:"required"`
	MaxDepth      *int     `form:"max_depth" json:"max_depth" binding:"omitempty,gte=0,lte=10"`
	MinConfidence *float64 `form:"min_confidence" json:"min_confidence" binding:"omitempty,gte=0,lte=1"`
}

// SubgraphRequest extracts the neighborhood of Center
type SubgraphRequest struct {
	Center        string   `form:"center" json:"center" binding:"required"`
	Radius        *int     `form:"radius" json:"radius" binding:"omitempty,gte=0,lte=10"`
	Predicates    []string `form:"predicate" json:"predicates"`
	MinConfidence *float64 `form:"min_confidence" json:"min_confidence" binding:"omitempty,gte=0,lte=1"`
}

// EgoRequest extracts Term and its direct neighbors
type EgoRequest struct {
	Term          string   `form:"term" json:"term" binding:"required"`
	Incoming      *bool    `form:"incoming" json:"incoming"`
	Outgoing      *bool    `form:"outgoing" json:"outgoing"`
	MinConfidence *float64 `form:"min_confidence" json:"min_confidence" binding:"omitempty,gte=0,lte=1"`
}

// PredicateRequest lists edges of one predicate
type PredicateRequest struct {
	Predicate string `uri:"predicate" form:"-" json:"predicate" binding:"required"`
	Limit     *int   `form:"limit" json:"limit" binding:"omitempty,gte=1,lte=1000"`
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizePredicates lowercases, drops blanks and keeps first occurrences
func normalizePredicates(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, raw := range in {
		for _, p := range strings.Split(raw, ",") {
			p = lower(p)
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
