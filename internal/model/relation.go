package model

import (
	"fmt"
	"strings"
	"time"
)

// RelationType is the semantic tier of a predicate
type RelationType string

const (
	RelationCore RelationType = "CORE" // Structural, definitional
	RelationFlow RelationType = "FLOW" // Causal, procedural
)

// Relation is a persisted, merged edge between two terms
type Relation struct {
	SourceID        int64        `json:"source_term_id"`
	Predicate       string       `json:"predicate"`
	TargetID        int64        `json:"target_term_id"`
	Confidence      float64      `json:"confidence"`
	Evidence        []string     `json:"evidence"`
	OccurrenceCount int          `json:"occurrence_count"`
	LastVerifiedAt  time.Time    `json:"last_verified_at"`
	RelationType    RelationType `json:"relation_type"`
	Weight          int          `json:"weight"`
}

// Key returns the identity of the edge
func (r Relation) Key() RelationKey {
	return RelationKey{SourceID: r.SourceID, Predicate: r.Predicate, TargetID: r.TargetID}
}

// RelationKey uniquely identifies an edge
type RelationKey struct {
	SourceID  int64
	Predicate string
	TargetID  int64
}

func (k RelationKey) String() string {
	return fmt.Sprintf("%d|%s|%d", k.SourceID, strings.ToLower(k.Predicate), k.TargetID)
}

// RejectReason explains why a raw relation did not become an edge
type RejectReason string

const (
	RejectMissingData      RejectReason = "missing_data"
	RejectUnmatchedTarget  RejectReason = "unmatched_target"
	RejectSelfReference    RejectReason = "self_reference"
	RejectInvalidPredicate RejectReason = "invalid_predicate"
	RejectNoMatchingRule   RejectReason = "no_matching_rule"
	RejectLowConfidence    RejectReason = "low_confidence"
	RejectAbstractSource   RejectReason = "abstract_source_filtered"
	RejectStorageError     RejectReason = "storage_error"
)
