package validate

import "github.com/ppiankov/ontograph/internal/model"

// DefaultConfidenceFloor is the minimum raw confidence for an edge
const DefaultConfidenceFloor = 0.5

// Validator checks proposed relations against the schema and a confidence floor
type Validator struct {
	schema *Schema
	floor  float64
}

// NewValidator creates a validator; a non-positive floor falls back to the default
func NewValidator(schema *Schema, floor float64) *Validator {
	if floor <= 0 {
		floor = DefaultConfidenceFloor
	}
	return &Validator{schema: schema, floor: floor}
}

// Schema returns the underlying vocabulary
func (v *Validator) Schema() *Schema {
	return v.schema
}

// Validate returns ok, or the first reason the relation is rejected.
// Checks run in order: predicate vocabulary, rule triple, confidence floor.
func (v *Validator) Validate(source model.Term, predicate string, target model.Term, confidence float64) (bool, model.RejectReason) {
	if !v.schema.HasPredicate(predicate) {
		return false, model.RejectInvalidPredicate
	}

	if !v.schema.Allows(source.Category, predicate, target.Category) {
		return false, model.RejectNoMatchingRule
	}

	if confidence < v.floor {
		return false, model.RejectLowConfidence
	}

	return true, ""
}
