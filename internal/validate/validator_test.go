package validate

import (
	"testing"

	"github.com/ppiankov/ontograph/internal/model"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema([]model.Rule{
		{SubjectCategory: "mechanic", Predicate: "triggers", ObjectCategory: "content"},
		{SubjectCategory: "GameObject", Predicate: "Contains", ObjectCategory: "Resource", Description: "holds"},
		{SubjectCategory: "gameobject", Predicate: "contains", ObjectCategory: "resource"},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

func TestNewSchema_Vocabulary(t *testing.T) {
	s := testSchema(t)

	if s.Len() != 2 {
		t.Errorf("expected duplicate triples to collapse to 2 rules, got %d", s.Len())
	}
	preds := s.Predicates()
	if len(preds) != 2 || preds[0] != "contains" || preds[1] != "triggers" {
		t.Errorf("unexpected predicate vocabulary: %v", preds)
	}
	if !s.HasCategory("RESOURCE") {
		t.Error("expected category lookup to be case-insensitive")
	}
	if s.Describe("gameobject", "contains", "resource") != "holds" {
		t.Error("expected description to survive duplicate collapse")
	}
}

func TestNewSchema_RejectsIncompleteRules(t *testing.T) {
	tests := []model.Rule{
		{SubjectCategory: "", Predicate: "triggers", ObjectCategory: "content"},
		{SubjectCategory: "mechanic", Predicate: "  ", ObjectCategory: "content"},
		{SubjectCategory: "mechanic", Predicate: "triggers", ObjectCategory: ""},
		{SubjectCategory: "mechanic", Predicate: "leads to", ObjectCategory: "content"},
	}

	for _, r := range tests {
		if _, err := NewSchema([]model.Rule{r}); err == nil {
			t.Errorf("expected error for rule %+v", r)
		}
	}
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(testSchema(t), 0.5)
	mechanic := model.Term{ID: 1, Text: "연쇄 폭발", Category: "mechanic"}
	content := model.Term{ID: 2, Text: "보스 레이드", Category: "content"}
	resource := model.Term{ID: 3, Text: "골드", Category: "resource"}

	tests := []struct {
		name       string
		source     model.Term
		predicate  string
		target     model.Term
		confidence float64
		wantOK     bool
		wantReason model.RejectReason
	}{
		{"valid", mechanic, "triggers", content, 0.9, true, ""},
		{"case insensitive predicate", mechanic, "TRIGGERS", content, 0.9, true, ""},
		{"unknown predicate", mechanic, "unlocks", content, 0.9, false, model.RejectInvalidPredicate},
		{"no matching rule", mechanic, "triggers", resource, 0.9, false, model.RejectNoMatchingRule},
		{"reversed triple", content, "triggers", mechanic, 0.9, false, model.RejectNoMatchingRule},
		{"below floor", mechanic, "triggers", content, 0.49, false, model.RejectLowConfidence},
		{"at floor", mechanic, "triggers", content, 0.50, true, ""},
		{"schema checked before floor", mechanic, "unlocks", content, 0.1, false, model.RejectInvalidPredicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := v.Validate(tt.source, tt.predicate, tt.target, tt.confidence)
			if ok != tt.wantOK {
				t.Errorf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if reason != tt.wantReason {
				t.Errorf("expected reason %q, got %q", tt.wantReason, reason)
			}
		})
	}
}

func TestNewValidator_DefaultFloor(t *testing.T) {
	v := NewValidator(testSchema(t), 0)
	if v.floor != DefaultConfidenceFloor {
		t.Errorf("expected default floor %.2f, got %.2f", DefaultConfidenceFloor, v.floor)
	}
}
