package score

import (
	"testing"

	"github.com/ppiankov/ontograph/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		predicate string
		wantType  model.RelationType
		wantW     int
	}{
		{"contains", model.RelationCore, 1},
		{"IS_A", model.RelationCore, 1},
		{"belongs_to", model.RelationCore, 1},
		{"sells", model.RelationFlow, 2},
		{"triggers", model.RelationFlow, 3},
		{"converts_to", model.RelationFlow, 3},
		{"influences", model.RelationFlow, 4},
		{"unlocks", model.RelationFlow, 3},
		{"", model.RelationFlow, 3},
	}

	for _, tt := range tests {
		t.Run(tt.predicate, func(t *testing.T) {
			rt, w := Classify(tt.predicate)
			if rt != tt.wantType || w != tt.wantW {
				t.Errorf("Classify(%q) = (%s, %d), want (%s, %d)", tt.predicate, rt, w, tt.wantType, tt.wantW)
			}
		})
	}
}

func TestClassify_WeightRange(t *testing.T) {
	for p := range predicateTiers {
		_, w := Classify(p)
		if w < 1 || w > 5 {
			t.Errorf("predicate %q has weight %d outside 1..5", p, w)
		}
	}
	if !IsCore("requires") || IsCore("causes") {
		t.Error("IsCore disagrees with the tier table")
	}
}
