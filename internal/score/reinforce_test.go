package score

import (
	"math"
	"testing"
)

func TestReinforce(t *testing.T) {
	got := Reinforce(0.5, 0.8, DefaultReinforcement)
	if math.Abs(got-0.58) > 1e-9 {
		t.Errorf("expected 0.58, got %.6f", got)
	}
}

func TestReinforce_MonotonicAndBounded(t *testing.T) {
	conf := 0.5
	for i := 0; i < 200; i++ {
		next := Reinforce(conf, 1.0, DefaultReinforcement)
		if next < conf {
			t.Fatalf("confidence decreased at step %d: %.6f -> %.6f", i, conf, next)
		}
		if next > 1.0 {
			t.Fatalf("confidence exceeded 1.0 at step %d: %.6f", i, next)
		}
		conf = next
	}
	if conf < 0.99 {
		t.Errorf("expected repeated reinforcement to approach 1.0, got %.6f", conf)
	}

	if got := Reinforce(0.7, 0, DefaultReinforcement); got != 0.7 {
		t.Errorf("expected zero-confidence observation to keep 0.7, got %.6f", got)
	}
	if got := Reinforce(1.0, 1.0, DefaultReinforcement); got != 1.0 {
		t.Errorf("expected saturated confidence to stay 1.0, got %.6f", got)
	}
}

func TestAppendEvidence(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		ev       string
		want     []string
	}{
		{"first", nil, "a", []string{"a"}},
		{"empty ignored", []string{"a"}, "", []string{"a"}},
		{"duplicate ignored", []string{"a", "b"}, "a", []string{"a", "b"}},
		{"appended", []string{"a", "b"}, "c", []string{"a", "b", "c"}},
		{"keeps last three", []string{"a", "b", "c"}, "d", []string{"b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AppendEvidence(tt.existing, tt.ev, DefaultEvidenceLimit)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
					break
				}
			}
		})
	}
}

func TestAppendEvidence_DoesNotAlias(t *testing.T) {
	existing := make([]string, 2, 4)
	existing[0], existing[1] = "a", "b"

	_ = AppendEvidence(existing, "c", 3)
	if len(existing) != 2 {
		t.Errorf("expected input slice to be untouched, got %v", existing)
	}
}
