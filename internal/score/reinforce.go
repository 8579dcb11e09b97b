package score

import "math"

// Reinforcement defaults
const (
	DefaultReinforcement = 0.2
	DefaultEvidenceLimit = 3
)

// ReinforcementFormula documents Reinforce for logs and reports
const ReinforcementFormula = "min(old + (1 - old) * (weighted * factor), 1.0)"

// Reinforce raises an existing confidence toward 1.0 by a fraction of the
// remaining gap proportional to the new observation. The result is never
// below old and never above 1.0.
func Reinforce(old, weighted, factor float64) float64 {
	if factor <= 0 {
		factor = DefaultReinforcement
	}
	next := old + (1-old)*(weighted*factor)
	next = math.Min(next, 1.0)
	return math.Max(next, old)
}

// AppendEvidence adds ev when non-empty and unseen, keeping the most recent limit entries
func AppendEvidence(existing []string, ev string, limit int) []string {
	if limit <= 0 {
		limit = DefaultEvidenceLimit
	}

	out := make([]string, 0, len(existing)+1)
	out = append(out, existing...)

	if ev != "" && !contains(out, ev) {
		out = append(out, ev)
	}

	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
