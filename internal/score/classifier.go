package score

import (
	"strings"

	"github.com/ppiankov/ontograph/internal/model"
)

// Default tier for predicates missing from the table
const (
	DefaultRelationType = model.RelationFlow
	DefaultWeight       = 3
)

type tier struct {
	relationType model.RelationType
	weight       int
}

var predicateTiers = buildTiers(map[tier][]string{
	{model.RelationCore, 1}: {
		"contains", "consists_of", "composed_of", "includes", "requires",
		"is_a", "part_of", "has", "belongs_to",
	},
	{model.RelationFlow, 2}: {
		"guarantees", "targets", "sells",
	},
	{model.RelationFlow, 3}: {
		"increases", "decreases", "causes", "triggers", "consumes",
		"produces", "rewards", "boosts", "accelerates", "generates",
		"performs", "converts_to", "acquires",
	},
	{model.RelationFlow, 4}: {
		"promotes", "utilizes", "induces", "influences",
	},
})

func buildTiers(groups map[tier][]string) map[string]tier {
	out := make(map[string]tier)
	for t, preds := range groups {
		for _, p := range preds {
			out[p] = t
		}
	}
	return out
}

// Classify returns the tier and traversal weight for a predicate.
// Unknown predicates are FLOW with weight 3; classification never rejects.
func Classify(predicate string) (model.RelationType, int) {
	if t, ok := predicateTiers[strings.ToLower(strings.TrimSpace(predicate))]; ok {
		return t.relationType, t.weight
	}
	return DefaultRelationType, DefaultWeight
}

// IsCore reports whether the predicate is structural
func IsCore(predicate string) bool {
	rt, _ := Classify(predicate)
	return rt == model.RelationCore
}
