package validate

import (
	"strings"

	"github.com/ppiankov/ontograph/internal/model"
)

// Specificity scores
const (
	ScoreSpecific     = 1.0 // No generic noun at all
	ScoreQualified    = 0.7 // Generic noun with a qualifying modifier
	ScoreMultiWord    = 0.5 // Generic noun inside a longer phrase
	ScoreBareAbstract = 0.2 // Single generic word
)

// SpecificityClassifier scores how generic a term is and decides whether
// relations from it should be dropped as hub noise.
type SpecificityClassifier struct {
	threshold    float64
	genericNouns []string
	modifiers    []string
}

// NewSpecificityClassifier creates a classifier from config (nil uses defaults)
func NewSpecificityClassifier(config *model.SpecificityConfig) *SpecificityClassifier {
	if config == nil {
		config = &model.DefaultConfig().Specificity
	}

	c := &SpecificityClassifier{
		threshold:    config.Threshold,
		genericNouns: lowerAll(config.GenericNouns),
		modifiers:    lowerAll(config.Modifiers),
	}
	if c.threshold <= 0 {
		c.threshold = 0.3
	}

	return c
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Specificity returns whether the text is a bare abstract term, and its score
func (c *SpecificityClassifier) Specificity(text string) (bool, float64) {
	lower := strings.ToLower(strings.TrimSpace(text))

	if !containsAny(lower, c.genericNouns) {
		return false, ScoreSpecific
	}

	if containsAny(lower, c.modifiers) {
		return false, ScoreQualified
	}

	if len(strings.Fields(lower)) > 1 {
		return false, ScoreMultiWord
	}

	return true, ScoreBareAbstract
}

// ShouldFilter reports whether a relation must be dropped because its source
// is too generic. The target is never checked.
func (c *SpecificityClassifier) ShouldFilter(sourceText, targetText string) bool {
	_, score := c.Specificity(sourceText)
	return score < c.threshold
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
