package match

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// particles are trailing Korean grammatical particles, tried longest first
var particles = sortedByLength([]string{
	"은", "는", "이", "가", "을", "를", "와", "과", "의", "에",
	"에서", "으로", "로", "도", "만", "부터", "까지",
})

func sortedByLength(in []string) []string {
	out := append([]string(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		return utf8.RuneCountInString(out[i]) > utf8.RuneCountInString(out[j])
	})
	return out
}

// Normalize maps surface text to its matching key: composed, width-folded,
// lowercased, one trailing particle stripped, whitespace removed.
func Normalize(text string) string {
	s := width.Fold.String(norm.NFC.String(text))
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	for _, p := range particles {
		if strings.HasSuffix(s, p) && len(s) > len(p) {
			s = strings.TrimSuffix(s, p)
			break
		}
	}

	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
