package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// DefaultEvidenceRunes bounds a single stored evidence string
const DefaultEvidenceRunes = 500

// EvidenceCleaner turns evidence snippets into plain single-line text.
// Snippets copied from wiki pages often carry markup.
type EvidenceCleaner struct {
	maxRunes int
}

// NewEvidenceCleaner creates a cleaner; a non-positive limit uses DefaultEvidenceRunes
func NewEvidenceCleaner(maxRunes int) *EvidenceCleaner {
	if maxRunes <= 0 {
		maxRunes = DefaultEvidenceRunes
	}
	return &EvidenceCleaner{maxRunes: maxRunes}
}

// Clean strips tags, drops script and style bodies, collapses whitespace and truncates
func (c *EvidenceCleaner) Clean(s string) string {
	if s == "" {
		return ""
	}

	text := s
	if strings.ContainsAny(s, "<&") {
		text = visibleText(s)
	}

	text = strings.Join(strings.Fields(text), " ")

	if utf8.RuneCountInString(text) > c.maxRunes {
		runes := []rune(text)
		text = strings.TrimSpace(string(runes[:c.maxRunes]))
	}
	return text
}

// visibleText walks the token stream and keeps text outside script/style
func visibleText(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			case "br", "p", "div", "li", "td", "tr":
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			case "p", "div", "li", "td":
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}
