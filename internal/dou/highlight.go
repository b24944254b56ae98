package dou

import (
	"regexp"
	"strings"

	"github.com/gazettewatch/gazettewatch/internal/gazette"
	"github.com/gazettewatch/gazettewatch/internal/textutil"
)

// The backend wraps matched spans in <span class="highlight"> tags. Those are
// swapped for placeholder tokens before the remaining markup is stripped, so
// the tag stripper cannot eat the markers themselves. Private-use runes
// survive the tokenizer pass untouched.
const (
	openToken  = ""
	closeToken = ""
)

var highlightOpenRe = regexp.MustCompile(`(?i)<span[^>]*class="[^"]*highlight[^"]*"[^>]*>`)

// convertHighlights turns the backend's highlight spans into the canonical
// placeholder pair and strips every other tag. Pairing is positional: each
// highlight open claims the next </span>; markup that defeats that heuristic
// is repaired later by marker balancing in the grouping stage.
func convertHighlights(content string) string {
	if content == "" {
		return ""
	}
	var b strings.Builder
	for {
		loc := highlightOpenRe.FindStringIndex(content)
		if loc == nil {
			b.WriteString(content)
			break
		}
		b.WriteString(content[:loc[0]])
		b.WriteString(openToken)
		rest := content[loc[1]:]
		end := strings.Index(rest, "</span>")
		if end < 0 {
			b.WriteString(rest)
			b.WriteString(closeToken)
			break
		}
		b.WriteString(rest[:end])
		b.WriteString(closeToken)
		content = rest[end+len("</span>"):]
	}
	text := textutil.StripMarkup(b.String())
	text = strings.ReplaceAll(text, openToken, gazette.HighlightOpen)
	text = strings.ReplaceAll(text, closeToken, gazette.HighlightClose)
	return strings.TrimSpace(text)
}
