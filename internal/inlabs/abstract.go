package inlabs

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/gazettewatch/gazettewatch/internal/gazette"
	"github.com/gazettewatch/gazettewatch/internal/textutil"
)

// excerptWindow is the rune window a trimmed excerpt keeps, centered on the
// first highlighted span.
const excerptWindow = 400

// lineBreak is the explicit marker paragraph breaks become in full-text
// mode; renderers translate it to their destination's markup.
const lineBreak = "<br>"

// buildAbstract produces the item abstract: the summary field when summary
// preference is on, the complete text in full-text mode, or an excerpt
// trimmed around the first match. Matched spans are wrapped in the highlight
// placeholder pair.
func buildAbstract(cr gazette.Criteria, r row, lits []string) string {
	if cr.UseSummary && strings.TrimSpace(r.Ementa) != "" {
		return highlight(strings.TrimSpace(r.Ementa), lits)
	}
	text := textutil.StripMarkup(r.Texto)
	if text == "" {
		return ""
	}
	if cr.FullText {
		full := strings.TrimSpace(r.Texto)
		full = strings.ReplaceAll(full, "\r\n", "\n")
		full = strings.ReplaceAll(full, "\n", lineBreak)
		return highlight(full, lits)
	}
	return excerpt(text, lits)
}

// highlight wraps every accent/case-insensitive occurrence of each literal
// in the placeholder pair.
func highlight(text string, lits []string) string {
	rs := []rune(text)
	folded := foldRunes(rs)
	ranges := matchRanges(folded, lits)
	if len(ranges) == 0 {
		return text
	}
	var b strings.Builder
	for i, r := range rs {
		for _, m := range ranges {
			if m[0] == i {
				b.WriteString(gazette.HighlightOpen)
			}
		}
		b.WriteRune(r)
		for _, m := range ranges {
			if m[1] == i+1 {
				b.WriteString(gazette.HighlightClose)
			}
		}
	}
	return b.String()
}

// excerpt trims text to a fixed window centered on the first match,
// keeping an ellipsis marker on each truncated side.
func excerpt(text string, lits []string) string {
	rs := []rune(text)
	folded := foldRunes(rs)
	ranges := matchRanges(folded, lits)
	if len(ranges) == 0 {
		if len(rs) <= excerptWindow {
			return text
		}
		return string(rs[:excerptWindow]) + " " + gazette.Ellipsis
	}

	first := ranges[0]
	start := first[0] - excerptWindow/2
	if start < 0 {
		start = 0
	}
	end := start + excerptWindow
	if end > len(rs) {
		end = len(rs)
		if start = end - excerptWindow; start < 0 {
			start = 0
		}
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString(gazette.Ellipsis)
		b.WriteByte(' ')
	}
	for i := start; i < end; i++ {
		for _, m := range ranges {
			if m[0] == i && m[1] <= end {
				b.WriteString(gazette.HighlightOpen)
			}
		}
		b.WriteRune(rs[i])
		for _, m := range ranges {
			if m[1] == i+1 && m[0] >= start {
				b.WriteString(gazette.HighlightClose)
			}
		}
	}
	if end < len(rs) {
		b.WriteByte(' ')
		b.WriteString(gazette.Ellipsis)
	}
	return strings.TrimSpace(b.String())
}

// matchRanges finds non-overlapping [start,end) rune ranges where any
// literal occurs in the folded text, in ascending order.
func matchRanges(folded []rune, lits []string) [][2]int {
	var out [][2]int
	taken := make([]bool, len(folded))
	for _, lit := range lits {
		needle := foldRunes([]rune(strings.TrimSpace(lit)))
		if len(needle) == 0 {
			continue
		}
		for i := 0; i+len(needle) <= len(folded); i++ {
			if taken[i] || !runesEqual(folded[i:i+len(needle)], needle) {
				continue
			}
			overlap := false
			for j := i; j < i+len(needle); j++ {
				if taken[j] {
					overlap = true
					break
				}
			}
			if overlap {
				continue
			}
			for j := i; j < i+len(needle); j++ {
				taken[j] = true
			}
			out = append(out, [2]int{i, i + len(needle)})
			i += len(needle) - 1
		}
	}
	sortRanges(out)
	return out
}

func sortRanges(rs [][2]int) {
	for i := 1; i < len(rs); i++ {
		for j := i; j > 0 && rs[j][0] < rs[j-1][0]; j-- {
			rs[j], rs[j-1] = rs[j-1], rs[j]
		}
	}
}

func runesEqual(a, b []rune) bool {
	for i := range b {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var foldTransform = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldRunes lowercases and deaccents rune-by-rune so indexes line up with
// the original text.
func foldRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		r = unicode.ToLower(r)
		if r < 0x80 {
			out[i] = r
			continue
		}
		s, _, err := transform.String(foldTransform, string(r))
		if err != nil || s == "" {
			out[i] = r
			continue
		}
		out[i] = []rune(s)[0]
	}
	return out
}
