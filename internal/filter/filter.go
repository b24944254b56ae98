// Package filter holds the pure result filters applied between the adapter
// boundary and report grouping: signature exclusion, approximate-match
// rejection, department include/exclude, and publication-type include.
package filter

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gazettewatch/gazettewatch/internal/gazette"
	"github.com/gazettewatch/gazettewatch/internal/terms"
	"github.com/gazettewatch/gazettewatch/internal/textutil"
)

// IsSignature detects the backend quirk where a matched person's name is the
// document's signer rather than content about that person: such abstracts
// begin with the all-uppercase signature block.
func IsSignature(term, abstract string) bool {
	open := strings.Index(abstract, gazette.HighlightOpen)
	if open < 0 {
		return false
	}
	rest := abstract[open+len(gazette.HighlightOpen):]
	closeIdx := strings.Index(rest, gazette.HighlightClose)
	if closeIdx < 0 {
		return false
	}
	prior := abstract[:open]
	matched := rest[:closeIdx]

	head := prior + matched
	if head == "" || head != strings.ToUpper(head) {
		return false
	}

	plain := stripMarkers(abstract)
	normTerm := textutil.Normalize(term)
	if normTerm == "" {
		return false
	}
	if strings.HasPrefix(textutil.Normalize(plain), normTerm) {
		return true
	}
	// The signature block may carry a short prefix before the name; check
	// again with the prior text stripped.
	return strings.HasPrefix(textutil.Normalize(strings.TrimPrefix(plain, prior)), normTerm)
}

// ReallyMatched keeps only true substring matches: the normalized term must
// literally occur in the normalized abstract with highlight markers and
// truncation ellipses removed. Rejects backend fuzzy matches.
func ReallyMatched(term, abstract string) bool {
	plain := stripMarkers(abstract)
	plain = strings.ReplaceAll(plain, gazette.Ellipsis, "")
	return strings.Contains(textutil.Normalize(plain), textutil.Normalize(term))
}

func stripMarkers(s string) string {
	s = strings.ReplaceAll(s, gazette.HighlightOpen, "")
	return strings.ReplaceAll(s, gazette.HighlightClose, "")
}

// Departments applies the include and exclude department lists against the
// item's canonical hierarchy string (case-sensitive, as stored). Both checks
// use the same representation.
func Departments(items []gazette.ResultItem, include, exclude []string) []gazette.ResultItem {
	if len(include) == 0 && len(exclude) == 0 {
		return items
	}
	out := make([]gazette.ResultItem, 0, len(items))
	for _, it := range items {
		h := it.HierarchyString()
		if len(include) > 0 && !containsAny(h, include) {
			continue
		}
		if containsAny(h, exclude) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// PubTypes keeps only items carrying at least one of the configured
// publication-type labels.
func PubTypes(items []gazette.ResultItem, types []string) []gazette.ResultItem {
	if len(types) == 0 {
		return items
	}
	out := make([]gazette.ResultItem, 0, len(items))
	for _, it := range items {
		if hasAnyLabel(it.PubType, types) {
			out = append(out, it)
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnyLabel(labels, wanted []string) bool {
	for _, w := range wanted {
		for _, l := range labels {
			if l == w {
				return true
			}
		}
	}
	return false
}

// Apply runs the enabled filters in their fixed order over one term's
// results: signature exclusion, approximate-match rejection, departments,
// publication types. The wildcard term skips the term-based checks.
func Apply(ctx context.Context, c gazette.Criteria, term string, items []gazette.ResultItem, v *Verifier) []gazette.ResultItem {
	termBased := term != "" && term != terms.Wildcard
	out := make([]gazette.ResultItem, 0, len(items))
	for _, it := range items {
		if termBased && c.IgnoreSignature {
			if v.Confirm(ctx, term, it.Abstract, it.Href) {
				log.Debug().Str("term", term).Str("href", it.Href).Msg("dropping signature match")
				continue
			}
		}
		if termBased && c.ForceRematch && !ReallyMatched(term, it.Abstract) {
			log.Debug().Str("term", term).Str("href", it.Href).Msg("dropping approximate match")
			continue
		}
		out = append(out, it)
	}
	out = Departments(out, c.Departments, c.ExcludeDepartments)
	out = PubTypes(out, c.PubTypes)
	return out
}
