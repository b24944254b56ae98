package filter

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gazettewatch/gazettewatch/internal/fetch"
	"github.com/gazettewatch/gazettewatch/internal/textutil"
)

// verifyHead is how far into the normalized document a single term
// occurrence still counts as part of the signature block.
const verifyHead = 100

// Verifier optionally re-fetches the full document behind a heuristic
// signature hit and counts term occurrences to confirm or overturn the
// classification. A nil Verifier, or one without a fetch client, uses the
// basic heuristic only.
type Verifier struct {
	Fetch *fetch.Client
}

// Confirm reports whether the item should be excluded as a signature match.
//
// The basic heuristic decides first; a positive result is then verified
// against the full document when one is reachable. Zero occurrences of the
// term mean the abstract is unreliable and the item is conservatively kept;
// multiple occurrences mean a real content match elsewhere in the document;
// exactly one occurrence inside the opening block confirms the signature.
// Any fetch failure falls back to the heuristic result.
func (v *Verifier) Confirm(ctx context.Context, term, abstract, href string) bool {
	basic := IsSignature(term, abstract)
	if !basic {
		return false
	}
	if v == nil || v.Fetch == nil || href == "" {
		return basic
	}
	body, err := v.Fetch.Get(ctx, href)
	if err != nil {
		log.Debug().Err(err).Str("href", href).Msg("signature verification fetch failed, keeping heuristic result")
		return basic
	}
	text := textutil.Normalize(textutil.StripMarkup(string(body)))
	normTerm := textutil.Normalize(term)
	switch n := strings.Count(text, normTerm); {
	case n == 0:
		return false
	case n > 1:
		return false
	}
	return strings.Index(text, normTerm) < verifyHead
}
