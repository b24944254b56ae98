package gazette

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Highlight placeholder pair delimiting matched spans inside an abstract.
// Every adapter emits these instead of its backend's own markup; downstream
// renderers translate them to destination-specific markup.
const (
	HighlightOpen  = "<%%>"
	HighlightClose = "</%%>"
)

// Ellipsis marks a truncated side of a trimmed excerpt.
const Ellipsis = "(...)"

// DateLayout is the publication date format used in every ResultItem.
const DateLayout = "02/01/2006"

// ErrConfig marks configuration problems (missing required field, malformed
// term source, unsupported connection kind). Config errors fail fast and are
// never retried.
var ErrConfig = errors.New("configuration error")

// SourceKind identifies a search backend. The set is closed: adapters are
// dispatched through the Searcher interface, not string-keyed lookup tables.
type SourceKind int

const (
	// SourceDOU is the scraped federal gazette web search.
	SourceDOU SourceKind = iota
	// SourceINLABS is the SQL full-text mirror of the federal gazette.
	SourceINLABS
	// SourceMunicipal is the municipal gazettes REST API.
	SourceMunicipal
)

func (k SourceKind) String() string {
	switch k {
	case SourceDOU:
		return "dou"
	case SourceINLABS:
		return "inlabs"
	case SourceMunicipal:
		return "municipal"
	}
	return fmt.Sprintf("sourcekind(%d)", int(k))
}

// ParseSourceKind maps a configured source name to its SourceKind.
func ParseSourceKind(s string) (SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dou":
		return SourceDOU, nil
	case "inlabs":
		return SourceINLABS, nil
	case "municipal", "qd":
		return SourceMunicipal, nil
	}
	return 0, fmt.Errorf("%w: unknown source %q", ErrConfig, s)
}

// DateWindow selects how far back from the reference date a search reaches.
type DateWindow int

const (
	WindowDay DateWindow = iota
	WindowWeek
	WindowMonth
	WindowYear
)

// ParseDateWindow maps a configured window name to its DateWindow.
func ParseDateWindow(s string) (DateWindow, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "day", "dia":
		return WindowDay, nil
	case "week", "semana":
		return WindowWeek, nil
	case "month", "mes":
		return WindowMonth, nil
	case "year", "ano":
		return WindowYear, nil
	}
	return 0, fmt.Errorf("%w: unknown date window %q", ErrConfig, s)
}

// Start computes the from-date for a search anchored on ref.
func (w DateWindow) Start(ref time.Time) time.Time {
	switch w {
	case WindowWeek:
		return ref.AddDate(0, 0, -6)
	case WindowMonth:
		// Anchor on the same day-of-month one month prior, then take one
		// extra day so the window covers the whole anchor day.
		return ref.AddDate(0, -1, 0).AddDate(0, 0, -1)
	case WindowYear:
		return ref.AddDate(0, 0, -364)
	}
	return ref
}

// FieldScope restricts which document fields a term is matched against.
type FieldScope int

const (
	ScopeAll FieldScope = iota
	ScopeTitle
	ScopeBody
)

// ParseFieldScope maps a configured scope name to its FieldScope.
func ParseFieldScope(s string) (FieldScope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "tudo":
		return ScopeAll, nil
	case "title", "titulo":
		return ScopeTitle, nil
	case "body", "conteudo":
		return ScopeBody, nil
	}
	return 0, fmt.Errorf("%w: unknown field scope %q", ErrConfig, s)
}

// Criteria describes one logical sub-search. It is built once per run from
// external configuration and stays immutable for the run's duration.
type Criteria struct {
	Sources  []SourceKind
	Sections []string
	Window   DateWindow
	Scope    FieldScope

	// ExactMatch wraps the term in exact-phrase quoting where the backend
	// supports it; otherwise matching is substring.
	ExactMatch bool
	// IgnoreSignature drops items whose match is the signing official's
	// name block rather than substantive content.
	IgnoreSignature bool
	// ForceRematch re-checks every backend hit with a literal normalized
	// substring match, rejecting approximate matches.
	ForceRematch bool

	Departments        []string
	ExcludeDepartments []string
	PubTypes           []string

	// Municipal-only knobs.
	Territories  []string
	ExcerptSize  int
	ExcerptCount int

	// FullText emits the complete document text instead of an excerpt.
	FullText bool
	// UseSummary replaces the excerpt with the document's summary field
	// when the backend provides one.
	UseSummary bool
	// ParagraphExcerpts joins multiple excerpts with paragraph wrapping
	// (for email-like destinations) instead of newlines.
	ParagraphExcerpts bool
}

// ResultItem is the canonical normalized search hit produced by every
// adapter. Section, Title, Href, Abstract and Date are always non-empty past
// the adapter boundary; Abstract carries balanced highlight placeholders.
type ResultItem struct {
	Section  string `json:"section"`
	Title    string `json:"title"`
	Href     string `json:"href"`
	Abstract string `json:"abstract"`
	// Date is the publication date as dd/mm/yyyy.
	Date string `json:"date"`
	// Hierarchy is the ordered list of organizational unit names the
	// document is attributed to, used by the department filter.
	Hierarchy []string `json:"hierarchy,omitempty"`
	// PubType lists publication-type labels, used by the type filter.
	PubType []string `json:"pub_type,omitempty"`
}

// HierarchyString renders the attribution hierarchy the way filters match
// against it: unit names joined by " > " in stored order.
func (it ResultItem) HierarchyString() string {
	return strings.Join(it.Hierarchy, " > ")
}

// Valid reports whether the item satisfies the adapter-boundary invariant.
func (it ResultItem) Valid() bool {
	return it.Section != "" && it.Title != "" && it.Href != "" &&
		it.Abstract != "" && it.Date != ""
}

// Searcher is the capability interface every backend adapter implements:
// one call per term, results already converted to the canonical shape.
type Searcher interface {
	Search(ctx context.Context, c Criteria, term string, ref time.Time) ([]ResultItem, error)
	Kind() SourceKind
}
