// Package inlabs searches the SQL full-text mirror of the federal gazette.
// Filters compile to predicates over a fixed allow-listed set of columns;
// text matching is accent-insensitive, case-insensitive and whole-word via
// the boolean filter grammar in internal/query.
package inlabs

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/gazettewatch/gazettewatch/internal/gazette"
	"github.com/gazettewatch/gazettewatch/internal/query"
	"github.com/gazettewatch/gazettewatch/internal/terms"
)

// DefaultTable is the mirror's article table.
const DefaultTable = "dou_inlabs.article_raw"

// extraEditionSuffix marks extra-edition publication names in the mirror.
// Extra editions are sometimes attributed to the previous day, so every
// search re-runs one day back against the suffixed publication names.
const extraEditionSuffix = "E"

// Client implements gazette.Searcher over the SQL mirror. The database is
// not rate-limited, so no pacing applies between term searches.
type Client struct {
	DB    *sql.DB
	Table string
}

func (c *Client) Kind() gazette.SourceKind { return gazette.SourceINLABS }

func (c *Client) table() string {
	if c.Table != "" {
		return c.Table
	}
	return DefaultTable
}

type row struct {
	PubName     string
	Identifica  string
	Texto       string
	Ementa      string
	PDFPage     string
	PubDate     time.Time
	ArtCategory string
	ArtType     string
}

// Search runs the primary query plus the day-shifted extra-edition query and
// unions both result sets. The two queries are independent; they run
// sequentially here to keep the single-threaded resource model.
func (c *Client) Search(ctx context.Context, cr gazette.Criteria, term string, ref time.Time) ([]gazette.ResultItem, error) {
	node, err := query.Parse(termExpression(term))
	if err != nil {
		return nil, fmt.Errorf("%w: term filter %q: %v", gazette.ErrConfig, term, err)
	}

	primary, err := c.run(ctx, cr, node, ref, false)
	if err != nil {
		return nil, err
	}
	extra, err := c.run(ctx, cr, node, ref.AddDate(0, 0, -1), true)
	if err != nil {
		return nil, err
	}

	rows := append(primary, extra...)
	lits := query.Literals(node)
	out := make([]gazette.ResultItem, 0, len(rows))
	for _, r := range rows {
		item, ok := convert(cr, r, lits)
		if !ok {
			log.Debug().Str("pubname", r.PubName).Msg("inlabs: dropping row without title field")
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// termExpression returns the grammar input for a term; the wildcard term
// carries no text filter at all.
func termExpression(term string) string {
	if term == terms.Wildcard {
		return ""
	}
	return term
}

func (c *Client) run(ctx context.Context, cr gazette.Criteria, node *query.Node, ref time.Time, extraEdition bool) ([]row, error) {
	q, args := c.buildQuery(cr, node, ref, extraEdition)
	rows, err := c.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("inlabs query: %w", err)
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		var r row
		var identifica, texto, ementa, pdfpage, artcategory, arttype sql.NullString
		if err := rows.Scan(&r.PubName, &identifica, &texto, &ementa, &pdfpage, &r.PubDate, &artcategory, &arttype); err != nil {
			log.Warn().Err(err).Msg("inlabs: dropping unscannable row")
			continue
		}
		r.Identifica = identifica.String
		r.Texto = texto.String
		r.Ementa = ementa.String
		r.PDFPage = pdfpage.String
		r.ArtCategory = artcategory.String
		r.ArtType = arttype.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// buildQuery renders the SELECT for one day window. All values travel as
// bound arguments; the only interpolated identifiers are the table name and
// the allow-listed column names.
func (c *Client) buildQuery(cr gazette.Criteria, node *query.Node, ref time.Time, extraEdition bool) (string, []any) {
	var args []any
	var conds []string

	args = append(args, cr.Window.Start(ref).Format("2006-01-02"))
	from := len(args)
	args = append(args, ref.Format("2006-01-02"))
	conds = append(conds, fmt.Sprintf("pubdate BETWEEN $%d::date AND $%d::date", from, len(args)))

	if names := pubNames(cr.Sections, extraEdition); len(names) > 0 {
		args = append(args, pq.Array(names))
		conds = append(conds, fmt.Sprintf("pubname = ANY($%d)", len(args)))
	} else if extraEdition {
		args = append(args, "%"+extraEditionSuffix)
		conds = append(conds, fmt.Sprintf("pubname LIKE $%d", len(args)))
	}

	if node != nil {
		col := "texto"
		if cr.Scope == gazette.ScopeTitle {
			col = "identifica"
		}
		conds = append(conds, query.SQL(node, col, &args))
	}

	if len(cr.PubTypes) > 0 {
		args = append(args, pq.Array(cr.PubTypes))
		conds = append(conds, fmt.Sprintf("arttype = ANY($%d)", len(args)))
	}

	for _, dep := range cr.Departments {
		args = append(args, "%"+dep+"%")
		conds = append(conds, fmt.Sprintf("artcategory LIKE $%d", len(args)))
		// Include is OR-semantics across departments; fold the LIKEs.
	}
	if n := len(cr.Departments); n > 1 {
		folded := "(" + strings.Join(conds[len(conds)-n:], " OR ") + ")"
		conds = append(conds[:len(conds)-n], folded)
	}

	q := fmt.Sprintf(
		"SELECT pubname, identifica, texto, ementa, pdfpage, pubdate, artcategory, arttype FROM %s WHERE %s ORDER BY pubdate, identifica",
		c.table(), strings.Join(conds, " AND "))
	return q, args
}

// pubNames maps configured section codes to mirror publication names,
// optionally suffixed for the extra-edition pass.
func pubNames(sections []string, extraEdition bool) []string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		code := strings.ToUpper(strings.TrimSpace(s))
		if code == "" {
			continue
		}
		if extraEdition {
			code += extraEditionSuffix
		}
		out = append(out, code)
	}
	return out
}

func convert(cr gazette.Criteria, r row, lits []string) (gazette.ResultItem, bool) {
	// A row without the title field is not a real publication entry.
	if strings.TrimSpace(r.Identifica) == "" {
		return gazette.ResultItem{}, false
	}
	item := gazette.ResultItem{
		Section:  sectionLabel(r.PubName),
		Title:    strings.TrimSpace(r.Identifica),
		Href:     r.PDFPage,
		Abstract: buildAbstract(cr, r, lits),
		Date:     r.PubDate.Format(gazette.DateLayout),
	}
	if cat := strings.TrimSpace(r.ArtCategory); cat != "" {
		for _, part := range strings.Split(cat, "/") {
			if p := strings.TrimSpace(part); p != "" {
				item.Hierarchy = append(item.Hierarchy, p)
			}
		}
	}
	if t := strings.TrimSpace(r.ArtType); t != "" {
		item.PubType = []string{t}
	}
	if item.Href == "" {
		item.Href = "inlabs://" + r.PubName + "/" + item.Title
	}
	if item.Abstract == "" {
		item.Abstract = item.Title
	}
	return item, item.Valid()
}

// sectionLabel renders mirror publication names ("DO1", "DO2E") as the
// human-readable section labels used everywhere else.
func sectionLabel(pubName string) string {
	code := strings.ToUpper(strings.TrimSpace(pubName))
	if len(code) < 3 || !strings.HasPrefix(code, "DO") {
		if code == "" {
			return "DOU"
		}
		return code
	}
	label := "DOU - Seção " + code[2:3]
	switch {
	case strings.HasSuffix(code, "E") && len(code) > 3:
		label += " - Edição Extra"
	case strings.HasSuffix(code, "S") && len(code) > 3:
		label += " - Edição Suplementar"
	}
	return label
}
