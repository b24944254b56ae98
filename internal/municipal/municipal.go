// Package municipal searches the municipal gazettes REST API. The municipal
// publication calendar runs one day behind the federal one, so searches are
// anchored on the day before the reference date.
package municipal

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gazettewatch/gazettewatch/internal/fetch"
	"github.com/gazettewatch/gazettewatch/internal/gazette"
	"github.com/gazettewatch/gazettewatch/internal/terms"
)

// DefaultBaseURL is the public municipal gazettes API.
const DefaultBaseURL = "https://queridodiario.ok.org.br/api"

const (
	defaultPageSize     = 10
	defaultExcerptSize  = 500
	defaultExcerptCount = 3
)

// Client implements gazette.Searcher over the municipal API.
type Client struct {
	BaseURL string
	Fetch   *fetch.Client
}

func (c *Client) Kind() gazette.SourceKind { return gazette.SourceMunicipal }

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return DefaultBaseURL
}

func (c *Client) fetcher() *fetch.Client {
	if c.Fetch != nil {
		return c.Fetch
	}
	return &fetch.Client{}
}

type response struct {
	TotalGazettes int          `json:"total_gazettes"`
	Gazettes      []gazetteRow `json:"gazettes"`
}

type gazetteRow struct {
	TerritoryID    string   `json:"territory_id"`
	TerritoryName  string   `json:"territory_name"`
	StateCode      string   `json:"state_code"`
	Date           string   `json:"date"`
	URL            string   `json:"url"`
	Excerpts       []string `json:"excerpts"`
	IsExtraEdition bool     `json:"is_extra_edition"`
}

// Search issues one GET for the term. Both ends of the published window are
// pinned to one day before the reference date.
func (c *Client) Search(ctx context.Context, cr gazette.Criteria, term string, ref time.Time) ([]gazette.ResultItem, error) {
	day := ref.AddDate(0, 0, -1).Format("2006-01-02")

	v := url.Values{}
	if term != "" && term != terms.Wildcard {
		q := term
		if cr.ExactMatch {
			q = `"` + term + `"`
		}
		v.Set("querystring", q)
	}
	v.Set("published_since", day)
	v.Set("published_until", day)
	v.Set("size", strconv.Itoa(pageSize(cr)))
	v.Set("excerpt_size", strconv.Itoa(orDefault(cr.ExcerptSize, defaultExcerptSize)))
	v.Set("number_of_excerpts", strconv.Itoa(orDefault(cr.ExcerptCount, defaultExcerptCount)))
	v.Set("pre_tags", gazette.HighlightOpen)
	v.Set("post_tags", gazette.HighlightClose)
	for _, t := range cr.Territories {
		v.Add("territory_ids", t)
	}

	var resp response
	if err := c.fetcher().GetJSON(ctx, c.baseURL()+"/gazettes?"+v.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("municipal search: %w", err)
	}

	out := make([]gazette.ResultItem, 0, len(resp.Gazettes))
	for _, g := range resp.Gazettes {
		item, ok := convert(cr, g)
		if !ok {
			log.Warn().Str("territory", g.TerritoryID).Msg("municipal: skipping malformed gazette entry")
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// pageSize widens the page to the territory count so one edition per
// municipality can come back in a single call.
func pageSize(cr gazette.Criteria) int {
	if n := len(cr.Territories); n > 1 {
		return n
	}
	return defaultPageSize
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func convert(cr gazette.Criteria, g gazetteRow) (gazette.ResultItem, bool) {
	if g.TerritoryName == "" || g.URL == "" || g.Date == "" {
		return gazette.ResultItem{}, false
	}
	date, err := time.Parse("2006-01-02", g.Date)
	if err != nil {
		return gazette.ResultItem{}, false
	}
	section := "Edição Ordinária"
	if g.IsExtraEdition {
		section = "Edição Extraordinária"
	}
	item := gazette.ResultItem{
		Section:  section,
		Title:    fmt.Sprintf("Município de %s - %s", g.TerritoryName, g.StateCode),
		Href:     g.URL,
		Abstract: joinExcerpts(cr, g.Excerpts),
		Date:     date.Format(gazette.DateLayout),
	}
	if item.Abstract == "" {
		item.Abstract = item.Title
	}
	return item, item.Valid()
}

// joinExcerpts renders the excerpt list: paragraph-wrapped for email-like
// destinations, newline-joined otherwise.
func joinExcerpts(cr gazette.Criteria, excerpts []string) string {
	trimmed := make([]string, 0, len(excerpts))
	for _, e := range excerpts {
		if s := strings.TrimSpace(e); s != "" {
			trimmed = append(trimmed, s)
		}
	}
	if len(trimmed) == 0 {
		return ""
	}
	if cr.ParagraphExcerpts {
		var b strings.Builder
		for _, e := range trimmed {
			b.WriteString("<p>")
			b.WriteString(e)
			b.WriteString("</p>")
		}
		return b.String()
	}
	return strings.Join(trimmed, "\n")
}
