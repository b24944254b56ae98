// Package dou searches the federal gazette's web search, a scraped HTML
// endpoint that embeds its JSON payload in a script tag. One Search call
// covers one term, paginating until the backend's reported last page.
package dou

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	"github.com/gazettewatch/gazettewatch/internal/fetch"
	"github.com/gazettewatch/gazettewatch/internal/gazette"
	"github.com/gazettewatch/gazettewatch/internal/terms"
)

// DefaultBaseURL is the public federal gazette search endpoint.
const DefaultBaseURL = "https://www.in.gov.br"

const (
	searchPath = "/consulta/-/buscar/dou"
	pageSize   = 20
	// retryDelay is the fixed wait before the adapter's single transient
	// retry; anything past that propagates to the retry controller.
	retryDelay = 5 * time.Second
)

// Client implements gazette.Searcher over the scraped web search.
type Client struct {
	BaseURL string
	Fetch   *fetch.Client
}

func (c *Client) Kind() gazette.SourceKind { return gazette.SourceDOU }

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

// Search runs one term's search, following the page cursor until the
// reported last page. Rows with missing mandatory fields are logged and
// skipped, never fatal.
func (c *Client) Search(ctx context.Context, cr gazette.Criteria, term string, ref time.Time) ([]gazette.ResultItem, error) {
	q := buildQuery(cr, term)
	from := cr.Window.Start(ref)

	var out []gazette.ResultItem
	page := 1
	var lastID int64
	var lastSort string
	client := *c.fetcher()
	client.MaxAttempts = 2
	if client.RetryDelay == 0 {
		client.RetryDelay = retryDelay
	}
	for {
		u := c.searchURL(q, cr.Sections, from, ref, page, lastID, lastSort)
		body, err := client.Get(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("dou search page %d: %w", page, err)
		}
		payload, err := parsePayload(body)
		if err != nil {
			return nil, fmt.Errorf("dou search page %d: %w", page, err)
		}
		for _, raw := range payload.JSONArray {
			item, ok := convert(c.baseURL(), raw)
			if !ok {
				log.Warn().Str("title", raw.Title).Msg("dou: skipping malformed result row")
				continue
			}
			out = append(out, item)
		}
		if page >= payload.TotalPages || len(payload.JSONArray) == 0 {
			break
		}
		last := payload.JSONArray[len(payload.JSONArray)-1]
		lastID, lastSort = last.ClassPK, last.SortValue
		page++
	}
	return out, nil
}

// buildQuery renders the q parameter: exact mode wraps the term in quotes,
// otherwise a field-scope tag prefixes the raw term. The wildcard term skips
// query construction entirely.
func buildQuery(cr gazette.Criteria, term string) string {
	if term == "" || term == terms.Wildcard {
		return ""
	}
	if cr.ExactMatch {
		return `"` + term + `"`
	}
	switch cr.Scope {
	case gazette.ScopeTitle:
		return "titulo-" + term
	case gazette.ScopeBody:
		return "conteudo-" + term
	}
	return term
}

func (c *Client) searchURL(q string, sections []string, from, to time.Time, page int, lastID int64, lastSort string) string {
	v := url.Values{}
	if q != "" {
		v.Set("q", q)
	}
	for _, s := range sections {
		v.Add("s", s)
	}
	v.Set("exactDate", "personalizado")
	v.Set("publishFrom", from.Format("02-01-2006"))
	v.Set("publishTo", to.Format("02-01-2006"))
	v.Set("delta", strconv.Itoa(pageSize))
	v.Set("currentPage", strconv.Itoa(page))
	if page > 1 {
		v.Set("newPage", strconv.Itoa(page))
		v.Set("lastItemId", strconv.FormatInt(lastID, 10))
		v.Set("lastSortValue", lastSort)
	}
	return c.baseURL() + searchPath + "?" + v.Encode()
}

type payload struct {
	JSONArray  []douItem `json:"jsonArray"`
	TotalPages int       `json:"totalPages"`
}

type douItem struct {
	PubName       string   `json:"pubName"`
	URLTitle      string   `json:"urlTitle"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	PubDate       string   `json:"pubDate"`
	ArtType       string   `json:"artType"`
	HierarchyList []string `json:"hierarchyList"`
	ClassPK       int64    `json:"classPK"`
	SortValue     string   `json:"sortValue"`
}

var errNoPayload = errors.New("result payload script not found")

// parsePayload digs the JSON search payload out of the page's
// <script id="params"> tag.
func parsePayload(body []byte) (*payload, error) {
	z := html.NewTokenizer(strings.NewReader(string(body)))
	inParams := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return nil, errNoPayload
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "script" {
				continue
			}
			inParams = false
			for hasAttr {
				var k, v []byte
				k, v, hasAttr = z.TagAttr()
				if string(k) == "id" && string(v) == "params" {
					inParams = true
				}
			}
		case html.TextToken:
			if !inParams {
				continue
			}
			var p payload
			if err := json.Unmarshal(z.Text(), &p); err != nil {
				return nil, fmt.Errorf("malformed payload: %w", err)
			}
			return &p, nil
		}
	}
}

func convert(base string, raw douItem) (gazette.ResultItem, bool) {
	if raw.Title == "" || raw.URLTitle == "" || raw.PubDate == "" {
		return gazette.ResultItem{}, false
	}
	abstract := convertHighlights(raw.Content)
	if abstract == "" {
		abstract = raw.Title
	}
	item := gazette.ResultItem{
		Section:   sectionLabel(raw.PubName),
		Title:     raw.Title,
		Href:      base + "/web/dou/-/" + raw.URLTitle,
		Abstract:  abstract,
		Date:      raw.PubDate,
		Hierarchy: raw.HierarchyList,
	}
	if raw.ArtType != "" {
		item.PubType = []string{raw.ArtType}
	}
	return item, item.Valid()
}
