// Package app wires the configuration, term resolution, backend adapters,
// filters and report assembly into one pipeline run.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gazettewatch/gazettewatch/internal/dou"
	"github.com/gazettewatch/gazettewatch/internal/extvar"
	"github.com/gazettewatch/gazettewatch/internal/fetch"
	"github.com/gazettewatch/gazettewatch/internal/filter"
	"github.com/gazettewatch/gazettewatch/internal/gazette"
	"github.com/gazettewatch/gazettewatch/internal/inlabs"
	"github.com/gazettewatch/gazettewatch/internal/municipal"
	"github.com/gazettewatch/gazettewatch/internal/report"
	"github.com/gazettewatch/gazettewatch/internal/retry"
	"github.com/gazettewatch/gazettewatch/internal/terms"
)

// Report is the top-level output document: the reference date plus one block
// per configured sub-search, in configuration order.
type Report struct {
	Date     string         `json:"date"`
	Searches []report.Block `json:"searches"`
}

// App holds the resolved collaborators for one run.
type App struct {
	cfg      Config
	vars     extvar.Variables
	conns    extvar.Connections
	resolver *terms.Resolver
	retrier  *retry.Controller
	fetch    *fetch.Client

	// dbs caches open handles by connection id so a run opens each mirror
	// at most once.
	dbs map[string]*sql.DB
}

// New builds an App from validated configuration. Collaborator stores are
// chosen here; backends open lazily on first use.
func New(cfg Config) (*App, error) {
	a := &App{
		cfg:     cfg,
		retrier: &retry.Controller{},
		fetch:   &fetch.Client{UserAgent: "gazettewatch/1.0"},
		dbs:     map[string]*sql.DB{},
	}
	if cfg.VariablesPath != "" {
		a.vars = extvar.FileVariables{Path: cfg.VariablesPath}
	} else {
		a.vars = extvar.EnvVariables{Prefix: "GAZETTEWATCH_VAR_"}
	}
	if cfg.ConnectionsPath != "" {
		a.conns = extvar.FileConnections{Path: cfg.ConnectionsPath}
	}
	a.resolver = &terms.Resolver{
		Vars: a.vars,
		DB: func(ctx context.Context, connID string) (terms.RowQuerier, error) {
			db, err := a.openDB(connID)
			if err != nil {
				return nil, err
			}
			return extvar.SQLTabular{DB: db}, nil
		},
	}
	return a, nil
}

// Close releases any database handles opened during the run.
func (a *App) Close() {
	for id, db := range a.dbs {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Str("conn", id).Msg("closing database")
		}
	}
	a.dbs = map[string]*sql.DB{}
}

func (a *App) openDB(connID string) (*sql.DB, error) {
	if db, ok := a.dbs[connID]; ok {
		return db, nil
	}
	if a.conns == nil {
		return nil, fmt.Errorf("%w: connection %q requested but no connection store is configured", gazette.ErrConfig, connID)
	}
	conn, err := a.conns.Get(connID)
	if err != nil {
		return nil, err
	}
	db, err := extvar.Open(conn)
	if err != nil {
		return nil, err
	}
	a.dbs[connID] = db
	return db, nil
}

// searcher builds the adapter for one backend kind.
func (a *App) searcher(kind gazette.SourceKind) (gazette.Searcher, error) {
	switch kind {
	case gazette.SourceDOU:
		return &dou.Client{BaseURL: a.cfg.Sources.DOU.BaseURL, Fetch: a.fetch}, nil
	case gazette.SourceINLABS:
		connID := a.cfg.Sources.INLABS.Conn
		if connID == "" {
			return nil, fmt.Errorf("%w: inlabs source enabled without sources.inlabs.conn", gazette.ErrConfig)
		}
		db, err := a.openDB(connID)
		if err != nil {
			return nil, err
		}
		return &inlabs.Client{DB: db, Table: a.cfg.Sources.INLABS.Table}, nil
	case gazette.SourceMunicipal:
		return &municipal.Client{BaseURL: a.cfg.Sources.Municipal.BaseURL, Fetch: a.fetch}, nil
	}
	return nil, fmt.Errorf("%w: unknown source kind %v", gazette.ErrConfig, kind)
}

// Run executes every configured sub-search against its enabled backends and
// returns the assembled report. Exhausted retries on a single term skip that
// term and continue; configuration and permanent errors abort the run. An
// empty report is a valid outcome, not an error.
func (a *App) Run(ctx context.Context) (Report, error) {
	out := Report{Date: a.cfg.RefDate.Format(gazette.DateLayout)}
	for i, sc := range a.cfg.Searches {
		block, err := a.runSearch(ctx, sc)
		if err != nil {
			return Report{}, fmt.Errorf("search %d: %w", i, err)
		}
		out.Searches = append(out.Searches, block)
	}
	return out, nil
}

func (a *App) runSearch(ctx context.Context, sc SearchConfig) (report.Block, error) {
	cr, err := sc.Criteria()
	if err != nil {
		return report.Block{}, err
	}
	list, err := a.resolver.Resolve(ctx, terms.Source{
		Terms:    sc.Terms,
		Variable: sc.TermsVariable,
		Query:    sc.TermsQuery,
		Conn:     sc.TermsConn,
	})
	if err != nil {
		return report.Block{}, err
	}
	log.Info().Str("header", sc.Header).Int("terms", len(list.Terms)).Msg("running sub-search")

	var verifier *filter.Verifier
	if cr.IgnoreSignature {
		verifier = &filter.Verifier{Fetch: a.fetch}
	}

	var merged report.Grouped
	for _, kind := range cr.Sources {
		s, err := a.searcher(kind)
		if err != nil {
			return report.Block{}, err
		}
		perTerm, err := a.searchTerms(ctx, s, cr, list.Terms, verifier)
		if err != nil {
			return report.Block{}, err
		}
		grouped := report.Assemble(list.Terms, perTerm, list, cr.Departments)
		merged = report.Merge(merged, grouped)
	}
	return report.Block{Header: sc.Header, Departments: cr.Departments, Result: merged}, nil
}

// searchTerms runs one backend over the whole term list. HTTP-backed
// adapters get a jittered pause between consecutive terms; the SQL mirror
// does not need one.
func (a *App) searchTerms(ctx context.Context, s gazette.Searcher, cr gazette.Criteria, termList []string, verifier *filter.Verifier) (map[string][]gazette.ResultItem, error) {
	paced := s.Kind() != gazette.SourceINLABS
	perTerm := make(map[string][]gazette.ResultItem, len(termList))
	for i, term := range termList {
		if paced && i > 0 {
			if err := a.retrier.Pace(ctx); err != nil {
				return nil, err
			}
		}
		var items []gazette.ResultItem
		err := a.retrier.Do(ctx, func(ctx context.Context) error {
			var err error
			items, err = s.Search(ctx, cr, term, a.cfg.RefDate)
			return err
		})
		if err != nil {
			var ex *retry.ExhaustedError
			if errors.As(err, &ex) {
				log.Warn().Err(err).Str("term", term).Stringer("source", s.Kind()).
					Msg("retries exhausted, skipping term")
				continue
			}
			return nil, fmt.Errorf("source %v term %q: %w", s.Kind(), term, err)
		}
		items = filter.Apply(ctx, cr, term, items, verifier)
		log.Debug().Str("term", term).Stringer("source", s.Kind()).
			Int("results", len(items)).Msg("term searched")
		perTerm[term] = items
	}
	return perTerm, nil
}
