// Package terms resolves configured term sources into the flat ordered term
// list the search pipeline iterates over, optionally carrying a term→group
// classification used by report grouping.
package terms

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gazettewatch/gazettewatch/internal/gazette"
)

// Wildcard is the reserved term meaning "all publications". An empty term
// source resolves to it; adapters skip query-string construction for it and
// rely solely on section/date/department/type filters.
const Wildcard = "all-publications"

// Source describes where the term list comes from. Exactly one of the three
// shapes is expected: a literal list, a configuration-store variable name, or
// a SQL query against a configured connection.
type Source struct {
	Terms    []string
	Variable string
	Query    string
	Conn     string
}

// List is the resolved term list. Groups maps term to group name and is nil
// when the source carried no usable classification.
type List struct {
	Terms  []string
	Groups map[string]string
}

// Grouped reports whether the list carries a classification with more than
// one distinct group, which is what report grouping keys on.
func (l List) Grouped() bool {
	if len(l.Groups) == 0 {
		return false
	}
	seen := map[string]struct{}{}
	for _, g := range l.Groups {
		seen[g] = struct{}{}
		if len(seen) > 1 {
			return true
		}
	}
	return false
}

// VariableStore looks up a named value in the external configuration store.
type VariableStore interface {
	Get(name string) (string, error)
}

// RowQuerier executes a SQL query and returns its rows as string cells.
// NULL cells come back as empty strings.
type RowQuerier interface {
	QueryRows(ctx context.Context, query string) ([][]string, error)
}

// Resolver turns a Source into a List using the external collaborators it
// needs. Both collaborators are optional; resolving a source shape whose
// collaborator is missing is a configuration error.
type Resolver struct {
	Vars VariableStore
	DB   func(ctx context.Context, connID string) (RowQuerier, error)
}

// Resolve produces the flat ordered term list for one sub-search.
func (r *Resolver) Resolve(ctx context.Context, src Source) (List, error) {
	switch {
	case len(src.Terms) > 0:
		return List{Terms: trimAll(src.Terms)}, nil
	case src.Variable != "":
		return r.fromVariable(src.Variable)
	case src.Query != "":
		return r.fromQuery(ctx, src)
	}
	// Nothing configured: match everything.
	return List{Terms: []string{Wildcard}}, nil
}

func (r *Resolver) fromVariable(name string) (List, error) {
	if r.Vars == nil {
		return List{}, fmt.Errorf("%w: term source references variable %q but no variable store is configured", gazette.ErrConfig, name)
	}
	raw, err := r.Vars.Get(name)
	if err != nil {
		return List{}, fmt.Errorf("resolving term variable %q: %w", name, err)
	}
	// Structured list first, newline-split text as fallback.
	var parsed []string
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		return List{Terms: trimAll(parsed)}, nil
	}
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			lines = append(lines, s)
		}
	}
	if len(lines) == 0 {
		return List{Terms: []string{Wildcard}}, nil
	}
	return List{Terms: lines}, nil
}

func (r *Resolver) fromQuery(ctx context.Context, src Source) (List, error) {
	if r.DB == nil {
		return List{}, fmt.Errorf("%w: term source uses a query but no database collaborator is configured", gazette.ErrConfig)
	}
	q, err := r.DB(ctx, src.Conn)
	if err != nil {
		return List{}, err
	}
	rows, err := q.QueryRows(ctx, src.Query)
	if err != nil {
		return List{}, fmt.Errorf("term query: %w", err)
	}
	if len(rows) == 0 {
		return List{Terms: []string{Wildcard}}, nil
	}
	list := List{Terms: make([]string, 0, len(rows))}
	groups := map[string]string{}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		term := strings.TrimSpace(row[0])
		if term == "" {
			continue
		}
		list.Terms = append(list.Terms, term)
		if len(row) > 1 {
			groups[term] = strings.TrimSpace(row[1])
		}
	}
	if len(list.Terms) == 0 {
		return List{Terms: []string{Wildcard}}, nil
	}
	// A second column only counts as a classification when it partitions
	// the terms into more than one group.
	if distinctValues(groups) > 1 {
		list.Groups = groups
	}
	return list, nil
}

func distinctValues(m map[string]string) int {
	seen := map[string]struct{}{}
	for _, v := range m {
		seen[v] = struct{}{}
	}
	return len(seen)
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
