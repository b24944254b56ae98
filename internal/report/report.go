// Package report assembles filtered per-term results into the nested
// {group → term → department → [items]} structure handed to the
// notification layer, and merges reports across backends.
package report

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/gazettewatch/gazettewatch/internal/gazette"
	"github.com/gazettewatch/gazettewatch/internal/terms"
)

// Sentinel keys used when no grouping classification or department filter
// is configured.
const (
	SingleGroup      = "single_group"
	SingleDepartment = "single_department"
)

// DepartmentItems is the leaf level: one department bucket's ordered items.
type DepartmentItems struct {
	Name  string
	Items []gazette.ResultItem
}

// TermResults holds one term's department buckets.
type TermResults struct {
	Term        string
	Departments []DepartmentItems
}

// Group is one classification bucket with its terms in insertion order.
type Group struct {
	Name  string
	Terms []TermResults
}

// Grouped is the full nested report for one logical sub-search. Order is
// meaningful at every level: groups sorted alphabetically (or the single
// sentinel), terms in search order, items in backend-return order.
type Grouped []Group

// Count returns the total number of items across all nesting levels.
func (g Grouped) Count() int {
	n := 0
	for _, grp := range g {
		for _, t := range grp.Terms {
			for _, d := range t.Departments {
				n += len(d.Items)
			}
		}
	}
	return n
}

// Empty reports "no matches", which is a valid outcome distinct from a
// failed search.
func (g Grouped) Empty() bool { return g.Count() == 0 }

// MarshalJSON renders the wire contract the notification renderer consumes:
// nested objects keyed group → term → department, in report order.
func (g Grouped) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for gi, grp := range g {
		if gi > 0 {
			b.WriteByte(',')
		}
		writeKey(&b, grp.Name)
		b.WriteByte('{')
		for ti, t := range grp.Terms {
			if ti > 0 {
				b.WriteByte(',')
			}
			writeKey(&b, t.Term)
			b.WriteByte('{')
			for di, d := range t.Departments {
				if di > 0 {
					b.WriteByte(',')
				}
				writeKey(&b, d.Name)
				items, err := json.Marshal(d.Items)
				if err != nil {
					return nil, err
				}
				b.Write(items)
			}
			b.WriteByte('}')
		}
		b.WriteByte('}')
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func writeKey(b *bytes.Buffer, k string) {
	kb, _ := json.Marshal(k)
	b.Write(kb)
	b.WriteByte(':')
}

// Block is one independent sub-search's contribution to a notification:
// header, echo of the department filter, and the grouped result. Blocks are
// concatenated across sub-searches, never merged.
type Block struct {
	Header      string   `json:"header,omitempty"`
	Departments []string `json:"department,omitempty"`
	Result      Grouped  `json:"result"`
}

// Assemble builds the Grouped report for one sub-search and one backend.
// perTerm maps each searched term to its filtered items; order preserves the
// search order. departments is the configured include list used to bucket
// items; an item lands in every department bucket whose string appears in
// its hierarchy.
func Assemble(order []string, perTerm map[string][]gazette.ResultItem, list terms.List, departments []string) Grouped {
	byGroup := map[string]*Group{}
	var groupOrder []string

	groupFor := func(term string) string {
		if !list.Grouped() {
			return SingleGroup
		}
		if g, ok := list.Groups[term]; ok && g != "" {
			return g
		}
		return SingleGroup
	}

	for _, term := range order {
		items := perTerm[term]
		buckets := bucketByDepartment(items, departments)
		if len(buckets) == 0 {
			continue
		}
		name := groupFor(term)
		grp, ok := byGroup[name]
		if !ok {
			grp = &Group{Name: name}
			byGroup[name] = grp
			groupOrder = append(groupOrder, name)
		}
		grp.Terms = append(grp.Terms, TermResults{Term: term, Departments: buckets})
	}

	if list.Grouped() {
		sort.Strings(groupOrder)
	}
	out := make(Grouped, 0, len(groupOrder))
	for _, name := range groupOrder {
		out = append(out, *byGroup[name])
	}
	return out
}

// bucketByDepartment partitions items by which configured department string
// appears in their hierarchy. An item may land in several buckets. Without a
// configured filter everything falls into the single-department sentinel.
// Abstracts get their highlight markers balanced here, at the last stage
// before the report leaves the pipeline.
func bucketByDepartment(items []gazette.ResultItem, departments []string) []DepartmentItems {
	if len(items) == 0 {
		return nil
	}
	if len(departments) == 0 {
		out := make([]gazette.ResultItem, len(items))
		for i, it := range items {
			it.Abstract = BalanceMarkers(it.Abstract)
			out[i] = it
		}
		return []DepartmentItems{{Name: SingleDepartment, Items: out}}
	}
	var buckets []DepartmentItems
	idx := map[string]int{}
	for _, dep := range departments {
		idx[dep] = -1
	}
	for _, it := range items {
		h := it.HierarchyString()
		it.Abstract = BalanceMarkers(it.Abstract)
		for _, dep := range departments {
			if dep == "" || !strings.Contains(h, dep) {
				continue
			}
			i := idx[dep]
			if i < 0 {
				buckets = append(buckets, DepartmentItems{Name: dep})
				i = len(buckets) - 1
				idx[dep] = i
			}
			buckets[i].Items = append(buckets[i].Items, it)
		}
	}
	return buckets
}

// Merge combines two grouped reports key-wise at every nesting level, with
// item-list concatenation at the leaves. The merge is additive, never
// deduplicating: the same document returned by two backends appears twice.
func Merge(a, b Grouped) Grouped {
	out := make(Grouped, len(a))
	copy(out, a)
	for _, grp := range b {
		i := indexGroup(out, grp.Name)
		if i < 0 {
			out = append(out, grp)
			continue
		}
		out[i].Terms = mergeTerms(out[i].Terms, grp.Terms)
	}
	return out
}

func mergeTerms(a, b []TermResults) []TermResults {
	out := make([]TermResults, len(a))
	copy(out, a)
	for _, t := range b {
		i := -1
		for j := range out {
			if out[j].Term == t.Term {
				i = j
				break
			}
		}
		if i < 0 {
			out = append(out, t)
			continue
		}
		out[i].Departments = mergeDepartments(out[i].Departments, t.Departments)
	}
	return out
}

func mergeDepartments(a, b []DepartmentItems) []DepartmentItems {
	out := make([]DepartmentItems, len(a))
	copy(out, a)
	for _, d := range b {
		i := -1
		for j := range out {
			if out[j].Name == d.Name {
				i = j
				break
			}
		}
		if i < 0 {
			out = append(out, d)
			continue
		}
		merged := make([]gazette.ResultItem, 0, len(out[i].Items)+len(d.Items))
		merged = append(merged, out[i].Items...)
		merged = append(merged, d.Items...)
		out[i].Items = merged
	}
	return out
}

func indexGroup(g Grouped, name string) int {
	for i := range g {
		if g[i].Name == name {
			return i
		}
	}
	return -1
}

// BalanceMarkers repairs unbalanced highlight placeholders: orphan close
// markers are dropped and missing closes appended, so every open marker has
// a matching close before the abstract leaves the grouping stage.
func BalanceMarkers(s string) string {
	if !strings.Contains(s, gazette.HighlightOpen) && !strings.Contains(s, gazette.HighlightClose) {
		return s
	}
	var b strings.Builder
	depth := 0
	for len(s) > 0 {
		open := strings.Index(s, gazette.HighlightOpen)
		closeIdx := strings.Index(s, gazette.HighlightClose)
		switch {
		case closeIdx >= 0 && (open < 0 || closeIdx < open):
			b.WriteString(s[:closeIdx])
			if depth > 0 {
				b.WriteString(gazette.HighlightClose)
				depth--
			}
			s = s[closeIdx+len(gazette.HighlightClose):]
		case open >= 0:
			b.WriteString(s[:open])
			b.WriteString(gazette.HighlightOpen)
			depth++
			s = s[open+len(gazette.HighlightOpen):]
		default:
			b.WriteString(s)
			s = ""
		}
	}
	for ; depth > 0; depth-- {
		b.WriteString(gazette.HighlightClose)
	}
	return b.String()
}
