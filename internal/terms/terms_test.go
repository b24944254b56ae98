package terms

import (
	"context"
	"errors"
	"testing"
)

type fakeVars map[string]string

func (f fakeVars) Get(name string) (string, error) {
	if v, ok := f[name]; ok {
		return v, nil
	}
	return "", errors.New("variable not found")
}

type fakeDB [][]string

func (f fakeDB) QueryRows(_ context.Context, _ string) ([][]string, error) {
	return f, nil
}

func dbFunc(rows fakeDB) func(context.Context, string) (RowQuerier, error) {
	return func(context.Context, string) (RowQuerier, error) { return rows, nil }
}

func TestResolve_LiteralList(t *testing.T) {
	r := &Resolver{}
	got, err := r.Resolve(context.Background(), Source{Terms: []string{" LICITAÇÃO ", "dados abertos"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Terms) != 2 || got.Terms[0] != "LICITAÇÃO" || got.Terms[1] != "dados abertos" {
		t.Fatalf("unexpected terms: %v", got.Terms)
	}
	if got.Groups != nil {
		t.Fatalf("literal list must be ungrouped, got %v", got.Groups)
	}
}

func TestResolve_VariableJSONList(t *testing.T) {
	r := &Resolver{Vars: fakeVars{"termos": `["ANTONIO DE OLIVEIRA", "SILVA"]`}}
	got, err := r.Resolve(context.Background(), Source{Variable: "termos"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Terms) != 2 || got.Terms[1] != "SILVA" {
		t.Fatalf("unexpected terms: %v", got.Terms)
	}
}

func TestResolve_VariableNewlineFallback(t *testing.T) {
	r := &Resolver{Vars: fakeVars{"termos": "primeiro termo\n\nsegundo termo\n"}}
	got, err := r.Resolve(context.Background(), Source{Variable: "termos"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Terms) != 2 || got.Terms[0] != "primeiro termo" || got.Terms[1] != "segundo termo" {
		t.Fatalf("unexpected terms: %v", got.Terms)
	}
}

func TestResolve_VariableMissing(t *testing.T) {
	r := &Resolver{Vars: fakeVars{}}
	if _, err := r.Resolve(context.Background(), Source{Variable: "nope"}); err == nil {
		t.Fatal("expected error for missing variable")
	}
}

func TestResolve_QuerySingleColumnUngrouped(t *testing.T) {
	r := &Resolver{DB: dbFunc(fakeDB{{"ANTONIO DE OLIVEIRA"}, {"SILVA"}})}
	got, err := r.Resolve(context.Background(), Source{Query: "SELECT nome FROM nomes", Conn: "c1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Terms) != 2 {
		t.Fatalf("unexpected terms: %v", got.Terms)
	}
	if got.Grouped() {
		t.Fatal("single-column result must be ungrouped")
	}
}

func TestResolve_QueryTwoColumnsGrouped(t *testing.T) {
	r := &Resolver{DB: dbFunc(fakeDB{
		{"FULANO", "EPPGG"},
		{"BELTRANO", "EPPGG"},
		{"CICLANO", "ATI"},
	})}
	got, err := r.Resolve(context.Background(), Source{Query: "SELECT nome, cargo FROM nomes", Conn: "c1"})
	if err != nil {
		t.Fatal(err)
	}
	if !got.Grouped() {
		t.Fatal("two distinct group values must produce a group map")
	}
	if got.Groups["FULANO"] != "EPPGG" || got.Groups["CICLANO"] != "ATI" {
		t.Fatalf("unexpected group map: %v", got.Groups)
	}
}

func TestResolve_QuerySecondColumnSingleValueUngrouped(t *testing.T) {
	r := &Resolver{DB: dbFunc(fakeDB{{"A", "X"}, {"B", "X"}})}
	got, err := r.Resolve(context.Background(), Source{Query: "q", Conn: "c1"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Grouped() {
		t.Fatal("a single distinct group value is not a classification")
	}
}

func TestResolve_EmptySourceYieldsWildcard(t *testing.T) {
	r := &Resolver{}
	got, err := r.Resolve(context.Background(), Source{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Terms) != 1 || got.Terms[0] != Wildcard {
		t.Fatalf("empty source must resolve to the wildcard, got %v", got.Terms)
	}
}

func TestResolve_QueryNullAndEmptyCellsSkipped(t *testing.T) {
	r := &Resolver{DB: dbFunc(fakeDB{{""}, {"  "}, {"REAL"}})}
	got, err := r.Resolve(context.Background(), Source{Query: "q", Conn: "c1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Terms) != 1 || got.Terms[0] != "REAL" {
		t.Fatalf("unexpected terms: %v", got.Terms)
	}
}
