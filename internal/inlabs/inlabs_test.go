package inlabs

import (
	"strings"
	"testing"
	"time"

	"github.com/gazettewatch/gazettewatch/internal/gazette"
	"github.com/gazettewatch/gazettewatch/internal/query"
)

func mustParse(t *testing.T, expr string) *query.Node {
	t.Helper()
	n, err := query.Parse(expr)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestBuildQuery_TermAndDateRange(t *testing.T) {
	c := &Client{}
	ref := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	node := mustParse(t, "dados abertos")
	q, args := c.buildQuery(gazette.Criteria{}, node, ref, false)

	if !strings.Contains(q, "FROM "+DefaultTable) {
		t.Fatalf("missing table: %s", q)
	}
	if !strings.Contains(q, "pubdate BETWEEN $1::date AND $2::date") {
		t.Fatalf("missing date range: %s", q)
	}
	if args[0] != "2024-09-02" || args[1] != "2024-09-02" {
		t.Fatalf("day window must span the reference date only: %v", args)
	}
	if !strings.Contains(q, `unaccent(texto) ~* ('\m' || unaccent($3) || '\M')`) {
		t.Fatalf("term must compile to a whole-word match on texto: %s", q)
	}
}

func TestBuildQuery_TitleScope(t *testing.T) {
	c := &Client{}
	node := mustParse(t, "portaria")
	q, _ := c.buildQuery(gazette.Criteria{Scope: gazette.ScopeTitle}, node, time.Now(), false)
	if !strings.Contains(q, "unaccent(identifica)") {
		t.Fatalf("title scope must target identifica: %s", q)
	}
}

func TestBuildQuery_GrammarOperators(t *testing.T) {
	c := &Client{}
	node := mustParse(t, "term1 & term2 ! term3")
	q, args := c.buildQuery(gazette.Criteria{}, node, time.Now(), false)
	if len(args) != 5 { // 2 dates + 3 terms
		t.Fatalf("unexpected args: %v", args)
	}
	if !strings.Contains(q, "NOT unaccent(texto)") {
		t.Fatalf("negated term missing: %s", q)
	}
}

func TestBuildQuery_ExtraEditionPass(t *testing.T) {
	c := &Client{}
	node := mustParse(t, "x")
	ref := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	q, args := c.buildQuery(gazette.Criteria{Sections: []string{"do1"}}, node, ref.AddDate(0, 0, -1), true)
	if args[0] != "2024-09-01" || args[1] != "2024-09-01" {
		t.Fatalf("extra pass must be shifted one day back: %v", args)
	}
	if !strings.Contains(q, "pubname = ANY($3)") {
		t.Fatalf("section predicate missing: %s", q)
	}
	// The bound array carries the suffixed publication name.
	names := pubNames([]string{"do1"}, true)
	if len(names) != 1 || names[0] != "DO1E" {
		t.Fatalf("extra edition pubname: %v", names)
	}
}

func TestBuildQuery_WildcardSkipsTermPredicate(t *testing.T) {
	c := &Client{}
	q, args := c.buildQuery(gazette.Criteria{}, nil, time.Now(), false)
	if strings.Contains(q, "unaccent") {
		t.Fatalf("wildcard search must not carry a term predicate: %s", q)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestConvert_DropsRowsWithoutTitle(t *testing.T) {
	r := row{PubName: "DO1", Texto: "algum texto", PubDate: time.Now()}
	if _, ok := convert(gazette.Criteria{}, r, nil); ok {
		t.Fatal("rows lacking identifica must be dropped")
	}
}

func TestConvert_Hierarchy(t *testing.T) {
	r := row{
		PubName:     "DO2",
		Identifica:  "Portaria nº 1",
		Texto:       "Nomear FULANO",
		ArtCategory: "Ministério da Defesa/Comando da Marinha",
		ArtType:     "Portaria",
		PDFPage:     "https://example.gov/p1",
		PubDate:     time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC),
	}
	item, ok := convert(gazette.Criteria{}, r, []string{"FULANO"})
	if !ok {
		t.Fatal("expected valid item")
	}
	if len(item.Hierarchy) != 2 || item.Hierarchy[0] != "Ministério da Defesa" {
		t.Fatalf("hierarchy: %v", item.Hierarchy)
	}
	if item.Date != "02/09/2024" {
		t.Fatalf("date: %s", item.Date)
	}
	if item.Section != "DOU - Seção 2" {
		t.Fatalf("section: %s", item.Section)
	}
	if !strings.Contains(item.Abstract, gazette.HighlightOpen+"FULANO"+gazette.HighlightClose) {
		t.Fatalf("abstract must highlight the match: %q", item.Abstract)
	}
}

func TestSectionLabel(t *testing.T) {
	cases := map[string]string{
		"DO1":  "DOU - Seção 1",
		"DO3":  "DOU - Seção 3",
		"DO1E": "DOU - Seção 1 - Edição Extra",
		"DO2S": "DOU - Seção 2 - Edição Suplementar",
		"":     "DOU",
	}
	for in, want := range cases {
		if got := sectionLabel(in); got != want {
			t.Errorf("sectionLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHighlight_AccentInsensitive(t *testing.T) {
	got := highlight("O ministério publicou o ato", []string{"MINISTERIO"})
	want := "O " + gazette.HighlightOpen + "ministério" + gazette.HighlightClose + " publicou o ato"
	if got != want {
		t.Fatalf("highlight = %q, want %q", got, want)
	}
}

func TestExcerpt_TrimsAroundFirstMatch(t *testing.T) {
	long := strings.Repeat("x ", 300) + "alvo aqui" + strings.Repeat(" y", 300)
	got := excerpt(long, []string{"alvo"})
	if !strings.HasPrefix(got, gazette.Ellipsis) || !strings.HasSuffix(got, gazette.Ellipsis) {
		t.Fatalf("both sides must carry the ellipsis marker: %q", got)
	}
	if !strings.Contains(got, gazette.HighlightOpen+"alvo"+gazette.HighlightClose) {
		t.Fatalf("match must stay highlighted: %q", got)
	}
	if n := len([]rune(got)); n > excerptWindow+2*len(gazette.Ellipsis)+len(gazette.HighlightOpen)+len(gazette.HighlightClose)+4 {
		t.Fatalf("excerpt too long: %d runes", n)
	}
}

func TestExcerpt_ShortTextUntouched(t *testing.T) {
	if got := excerpt("texto curto com alvo", []string{"alvo"}); !strings.Contains(got, "<%%>alvo</%%>") || strings.Contains(got, gazette.Ellipsis) {
		t.Fatalf("short text must not be trimmed: %q", got)
	}
}

func TestBuildAbstract_SummaryPreference(t *testing.T) {
	r := row{Ementa: "Dispõe sobre dados abertos.", Texto: "Texto integral longo."}
	got := buildAbstract(gazette.Criteria{UseSummary: true}, r, []string{"dados abertos"})
	if !strings.Contains(got, "Dispõe sobre") {
		t.Fatalf("summary must replace the excerpt: %q", got)
	}
	if !strings.Contains(got, gazette.HighlightOpen) {
		t.Fatalf("summary keeps highlighting: %q", got)
	}
}

func TestBuildAbstract_FullTextLineBreaks(t *testing.T) {
	r := row{Texto: "parágrafo um\nparágrafo dois"}
	got := buildAbstract(gazette.Criteria{FullText: true}, r, nil)
	if !strings.Contains(got, lineBreak) {
		t.Fatalf("full-text mode must convert paragraph breaks: %q", got)
	}
}
