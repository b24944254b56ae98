package query

import (
	"strings"
	"testing"
)

func TestParse_AndNotChain(t *testing.T) {
	n, err := Parse("term1 & term2 ! term3")
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != And || len(n.Kids) != 3 {
		t.Fatalf("expected 3-kid AND node, got kind=%d kids=%d", n.Kind, len(n.Kids))
	}
	if n.Kids[0].Kind != Literal || n.Kids[0].Term != "term1" {
		t.Fatalf("kid 0: %+v", n.Kids[0])
	}
	if n.Kids[1].Kind != Literal || n.Kids[1].Term != "term2" {
		t.Fatalf("kid 1: %+v", n.Kids[1])
	}
	if n.Kids[2].Kind != Not || n.Kids[2].Kids[0].Term != "term3" {
		t.Fatalf("kid 2 must negate term3: %+v", n.Kids[2])
	}
}

func TestParse_Or(t *testing.T) {
	n, err := Parse("alfa | beta")
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != Or || len(n.Kids) != 2 {
		t.Fatalf("expected 2-kid OR node, got %+v", n)
	}
}

func TestParse_Parens(t *testing.T) {
	n, err := Parse("(a & b) | c")
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != Or || len(n.Kids) != 2 {
		t.Fatalf("expected OR root, got %+v", n)
	}
	if n.Kids[0].Kind != And {
		t.Fatalf("left side must be the grouped AND, got %+v", n.Kids[0])
	}
}

func TestParse_AnnotationStripped(t *testing.T) {
	n, err := Parse("FULANO DE TAL ! servidor aposentado em 2020")
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != Literal || n.Term != "FULANO DE TAL" {
		t.Fatalf("annotation must be stripped before parsing, got %+v", n)
	}
}

func TestParse_UnbalancedParen(t *testing.T) {
	if _, err := Parse("(a & b"); err == nil {
		t.Fatal("expected error for unbalanced parenthesis")
	}
}

func TestParse_Empty(t *testing.T) {
	n, err := Parse("   ")
	if err != nil || n != nil {
		t.Fatalf("empty expression must parse to nil, got %v, %v", n, err)
	}
}

func TestSQL_AndNotChain(t *testing.T) {
	n, err := Parse("term1 & term2 ! term3")
	if err != nil {
		t.Fatal(err)
	}
	var args []any
	frag := SQL(n, "texto", &args)
	if len(args) != 3 || args[0] != "term1" || args[2] != "term3" {
		t.Fatalf("unexpected args: %v", args)
	}
	if !strings.HasPrefix(frag, "(") || !strings.HasSuffix(frag, ")") {
		t.Fatalf("AND chain must be one parenthesized group: %s", frag)
	}
	if strings.Count(frag, " AND ") != 2 {
		t.Fatalf("expected 2 ANDs: %s", frag)
	}
	if !strings.Contains(frag, `NOT unaccent(texto) ~* ('\m' || unaccent($3) || '\M')`) {
		t.Fatalf("term3 must compile to a negated whole-word match: %s", frag)
	}
}

func TestSQL_Or(t *testing.T) {
	n, err := Parse("alfa | beta")
	if err != nil {
		t.Fatal(err)
	}
	var args []any
	frag := SQL(n, "identifica", &args)
	if strings.Count(frag, " OR ") != 1 {
		t.Fatalf("expected one OR: %s", frag)
	}
	if !strings.Contains(frag, "$1") || !strings.Contains(frag, "$2") {
		t.Fatalf("placeholders missing: %s", frag)
	}
}

func TestSQL_PlaceholderNumberingContinues(t *testing.T) {
	n, _ := Parse("a & b")
	args := []any{"existing"}
	frag := SQL(n, "texto", &args)
	if !strings.Contains(frag, "$2") || !strings.Contains(frag, "$3") {
		t.Fatalf("placeholders must continue from existing args: %s", frag)
	}
}

func TestLiterals_SkipsNegated(t *testing.T) {
	n, _ := Parse("a & b ! c | d")
	got := Literals(n)
	want := []string{"a", "b", "d"}
	if len(got) != len(want) {
		t.Fatalf("Literals = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Literals = %v, want %v", got, want)
		}
	}
}
