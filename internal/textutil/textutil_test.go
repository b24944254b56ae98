package textutil

import "testing"

func TestNormalize_FoldsAccentsAndCase(t *testing.T) {
	got := Normalize("Nitái Bêzêrrá")
	if got != "nitai bezerra" {
		t.Fatalf("Normalize = %q, want %q", got, "nitai bezerra")
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Nitái Bêzêrrá",
		"  PORTARIA   Nº 123,  de 2024 ",
		"Ministério da Defesa — Gabinete",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalize_PunctuationBecomesSpace(t *testing.T) {
	got := Normalize("EXTRATO DE CONTRATO Nº 42/2024 (UASG 110161)")
	want := "extrato de contrato nº 42 2024 uasg 110161"
	// "º" is a letter in Unicode terms and survives folding.
	if got != want {
		t.Fatalf("Normalize = %q, want %q", got, want)
	}
}

func TestNormalize_KeepsDashes(t *testing.T) {
	if got := Normalize("Diretor-Geral"); got != "diretor-geral" {
		t.Fatalf("Normalize = %q, want %q", got, "diretor-geral")
	}
}

func TestStripMarkup(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"<div><a>Any text</a></div>", "Any text"},
		{"", ""},
		{"no markup at all", "no markup at all"},
		{"<p>first</p><p>second</p>", "first second"},
		{"<script>var x = 1;</script>visible", "visible"},
		{"<div><b>unclosed", "unclosed"},
	}
	for _, c := range cases {
		if got := StripMarkup(c.in); got != c.want {
			t.Errorf("StripMarkup(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCollapseSpaces(t *testing.T) {
	if got := CollapseSpaces("a \t b\n\nc"); got != "a b c" {
		t.Fatalf("CollapseSpaces = %q", got)
	}
}
