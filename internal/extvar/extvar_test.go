package extvar

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gazettewatch/gazettewatch/internal/gazette"
)

func TestEnvVariables(t *testing.T) {
	t.Setenv("GW_TEST_termos", "a\nb")
	v := EnvVariables{Prefix: "GW_TEST_"}
	got, err := v.Get("termos")
	if err != nil {
		t.Fatal(err)
	}
	if got != "a\nb" {
		t.Fatalf("unexpected value %q", got)
	}
	if _, err := v.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.json")
	content := `{"plain": "um termo", "lista": ["a", "b"]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	v := FileVariables{Path: path}

	got, err := v.Get("plain")
	if err != nil {
		t.Fatal(err)
	}
	if got != "um termo" {
		t.Fatalf("plain value: %q", got)
	}

	got, err = v.Get("lista")
	if err != nil {
		t.Fatal(err)
	}
	if got != `["a", "b"]` {
		t.Fatalf("structured value must pass through as JSON text, got %q", got)
	}

	if _, err := v.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileConnections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conns.json")
	content := `{"inlabs_db": {"kind": "postgres", "host": "db.local", "port": 5432, "login": "ro", "secret": "s", "schema": "inlabs"}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	c := FileConnections{Path: path}
	conn, err := c.Get("inlabs_db")
	if err != nil {
		t.Fatal(err)
	}
	if conn.Kind != "postgres" || conn.Host != "db.local" {
		t.Fatalf("unexpected connection: %+v", conn)
	}
}

func TestOpen_UnsupportedKindIsConfigError(t *testing.T) {
	_, err := Open(Connection{Kind: "oracle", Host: "x"})
	if !errors.Is(err, gazette.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}
