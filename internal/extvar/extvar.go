// Package extvar implements the collaborator contracts the search core
// consumes: configuration-store variable lookup and credential/connection
// lookup, plus a tabular SQL executor over database/sql.
package extvar

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotFound is returned when a variable or connection id is unknown.
var ErrNotFound = errors.New("not found")

// Variables looks up named values in the external configuration store.
type Variables interface {
	Get(name string) (string, error)
}

// EnvVariables reads variables from the process environment, optionally
// under a prefix (GAZETTEWATCH_VAR_name style).
type EnvVariables struct {
	Prefix string
}

func (e EnvVariables) Get(name string) (string, error) {
	key := e.Prefix + name
	if v, ok := os.LookupEnv(key); ok {
		return v, nil
	}
	return "", fmt.Errorf("variable %q: %w", name, ErrNotFound)
}

// FileVariables reads variables from a local JSON object file, mainly for
// offline runs and tests.
type FileVariables struct {
	Path string
}

func (f FileVariables) Get(name string) (string, error) {
	if strings.TrimSpace(f.Path) == "" {
		return "", errors.New("variable file path is empty")
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return "", err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return "", fmt.Errorf("parsing variable file %s: %w", f.Path, err)
	}
	v, ok := raw[name]
	if !ok {
		return "", fmt.Errorf("variable %q: %w", name, ErrNotFound)
	}
	// Bare string values come quoted; structured values pass through as
	// their JSON text for the resolver to interpret.
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, nil
	}
	return string(v), nil
}

// Connection describes one backend credential record. Kind disambiguates
// which SQL dialect driver to use.
type Connection struct {
	Kind   string `json:"kind" yaml:"kind"`
	Host   string `json:"host" yaml:"host"`
	Port   int    `json:"port" yaml:"port"`
	Login  string `json:"login" yaml:"login"`
	Secret string `json:"secret" yaml:"secret"`
	Schema string `json:"schema" yaml:"schema"`
}

// Connections looks up connection records by id.
type Connections interface {
	Get(id string) (Connection, error)
}

// FileConnections reads connection records from a local JSON object file.
type FileConnections struct {
	Path string
}

func (f FileConnections) Get(id string) (Connection, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return Connection{}, err
	}
	var raw map[string]Connection
	if err := json.Unmarshal(b, &raw); err != nil {
		return Connection{}, fmt.Errorf("parsing connection file %s: %w", f.Path, err)
	}
	c, ok := raw[id]
	if !ok {
		return Connection{}, fmt.Errorf("connection %q: %w", id, ErrNotFound)
	}
	return c, nil
}

// StaticConnections serves a fixed in-memory record set, used in tests.
type StaticConnections map[string]Connection

func (s StaticConnections) Get(id string) (Connection, error) {
	if c, ok := s[id]; ok {
		return c, nil
	}
	return Connection{}, fmt.Errorf("connection %q: %w", id, ErrNotFound)
}
