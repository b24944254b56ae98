package app

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/gazettewatch/gazettewatch/internal/gazette"
)

// Config holds runtime configuration for one run.
type Config struct {
	// OutputPath receives the final report JSON.
	OutputPath string
	// RefDate anchors every date window; normally today.
	RefDate time.Time
	Verbose bool

	// VariablesPath and ConnectionsPath point at the file-backed
	// collaborator stores; empty means environment-backed variables and
	// no connections.
	VariablesPath   string
	ConnectionsPath string

	Sources  SourcesConfig
	Searches []SearchConfig
}

// SourcesConfig carries per-backend wiring.
type SourcesConfig struct {
	DOU struct {
		BaseURL string `yaml:"baseURL"`
	} `yaml:"dou"`
	INLABS struct {
		Conn  string `yaml:"conn"`
		Table string `yaml:"table"`
	} `yaml:"inlabs"`
	Municipal struct {
		BaseURL string `yaml:"baseURL"`
	} `yaml:"municipal"`
}

// SearchConfig is the YAML schema for one logical sub-search.
type SearchConfig struct {
	Header string `yaml:"header"`

	Terms         []string `yaml:"terms"`
	TermsVariable string   `yaml:"termsVariable"`
	TermsQuery    string   `yaml:"termsQuery"`
	TermsConn     string   `yaml:"termsConn"`

	Sources  []string `yaml:"sources"`
	Sections []string `yaml:"sections"`
	Window   string   `yaml:"window"`
	Scope    string   `yaml:"scope"`

	ExactMatch      bool `yaml:"exactMatch"`
	IgnoreSignature bool `yaml:"ignoreSignature"`
	ForceRematch    bool `yaml:"forceRematch"`

	Departments        []string `yaml:"departments"`
	ExcludeDepartments []string `yaml:"excludeDepartments"`
	PubTypes           []string `yaml:"pubTypes"`

	Territories  []string `yaml:"territories"`
	ExcerptSize  int      `yaml:"excerptSize"`
	ExcerptCount int      `yaml:"excerptCount"`

	FullText          bool `yaml:"fullText"`
	UseSummary        bool `yaml:"useSummary"`
	ParagraphExcerpts bool `yaml:"paragraphExcerpts"`
}

// FileConfig is the single-file YAML configuration schema.
type FileConfig struct {
	Output      string         `yaml:"output"`
	Date        string         `yaml:"date"`
	Variables   string         `yaml:"variables"`
	Connections string         `yaml:"connections"`
	Sources     SourcesConfig  `yaml:"sources"`
	Searches    []SearchConfig `yaml:"searches"`
}

// LoadFile reads and validates a YAML configuration file into a Config.
func LoadFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return Config{}, fmt.Errorf("%w: parsing config %s: %v", gazette.ErrConfig, path, err)
	}
	cfg := Config{
		OutputPath:      fc.Output,
		VariablesPath:   fc.Variables,
		ConnectionsPath: fc.Connections,
		Sources:         fc.Sources,
		Searches:        fc.Searches,
		RefDate:         time.Now(),
	}
	if fc.Date != "" {
		d, err := time.Parse("2006-01-02", fc.Date)
		if err != nil {
			return Config{}, fmt.Errorf("%w: date %q: %v", gazette.ErrConfig, fc.Date, err)
		}
		cfg.RefDate = d
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate fails fast on configuration problems before any backend is hit.
func Validate(cfg Config) error {
	if len(cfg.Searches) == 0 {
		return fmt.Errorf("%w: no searches configured", gazette.ErrConfig)
	}
	for i, sc := range cfg.Searches {
		if len(sc.Sources) == 0 {
			return fmt.Errorf("%w: search %d has no sources", gazette.ErrConfig, i)
		}
		for _, s := range sc.Sources {
			if _, err := gazette.ParseSourceKind(s); err != nil {
				return err
			}
		}
		if _, err := gazette.ParseDateWindow(sc.Window); err != nil {
			return err
		}
		if _, err := gazette.ParseFieldScope(sc.Scope); err != nil {
			return err
		}
		if sc.TermsQuery != "" && sc.TermsConn == "" {
			return fmt.Errorf("%w: search %d uses termsQuery without termsConn", gazette.ErrConfig, i)
		}
	}
	return nil
}

// Criteria converts one SearchConfig to the immutable search criteria.
// Validate must have passed already; parse errors here are programmer error.
func (sc SearchConfig) Criteria() (gazette.Criteria, error) {
	window, err := gazette.ParseDateWindow(sc.Window)
	if err != nil {
		return gazette.Criteria{}, err
	}
	scope, err := gazette.ParseFieldScope(sc.Scope)
	if err != nil {
		return gazette.Criteria{}, err
	}
	kinds := make([]gazette.SourceKind, 0, len(sc.Sources))
	for _, s := range sc.Sources {
		k, err := gazette.ParseSourceKind(s)
		if err != nil {
			return gazette.Criteria{}, err
		}
		kinds = append(kinds, k)
	}
	return gazette.Criteria{
		Sources:            kinds,
		Sections:           sc.Sections,
		Window:             window,
		Scope:              scope,
		ExactMatch:         sc.ExactMatch,
		IgnoreSignature:    sc.IgnoreSignature,
		ForceRematch:       sc.ForceRematch,
		Departments:        sc.Departments,
		ExcludeDepartments: sc.ExcludeDepartments,
		PubTypes:           sc.PubTypes,
		Territories:        sc.Territories,
		ExcerptSize:        sc.ExcerptSize,
		ExcerptCount:       sc.ExcerptCount,
		FullText:           sc.FullText,
		UseSummary:         sc.UseSummary,
		ParagraphExcerpts:  sc.ParagraphExcerpts,
	}, nil
}

// ApplyEnv populates unset fields from environment variables. Explicit
// values take precedence over env.
func ApplyEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = os.Getenv("GAZETTEWATCH_OUTPUT")
	}
	if cfg.VariablesPath == "" {
		cfg.VariablesPath = os.Getenv("GAZETTEWATCH_VARIABLES")
	}
	if cfg.ConnectionsPath == "" {
		cfg.ConnectionsPath = os.Getenv("GAZETTEWATCH_CONNECTIONS")
	}
	if cfg.Sources.DOU.BaseURL == "" {
		cfg.Sources.DOU.BaseURL = os.Getenv("GAZETTEWATCH_DOU_URL")
	}
	if cfg.Sources.Municipal.BaseURL == "" {
		cfg.Sources.Municipal.BaseURL = os.Getenv("GAZETTEWATCH_MUNICIPAL_URL")
	}
	if cfg.Sources.INLABS.Conn == "" {
		cfg.Sources.INLABS.Conn = os.Getenv("GAZETTEWATCH_INLABS_CONN")
	}
}
