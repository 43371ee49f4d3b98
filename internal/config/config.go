package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. FARMBOOKS_BUSINESS_BOOK.
const EnvPrefix = "farmbooks"

// Book names accepted by BookPath.
const (
	BookBusiness = "business"
	BookPersonal = "personal"
)

// Config represents the top-level farmbooks.yaml configuration.
type Config struct {
	Books     BooksConfig     `yaml:"books"`
	Report    ReportConfig    `yaml:"report"`
	Valuation ValuationConfig `yaml:"valuation"`
	Excel     ExcelConfig     `yaml:"excel"`
	Elevator  ElevatorConfig  `yaml:"elevator"`
}

// BooksConfig locates the GnuCash SQLite files.
type BooksConfig struct {
	Business string `yaml:"business" validate:"required"`
	Personal string `yaml:"personal,omitempty"`
}

// ReportConfig controls hierarchy resolution and output locations.
type ReportConfig struct {
	Depth             int      `yaml:"depth" validate:"min=1"`
	Descriptors       []string `yaml:"descriptors"`
	DefaultDescriptor string   `yaml:"default_descriptor"`
	DataDir           string   `yaml:"data_dir" validate:"required"`
	ExportDir         string   `yaml:"export_dir" validate:"required"`
}

// ValuationConfig drives the corporation value report.
type ValuationConfig struct {
	Shares    int64              `yaml:"shares" validate:"gte=0"`
	Discounts map[string]float64 `yaml:"discounts,omitempty"` // balance sheet category -> percent
}

// ExcelConfig holds spreadsheet formatting preferences.
type ExcelConfig struct {
	Header   HeaderStyle `yaml:"header"`
	Currency string      `yaml:"currency"` // number format, e.g. "$#,##0.00"
}

// HeaderStyle formats the first row of every exported sheet.
type HeaderStyle struct {
	Bold      bool   `yaml:"bold"`
	TextWrap  bool   `yaml:"text_wrap"`
	VAlign    string `yaml:"valign"`
	FgColor   string `yaml:"fg_color"`
	FontColor string `yaml:"font_color"`
	Border    int    `yaml:"border"`
}

// ElevatorConfig controls the elevator load import and the downloads watcher.
type ElevatorConfig struct {
	Name             string `yaml:"name"`
	FileMatchPattern string `yaml:"file_match_pattern,omitempty"`
	WatchDir         string `yaml:"watch_dir"`
	ProcessedDir     string `yaml:"processed_dir,omitempty"`
}

// envOverrides are read from FARMBOOKS_* variables and win over the file.
type envOverrides struct {
	BusinessBook string `envconfig:"BUSINESS_BOOK"`
	PersonalBook string `envconfig:"PERSONAL_BOOK"`
	DataDir      string `envconfig:"DATA_DIR"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads a farmbooks.yaml file from disk, applies environment overrides
// and checks that required keys are present.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks key presence and simple bounds.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	if env.BusinessBook != "" {
		cfg.Books.Business = env.BusinessBook
	}
	if env.PersonalBook != "" {
		cfg.Books.Personal = env.PersonalBook
	}
	if env.DataDir != "" {
		cfg.Report.DataDir = env.DataDir
	}
	return nil
}

// BookPath returns the ledger file for a named book with ~ expanded.
func (c *Config) BookPath(book string) (string, error) {
	var p string
	switch book {
	case BookBusiness, "":
		p = c.Books.Business
	case BookPersonal:
		p = c.Books.Personal
	default:
		return "", fmt.Errorf("unknown book %q", book)
	}
	if p == "" {
		return "", fmt.Errorf("no ledger configured for %s book", book)
	}
	return ExpandHome(p), nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Default returns a Config with sensible defaults for a new project.
func Default(businessBook string) *Config {
	return &Config{
		Books: BooksConfig{
			Business: businessBook,
		},
		Report: ReportConfig{
			Depth:             4,
			Descriptors:       []string{"Corn", "Soybeans"},
			DefaultDescriptor: "General",
			DataDir:           "data",
			ExportDir:         "export",
		},
		Valuation: ValuationConfig{
			Shares: 1,
		},
		Excel: ExcelConfig{
			Header: HeaderStyle{
				Bold:      true,
				TextWrap:  true,
				VAlign:    "top",
				FgColor:   "#5DADE2",
				FontColor: "#FFFFFF",
				Border:    1,
			},
			Currency: "$#,##0.00",
		},
		Elevator: ElevatorConfig{
			WatchDir: "~/Downloads",
		},
	}
}
