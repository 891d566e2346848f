// Package config loads seoplan.yml and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/seoplan/internal/response"
)

// FileNames are the config file names tried in order.
var FileNames = []string{"seoplan.yml", "seoplan.yaml"}

// Environment variables.
const (
	EnvAPIKey       = "SEOPLAN_API_KEY"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvGoogleAPIKey = "GOOGLE_API_KEY"
	EnvModel        = "SEOPLAN_MODEL"
	EnvDB           = "SEOPLAN_DB"
)

// Duration is a time.Duration written as a string such as "90s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: line %d: %w", value.Line, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// AuditConfig configures page audits.
type AuditConfig struct {
	MaxChars int `yaml:"maxChars,omitempty"`
}

// Config holds the settings loaded from seoplan.yml.
type Config struct {
	Model       string   `yaml:"model,omitempty"`
	APIKey      string   `yaml:"apiKey,omitempty"`
	BaseURL     string   `yaml:"baseURL,omitempty"`
	Temperature *float32 `yaml:"temperature,omitempty"`

	StageTimeout Duration `yaml:"stageTimeout,omitempty"`
	HTTPTimeout  Duration `yaml:"httpTimeout,omitempty"`

	// Strict rejects stage outputs missing required fields instead of
	// defaulting them.
	Strict bool `yaml:"strict,omitempty"`

	// Grounded enables search grounding for the authority stage.
	Grounded bool `yaml:"grounded"`

	DBPath     string `yaml:"dbPath,omitempty"`
	PromptsDir string `yaml:"promptsDir,omitempty"`

	// Proxies are fetch fallbacks for page audits. Nil uses the built-in
	// list; an empty list disables proxies.
	Proxies []string `yaml:"proxies,omitempty"`

	Audit   AuditConfig `yaml:"audit,omitempty"`
	Verbose bool        `yaml:"verbose,omitempty"`
}

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Defaults returns the configuration used when no file is present.
func Defaults() *Config {
	return &Config{
		Model:        DefaultModel,
		StageTimeout: Duration{2 * time.Minute},
		HTTPTimeout:  Duration{30 * time.Second},
		Grounded:     true,
		DBPath:       DefaultDBPath(),
		Audit:        AuditConfig{MaxChars: 12000},
	}
}

// DefaultDBPath returns the per-user database location.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "seoplan.db"
	}
	return filepath.Join(dir, "seoplan", "seoplan.db")
}

// Load reads seoplan.yml or seoplan.yaml from dir over Defaults, then applies
// environment overrides and validates. A missing file is not an error.
func Load(dir string) (*Config, error) {
	cfg := Defaults()
	for _, name := range FileNames {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", name, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", name, err)
		}
		break
	}

	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. SEOPLAN_API_KEY always
// wins; GEMINI_API_KEY and GOOGLE_API_KEY only fill an empty key.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	if v := get(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	for _, key := range []string{EnvGeminiAPIKey, EnvGoogleAPIKey} {
		if c.APIKey != "" {
			break
		}
		c.APIKey = get(key)
	}
	if v := get(EnvModel); v != "" {
		c.Model = v
	}
	if v := get(EnvDB); v != "" {
		c.DBPath = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("config: temperature %.2f out of range [0, 2]", *c.Temperature)
	}
	if c.StageTimeout.Duration < 0 {
		return errors.New("config: stageTimeout must not be negative")
	}
	if c.HTTPTimeout.Duration < 0 {
		return errors.New("config: httpTimeout must not be negative")
	}
	if c.Audit.MaxChars < 0 {
		return errors.New("config: audit.maxChars must not be negative")
	}
	for _, p := range c.Proxies {
		if !strings.Contains(p, "%s") {
			return fmt.Errorf("config: proxy %q has no %%s placeholder", p)
		}
	}
	return nil
}

// Policy returns the response policy implied by Strict.
func (c *Config) Policy() response.Policy {
	if c.Strict {
		return response.Strict
	}
	return response.Lenient
}
