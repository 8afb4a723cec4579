package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ferrolint/internal/rules"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFiles are looked up in the working directory, in order, when no
// config path is given.
var DefaultFiles = []string{"ferrolint.yaml", "ferrolint.yml", "ferrolint.toml", ".ferrolint.yaml"}

type Config struct {
	Paths    []string    `yaml:"paths" toml:"paths"`
	Exclude  []string    `yaml:"exclude" toml:"exclude"`
	Jobs     int         `yaml:"jobs" toml:"jobs" validate:"gte=0,lte=1024"`
	Format   string      `yaml:"format" toml:"format" validate:"oneof=text json sarif"`
	FailOn   string      `yaml:"fail_on" toml:"fail_on" validate:"oneof=error warning info none"`
	Database string      `yaml:"database" toml:"database"`
	Log      LogConfig   `yaml:"log" toml:"log"`
	Rules    RulesConfig `yaml:"rules" toml:"rules"`
}

type LogConfig struct {
	Level       string `yaml:"level" toml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development" toml:"development"`
}

type RulesConfig struct {
	Disable []string `yaml:"disable" toml:"disable"`

	// Severity overrides the default severity, keyed by rule id or code.
	Severity        map[string]string `yaml:"severity" toml:"severity" validate:"dive,oneof=error warning info"`
	ExpectMinLength int               `yaml:"expect_min_length" toml:"expect_min_length" validate:"gte=0"`
	SecretNames     []string          `yaml:"secret_names" toml:"secret_names"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Paths:  []string{"."},
		Format: "text",
		FailOn: "warning",
		Log:    LogConfig{Level: "warn"},
		Rules:  RulesConfig{ExpectMinLength: rules.DefaultExpectMinLength},
	}
}

// LoadConfig loads .env, then the config file at path (or the first of
// DefaultFiles when path is empty), then FERROLINT_* environment overrides,
// and validates the result. A missing default file yields the defaults; a
// missing explicit path is an error.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML or TOML config
	if path == "" {
		path = discover()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	// 3. Override with Environment Variables if present
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func discover() string {
	for _, name := range DefaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, cfg)
	case ".yaml", ".yml", "":
		return yaml.Unmarshal(data, cfg)
	}
	return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("FERROLINT_FORMAT"); v != "" {
		c.Format = v
	}
	if v := os.Getenv("FERROLINT_JOBS"); v != "" {
		jobs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FERROLINT_JOBS %q: %w", v, err)
		}
		c.Jobs = jobs
	}
	if v := os.Getenv("FERROLINT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FERROLINT_FAIL_ON"); v != "" {
		c.FailOn = v
	}
	if v := os.Getenv("FERROLINT_DATABASE"); v != "" {
		c.Database = v
	}
	if v := os.Getenv("FERROLINT_DISABLE"); v != "" {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				c.Rules.Disable = append(c.Rules.Disable, id)
			}
		}
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints and that every rule named in the
// config exists.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: invalid value %v (%s)", fe.Namespace(), fe.Value(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Registry(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RuleOptions returns the rule tuning derived from the config.
func (c *Config) RuleOptions() rules.Options {
	return rules.Options{
		ExpectMinLength: c.Rules.ExpectMinLength,
		SecretNames:     c.Rules.SecretNames,
	}
}

// Registry builds the default registry minus the disabled rules.
func (c *Config) Registry() (*rules.Registry, error) {
	reg := rules.Default(c.RuleOptions())
	if len(c.Rules.Disable) == 0 {
		return reg, nil
	}
	return reg.Without(c.Rules.Disable...)
}

// SeverityOverrides parses the per-rule severity table.
func (c *Config) SeverityOverrides() (map[string]rules.Severity, error) {
	out := make(map[string]rules.Severity, len(c.Rules.Severity))
	for key, v := range c.Rules.Severity {
		sev, err := rules.ParseSeverity(v)
		if err != nil {
			return nil, fmt.Errorf("rules.severity[%s]: %w", key, err)
		}
		out[key] = sev
	}
	return out, nil
}

// FailThreshold returns the minimum severity that fails a run, or false
// when failing is disabled.
func (c *Config) FailThreshold() (rules.Severity, bool) {
	if c.FailOn == "none" {
		return "", false
	}
	sev, err := rules.ParseSeverity(c.FailOn)
	if err != nil {
		return rules.SeverityWarning, true
	}
	return sev, true
}
