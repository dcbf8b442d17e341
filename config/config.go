package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/supportmesh/escalation"
	"github.com/hupe1980/supportmesh/handoff"
	"github.com/hupe1980/supportmesh/logging"
)

// ID strategies for escalation protocols.
const (
	IDStrategyUUID       = "uuid"
	IDStrategySequential = "sequential"
)

// Team stores.
const (
	StoreMemory    = "memory"
	StoreContainer = "container"
)

// Model providers.
const (
	ProviderNone      = "none"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config is the root configuration document.
type Config struct {
	Detector   DetectorConfig   `yaml:"detector"`
	Teams      []TeamConfig     `yaml:"teams,omitempty"`
	Escalation EscalationConfig `yaml:"escalation"`
	Logging    LoggingConfig    `yaml:"logging"`
	Model      ModelConfig      `yaml:"model"`
}

// DetectorConfig overrides the handoff detector lexicon and thresholds.
// Empty lists keep the built-in lexicon.
type DetectorConfig struct {
	HumanRequestPhrases []string `yaml:"human_request_phrases,omitempty"`
	FrustrationWords    []string `yaml:"frustration_words,omitempty"`
	CapsMinLength       int      `yaml:"caps_min_length"`
	CapsRatio           float64  `yaml:"caps_ratio"`
}

// TeamConfig declares a specialist team and the business units routed to it.
type TeamConfig struct {
	Name          string                    `yaml:"name"`
	BusinessUnits []escalation.BusinessUnit `yaml:"business_units,omitempty"`
}

// EscalationConfig holds protocol and broadcast defaults.
type EscalationConfig struct {
	IDStrategy           string `yaml:"id_strategy"`
	DefaultTeam          string `yaml:"default_team"`
	NotificationTarget   string `yaml:"notification_target"`
	BroadcastConcurrency int    `yaml:"broadcast_concurrency"`
	Store                string `yaml:"store"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// ModelConfig selects the model backing the escalation analyzer. Provider
// "none" uses the rule analyzer only.
type ModelConfig struct {
	Provider    string  `yaml:"provider"`
	Name        string  `yaml:"name"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Detector: DetectorConfig{
			CapsMinLength: handoff.DefaultCapsMinLength,
			CapsRatio:     handoff.DefaultCapsRatio,
		},
		Escalation: EscalationConfig{
			IDStrategy:           IDStrategyUUID,
			DefaultTeam:          "human_support",
			NotificationTarget:   "human_support",
			BroadcastConcurrency: 8,
			Store:                StoreMemory,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Model: ModelConfig{
			Provider: ProviderNone,
		},
	}
}

// Parse decodes data over Default and validates the result. Environment
// overrides are not applied.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads path, applies SUPPORTMESH_* environment overrides and
// validates. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnvironment(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvironment overrides fields from variables resolved by getenv.
// Unparsable numeric values are ignored.
func (c *Config) ApplyEnvironment(getenv func(string) string) {
	if v := getenv("SUPPORTMESH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("SUPPORTMESH_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := getenv("SUPPORTMESH_DEFAULT_TEAM"); v != "" {
		c.Escalation.DefaultTeam = v
	}
	if v := getenv("SUPPORTMESH_ID_STRATEGY"); v != "" {
		c.Escalation.IDStrategy = v
	}
	if v := getenv("SUPPORTMESH_BROADCAST_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Escalation.BroadcastConcurrency = n
		}
	}
	if v := getenv("SUPPORTMESH_MODEL_PROVIDER"); v != "" {
		c.Model.Provider = v
	}
	if v := getenv("SUPPORTMESH_MODEL_NAME"); v != "" {
		c.Model.Name = v
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Detector.CapsMinLength < 0 {
		errs = append(errs, fmt.Errorf("detector.caps_min_length must not be negative"))
	}
	if c.Detector.CapsRatio <= 0 || c.Detector.CapsRatio > 1 {
		errs = append(errs, fmt.Errorf("detector.caps_ratio must be within (0, 1], got %v", c.Detector.CapsRatio))
	}

	seen := make(map[string]bool, len(c.Teams))
	owner := make(map[escalation.BusinessUnit]string)
	for i, t := range c.Teams {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("teams[%d].name must not be empty", i))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("teams[%d]: duplicate team %q", i, name))
		}
		seen[name] = true
		for _, bu := range t.BusinessUnits {
			if prev, ok := owner[bu]; ok && prev != name {
				errs = append(errs, fmt.Errorf("business unit %q assigned to both %q and %q", bu, prev, name))
			}
			owner[bu] = name
		}
	}

	switch c.Escalation.IDStrategy {
	case IDStrategyUUID, IDStrategySequential:
	default:
		errs = append(errs, fmt.Errorf("escalation.id_strategy must be %q or %q, got %q", IDStrategyUUID, IDStrategySequential, c.Escalation.IDStrategy))
	}
	switch c.Escalation.Store {
	case StoreMemory, StoreContainer:
	default:
		errs = append(errs, fmt.Errorf("escalation.store must be %q or %q, got %q", StoreMemory, StoreContainer, c.Escalation.Store))
	}
	if strings.TrimSpace(c.Escalation.DefaultTeam) == "" {
		errs = append(errs, fmt.Errorf("escalation.default_team must not be empty"))
	}
	if c.Escalation.BroadcastConcurrency < 0 {
		errs = append(errs, fmt.Errorf("escalation.broadcast_concurrency must not be negative"))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		errs = append(errs, fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format))
	}

	switch c.Model.Provider {
	case ProviderNone:
	case ProviderAnthropic, ProviderOpenAI:
		if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
			errs = append(errs, fmt.Errorf("model.temperature must be within [0, 2]"))
		}
	default:
		errs = append(errs, fmt.Errorf("model.provider must be none, anthropic or openai, got %q", c.Model.Provider))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// DetectorOptions converts the detector section into handoff options.
func (c *Config) DetectorOptions() func(o *handoff.Options) {
	return func(o *handoff.Options) {
		if len(c.Detector.HumanRequestPhrases) > 0 {
			o.HumanRequestPhrases = append([]string(nil), c.Detector.HumanRequestPhrases...)
		}
		if len(c.Detector.FrustrationWords) > 0 {
			o.FrustrationWords = append([]string(nil), c.Detector.FrustrationWords...)
		}
		o.CapsMinLength = c.Detector.CapsMinLength
		o.CapsRatio = c.Detector.CapsRatio
	}
}

// TeamFor returns the configured team owning bu.
func (c *Config) TeamFor(bu escalation.BusinessUnit) (string, bool) {
	for _, t := range c.Teams {
		for _, owned := range t.BusinessUnits {
			if owned == bu {
				return t.Name, true
			}
		}
	}
	return "", false
}

// LoggerConfig converts the logging section. Invalid levels fall back to info.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	cfg := logging.DefaultLoggerConfig()
	if lvl, err := logging.ParseLevel(c.Logging.Level); err == nil {
		cfg.Level = lvl
	}
	cfg.Format = c.Logging.Format
	cfg.AddSource = c.Logging.AddSource
	return cfg
}

// APIKey resolves the model API key from the configured environment variable.
func (m ModelConfig) APIKey(getenv func(string) string) string {
	if m.APIKeyEnv == "" {
		return ""
	}
	return getenv(m.APIKeyEnv)
}
