// Package config holds the source contract and tuning knobs for a harvest
// run. The upstream request metadata (headers, referer, page size) and the
// empirically tuned UI pagination thresholds are configuration, not logic.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type APIConfig struct {
	URL       string        `yaml:"url"`
	Referer   string        `yaml:"referer"`
	UserAgent string        `yaml:"user_agent"`
	PageSize  int           `yaml:"page_size"`
	Timeout   time.Duration `yaml:"timeout"`
	// Retry budget for transient failures before the run is aborted.
	MaxRetries int           `yaml:"max_retries"`
	Backoff    time.Duration `yaml:"backoff"`
}

type UIConfig struct {
	URL           string `yaml:"url"`
	LoadMoreLabel string `yaml:"load_more_label"`
	CardSelector  string `yaml:"card_selector"`
	// Stability heuristics: the rendered item count is polled every
	// PollInterval for at most SettleWait after an activation;
	// StableRounds consecutive non-growing rounds force termination.
	PollInterval time.Duration `yaml:"poll_interval"`
	SettleWait   time.Duration `yaml:"settle_wait"`
	StableRounds int           `yaml:"stable_rounds"`
}

type NormalizeConfig struct {
	// BaseOrigin resolves relative event URLs to absolute ones.
	BaseOrigin         string   `yaml:"base_origin"`
	ExcludedCategories []string `yaml:"excluded_categories"`
	LocationMaxWords   int      `yaml:"location_max_words"`
}

type Config struct {
	API       APIConfig       `yaml:"api"`
	UI        UIConfig        `yaml:"ui"`
	Normalize NormalizeConfig `yaml:"normalize"`
	// MaxRounds is a hard ceiling on pagination rounds for either
	// transport, independent of the stability heuristics.
	MaxRounds int `yaml:"max_rounds"`
}

// Default returns the known contract of the Eskilstuna events source.
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL:        "https://visiteskilstuna.se/rest-api/Evenemang/events",
			Referer:    "https://evenemang.eskilstuna.se/",
			UserAgent:  "eskilstuna-events/1.0 (github.com/plindberg/eskilstuna-events)",
			PageSize:   250,
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			Backoff:    500 * time.Millisecond,
		},
		UI: UIConfig{
			URL:           "https://evenemang.eskilstuna.se/evenemangsguiden/evenemangsguiden/sok-evenemang",
			LoadMoreLabel: "Ladda fler",
			CardSelector:  "article.teaser, div.teaser",
			PollInterval:  500 * time.Millisecond,
			SettleWait:    12 * time.Second,
			StableRounds:  2,
		},
		Normalize: NormalizeConfig{
			BaseOrigin:         "https://visiteskilstuna.se",
			ExcludedCategories: []string{"Utställningar"},
			LocationMaxWords:   4,
		},
		MaxRounds: 40,
	}
}

// Load reads a YAML config file over the defaults. Fields left out of the
// file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that would disable the safety ceilings.
func (c *Config) Validate() error {
	if c.API.PageSize <= 0 {
		return fmt.Errorf("api.page_size must be positive, got %d", c.API.PageSize)
	}
	if c.MaxRounds <= 0 {
		return fmt.Errorf("max_rounds must be positive, got %d", c.MaxRounds)
	}
	if c.UI.StableRounds <= 0 {
		return fmt.Errorf("ui.stable_rounds must be positive, got %d", c.UI.StableRounds)
	}
	if c.UI.PollInterval <= 0 {
		return fmt.Errorf("ui.poll_interval must be positive, got %s", c.UI.PollInterval)
	}
	return nil
}
