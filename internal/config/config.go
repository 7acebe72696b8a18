// Package config holds the externally supplied data used by the cleaning
// pipeline (currency rate table, category whitelist) and the environment
// configuration for the API service.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Pipeline is the data configuration for one cleaning run. The rate table
// and the category whitelist are configuration, not code, so the core stays
// testable against synthetic tables.
type Pipeline struct {
	// BaseCurrency is the currency every monetary column is converted into.
	BaseCurrency string `yaml:"base_currency"`

	// CurrencyRates maps an uppercase currency code to its multiplicative
	// rate against the base currency.
	CurrencyRates map[string]float64 `yaml:"currency_rates"`

	// Categories is the ordered whitelist of canonical category names.
	// Order matters: the category cleaner takes the first match.
	Categories []string `yaml:"categories"`

	// StrictCurrency makes conversion fail on an unknown currency code
	// instead of silently assuming parity with the base currency.
	StrictCurrency bool `yaml:"strict_currency"`

	// MaxSampleCorrections caps the individual corrections listed in the
	// quality report.
	MaxSampleCorrections int `yaml:"max_sample_corrections"`
}

// DefaultPipeline returns the built-in configuration matching the reference
// rate table and whitelist.
func DefaultPipeline() *Pipeline {
	return &Pipeline{
		BaseCurrency: "BGN",
		CurrencyRates: map[string]float64{
			"EUR": 1.96,
			"USD": 1.80,
			"GBP": 2.30,
			"BGN": 1.00,
		},
		Categories:           []string{"Marketing", "Operations", "Sales", "R&D"},
		StrictCurrency:       false,
		MaxSampleCorrections: 10,
	}
}

// LoadPipeline reads a YAML pipeline configuration from path. Fields absent
// from the file keep their default values.
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadPipeline: reading %q: %w", path, err)
	}

	cfg := DefaultPipeline()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("LoadPipeline: parsing %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("LoadPipeline: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot work with.
func (c *Pipeline) Validate() error {
	if c.BaseCurrency == "" {
		return fmt.Errorf("base_currency must not be empty")
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("categories must list at least one canonical category")
	}
	if c.MaxSampleCorrections < 0 {
		return fmt.Errorf("max_sample_corrections must not be negative, got %d", c.MaxSampleCorrections)
	}
	for code, rate := range c.CurrencyRates {
		if rate <= 0 {
			return fmt.Errorf("currency rate for %s must be positive, got %v", code, rate)
		}
	}
	return nil
}

// Service is the environment configuration for the API server and worker.
type Service struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Bucket      string `envconfig:"GCS_BUCKET"`
	QueueSize   int    `envconfig:"QUEUE_SIZE" default:"100"`
	WorkerCount int    `envconfig:"WORKER_COUNT" default:"5"`
}

// LoadService reads the service configuration from FINCLEAN_* environment
// variables.
func LoadService() (*Service, error) {
	var cfg Service
	if err := envconfig.Process("finclean", &cfg); err != nil {
		return nil, fmt.Errorf("LoadService: %w", err)
	}
	return &cfg, nil
}
