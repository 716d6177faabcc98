// Package config loads and validates the engine's YAML configuration:
// the page store backing every level, and per-metric memtable/level
// cascade settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/tskv/internal/column"
	"github.com/xtxerr/tskv/internal/errors"
	"github.com/xtxerr/tskv/internal/model"
)

// Config is the top-level configuration: one page store shared by
// every level of every metric, plus the metrics themselves.
type Config struct {
	// PageStore configures the blob store backing every level.
	PageStore PageStoreConfig `yaml:"page_store"`

	// Metrics lists every metric the engine initializes at startup.
	Metrics []MetricConfig `yaml:"metrics"`
}

// PageStoreConfig selects and configures the PageStore implementation.
type PageStoreConfig struct {
	// Kind is "disk" or "memory".
	Kind string `yaml:"kind"`

	// Dir is the root directory for a disk-backed store. Required when
	// Kind is "disk".
	Dir string `yaml:"dir"`
}

// MetricConfig describes one metric's shape: which aggregations it
// keeps, its memtable policy, and its level cascade.
type MetricConfig struct {
	// Name identifies the metric for logging and error messages.
	Name string `yaml:"name"`

	// AggregationTypes names the stored aggregates this metric keeps
	// (sum, count, min, max, last). Avg is derived and never listed.
	AggregationTypes []string `yaml:"aggregation_types"`

	// Memtable configures the in-RAM tier.
	Memtable MemtableConfig `yaml:"memtable"`

	// Levels configures the persistent cascade, shallowest first.
	Levels []LevelConfig `yaml:"levels"`
}

// MemtableConfig configures the in-RAM tier of one metric.
type MemtableConfig struct {
	// BucketInterval is the in-memory aggregate resolution, in
	// microseconds.
	BucketInterval model.Duration `yaml:"bucket_interval_us"`

	// MaxBytesSize, if set, triggers a flush once the memtable's
	// estimated footprint exceeds it.
	MaxBytesSize *uint64 `yaml:"max_bytes_size"`

	// MaxAge, if set, triggers a flush once the memtable's held time
	// span reaches it, in microseconds.
	MaxAge *model.Duration `yaml:"max_age_us"`

	// StoreRaw keeps raw timestamp/value columns for raw queries.
	StoreRaw bool `yaml:"store_raw"`
}

// LevelConfig configures one tier of the persistent cascade.
type LevelConfig struct {
	// BucketInterval is this level's aggregate resolution, in
	// microseconds.
	BucketInterval model.Duration `yaml:"bucket_interval_us"`

	// LevelDuration is the time span that triggers a rollover into the
	// next level, in microseconds.
	LevelDuration model.Duration `yaml:"level_duration_us"`

	// StoreRaw persists raw columns at this level.
	StoreRaw bool `yaml:"store_raw"`
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns a configuration with no metrics and an
// in-memory page store, suitable as a base for Load's defaults or for
// tests.
func DefaultConfig() *Config {
	return &Config{
		PageStore: PageStoreConfig{Kind: "memory"},
	}
}

// Validate checks the configuration for InvalidOption violations,
// collecting every one found rather than stopping at the first.
func (c *Config) Validate() error {
	v := errors.NewValidationErrors()

	switch c.PageStore.Kind {
	case "memory":
	case "disk":
		if c.PageStore.Dir == "" {
			v.AddField("page_store.dir", "required when page_store.kind is \"disk\"")
		}
	default:
		v.AddField("page_store.kind", fmt.Sprintf("must be \"disk\" or \"memory\", got %q", c.PageStore.Kind))
	}

	seen := make(map[string]bool, len(c.Metrics))
	for i, m := range c.Metrics {
		if m.Name == "" {
			v.AddField(fmt.Sprintf("metrics[%d].name", i), "must not be empty")
		} else if seen[m.Name] {
			v.AddField(fmt.Sprintf("metrics[%d].name", i), fmt.Sprintf("duplicate metric name %q", m.Name))
		}
		seen[m.Name] = true

		if err := m.validate(); err != nil {
			var ve *errors.ValidationErrors
			if errors.As(err, &ve) {
				for _, e := range ve.Errors {
					v.Add(fmt.Errorf("metrics[%d] %q: %w", i, m.Name, e))
				}
				continue
			}
			v.Add(fmt.Errorf("metrics[%d] %q: %w", i, m.Name, err))
		}
	}

	return v.Err()
}

func (m *MetricConfig) validate() error {
	v := errors.NewValidationErrors()

	if len(m.AggregationTypes) == 0 {
		v.AddField("aggregation_types", "must list at least one aggregation")
	}
	for _, name := range m.AggregationTypes {
		kind, ok := column.ParseKind(name)
		if !ok {
			v.AddField("aggregation_types", fmt.Sprintf("unknown aggregation %q", name))
			continue
		}
		if !kind.IsStoredAggregate() {
			v.Add(fmt.Errorf("aggregation_types: %q: %w", name, errors.ErrAggregationNone))
		}
	}

	if m.Memtable.BucketInterval == 0 {
		v.AddField("memtable.bucket_interval_us", "must be positive")
	}
	if m.Memtable.MaxBytesSize == nil && m.Memtable.MaxAge == nil {
		v.Add(errors.ErrNoFlushThreshold)
	}

	if len(m.Levels) == 0 {
		v.AddField("levels", "must configure at least one level")
	} else {
		if m.Levels[0].BucketInterval != m.Memtable.BucketInterval {
			v.Add(fmt.Errorf("levels[0].bucket_interval_us %d != memtable.bucket_interval_us %d: %w",
				m.Levels[0].BucketInterval, m.Memtable.BucketInterval, errors.ErrLevelIntervalMismatch))
		}
		for i := 1; i < len(m.Levels); i++ {
			prev, cur := m.Levels[i-1].BucketInterval, m.Levels[i].BucketInterval
			if cur == 0 || uint64(cur)%uint64(prev) != 0 {
				v.Add(fmt.Errorf("levels[%d].bucket_interval_us %d is not a multiple of levels[%d]'s %d: %w",
					i, cur, i-1, prev, errors.ErrLevelIntervalNotMultiple))
			}
		}

		rawPrefix := m.Memtable.StoreRaw
		for i, lvl := range m.Levels {
			if lvl.StoreRaw && !rawPrefix {
				v.AddField(fmt.Sprintf("levels[%d].store_raw", i), "may only be set on a prefix starting from the memtable")
			}
			rawPrefix = rawPrefix && lvl.StoreRaw
		}
	}

	return v.Err()
}
