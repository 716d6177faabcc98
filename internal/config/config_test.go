package config

import (
	"os"
	"path/filepath"
	"testing"

	tskverrors "github.com/xtxerr/tskv/internal/errors"
)

func validMetric() MetricConfig {
	max := uint64(1 << 20)
	return MetricConfig{
		Name:             "cpu",
		AggregationTypes: []string{"sum", "count"},
		Memtable: MemtableConfig{
			BucketInterval: 1,
			MaxBytesSize:   &max,
		},
		Levels: []LevelConfig{
			{BucketInterval: 1, LevelDuration: 3600},
			{BucketInterval: 60, LevelDuration: 86400},
		},
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestValidConfigPasses(t *testing.T) {
	cfg := &Config{PageStore: PageStoreConfig{Kind: "memory"}, Metrics: []MetricConfig{validMetric()}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got: %v", err)
	}
}

func TestValidateRejectsUnknownPageStoreKind(t *testing.T) {
	cfg := &Config{PageStore: PageStoreConfig{Kind: "s3"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown page_store.kind")
	}
}

func TestValidateRequiresDiskDir(t *testing.T) {
	cfg := &Config{PageStore: PageStoreConfig{Kind: "disk"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when disk page store has no dir")
	}
}

func TestValidateRejectsDuplicateMetricNames(t *testing.T) {
	m := validMetric()
	cfg := &Config{PageStore: PageStoreConfig{Kind: "memory"}, Metrics: []MetricConfig{m, m}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for duplicate metric names")
	}
}

func TestValidateRejectsUnknownAggregation(t *testing.T) {
	m := validMetric()
	m.AggregationTypes = []string{"bogus"}
	cfg := &Config{PageStore: PageStoreConfig{Kind: "memory"}, Metrics: []MetricConfig{m}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for an unknown aggregation type")
	}
}

func TestValidateRejectsAvgAsStoredAggregation(t *testing.T) {
	m := validMetric()
	m.AggregationTypes = []string{"avg"}
	cfg := &Config{PageStore: PageStoreConfig{Kind: "memory"}, Metrics: []MetricConfig{m}}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error listing avg as a stored aggregation")
	}
	if !tskverrors.IsInvalidOption(err) && !tskverrors.IsLogicFault(err) {
		t.Errorf("expected an InvalidOption-flavored error, got: %v", err)
	}
}

func TestValidateRequiresFlushThreshold(t *testing.T) {
	m := validMetric()
	m.Memtable.MaxBytesSize = nil
	m.Memtable.MaxAge = nil
	cfg := &Config{PageStore: PageStoreConfig{Kind: "memory"}, Metrics: []MetricConfig{m}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when neither max_bytes_size nor max_age_us is set")
	}
}

func TestValidateRequiresLevel0MatchMemtableInterval(t *testing.T) {
	m := validMetric()
	m.Levels[0].BucketInterval = 5
	cfg := &Config{PageStore: PageStoreConfig{Kind: "memory"}, Metrics: []MetricConfig{m}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when levels[0] interval != memtable interval")
	}
}

func TestValidateRequiresLevelIntervalMultiple(t *testing.T) {
	m := validMetric()
	// A third level whose interval isn't a multiple of levels[1]'s 60.
	m.Levels = append(m.Levels, LevelConfig{BucketInterval: 85, LevelDuration: 999999})
	cfg := &Config{PageStore: PageStoreConfig{Kind: "memory"}, Metrics: []MetricConfig{m}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when a level interval is not a multiple of the previous")
	}
}

func TestValidateRejectsStoreRawNotPrefix(t *testing.T) {
	m := validMetric()
	m.Memtable.StoreRaw = false
	m.Levels[0].StoreRaw = true
	cfg := &Config{PageStore: PageStoreConfig{Kind: "memory"}, Metrics: []MetricConfig{m}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when store_raw is set on a level but not the memtable")
	}
}

func TestLoadReadsAndValidatesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
page_store:
  kind: memory
metrics:
  - name: cpu
    aggregation_types: [sum, count]
    memtable:
      bucket_interval_us: 1
      max_bytes_size: 1048576
    levels:
      - bucket_interval_us: 1
        level_duration_us: 3600
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Metrics) != 1 || cfg.Metrics[0].Name != "cpu" {
		t.Errorf("unexpected metrics: %+v", cfg.Metrics)
	}
}

func TestLoadPropagatesMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected an error loading a missing config file")
	}
}
