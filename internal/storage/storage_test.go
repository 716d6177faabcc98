package storage

import (
	"path/filepath"
	"testing"

	"github.com/xtxerr/tskv/internal/column"
	tskverrors "github.com/xtxerr/tskv/internal/errors"
	"github.com/xtxerr/tskv/internal/level"
	"github.com/xtxerr/tskv/internal/memtable"
	"github.com/xtxerr/tskv/internal/model"
	"github.com/xtxerr/tskv/internal/pagestore"

	"github.com/xtxerr/tskv/internal/config"
)

func validOptions() Options {
	max := uint64(1 << 20)
	return Options{
		AggregationTypes: []column.Kind{column.Sum},
		Memtable:         memtable.Options{BucketInterval: 1, MaxBytesSize: &max},
		Levels:           []level.Options{{BucketInterval: 1, LevelDuration: 100}},
	}
}

func TestInitMetricAssignsDenseIDs(t *testing.T) {
	s := New(pagestore.NewMemStore())

	id0, err := s.InitMetric(validOptions())
	if err != nil {
		t.Fatalf("InitMetric: %v", err)
	}
	id1, err := s.InitMetric(validOptions())
	if err != nil {
		t.Fatalf("InitMetric: %v", err)
	}
	if id0 != 0 || id1 != 1 {
		t.Errorf("ids = %d, %d, want 0, 1", id0, id1)
	}
}

func TestInitMetricRejectsInvalidOptions(t *testing.T) {
	s := New(pagestore.NewMemStore())
	opts := validOptions()
	opts.AggregationTypes = nil

	_, err := s.InitMetric(opts)
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if !tskverrors.IsInvalidOption(err) {
		t.Errorf("expected an InvalidOption error, got: %v", err)
	}
}

func TestWriteReadFlushByMetricID(t *testing.T) {
	s := New(pagestore.NewMemStore())
	id, err := s.InitMetric(validOptions())
	if err != nil {
		t.Fatalf("InitMetric: %v", err)
	}

	recs := model.Records{{Timestamp: 0, Value: 1}, {Timestamp: 1, Value: 2}}
	if err := s.Write(id, recs); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := s.Read(id, model.TimeRange{Start: 0, End: 2}, column.Sum)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	agg := got.(*column.AggregateColumn)
	if len(agg.Values()) != 2 || agg.Values()[0] != 1 || agg.Values()[1] != 2 {
		t.Errorf("values = %v, want [1 2]", agg.Values())
	}

	if err := s.Flush(id); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got, err = s.Read(id, model.TimeRange{Start: 0, End: 2}, column.Sum)
	if err != nil {
		t.Fatalf("Read after flush: %v", err)
	}
	agg = got.(*column.AggregateColumn)
	if len(agg.Values()) != 2 {
		t.Errorf("values after flush = %v, want len 2", agg.Values())
	}
}

func TestUnknownMetricIDReturnsNotFound(t *testing.T) {
	s := New(pagestore.NewMemStore())

	if _, err := s.Read(42, model.TimeRange{Start: 0, End: 1}, column.Sum); err == nil {
		t.Fatal("expected an error for an unknown metric id")
	} else if !tskverrors.IsNotFound(err) {
		t.Errorf("expected a NotFound error, got: %v", err)
	}

	if err := s.Write(42, model.Records{{Timestamp: 0, Value: 1}}); err == nil || !tskverrors.IsNotFound(err) {
		t.Errorf("Write: expected a NotFound error, got: %v", err)
	}
	if err := s.Flush(42); err == nil || !tskverrors.IsNotFound(err) {
		t.Errorf("Flush: expected a NotFound error, got: %v", err)
	}
}

func TestOpenBootstrapsFromConfigInMemory(t *testing.T) {
	max := uint64(1 << 20)
	cfg := &config.Config{
		PageStore: config.PageStoreConfig{Kind: "memory"},
		Metrics: []config.MetricConfig{
			{
				Name:             "cpu",
				AggregationTypes: []string{"sum"},
				Memtable:         config.MemtableConfig{BucketInterval: 1, MaxBytesSize: &max},
				Levels:           []config.LevelConfig{{BucketInterval: 1, LevelDuration: 100}},
			},
			{
				Name:             "mem",
				AggregationTypes: []string{"max"},
				Memtable:         config.MemtableConfig{BucketInterval: 1, MaxBytesSize: &max},
				Levels:           []config.LevelConfig{{BucketInterval: 1, LevelDuration: 100}},
			},
		},
	}

	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	cpuID, ok := s.names["cpu"]
	if !ok || cpuID != 0 {
		t.Errorf("cpu id = %v, ok = %v, want 0, true", cpuID, ok)
	}
	memID, ok := s.names["mem"]
	if !ok || memID != 1 {
		t.Errorf("mem id = %v, ok = %v, want 1, true", memID, ok)
	}

	if err := s.Write(cpuID, model.Records{{Timestamp: 0, Value: 5}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestOpenBootstrapsFromConfigOnDisk(t *testing.T) {
	dir := t.TempDir()
	max := uint64(1 << 20)
	cfg := &config.Config{
		PageStore: config.PageStoreConfig{Kind: "disk", Dir: filepath.Join(dir, "pages")},
		Metrics: []config.MetricConfig{
			{
				Name:             "cpu",
				AggregationTypes: []string{"sum"},
				Memtable:         config.MemtableConfig{BucketInterval: 1, MaxBytesSize: &max},
				Levels:           []config.LevelConfig{{BucketInterval: 1, LevelDuration: 100}},
			},
		},
	}

	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	id := s.names["cpu"]
	if err := s.Write(id, model.Records{{Timestamp: 0, Value: 5}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Flush(id); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestFlushAllFlushesEveryMetric(t *testing.T) {
	s := New(pagestore.NewMemStore())
	id0, _ := s.InitMetric(validOptions())
	id1, _ := s.InitMetric(validOptions())

	if err := s.Write(id0, model.Records{{Timestamp: 0, Value: 1}}); err != nil {
		t.Fatalf("Write id0: %v", err)
	}
	if err := s.Write(id1, model.Records{{Timestamp: 0, Value: 2}}); err != nil {
		t.Fatalf("Write id1: %v", err)
	}

	if err := s.FlushAll(); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}

	for _, id := range []MetricID{id0, id1} {
		got, err := s.Read(id, model.TimeRange{Start: 0, End: 1}, column.Sum)
		if err != nil {
			t.Fatalf("Read metric %d: %v", id, err)
		}
		if got.IsEmpty() {
			t.Errorf("metric %d: expected data to survive FlushAll, got empty column", id)
		}
	}
}
