// Package storage is the engine's facade: it maps metric ids to
// metric stores, dispatches Write/Read/Flush by id, and owns the
// shared page store every level cascade is built on.
package storage

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/tskv/internal/column"
	"github.com/xtxerr/tskv/internal/config"
	"github.com/xtxerr/tskv/internal/errors"
	"github.com/xtxerr/tskv/internal/level"
	"github.com/xtxerr/tskv/internal/levelmanager"
	"github.com/xtxerr/tskv/internal/logging"
	"github.com/xtxerr/tskv/internal/memtable"
	"github.com/xtxerr/tskv/internal/metricstore"
	"github.com/xtxerr/tskv/internal/model"
	"github.com/xtxerr/tskv/internal/pagestore"
)

// MetricID names one metric within a Storage. Ids are assigned
// densely starting at 0, in InitMetric call order.
type MetricID uint64

// Options describes the shape of one metric: which aggregates it
// keeps, its memtable flush policy, and its level cascade.
type Options struct {
	AggregationTypes []column.Kind
	Memtable         memtable.Options
	Levels           []level.Options
}

// Storage is the top-level facade over every metric in the engine.
type Storage struct {
	mu      sync.RWMutex
	store   pagestore.PageStore
	metrics []*metricstore.MetricStore
	names   map[string]MetricID
}

// New creates an empty Storage backed by the given page store.
func New(store pagestore.PageStore) *Storage {
	return &Storage{store: store, names: make(map[string]MetricID)}
}

// Open builds a Storage from a loaded Config: constructs the page
// store it names, then calls InitMetric for every configured metric
// in file order, so the resulting ids match the file's metric order.
func Open(cfg *config.Config) (*Storage, error) {
	store, err := openPageStore(cfg.PageStore)
	if err != nil {
		return nil, err
	}

	s := New(store)
	for _, m := range cfg.Metrics {
		opts, err := optionsFromConfig(m)
		if err != nil {
			return nil, errors.Wrapf(err, "metric %q", m.Name)
		}
		if _, err := s.initMetricNamed(m.Name, opts); err != nil {
			return nil, errors.Wrapf(err, "metric %q", m.Name)
		}
	}
	return s, nil
}

func openPageStore(cfg config.PageStoreConfig) (pagestore.PageStore, error) {
	switch cfg.Kind {
	case "disk":
		return pagestore.NewDiskStore(cfg.Dir)
	case "memory", "":
		return pagestore.NewMemStore(), nil
	default:
		return nil, errors.Wrapf(errors.ErrInvalidOption, "page_store.kind %q", cfg.Kind)
	}
}

func optionsFromConfig(m config.MetricConfig) (Options, error) {
	kinds := make([]column.Kind, 0, len(m.AggregationTypes))
	for _, name := range m.AggregationTypes {
		kind, ok := column.ParseKind(name)
		if !ok {
			return Options{}, errors.Wrapf(errors.ErrInvalidOption, "unknown aggregation %q", name)
		}
		kinds = append(kinds, kind)
	}

	levels := make([]level.Options, len(m.Levels))
	for i, lvl := range m.Levels {
		levels[i] = level.Options{
			BucketInterval: lvl.BucketInterval,
			LevelDuration:  lvl.LevelDuration,
			StoreRaw:       lvl.StoreRaw,
		}
	}

	return Options{
		AggregationTypes: kinds,
		Memtable: memtable.Options{
			BucketInterval: m.Memtable.BucketInterval,
			MaxBytesSize:   m.Memtable.MaxBytesSize,
			MaxAge:         m.Memtable.MaxAge,
			StoreRaw:       m.Memtable.StoreRaw,
		},
		Levels: levels,
	}, nil
}

// InitMetric validates opts and creates a new, empty metric, returning
// its assigned id. Validation failures are reported as a single
// aggregated InvalidOption error naming every violation found.
func (s *Storage) InitMetric(opts Options) (MetricID, error) {
	return s.initMetricNamed("", opts)
}

func (s *Storage) initMetricNamed(name string, opts Options) (MetricID, error) {
	if err := validate(opts); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mt := memtable.New(opts.Memtable, memtable.MetricOptions{AggregationTypes: opts.AggregationTypes})
	lm := levelmanager.New(opts.Levels, s.store)
	id := MetricID(len(s.metrics))
	s.metrics = append(s.metrics, metricstore.New(mt, lm))
	if name != "" {
		s.names[name] = id
	}
	logging.Debug("metric initialized", "id", id, "name", name, "aggregation_types", opts.AggregationTypes)
	return id, nil
}

func validate(opts Options) error {
	v := errors.NewValidationErrors()

	if len(opts.AggregationTypes) == 0 {
		v.AddField("aggregation_types", "must list at least one aggregation")
	}
	for _, k := range opts.AggregationTypes {
		if !k.IsStoredAggregate() {
			v.Add(errors.Wrapf(errors.ErrAggregationNone, "%v", k))
		}
	}

	if opts.Memtable.BucketInterval == 0 {
		v.AddField("memtable.bucket_interval", "must be positive")
	}
	if opts.Memtable.MaxBytesSize == nil && opts.Memtable.MaxAge == nil {
		v.Add(errors.ErrNoFlushThreshold)
	}

	if len(opts.Levels) == 0 {
		v.AddField("levels", "must configure at least one level")
	} else {
		if opts.Levels[0].BucketInterval != opts.Memtable.BucketInterval {
			v.Add(errors.Wrapf(errors.ErrLevelIntervalMismatch, "levels[0]=%d memtable=%d",
				opts.Levels[0].BucketInterval, opts.Memtable.BucketInterval))
		}
		for i := 1; i < len(opts.Levels); i++ {
			prev, cur := opts.Levels[i-1].BucketInterval, opts.Levels[i].BucketInterval
			if cur == 0 || uint64(cur)%uint64(prev) != 0 {
				v.Add(errors.Wrapf(errors.ErrLevelIntervalNotMultiple, "levels[%d]=%d levels[%d]=%d", i, cur, i-1, prev))
			}
		}

		rawPrefix := opts.Memtable.StoreRaw
		for i, lvl := range opts.Levels {
			if lvl.StoreRaw && !rawPrefix {
				v.AddField("levels", errors.Wrapf(errors.ErrRawNotPrefix, "levels[%d]", i).Error())
			}
			rawPrefix = rawPrefix && lvl.StoreRaw
		}
	}

	return v.Err()
}

func (s *Storage) metric(id MetricID) (*metricstore.MetricStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if int(id) >= len(s.metrics) {
		return nil, errors.NewNotFound("metric", strconv.FormatUint(uint64(id), 10))
	}
	return s.metrics[id], nil
}

// Write appends a batch of records to a metric's memtable.
func (s *Storage) Write(id MetricID, records model.Records) error {
	m, err := s.metric(id)
	if err != nil {
		return err
	}
	return m.Write(records)
}

// Read answers a query for one aggregation kind over a metric.
func (s *Storage) Read(id MetricID, r model.TimeRange, kind column.Kind) (column.Column, error) {
	m, err := s.metric(id)
	if err != nil {
		return nil, err
	}
	return m.Read(r, kind)
}

// Flush forces one metric's memtable into its level cascade.
func (s *Storage) Flush(id MetricID) error {
	m, err := s.metric(id)
	if err != nil {
		return err
	}
	return m.Flush()
}

// FlushAll forces every metric's memtable into its level cascade,
// concurrently: metrics never share state, so there is no coupling to
// serialize across.
func (s *Storage) FlushAll() error {
	s.mu.RLock()
	metrics := make([]*metricstore.MetricStore, len(s.metrics))
	copy(metrics, s.metrics)
	s.mu.RUnlock()

	g, _ := errgroup.WithContext(context.Background())
	for _, m := range metrics {
		m := m
		g.Go(m.Flush)
	}
	return g.Wait()
}
