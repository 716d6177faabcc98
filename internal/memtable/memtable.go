// Package memtable implements the per-metric in-RAM accumulator: one
// column per configured stored aggregation, plus optionally a raw
// timestamps/values pair, written in lifetime order and flushed as a
// whole once a size or age threshold is crossed.
package memtable

import (
	"github.com/xtxerr/tskv/internal/column"
	"github.com/xtxerr/tskv/internal/errors"
	"github.com/xtxerr/tskv/internal/model"
)

// Options configures a memtable's flush policy and bucket resolution.
type Options struct {
	// BucketInterval is the in-memory aggregate resolution.
	BucketInterval model.Duration
	// MaxBytesSize, if set, triggers a flush once exceeded.
	MaxBytesSize *uint64
	// MaxAge, if set, triggers a flush once the held time span reaches it.
	MaxAge *model.Duration
	// StoreRaw keeps raw timestamp/value columns for raw queries.
	StoreRaw bool
}

// MetricOptions names which stored aggregates the memtable maintains.
type MetricOptions struct {
	AggregationTypes []column.Kind
}

// Memtable is the in-RAM bundle of columns for one metric.
type Memtable struct {
	options Options
	columns []column.StorableColumn
}

// New builds a memtable with one fresh, empty column per configured
// aggregation, plus raw columns if StoreRaw is set.
func New(opts Options, metricOpts MetricOptions) *Memtable {
	columns := make([]column.StorableColumn, 0, len(metricOpts.AggregationTypes)+2)
	for _, kind := range metricOpts.AggregationTypes {
		columns = append(columns, column.NewAggregateColumn(kind, opts.BucketInterval))
	}
	if opts.StoreRaw {
		columns = append(columns, column.NewRawTimestampsColumn())
		columns = append(columns, column.NewRawValuesColumn())
	}
	return &Memtable{options: opts, columns: columns}
}

// Write forwards the batch to every held column.
func (m *Memtable) Write(records model.Records) error {
	for _, c := range m.columns {
		if err := c.Write(records); err != nil {
			return err
		}
	}
	return nil
}

// ReadResult is the outcome of a memtable read: the portion the
// memtable could answer, and at most one residual sub-range at the
// front that the caller must fetch from the level manager. The memtable
// only ever holds the suffix of a metric's time range, so a gap can
// only appear before what it returns.
type ReadResult struct {
	Found    column.Column
	NotFound *model.TimeRange
}

// Read looks up the column matching kind (or assembles a RawRead over
// the raw columns) and returns the intersection with r plus any
// residual front gap.
func (m *Memtable) Read(r model.TimeRange, kind column.Kind) (ReadResult, error) {
	if kind == column.RawRead {
		return m.readRaw(r)
	}

	for _, c := range m.columns {
		agg, ok := c.(*column.AggregateColumn)
		if !ok || agg.Kind() != kind {
			continue
		}
		found := agg.Read(r)
		if found.IsEmpty() {
			rangeCopy := r
			return ReadResult{NotFound: &rangeCopy}, nil
		}
		return ReadResult{Found: found, NotFound: frontGap(r, found.TimeRange())}, nil
	}
	return ReadResult{}, errors.Wrapf(errors.ErrLogicFault, "memtable: no column configured for aggregation %v", kind)
}

func (m *Memtable) readRaw(r model.TimeRange) (ReadResult, error) {
	var ts *column.RawTimestampsColumn
	var vals *column.RawValuesColumn
	for _, c := range m.columns {
		switch v := c.(type) {
		case *column.RawTimestampsColumn:
			ts = v
		case *column.RawValuesColumn:
			vals = v
		}
	}
	if ts == nil || vals == nil {
		rangeCopy := r
		return ReadResult{NotFound: &rangeCopy}, nil
	}

	paired := column.NewRawReadColumn(ts, vals)
	found := paired.Read(r)
	if found.IsEmpty() {
		rangeCopy := r
		return ReadResult{NotFound: &rangeCopy}, nil
	}
	return ReadResult{Found: found, NotFound: frontGap(r, found.TimeRange())}, nil
}

func frontGap(requested, found model.TimeRange) *model.TimeRange {
	if found.Start > requested.Start {
		gap := model.TimeRange{Start: requested.Start, End: found.Start}
		return &gap
	}
	return nil
}

// NeedFlush reports whether the memtable has crossed a configured
// size or age threshold. With neither configured, it never flushes.
func (m *Memtable) NeedFlush() bool {
	if m.options.MaxBytesSize != nil && m.bytesSize() > *m.options.MaxBytesSize {
		return true
	}

	if m.options.MaxAge == nil {
		return false
	}

	tsColumn := m.ageColumn()
	if tsColumn == nil {
		return false
	}
	return tsColumn.TimeRange().Duration() >= *m.options.MaxAge
}

// ageColumn returns the column used to measure the memtable's age:
// RawTimestamps if present, else the first configured aggregate.
// RawValues never qualifies, since it carries no time range.
func (m *Memtable) ageColumn() column.Column {
	var fallback column.Column
	for _, c := range m.columns {
		switch c.Kind() {
		case column.RawTimestamps:
			return c
		case column.RawValues:
		default:
			if fallback == nil {
				fallback = c
			}
		}
	}
	return fallback
}

// bytesSize returns the memtable's approximate in-RAM footprint:
// bucket_count*8 for aggregates, timestamps_count*8 + values_count*8
// for raw columns.
func (m *Memtable) bytesSize() uint64 {
	var size uint64
	for _, c := range m.columns {
		switch v := c.(type) {
		case *column.AggregateColumn:
			size += uint64(len(v.Values())) * 8
		case *column.RawTimestampsColumn:
			size += uint64(len(v.Timestamps())) * 8
		case *column.RawValuesColumn:
			size += uint64(len(v.Values())) * 8
		}
	}
	return size
}

// ExtractColumns moves every column's contents out into independent
// columns, leaving the memtable with fresh, empty columns for the next
// generation of writes.
func (m *Memtable) ExtractColumns() []column.StorableColumn {
	extracted := make([]column.StorableColumn, len(m.columns))
	for i, c := range m.columns {
		extracted[i] = c.Extract()
	}
	return extracted
}
