// Package metricstore composes one metric's memtable with its level
// cascade, and synthesizes Avg from Sum and Count at read time since
// Avg is never itself written or stored (§4.1).
package metricstore

import (
	"sync"

	"github.com/xtxerr/tskv/internal/column"
	"github.com/xtxerr/tskv/internal/errors"
	"github.com/xtxerr/tskv/internal/levelmanager"
	"github.com/xtxerr/tskv/internal/memtable"
	"github.com/xtxerr/tskv/internal/model"
)

// MetricStore is the write/read/flush unit for one metric.
type MetricStore struct {
	mu       sync.Mutex
	memtable *memtable.Memtable
	levels   *levelmanager.LevelManager
}

// New composes an already-configured memtable and level manager into a
// metric store.
func New(mt *memtable.Memtable, lm *levelmanager.LevelManager) *MetricStore {
	return &MetricStore{memtable: mt, levels: lm}
}

// Write appends records to the memtable, flushing it into the level
// cascade if it has crossed its configured size or age threshold.
func (s *MetricStore) Write(records model.Records) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.memtable.Write(records); err != nil {
		return err
	}
	if s.memtable.NeedFlush() {
		return s.flushLocked()
	}
	return nil
}

// Flush forces the memtable's contents into the level cascade
// regardless of whether a flush threshold has been crossed.
func (s *MetricStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *MetricStore) flushLocked() error {
	columns := s.memtable.ExtractColumns()
	return s.levels.Write(columns)
}

// Read answers a query for one aggregation kind over r, stitching the
// memtable's tail against the level cascade's coverage of any gap at
// the front, and synthesizing Avg from Sum and Count when requested.
func (s *MetricStore) Read(r model.TimeRange, kind column.Kind) (column.Column, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind == column.Avg {
		return s.readAvg(r)
	}
	return s.readOne(r, kind)
}

func (s *MetricStore) readAvg(r model.TimeRange) (column.Column, error) {
	sumResult, err := s.readOne(r, column.Sum)
	if err != nil {
		return nil, err
	}
	countResult, err := s.readOne(r, column.Count)
	if err != nil {
		return nil, err
	}

	sumCol, ok := sumResult.(*column.AggregateColumn)
	if !ok {
		return nil, errors.Wrapf(errors.ErrAvgShapeMismatch, "avg: sum read returned %T", sumResult)
	}
	countCol, ok := countResult.(*column.AggregateColumn)
	if !ok {
		return nil, errors.Wrapf(errors.ErrAvgShapeMismatch, "avg: count read returned %T", countResult)
	}
	return column.NewAvgFromSumCount(sumCol, countCol)
}

// readOne answers a non-Avg query: the memtable only ever holds the
// suffix of a metric's lifetime, so any gap it reports is necessarily
// at the front and is filled from the level cascade, then merged in
// with the persisted data as the receiver (older) and the memtable's
// contribution as the argument (newer), per the merge-order contract.
func (s *MetricStore) readOne(r model.TimeRange, kind column.Kind) (column.Column, error) {
	mtResult, err := s.memtable.Read(r, kind)
	if err != nil {
		return nil, err
	}
	if mtResult.NotFound == nil {
		return mtResult.Found, nil
	}

	persisted, err := s.levels.Read(*mtResult.NotFound, kind)
	if err != nil {
		return nil, err
	}
	if mtResult.Found == nil {
		return persisted, nil
	}
	return mergeInto(persisted, mtResult.Found)
}

func mergeInto(older, newer column.Column) (column.Column, error) {
	if rr, ok := older.(*column.RawReadColumn); ok {
		nr, ok := newer.(*column.RawReadColumn)
		if !ok {
			return nil, errors.Wrapf(errors.ErrColumnKindMismatch, "metricstore: merging %T into RawRead", newer)
		}
		if err := rr.Merge(nr); err != nil {
			return nil, err
		}
		return rr, nil
	}

	o, ok := older.(column.StorableColumn)
	if !ok {
		return nil, errors.Wrapf(errors.ErrColumnKindMismatch, "metricstore: %T is not storable", older)
	}
	n, ok := newer.(column.StorableColumn)
	if !ok {
		return nil, errors.Wrapf(errors.ErrColumnKindMismatch, "metricstore: %T is not storable", newer)
	}
	if err := o.Merge(n); err != nil {
		return nil, err
	}
	return o, nil
}
