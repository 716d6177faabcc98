package column

import (
	"github.com/xtxerr/tskv/internal/errors"
	"github.com/xtxerr/tskv/internal/model"
)

// AggregateColumn is the concrete type for the five stored-aggregate
// kinds (Sum, Count, Min, Max, Last). Behavior differs only by the
// reducer looked up from Kind; the bucket mechanics live in
// aggregateCore.
type AggregateColumn struct {
	kind Kind
	core aggregateCore
}

// NewAggregateColumn creates an empty column of the given stored
// aggregate kind at the given bucket interval.
func NewAggregateColumn(kind Kind, interval model.Duration) *AggregateColumn {
	if !kind.IsStoredAggregate() {
		panic("column: NewAggregateColumn called with non-aggregate kind " + kind.String())
	}
	return &AggregateColumn{kind: kind, core: aggregateCore{interval: interval}}
}

// Kind returns the column's aggregate kind.
func (c *AggregateColumn) Kind() Kind { return c.kind }

// TimeRange returns the range the column currently covers.
func (c *AggregateColumn) TimeRange() model.TimeRange { return c.core.timeRange() }

// IsEmpty reports whether the column holds no buckets.
func (c *AggregateColumn) IsEmpty() bool { return c.core.isEmpty() }

// BucketInterval returns the column's bucket width.
func (c *AggregateColumn) BucketInterval() model.Duration { return c.core.interval }

// StartTime returns the column's aligned start time.
func (c *AggregateColumn) StartTime() model.TimePoint { return c.core.startTime }

// Values returns a copy of the bucket contents, oldest first.
func (c *AggregateColumn) Values() []float64 {
	out := make([]float64, len(c.core.buckets))
	copy(out, c.core.buckets)
	return out
}

// Write folds a batch of timestamp-sorted records into the column.
func (c *AggregateColumn) Write(records model.Records) error {
	return c.core.write(records, reducerFor(c.kind))
}

// Read returns a new column covering the intersection of r with this
// column's data, per §4.1's bucket-range read rule.
func (c *AggregateColumn) Read(r model.TimeRange) *AggregateColumn {
	sub := c.core.read(r)
	return &AggregateColumn{kind: c.kind, core: sub}
}

// Merge folds other into c in place. other must be the same kind and
// must not start before c (the merge-order contract).
func (c *AggregateColumn) Merge(other StorableColumn) error {
	o, ok := other.(*AggregateColumn)
	if !ok || o.kind != c.kind {
		return errors.Wrapf(errors.ErrColumnKindMismatch, "cannot merge %v into %v", describeKind(other), c.kind)
	}
	return c.core.merge(&o.core, reducerFor(c.kind))
}

// Rescale coarsens the column to newInterval, a required multiple of
// the current bucket interval.
func (c *AggregateColumn) Rescale(newInterval model.Duration) error {
	return c.core.rescale(newInterval, reducerFor(c.kind))
}

// Extract moves the column's contents into a fresh, independent column,
// leaving c empty (but still at the same bucket interval).
func (c *AggregateColumn) Extract() StorableColumn {
	extracted := c.core.extract()
	return &AggregateColumn{kind: c.kind, core: extracted}
}

func describeKind(c Column) string {
	if c == nil {
		return "<nil>"
	}
	return c.Kind().String()
}
