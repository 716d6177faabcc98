package column

import (
	"github.com/xtxerr/tskv/internal/errors"
	"github.com/xtxerr/tskv/internal/model"
)

// AvgColumn is the synthesized, read-only average kind. It is never
// stored and never directly written or merged — both operations signal
// a LogicFault, matching §4.1's "Avg's merge and write are not
// supported" contract.
type AvgColumn struct {
	core aggregateCore
}

func (c *AvgColumn) Kind() Kind                 { return Avg }
func (c *AvgColumn) TimeRange() model.TimeRange { return c.core.timeRange() }
func (c *AvgColumn) IsEmpty() bool              { return c.core.isEmpty() }

// Values returns a copy of the averaged bucket contents.
func (c *AvgColumn) Values() []float64 {
	out := make([]float64, len(c.core.buckets))
	copy(out, c.core.buckets)
	return out
}

// BucketInterval returns the column's bucket width.
func (c *AvgColumn) BucketInterval() model.Duration { return c.core.interval }

// StartTime returns the column's aligned start time.
func (c *AvgColumn) StartTime() model.TimePoint { return c.core.startTime }

// Write always fails: Avg is synthesized, never written directly.
func (c *AvgColumn) Write(model.Records) error {
	return errors.Wrapf(errors.ErrAvgUnsupported, "Avg.write")
}

// Merge always fails: Avg is synthesized, never merged directly.
func (c *AvgColumn) Merge(StorableColumn) error {
	return errors.Wrapf(errors.ErrAvgUnsupported, "Avg.merge")
}

// NewAvgColumn builds an Avg column directly from already-averaged
// bucket contents, used on the read-transport path where a level or
// the memtable hands back a materialized average.
func NewAvgColumn(buckets []float64, startTime model.TimePoint, interval model.Duration) *AvgColumn {
	b := make([]float64, len(buckets))
	copy(b, buckets)
	return &AvgColumn{core: aggregateCore{startTime: startTime, interval: interval, buckets: b}}
}

// NewAvgFromSumCount synthesizes an Avg column from a same-shape Sum and
// Count column pair: elementwise sum_i / count_i, with count_i == 0
// yielding 0. sum and count must share interval and start time, or a
// LogicFault is returned, per §4.1.
func NewAvgFromSumCount(sum, count *AggregateColumn) (*AvgColumn, error) {
	if sum.IsEmpty() || count.IsEmpty() {
		return &AvgColumn{}, nil
	}
	if sum.BucketInterval() != count.BucketInterval() || sum.StartTime() != count.StartTime() {
		return nil, errors.Wrapf(errors.ErrAvgShapeMismatch, "sum interval/start (%d,%d) != count interval/start (%d,%d)",
			sum.BucketInterval(), sum.StartTime(), count.BucketInterval(), count.StartTime())
	}

	sumValues := sum.Values()
	countValues := count.Values()
	n := len(sumValues)
	if len(countValues) < n {
		n = len(countValues)
	}

	avg := make([]float64, n)
	for i := 0; i < n; i++ {
		if countValues[i] == 0 {
			avg[i] = 0
			continue
		}
		avg[i] = sumValues[i] / countValues[i]
	}
	return NewAvgColumn(avg, sum.StartTime(), sum.BucketInterval()), nil
}
