package column

import (
	"github.com/xtxerr/tskv/internal/errors"
	"github.com/xtxerr/tskv/internal/model"
)

// aggregateCore implements the shared write/read/merge/rescale skeleton
// for every stored-aggregate kind (Sum, Count, Min, Max, Last). Each
// concrete type embeds a core and supplies its reducer.
type aggregateCore struct {
	startTime model.TimePoint
	interval  model.Duration
	buckets   []float64
}

func (c *aggregateCore) isEmpty() bool {
	return len(c.buckets) == 0
}

func (c *aggregateCore) endTime() model.TimePoint {
	return c.startTime + model.TimePoint(uint64(c.interval)*uint64(len(c.buckets)))
}

func (c *aggregateCore) timeRange() model.TimeRange {
	if c.isEmpty() {
		return model.TimeRange{}
	}
	return model.TimeRange{Start: c.startTime, End: c.endTime()}
}

// bucketIdx implements §4.1's bucket-index rule: 0 below the column's
// start, n (one past the last bucket) at or beyond its end, else plain
// integer division.
func (c *aggregateCore) bucketIdx(t model.TimePoint) int {
	if t < c.startTime {
		return 0
	}
	if t >= c.endTime() {
		return len(c.buckets)
	}
	return int((uint64(t) - uint64(c.startTime)) / uint64(c.interval))
}

func (c *aggregateCore) clone() aggregateCore {
	buckets := make([]float64, len(c.buckets))
	copy(buckets, c.buckets)
	return aggregateCore{startTime: c.startTime, interval: c.interval, buckets: buckets}
}

// write appends records, resizing the bucket array to cover up to the
// last record and filling any newly created buckets with the reducer's
// identity, then folds every record into its bucket.
func (c *aggregateCore) write(records model.Records, rdc reducer) error {
	if len(records) == 0 {
		return nil
	}

	if c.isEmpty() {
		first := records[0].Timestamp
		c.startTime = first - model.TimePoint(uint64(first)%uint64(c.interval))
	} else if records[0].Timestamp < c.startTime {
		return errors.Wrapf(errors.ErrLogicFault, "%s.write: record at %d precedes start_time %d", rdc.kind, records[0].Timestamp, c.startTime)
	}

	last := records[len(records)-1].Timestamp
	neededSize := int((uint64(last) + 1 - uint64(c.startTime) + uint64(c.interval) - 1) / uint64(c.interval))
	if neededSize < len(c.buckets) {
		return errors.Wrapf(errors.ErrLogicFault, "%s.write: would shrink column from %d to %d buckets", rdc.kind, len(c.buckets), neededSize)
	}
	if neededSize > len(c.buckets) {
		grown := make([]float64, neededSize)
		copy(grown, c.buckets)
		for i := len(c.buckets); i < neededSize; i++ {
			grown[i] = rdc.identity
		}
		c.buckets = grown
	}

	for _, rec := range records {
		idx := c.bucketIdx(rec.Timestamp)
		c.buckets[idx] = rdc.fold(c.buckets[idx], rec.Value)
	}
	return nil
}

// read implements §4.1's read-on-bucket-range rule, returning a new
// core covering the intersected buckets, aligned to this column's
// bucket_interval.
func (c *aggregateCore) read(r model.TimeRange) aggregateCore {
	if c.isEmpty() {
		return aggregateCore{interval: c.interval}
	}
	sb := c.bucketIdx(r.Start)
	eb := c.bucketIdx(r.End)
	n := len(c.buckets)
	if eb < n && uint64(r.End)%uint64(c.interval) != 0 {
		eb++
	}
	if sb == eb {
		return aggregateCore{interval: c.interval}
	}

	var start model.TimePoint
	if r.Start <= c.startTime {
		start = c.startTime + model.TimePoint(uint64(c.interval)*uint64(sb))
	} else {
		start = r.Start - model.TimePoint(uint64(r.Start-c.startTime)%uint64(c.interval))
	}

	buckets := make([]float64, eb-sb)
	copy(buckets, c.buckets[sb:eb])
	return aggregateCore{startTime: start, interval: c.interval, buckets: buckets}
}

// rescale coarsens the column to newInterval, a required multiple of
// the current interval, folding consecutive buckets that land in the
// same new-interval-aligned group.
func (c *aggregateCore) rescale(newInterval model.Duration, rdc reducer) error {
	if newInterval == 0 || uint64(newInterval)%uint64(c.interval) != 0 {
		return errors.Wrapf(errors.ErrNotAMultiple, "%s.rescale: %d is not a multiple of %d", rdc.kind, newInterval, c.interval)
	}
	if newInterval == c.interval {
		return nil
	}
	if c.isEmpty() {
		c.interval = newInterval
		c.startTime -= model.TimePoint(uint64(c.startTime) % uint64(newInterval))
		return nil
	}

	newBuckets := make([]float64, 0, len(c.buckets))
	acc := rdc.identity
	var curGroup int64 = -1
	for i, v := range c.buckets {
		bucketStart := uint64(c.startTime) + uint64(c.interval)*uint64(i)
		group := int64(bucketStart / uint64(newInterval))
		if i == 0 {
			curGroup = group
		} else if group != curGroup {
			newBuckets = append(newBuckets, acc)
			acc = rdc.identity
			curGroup = group
		}
		acc = rdc.combine(acc, v)
	}
	newBuckets = append(newBuckets, acc)

	c.buckets = newBuckets
	c.interval = newInterval
	c.startTime -= model.TimePoint(uint64(c.startTime) % uint64(newInterval))
	return nil
}

// merge folds other into c in place, per §4.1's merge algebra. other
// must satisfy other.startTime >= c.startTime once intervals agree;
// mismatched intervals are resolved by rescaling the finer side up to
// the coarser, as the spec requires.
func (c *aggregateCore) merge(other *aggregateCore, rdc reducer) error {
	if other.isEmpty() {
		return nil
	}
	if c.isEmpty() {
		*c = other.clone()
		return nil
	}
	if other.startTime < c.startTime {
		return errors.Wrapf(errors.ErrMergeOrderViolation, "%s.merge: other.start %d < self.start %d", rdc.kind, other.startTime, c.startTime)
	}

	b := other
	if c.interval != b.interval {
		if c.interval < b.interval {
			if err := c.rescale(b.interval, rdc); err != nil {
				return err
			}
		} else {
			clone := b.clone()
			if err := clone.rescale(c.interval, rdc); err != nil {
				return err
			}
			b = &clone
		}
	}

	n := len(c.buckets)
	is := c.bucketIdx(b.startTime)
	ie := c.bucketIdx(b.endTime())
	if is > n {
		is = n
	}
	if ie > n {
		ie = n
	}
	for i := is; i < ie; i++ {
		c.buckets[i] = rdc.combine(c.buckets[i], b.buckets[i-is])
	}

	if b.startTime > c.endTime() {
		gap := (uint64(b.startTime) - uint64(c.endTime())) / uint64(c.interval)
		for k := uint64(0); k < gap; k++ {
			c.buckets = append(c.buckets, rdc.identity)
		}
	}

	skip := ie - is
	c.buckets = append(c.buckets, b.buckets[skip:]...)
	return nil
}

// extract moves the core's contents out into a fresh value, leaving c
// empty and ready for the next generation of writes.
func (c *aggregateCore) extract() aggregateCore {
	extracted := *c
	*c = aggregateCore{interval: c.interval}
	return extracted
}
