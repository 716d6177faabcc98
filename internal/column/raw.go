package column

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/xtxerr/tskv/internal/errors"
	"github.com/xtxerr/tskv/internal/model"
)

// RawTimestampsColumn holds a non-decreasing sequence of timestamps.
type RawTimestampsColumn struct {
	timestamps []model.TimePoint
}

// NewRawTimestampsColumn returns an empty RawTimestampsColumn.
func NewRawTimestampsColumn() *RawTimestampsColumn {
	return &RawTimestampsColumn{}
}

func (c *RawTimestampsColumn) Kind() Kind { return RawTimestamps }

// TimeRange returns [first, last+1) per §3, or an empty range if no
// timestamps have been written yet.
func (c *RawTimestampsColumn) TimeRange() model.TimeRange {
	if len(c.timestamps) == 0 {
		return model.TimeRange{}
	}
	return model.TimeRange{Start: c.timestamps[0], End: c.timestamps[len(c.timestamps)-1] + 1}
}

func (c *RawTimestampsColumn) IsEmpty() bool { return len(c.timestamps) == 0 }

// Timestamps returns a copy of the underlying sequence.
func (c *RawTimestampsColumn) Timestamps() []model.TimePoint {
	out := make([]model.TimePoint, len(c.timestamps))
	copy(out, c.timestamps)
	return out
}

func (c *RawTimestampsColumn) Write(records model.Records) error {
	if len(records) == 0 {
		return nil
	}
	if len(c.timestamps) > 0 && records[0].Timestamp < c.timestamps[len(c.timestamps)-1] {
		return errors.Wrapf(errors.ErrLogicFault, "RawTimestamps.write: record at %d precedes last timestamp %d", records[0].Timestamp, c.timestamps[len(c.timestamps)-1])
	}
	for _, r := range records {
		c.timestamps = append(c.timestamps, r.Timestamp)
	}
	return nil
}

func (c *RawTimestampsColumn) Merge(other StorableColumn) error {
	o, ok := other.(*RawTimestampsColumn)
	if !ok {
		return errors.Wrapf(errors.ErrColumnKindMismatch, "cannot merge %v into RawTimestamps", describeKind(other))
	}
	if o.IsEmpty() {
		return nil
	}
	if c.IsEmpty() {
		c.timestamps = o.Timestamps()
		return nil
	}
	if o.timestamps[0] < c.timestamps[len(c.timestamps)-1] {
		return errors.Wrapf(errors.ErrMergeOrderViolation, "RawTimestamps.merge: other starts at %d before self ends at %d", o.timestamps[0], c.timestamps[len(c.timestamps)-1])
	}
	c.timestamps = append(c.timestamps, o.timestamps...)
	return nil
}

func (c *RawTimestampsColumn) Extract() StorableColumn {
	extracted := &RawTimestampsColumn{timestamps: c.timestamps}
	c.timestamps = nil
	return extracted
}

// Serialize packs the sequence as bare u64_le timestamps.
func (c *RawTimestampsColumn) Serialize() []byte {
	buf := make([]byte, 8*len(c.timestamps))
	for i, t := range c.timestamps {
		binary.LittleEndian.PutUint64(buf[8*i:8*i+8], uint64(t))
	}
	return buf
}

// DeserializeRawTimestampsColumn is the inverse of Serialize.
func DeserializeRawTimestampsColumn(data []byte) (*RawTimestampsColumn, error) {
	if len(data)%8 != 0 {
		return nil, errors.Wrapf(errors.ErrIOFailure, "RawTimestamps: payload length %d is not a multiple of 8", len(data))
	}
	n := len(data) / 8
	timestamps := make([]model.TimePoint, n)
	for i := 0; i < n; i++ {
		timestamps[i] = model.TimePoint(binary.LittleEndian.Uint64(data[8*i : 8*i+8]))
	}
	return &RawTimestampsColumn{timestamps: timestamps}, nil
}

// RawValuesColumn holds the value sequence parallel to a
// RawTimestampsColumn. It has no independent notion of a time range.
type RawValuesColumn struct {
	values []float64
}

// NewRawValuesColumn returns an empty RawValuesColumn.
func NewRawValuesColumn() *RawValuesColumn {
	return &RawValuesColumn{}
}

func (c *RawValuesColumn) Kind() Kind                  { return RawValues }
func (c *RawValuesColumn) TimeRange() model.TimeRange  { return model.TimeRange{} }
func (c *RawValuesColumn) IsEmpty() bool               { return len(c.values) == 0 }

// Values returns a copy of the underlying sequence.
func (c *RawValuesColumn) Values() []float64 {
	out := make([]float64, len(c.values))
	copy(out, c.values)
	return out
}

func (c *RawValuesColumn) Write(records model.Records) error {
	for _, r := range records {
		c.values = append(c.values, r.Value)
	}
	return nil
}

func (c *RawValuesColumn) Merge(other StorableColumn) error {
	o, ok := other.(*RawValuesColumn)
	if !ok {
		return errors.Wrapf(errors.ErrColumnKindMismatch, "cannot merge %v into RawValues", describeKind(other))
	}
	c.values = append(c.values, o.values...)
	return nil
}

func (c *RawValuesColumn) Extract() StorableColumn {
	extracted := &RawValuesColumn{values: c.values}
	c.values = nil
	return extracted
}

// Serialize packs the sequence as bare f64_le values.
func (c *RawValuesColumn) Serialize() []byte {
	buf := make([]byte, 8*len(c.values))
	for i, v := range c.values {
		binary.LittleEndian.PutUint64(buf[8*i:8*i+8], math.Float64bits(v))
	}
	return buf
}

// DeserializeRawValuesColumn is the inverse of Serialize.
func DeserializeRawValuesColumn(data []byte) (*RawValuesColumn, error) {
	if len(data)%8 != 0 {
		return nil, errors.Wrapf(errors.ErrIOFailure, "RawValues: payload length %d is not a multiple of 8", len(data))
	}
	n := len(data) / 8
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i : 8*i+8]))
	}
	return &RawValuesColumn{values: values}, nil
}

// RawReadColumn is the transient pairing of a RawTimestampsColumn and a
// RawValuesColumn produced by a read; it is never itself stored.
type RawReadColumn struct {
	timestamps []model.TimePoint
	values     []float64
}

// NewRawReadColumn pairs a timestamps and values column for reading.
// The two must have equal length.
func NewRawReadColumn(ts *RawTimestampsColumn, vals *RawValuesColumn) *RawReadColumn {
	return &RawReadColumn{timestamps: ts.Timestamps(), values: vals.Values()}
}

func (c *RawReadColumn) Kind() Kind { return RawRead }

func (c *RawReadColumn) TimeRange() model.TimeRange {
	if len(c.timestamps) == 0 {
		return model.TimeRange{}
	}
	return model.TimeRange{Start: c.timestamps[0], End: c.timestamps[len(c.timestamps)-1] + 1}
}

func (c *RawReadColumn) IsEmpty() bool { return len(c.timestamps) == 0 }

// Timestamps returns the paired timestamp slice.
func (c *RawReadColumn) Timestamps() []model.TimePoint { return c.timestamps }

// Values returns the paired value slice.
func (c *RawReadColumn) Values() []float64 { return c.values }

// Read returns the subrange [r.Start, r.End) via binary search, per
// §4.1: lower_bound(start), upper_bound(end-1).
func (c *RawReadColumn) Read(r model.TimeRange) *RawReadColumn {
	if len(c.timestamps) == 0 {
		return &RawReadColumn{}
	}
	start := sort.Search(len(c.timestamps), func(i int) bool { return c.timestamps[i] >= r.Start })
	if start == len(c.timestamps) {
		return &RawReadColumn{}
	}
	end := sort.Search(len(c.timestamps), func(i int) bool { return c.timestamps[i] > r.End-1 })
	if start >= end {
		return &RawReadColumn{}
	}
	ts := make([]model.TimePoint, end-start)
	copy(ts, c.timestamps[start:end])
	vs := make([]float64, end-start)
	copy(vs, c.values[start:end])
	return &RawReadColumn{timestamps: ts, values: vs}
}

// Merge concatenates two RawReadColumns, requiring the merge-order
// contract: other's first timestamp must be >= this column's last.
func (c *RawReadColumn) Merge(other *RawReadColumn) error {
	if other.IsEmpty() {
		return nil
	}
	if c.IsEmpty() {
		c.timestamps = other.timestamps
		c.values = other.values
		return nil
	}
	if other.timestamps[0] < c.timestamps[len(c.timestamps)-1] {
		return errors.Wrapf(errors.ErrMergeOrderViolation, "RawRead.merge: other starts at %d before self ends at %d", other.timestamps[0], c.timestamps[len(c.timestamps)-1])
	}
	c.timestamps = append(c.timestamps, other.timestamps...)
	c.values = append(c.values, other.values...)
	return nil
}
