package column

import (
	"encoding/binary"
	"math"

	"github.com/xtxerr/tskv/internal/errors"
	"github.com/xtxerr/tskv/internal/model"
)

// Serialize encodes the column per §6: u64 interval || u64 start_time ||
// f64 buckets[n], all little-endian.
func (c *AggregateColumn) Serialize() []byte {
	buf := make([]byte, 16+8*len(c.core.buckets))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(c.core.interval))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(c.core.startTime))
	for i, v := range c.core.buckets {
		binary.LittleEndian.PutUint64(buf[16+8*i:24+8*i], math.Float64bits(v))
	}
	return buf
}

// DeserializeAggregateColumn is the inverse of Serialize for a given
// kind. n is inferred from the payload length per §6.
func DeserializeAggregateColumn(kind Kind, data []byte) (*AggregateColumn, error) {
	if len(data) < 16 {
		return nil, errors.Wrapf(errors.ErrIOFailure, "%v: payload too short (%d bytes)", kind, len(data))
	}
	if (len(data)-16)%8 != 0 {
		return nil, errors.Wrapf(errors.ErrIOFailure, "%v: payload length %d is not 16 + 8n", kind, len(data))
	}

	interval := model.Duration(binary.LittleEndian.Uint64(data[0:8]))
	startTime := model.TimePoint(binary.LittleEndian.Uint64(data[8:16]))
	n := (len(data) - 16) / 8

	buckets := make([]float64, n)
	for i := 0; i < n; i++ {
		buckets[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[16+8*i : 24+8*i]))
	}

	return &AggregateColumn{
		kind: kind,
		core: aggregateCore{startTime: startTime, interval: interval, buckets: buckets},
	}, nil
}
