package column

import "github.com/xtxerr/tskv/internal/model"

// Column is the minimal contract every column variant satisfies:
// identify itself, report the time range it covers, and report whether
// it holds any data at all.
type Column interface {
	Kind() Kind
	TimeRange() model.TimeRange
	IsEmpty() bool
}

// StorableColumn is the contract for columns that live in a memtable or
// a level page: they accept writes, merge with a same-kind column, and
// round-trip through bytes. AggregateColumn, RawTimestampsColumn and
// RawValuesColumn all implement it; AvgColumn does not, since it is
// synthesized at read time and never stored (§4.1).
type StorableColumn interface {
	Column
	Write(records model.Records) error
	Merge(other StorableColumn) error
	Serialize() []byte
	Extract() StorableColumn
}

// Rescalable is implemented by columns that support coarsening to a
// wider bucket interval. Only the five stored-aggregate kinds do; raw
// columns have no notion of a bucket interval to coarsen.
type Rescalable interface {
	Rescale(newInterval model.Duration) error
}
