// Package level implements one tier of the persistent aggregation
// cascade: a mapping from column kind to page id against a shared page
// store, with no in-place page updates (merge-then-rewrite instead) and
// the absorb-from-a-finer-level protocol used during rollover.
package level

import (
	"github.com/xtxerr/tskv/internal/column"
	"github.com/xtxerr/tskv/internal/model"
	"github.com/xtxerr/tskv/internal/pagestore"
)

// Options configures one level's resolution and retention threshold.
type Options struct {
	// BucketInterval is this level's aggregate resolution.
	BucketInterval model.Duration
	// LevelDuration is the time span that triggers a rollover.
	LevelDuration model.Duration
	// StoreRaw persists raw columns at this level.
	StoreRaw bool
}

type pageEntry struct {
	kind column.Kind
	id   pagestore.PageID
}

// Level is one tier of the cascade.
type Level struct {
	options   Options
	storage   pagestore.PageStore
	pages     []pageEntry
	timeRange model.TimeRange
}

// New creates a level backed by the given shared page store.
func New(opts Options, storage pagestore.PageStore) *Level {
	return &Level{options: opts, storage: storage}
}

// TimeRange returns the union of time ranges of every column ever
// written to this level.
func (l *Level) TimeRange() model.TimeRange { return l.timeRange }

func (l *Level) find(kind column.Kind) (int, bool) {
	for i, p := range l.pages {
		if p.kind == kind {
			return i, true
		}
	}
	return 0, false
}

// Read answers a query for one aggregation kind over r. A level that
// has received some but not all of its configured aggregates returns
// an empty column for the kinds it hasn't received yet, rather than
// failing — see SPEC_FULL.md's Open Question decision on this point.
func (l *Level) Read(r model.TimeRange, kind column.Kind) (column.Column, error) {
	if len(l.pages) == 0 {
		return l.emptyColumn(kind), nil
	}
	if kind == column.RawRead {
		return l.readRaw(r)
	}

	idx, ok := l.find(kind)
	if !ok {
		return l.emptyColumn(kind), nil
	}

	bytes, err := l.storage.Read(l.pages[idx].id)
	if err != nil {
		return nil, err
	}
	col, err := column.DeserializeAggregateColumn(kind, bytes)
	if err != nil {
		return nil, err
	}
	return col.Read(r), nil
}

func (l *Level) readRaw(r model.TimeRange) (column.Column, error) {
	tsIdx, ok := l.find(column.RawTimestamps)
	if !ok {
		return &column.RawReadColumn{}, nil
	}
	valsIdx, ok := l.find(column.RawValues)
	if !ok {
		return &column.RawReadColumn{}, nil
	}

	tsBytes, err := l.storage.Read(l.pages[tsIdx].id)
	if err != nil {
		return nil, err
	}
	tsCol, err := column.DeserializeRawTimestampsColumn(tsBytes)
	if err != nil {
		return nil, err
	}

	valsBytes, err := l.storage.Read(l.pages[valsIdx].id)
	if err != nil {
		return nil, err
	}
	valsCol, err := column.DeserializeRawValuesColumn(valsBytes)
	if err != nil {
		return nil, err
	}

	paired := column.NewRawReadColumn(tsCol, valsCol)
	return paired.Read(r), nil
}

func (l *Level) emptyColumn(kind column.Kind) column.Column {
	if kind == column.RawRead {
		return &column.RawReadColumn{}
	}
	return column.NewAggregateColumn(kind, l.options.BucketInterval)
}

// Write absorbs col into the level: if no page of this kind exists yet,
// allocate one and write the serialized column; otherwise read the
// existing page, merge col into it in memory, delete the old page and
// write the merged bytes to a freshly allocated one. Raw columns are
// silently dropped if this level does not store raw data.
func (l *Level) Write(col column.StorableColumn) error {
	if !l.options.StoreRaw && col.Kind().IsRaw() {
		return nil
	}

	l.timeRange = l.timeRange.Merge(col.TimeRange())

	idx, ok := l.find(col.Kind())
	if !ok {
		id, err := l.storage.CreatePage()
		if err != nil {
			return err
		}
		if err := l.storage.Write(id, col.Serialize()); err != nil {
			return err
		}
		l.pages = append(l.pages, pageEntry{kind: col.Kind(), id: id})
		return nil
	}

	existing, err := l.readStored(col.Kind(), l.pages[idx].id)
	if err != nil {
		return err
	}
	if err := existing.Merge(col); err != nil {
		return err
	}
	if err := l.storage.DeletePage(l.pages[idx].id); err != nil {
		return err
	}
	newID, err := l.storage.CreatePage()
	if err != nil {
		return err
	}
	if err := l.storage.Write(newID, existing.Serialize()); err != nil {
		return err
	}
	l.pages[idx].id = newID
	return nil
}

func (l *Level) readStored(kind column.Kind, id pagestore.PageID) (column.StorableColumn, error) {
	bytes, err := l.storage.Read(id)
	if err != nil {
		return nil, err
	}
	if kind.IsStoredAggregate() {
		return column.DeserializeAggregateColumn(kind, bytes)
	}
	if kind == column.RawTimestamps {
		return column.DeserializeRawTimestampsColumn(bytes)
	}
	return column.DeserializeRawValuesColumn(bytes)
}

// MovePagesFrom absorbs every page src holds into l. When bucket
// interval and store_raw agree, page ids are moved verbatim (a pure
// pointer move). Otherwise each page is handled by kind: a page of a
// kind l does not hold yet is moved verbatim at src's interval, or
// deleted if it is raw and l does not store raw data; a page of a kind
// l already holds is read, rescaled to l's interval if it's an
// aggregate, and merged in via Write, with the source page deleted
// afterward. src is left empty.
func (l *Level) MovePagesFrom(src *Level) error {
	if l.options.BucketInterval == src.options.BucketInterval && l.options.StoreRaw == src.options.StoreRaw {
		l.pages = append(l.pages, src.pages...)
	} else {
		for _, entry := range src.pages {
			if _, ok := l.find(entry.kind); !ok {
				if entry.kind.IsRaw() && !l.options.StoreRaw {
					if err := src.storage.DeletePage(entry.id); err != nil {
						return err
					}
					continue
				}
				l.pages = append(l.pages, entry)
				continue
			}

			col, err := l.readStored(entry.kind, entry.id)
			if err != nil {
				return err
			}
			if rescalable, ok := col.(column.Rescalable); ok {
				if err := rescalable.Rescale(l.options.BucketInterval); err != nil {
					return err
				}
			}
			if err := l.Write(col); err != nil {
				return err
			}
			if err := src.storage.DeletePage(entry.id); err != nil {
				return err
			}
		}
	}

	l.timeRange = l.timeRange.Merge(src.timeRange)
	src.pages = nil
	src.timeRange = model.TimeRange{}
	return nil
}

// NeedMerge reports whether this level has accumulated enough time
// span to roll over into the next level.
func (l *Level) NeedMerge() bool {
	return l.timeRange.Duration() >= l.options.LevelDuration
}
