// Package levelmanager owns the ordered cascade of levels for one
// metric: writes land in level 0, a single rollover pass pushes any
// level that has outgrown its duration into the next, and reads fan
// out across every level, merged deepest-to-shallowest.
package levelmanager

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/tskv/internal/column"
	"github.com/xtxerr/tskv/internal/level"
	"github.com/xtxerr/tskv/internal/model"
	"github.com/xtxerr/tskv/internal/pagestore"
)

// LevelManager owns an ordered, shallow-to-deep chain of levels sharing
// one page store.
type LevelManager struct {
	levels []*level.Level
}

// New builds a level manager with one level per entry in opts, in
// order from shallowest (finest resolution) to deepest.
func New(opts []level.Options, storage pagestore.PageStore) *LevelManager {
	levels := make([]*level.Level, len(opts))
	for i, o := range opts {
		levels[i] = level.New(o, storage)
	}
	return &LevelManager{levels: levels}
}

// Write lands every column in level 0, then runs a single shallow-to-
// deep rollover pass: any level that has outgrown its configured
// duration hands its pages to the next level down. The deepest level
// has no next level: it keeps everything it absorbs, and nothing is
// evicted.
func (lm *LevelManager) Write(columns []column.StorableColumn) error {
	if len(lm.levels) == 0 {
		return nil
	}
	for _, c := range columns {
		if err := lm.levels[0].Write(c); err != nil {
			return err
		}
	}

	for i := 0; i < len(lm.levels)-1; i++ {
		if lm.levels[i].NeedMerge() {
			if err := lm.levels[i+1].MovePagesFrom(lm.levels[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Read answers a query for one aggregation kind, merging the
// contribution of every level. Levels are read concurrently, since
// each owns disjoint pages, but merged in deepest-to-shallowest order
// to satisfy the column merge-order contract (older data must be the
// receiver, newer data the argument).
func (lm *LevelManager) Read(r model.TimeRange, kind column.Kind) (column.Column, error) {
	if len(lm.levels) == 0 {
		return emptyColumn(kind), nil
	}

	results := make([]column.Column, len(lm.levels))
	g, _ := errgroup.WithContext(context.Background())
	for i, lvl := range lm.levels {
		i, lvl := i, lvl
		g.Go(func() error {
			col, err := lvl.Read(r, kind)
			if err != nil {
				return err
			}
			results[i] = col
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := results[len(results)-1]
	for i := len(results) - 2; i >= 0; i-- {
		m, err := mergeInto(merged, results[i])
		if err != nil {
			return nil, err
		}
		merged = m
	}
	return merged, nil
}

func emptyColumn(kind column.Kind) column.Column {
	if kind == column.RawRead {
		return &column.RawReadColumn{}
	}
	return column.NewAggregateColumn(kind, 0)
}

// mergeInto merges newer into older, dispatching on the concrete
// column type produced by level reads (RawRead never persists a
// StorableColumn, so it gets its own merge path).
func mergeInto(older, newer column.Column) (column.Column, error) {
	if rr, ok := older.(*column.RawReadColumn); ok {
		nr := newer.(*column.RawReadColumn)
		if err := rr.Merge(nr); err != nil {
			return nil, err
		}
		return rr, nil
	}

	o := older.(column.StorableColumn)
	n := newer.(column.StorableColumn)
	if err := o.Merge(n); err != nil {
		return nil, err
	}
	return o, nil
}
