package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"wastedash/domain/waste"
	"wastedash/internal"
	"wastedash/ports"
)

// SourceCache is a read-through cache of wide tables keyed by source file.
// Entries are populated at most once and never invalidated; failed reads are
// not stored, so the next request retries. Concurrent loads of the same
// source share a single read, which is detached from the cancellation of
// whichever caller started it.
//
// Cached tables are shared between callers and must be treated as read-only.
type SourceCache struct {
	reader ports.TableReader
	logger *internal.Logger

	mu     sync.RWMutex
	tables map[string]*waste.WideTable
	group  singleflight.Group
}

// NewSourceCache creates an empty cache in front of reader
func NewSourceCache(reader ports.TableReader, logger *internal.Logger) *SourceCache {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SourceCache{
		reader: reader,
		logger: logger.WithComponent("SourceCache"),
		tables: make(map[string]*waste.WideTable),
	}
}

// Load returns the cached table for src, reading it on first use
func (c *SourceCache) Load(ctx context.Context, src waste.Source) (*waste.WideTable, error) {
	key := src.Key()

	if table, ok := c.get(key); ok {
		c.logger.Trace("hit %s", key)
		return table, nil
	}

	readCtx := context.WithoutCancel(ctx)
	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		if table, ok := c.get(key); ok {
			return table, nil
		}
		table, err := c.reader.ReadTable(readCtx, src)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.tables[key] = table
		c.mu.Unlock()
		c.logger.Debug("cached %s (%d rows)", key, len(table.Rows))
		return table, nil
	})
	if err != nil {
		c.logger.Warn("load %s failed: %v", key, err)
		return nil, err
	}
	if shared {
		c.logger.Trace("shared read of %s", key)
	}
	return v.(*waste.WideTable), nil
}

// Len reports the number of cached sources
func (c *SourceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

func (c *SourceCache) get(key string) (*waste.WideTable, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	table, ok := c.tables[key]
	return table, ok
}
