package source

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/advdiff/internal/cache"
	"github.com/hpungsan/advdiff/internal/errors"
	"github.com/hpungsan/advdiff/internal/record"
)

// Cached serves collections from the SQLite cache. It falls through to Next
// when there is no fresh entry or Refresh is set. Cache failures are logged
// and never fail the load.
type Cached struct {
	DB      *sql.DB
	Next    Source
	TTL     time.Duration // 0 means entries never expire
	Refresh bool
	Logger  *zap.Logger
}

// Load implements Source.
func (c *Cached) Load(ctx context.Context, ref Ref) ([]record.Record, error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	key := cache.Key{Dataset: ref.Dataset, Config: ref.Config, Split: ref.Split}

	if !c.Refresh {
		recs, ok, err := c.lookup(ctx, key)
		if err != nil {
			logger.Warn("failed to read dataset cache", zap.String("dataset", ref.String()), zap.Error(err))
		}
		if ok {
			logger.Debug("cache hit", zap.String("dataset", ref.String()), zap.Int("rows", len(recs)))
			return recs, nil
		}
	}
	logger.Debug("cache miss", zap.String("dataset", ref.String()), zap.Bool("refresh", c.Refresh))

	recs, err := c.Next.Load(ctx, ref)
	if err != nil {
		return nil, err
	}

	if _, err := cache.Put(ctx, c.DB, key, recs); err != nil {
		logger.Warn("failed to write dataset cache", zap.String("dataset", ref.String()), zap.Error(err))
	}
	return recs, nil
}

// lookup returns the cached records for key if a fresh entry exists.
func (c *Cached) lookup(ctx context.Context, key cache.Key) ([]record.Record, bool, error) {
	entry, err := cache.Latest(ctx, c.DB, key)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if c.TTL > 0 && entry.Age(time.Now()) > c.TTL {
		return nil, false, nil
	}

	recs, err := cache.Records(ctx, c.DB, entry.ID)
	if err != nil {
		return nil, false, err
	}
	if len(recs) != entry.RowCount {
		return nil, false, nil
	}
	if recs == nil {
		recs = []record.Record{}
	}
	return recs, true, nil
}
