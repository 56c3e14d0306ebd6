package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/redis/go-redis/v9"

	"github.com/InfiniteAengus/vista-purdue-plot/internal/snapshot"
	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
)

const keyPrefix = "purdueplot"

// Cache keeps the latest snapshot in Redis so readers can fetch a consistent
// set of files without touching the output directory
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to Redis and verifies the connection
func New(ctx context.Context, addr string, db int, ttl time.Duration) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Cache{rdb: rdb, ttl: ttl}, nil
}

// SummaryKey holds the JSON summary of the latest snapshot
func SummaryKey() string {
	return keyPrefix + ":latest"
}

// FileKey holds the CSV contents of one category of the latest snapshot
func FileKey(c models.Category) string {
	return keyPrefix + ":latest:" + c.FileName()
}

// Store replaces the cached snapshot in a single transaction
func (c *Cache) Store(ctx context.Context, snap *models.Snapshot, sum models.SnapshotSummary) error {
	values, err := encodeSnapshot(snap, sum)
	if err != nil {
		return err
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, data := range values {
			pipe.Set(ctx, key, data, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis SET latest snapshot: %w", err)
	}
	return nil
}

// encodeSnapshot returns the value of every key Store sets
func encodeSnapshot(snap *models.Snapshot, sum models.SnapshotSummary) (map[string][]byte, error) {
	summary, err := json.Marshal(sum)
	if err != nil {
		return nil, fmt.Errorf("encoding summary: %w", err)
	}

	values := make(map[string][]byte, len(models.Categories)+1)
	values[SummaryKey()] = summary
	for _, cat := range models.Categories {
		data, err := snapshot.Render(snap.Rows[cat])
		if err != nil {
			return nil, fmt.Errorf("rendering %s: %w", cat.FileName(), err)
		}
		values[FileKey(cat)] = data
	}
	return values, nil
}

// Latest returns the cached summary, or false when nothing is cached
func (c *Cache) Latest(ctx context.Context) (models.SnapshotSummary, bool, error) {
	val, err := c.rdb.Get(ctx, SummaryKey()).Bytes()
	if err == redis.Nil {
		return models.SnapshotSummary{}, false, nil
	}
	if err != nil {
		return models.SnapshotSummary{}, false, fmt.Errorf("redis GET %s: %w", SummaryKey(), err)
	}
	sum, err := decodeSummary(val)
	if err != nil {
		return sum, false, err
	}
	return sum, true, nil
}

func decodeSummary(val []byte) (models.SnapshotSummary, error) {
	var sum models.SnapshotSummary
	if err := json.Unmarshal(val, &sum); err != nil {
		return sum, fmt.Errorf("decoding summary: %w", err)
	}
	return sum, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.rdb.Close()
}
