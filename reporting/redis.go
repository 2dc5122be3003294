package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/gr-butler/estacion/data"
	"github.com/gr-butler/estacion/telemetry"
	"github.com/redis/go-redis/v9"
)

// Snapshot keeps the latest readings in a Redis hash for dashboards.
type Snapshot struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewSnapshot(addr, key string, ttl time.Duration) *Snapshot {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
		MaxRetries:  -1,
	})
	return &Snapshot{rdb: rdb, key: key, ttl: ttl}
}

func (s *Snapshot) Name() string { return "redis" }

// snapshotFields holds the payload fields plus the sample time.
func snapshotFields(set data.SampleSet) map[string]interface{} {
	fields := map[string]interface{}{
		"time": set.Time.UTC().Format(time.RFC3339),
	}
	for _, f := range telemetry.Encode(set).Fields() {
		fields[f.Name] = f.Value
	}
	return fields
}

// Report replaces the hash so readings that went missing do not linger.
func (s *Snapshot) Report(ctx context.Context, set data.SampleSet) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.key)
	pipe.HSet(ctx, s.key, snapshotFields(set))
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update snapshot %s: %w", s.key, err)
	}
	return nil
}

func (s *Snapshot) Close() error {
	return s.rdb.Close()
}
