// Package coordination records cross-instance state in Redis.
//
// The stream registry tracks which instance holds each user's live stream
// connection. Entries are heartbeated; an entry whose heartbeat is older than
// the staleness window is treated as dead, so a crashed instance's streams
// disappear from the listing without explicit cleanup.
package coordination

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

const (
	streamsKey = "streams"
	staleAfter = 60 * time.Second
)

// redisCommands is the slice of redis operations the registry needs.
// *redis.Client satisfies it.
type redisCommands interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// StreamInfo is the registry entry for one live stream.
type StreamInfo struct {
	TwitterID  string `json:"twitter_id"`
	InstanceID string `json:"instance_id"`
	OpenedAt   int64  `json:"opened_at"`
	Heartbeat  int64  `json:"heartbeat"`
}

// StreamRegistry tracks the live streams held by this instance in a shared
// Redis hash and refreshes their heartbeats.
type StreamRegistry struct {
	redis      redisCommands
	instanceID string
	heartbeat  time.Duration
	clock      clockwork.Clock

	mu   sync.Mutex
	held map[string]int64 // twitterID -> opened_at unix
}

// NewStreamRegistry creates a registry. instanceID should be unique per
// instance (hostname or UUID); heartbeat determines the refresh interval.
func NewStreamRegistry(rdb redisCommands, instanceID string, heartbeat time.Duration, clock clockwork.Clock) *StreamRegistry {
	return &StreamRegistry{
		redis:      rdb,
		instanceID: instanceID,
		heartbeat:  heartbeat,
		clock:      clock,
		held:       make(map[string]int64),
	}
}

// MarkOpen records a stream held by this instance.
func (r *StreamRegistry) MarkOpen(ctx context.Context, twitterID string) error {
	now := r.clock.Now().Unix()

	r.mu.Lock()
	r.held[twitterID] = now
	r.mu.Unlock()

	return r.write(ctx, twitterID, now, now)
}

// MarkClosed removes a stream from the registry.
func (r *StreamRegistry) MarkClosed(ctx context.Context, twitterID string) error {
	r.mu.Lock()
	delete(r.held, twitterID)
	r.mu.Unlock()

	return r.redis.HDel(ctx, streamsKey, twitterID).Err()
}

// Start runs the heartbeat loop. Blocks until ctx is cancelled, then removes
// every entry this instance still holds.
func (r *StreamRegistry) Start(ctx context.Context) {
	ticker := r.clock.NewTicker(r.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			r.refresh(ctx)
		case <-ctx.Done():
			r.unregisterAll()
			return
		}
	}
}

// ListOpen returns the registry entries whose heartbeat is fresh, across all
// instances.
func (r *StreamRegistry) ListOpen(ctx context.Context) ([]StreamInfo, error) {
	entries, err := r.redis.HGetAll(ctx, streamsKey).Result()
	if err != nil {
		return nil, err
	}

	now := r.clock.Now().Unix()
	infos := []StreamInfo{}
	for _, data := range entries {
		var info StreamInfo
		if err := json.Unmarshal([]byte(data), &info); err != nil {
			continue
		}
		if now-info.Heartbeat < int64(staleAfter.Seconds()) {
			infos = append(infos, info)
		}
	}
	return infos, nil
}

func (r *StreamRegistry) refresh(ctx context.Context) {
	now := r.clock.Now().Unix()

	r.mu.Lock()
	held := make(map[string]int64, len(r.held))
	for id, openedAt := range r.held {
		held[id] = openedAt
	}
	r.mu.Unlock()

	for id, openedAt := range held {
		// A failed refresh is retried on the next tick.
		_ = r.write(ctx, id, openedAt, now)
	}
}

func (r *StreamRegistry) unregisterAll() {
	ctx := context.Background()

	r.mu.Lock()
	ids := make([]string, 0, len(r.held))
	for id := range r.held {
		ids = append(ids, id)
	}
	r.held = make(map[string]int64)
	r.mu.Unlock()

	if len(ids) > 0 {
		_ = r.redis.HDel(ctx, streamsKey, ids...).Err()
	}
}

func (r *StreamRegistry) write(ctx context.Context, twitterID string, openedAt, heartbeat int64) error {
	data, err := json.Marshal(StreamInfo{
		TwitterID:  twitterID,
		InstanceID: r.instanceID,
		OpenedAt:   openedAt,
		Heartbeat:  heartbeat,
	})
	if err != nil {
		return err
	}
	return r.redis.HSet(ctx, streamsKey, twitterID, data).Err()
}
