// Package l2store is the shared, cross-instance rendered-tile cache: a
// Redis-backed get/set/delete_pattern store with per-key TTL, plus
// helpers to publish and subscribe to the ingestion-event channel.
package l2store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DataAge buckets a dataset's age into the TTL table from §6.
type DataAge int

const (
	AgeUnder6h DataAge = iota
	AgeUnder24h
	AgeOver24h
)

// TTLFor returns (L2 TTL, L1 TTL) for a dataset's age, per the fixed table:
// <=6h -> 3600s/300s, <=24h -> 7200s/300s, >24h -> 86400s/3600s.
func TTLFor(age time.Duration) (l2TTL, l1TTL time.Duration) {
	switch {
	case age <= 6*time.Hour:
		return 3600 * time.Second, 300 * time.Second
	case age <= 24*time.Hour:
		return 7200 * time.Second, 300 * time.Second
	default:
		return 86400 * time.Second, 3600 * time.Second
	}
}

// Store is the L2 shared rendered-tile cache.
type Store struct {
	client *redis.Client
}

// New wraps an existing Redis client. The coordinator owns connection
// lifecycle and passes it in, since the same client also carries the
// ingestion-event Pub/Sub channel.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Get returns the cached bytes for key, or (nil, false) on miss. Any
// Redis error is treated as a miss: L2 failures are always demoted to
// cache-miss, never surfaced to the caller.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores bytes under key with the given TTL. The call is synchronous:
// it waits for Redis to reply or for a 500ms timeout, whichever comes
// first, and returns the error. The coordinator ignores that error.
func (s *Store) Set(ctx context.Context, key string, bytes []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, key, bytes, ttl).Err()
}

// DeletePattern removes every key matching pattern via SCAN+DEL, never
// KEYS, so invalidation never blocks other Redis clients on a large
// keyspace.
func (s *Store) DeletePattern(ctx context.Context, pattern string) (int64, error) {
	var cursor uint64
	var deleted int64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return deleted, nil
}

const ingestionChannel = "tileserve:ingestion"

// IngestionMessage mirrors catalog.IngestionEvent without importing the
// catalog package, keeping l2store a leaf dependency.
type IngestionMessage struct {
	Model         string    `json:"model"`
	Parameter     string    `json:"parameter"`
	ReferenceTime time.Time `json:"reference_time"`
}

// SubscribeIngestion subscribes to the ingestion-event channel and invokes
// onEvent for each message until ctx is cancelled. It blocks, so callers
// run it in its own goroutine. cmd/tileserverd does not use it; it
// subscribes through catalog.Client.Subscribe.
func SubscribeIngestion(ctx context.Context, client *redis.Client, onEvent func(IngestionMessage)) error {
	sub := client.Subscribe(ctx, ingestionChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("l2store: ingestion subscription channel closed")
			}
			var m IngestionMessage
			if err := decodeIngestionMessage(msg.Payload, &m); err != nil {
				continue
			}
			onEvent(m)
		}
	}
}

// PublishIngestion publishes an ingestion event on the ingestion channel.
// It is used by tests; the catalog's PGClient.PublishIngested publishes
// its own events and does not call it.
func PublishIngestion(ctx context.Context, client *redis.Client, m IngestionMessage) error {
	payload, err := encodeIngestionMessage(m)
	if err != nil {
		return err
	}
	return client.Publish(ctx, ingestionChannel, payload).Err()
}
