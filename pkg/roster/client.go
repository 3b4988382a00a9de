package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client provides namespace-scoped Redis operations for cached records and
// location events. The client is safe for concurrent use.
type Client struct {
	rdb       *redis.Client
	namespace string
}

// NewClient creates a new roster client for the specified namespace.
// All keys and channels are prefixed with the namespace.
//
// Returns an error if the namespace is not valid.
func NewClient(redisOpts *redis.Options, namespace string) (*Client, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}

	return &Client{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Namespace returns the namespace all keys and channels are scoped to.
func (c *Client) Namespace() string {
	return c.namespace
}

// PutRecord stores a record as a Redis hash at sithlist:{ns}:record:{id}.
// A positive ttl sets an expiry on the key; zero keeps it until evicted.
// Writing the same record twice is safe.
func (c *Client) PutRecord(ctx context.Context, r *Record, ttl time.Duration) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}

	hash, err := RecordToHash(r)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	key := RecordKey(c.namespace, r.ID)
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, hash)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write record to Redis: %w", err)
	}

	return nil
}

// GetRecord retrieves a cached record by id.
// Returns (nil, redis.Nil) if the record is not cached; use IsNotFound to check.
func (c *Client) GetRecord(ctx context.Context, id int) (*Record, error) {
	key := RecordKey(c.namespace, id)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read record from Redis: %w", err)
	}

	// HGetAll returns an empty map for missing keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	record, err := HashToRecord(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize record: %w", err)
	}

	return record, nil
}

// RecordExists checks whether a record is cached without fetching it.
func (c *Client) RecordExists(ctx context.Context, id int) (bool, error) {
	exists, err := c.rdb.Exists(ctx, RecordKey(c.namespace, id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check record existence: %w", err)
	}
	return exists > 0, nil
}

// PurgeRecords deletes every cached record of the namespace and returns how
// many keys were removed. Uses SCAN so the server is never blocked.
func (c *Client) PurgeRecords(ctx context.Context) (int, error) {
	iter := c.rdb.Scan(ctx, 0, RecordKeyPattern(c.namespace), 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan records: %w", err)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}
	return int(n), nil
}

// PublishLocation publishes a location as JSON to sithlist:{ns}:location_events.
func (c *Client) PublishLocation(ctx context.Context, loc Location) error {
	payload, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("failed to marshal location: %w", err)
	}

	channel := LocationEventsChannel(c.namespace)
	if err := c.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish location event: %w", err)
	}

	return nil
}

// Subscription represents an active Pub/Sub subscription to location events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan Location
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of location events.
// The channel is closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan Location {
	return s.events
}

// Errors returns the channel of subscription errors, such as malformed payloads.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeLocationEvents subscribes to location events for this namespace.
// The subscription is confirmed by Redis before this method returns, so a
// location published afterwards is guaranteed to be delivered.
func (c *Client) SubscribeLocationEvents(ctx context.Context) (*Subscription, error) {
	channel := LocationEventsChannel(c.namespace)
	pubsub := c.rdb.Subscribe(ctx, channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	eventsChan := make(chan Location, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var loc Location
				if err := json.Unmarshal([]byte(msg.Payload), &loc); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal location event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- loc:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
