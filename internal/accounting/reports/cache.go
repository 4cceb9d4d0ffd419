package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	cacheVersionKey = "ledger:report:version"
	keyPrefix       = "ledger:report"
	bumpChannel     = "ledger.bump"
)

// Cache stores rendered reports in Redis under versioned keys. Every ledger
// write bumps the version, so a cached report is never older than the last
// committed posting. A nil Cache or nil client computes every report directly.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) || (err == nil && ver <= 0) {
		// SETNX keeps a concurrent Bump from being overwritten.
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes ledger:report:<parts...>:<version>.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(append([]string{keyPrefix}, parts...), ":")
	if !c.enabled() {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// FetchJSON loads a cached value into dest or populates it using the loader.
// Concurrent misses on the same key share one loader call. Redis failures
// degrade to computing the value directly.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("reports: cache loader required")
	}
	if c.enabled() {
		payload, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			return json.Unmarshal(payload, dest)
		case !errors.Is(err, redis.Nil):
			c.logger.Warn("report cache read failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	raw, err := c.build(ctx, key, loader)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (c *Cache) build(ctx context.Context, key string, loader func(context.Context) (any, error)) ([]byte, error) {
	run := func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if c.enabled() {
			if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				c.logger.Warn("report cache write failed", slog.String("key", key), slog.Any("error", err))
			}
		}
		return raw, nil
	}
	if c == nil {
		v, err := run()
		if err != nil {
			return nil, err
		}
		return v.([]byte), nil
	}
	resultChan := c.group.DoChan(key, run)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Bump invalidates every cached report by incrementing the global version
// and publishing it to other instances.
func (c *Cache) Bump(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation follows version bumps published by other instances
// until ctx ends.
func (c *Cache) ListenForInvalidation(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, bumpChannel)
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ver, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					continue
				}
				// Only move forward; a late message must not roll the version back.
				current, err := c.client.Get(ctx, cacheVersionKey).Int64()
				if err == nil && current >= ver {
					continue
				}
				_ = c.client.Set(ctx, cacheVersionKey, ver, 0).Err()
			}
		}
	}()
	return nil
}

// cached builds a report through the cache keyed by kind and args.
func cached[T any](ctx context.Context, c *Cache, kind string, args []string, build func(context.Context) (T, error)) (T, error) {
	if !c.enabled() {
		return build(ctx)
	}
	key, err := c.BuildKey(ctx, append([]string{kind}, args...)...)
	if err != nil {
		c.logger.Warn("report cache version unavailable", slog.String("kind", kind), slog.Any("error", err))
		return build(ctx)
	}
	var out T
	err = c.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return build(ctx)
	})
	return out, err
}
