package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jasper-ai/backend/pkg/logger"
)

// Client caches detection results keyed by detection kind and a hash of the
// analyzed text. Detection is deterministic for a fixed corpus, so cached
// results stay valid until the corpus changes.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis cache initialized",
		zap.String("addr", fmt.Sprintf("%s:%d", host, port)),
		zap.Duration("ttl", ttl),
	)

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func key(kind, textHash string) string {
	return fmt.Sprintf("detect:%s:%s", kind, textHash)
}

func (c *Client) SetResult(ctx context.Context, kind, textHash string, result interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := c.client.Set(ctx, key(kind, textHash), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set result cache: %w", err)
	}

	logger.Debug("Detection result cached",
		zap.String("kind", kind),
		zap.String("text_hash", textHash),
	)
	return nil
}

func (c *Client) GetResult(ctx context.Context, kind, textHash string, result interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key(kind, textHash)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get result cache: %w", err)
	}

	if err := json.Unmarshal(data, result); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached result: %w", err)
	}

	logger.Debug("Detection cache hit",
		zap.String("kind", kind),
		zap.String("text_hash", textHash),
	)
	return true, nil
}

// InvalidateAll drops every cached detection result. Called after the corpus
// changes, since plagiarism scores depend on corpus contents.
func (c *Client) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "detect:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Detection cache invalidated")
	return nil
}
