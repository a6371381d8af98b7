package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/candle-backend/config"
	"github.com/ikkim/candle-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	blacklistPrefix = "blacklist:"
	optionsPrefix   = "catalog:options:"
)

// Client is an optional cache. Every method is safe on a nil *Client and
// behaves as a miss, so callers never branch on whether Redis is configured.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis, or returns nil when no host is configured.
func New(cfg *config.RedisConfig) (*Client, error) {
	if !cfg.Enabled() {
		logger.Info("Redis not configured, cache and token blacklist disabled", nil)
		return nil, nil
	}

	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	logger.Info("Closing Redis connection", nil)
	return c.rdb.Close()
}

// BlacklistToken revokes a token id until its natural expiry.
func (c *Client) BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if c == nil || ttl <= 0 {
		return nil
	}

	if err := c.rdb.Set(ctx, blacklistPrefix+tokenID, "revoked", ttl).Err(); err != nil {
		logger.Error("Failed to blacklist token", err, nil)
		return err
	}

	logger.Debug("Token blacklisted", map[string]interface{}{
		"ttl": ttl.String(),
	})
	return nil
}

func (c *Client) IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	if c == nil {
		return false, nil
	}

	val, err := c.rdb.Get(ctx, blacklistPrefix+tokenID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		logger.Error("Failed to check token blacklist", err, nil)
		return false, err
	}
	return val == "revoked", nil
}

// OptionsKey is the cache key for a product's customization options.
func OptionsKey(productID uint) string {
	return fmt.Sprintf("%s%d", optionsPrefix, productID)
}

// GetJSON decodes a cached value into dest. found is false on a miss.
func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c == nil {
		return false, nil
	}

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c == nil {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, ttl).Err()
}

// InvalidateOptions drops every cached options payload. Called after any
// admin write to options or product membership.
func (c *Client) InvalidateOptions(ctx context.Context) error {
	if c == nil {
		return nil
	}

	iter := c.rdb.Scan(ctx, 0, optionsPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	logger.Debug("Invalidating cached customization options", map[string]interface{}{
		"keys": len(keys),
	})
	return c.rdb.Del(ctx, keys...).Err()
}
