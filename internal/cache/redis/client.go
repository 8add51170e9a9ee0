package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/storage/models"
	"github.com/Rhuthvik-D/Kasparro-Assignment/pkg/logger"
)

const (
	keyLatestReport  = "dashboard:report:latest"
	keyLatestSummary = "dashboard:summary:latest"
)

// Client caches the dashboard's hot reads (latest report, headline
// summary) so repeated page loads do not hit SQLite. Entries are
// dropped whenever the pipeline re-runs.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db, ttlSec int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := time.Duration(ttlSec) * time.Second
	if ttl == 0 {
		ttl = 10 * time.Minute
	}

	logger.Info("Redis client initialized",
		zap.String("addr", fmt.Sprintf("%s:%d", host, port)),
		zap.Duration("ttl", ttl),
	)

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) SetReport(ctx context.Context, report *models.StoredReport) error {
	return c.set(ctx, keyLatestReport, report)
}

func (c *Client) GetReport(ctx context.Context) (*models.StoredReport, bool, error) {
	var report models.StoredReport
	found, err := c.get(ctx, keyLatestReport, &report)
	if err != nil || !found {
		return nil, false, err
	}
	return &report, true, nil
}

func (c *Client) SetSummary(ctx context.Context, summary *models.Summary) error {
	return c.set(ctx, keyLatestSummary, summary)
}

func (c *Client) GetSummary(ctx context.Context) (*models.Summary, bool, error) {
	var summary models.Summary
	found, err := c.get(ctx, keyLatestSummary, &summary)
	if err != nil || !found {
		return nil, false, err
	}
	return &summary, true, nil
}

// Invalidate drops every cached dashboard read; called after each
// pipeline run so stale figures never outlive new data.
func (c *Client) Invalidate(ctx context.Context) error {
	err := c.client.Del(ctx, keyLatestReport, keyLatestSummary).Err()
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	logger.Debug("Dashboard cache invalidated")
	return nil
}

func (c *Client) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	err = c.client.Set(ctx, key, data, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}

	return nil
}

func (c *Client) get(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	logger.Debug("Cache hit", zap.String("key", key))
	return true, nil
}
