package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/glowlink/glowlink/internal/config"
	"github.com/glowlink/glowlink/pkg/models"
)

// Client wraps the Redis client for stream and pub/sub operations
type Client struct {
	client *redis.Client
	config config.RedisConfig
	logger *zap.Logger
	ctx    context.Context
}

// NewClient creates a new Redis client
func NewClient(cfg config.RedisConfig, logger *zap.Logger) (*Client, error) {
	// Generate consumer name if not provided
	if cfg.Consumer == "" {
		hostname, _ := os.Hostname()
		if hostname == "" {
			hostname = "unknown"
		}
		cfg.Consumer = fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano())
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		PoolTimeout:  30 * time.Second,
	})

	ctx := context.Background()

	// Test the connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	client := &Client{
		client: rdb,
		config: cfg,
		logger: logger,
		ctx:    ctx,
	}

	logger.Info("Connected to Redis",
		zap.String("addr", cfg.Addr),
		zap.String("stream", cfg.Stream),
		zap.String("consumer_group", cfg.Group),
		zap.String("consumer_name", cfg.Consumer))

	// Initialize consumer group for the stream
	if err := client.initializeConsumerGroup(); err != nil {
		logger.Warn("Failed to initialize consumer group (may already exist)", zap.Error(err))
	}

	return client, nil
}

// Raw returns the underlying Redis client for callers that need direct
// key/value access, such as the image cache.
func (c *Client) Raw() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// PublishDisplayResult publishes a display result to the device-specific channel
func (c *Client) PublishDisplayResult(result *models.DisplayResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal display result: %w", err)
	}

	channel := fmt.Sprintf("glowlink:device:%s", result.Device)

	if err := c.client.Publish(c.ctx, channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis channel %s: %w", channel, err)
	}

	c.logger.Debug("Published display result",
		zap.String("channel", channel),
		zap.String("device", result.Device),
		zap.String("uuid", result.UUID),
		zap.Bool("success", result.Success))

	return nil
}

// PublishDeviceEvent publishes a device lifecycle transition (connected,
// reconnected, removed) to the device-specific channel
func (c *Client) PublishDeviceEvent(name, event string) {
	body, err := json.Marshal(map[string]interface{}{
		"type":      "device_event",
		"device":    name,
		"event":     event,
		"timestamp": time.Now().UTC(),
	})
	if err != nil {
		return
	}

	channel := fmt.Sprintf("glowlink:device:%s", name)
	if err := c.client.Publish(c.ctx, channel, body).Err(); err != nil {
		c.logger.Warn("Failed to publish device event",
			zap.String("device", name),
			zap.String("event", event),
			zap.Error(err))
		return
	}

	c.logger.Debug("Published device event",
		zap.String("device", name),
		zap.String("event", event))
}

// initializeConsumerGroup creates the consumer group for the display requests stream
func (c *Client) initializeConsumerGroup() error {
	// Create consumer group if it doesn't exist
	// Using "0" as the ID means start from the beginning
	// Using "$" would mean start from new messages only
	err := c.client.XGroupCreateMkStream(c.ctx, c.config.Stream, c.config.Group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Consumer group initialized",
		zap.String("stream", c.config.Stream),
		zap.String("group", c.config.Group))

	return nil
}

// ReadFromStream reads messages from the display requests stream using consumer group
func (c *Client) ReadFromStream(ctx context.Context, count int64, block time.Duration) ([]redis.XStream, error) {
	// Read from stream using consumer group
	// ">" means only new messages not yet delivered to other consumers
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.config.Group,
		Consumer: c.config.Consumer,
		Streams:  []string{c.config.Stream, ">"},
		Count:    count,
		Block:    block,
		NoAck:    false, // We want to explicitly acknowledge messages
	}).Result()

	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	return streams, nil
}

// AcknowledgeMessage acknowledges a message from the stream
func (c *Client) AcknowledgeMessage(ctx context.Context, messageID string) error {
	err := c.client.XAck(ctx, c.config.Stream, c.config.Group, messageID).Err()
	if err != nil {
		return fmt.Errorf("failed to acknowledge message %s: %w", messageID, err)
	}

	return nil
}

// IsHealthy checks if Redis connection is healthy
func (c *Client) IsHealthy() bool {
	return c.client.Ping(c.ctx).Err() == nil
}
