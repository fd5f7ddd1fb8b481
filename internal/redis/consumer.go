package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/glowlink/glowlink/internal/handlers"
	"github.com/glowlink/glowlink/pkg/models"
)

// Consumer handles Redis stream consumption for display requests
type Consumer struct {
	client  *Client
	handler *handlers.EventHandler
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewConsumer creates a new Redis consumer
func NewConsumer(client *Client, handler *handlers.EventHandler, logger *zap.Logger) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		client:  client,
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start starts consuming messages from the display requests stream
func (c *Consumer) Start() error {
	c.logger.Info("Starting Redis consumer for display requests")

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("Redis consumer stopped")
			return nil
		default:
			if err := c.consumeMessages(); err != nil {
				c.logger.Error("Error consuming messages, will retry",
					zap.Error(err),
					zap.Duration("retry_delay", 5*time.Second))
				time.Sleep(5 * time.Second)
				continue
			}
		}
	}
}

// Stop stops the consumer
func (c *Consumer) Stop() {
	c.logger.Info("Stopping Redis consumer")
	c.cancel()
}

// consumeMessages handles the actual message consumption from Redis Streams
func (c *Consumer) consumeMessages() error {
	c.logger.Info("Started consuming Redis stream messages")

	for {
		select {
		case <-c.ctx.Done():
			return nil
		default:
			// Read messages from stream with blocking timeout
			streams, err := c.client.ReadFromStream(c.ctx, 10, 5*time.Second)
			if err != nil {
				// Check if connection is healthy
				if !c.client.IsHealthy() {
					return fmt.Errorf("Redis connection unhealthy, will reconnect")
				}
				c.logger.Error("Error reading from stream", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}

			// Process messages from the stream
			for _, stream := range streams {
				for _, message := range stream.Messages {
					c.handleStreamMessage(message)
				}
			}
		}
	}
}

// handleStreamMessage processes a single Redis Stream message
func (c *Consumer) handleStreamMessage(msg redis.XMessage) {
	c.logger.Debug("Received display request from stream",
		zap.String("message_id", msg.ID),
		zap.Int("fields_count", len(msg.Values)))

	// Extract the payload from the stream message
	payload, ok := msg.Values["payload"].(string)
	if !ok {
		c.logger.Error("Failed to extract payload from stream message",
			zap.String("message_id", msg.ID))
		// Acknowledge the message anyway to prevent reprocessing
		_ = c.client.AcknowledgeMessage(c.ctx, msg.ID)
		return
	}

	var request models.DisplayRequest
	if err := json.Unmarshal([]byte(payload), &request); err != nil {
		c.logger.Error("Failed to unmarshal display request",
			zap.Error(err),
			zap.String("message_id", msg.ID),
			zap.String("payload", payload))
		// Acknowledge the message to prevent reprocessing bad data
		_ = c.client.AcknowledgeMessage(c.ctx, msg.ID)
		return
	}

	// Handle the request; the result carries any delivery error
	result := c.handler.Handle(c.ctx, &request)
	if !result.Success {
		c.logger.Warn("Display request failed",
			zap.String("message_id", msg.ID),
			zap.String("uuid", result.UUID),
			zap.String("device", result.Device),
			zap.String("error", result.Error))
	}

	// Publish the result to the device-specific pub/sub channel
	if err := c.client.PublishDisplayResult(result); err != nil {
		c.logger.Error("Failed to publish display result",
			zap.Error(err),
			zap.String("message_id", msg.ID),
			zap.String("device", result.Device))
		// Don't acknowledge if we failed to publish, allow retry
		return
	}

	// Acknowledge the message after successful processing and publishing
	if err := c.client.AcknowledgeMessage(c.ctx, msg.ID); err != nil {
		c.logger.Error("Failed to acknowledge message",
			zap.Error(err),
			zap.String("message_id", msg.ID))
	} else {
		c.logger.Debug("Message processed and acknowledged",
			zap.String("message_id", msg.ID),
			zap.String("device", result.Device),
			zap.String("uuid", result.UUID))
	}
}
