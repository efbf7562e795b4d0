package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/gstech/itc-compliance/internal/config"
	"github.com/gstech/itc-compliance/internal/service"
)

// SnapshotPublished is the announcement the ingestion pipeline emits after
// writing a new snapshot to the snapshot store.
type SnapshotPublished struct {
	SnapshotID  string    `json:"snapshot_id"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

// RebuildConsumer listens for snapshot announcements and triggers a graph
// rebuild for each one.
type RebuildConsumer struct {
	consumerGroup sarama.ConsumerGroup
	graphService  *service.GraphService
	topics        []string
	logger        *zap.Logger
}

// NewRebuildConsumer creates the consumer group.
func NewRebuildConsumer(cfg config.KafkaConfig, graphService *service.GraphService, logger *zap.Logger) (*RebuildConsumer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaCfg.Version = sarama.V2_8_0_0

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &RebuildConsumer{
		consumerGroup: consumerGroup,
		graphService:  graphService,
		topics:        []string{cfg.SnapshotTopic},
		logger:        logger,
	}, nil
}

// Start consumes until the context is canceled.
func (c *RebuildConsumer) Start(ctx context.Context) error {
	handler := &rebuildHandler{
		graphService: c.graphService,
		logger:       c.logger,
	}

	for {
		if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
			if ctx.Err() != nil {
				return nil // Context canceled
			}
			c.logger.Error("Error from consumer", zap.Error(err))
			time.Sleep(time.Second * 5) // Retry backoff
		}
	}
}

// Close shuts the consumer group down.
func (c *RebuildConsumer) Close() error {
	return c.consumerGroup.Close()
}

type rebuildHandler struct {
	graphService *service.GraphService
	logger       *zap.Logger
}

func (h *rebuildHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *rebuildHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *rebuildHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		h.processMessage(session.Context(), message)
		session.MarkMessage(message, "")
	}
	return nil
}

func (h *rebuildHandler) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) {
	var event SnapshotPublished
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("Failed to unmarshal snapshot event", zap.Error(err))
		return // Skip malformed
	}

	h.logger.Info("snapshot published, rebuilding graph",
		zap.String("snapshot_id", event.SnapshotID),
		zap.String("source", event.Source))

	// A rebuild pulls the whole snapshot, so retries are cheap to reason
	// about: the latest load wins regardless of which message triggered it.
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		if err := h.graphService.Rebuild(ctx); err != nil {
			h.logger.Error("Failed to rebuild graph",
				zap.String("snapshot_id", event.SnapshotID),
				zap.Error(err),
				zap.Int("retry", i+1),
			)
			if i < maxRetries-1 {
				time.Sleep(time.Duration(i+1) * time.Second) // Simple backoff
				continue
			}
			h.logger.Error("Dropping snapshot event after retries",
				zap.String("snapshot_id", event.SnapshotID))
		}
		break // Success
	}
}
