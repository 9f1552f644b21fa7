package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"notemesh/internal/core/domain"
	"notemesh/internal/infrastructure/gateway"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// relayEnvelope carries one room payload between gateway nodes.
type relayEnvelope struct {
	InstanceID string          `json:"instance_id"`
	NoteID     domain.NoteID   `json:"note_id"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload"`
}

// RedisRelay fans deltas out across gateway nodes over a Redis pub/sub
// channel. Each node publishes local deltas and replays remote ones into its
// own rooms, skipping its own messages by instance ID. Presence counts stay
// node-local; only delta traffic crosses nodes.
type RedisRelay struct {
	client     *redis.Client
	hub        *gateway.Hub
	instanceID string
	channel    string
	pubsub     *redis.PubSub
	logger     *zap.SugaredLogger
}

func NewRedisRelay(client *redis.Client, hub *gateway.Hub, instanceID, channel string, logger *zap.SugaredLogger) *RedisRelay {
	if channel == "" {
		channel = "notemesh:relay"
	}
	return &RedisRelay{
		client:     client,
		hub:        hub,
		instanceID: instanceID,
		channel:    channel,
		logger:     logger,
	}
}

// PublishDelta forwards an already-encoded room payload to the other nodes.
func (r *RedisRelay) PublishDelta(ctx context.Context, noteID domain.NoteID, payload []byte) error {
	envelope := relayEnvelope{
		InstanceID: r.instanceID,
		NoteID:     noteID,
		Timestamp:  time.Now(),
		Payload:    payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal relay envelope: %w", err)
	}

	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish relay envelope: %w", err)
	}

	r.logger.Debugw("published relay envelope", "note_id", noteID)
	return nil
}

// Run consumes remote envelopes until ctx is cancelled. Envelopes published
// by this instance are skipped.
func (r *RedisRelay) Run(ctx context.Context) error {
	if r.pubsub != nil {
		return fmt.Errorf("relay already running")
	}

	r.pubsub = r.client.Subscribe(ctx, r.channel)
	defer r.pubsub.Close()

	ch := r.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var envelope relayEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				r.logger.Warnw("failed to unmarshal relay envelope",
					"error", err,
					"payload", msg.Payload,
				)
				continue
			}

			if envelope.InstanceID == r.instanceID {
				continue
			}

			r.hub.BroadcastRemote(envelope.NoteID, envelope.Payload)
			r.logger.Debugw("replayed remote delta",
				"note_id", envelope.NoteID,
				"from_instance", envelope.InstanceID,
			)
		}
	}
}
