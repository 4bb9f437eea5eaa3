package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/imathwy/tbps/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const payloadField = "payload"

// StreamClient is the subset of the redis client the publisher needs.
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XRevRangeN(ctx context.Context, stream, start, stop string, count int64) *redis.XMessageSliceCmd
}

// Publisher appends settled searches to a Redis stream as JSON payloads.
type Publisher struct {
	client StreamClient
	stream string
	maxLen int64
	logger *zerolog.Logger
}

func NewPublisher(client StreamClient, cfg *StreamConfig, logger *zerolog.Logger) *Publisher {
	return &Publisher{
		client: client,
		stream: cfg.Stream,
		maxLen: cfg.MaxLen,
		logger: logger,
	}
}

func (p *Publisher) Publish(ctx context.Context, event models.SearchEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode search event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{payloadField: string(data)},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}

	p.logger.Debug().
		Str("stream", p.stream).
		Str("message_id", id).
		Str("event_id", event.ID).
		Str("outcome", string(event.Outcome)).
		Msg("Search event published")

	return nil
}

// Recent returns up to count events, newest first. Entries that fail to decode are skipped.
func (p *Publisher) Recent(ctx context.Context, count int64) ([]models.SearchEvent, error) {
	msgs, err := p.client.XRevRangeN(ctx, p.stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stream %s: %w", p.stream, err)
	}

	events := make([]models.SearchEvent, 0, len(msgs))
	for _, msg := range msgs {
		payload, ok := msg.Values[payloadField].(string)
		if !ok {
			p.logger.Warn().Str("id", msg.ID).Msg("Missing payload field")
			continue
		}

		var event models.SearchEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			p.logger.Warn().Err(err).Str("id", msg.ID).Msg("Failed to decode search event")
			continue
		}
		events = append(events, event)
	}

	return events, nil
}
