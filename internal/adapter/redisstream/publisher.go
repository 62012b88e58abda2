// Package redisstream publishes report lifecycle events to a Redis Stream.
package redisstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/couchcryptid/issue-report-service/internal/domain"
)

// Publisher appends report events to a stream with XADD.
// It implements events.BatchPublisher.
type Publisher struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

// NewPublisher connects to addr and verifies the connection.
func NewPublisher(ctx context.Context, addr, stream string, logger *slog.Logger) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Publisher{client: client, stream: stream, logger: logger}, nil
}

// PublishBatch appends every event in one pipelined round trip.
func (p *Publisher) PublishBatch(ctx context.Context, events []domain.ReportEvent) error {
	if len(events) == 0 {
		return nil
	}
	pipe := p.client.Pipeline()
	for _, evt := range events {
		args, err := xaddArgs(p.stream, evt)
		if err != nil {
			return err
		}
		pipe.XAdd(ctx, args)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("xadd %d events: %w", len(events), err)
	}
	p.logger.Debug("published report events", "count", len(events), "stream", p.stream)
	return nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}

func xaddArgs(stream string, evt domain.ReportEvent) (*redis.XAddArgs, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("serialize report event: %w", err)
	}
	return &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"event_id":   evt.ID,
			"event_type": string(evt.Type),
			"report_id":  evt.ReportID,
			"payload":    string(payload),
			"timestamp":  evt.OccurredAt.Format(time.RFC3339),
		},
	}, nil
}
