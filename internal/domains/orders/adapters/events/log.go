package events

import (
	"context"
	"log/slog"

	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
)

var _ ports.EventPublisher = (*LogPublisher)(nil)

// LogPublisher writes events to a structured logger. Used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.Event) error {
	if event == nil {
		return nil
	}
	p.logger.LogAttrs(ctx, slog.LevelInfo, "order event",
		slog.String("event", event.EventName()),
		slog.String("key", eventKey(event)),
		slog.Time("occurredAt", event.OccurredAt()),
	)
	return nil
}
