package ports

import (
	"context"

	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/domain"
)

// EventPublisher delivers order domain events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, domain.Event) error { return nil }
