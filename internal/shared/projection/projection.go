package projection

import "time"

// Metadata captures persistence timestamps shared by projections.
type Metadata struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Projection represents an aggregate view plus persistence metadata.
type Projection[T any] struct {
	Entity   T
	Metadata Metadata
}

// New wraps an entity with the timestamps recorded by the store.
func New[T any](entity T, createdAt, updatedAt time.Time) *Projection[T] {
	return &Projection[T]{
		Entity:   entity,
		Metadata: Metadata{CreatedAt: createdAt, UpdatedAt: updatedAt},
	}
}

// Map converts the projected entity while keeping the metadata.
func Map[T, U any](p *Projection[T], fn func(T) U) *Projection[U] {
	if p == nil {
		return nil
	}
	return &Projection[U]{Entity: fn(p.Entity), Metadata: p.Metadata}
}
