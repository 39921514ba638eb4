// Package session keeps the in-progress kiosk order of each session.
package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/scoopstand/api/internal/service"
)

var ErrNotFound = errors.New("session not found")

// Store holds one order per session ID.
type Store interface {
	Create(ctx context.Context, order service.Order) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (service.Order, error)
	Save(ctx context.Context, id uuid.UUID, order service.Order) error
	Delete(ctx context.Context, id uuid.UUID) error
}
