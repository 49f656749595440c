package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/citywatch/report-api/internal/model"
)

// NotificationStore is the durable per-user list of notification records,
// keyed by user id. Mutations are full-list replacements; every lifecycle
// operation is a LoadAll/SaveAll pair over the same key.
type NotificationStore interface {
	// LoadAll returns the stored list in persisted (oldest-first) order.
	// A missing key yields an empty list. A list that fails to deserialize
	// also yields an empty list rather than an error, so a corrupt value
	// can never crash a caller.
	LoadAll(ctx context.Context, userID string) ([]model.Notification, error)

	// SaveAll overwrites the entire list under the user's key, preserving
	// the given order exactly.
	SaveAll(ctx context.Context, userID string, records []model.Notification) error
}

// DeviceStore holds the stable device-scoped user identifier used to
// namespace the notification store before an account exists.
type DeviceStore interface {
	// EnsureUserID returns the persisted device user id, generating and
	// storing a fresh token on first call.
	EnsureUserID(ctx context.Context) (string, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}
