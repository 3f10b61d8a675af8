// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/promptlabs/internal/domain"
)

// Repository defines the interface for persisting user and progress data.
type Repository interface {
	// GetUser retrieves a user by their user ID. Returns (nil, nil) when
	// the user does not exist.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// GetProgress retrieves the progress record for (userID, levelID).
	// Returns (nil, nil) when no record exists.
	GetProgress(ctx context.Context, userID, levelID string) (*domain.ProgressRecord, error)

	// ListProgress retrieves all progress records for a user.
	ListProgress(ctx context.Context, userID string) ([]*domain.ProgressRecord, error)

	// MarkLevelComplete records completion of a level in a single atomic
	// transaction. If the level is already completed the stored record is
	// returned unchanged and the user's XP total is not touched; otherwise
	// the record is created with the given award and the user's XP total is
	// incremented by the same amount. Exactly one net increment happens per
	// (user, level) regardless of concurrent or repeated calls.
	MarkLevelComplete(ctx context.Context, userID, levelID string, points int) (*domain.ProgressRecord, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
