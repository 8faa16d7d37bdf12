package profileRepo

import (
	"context"
	"errors"

	"veilslot/models"
)

var ErrNotFound = errors.New("profile not found")

// ProfileRepository is the narrow profile boundary the booking core needs:
// an existence check, an idempotent placeholder insert, and the aggregates
// the statistics updater reads and writes back.
type ProfileRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	// EnsureMinimal creates a placeholder profile; an existing profile is left untouched.
	EnsureMinimal(ctx context.Context, id, role string) error
	Get(ctx context.Context, id string) (*models.ClientProfile, error)
	// UpdateStats overwrites the aggregates (last write wins).
	UpdateStats(ctx context.Context, id string, totalSessions int64, totalSpent string) error
}
