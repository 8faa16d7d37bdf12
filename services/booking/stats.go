package booking

import (
	"context"
	"fmt"

	profileRepo "veilslot/database/repository/profile"
	"veilslot/utils"
)

// StatsUpdater maintains the buyer's running totals. The update is a plain
// read-modify-write and may drop an increment under concurrent updates for the
// same buyer.
type StatsUpdater struct {
	Profiles profileRepo.ProfileRepository
}

func NewStatsUpdater(profiles profileRepo.ProfileRepository) *StatsUpdater {
	return &StatsUpdater{Profiles: profiles}
}

// Increment adds one session and amount to the buyer's aggregates.
func (u *StatsUpdater) Increment(ctx context.Context, buyerID, amount string) error {
	profile, err := u.Profiles.Get(ctx, buyerID)
	if err != nil {
		return fmt.Errorf("failed to load profile %s: %w", buyerID, err)
	}

	total, err := utils.AddPrice(profile.TotalSpent, amount)
	if err != nil {
		return fmt.Errorf("failed to add %q to %q: %w", amount, profile.TotalSpent, err)
	}

	return u.Profiles.UpdateStats(ctx, buyerID, profile.TotalSessions+1, total)
}
