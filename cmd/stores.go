package cmd

import (
	"context"
	"fmt"

	"veilslot/config"
	"veilslot/database"
	profileRepo "veilslot/database/repository/profile"
	slotRepo "veilslot/database/repository/slot"
	"veilslot/utils"

	"github.com/jackc/pgx/v5/pgxpool"
)

// stores is the repository pair for the configured STORE_DRIVER plus what
// the health monitor should probe and how to close it.
type stores struct {
	Slots    slotRepo.SlotRepository
	Profiles profileRepo.ProfileRepository
	Probes   map[string]utils.Pinger
	Close    func(ctx context.Context)

	mongoSlots    *slotRepo.MongoSlotRepo
	mongoProfiles *profileRepo.MongoProfileRepo
	pool          *pgxpool.Pool
}

func openStores(ctx context.Context) (*stores, error) {
	timeout := config.StoreTimeout()

	switch config.AppConfig.StoreDriver {
	case "postgres":
		pool, err := database.OpenPostgres(ctx, config.AppConfig.PostgresURL)
		if err != nil {
			return nil, err
		}
		return &stores{
			Slots:    slotRepo.NewPostgresSlotRepo(pool, timeout),
			Profiles: profileRepo.NewPostgresProfileRepo(pool, timeout),
			Probes:   map[string]utils.Pinger{"postgres": pool},
			Close:    func(context.Context) { pool.Close() },
			pool:     pool,
		}, nil
	case "mongo", "":
		if err := database.InitDB(ctx); err != nil {
			return nil, err
		}
		db := database.MongoDatabase()
		s := &stores{
			mongoSlots:    slotRepo.NewMongoSlotRepo(db, timeout),
			mongoProfiles: profileRepo.NewMongoProfileRepo(db, timeout),
			Probes:        map[string]utils.Pinger{"mongo": utils.PingFunc(database.PingMongo)},
			Close: func(ctx context.Context) {
				_ = database.CloseDB(ctx)
			},
		}
		s.Slots, s.Profiles = s.mongoSlots, s.mongoProfiles
		return s, nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (want mongo or postgres)", config.AppConfig.StoreDriver)
	}
}
