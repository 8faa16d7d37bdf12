package cmd

import (
	"context"
	"fmt"
	"time"

	"veilslot/database/migrate"
	"veilslot/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply postgres migrations or create mongo indexes for the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := utils.GetLogger()
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, cancel := context.WithTimeout(parent, time.Minute)
			defer cancel()

			st, err := openStores(ctx)
			if err != nil {
				return err
			}
			defer st.Close(context.Background())

			if st.pool != nil {
				applied, err := migrate.Up(ctx, st.pool)
				if err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				logger.Info("postgres migrations applied", zap.Strings("files", applied))
				return nil
			}

			if err := st.mongoSlots.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("slot indexes: %w", err)
			}
			if err := st.mongoProfiles.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("profile indexes: %w", err)
			}
			logger.Info("mongo indexes ensured")
			return nil
		},
	}
}
