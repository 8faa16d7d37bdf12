package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"veilslot/cron"
	"veilslot/services/booking"
	"veilslot/utils"

	"github.com/spf13/cobra"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Process queued buyer statistics updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := utils.GetLogger().Named("worker")

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := openStores(ctx)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				st.Close(closeCtx)
			}()

			return cron.RunStatsWorker(ctx, booking.NewStatsUpdater(st.Profiles), logger)
		},
	}
}
