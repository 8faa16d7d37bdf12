package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"veilslot/config"
	"veilslot/cron"
	"veilslot/handlers"
	"veilslot/routes"
	"veilslot/services/booking"
	"veilslot/services/ledger"
	"veilslot/services/marketplace"
	"veilslot/services/tasks"
	"veilslot/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var inlineStats bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the booking and marketplace HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), inlineStats)
		},
	}
	cmd.Flags().BoolVar(&inlineStats, "inline-stats", false, "apply buyer statistics in-process instead of queueing them")
	return cmd
}

func serve(parent context.Context, inlineStats bool) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := utils.GetLogger()
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := checkServeConfig(config.AppConfig); err != nil {
		return err
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

	cache := utils.GetCacheClient()
	st.Probes["redis"] = utils.PingFunc(func(ctx context.Context) error { return cache.Ping(ctx).Err() })

	// services.
	bookingService := &booking.DefaultBookingService{
		Slots:          st.Slots,
		Profiles:       st.Profiles,
		Payments:       booking.StaticVerifier{},
		Stats:          booking.NewStatsUpdater(st.Profiles),
		Idempotency:    booking.NewRedisIdempotencyStore(cache, 24*time.Hour),
		Logger:         logger.Named("booking"),
		MeetingBaseURL: config.AppConfig.MeetingBaseURL,
		WriteTimeout:   config.StoreTimeout() * 2,
	}
	if config.AppConfig.StripeKey != "" {
		bookingService.Payments = booking.NewStripeVerifier(config.AppConfig.StripeKey)
	}
	if !inlineStats {
		queueClient := asynq.NewClient(cron.QueueRedisOpt())
		defer queueClient.Close()
		bookingService.StatsQueue = tasks.NewStatsQueue(queueClient)
	}

	chain := config.Chain()
	ledgerClient := ledger.NewRPCClient(chain, logger.Named("ledger"))
	marketService, err := marketplace.NewMarketplaceService(ledgerClient, chain, logger.Named("marketplace"))
	if err != nil {
		return err
	}

	hb := &handlers.HandlerBundle{
		Booking:     bookingService,
		Marketplace: marketService,
		Logger:      logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	routes.RegisterRoutes(router, hb, []byte(config.AppConfig.JWTSecret), config.AppConfig.MaxRequestsPerMin)

	utils.StartHealthMonitor(ctx, 30*time.Second, st.Probes)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return err
	}
	logger.Info("server stopped gracefully")
	return nil
}

// checkServeConfig rejects settings the API cannot run safely without.
func checkServeConfig(cfg config.Config) error {
	var missing []error
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		missing = append(missing, errors.New("JWT_SECRET is required"))
	}
	if strings.TrimSpace(cfg.TokenType) == "" {
		missing = append(missing, errors.New("TOKEN_TYPE is required"))
	}
	return errors.Join(missing...)
}
