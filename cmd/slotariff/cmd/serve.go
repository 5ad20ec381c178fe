package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bher20/slotariff/internal/api"
	"github.com/bher20/slotariff/internal/auth"
	"github.com/bher20/slotariff/internal/config"
	"github.com/bher20/slotariff/internal/coordinator"
	"github.com/bher20/slotariff/internal/cron"
	"github.com/bher20/slotariff/internal/events"
	"github.com/bher20/slotariff/internal/metrics"
	"github.com/bher20/slotariff/internal/migrate"
	"github.com/bher20/slotariff/internal/notification"
	"github.com/bher20/slotariff/internal/prices"
	"github.com/bher20/slotariff/internal/storage"
	"github.com/bher20/slotariff/internal/suppliers"
	"github.com/bher20/slotariff/internal/tariff"
)

const (
	shutdownTimeout  = 10 * time.Second
	poolStatsPeriod  = 15 * time.Second
	eventBusCapacity = 64
	outboundQueue    = 128
	mailTimeout      = time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the refresh loop and the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// openStorage opens the configured backend, applying the schema first
// when auto-migration is on.
func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Storage, error) {
	sc := cfg.Storage
	gooseFirst := sc.AutoMigrate && sc.Schema == "goose" && sc.Driver != "memory"
	if gooseFirst {
		if err := migrate.Up(ctx, sc.Driver, sc.DSN); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("schema migrated", zap.String("driver", sc.Driver))
	}
	return storage.Open(ctx, storage.Config{
		Driver:      sc.Driver,
		DSN:         sc.DSN,
		AutoMigrate: sc.AutoMigrate && !gooseFirst,
		Suppliers:   suppliers.Records(),
		Logger:      log,
	})
}

func authTokens(cfg *config.Config) []auth.Token {
	var out []auth.Token
	for _, t := range cfg.Auth.AllTokens() {
		out = append(out, auth.Token{Name: t.Name, Role: t.Role, Hash: t.Hash, ExpiresAt: t.ExpiresAt})
	}
	return out
}

func emailConfig(cfg *config.Config) notification.Config {
	e := cfg.Email
	types := make([]events.Type, 0, len(e.Events))
	for _, t := range e.Events {
		types = append(types, events.Type(t))
	}
	return notification.Config{
		Provider:    e.Provider,
		Host:        e.Host,
		Port:        e.Port,
		Encryption:  e.Encryption,
		Username:    e.Username,
		Password:    e.Password,
		APIKey:      e.APIKey,
		FromAddress: e.FromAddress,
		FromName:    e.FromName,
		To:          e.To,
		Types:       types,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, ok := suppliers.Get(cfg.Supplier); !ok {
		log.Warn("supplier not in the known list", zap.String("supplier", cfg.Supplier))
	}

	// Validated by config.Load.
	sched := cron.MustParse(cfg.Refresh.Interval)

	bus := events.NewBus(eventBusCapacity)
	pub := events.Multi{bus}
	// Webhook and email deliveries run off the request and refresh paths.
	var outbound []*events.Async
	if cfg.Webhook.URL != "" {
		outbound = append(outbound, events.NewAsync(events.NewWebhook(events.WebhookConfig{
			URL:     cfg.Webhook.URL,
			Type:    cfg.Webhook.Type,
			Timeout: cfg.Webhook.Timeout,
		}, log), outboundQueue, 0, log))
	}
	if mailer := notification.New(emailConfig(cfg), log); mailer.Enabled() {
		outbound = append(outbound, events.NewAsync(mailer, outboundQueue, mailTimeout, log))
	}
	for _, a := range outbound {
		pub = append(pub, a)
	}

	coord := coordinator.New(
		tariff.NewEngine(log),
		prices.NewService(cfg.Supplier, cfg.Prices.Table(), st, log),
		pub,
		coordinator.WithLocation(cfg.Location()),
		coordinator.WithSchedule(sched),
		coordinator.WithStore(st),
		coordinator.WithLogger(log),
		coordinator.WithConsumption(coordinator.StoredConsumption{Store: st}),
	)

	authSvc, err := auth.NewService(authTokens(cfg), log)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if !authSvc.Enabled() {
		log.Warn("no API tokens configured; the API is open")
	}

	srv := &http.Server{
		Addr: cfg.Server.Listen,
		Handler: api.NewServer(api.Config{
			Coordinator: coord,
			Store:       st,
			Auth:        authSvc,
			Bus:         bus,
			Supplier:    cfg.Supplier,
			Logger:      log,
		}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return coord.Run(gctx) })
	for _, a := range outbound {
		g.Go(func() error { return a.Run(gctx) })
	}
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("timezone", cfg.Timezone))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if pool, ok := st.(*storage.PostgresPoolStorage); ok {
		g.Go(func() error {
			reportPoolStats(gctx, pool)
			return nil
		})
	}

	err = g.Wait()
	log.Info("stopped")
	return err
}

func reportPoolStats(ctx context.Context, pool *storage.PostgresPoolStorage) {
	ticker := time.NewTicker(poolStatsPeriod)
	defer ticker.Stop()
	for {
		s := pool.Stat()
		metrics.UpdateDBPoolMetrics("postgrespool", float64(s.TotalConns()), float64(s.IdleConns()), float64(s.AcquiredConns()))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
