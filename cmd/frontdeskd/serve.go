package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/frontdeskd/internal/config"
	"github.com/fyrsmithlabs/frontdeskd/internal/dashboard"
	"github.com/fyrsmithlabs/frontdeskd/internal/helpreq"
	"github.com/fyrsmithlabs/frontdeskd/internal/knowledge"
	"github.com/fyrsmithlabs/frontdeskd/internal/logging"
	"github.com/fyrsmithlabs/frontdeskd/internal/notify"
	"github.com/fyrsmithlabs/frontdeskd/internal/oracle"
	"github.com/fyrsmithlabs/frontdeskd/internal/store"
	"github.com/fyrsmithlabs/frontdeskd/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the frontdeskd daemon",
	Long: `Start the daemon: the supervisor dashboard API, notification
fan-out, and the stale-request timeout sweeper.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		return runServe(ctx)
	},
}

// runServe wires the daemon together and blocks until the context is
// cancelled:
//  1. Loads and validates configuration
//  2. Initializes the logger
//  3. Opens the badger store and warms the knowledge index
//  4. Connects notification fan-out (NATS, console fallback)
//  5. Starts the timeout sweeper and the dashboard HTTP server
//  6. Performs graceful shutdown on context cancellation
func runServe(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logging.Sync(logger)
	}()

	logger.Info("starting frontdeskd",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout),
	)

	tel, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "frontdeskd",
		ServiceVersion: version,
		TraceEndpoint:  cfg.Telemetry.TraceEndpoint,
		TraceInsecure:  cfg.Telemetry.TraceInsecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down telemetry", zap.Error(err))
		}
	}()

	st, err := store.Open(store.Config{
		Path:       cfg.Store.Path,
		InMemory:   cfg.Store.InMemory,
		SyncWrites: cfg.Store.SyncWrites,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close store", zap.Error(err))
		}
	}()

	index, err := knowledge.NewIndex(nil, st, logger)
	if err != nil {
		return fmt.Errorf("failed to create knowledge index: %w", err)
	}
	if err := index.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load knowledge index: %w", err)
	}
	logger.Info("knowledge index loaded", zap.Int("entries", index.Len()))

	notifier, natsConn, err := buildNotifier(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to connect notifications: %w", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	lifecycle, err := helpreq.NewService(st, index, notifier, logger)
	if err != nil {
		return fmt.Errorf("failed to create lifecycle service: %w", err)
	}

	server, err := dashboard.NewServer(lifecycle, index, st, logger, &dashboard.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create dashboard server: %w", err)
	}

	go runSweeper(ctx, lifecycle, cfg.Sweeper.Interval, cfg.Sweeper.MaxAge, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("dashboard server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down dashboard server: %w", err)
	}

	logger.Info("frontdeskd shutdown complete")
	return nil
}

// buildNotifier connects NATS when a URL is configured, otherwise falls
// back to console notifications.
func buildNotifier(cfg *config.Config, logger *zap.Logger) (notify.Notifier, *nats.Conn, error) {
	if cfg.NATS.URL == "" {
		logger.Info("nats url not configured, using console notifications")
		return notify.NewConsoleNotifier(logger), nil, nil
	}

	conn, err := nats.Connect(cfg.NATS.URL,
		nats.Name("frontdeskd"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to nats at %s: %w", cfg.NATS.URL, err)
	}

	notifier, err := notify.NewNATSNotifier(conn, logger)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	logger.Info("connected to nats", zap.String("url", cfg.NATS.URL))
	return notifier, conn, nil
}

// runSweeper periodically times out stale pending help requests.
func runSweeper(ctx context.Context, lifecycle *helpreq.Service, interval, maxAge time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := lifecycle.TimeoutStale(ctx, maxAge)
			if err != nil {
				logger.Error("timeout sweep failed", zap.Error(err))
				continue
			}
			if count > 0 {
				logger.Info("timeout sweep completed", zap.Int("timed_out", count))
			}
		}
	}
}

// buildOracle creates the LLM client from config. Split out so the
// agent command shares it.
func buildOracle(cfg *config.Config, logger *zap.Logger) (oracle.Client, error) {
	return oracle.NewOpenAIClient(oracle.Config{
		BaseURL: cfg.Oracle.BaseURL,
		APIKey:  cfg.Oracle.APIKey,
		Model:   cfg.Oracle.Model,
	}, logger)
}
