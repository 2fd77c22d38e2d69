package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/marquee/marquee/internal/api"
	"github.com/marquee/marquee/internal/api/ratelimit"
	"github.com/marquee/marquee/internal/availability"
	"github.com/marquee/marquee/internal/browse"
	"github.com/marquee/marquee/internal/config"
	"github.com/marquee/marquee/internal/health"
	"github.com/marquee/marquee/internal/scheduler"
	"github.com/marquee/marquee/internal/scheduler/tasks"
	"github.com/marquee/marquee/internal/tracing"
	"github.com/marquee/marquee/internal/websocket"
)

const (
	lockFileName     = "marquee.lock"
	limiterSweepTask = "ratelimit-sweep"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, reaction relay and background tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			return runServer(cmd.Context(), ctx, cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override server.port")
	return cmd
}

func runServer(parent context.Context, cmdCtx *commandContext, cfg *config.Config) error {
	log := cmdCtx.logger()

	if err := os.MkdirAll(cfg.Server.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	lock := flock.New(filepath.Join(cfg.Server.DataDir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another marquee server is already running with this data directory")
	}
	defer lock.Unlock()

	log.Info().
		Str("version", config.Version).
		Str("logLevel", cfg.Logging.Level).
		Bool("offline", cfg.OMDB.Offline).
		Msg("starting marquee")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("tracing disabled")
		shutdownTracing = func(context.Context) error { return nil }
	}

	svc, respCache, err := cmdCtx.metadataService()
	if err != nil {
		return err
	}

	loader := browse.NewLoader(svc, browse.DefaultRows(cfg.Browse.Genres), log.Logger)
	monitor := availability.NewMonitor(svc, nil, log.Logger)
	limiter := ratelimit.New(cfg.Server.ReactionsPerMinute, ratelimit.DefaultWindow, nil)

	sched, err := scheduler.New(nil, log.Logger)
	if err != nil {
		return err
	}
	if err := tasks.RegisterAvailabilityTask(sched, monitor, cfg.Scheduler.ProbeInterval); err != nil {
		return err
	}
	if err := tasks.RegisterCacheSweepTask(sched, respCache, cfg.Scheduler.SweepInterval, log.Logger); err != nil {
		return err
	}
	if err := sched.RegisterTask(scheduler.TaskConfig{
		ID:          limiterSweepTask,
		Name:        "Rate Limiter Sweep",
		Description: "Forgets clients whose reaction rate window has ended",
		Interval:    ratelimit.DefaultWindow,
		Func: func(context.Context) error {
			limiter.Cleanup()
			return nil
		},
	}); err != nil {
		return err
	}

	hub := websocket.NewHub(cfg.Realtime.HistorySize, log.Logger)

	healthSvc := health.NewService(nil, log.Logger)
	if err := registerHealthChecks(healthSvc, cfg, monitor, hub, cmdCtx.store); err != nil {
		return err
	}
	if err := tasks.RegisterHealthTask(sched, healthSvc, cfg.Scheduler.ProbeInterval); err != nil {
		return err
	}

	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(ctx)
	}()

	server := api.NewServer(cfg, api.Deps{
		Metadata:  svc,
		Loader:    loader,
		Monitor:   monitor,
		Hub:       hub,
		Scheduler: sched,
		Limiter:   limiter,
		Health:    healthSvc,
		Logs:      log,
	}, log.Logger)

	if err := sched.Start(); err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(cfg.Server.Address())
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	if err := sched.Stop(); err != nil {
		log.Warn().Err(err).Msg("scheduler shutdown error")
	}
	<-hubDone
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown error")
	}

	log.Info().Msg("server stopped")
	return nil
}
