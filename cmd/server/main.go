// Command server runs the portfolio dashboard API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/cache"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/clients/yahoo"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/config"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/database"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/modules/charts"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/modules/dashboard"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/modules/snapshots"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/scheduler"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/server"
	"github.com/heisenbergtrx/portfolio-dashboard/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet.
		println("failed to load configuration:", err.Error())
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("portfolio", cfg.PortfolioPath).
		Int("port", cfg.Port).
		Msg("Starting portfolio dashboard")

	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileCache,
		Name:    "dashboard",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	cacheRepo := cache.NewRepository(db.Conn())
	if err := cacheRepo.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to create cache schema")
	}

	snapRepo := snapshots.NewRepository(db.Conn())
	if err := snapRepo.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to create snapshot schema")
	}

	dash, err := dashboard.New(cfg.PortfolioPath, cacheRepo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load portfolio")
	}

	settings := dash.Settings()
	marketClient := yahoo.NewClient(yahoo.DefaultHost,
		time.Duration(settings.FetchTimeoutSeconds)*time.Second, log)
	benchmark := snapshots.NewBenchmark(snapRepo, marketClient, log)
	chartSvc := charts.NewService(log)

	sched := scheduler.New(log)
	if schedule := settings.SnapshotSchedule; schedule != "" {
		job := snapshots.NewJob(dash, snapRepo, log)
		if err := sched.AddJob(schedule, job); err != nil {
			log.Fatal().Err(err).Str("schedule", schedule).Msg("Invalid snapshot schedule")
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		DB:        db,
		Dashboard: dash,
		Charts:    chartSvc,
		Cache:     cacheRepo,
		Snapshots: snapRepo,
		Benchmark: benchmark,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
