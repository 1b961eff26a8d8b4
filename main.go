package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"covermig/internal/checkpoint"
	"covermig/internal/config"
	"covermig/internal/migrate"
	"covermig/internal/service"
	"covermig/internal/source"
	"covermig/internal/storage"
	"covermig/internal/target"
)

// shutdownGrace bounds how long shutdown waits for an in-flight run to
// reach its next cancellation point.
const shutdownGrace = 30 * time.Second

func main() {
	envFile := flag.String("env", ".env", "env file to load before reading COVERMIG_* variables")
	profile := flag.String("profile", "", "migration profile (overrides COVERMIG_PROFILE)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	if err := run(*envFile, *profile, log); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func run(envFile, profileOverride string, log *slog.Logger) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if profileOverride != "" {
		cfg.ProfileName = profileOverride
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := migrate.DefaultRegistry()
	if _, err := registry.New(cfg.ProfileName, cfg.Profile); err != nil {
		return fmt.Errorf("%w: %v", config.ErrConfig, err)
	}

	var src source.Source
	if cfg.SourceDir != "" {
		inv, err := source.NewInventorySource(cfg.SourceDir)
		if err != nil {
			return err
		}
		src = inv
	} else {
		src = source.NewHTTPSource(cfg.SourceURL)
	}
	defer src.Close()

	tgt, err := target.New(ctx, cfg.TargetDriver, cfg.TargetDSN, cfg.Profile.RefFormat)
	if err != nil {
		return err
	}
	defer tgt.Close()

	stateDB, err := storage.New(filepath.Join(cfg.StateDir, "covermig.db"))
	if err != nil {
		return err
	}
	defer stateDB.Close()

	store := checkpoint.NewStore(cfg.StateDir)
	runner := migrate.NewRunner(registry, cfg.ProfileName, src, tgt, store,
		migrate.NewLogReporter(log), cfg.Profile, cfg.RunID)
	svc := service.NewRunService(runner, storage.NewRunStore(stateDB),
		cfg.ProfileName, cfg.RunID, log)

	if cfg.Schedule == "" && !cfg.Watch {
		res, err := svc.Run(ctx)
		if err != nil {
			return err
		}
		if !res.Completed {
			log.Info("run interrupted, rerun to resume", "run", cfg.RunID)
		}
		return nil
	}

	// Trigger mode: run once now, then keep rerunning on the schedule
	// or when new export files land.
	if _, err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("initial run failed", "error", err)
	}
	if cfg.Schedule != "" {
		if err := svc.StartSchedule(ctx, cfg.Schedule); err != nil {
			return err
		}
	}
	if cfg.Watch {
		if err := svc.WatchDir(ctx, cfg.SourceDir); err != nil {
			return err
		}
	}

	<-ctx.Done()
	log.Info("shutting down")
	svc.Stop()
	waitCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	svc.WaitRunning(waitCtx)
	return nil
}
