package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"covermig/internal/migrate"
	"covermig/internal/storage"
)

// Migrator runs one migration attempt. Satisfied by *migrate.Runner.
type Migrator interface {
	Run(ctx context.Context) (*migrate.Result, error)
}

// RunService wraps a runner with a concurrency guard, run-history
// recording, and the schedule / file-watch triggers.
type RunService struct {
	runner  Migrator
	runs    *storage.RunStore
	profile string
	runID   string
	log     *slog.Logger

	guard runningGuard

	// trigger lifecycle
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

func NewRunService(runner Migrator, runs *storage.RunStore, profile, runID string, log *slog.Logger) *RunService {
	return &RunService{
		runner:  runner,
		runs:    runs,
		profile: profile,
		runID:   runID,
		log:     log,
	}
}

// Run executes one attempt. A second call while the run is in flight
// fails fast instead of queueing; the checkpoint makes the next attempt
// pick up where this one ends.
func (s *RunService) Run(ctx context.Context) (*migrate.Result, error) {
	if !s.guard.TryLock(s.runID) {
		return nil, fmt.Errorf("run %s is already in flight", s.runID)
	}
	defer s.guard.Unlock(s.runID)

	started := time.Now().UTC()
	res, err := s.runner.Run(ctx)
	s.record(started, res, err)
	return res, err
}

// record appends the attempt to run history. History is best effort
// and never fails the run itself.
func (s *RunService) record(started time.Time, res *migrate.Result, runErr error) {
	if s.runs == nil {
		return
	}

	l := storage.RunLog{
		RunID:      s.runID,
		Profile:    s.profile,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
	switch {
	case runErr != nil:
		l.Status = storage.RunStatusError
		l.Error = runErr.Error()
	case !res.Completed:
		l.Status = storage.RunStatusCancelled
	default:
		l.Status = storage.RunStatusSuccess
	}
	if res != nil {
		l.Scanned = res.Stats.Scanned()
		l.Inserted = res.Stats.Inserted()
		l.Skipped = res.Stats.Skipped()
		l.Errors = res.Stats.Errors()
		l.Files = res.Stats.Files()
	}

	if err := s.runs.CreateRun(&l); err != nil {
		s.log.Error("record run history", "error", err)
	}
}

// ── Triggers (schedule + dir watch) ────────────────────────

// StartSchedule reruns the migration on a cron expression.
func (s *RunService) StartSchedule(ctx context.Context, expr string) error {
	c := cron.New()
	_, err := c.AddFunc(expr, func() {
		s.log.Info("scheduled run starting", "run", s.runID)
		if _, err := s.Run(ctx); err != nil {
			s.log.Error("scheduled run failed", "run", s.runID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	c.Start()
	s.cronSched = c
	s.log.Info("schedule active", "run", s.runID, "expr", expr)
	return nil
}

// WatchDir reruns the migration when export files land in dir. Events
// are debounced so a burst of writes triggers one run.
func (s *RunService) WatchDir(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %q: %w", dir, err)
	}
	s.watcher = watcher

	watchCtx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel

	go func() {
		var timer *time.Timer
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if !strings.HasSuffix(event.Name, ".json") {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				name := filepath.Base(event.Name)
				timer = time.AfterFunc(500*time.Millisecond, func() {
					s.log.Info("export changed, rerunning", "file", name, "run", s.runID)
					if _, err := s.Run(ctx); err != nil {
						s.log.Error("triggered run failed", "run", s.runID, "error", err)
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Error("watcher error", "error", err)
			}
		}
	}()

	s.log.Info("watching export dir", "dir", dir, "run", s.runID)
	return nil
}

// WaitRunning blocks until in-flight runs finish or ctx is cancelled.
// Used for graceful shutdown.
func (s *RunService) WaitRunning(ctx context.Context) {
	s.guard.WaitAll(ctx)
}

// Stop tears down the triggers. In-flight runs are unaffected; pair
// with WaitRunning for a clean shutdown.
func (s *RunService) Stop() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}
