package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"covermig/internal/checkpoint"
	"covermig/internal/config"
	"covermig/internal/domain"
	"covermig/internal/source"
	"covermig/internal/target"
)

// Result summarizes one run. Completed means every listed file was
// iterated without cancellation; per-record and per-file errors do not
// prevent completion.
type Result struct {
	Stats     *Stats
	Completed bool
	Elapsed   time.Duration
}

// Runner drives one migration run file by file: stream, parse, filter,
// group, transform, write, then checkpoint. A file enters the
// checkpoint only after every one of its batches has been committed.
type Runner struct {
	registry    *Registry
	profileName string
	src         source.Source
	tgt         target.Target
	store       *checkpoint.Store
	reporter    Reporter
	cfg         config.ProfileConfig
	runID       string
	log         *slog.Logger

	// Hook, when set, runs after the target's completion step on a
	// fully completed run.
	Hook func(ctx context.Context) error
}

// NewRunner takes the profile registry rather than a built profile: the
// profile is constructed per run, from the checkpoint's config snapshot
// when resuming, so a resume cannot change filter or precedence
// semantics halfway through the file set.
func NewRunner(
	registry *Registry,
	profileName string,
	src source.Source,
	tgt target.Target,
	store *checkpoint.Store,
	reporter Reporter,
	cfg config.ProfileConfig,
	runID string,
) *Runner {
	return &Runner{
		registry:    registry,
		profileName: profileName,
		src:         src,
		tgt:         tgt,
		store:       store,
		reporter:    reporter,
		cfg:         cfg,
		runID:       runID,
		log:         slog.Default(),
	}
}

// Run executes the migration until the source is exhausted or ctx is
// cancelled. Rerunning after either outcome is safe: processed files
// are skipped via the checkpoint and writes are idempotent upserts.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	stats := &Stats{}

	files, err := r.src.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source files: %w", err)
	}

	cp, err := r.store.Load(r.runID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if cp == nil {
		cp = checkpoint.New(r.cfg)
		r.log.Info("starting fresh run", "run", r.runID, "files", len(files))
	} else {
		r.log.Info("resuming run",
			"run", r.runID,
			"files", len(files),
			"already_processed", len(cp.ProcessedFiles),
		)
	}

	// A resumed run keeps the parameters it started with, even if the
	// live configuration has since changed. The snapshot drives the
	// batch size and the profile's filter and precedence settings.
	runCfg := cp.ProfileConfig
	batchSize := runCfg.BatchSize
	if batchSize < 1 {
		batchSize = config.DefaultBatchSize
	}
	profile, err := r.registry.New(r.profileName, runCfg)
	if err != nil {
		return nil, fmt.Errorf("build profile: %w", err)
	}

	writer := NewWriter(r.tgt.Upsert, profile.RefFormat(), r.log)

	cancelled := false
	for _, file := range files {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		if cp.Processed(file) {
			continue
		}

		fileStats, fileCancelled, err := r.processFile(ctx, file, profile, writer, batchSize, stats)
		if err != nil {
			// Extraction failed partway: nothing about this file is
			// recorded, so the next run retries it whole.
			stats.addFileError()
			r.log.Error("file failed", "file", file, "error", err)
			continue
		}

		if !fileCancelled {
			cp.MarkProcessed(file)
			stats.addFile()
		}
		if err := r.store.Save(r.runID, cp); err != nil {
			return nil, fmt.Errorf("save checkpoint: %w", err)
		}
		if r.reporter != nil {
			r.reporter.FileDone(ctx, file, fileStats, stats)
		}
		if fileCancelled {
			cancelled = true
			break
		}
	}

	completed := !cancelled
	if completed {
		if err := r.tgt.OnComplete(ctx); err != nil {
			return nil, fmt.Errorf("completion step: %w", err)
		}
		if r.Hook != nil {
			if err := r.Hook(ctx); err != nil {
				return nil, fmt.Errorf("completion hook: %w", err)
			}
		}
		if _, err := r.store.Delete(r.runID); err != nil {
			return nil, fmt.Errorf("delete checkpoint: %w", err)
		}
	}

	res := &Result{Stats: stats, Completed: completed, Elapsed: time.Since(start)}
	r.log.Info("run finished",
		"run", r.runID,
		"completed", completed,
		"elapsed", res.Elapsed.Round(time.Millisecond),
		"stats", stats,
	)
	return res, nil
}

// processFile streams one file through the pipeline. The returned
// cancelled flag means ctx fired before every batch was committed; the
// caller must then leave the file out of the checkpoint.
func (r *Runner) processFile(ctx context.Context, fileID string, profile Profile, writer *Writer, batchSize int, stats *Stats) (FileStats, bool, error) {
	var fs FileStats

	recCh, errCh := r.src.Stream(ctx, fileID)
	var rows []Row
	for rec := range recCh {
		fs.Scanned++
		row, ok := profile.Parse(rec)
		if !ok || !profile.Filter(row) {
			fs.Skipped++
			continue
		}
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return fs, false, err
	}
	if ctx.Err() != nil {
		return fs, true, nil
	}

	groups := Group(rows, profile.GroupKey)
	records := make([]domain.Artwork, 0, len(groups))
	for _, g := range groups {
		records = append(records, profile.Transform(g))
	}

	cancelled := false
	for _, batch := range chunk(records, batchSize) {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		written, dropped := writer.Upsert(ctx, batch)
		fs.Inserted += int64(written)
		fs.Errors += int64(dropped)
	}

	stats.addScanned(fs.Scanned)
	stats.addInserted(fs.Inserted)
	stats.addSkipped(fs.Skipped)
	stats.addErrors(fs.Errors)
	return fs, cancelled, nil
}
