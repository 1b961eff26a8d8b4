package migrate

import (
	"context"
	"log/slog"
	"sync"
)

// FileStats are the counters for a single source file.
type FileStats struct {
	Scanned  int64
	Inserted int64
	Skipped  int64
	Errors   int64
}

// Reporter receives progress after each file finishes, committed or not.
type Reporter interface {
	FileDone(ctx context.Context, fileID string, file FileStats, total *Stats)
}

// ── Log Reporter ────────────────────────────────────────────

// LogReporter reports progress through structured logging.
type LogReporter struct {
	log *slog.Logger
}

func NewLogReporter(log *slog.Logger) *LogReporter {
	return &LogReporter{log: log}
}

func (r *LogReporter) FileDone(ctx context.Context, fileID string, file FileStats, total *Stats) {
	r.log.InfoContext(ctx, "file done",
		"file", fileID,
		"scanned", file.Scanned,
		"inserted", file.Inserted,
		"skipped", file.Skipped,
		"errors", file.Errors,
		"total", total,
	)
}

// ── Mock Reporter ───────────────────────────────────────────

// FileEvent is one recorded FileDone call.
type FileEvent struct {
	FileID string
	File   FileStats
}

// MockReporter records progress events for tests.
type MockReporter struct {
	mu     sync.Mutex
	events []FileEvent
}

func (r *MockReporter) FileDone(ctx context.Context, fileID string, file FileStats, total *Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, FileEvent{FileID: fileID, File: file})
}

// Events returns a copy of the recorded events.
func (r *MockReporter) Events() []FileEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FileEvent, len(r.events))
	copy(out, r.events)
	return out
}
