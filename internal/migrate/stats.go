package migrate

import (
	"log/slog"
	"sync/atomic"
)

// Stats holds cumulative counters for a run. All counters are atomic so
// concurrent batch writes can fold their results in without a lock.
type Stats struct {
	scanned    atomic.Int64
	inserted   atomic.Int64
	skipped    atomic.Int64
	errors     atomic.Int64
	files      atomic.Int64
	fileErrors atomic.Int64
}

func (s *Stats) Scanned() int64    { return s.scanned.Load() }
func (s *Stats) Inserted() int64   { return s.inserted.Load() }
func (s *Stats) Skipped() int64    { return s.skipped.Load() }
func (s *Stats) Errors() int64     { return s.errors.Load() }
func (s *Stats) Files() int64      { return s.files.Load() }
func (s *Stats) FileErrors() int64 { return s.fileErrors.Load() }

func (s *Stats) addScanned(n int64)  { s.scanned.Add(n) }
func (s *Stats) addInserted(n int64) { s.inserted.Add(n) }
func (s *Stats) addSkipped(n int64)  { s.skipped.Add(n) }
func (s *Stats) addErrors(n int64)   { s.errors.Add(n) }
func (s *Stats) addFile()            { s.files.Add(1) }
func (s *Stats) addFileError()       { s.fileErrors.Add(1) }

// LogValue lets a *Stats be passed directly as a slog attribute value.
func (s *Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("scanned", s.Scanned()),
		slog.Int64("inserted", s.Inserted()),
		slog.Int64("skipped", s.Skipped()),
		slog.Int64("errors", s.Errors()),
		slog.Int64("files", s.Files()),
		slog.Int64("file_errors", s.FileErrors()),
	)
}
