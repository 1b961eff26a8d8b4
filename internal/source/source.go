package source

import (
	"context"
	"encoding/json"
	"strconv"
)

// ── Source ──────────────────────────────────────────────────
// A Source adapts one paginated export location (a directory of inventory
// files, or a listing API) into file IDs and per-file record streams.

// RawRecord is one unvalidated item from the export, as opaque key/value
// text. Parsing into typed rows happens in the migration profile.
type RawRecord map[string]string

// Source is the extractor boundary the migration engine pulls from.
type Source interface {
	// ListFiles returns the export's file identifiers, sorted, so the
	// diff against the checkpoint's processed set is reproducible.
	ListFiles(ctx context.Context) ([]string, error)

	// Stream lazily yields the records of one file. The record channel is
	// closed when the file is exhausted or ctx is cancelled; at most one
	// error is sent on the error channel (buffered size 1). A stream that
	// fails mid-read is abandoned and the whole file is retried on the
	// next run. Malformed entries inside a file are skipped silently here
	// and never surface as records.
	Stream(ctx context.Context, fileID string) (<-chan RawRecord, <-chan error)

	// Close releases the source's resources.
	Close() error
}

// flattenEntry converts one decoded JSON object into a RawRecord.
// Scalar values are stringified; nulls and nested values are dropped.
// Returns false for entries with no usable fields.
func flattenEntry(entry map[string]any) (RawRecord, bool) {
	rec := make(RawRecord, len(entry))
	for k, v := range entry {
		switch t := v.(type) {
		case string:
			rec[k] = t
		case json.Number:
			rec[k] = t.String()
		case float64:
			rec[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			rec[k] = strconv.FormatBool(t)
		}
	}
	if len(rec) == 0 {
		return nil, false
	}
	return rec, true
}
