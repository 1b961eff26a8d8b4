package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ── Inventory Source ────────────────────────────────────────
// Reads a local export directory: one JSON file per inventory page, each
// holding an array of string-keyed objects.

// InventorySource is a Source over a directory of *.json export files.
type InventorySource struct {
	dir string
}

// NewInventorySource creates a source over the given export directory.
func NewInventorySource(dir string) (*InventorySource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open export dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open export dir: %s is not a directory", dir)
	}
	return &InventorySource{dir: dir}, nil
}

// ListFiles returns the directory's .json file names in sorted order.
func (s *InventorySource) ListFiles(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list export dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// Stream decodes one export file incrementally. Array entries that are not
// objects, or that carry no scalar fields, are skipped without comment.
func (s *InventorySource) Stream(ctx context.Context, fileID string) (<-chan RawRecord, <-chan error) {
	out := make(chan RawRecord, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		f, err := os.Open(filepath.Join(s.dir, fileID))
		if err != nil {
			errCh <- fmt.Errorf("open %s: %w", fileID, err)
			return
		}
		defer f.Close()

		dec := json.NewDecoder(f)
		dec.UseNumber()

		tok, err := dec.Token()
		if err != nil {
			errCh <- fmt.Errorf("decode %s: %w", fileID, err)
			return
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			errCh <- fmt.Errorf("decode %s: root is not an array", fileID)
			return
		}

		for dec.More() {
			var entry map[string]any
			if err := dec.Decode(&entry); err != nil {
				// Mid-stream corruption: abandon the file so the whole
				// file is retried on the next run.
				errCh <- fmt.Errorf("decode %s: %w", fileID, err)
				return
			}
			rec, ok := flattenEntry(entry)
			if !ok {
				continue
			}
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, errCh
}

// Close is a no-op; the source holds no long-lived handles.
func (s *InventorySource) Close() error { return nil }

// Dir returns the export directory, for file-watch triggers.
func (s *InventorySource) Dir() string { return s.dir }
