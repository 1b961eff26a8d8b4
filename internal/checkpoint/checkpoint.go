package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"covermig/internal/config"
)

// Checkpoint records which export files a run has fully committed, plus the
// configuration snapshot the run started with. Absence of a checkpoint
// means "start fresh".
type Checkpoint struct {
	ProcessedFiles []string             `json:"processedFiles"`
	ProfileConfig  config.ProfileConfig `json:"profileConfig"`
}

// New returns an empty checkpoint carrying the given config snapshot.
func New(cfg config.ProfileConfig) *Checkpoint {
	return &Checkpoint{ProcessedFiles: []string{}, ProfileConfig: cfg}
}

// Processed reports whether fileID has already been committed.
func (c *Checkpoint) Processed(fileID string) bool {
	return slices.Contains(c.ProcessedFiles, fileID)
}

// MarkProcessed appends fileID to the processed set. The set only grows
// during a run; it is cleared atomically by Store.Delete on completion.
func (c *Checkpoint) MarkProcessed(fileID string) {
	if !c.Processed(fileID) {
		c.ProcessedFiles = append(c.ProcessedFiles, fileID)
	}
}

// Store persists checkpoints as one JSON file per run ID.
type Store struct {
	dir string
}

// NewStore creates a file-backed checkpoint store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(runID string) string {
	return filepath.Join(s.dir, runID+".checkpoint.json")
}

// Load reads the checkpoint for runID. It returns (nil, nil) when no
// checkpoint exists or the persisted structure fails the shape check:
// a corrupt checkpoint is treated as "start fresh", never as a fatal
// error. Only real I/O failures (e.g. permissions) surface as errors.
func (s *Store) Load(runID string) (*Checkpoint, error) {
	data, err := os.ReadFile(s.path(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	if !validShape(data) {
		return nil, nil
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, nil
	}
	if cp.ProcessedFiles == nil {
		cp.ProcessedFiles = []string{}
	}
	return &cp, nil
}

// Save durably overwrites the checkpoint for runID. The write goes to a
// temp file followed by a rename, so a concurrent Load never observes a
// partial checkpoint.
func (s *Store) Save(runID string, cp *Checkpoint) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp := s.path(runID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path(runID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

// Delete removes the checkpoint for runID. It reports whether a
// checkpoint existed; deleting an absent checkpoint is a no-op.
func (s *Store) Delete(runID string) (bool, error) {
	err := os.Remove(s.path(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete checkpoint: %w", err)
	}
	return true, nil
}

// validShape checks the persisted structure without trusting it:
// a JSON object whose processedFiles is an array of strings and whose
// profileConfig is an object with a numeric batchSize.
func validShape(data []byte) bool {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return false
	}

	files, ok := top["processedFiles"]
	if !ok {
		return false
	}
	var names []string
	if err := json.Unmarshal(files, &names); err != nil {
		return false
	}

	profile, ok := top["profileConfig"]
	if !ok {
		return false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(profile, &fields); err != nil {
		return false
	}
	batch, ok := fields["batchSize"]
	if !ok {
		return false
	}
	var n int
	return json.Unmarshal(batch, &n) == nil
}
