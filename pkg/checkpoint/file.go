package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists checkpoints as JSON files in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the checkpoint directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("checkpoint: create directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(runID string) string {
	return filepath.Join(s.dir, runID+".checkpoint")
}

// Save writes the checkpoint atomically via temp file and rename.
func (s *FileStore) Save(ctx context.Context, cp *Checkpoint) error {
	cp.mu.Lock()
	data, err := json.MarshalIndent(cp, "", "  ")
	cp.mu.Unlock()
	if err != nil {
		return err
	}

	path := s.path(cp.RunID)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tempPath, path)
}

// Load reads a checkpoint by run ID.
func (s *FileStore) Load(ctx context.Context, runID string) (*Checkpoint, error) {
	data, err := os.ReadFile(s.path(runID))
	if err != nil {
		return nil, err
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("checkpoint: parse %s: %w", runID, err)
	}
	if cp.Done == nil {
		cp.Done = make(map[string]bool)
	}
	return &cp, nil
}

// Delete removes a checkpoint file.
func (s *FileStore) Delete(ctx context.Context, runID string) error {
	return os.Remove(s.path(runID))
}

// FindIncomplete scans the directory for an unfinished run over inputPath.
func (s *FileStore) FindIncomplete(ctx context.Context, inputPath string) (*Checkpoint, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var newest *Checkpoint
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".checkpoint" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		cp := new(Checkpoint)
		if err := json.Unmarshal(data, cp); err != nil {
			continue
		}
		if cp.InputPath != inputPath || cp.Phase == PhaseComplete {
			continue
		}
		if cp.Done == nil {
			cp.Done = make(map[string]bool)
		}
		if newest == nil || cp.StartedAt.After(newest.StartedAt) {
			newest = cp
		}
	}

	if newest == nil {
		return nil, os.ErrNotExist
	}
	return newest, nil
}
