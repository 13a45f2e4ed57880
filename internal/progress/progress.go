package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/contentbridge/cms-migration-service/internal/models"
)

// FileStore is a single-slot progress snapshot store backed by one JSON file.
// Writes overwrite the previous snapshot; the polling endpoint reads the file
// concurrently while an import runs. There is no locking: last write wins,
// and a momentarily stale read is acceptable because the value is advisory.
type FileStore struct {
	path string
}

// NewFileStore creates a snapshot store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Write publishes a snapshot, replacing whatever was there before. The write
// goes through a temp file and rename so readers never observe a torn file.
func (f *FileStore) Write(snapshot models.ProgressSnapshot) error {
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal progress snapshot: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write progress snapshot: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to publish progress snapshot: %w", err)
	}

	return nil
}

// Read returns the last written snapshot, or the zero state when no import
// has published one yet.
func (f *FileStore) Read() (models.ProgressSnapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.ProgressSnapshot{Status: "idle"}, nil
		}
		return models.ProgressSnapshot{}, fmt.Errorf("failed to read progress snapshot: %w", err)
	}

	var snapshot models.ProgressSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		// A torn or half-written file is treated as the zero state rather
		// than an error; the next write repairs it.
		return models.ProgressSnapshot{Status: "idle"}, nil
	}

	return snapshot, nil
}
