package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sofa-labs/couchsync/internal/domain"
)

const queueFileName = "queue.json"

// FileRepository implements ports.QueueRepository using one JSON file.
// The whole ordered list is rewritten on every save.
type FileRepository struct {
	dir string
}

// NewFileRepository creates a FileRepository rooted at dir.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

type queueFile struct {
	Entries []domain.QueueEntry `json:"entries"`
}

// Load retrieves the persisted queue from disk.
// Returns an empty queue and nil error if no file exists yet.
func (r *FileRepository) Load(ctx context.Context) ([]domain.QueueEntry, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var qf queueFile
	if err := json.Unmarshal(data, &qf); err != nil {
		return nil, err
	}
	return qf.Entries, nil
}

// Save persists the full queue atomically via temp file and rename.
func (r *FileRepository) Save(ctx context.Context, entries []domain.QueueEntry) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(queueFile{Entries: entries}, "", "  ")
	if err != nil {
		return err
	}

	tmp := r.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, r.Path())
}

// Path returns the full path to the queue file.
func (r *FileRepository) Path() string {
	return filepath.Join(r.dir, queueFileName)
}
