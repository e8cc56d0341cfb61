package queue

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sofa-labs/couchsync/internal/domain"
)

func TestFileRepository_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRepository(dir)
	ctx := context.Background()

	entries := []domain.QueueEntry{
		domain.NewQueueEntry("watchlist", map[string]string{"action": "add", "external_id": "tt0111161"}),
		domain.NewQueueEntry("watchProgress", nil),
	}

	if err := repo.Save(ctx, entries); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d entries, want 2", len(loaded))
	}
	if loaded[0].ID != entries[0].ID {
		t.Errorf("loaded[0].ID = %s, want %s", loaded[0].ID, entries[0].ID)
	}
	if loaded[0].Metadata["external_id"] != "tt0111161" {
		t.Errorf("metadata not preserved: %v", loaded[0].Metadata)
	}
	if !loaded[1].Timestamp.Equal(entries[1].Timestamp) {
		t.Errorf("timestamp drifted: %v != %v", loaded[1].Timestamp, entries[1].Timestamp)
	}
}

func TestFileRepository_Load_MissingFile(t *testing.T) {
	repo := NewFileRepository(t.TempDir())

	entries, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("loaded %d entries from missing file, want 0", len(entries))
	}
}

func TestFileRepository_Load_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRepository(dir)

	if err := os.WriteFile(repo.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Load(context.Background()); err == nil {
		t.Error("Load on corrupt file returned nil error")
	}
}

func TestFileRepository_Save_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	repo := NewFileRepository(dir)

	if err := repo.Save(context.Background(), nil); err != nil {
		t.Fatalf("Save into missing dir: %v", err)
	}
	if _, err := os.Stat(repo.Path()); err != nil {
		t.Errorf("queue file not created: %v", err)
	}
}

func TestFileRepository_Save_LeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRepository(dir)

	if err := repo.Save(context.Background(), []domain.QueueEntry{domain.NewQueueEntry("preferences", nil)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(repo.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

// Durability property: whatever was enqueued and not purged survives a
// process restart through the persisted file.
func TestStore_RestartDurability(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := newFileBackedStore(t, dir)
	first.Enqueue("watchlist", nil)
	first.Enqueue("watchProgress", nil)
	first.Enqueue("watchlist", nil)
	first.RemoveDomain("watchlist")

	second := newFileBackedStore(t, dir)
	if err := second.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if second.Size() != 1 {
		t.Fatalf("size after restart = %d, want 1", second.Size())
	}
	if got := second.Entries()[0].Domain; got != "watchProgress" {
		t.Errorf("surviving domain = %s, want watchProgress", got)
	}
}

func newFileBackedStore(t *testing.T, dir string) *Store {
	t.Helper()
	return NewStore(NewFileRepository(dir), noop())
}
