// Package session consumes the authenticated identity written by the
// external auth provider.
//
// The engine never authenticates anybody. The provider owns a JSON
// token file; this package loads it, watches it with fsnotify, and
// reloads on change so login, logout and token refresh take effect
// without a restart. A missing or invalid file simply means
// "unauthenticated", a skip condition, never an error surfaced to
// sync callers.
package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/sofa-labs/couchsync/internal/ports"
)

// FileSource implements ports.SessionSource over a JSON token file.
type FileSource struct {
	path   string
	logger ports.Logger

	mu   sync.RWMutex
	sess ports.Session
	ok   bool
}

// NewFileSource creates a source reading path. Call Load once at
// startup and Watch on a goroutine for live reloads.
func NewFileSource(path string, logger ports.Logger) *FileSource {
	return &FileSource{path: path, logger: logger}
}

// Current returns the session and whether it is usable.
func (f *FileSource) Current() (ports.Session, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.sess, f.ok && f.sess.Valid()
}

// Load (re)reads the token file. A missing file clears the session.
func (f *FileSource) Load() {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.logger.Warn("session file unreadable", ports.Err(err))
		}
		f.set(ports.Session{}, false)
		return
	}

	var sess ports.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		f.logger.Warn("session file malformed", ports.Err(err))
		f.set(ports.Session{}, false)
		return
	}

	f.set(sess, true)
	f.logger.Info("session loaded",
		ports.String("user_id", sess.UserID),
		ports.Bool("valid", sess.Valid()),
	)
}

// Watch reloads the session whenever the auth provider rewrites the
// token file. It watches the parent directory because providers
// typically replace the file via rename. Returns when ctx is cancelled.
func (f *FileSource) Watch(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		f.logger.Warn("session watcher unavailable", ports.Err(err))
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		f.logger.Warn("session watch failed", ports.String("dir", dir), ports.Err(err))
		return
	}

	name := filepath.Base(f.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			f.Load()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn("session watcher error", ports.Err(err))
		}
	}
}

func (f *FileSource) set(sess ports.Session, ok bool) {
	f.mu.Lock()
	f.sess = sess
	f.ok = ok
	f.mu.Unlock()
}
