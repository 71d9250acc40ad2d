package syncer

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"choicesherpa/api/internal/repo"
)

// reconciler is the slice of the document repository the syncer needs.
type reconciler interface {
	SyncFromFile(ctx context.Context, path string, fileContent []byte, now time.Time) (repo.SyncOutcome, error)
}

// Syncer pushes external edits of markdown files under a directory back into
// the metadata layer. It combines an fsnotify watch with a periodic full
// rescan, so files changed while the process was down are still picked up.
type Syncer struct {
	dir         string
	docs        reconciler
	debounce    time.Duration
	rescanEvery time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

type Option func(*Syncer)

// WithDebounce sets how long a file must stay quiet before it is synced.
// Editors tend to fire several write events per save.
func WithDebounce(d time.Duration) Option {
	return func(s *Syncer) { s.debounce = d }
}

// WithRescanInterval sets the period of the full directory rescan.
func WithRescanInterval(d time.Duration) Option {
	return func(s *Syncer) { s.rescanEvery = d }
}

func New(dir string, docs reconciler, opts ...Option) *Syncer {
	s := &Syncer{
		dir:         dir,
		docs:        docs,
		debounce:    500 * time.Millisecond,
		rescanEvery: 5 * time.Minute,
		pending:     map[string]*time.Timer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run watches the directory until the context is cancelled. It performs one
// full rescan on startup before entering the event loop.
func (s *Syncer) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := s.watchTree(watcher); err != nil {
		return err
	}
	if err := s.Rescan(ctx); err != nil {
		log.Printf("syncer: startup rescan: %v", err)
	}

	ticker := time.NewTicker(s.rescanEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.cancelPending()
			return ctx.Err()
		case <-ticker.C:
			if err := s.Rescan(ctx); err != nil {
				log.Printf("syncer: rescan: %v", err)
			}
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("syncer: watch error: %v", err)
		}
	}
}

func (s *Syncer) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := watcher.Add(event.Name); err != nil {
				log.Printf("syncer: watch %s: %v", event.Name, err)
			}
			return
		}
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if !strings.HasSuffix(event.Name, ".md") {
		return
	}
	s.schedule(ctx, event.Name)
}

// schedule arms (or re-arms) the debounce timer for one file.
func (s *Syncer) schedule(ctx context.Context, absPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.pending[absPath]; ok {
		timer.Reset(s.debounce)
		return
	}
	s.pending[absPath] = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		delete(s.pending, absPath)
		s.mu.Unlock()
		s.syncFile(ctx, absPath)
	})
}

func (s *Syncer) cancelPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path, timer := range s.pending {
		timer.Stop()
		delete(s.pending, path)
	}
}

// syncFile reconciles one file by its absolute path. Files that vanished
// between the event and the read are skipped; the integrity check reports
// missing files.
func (s *Syncer) syncFile(ctx context.Context, absPath string) {
	rel, err := s.relPath(absPath)
	if err != nil {
		log.Printf("syncer: %v", err)
		return
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("syncer: read %s: %v", rel, err)
		}
		return
	}
	outcome, err := s.docs.SyncFromFile(ctx, rel, data, time.Now().UTC())
	switch {
	case errors.Is(err, repo.ErrNotFound):
		log.Printf("syncer: %s is not a registered document, skipping", rel)
	case errors.Is(err, repo.ErrConflict):
		log.Printf("syncer: %s changed concurrently, will retry on next pass", rel)
	case err != nil:
		log.Printf("syncer: sync %s: %v", rel, err)
	case outcome.Changed:
		log.Printf("syncer: synced %s to version %d", rel, outcome.Version)
	}
}

// Rescan walks the whole directory and reconciles every markdown file.
// Unchanged files are no-ops in the repository, so this is cheap to repeat.
func (s *Syncer) Rescan(ctx context.Context) error {
	return filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".md") {
			s.syncFile(ctx, path)
		}
		return nil
	})
}

// watchTree registers the root and every existing subdirectory.
func (s *Syncer) watchTree(watcher *fsnotify.Watcher) error {
	return filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// relPath converts a filesystem path into the slash-separated storage path
// documents are registered under.
func (s *Syncer) relPath(absPath string) (string, error) {
	rel, err := filepath.Rel(s.dir, absPath)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
