package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// FileStore keeps documents under a base directory. With audit enabled the
// base directory is a git repository and every write becomes a commit, which
// gives a free edit trail for files users also touch with their own editors.
type FileStore struct {
	baseDir string
	audit   bool

	mu sync.Mutex
}

type FileStoreOption func(*FileStore)

// WithAudit turns on git commit tracking for every write.
func WithAudit() FileStoreOption {
	return func(s *FileStore) { s.audit = true }
}

func NewFileStore(baseDir string, opts ...FileStoreOption) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir: %w", err)
	}
	store := &FileStore{baseDir: baseDir}
	for _, opt := range opts {
		opt(store)
	}
	if store.audit {
		if _, err := git.PlainOpen(baseDir); err != nil {
			if !errors.Is(err, git.ErrRepositoryNotExists) {
				return nil, fmt.Errorf("open audit repo: %w", err)
			}
			if _, err := git.PlainInit(baseDir, false); err != nil {
				return nil, fmt.Errorf("init audit repo: %w", err)
			}
		}
	}
	return store, nil
}

// resolve maps a relative blob path onto the base directory, rejecting
// anything that would escape it.
func (s *FileStore) resolve(path string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(path))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid blob path %q", path)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}

// Write lands data via a temp file and rename so concurrent readers and the
// file watcher never see partial content.
func (s *FileStore) Write(ctx context.Context, path string, data []byte, author string) error {
	target, err := s.resolve(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create document dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".sherpa-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}

	if s.audit {
		if err := s.commit(path, author, "Update "+path); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileStore) Read(ctx context.Context, path string) ([]byte, error) {
	target, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

func (s *FileStore) Remove(ctx context.Context, path string) error {
	target, err := s.resolve(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotExist, path)
		}
		return fmt.Errorf("remove blob: %w", err)
	}
	if s.audit {
		return s.commit(path, "system", "Remove "+path)
	}
	return nil
}

func (s *FileStore) Stat(ctx context.Context, path string) (FileInfo, error) {
	target, err := s.resolve(path)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return FileInfo{}, fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat blob: %w", err)
	}
	return FileInfo{Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// List walks the base directory for markdown documents, skipping the git
// metadata directory.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	paths := make([]string, 0)
	err := filepath.WalkDir(s.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	return paths, nil
}

func (s *FileStore) commit(path, author, message string) error {
	repo, err := git.PlainOpen(s.baseDir)
	if err != nil {
		return fmt.Errorf("open audit repo: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open audit worktree: %w", err)
	}
	if _, err := worktree.Add(filepath.ToSlash(path)); err != nil {
		return fmt.Errorf("stage %s: %w", path, err)
	}
	if author == "" {
		author = "system"
	}
	_, err = worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: author + "@local.choicesherpa.dev",
			When:  time.Now(),
		},
	})
	if err != nil && !errors.Is(err, git.ErrEmptyCommit) {
		return fmt.Errorf("commit %s: %w", path, err)
	}
	return nil
}
