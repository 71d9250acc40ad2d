// Package blob stores markdown document bodies. Paths are always relative
// (users/<user>/documents/<id>.md); the metadata layer owns path assignment
// and this package only moves bytes.
package blob

import (
	"context"
	"errors"
	"time"
)

// ErrNotExist is returned when a path has no stored blob.
var ErrNotExist = errors.New("blob does not exist")

// FileInfo describes one stored blob.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Store is the content side of the dual-write persistence model. Writes must
// be atomic per path: a reader never observes a half-written document.
type Store interface {
	Write(ctx context.Context, path string, data []byte, author string) error
	Read(ctx context.Context, path string) ([]byte, error)
	Remove(ctx context.Context, path string) error
	Stat(ctx context.Context, path string) (FileInfo, error)
	// List returns the relative paths of every stored document.
	List(ctx context.Context) ([]string, error)
}
