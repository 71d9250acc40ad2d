package repo

import "errors"

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when an optimistic version check loses, or when
	// a cycle already has a document.
	ErrConflict = errors.New("document conflict")
	// ErrContentTooLarge is returned before any write when the markdown body
	// exceeds MaxContentBytes.
	ErrContentTooLarge = errors.New("document content too large")
)

// MaxContentBytes caps a single markdown body. Decision documents are
// hand-sized; anything near this limit is a runaway generator.
const MaxContentBytes = 10 << 20
