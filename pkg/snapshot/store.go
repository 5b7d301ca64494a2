package snapshot

import "errors"

// Store persists snapshots. Callers attach to a backend, save and read
// snapshots, and detach when done.
type Store interface {
	// Attach connects the Store to the backend described by config.
	// Creates the DataDir if it does not exist. Returns ErrAlreadyAttached
	// if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, every other operation returns ErrStoreDetached.
	Detach() error

	// SaveSnapshot persists s and returns its id. An empty SnapshotID is
	// replaced by a generated UUID v7 and a zero TakenAt by the current time.
	// Saving an id that already exists replaces the stored snapshot.
	SaveSnapshot(s *Snapshot) (string, error)

	// GetSnapshot returns the snapshot with the given id, or ErrSnapshotNotFound.
	GetSnapshot(id string) (*Snapshot, error)

	// ListSnapshots returns summaries of all snapshots ordered by TakenAt,
	// oldest first.
	ListSnapshots() ([]Summary, error)

	// DeleteSnapshot removes a snapshot and its records, or returns
	// ErrSnapshotNotFound.
	DeleteSnapshot(id string) error
}

// Store lifecycle errors.
var (
	ErrStoreDetached    = errors.New("store is detached")
	ErrAlreadyAttached  = errors.New("store is already attached")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrInvalidSnapshot  = errors.New("invalid snapshot")
)
