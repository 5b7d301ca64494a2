// Package inspector provides the public API for capturing property
// diagnostics and persisting them as snapshots. It exposes the store factory
// while keeping the SQLite and JSONL details internal.
package inspector

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/depprop/internal/inspector"
	"github.com/mesh-intelligence/depprop/pkg/property"
	"github.com/mesh-intelligence/depprop/pkg/snapshot"
)

// NewStore creates a new snapshot store. The store is not attached; call
// Attach with a Config to initialize. A nil logger disables logging.
//
// Example:
//
//	store := inspector.NewStore(nil)
//	err := store.Attach(snapshot.Config{
//	    Backend: snapshot.BackendSQLite,
//	    DataDir: ".depprop",
//	})
//	defer store.Detach()
func NewStore(logger *zap.Logger) snapshot.Store {
	return inspector.NewStore(inspector.WithLogger(logger))
}

// Capture builds a snapshot of roots and their inheritance descendants. An
// empty id is assigned by the store on save.
func Capture(id string, roots ...*property.Object) *snapshot.Snapshot {
	return inspector.Capture(id, roots...)
}
