package driven

import (
	"context"

	"github.com/arkiv-labs/arkiv/internal/core/domain"
)

// DocumentStore persists and deletes indexed chunk rows.
//
// The store tolerates concurrent writers on disjoint source IDs.
// Callers must not issue concurrent delete+insert pairs for the same
// source ID from two workers.
type DocumentStore interface {
	// EnsureCollections creates the documents and sync_state
	// collections if they do not already exist.
	EnsureCollections(ctx context.Context) error

	// Insert writes rows to the documents collection. Either all rows
	// in the call are written or an error is returned; callers degrade
	// to smaller batches on failure.
	Insert(ctx context.Context, rows []domain.IndexedRow) error

	// DeleteBySourceID removes all rows for one logical document.
	// Deleting a source ID with no rows is a no-op, not an error.
	DeleteBySourceID(ctx context.Context, sourceID string) error

	// DeleteByPath removes all rows matching a filename + folder path
	// within one source type. Used for delete notifications that carry
	// only a path.
	DeleteByPath(ctx context.Context, sourceType domain.SourceType, filename, folderPath string) error

	// HasDocument reports whether any row exists for the source ID.
	HasDocument(ctx context.Context, sourceID string) (bool, error)

	// ListSourceIDs returns the source IDs of all indexed documents of
	// one source type (one entry per document, not per chunk).
	ListSourceIDs(ctx context.Context, sourceType domain.SourceType) (map[string]struct{}, error)

	// Close releases resources.
	Close() error
}

// SyncStateStore persists sync progress, one record per sync type.
type SyncStateStore interface {
	// Get retrieves sync state for a sync type.
	// Returns domain.ErrNotFound when no record exists yet.
	Get(ctx context.Context, syncType string) (*domain.SyncState, error)

	// Save stores or updates sync state.
	Save(ctx context.Context, state domain.SyncState) error
}
