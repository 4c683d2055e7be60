package domain

import "time"

// Sync type identifiers for persisted sync state records.
const (
	SyncTypeFileStore = "filestore"
	SyncTypeMailbox   = "mailbox"
)

// SyncState records how much of a remote change stream has been
// consumed. One record exists per source, owned exclusively by that
// source's sync engine: read at the start of a run, written only after
// the run completes a full unit of work (a drained cursor pass or a
// full date-bounded folder walk).
type SyncState struct {
	// SyncType identifies the owning source.
	SyncType string

	// Cursor is the opaque listing cursor for cursor-based sources.
	// Empty for date-watermark sources.
	Cursor string

	// LastSyncTime is the completion time of the last successful run.
	// The mailbox engine uses its date as the SINCE watermark.
	LastSyncTime time.Time

	// UpdatedAt is when this record was last written.
	UpdatedAt time.Time
}
