package driven

import (
	"context"
	"time"
)

// ChangeKind classifies a file store listing entry.
type ChangeKind int

const (
	// KindFile is a created or modified file.
	KindFile ChangeKind = iota

	// KindFolder is a folder entry. Folders are never indexed.
	KindFolder

	// KindDeleted is a delete notification. Carries only a path.
	KindDeleted
)

// ChangeEntry is one entry from the file store's change listing.
type ChangeEntry struct {
	Kind ChangeKind

	// ID is the store's stable file identifier. Empty for deletes.
	ID string

	// Name is the base filename.
	Name string

	// PathDisplay is the display-cased full path.
	PathDisplay string

	// PathLower is the lower-cased full path. Delete notifications
	// are resolved against this.
	PathLower string

	// Size is the file size in bytes. Zero for folders and deletes.
	Size int64

	// ServerModified is the store's modification timestamp.
	ServerModified time.Time
}

// ChangePage is one page of change entries plus the continuation
// cursor.
type ChangePage struct {
	Entries []ChangeEntry

	// Cursor resumes listing after this page. The final page's cursor
	// becomes the persisted watermark.
	Cursor string

	// HasMore indicates further pages remain.
	HasMore bool
}

// FileStoreClient drives the remote file store's listing and download
// APIs.
type FileStoreClient interface {
	// ListFolder starts a full recursive listing of the folder.
	// Used for the bootstrap (backfill) pass.
	ListFolder(ctx context.Context, path string) (*ChangePage, error)

	// ListFolderContinue resumes listing from a cursor. Returns
	// domain.ErrInvalidCursor when the cursor is expired or malformed.
	ListFolderContinue(ctx context.Context, cursor string) (*ChangePage, error)

	// Download fetches a file's content by its stable identifier.
	Download(ctx context.Context, fileID string) ([]byte, error)
}
