package domain

// SourceType identifies which ingestion source produced a document.
type SourceType string

const (
	// SourceFileStore is the cloud file store source.
	SourceFileStore SourceType = "filestore"

	// SourceMailbox is the IMAP mailbox source.
	SourceMailbox SourceType = "mailbox"
)

// DocumentMetadata is the shared metadata attached to every chunk of a
// single logical document. Unset attributes stay empty strings so rows
// satisfy fixed-schema stores that reject nulls.
type DocumentMetadata struct {
	// SourceType is the originating source.
	SourceType SourceType

	// SourceID is the stable, source-scoped key joining all chunks of
	// one logical document. Archive members use
	// "<container_id>:<internal_path>"; mail bodies "<message_id>:body";
	// mail attachments "<message_id>:att:<filename>".
	SourceID string

	// CreatedDate and UpdatedDate are RFC 3339 timestamps.
	CreatedDate string
	UpdatedDate string

	// File store attributes.
	Filename   string
	FolderPath string
	FileType   string

	// Mailbox attributes.
	EmailFrom    string
	EmailTo      string
	EmailSubject string
	EmailDate    string
}

// Validate reports whether the metadata identifies a document.
func (m DocumentMetadata) Validate() error {
	if m.SourceID == "" {
		return ErrInvalidInput
	}
	switch m.SourceType {
	case SourceFileStore, SourceMailbox:
		return nil
	default:
		return ErrInvalidInput
	}
}

// IndexedRow is one stored row per chunk: the metadata attribute bag
// plus content, embedding vector, and chunk position.
type IndexedRow struct {
	// ID is the unique row identifier (UUID).
	ID string

	SourceType SourceType
	SourceID   string

	// Content is the chunk text, truncated to the store's maximum
	// field length.
	Content string

	// Embedding is the fixed-dimension vector for the content.
	Embedding []float32

	// ChunkIndex is the chunk's ordinal position in the document.
	ChunkIndex int

	// IngestedAt is the RFC 3339 indexing timestamp.
	IngestedAt string

	CreatedDate string
	UpdatedDate string

	Filename   string
	FolderPath string
	FileType   string

	EmailFrom    string
	EmailTo      string
	EmailSubject string
	EmailDate    string
}
