package domain

// FileSyncStats are the per-run counters returned by the file store
// sync engine.
type FileSyncStats struct {
	// Added counts documents indexed with at least one inserted row.
	Added int

	// Deleted counts delete notifications applied to the index.
	Deleted int

	// Skipped counts entries rejected by filters or yielding no text.
	// Expected conditions, not faults.
	Skipped int

	// Errors counts entries that failed unexpectedly. A later run
	// re-processes them only if the remote API re-reports them.
	Errors int
}

// MailSyncStats are the per-run counters returned by the mailbox sync
// engine.
type MailSyncStats struct {
	// Processed counts messages walked (body plus attachments).
	Processed int

	// Skipped counts already-indexed messages and rejected attachments.
	Skipped int

	// Errors counts messages or attachments that failed unexpectedly.
	Errors int
}

// ItemStatus classifies the outcome of one bulk-reprocessing work item.
type ItemStatus string

const (
	// StatusIndexed means at least one chunk row was inserted.
	StatusIndexed ItemStatus = "indexed"

	// StatusEmpty means no text could be extracted from the item.
	StatusEmpty ItemStatus = "empty"

	// StatusError means the item failed and should be retried by a
	// later reprocessing pass.
	StatusError ItemStatus = "error"
)

// ItemResult is the typed per-item outcome aggregated by the parallel
// dispatcher. One bad item never aborts the batch; it surfaces here.
type ItemResult struct {
	Status ItemStatus

	// Name and Path identify the processed item.
	Name string
	Path string

	// Chars is the number of extracted text characters.
	Chars int

	// Chunks is the number of chunk rows inserted.
	Chunks int

	// Err carries the failure for StatusError results.
	Err error
}
