package domain

// Chunk is a single bounded segment of document text produced by the
// chunker. Chunks are immutable once created and consumed exactly once
// by the indexer.
type Chunk struct {
	// Text is the chunk content, stripped of surrounding whitespace.
	Text string

	// Index is the ordinal position within the document, contiguous
	// from 0 after empty chunks are dropped.
	Index int

	// Metadata is an independent copy of the metadata supplied to the
	// chunker. Mutating one chunk's metadata never affects another.
	Metadata map[string]string
}
