// Package indexer turns chunks into embedded rows and writes them to
// the document store with delete-before-insert consistency.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arkiv-labs/arkiv/internal/core/domain"
	"github.com/arkiv-labs/arkiv/internal/core/ports/driven"
	"github.com/arkiv-labs/arkiv/internal/logger"
)

// DefaultBatchSize is the number of rows per insert call.
const DefaultBatchSize = 100

// DefaultMaxContentLength is the store's maximum content field length
// in characters.
const DefaultMaxContentLength = 10000

// Indexer embeds document chunks and writes them to the document
// store. Re-indexing the same source ID is idempotent: all prior rows
// are deleted before new rows are written.
type Indexer struct {
	store         driven.DocumentStore
	embedder      driven.EmbeddingService
	batchSize     int
	maxContentLen int
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithBatchSize sets the number of rows per insert call.
func WithBatchSize(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithMaxContentLength sets the maximum stored content length in
// characters.
func WithMaxContentLength(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.maxContentLen = n
		}
	}
}

// New creates an Indexer.
func New(store driven.DocumentStore, embedder driven.EmbeddingService, opts ...Option) (*Indexer, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: document store is required", domain.ErrInvalidConfig)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding service is required", domain.ErrInvalidConfig)
	}

	ix := &Indexer{
		store:         store,
		embedder:      embedder,
		batchSize:     DefaultBatchSize,
		maxContentLen: DefaultMaxContentLength,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// IndexDocument deletes existing rows for the metadata's source ID,
// then embeds and inserts chunks. Returns the number of rows that
// ultimately succeeded; callers count a document as added only when
// the returned count is positive.
func (ix *Indexer) IndexDocument(ctx context.Context, chunks []domain.Chunk, meta domain.DocumentMetadata) (int, error) {
	if err := meta.Validate(); err != nil {
		return 0, fmt.Errorf("validate metadata: %w", err)
	}

	if len(chunks) == 0 {
		logger.Debug("index called with no chunks for source_id=%s", meta.SourceID)
		return 0, nil
	}

	// Remove the previous version of this document. Deletion failure
	// must not block new content; stale rows are cleaned up by the
	// next re-index.
	if err := ix.store.DeleteBySourceID(ctx, meta.SourceID); err != nil {
		logger.Warn("failed to delete existing rows for source_id=%s: %v", meta.SourceID, err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	logger.Debug("embedding %d chunks for source_id=%s", len(texts), meta.SourceID)
	embeddings, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(chunks), len(embeddings))
	}

	rows := ix.buildRows(chunks, embeddings, meta)
	inserted := ix.batchInsert(ctx, rows)

	logger.Info("indexed %d/%d chunks for source_id=%s", inserted, len(rows), meta.SourceID)
	return inserted, nil
}

// DeleteDocument removes all chunk rows for a source ID. Exposed for
// sync engines handling deletions of documents that were never
// re-chunked.
func (ix *Indexer) DeleteDocument(ctx context.Context, sourceID string) error {
	if sourceID == "" {
		return domain.ErrInvalidInput
	}
	if err := ix.store.DeleteBySourceID(ctx, sourceID); err != nil {
		return fmt.Errorf("delete document %s: %w", sourceID, err)
	}
	return nil
}

// buildRows combines chunks, embeddings, and metadata into insert-ready
// rows. Unset metadata fields stay empty strings.
func (ix *Indexer) buildRows(chunks []domain.Chunk, embeddings [][]float32, meta domain.DocumentMetadata) []domain.IndexedRow {
	now := time.Now().UTC().Format(time.RFC3339)

	rows := make([]domain.IndexedRow, len(chunks))
	for i, chunk := range chunks {
		rows[i] = domain.IndexedRow{
			ID:           uuid.New().String(),
			SourceType:   meta.SourceType,
			SourceID:     meta.SourceID,
			Content:      truncate(chunk.Text, ix.maxContentLen),
			Embedding:    embeddings[i],
			ChunkIndex:   chunk.Index,
			IngestedAt:   now,
			CreatedDate:  meta.CreatedDate,
			UpdatedDate:  meta.UpdatedDate,
			Filename:     meta.Filename,
			FolderPath:   meta.FolderPath,
			FileType:     meta.FileType,
			EmailFrom:    meta.EmailFrom,
			EmailTo:      meta.EmailTo,
			EmailSubject: meta.EmailSubject,
			EmailDate:    meta.EmailDate,
		}
	}
	return rows
}

// batchInsert writes rows in fixed-size batches. A failed batch is
// retried row-by-row; rows that still fail are logged and excluded
// from the success count.
func (ix *Indexer) batchInsert(ctx context.Context, rows []domain.IndexedRow) int {
	inserted := 0

	for start := 0; start < len(rows); start += ix.batchSize {
		end := start + ix.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		err := ix.store.Insert(ctx, batch)
		if err == nil {
			inserted += len(batch)
			continue
		}
		logger.Warn("batch insert failed (rows %d-%d), retrying individually: %v", start, end-1, err)

		for _, row := range batch {
			if err := ix.store.Insert(ctx, []domain.IndexedRow{row}); err != nil {
				logger.Error("failed to insert chunk (source_id=%s, chunk_index=%d): %v",
					row.SourceID, row.ChunkIndex, err)
				continue
			}
			inserted++
		}
	}
	return inserted
}

// truncate limits text to n characters.
func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
