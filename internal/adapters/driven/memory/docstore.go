package memory

import (
	"context"
	"sync"

	"github.com/arkiv-labs/arkiv/internal/core/domain"
	"github.com/arkiv-labs/arkiv/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu   sync.RWMutex
	rows []domain.IndexedRow
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{}
}

// EnsureCollections is a no-op for the in-memory store.
func (s *DocumentStore) EnsureCollections(_ context.Context) error {
	return nil
}

// Insert appends rows to the store.
func (s *DocumentStore) Insert(_ context.Context, rows []domain.IndexedRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return nil
}

// DeleteBySourceID removes all rows for a source ID.
func (s *DocumentStore) DeleteBySourceID(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.rows[:0]
	for _, row := range s.rows {
		if row.SourceID != sourceID {
			kept = append(kept, row)
		}
	}
	s.rows = kept
	return nil
}

// DeleteByPath removes all rows matching filename + folder path within
// a source type.
func (s *DocumentStore) DeleteByPath(_ context.Context, sourceType domain.SourceType, filename, folderPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.rows[:0]
	for _, row := range s.rows {
		if row.SourceType == sourceType && row.Filename == filename && row.FolderPath == folderPath {
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	return nil
}

// HasDocument reports whether any row exists for the source ID.
func (s *DocumentStore) HasDocument(_ context.Context, sourceID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.rows {
		if row.SourceID == sourceID {
			return true, nil
		}
	}
	return false, nil
}

// ListSourceIDs returns the distinct source IDs of one source type.
func (s *DocumentStore) ListSourceIDs(_ context.Context, sourceType domain.SourceType) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]struct{})
	for _, row := range s.rows {
		if row.SourceType == sourceType {
			ids[row.SourceID] = struct{}{}
		}
	}
	return ids, nil
}

// Close releases resources.
func (s *DocumentStore) Close() error {
	return nil
}

// Rows returns a copy of all stored rows. Test helper.
func (s *DocumentStore) Rows() []domain.IndexedRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.IndexedRow, len(s.rows))
	copy(out, s.rows)
	return out
}

// RowsBySourceID returns a copy of the rows for one source ID. Test
// helper.
func (s *DocumentStore) RowsBySourceID(sourceID string) []domain.IndexedRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.IndexedRow
	for _, row := range s.rows {
		if row.SourceID == sourceID {
			out = append(out, row)
		}
	}
	return out
}
