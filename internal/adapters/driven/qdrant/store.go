package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/arkiv-labs/arkiv/internal/core/domain"
	"github.com/arkiv-labs/arkiv/internal/core/ports/driven"
	"github.com/arkiv-labs/arkiv/internal/logger"
)

// Collection names.
const (
	DocumentsCollection = "documents"
	SyncStateCollection = "sync_state"
)

// scrollPageSize is the page size for ListSourceIDs scans.
const scrollPageSize = 1000

// Ensure Store implements both interfaces.
var (
	_ driven.DocumentStore  = (*Store)(nil)
	_ driven.SyncStateStore = (*Store)(nil)
)

// Config holds Qdrant connection settings.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool

	// VectorSize is the embedding dimension of the documents
	// collection.
	VectorSize int
}

// Store is a Qdrant-backed document and sync state store.
type Store struct {
	client     *qdrant.Client
	vectorSize int
}

// New connects to Qdrant.
func New(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: qdrant host is required", domain.ErrInvalidConfig)
	}
	if cfg.VectorSize <= 0 {
		return nil, fmt.Errorf("%w: vector size must be positive", domain.ErrInvalidConfig)
	}

	port := cfg.Port
	if port == 0 {
		port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	return &Store{client: client, vectorSize: cfg.VectorSize}, nil
}

// EnsureCollections creates the documents and sync_state collections if
// missing. Existing collections are left untouched.
func (s *Store) EnsureCollections(ctx context.Context) error {
	if err := s.ensureCollection(ctx, DocumentsCollection, uint64(s.vectorSize)); err != nil {
		return err
	}
	// Watermark points carry a placeholder vector; the collection is
	// only ever filtered, never searched.
	return s.ensureCollection(ctx, SyncStateCollection, 1)
}

func (s *Store) ensureCollection(ctx context.Context, name string, vectorSize uint64) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", name, err)
	}
	if exists {
		return nil
	}

	logger.Info("creating collection %s (vector size %d)", name, vectorSize)
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	return nil
}

// Insert writes rows to the documents collection.
func (s *Store) Insert(ctx context.Context, rows []domain.IndexedRow) error {
	if len(rows) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(rows))
	for _, row := range rows {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(row.ID),
			Vectors: qdrant.NewVectors(row.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"source_type":   string(row.SourceType),
				"source_id":     row.SourceID,
				"content":       row.Content,
				"chunk_index":   int64(row.ChunkIndex),
				"ingested_at":   row.IngestedAt,
				"created_date":  row.CreatedDate,
				"updated_date":  row.UpdatedDate,
				"filename":      row.Filename,
				"folder_path":   row.FolderPath,
				"file_type":     row.FileType,
				"email_from":    row.EmailFrom,
				"email_to":      row.EmailTo,
				"email_subject": row.EmailSubject,
				"email_date":    row.EmailDate,
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: DocumentsCollection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// DeleteBySourceID removes all rows for one logical document.
func (s *Store) DeleteBySourceID(ctx context.Context, sourceID string) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch("source_id", sourceID)},
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: DocumentsCollection,
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		return fmt.Errorf("delete source_id %s: %w", sourceID, err)
	}
	return nil
}

// DeleteByPath removes all rows matching filename + folder path within
// a source type.
func (s *Store) DeleteByPath(ctx context.Context, sourceType domain.SourceType, filename, folderPath string) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("source_type", string(sourceType)),
			qdrant.NewMatch("filename", filename),
			qdrant.NewMatch("folder_path", folderPath),
		},
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: DocumentsCollection,
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		return fmt.Errorf("delete path %s/%s: %w", folderPath, filename, err)
	}
	return nil
}

// HasDocument reports whether any row exists for the source ID.
func (s *Store) HasDocument(ctx context.Context, sourceID string) (bool, error) {
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: DocumentsCollection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("source_id", sourceID)},
		},
		Limit:       qdrant.PtrOf(uint32(1)),
		WithPayload: qdrant.NewWithPayload(false),
	})
	if err != nil {
		return false, fmt.Errorf("query source_id %s: %w", sourceID, err)
	}
	return len(points) > 0, nil
}

// ListSourceIDs scans the first chunk of every document of one source
// type. Matching chunk_index 0 yields one point per document.
func (s *Store) ListSourceIDs(ctx context.Context, sourceType domain.SourceType) (map[string]struct{}, error) {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("source_type", string(sourceType)),
			qdrant.NewMatchInt("chunk_index", 0),
		},
	}

	ids := make(map[string]struct{})
	var offset *qdrant.PointId
	for {
		points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: DocumentsCollection,
			Filter:         filter,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude("source_id"),
		})
		if err != nil {
			return nil, fmt.Errorf("scroll source ids: %w", err)
		}
		if len(points) == 0 {
			break
		}

		before := len(ids)
		for _, point := range points {
			if v, ok := point.Payload["source_id"]; ok {
				ids[v.GetStringValue()] = struct{}{}
			}
		}

		if len(points) < scrollPageSize {
			break
		}
		// Resuming from the last seen ID re-fetches that point once;
		// the set absorbs the duplicate. A page of nothing new means
		// the scan is done.
		if len(ids) == before {
			break
		}
		offset = points[len(points)-1].Id
	}
	return ids, nil
}

// Get retrieves sync state for a sync type.
func (s *Store) Get(ctx context.Context, syncType string) (*domain.SyncState, error) {
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: SyncStateCollection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("sync_type", syncType)},
		},
		Limit:       qdrant.PtrOf(uint32(1)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query sync state %s: %w", syncType, err)
	}
	if len(points) == 0 {
		return nil, domain.ErrNotFound
	}

	payload := points[0].Payload
	state := &domain.SyncState{
		SyncType: syncType,
		Cursor:   payload["cursor"].GetStringValue(),
	}
	if v, ok := payload["last_sync_time"]; ok {
		state.LastSyncTime, _ = time.Parse(time.RFC3339, v.GetStringValue())
	}
	if v, ok := payload["updated_at"]; ok {
		state.UpdatedAt, _ = time.Parse(time.RFC3339, v.GetStringValue())
	}
	return state, nil
}

// Save stores or updates sync state. The point ID derives from the
// sync type, so each source owns exactly one point.
func (s *Store) Save(ctx context.Context, state domain.SyncState) error {
	pointID := uuid.NewSHA1(uuid.NameSpaceOID, []byte("sync_state:"+state.SyncType)).String()

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(pointID),
		Vectors: qdrant.NewVectors(0),
		Payload: qdrant.NewValueMap(map[string]any{
			"sync_type":      state.SyncType,
			"cursor":         state.Cursor,
			"last_sync_time": state.LastSyncTime.UTC().Format(time.RFC3339),
			"updated_at":     state.UpdatedAt.UTC().Format(time.RFC3339),
		}),
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: SyncStateCollection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("save sync state %s: %w", state.SyncType, err)
	}
	return nil
}

// Close releases the client connection.
func (s *Store) Close() error {
	return s.client.Close()
}
