package filestore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/arkiv-labs/arkiv/internal/chunker"
	"github.com/arkiv-labs/arkiv/internal/core/domain"
	"github.com/arkiv-labs/arkiv/internal/core/ports/driven"
	"github.com/arkiv-labs/arkiv/internal/indexer"
	"github.com/arkiv-labs/arkiv/internal/logger"
)

// DefaultMaxFileSize is the per-file download ceiling.
const DefaultMaxFileSize = 50 << 20 // 50 MiB

// DefaultExtensions are the file extensions processed by default.
var DefaultExtensions = []string{".txt", ".md", ".csv", ".log", ".html", ".htm", ".zip"}

// Config holds the engine's filter settings.
type Config struct {
	// FolderPath is the root folder for the bootstrap listing. Empty
	// means the store root.
	FolderPath string

	// SupportedExtensions limits which files are processed. Extensions
	// carry a leading dot, lower case. Nil means DefaultExtensions.
	SupportedExtensions []string

	// MaxFileSize rejects files over this many bytes. Zero means
	// DefaultMaxFileSize.
	MaxFileSize int64
}

// Engine synchronizes the remote file store into the document index.
// Single-threaded: pages are processed strictly in order because
// cursor correctness depends on full-pass completion.
type Engine struct {
	client    driven.FileStoreClient
	extractor driven.TextExtractor
	splitter  *chunker.Splitter
	indexer   *indexer.Indexer
	store     driven.DocumentStore
	states    driven.SyncStateStore

	folderPath  string
	maxFileSize int64
	extensions  map[string]struct{}
}

// New creates a file store sync engine.
func New(
	client driven.FileStoreClient,
	extractor driven.TextExtractor,
	splitter *chunker.Splitter,
	ix *indexer.Indexer,
	store driven.DocumentStore,
	states driven.SyncStateStore,
	cfg Config,
) (*Engine, error) {
	if client == nil || extractor == nil || splitter == nil || ix == nil || store == nil || states == nil {
		return nil, fmt.Errorf("%w: all file store engine dependencies are required", domain.ErrInvalidConfig)
	}

	exts := cfg.SupportedExtensions
	if exts == nil {
		exts = DefaultExtensions
	}
	extSet := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		extSet[strings.ToLower(ext)] = struct{}{}
	}

	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	return &Engine{
		client:      client,
		extractor:   extractor,
		splitter:    splitter,
		indexer:     ix,
		store:       store,
		states:      states,
		folderPath:  cfg.FolderPath,
		maxFileSize: maxSize,
		extensions:  extSet,
	}, nil
}

// Sync runs one full pass over the change stream. With no persisted
// cursor it bootstraps from a full recursive listing; otherwise it
// resumes from the cursor. The new cursor is persisted only after
// every page has been processed, so a crash mid-pass re-processes
// entries on the next run (safe: indexing is idempotent).
func (e *Engine) Sync(ctx context.Context) (domain.FileSyncStats, error) {
	var stats domain.FileSyncStats

	cursor, err := e.loadCursor(ctx)
	if err != nil {
		return stats, err
	}

	page, err := e.firstPage(ctx, cursor)
	if err != nil {
		return stats, err
	}

	for {
		logger.Debug("file sync page: %d entries, has_more=%v", len(page.Entries), page.HasMore)
		for _, entry := range page.Entries {
			e.handleEntry(ctx, entry, &stats)
		}
		cursor = page.Cursor
		if !page.HasMore {
			break
		}
		page, err = e.client.ListFolderContinue(ctx, cursor)
		if err != nil {
			return stats, fmt.Errorf("continue listing: %w", err)
		}
	}

	now := time.Now().UTC()
	state := domain.SyncState{
		SyncType:     domain.SyncTypeFileStore,
		Cursor:       cursor,
		LastSyncTime: now,
		UpdatedAt:    now,
	}
	if err := e.states.Save(ctx, state); err != nil {
		return stats, fmt.Errorf("save sync state: %w", err)
	}

	logger.Info("file sync complete: added=%d deleted=%d skipped=%d errors=%d",
		stats.Added, stats.Deleted, stats.Skipped, stats.Errors)
	return stats, nil
}

// loadCursor returns the persisted cursor, or empty for bootstrap.
func (e *Engine) loadCursor(ctx context.Context) (string, error) {
	state, err := e.states.Get(ctx, domain.SyncTypeFileStore)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load sync state: %w", err)
	}
	return state.Cursor, nil
}

// firstPage starts the pass: a full listing for bootstrap, a cursor
// continuation otherwise. An expired cursor falls back to bootstrap.
func (e *Engine) firstPage(ctx context.Context, cursor string) (*driven.ChangePage, error) {
	if cursor == "" {
		logger.Info("no file sync cursor, bootstrapping from full listing of %q", e.folderPath)
		page, err := e.client.ListFolder(ctx, e.folderPath)
		if err != nil {
			return nil, fmt.Errorf("list folder: %w", err)
		}
		return page, nil
	}

	page, err := e.client.ListFolderContinue(ctx, cursor)
	if errors.Is(err, domain.ErrInvalidCursor) {
		logger.Warn("stored cursor rejected, restarting from full listing: %v", err)
		page, err = e.client.ListFolder(ctx, e.folderPath)
	}
	if err != nil {
		return nil, fmt.Errorf("resume listing: %w", err)
	}
	return page, nil
}

// handleEntry dispatches one change entry. Per-entry failures are
// counted and swallowed so a bad entry never aborts the pass.
func (e *Engine) handleEntry(ctx context.Context, entry driven.ChangeEntry, stats *domain.FileSyncStats) {
	switch entry.Kind {
	case driven.KindFolder:
		// Folders are never indexed.
	case driven.KindDeleted:
		e.handleDelete(ctx, entry, stats)
	case driven.KindFile:
		e.handleFile(ctx, entry, stats)
	}
}

// handleDelete removes all rows matching the deleted path. Delete
// notifications carry only a path, so matching is by
// (filename, folder_path) within the source type. Known limitation: a
// deleted-then-recreated file reusing the same path between runs loses
// the new generation's rows too.
func (e *Engine) handleDelete(ctx context.Context, entry driven.ChangeEntry, stats *domain.FileSyncStats) {
	filename, folder := splitEntryPath(entry)
	if err := e.store.DeleteByPath(ctx, domain.SourceFileStore, filename, folder); err != nil {
		logger.Error("delete by path %s/%s failed: %v", folder, filename, err)
		stats.Errors++
		return
	}
	logger.Debug("deleted indexed rows for %s/%s", folder, filename)
	stats.Deleted++
}

func (e *Engine) handleFile(ctx context.Context, entry driven.ChangeEntry, stats *domain.FileSyncStats) {
	ext := strings.ToLower(path.Ext(entry.Name))
	if !e.shouldProcess(ext, entry.Size) {
		logger.Debug("skipping %s (ext=%s size=%d)", entry.PathDisplay, ext, entry.Size)
		stats.Skipped++
		return
	}

	data, err := e.client.Download(ctx, entry.ID)
	if err != nil {
		logger.Error("download %s failed: %v", entry.PathDisplay, err)
		stats.Errors++
		return
	}

	if ext == ".zip" {
		e.indexArchive(ctx, entry, data, stats)
		return
	}

	text := e.extractor.ExtractText(data, ext)
	if strings.TrimSpace(text) == "" {
		logger.Debug("no text extracted from %s", entry.PathDisplay)
		stats.Skipped++
		return
	}

	filename, folder := splitEntryPath(entry)
	meta := domain.DocumentMetadata{
		SourceType:  domain.SourceFileStore,
		SourceID:    entry.ID,
		Filename:    filename,
		FolderPath:  folder,
		FileType:    strings.TrimPrefix(ext, "."),
		CreatedDate: entry.ServerModified.UTC().Format(time.RFC3339),
		UpdatedDate: entry.ServerModified.UTC().Format(time.RFC3339),
	}

	chunks := e.splitter.Split(text, nil)
	inserted, err := e.indexer.IndexDocument(ctx, chunks, meta)
	if err != nil {
		logger.Error("index %s failed: %v", entry.PathDisplay, err)
		stats.Errors++
		return
	}
	if inserted == 0 {
		// Chunks existed but none landed: every insert failed.
		logger.Error("no chunks inserted for %s", entry.PathDisplay)
		stats.Errors++
		return
	}
	stats.Added++
}

// indexArchive fans an archive out into one independent document per
// supported member. A member's folder path is the container's folder
// plus the container's own filename, so same-named members of sibling
// archives stay distinguishable.
func (e *Engine) indexArchive(ctx context.Context, entry driven.ChangeEntry, data []byte, stats *domain.FileSyncStats) {
	members, err := e.extractor.ExtractArchiveMembers(data)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEncryptedArchive),
			errors.Is(err, domain.ErrArchiveTooLarge),
			errors.Is(err, domain.ErrCorruptArchive):
			// Expected rejections, not system faults.
			logger.Warn("rejecting archive %s: %v", entry.PathDisplay, err)
			stats.Skipped++
		default:
			logger.Error("extract archive %s failed: %v", entry.PathDisplay, err)
			stats.Errors++
		}
		return
	}
	if len(members) == 0 {
		logger.Debug("archive %s has no supported members", entry.PathDisplay)
		stats.Skipped++
		return
	}

	filename, folder := splitEntryPath(entry)
	memberFolder := folder + "/" + filename
	modified := entry.ServerModified.UTC().Format(time.RFC3339)

	for _, member := range members {
		memberExt := strings.ToLower(path.Ext(member.InternalPath))
		meta := domain.DocumentMetadata{
			SourceType:  domain.SourceFileStore,
			SourceID:    entry.ID + ":" + member.InternalPath,
			Filename:    path.Base(member.InternalPath),
			FolderPath:  memberFolder,
			FileType:    strings.TrimPrefix(memberExt, "."),
			CreatedDate: modified,
			UpdatedDate: modified,
		}

		chunks := e.splitter.Split(member.Text, nil)
		if len(chunks) == 0 {
			logger.Debug("no text in archive member %s", meta.SourceID)
			stats.Skipped++
			continue
		}
		inserted, err := e.indexer.IndexDocument(ctx, chunks, meta)
		if err != nil {
			logger.Error("index archive member %s failed: %v", meta.SourceID, err)
			stats.Errors++
			continue
		}
		if inserted == 0 {
			logger.Error("no chunks inserted for archive member %s", meta.SourceID)
			stats.Errors++
			continue
		}
		stats.Added++
	}
}

// shouldProcess filters by extension and size ceiling.
func (e *Engine) shouldProcess(ext string, size int64) bool {
	if _, ok := e.extensions[ext]; !ok {
		return false
	}
	return size <= e.maxFileSize
}

// splitEntryPath resolves an entry to (filename, folder_path). Display
// casing is preferred; delete notifications sometimes carry only the
// lower-cased path.
func splitEntryPath(entry driven.ChangeEntry) (filename, folder string) {
	p := entry.PathDisplay
	if p == "" {
		p = entry.PathLower
	}
	if p == "" {
		return entry.Name, ""
	}
	return path.Base(p), path.Dir(p)
}
