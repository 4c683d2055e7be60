package mailbox

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

// DefaultMaxAttachmentSize is the per-attachment ceiling.
const DefaultMaxAttachmentSize = 20 << 20 // 20 MiB

// DefaultFolders are the mailbox folders walked by default.
var DefaultFolders = []string{"INBOX", "Sent"}

// DefaultAttachmentExtensions are the attachment extensions indexed by
// default.
var DefaultAttachmentExtensions = []string{".txt", ".md", ".csv", ".log", ".html", ".htm"}

// Config holds the engine's folder list and attachment filters.
type Config struct {
	// Folders lists the mailbox folders to walk. Nil means
	// DefaultFolders.
	Folders []string

	// AttachmentExtensions limits which attachments are indexed.
	// Extensions carry a leading dot, lower case. Nil means
	// DefaultAttachmentExtensions.
	AttachmentExtensions []string

	// MaxAttachmentSize rejects attachments over this many bytes.
	// Zero means DefaultMaxAttachmentSize.
	MaxAttachmentSize int64
}

// Engine synchronizes mailbox messages into the document index. Each
// run fetches every message received since the last successful run;
// already-indexed messages are skipped by their body source ID, so
// re-scanning the same date window never re-embeds unchanged mail.
type Engine struct {
	client    driven.MailboxClient
	extractor driven.TextExtractor
	splitter  *chunker.Splitter
	indexer   *indexer.Indexer
	store     driven.DocumentStore
	states    driven.SyncStateStore

	folders       []string
	maxAttachment int64
	extensions    map[string]struct{}
}

// New creates a mailbox sync engine.
func New(
	client driven.MailboxClient,
	extractor driven.TextExtractor,
	splitter *chunker.Splitter,
	ix *indexer.Indexer,
	store driven.DocumentStore,
	states driven.SyncStateStore,
	cfg Config,
) (*Engine, error) {
	if client == nil || extractor == nil || splitter == nil || ix == nil || store == nil || states == nil {
		return nil, fmt.Errorf("%w: all mailbox engine dependencies are required", domain.ErrInvalidConfig)
	}

	folders := cfg.Folders
	if folders == nil {
		folders = DefaultFolders
	}

	exts := cfg.AttachmentExtensions
	if exts == nil {
		exts = DefaultAttachmentExtensions
	}
	extSet := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		extSet[strings.ToLower(ext)] = struct{}{}
	}

	maxSize := cfg.MaxAttachmentSize
	if maxSize <= 0 {
		maxSize = DefaultMaxAttachmentSize
	}

	return &Engine{
		client:        client,
		extractor:     extractor,
		splitter:      splitter,
		indexer:       ix,
		store:         store,
		states:        states,
		folders:       folders,
		maxAttachment: maxSize,
		extensions:    extSet,
	}, nil
}

// Sync runs one pass over every configured folder. The watermark is
// saved only after all folders were fully walked; a crash mid-run
// re-scans the same window next time, which the duplicate guard makes
// safe.
func (e *Engine) Sync(ctx context.Context) (domain.MailSyncStats, error) {
	var stats domain.MailSyncStats

	since, err := e.loadWatermark(ctx)
	if err != nil {
		return stats, err
	}
	runStart := time.Now().UTC()

	for _, folder := range e.folders {
		messages, err := e.client.FetchSince(ctx, folder, since)
		if err != nil {
			return stats, fmt.Errorf("fetch folder %s: %w", folder, err)
		}
		logger.Debug("mail sync folder %s: %d messages since %v", folder, len(messages), since)

		for _, msg := range messages {
			e.handleMessage(ctx, folder, msg, &stats)
		}
	}

	state := domain.SyncState{
		SyncType:     domain.SyncTypeMailbox,
		LastSyncTime: runStart,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := e.states.Save(ctx, state); err != nil {
		return stats, fmt.Errorf("save sync state: %w", err)
	}

	logger.Info("mail sync complete: processed=%d skipped=%d errors=%d",
		stats.Processed, stats.Skipped, stats.Errors)
	return stats, nil
}

// loadWatermark returns the last successful sync time, or zero for all
// history.
func (e *Engine) loadWatermark(ctx context.Context) (time.Time, error) {
	state, err := e.states.Get(ctx, domain.SyncTypeMailbox)
	if errors.Is(err, domain.ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("load sync state: %w", err)
	}
	return state.LastSyncTime, nil
}

// handleMessage indexes one message's body and attachments. A failure
// in one message is counted and swallowed so the folder pass continues.
func (e *Engine) handleMessage(ctx context.Context, folder string, msg driven.MailMessage, stats *domain.MailSyncStats) {
	bodyID := msg.UID + ":body"

	exists, err := e.store.HasDocument(ctx, bodyID)
	if err != nil {
		logger.Error("duplicate check for %s failed: %v", bodyID, err)
		stats.Errors++
		return
	}
	if exists {
		logger.Debug("message %s already indexed, skipping", msg.UID)
		stats.Skipped++
		return
	}

	if err := e.indexBody(ctx, folder, msg, bodyID); err != nil {
		logger.Error("index message %s failed: %v", msg.UID, err)
		stats.Errors++
		return
	}
	stats.Processed++

	for _, att := range msg.Attachments {
		e.handleAttachment(ctx, folder, msg, att, stats)
	}
}

// indexBody extracts the body text (HTML preferred, so signature and
// markup stripping is shared with file extraction) and indexes it as
// one document.
func (e *Engine) indexBody(ctx context.Context, folder string, msg driven.MailMessage, bodyID string) error {
	var text string
	if msg.HTMLBody != "" {
		text = e.extractor.ExtractText([]byte(msg.HTMLBody), ".html")
	} else {
		text = msg.TextBody
	}

	chunks := e.splitter.Split(text, nil)
	_, err := e.indexer.IndexDocument(ctx, chunks, e.messageMetadata(folder, msg, bodyID, "", "body"))
	return err
}

func (e *Engine) handleAttachment(ctx context.Context, folder string, msg driven.MailMessage, att driven.MailAttachment, stats *domain.MailSyncStats) {
	ext := strings.ToLower(path.Ext(att.Filename))
	if _, ok := e.extensions[ext]; !ok || int64(len(att.Data)) > e.maxAttachment {
		logger.Debug("skipping attachment %s of message %s (ext=%s size=%d)",
			att.Filename, msg.UID, ext, len(att.Data))
		stats.Skipped++
		return
	}

	text := e.extractor.ExtractText(att.Data, ext)
	if strings.TrimSpace(text) == "" {
		stats.Skipped++
		return
	}

	attID := msg.UID + ":att:" + att.Filename
	meta := e.messageMetadata(folder, msg, attID, att.Filename, strings.TrimPrefix(ext, "."))

	chunks := e.splitter.Split(text, nil)
	if _, err := e.indexer.IndexDocument(ctx, chunks, meta); err != nil {
		logger.Error("index attachment %s failed: %v", attID, err)
		stats.Errors++
	}
}

func (e *Engine) messageMetadata(folder string, msg driven.MailMessage, sourceID, filename, fileType string) domain.DocumentMetadata {
	date := msg.Date.UTC().Format(time.RFC3339)
	return domain.DocumentMetadata{
		SourceType:   domain.SourceMailbox,
		SourceID:     sourceID,
		Filename:     filename,
		FolderPath:   folder,
		FileType:     fileType,
		CreatedDate:  date,
		UpdatedDate:  date,
		EmailFrom:    msg.From,
		EmailTo:      msg.To,
		EmailSubject: msg.Subject,
		EmailDate:    date,
	}
}
