package mailbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkiv-labs/arkiv/internal/adapters/driven/memory"
	"github.com/arkiv-labs/arkiv/internal/chunker"
	"github.com/arkiv-labs/arkiv/internal/core/domain"
	"github.com/arkiv-labs/arkiv/internal/core/ports/driven"
	"github.com/arkiv-labs/arkiv/internal/extract"
	"github.com/arkiv-labs/arkiv/internal/indexer"
)

// fakeMailbox serves scripted messages per folder and records the
// since values it was queried with.
type fakeMailbox struct {
	messages map[string][]driven.MailMessage
	fetchErr map[string]error
	queried  map[string]time.Time
	closed   bool
}

func (m *fakeMailbox) FetchSince(_ context.Context, folder string, since time.Time) ([]driven.MailMessage, error) {
	if m.queried == nil {
		m.queried = make(map[string]time.Time)
	}
	m.queried[folder] = since
	if err, ok := m.fetchErr[folder]; ok {
		return nil, err
	}
	return m.messages[folder], nil
}

func (m *fakeMailbox) Close() error {
	m.closed = true
	return nil
}

type stubEmbedder struct{}

func (stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

func (stubEmbedder) Dimensions() int   { return 1 }
func (stubEmbedder) ModelName() string { return "stub" }
func (stubEmbedder) Close() error      { return nil }

type harness struct {
	engine *Engine
	client *fakeMailbox
	store  *memory.DocumentStore
	states *memory.SyncStateStore
}

func newHarness(t *testing.T, client *fakeMailbox, cfg Config) *harness {
	t.Helper()

	store := memory.NewDocumentStore()
	states := memory.NewSyncStateStore()

	splitter, err := chunker.New()
	require.NoError(t, err)
	ix, err := indexer.New(store, stubEmbedder{})
	require.NoError(t, err)

	engine, err := New(client, extract.New(), splitter, ix, store, states, cfg)
	require.NoError(t, err)

	return &harness{engine: engine, client: client, store: store, states: states}
}

func message(uid, subject, textBody string) driven.MailMessage {
	return driven.MailMessage{
		UID:      uid,
		From:     "alice@example.com",
		To:       "bob@example.com",
		Subject:  subject,
		Date:     time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC),
		TextBody: textBody,
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, nil, nil, nil, nil, nil, Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestSync_IndexesBodies(t *testing.T) {
	client := &fakeMailbox{
		messages: map[string][]driven.MailMessage{
			"INBOX": {message("101", "hello", "body text of the first message")},
			"Sent":  {message("102", "re: hello", "reply text")},
		},
	}
	h := newHarness(t, client, Config{})

	stats, err := h.engine.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.MailSyncStats{Processed: 2}, stats)

	rows := h.store.RowsBySourceID("101:body")
	require.NotEmpty(t, rows)
	assert.Equal(t, domain.SourceMailbox, rows[0].SourceType)
	assert.Equal(t, "alice@example.com", rows[0].EmailFrom)
	assert.Equal(t, "hello", rows[0].EmailSubject)
	assert.Equal(t, "INBOX", rows[0].FolderPath)

	sent := h.store.RowsBySourceID("102:body")
	require.NotEmpty(t, sent)
	assert.Equal(t, "Sent", sent[0].FolderPath)
}

func TestSync_FirstRunFetchesAllHistory(t *testing.T) {
	client := &fakeMailbox{}
	h := newHarness(t, client, Config{Folders: []string{"INBOX"}})

	_, err := h.engine.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, client.queried["INBOX"].IsZero())
}

func TestSync_UsesStoredWatermark(t *testing.T) {
	watermark := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	client := &fakeMailbox{}
	h := newHarness(t, client, Config{Folders: []string{"INBOX"}})
	require.NoError(t, h.states.Save(context.Background(), domain.SyncState{
		SyncType:     domain.SyncTypeMailbox,
		LastSyncTime: watermark,
	}))

	_, err := h.engine.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, watermark, client.queried["INBOX"])
}

func TestSync_DuplicateGuardSkipsIndexedMessages(t *testing.T) {
	client := &fakeMailbox{
		messages: map[string][]driven.MailMessage{
			"INBOX": {message("101", "hello", "same body text")},
		},
	}
	h := newHarness(t, client, Config{Folders: []string{"INBOX"}})

	stats, err := h.engine.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	first := h.store.RowsBySourceID("101:body")

	stats, err = h.engine.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.MailSyncStats{Skipped: 1}, stats)
	assert.Equal(t, first, h.store.RowsBySourceID("101:body"))
}

func TestSync_HTMLBodyPreferred(t *testing.T) {
	msg := message("201", "styled", "plain fallback")
	msg.HTMLBody = "<html><body><p>rich content</p><style>p{}</style></body></html>"
	client := &fakeMailbox{
		messages: map[string][]driven.MailMessage{"INBOX": {msg}},
	}
	h := newHarness(t, client, Config{Folders: []string{"INBOX"}})

	_, err := h.engine.Sync(context.Background())
	require.NoError(t, err)

	rows := h.store.RowsBySourceID("201:body")
	require.NotEmpty(t, rows)
	assert.Equal(t, "rich content", rows[0].Content)
}

func TestSync_Attachments(t *testing.T) {
	msg := message("301", "files", "see attached")
	msg.Attachments = []driven.MailAttachment{
		{Filename: "notes.txt", Data: []byte("attachment notes")},
		{Filename: "photo.jpg", Data: []byte{0xFF, 0xD8}},
		{Filename: "huge.txt", Data: make([]byte, 2048)},
	}
	client := &fakeMailbox{
		messages: map[string][]driven.MailMessage{"INBOX": {msg}},
	}
	h := newHarness(t, client, Config{
		Folders:           []string{"INBOX"},
		MaxAttachmentSize: 1024,
	})

	stats, err := h.engine.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 2, stats.Skipped)

	rows := h.store.RowsBySourceID("301:att:notes.txt")
	require.Len(t, rows, 1)
	assert.Equal(t, "attachment notes", rows[0].Content)
	assert.Equal(t, "notes.txt", rows[0].Filename)
	assert.Empty(t, h.store.RowsBySourceID("301:att:photo.jpg"))
	assert.Empty(t, h.store.RowsBySourceID("301:att:huge.txt"))
}

func TestSync_MessageErrorContinuesFolder(t *testing.T) {
	// An embedder that fails only for one message's body text.
	client := &fakeMailbox{
		messages: map[string][]driven.MailMessage{
			"INBOX": {
				message("401", "bad", "poison body"),
				message("402", "good", "fine body"),
			},
		},
	}

	store := memory.NewDocumentStore()
	states := memory.NewSyncStateStore()
	splitter, err := chunker.New()
	require.NoError(t, err)
	ix, err := indexer.New(store, poisonEmbedder{})
	require.NoError(t, err)
	engine, err := New(client, extract.New(), splitter, ix, store, states, Config{Folders: []string{"INBOX"}})
	require.NoError(t, err)

	stats, err := engine.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 1, stats.Processed)
	assert.NotEmpty(t, store.RowsBySourceID("402:body"))

	// The full pass completed, so the watermark was saved.
	_, err = states.Get(context.Background(), domain.SyncTypeMailbox)
	require.NoError(t, err)
}

type poisonEmbedder struct{}

func (poisonEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if t == "poison body" {
			return nil, errors.New("embedding rejected")
		}
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

func (poisonEmbedder) Dimensions() int   { return 1 }
func (poisonEmbedder) ModelName() string { return "stub" }
func (poisonEmbedder) Close() error      { return nil }

func TestSync_FolderFetchFailureAbortsWithoutWatermark(t *testing.T) {
	client := &fakeMailbox{
		messages: map[string][]driven.MailMessage{
			"INBOX": {message("501", "ok", "body")},
		},
		fetchErr: map[string]error{"Archive": errors.New("no such folder")},
	}
	h := newHarness(t, client, Config{Folders: []string{"INBOX", "Archive"}})

	_, err := h.engine.Sync(context.Background())
	require.Error(t, err)

	// INBOX content landed, but the watermark was not advanced.
	assert.NotEmpty(t, h.store.RowsBySourceID("501:body"))
	_, err = h.states.Get(context.Background(), domain.SyncTypeMailbox)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
