package dispatch

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/arkiv-labs/arkiv/internal/chunker"
	"github.com/arkiv-labs/arkiv/internal/core/domain"
	"github.com/arkiv-labs/arkiv/internal/core/ports/driven"
	"github.com/arkiv-labs/arkiv/internal/indexer"
	"github.com/arkiv-labs/arkiv/internal/logger"
)

// DefaultWorkers is the pool size when none is configured.
const DefaultWorkers = 4

// WorkItem is one file to reprocess. Archives fan out inside the item,
// so one logical document never spans two workers.
type WorkItem struct {
	ID             string
	Name           string
	PathDisplay    string
	Size           int64
	ServerModified time.Time
}

// WorkerContext is the per-worker pipeline: its own remote client,
// extractor, splitter, and indexer. Contexts are never shared between
// two in-flight items.
type WorkerContext struct {
	Client    driven.FileStoreClient
	Extractor driven.TextExtractor
	Splitter  *chunker.Splitter
	Indexer   *indexer.Indexer
}

// ContextFactory builds one WorkerContext. Called once per worker slot
// at the start of a run.
type ContextFactory func() (*WorkerContext, error)

// Dispatcher runs work items through a fixed-size worker pool and
// collects per-item results in completion order.
type Dispatcher struct {
	factory ContextFactory
	workers int
}

// New creates a Dispatcher. workers <= 0 selects DefaultWorkers.
func New(factory ContextFactory, workers int) (*Dispatcher, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: worker context factory is required", domain.ErrInvalidConfig)
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Dispatcher{factory: factory, workers: workers}, nil
}

// Run processes every item and returns one result per item in
// completion order. Item failures land in the results as StatusError;
// Run itself fails only on setup problems.
func (d *Dispatcher) Run(ctx context.Context, items []WorkItem) ([]domain.ItemResult, error) {
	if len(items) == 0 {
		return nil, nil
	}

	workers := d.workers
	if workers > len(items) {
		workers = len(items)
	}

	// One pipeline per worker slot, checked out for the duration of an
	// item so a remote session is never used by two goroutines.
	contexts := make(chan *WorkerContext, workers)
	for i := 0; i < workers; i++ {
		wc, err := d.factory()
		if err != nil {
			return nil, fmt.Errorf("build worker context: %w", err)
		}
		contexts <- wc
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	results := make(chan domain.ItemResult, len(items))
	var wg sync.WaitGroup

	for _, item := range items {
		item := item
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			wc := <-contexts
			defer func() { contexts <- wc }()
			results <- processItem(ctx, wc, item)
		})
		if submitErr != nil {
			wg.Done()
			results <- domain.ItemResult{
				Status: domain.StatusError,
				Name:   item.Name,
				Path:   item.PathDisplay,
				Err:    fmt.Errorf("submit work: %w", submitErr),
			}
		}
	}

	wg.Wait()
	close(results)

	out := make([]domain.ItemResult, 0, len(items))
	for res := range results {
		out = append(out, res)
	}
	return out, nil
}

// processItem runs one file through the worker's pipeline.
func processItem(ctx context.Context, wc *WorkerContext, item WorkItem) domain.ItemResult {
	res := domain.ItemResult{
		Name: item.Name,
		Path: item.PathDisplay,
	}
	if err := ctx.Err(); err != nil {
		res.Status = domain.StatusError
		res.Err = err
		return res
	}

	data, err := wc.Client.Download(ctx, item.ID)
	if err != nil {
		res.Status = domain.StatusError
		res.Err = fmt.Errorf("download: %w", err)
		return res
	}

	ext := strings.ToLower(path.Ext(item.Name))
	if ext == ".zip" {
		return processArchive(ctx, wc, item, data, res)
	}

	text := wc.Extractor.ExtractText(data, ext)
	res.Chars = len([]rune(text))
	if strings.TrimSpace(text) == "" {
		res.Status = domain.StatusEmpty
		return res
	}

	modified := item.ServerModified.UTC().Format(time.RFC3339)
	meta := domain.DocumentMetadata{
		SourceType:  domain.SourceFileStore,
		SourceID:    item.ID,
		Filename:    item.Name,
		FolderPath:  path.Dir(item.PathDisplay),
		FileType:    strings.TrimPrefix(ext, "."),
		CreatedDate: modified,
		UpdatedDate: modified,
	}

	inserted, err := wc.Indexer.IndexDocument(ctx, wc.Splitter.Split(text, nil), meta)
	if err != nil {
		res.Status = domain.StatusError
		res.Err = err
		return res
	}
	if inserted == 0 {
		// Chunks existed but none landed: every insert failed.
		res.Status = domain.StatusError
		res.Err = fmt.Errorf("no chunks inserted for %s", item.Name)
		return res
	}
	res.Status = domain.StatusIndexed
	res.Chunks = inserted
	return res
}

// processArchive indexes every supported member. The archive is one
// atomic unit: all members run on this worker, and the item's counters
// aggregate across them.
func processArchive(ctx context.Context, wc *WorkerContext, item WorkItem, data []byte, res domain.ItemResult) domain.ItemResult {
	members, err := wc.Extractor.ExtractArchiveMembers(data)
	if err != nil {
		if errors.Is(err, domain.ErrEncryptedArchive) ||
			errors.Is(err, domain.ErrArchiveTooLarge) ||
			errors.Is(err, domain.ErrCorruptArchive) {
			logger.Warn("rejecting archive %s: %v", item.PathDisplay, err)
			res.Status = domain.StatusEmpty
			return res
		}
		res.Status = domain.StatusError
		res.Err = err
		return res
	}
	if len(members) == 0 {
		res.Status = domain.StatusEmpty
		return res
	}

	memberFolder := path.Dir(item.PathDisplay) + "/" + item.Name
	modified := item.ServerModified.UTC().Format(time.RFC3339)

	for _, member := range members {
		memberExt := strings.ToLower(path.Ext(member.InternalPath))
		meta := domain.DocumentMetadata{
			SourceType:  domain.SourceFileStore,
			SourceID:    item.ID + ":" + member.InternalPath,
			Filename:    path.Base(member.InternalPath),
			FolderPath:  memberFolder,
			FileType:    strings.TrimPrefix(memberExt, "."),
			CreatedDate: modified,
			UpdatedDate: modified,
		}

		res.Chars += len([]rune(member.Text))
		inserted, err := wc.Indexer.IndexDocument(ctx, wc.Splitter.Split(member.Text, nil), meta)
		if err != nil {
			res.Status = domain.StatusError
			res.Err = fmt.Errorf("member %s: %w", member.InternalPath, err)
			return res
		}
		res.Chunks += inserted
	}

	if res.Chunks == 0 {
		res.Status = domain.StatusEmpty
		return res
	}
	res.Status = domain.StatusIndexed
	return res
}
