package cli

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arkiv-labs/arkiv/internal/adapters/driven/dropbox"
	"github.com/arkiv-labs/arkiv/internal/chunker"
	"github.com/arkiv-labs/arkiv/internal/core/domain"
	"github.com/arkiv-labs/arkiv/internal/core/ports/driven"
	"github.com/arkiv-labs/arkiv/internal/dispatch"
	"github.com/arkiv-labs/arkiv/internal/extract"
	"github.com/arkiv-labs/arkiv/internal/indexer"
	"github.com/arkiv-labs/arkiv/internal/ingest/filestore"
)

var (
	reprocessDryRun  bool
	reprocessLimit   int
	reprocessOffset  int
	reprocessWorkers int
)

var reprocessCmd = &cobra.Command{
	Use:   "reprocess",
	Short: "Backfill files missing from the index",
	Long: `Enumerates supported files in the file store folder that have no
indexed rows and runs them through the ingestion pipeline in parallel.
Use --dry-run first to see the backlog without writing anything.`,
	RunE: runReprocess,
}

func init() {
	reprocessCmd.Flags().BoolVar(&reprocessDryRun, "dry-run", false, "enumerate missing files without indexing")
	reprocessCmd.Flags().IntVar(&reprocessLimit, "limit", 0, "process at most N files (0 = all)")
	reprocessCmd.Flags().IntVar(&reprocessOffset, "offset", 0, "skip the first N missing files")
	reprocessCmd.Flags().IntVar(&reprocessWorkers, "workers", dispatch.DefaultWorkers, "number of parallel workers")
	rootCmd.AddCommand(reprocessCmd)
}

func runReprocess(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := newDropboxClient(ctx, a)
	if err != nil {
		return err
	}

	missing, err := findMissing(ctx, a, client)
	if err != nil {
		return err
	}
	cmd.Printf("%d files missing from the index\n", len(missing))

	missing = window(missing, reprocessOffset, reprocessLimit)

	if reprocessDryRun {
		printBacklog(cmd, missing)
		return nil
	}
	if len(missing) == 0 {
		return nil
	}

	factory := func() (*dispatch.WorkerContext, error) {
		// Each worker owns its own remote client and pipeline; only
		// the store and embedder are shared (both tolerate concurrent
		// use on disjoint documents).
		workerClient, err := newDropboxClient(ctx, a)
		if err != nil {
			return nil, err
		}
		splitter, err := chunker.New(
			chunker.WithChunkSize(a.cfg.Chunking.ChunkSize),
			chunker.WithChunkOverlap(a.cfg.Chunking.ChunkOverlap),
		)
		if err != nil {
			return nil, err
		}
		ix, err := indexer.New(a.store, a.embedder)
		if err != nil {
			return nil, err
		}
		return &dispatch.WorkerContext{
			Client:    workerClient,
			Extractor: extract.New(),
			Splitter:  splitter,
			Indexer:   ix,
		}, nil
	}

	dispatcher, err := dispatch.New(factory, reprocessWorkers)
	if err != nil {
		return err
	}

	results, err := dispatcher.Run(ctx, missing)
	if err != nil {
		return err
	}

	var indexed, empty, failed int
	for _, res := range results {
		switch res.Status {
		case domain.StatusIndexed:
			indexed++
			cmd.Printf("indexed  %s (%d chars, %d chunks)\n", res.Path, res.Chars, res.Chunks)
		case domain.StatusEmpty:
			empty++
			cmd.Printf("empty    %s\n", res.Path)
		case domain.StatusError:
			failed++
			cmd.Printf("error    %s: %v\n", res.Path, res.Err)
		}
	}
	cmd.Printf("reprocess complete: indexed=%d empty=%d errors=%d\n", indexed, empty, failed)

	if failed > 0 {
		return fmt.Errorf("%d files failed to reprocess", failed)
	}
	return nil
}

func newDropboxClient(ctx context.Context, a *app) (*dropbox.Client, error) {
	return dropbox.New(ctx, dropbox.Config{
		AccessToken:  a.cfg.Dropbox.AccessToken,
		AppKey:       a.cfg.Dropbox.AppKey,
		AppSecret:    a.cfg.Dropbox.AppSecret,
		RefreshToken: a.cfg.Dropbox.RefreshToken,
	})
}

// findMissing walks the full folder listing and keeps supported files
// with no indexed rows. An archive counts as indexed when any of its
// members is (member source IDs embed the container ID).
func findMissing(ctx context.Context, a *app, client *dropbox.Client) ([]dispatch.WorkItem, error) {
	indexed, err := a.store.ListSourceIDs(ctx, domain.SourceFileStore)
	if err != nil {
		return nil, fmt.Errorf("list indexed documents: %w", err)
	}

	exts := a.cfg.Dropbox.SupportedExtensions
	if exts == nil {
		exts = filestore.DefaultExtensions
	}
	extSet := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		extSet[strings.ToLower(ext)] = struct{}{}
	}
	maxSize := a.cfg.Dropbox.MaxFileSize
	if maxSize <= 0 {
		maxSize = filestore.DefaultMaxFileSize
	}

	var missing []dispatch.WorkItem
	page, err := client.ListFolder(ctx, a.cfg.Dropbox.FolderPath)
	for {
		if err != nil {
			return nil, fmt.Errorf("list folder: %w", err)
		}
		for _, entry := range page.Entries {
			if entry.Kind != driven.KindFile {
				continue
			}
			ext := strings.ToLower(path.Ext(entry.Name))
			if _, ok := extSet[ext]; !ok || entry.Size > maxSize {
				continue
			}
			if isIndexed(indexed, entry.ID, ext == ".zip") {
				continue
			}
			missing = append(missing, dispatch.WorkItem{
				ID:             entry.ID,
				Name:           entry.Name,
				PathDisplay:    entry.PathDisplay,
				Size:           entry.Size,
				ServerModified: entry.ServerModified,
			})
		}
		if !page.HasMore {
			break
		}
		page, err = client.ListFolderContinue(ctx, page.Cursor)
	}

	sort.Slice(missing, func(i, j int) bool { return missing[i].PathDisplay < missing[j].PathDisplay })
	return missing, nil
}

func isIndexed(indexed map[string]struct{}, fileID string, isArchive bool) bool {
	if _, ok := indexed[fileID]; ok {
		return true
	}
	if !isArchive {
		return false
	}
	prefix := fileID + ":"
	for id := range indexed {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

func window(items []dispatch.WorkItem, offset, limit int) []dispatch.WorkItem {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// printBacklog summarizes the missing files per extension.
func printBacklog(cmd *cobra.Command, missing []dispatch.WorkItem) {
	counts := make(map[string]int)
	for _, item := range missing {
		counts[strings.ToLower(path.Ext(item.Name))]++
	}

	exts := make([]string, 0, len(counts))
	for ext := range counts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	for _, ext := range exts {
		cmd.Printf("  %-8s %d\n", ext, counts[ext])
	}
	for _, item := range missing {
		cmd.Printf("  missing: %s\n", item.PathDisplay)
	}
}
