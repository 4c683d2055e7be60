package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/arkiv-labs/arkiv/internal/adapters/driven/dropbox"
	"github.com/arkiv-labs/arkiv/internal/adapters/driven/imap"
	"github.com/arkiv-labs/arkiv/internal/extract"
	"github.com/arkiv-labs/arkiv/internal/ingest/filestore"
	"github.com/arkiv-labs/arkiv/internal/ingest/mailbox"
)

var syncSource string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise sources into the index",
	Long: `Runs one incremental sync pass. The file store resumes from its
listing cursor; the mailbox re-scans folders from its last sync time.
Both sources run concurrently: they own disjoint watermarks and
disjoint source ID namespaces.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncSource, "source", "all", "source to sync: filestore, mailbox, or all")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if syncSource != "all" && syncSource != "filestore" && syncSource != "mailbox" {
		return fmt.Errorf("unknown source %q", syncSource)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)

	if syncSource == "all" || syncSource == "filestore" {
		g.Go(func() error {
			return syncFileStore(gctx, cmd, a)
		})
	}
	if syncSource == "all" || syncSource == "mailbox" {
		g.Go(func() error {
			return syncMailbox(gctx, cmd, a)
		})
	}

	return g.Wait()
}

func syncFileStore(ctx context.Context, cmd *cobra.Command, a *app) error {
	client, err := dropbox.New(ctx, dropbox.Config{
		AccessToken:  a.cfg.Dropbox.AccessToken,
		AppKey:       a.cfg.Dropbox.AppKey,
		AppSecret:    a.cfg.Dropbox.AppSecret,
		RefreshToken: a.cfg.Dropbox.RefreshToken,
	})
	if err != nil {
		return err
	}

	engine, err := filestore.New(client, extract.New(), a.splitter, a.indexer, a.store, a.store, filestore.Config{
		FolderPath:          a.cfg.Dropbox.FolderPath,
		SupportedExtensions: a.cfg.Dropbox.SupportedExtensions,
		MaxFileSize:         a.cfg.Dropbox.MaxFileSize,
	})
	if err != nil {
		return err
	}

	stats, err := engine.Sync(ctx)
	if err != nil {
		return fmt.Errorf("file store sync: %w", err)
	}
	cmd.Printf("file store: added=%d deleted=%d skipped=%d errors=%d\n",
		stats.Added, stats.Deleted, stats.Skipped, stats.Errors)
	return nil
}

func syncMailbox(ctx context.Context, cmd *cobra.Command, a *app) error {
	client, err := imap.New(imap.Config{
		Host:     a.cfg.Mail.Host,
		Port:     a.cfg.Mail.Port,
		Username: a.cfg.Mail.Username,
		Password: a.cfg.Mail.Password,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	engine, err := mailbox.New(client, extract.New(), a.splitter, a.indexer, a.store, a.store, mailbox.Config{
		Folders:              a.cfg.Mail.Folders,
		AttachmentExtensions: a.cfg.Mail.AttachmentExtensions,
		MaxAttachmentSize:    a.cfg.Mail.MaxAttachmentSize,
	})
	if err != nil {
		return err
	}

	stats, err := engine.Sync(ctx)
	if err != nil {
		return fmt.Errorf("mailbox sync: %w", err)
	}
	cmd.Printf("mailbox: processed=%d skipped=%d errors=%d\n",
		stats.Processed, stats.Skipped, stats.Errors)
	return nil
}
