package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/arkiv-labs/arkiv/internal/adapters/driven/embedding/openai"
	"github.com/arkiv-labs/arkiv/internal/adapters/driven/qdrant"
	"github.com/arkiv-labs/arkiv/internal/chunker"
	"github.com/arkiv-labs/arkiv/internal/config"
	"github.com/arkiv-labs/arkiv/internal/indexer"
	"github.com/arkiv-labs/arkiv/internal/logger"
)

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "arkiv",
	Short: "Incremental document ingestion and indexing engine",
	Long: `arkiv synchronises documents from a Dropbox folder and an IMAP
mailbox into a Qdrant vector index: text is extracted, chunked with
overlap, embedded, and written with delete-before-insert consistency.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default arkiv.toml)")
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// app bundles the shared pipeline built once per command invocation.
type app struct {
	cfg      *config.Config
	store    *qdrant.Store
	embedder *openai.EmbeddingService
	splitter *chunker.Splitter
	indexer  *indexer.Indexer
}

// newApp loads configuration and constructs the store, embedder,
// splitter, and indexer shared by all commands.
func newApp(_ context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	embedder, err := openai.New(openai.Config{
		APIKey:     cfg.OpenAI.APIKey,
		Model:      cfg.OpenAI.Model,
		Dimensions: cfg.OpenAI.Dimensions,
	})
	if err != nil {
		return nil, err
	}

	store, err := qdrant.New(qdrant.Config{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		APIKey:     cfg.Qdrant.APIKey,
		UseTLS:     cfg.Qdrant.UseTLS,
		VectorSize: embedder.Dimensions(),
	})
	if err != nil {
		return nil, err
	}

	splitter, err := chunker.New(
		chunker.WithChunkSize(cfg.Chunking.ChunkSize),
		chunker.WithChunkOverlap(cfg.Chunking.ChunkOverlap),
	)
	if err != nil {
		return nil, err
	}

	ix, err := indexer.New(store, embedder)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		store:    store,
		embedder: embedder,
		splitter: splitter,
		indexer:  ix,
	}, nil
}

// Close releases the app's connections.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("close store: %v", err)
	}
	if err := a.embedder.Close(); err != nil {
		logger.Warn("close embedder: %v", err)
	}
}
