package commands

import (
	"context"
	"fmt"

	"studenthousing/cmd/ingest/ui"
	"studenthousing/internal/app"
	"studenthousing/internal/model"
	"studenthousing/internal/repository"
	"studenthousing/internal/service"

	"github.com/spf13/cobra"
)

var indexChunksInput string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index records into the vector index",
}

var indexDocumentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Index the informational documents from DOCUMENTS_FILE",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		docs, err := repository.NewJSONLStore[model.Document](cfg.Store.DocumentsFile).List()
		if err != nil {
			return fmt.Errorf("read documents: %w", err)
		}
		return withIndexer(cmd.Context(), "documents", len(docs), func(ctx context.Context, ix *service.Indexer, bar *ui.ProgressBar) error {
			return ix.IndexDocuments(ctx, docs, bar.Update)
		})
	},
}

var indexListingsCmd = &cobra.Command{
	Use:     "listings",
	Aliases: []string{"apartments"},
	Short:   "Index the apartment listings from APARTMENTS_FILE",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := repository.NewJSONLStore[model.ApartmentEntry](cfg.Store.ApartmentsFile).List()
		if err != nil {
			return fmt.Errorf("read listings: %w", err)
		}
		return withIndexer(cmd.Context(), "listings", len(entries), func(ctx context.Context, ix *service.Indexer, bar *ui.ProgressBar) error {
			return ix.IndexApartments(ctx, entries, bar.Update)
		})
	},
}

var indexChunksCmd = &cobra.Command{
	Use:   "chunks",
	Short: "Index crawled chunks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		chunks, err := repository.NewJSONLStore[model.Chunk](indexChunksInput).List()
		if err != nil {
			return fmt.Errorf("read chunks: %w", err)
		}
		return withIndexer(cmd.Context(), "chunks", len(chunks), func(ctx context.Context, ix *service.Indexer, bar *ui.ProgressBar) error {
			return ix.IndexChunks(ctx, chunks, bar.Update)
		})
	},
}

func init() {
	indexChunksCmd.Flags().StringVarP(&indexChunksInput, "input", "i", "data/chunks.jsonl", "chunk file to index")

	indexCmd.AddCommand(indexDocumentsCmd, indexListingsCmd, indexChunksCmd)
	rootCmd.AddCommand(indexCmd)
}

// withIndexer opens the configured backend and runs one indexing pass behind a progress bar
func withIndexer(ctx context.Context, kind string, total int, run func(context.Context, *service.Indexer, *ui.ProgressBar) error) error {
	if total == 0 {
		ui.Info("no %s to index", kind)
		return nil
	}
	if cfg.VectorStore.Type == "memory" {
		return fmt.Errorf("VECTOR_STORE=memory does not persist, index into qdrant or pgvector")
	}

	client := service.NewOpenAIClient(&cfg.OpenAI, logger)
	if !client.IsEnabled() {
		return fmt.Errorf("indexing needs OPENAI_API_KEY for embeddings")
	}

	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	indexer := service.NewIndexer(client, backend.Index, cfg.Store.ContactEmail, logger)

	bar := ui.NewProgressBar(int64(total), "Indexing "+kind)
	err = run(ctx, indexer, bar)
	bar.Finish()
	if err != nil {
		return fmt.Errorf("index %s: %w", kind, err)
	}

	ui.Success("%d %s indexed into %s", total, kind, cfg.VectorStore.Type)
	return nil
}
