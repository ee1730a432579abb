package commands

import (
	"fmt"

	"studenthousing/cmd/ingest/ui"
	"studenthousing/internal/crawler"
	"studenthousing/internal/model"
	"studenthousing/internal/repository"

	"github.com/spf13/cobra"
)

var (
	crawlOutput   string
	crawlMaxPages int
	crawlMaxWords int
	crawlLanguage string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <url>",
	Short: "Crawl a site into text chunks",
	Long:  "Crawl every page of the start URL's host and write the de-duplicated text chunks as JSON lines.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCrawl,
}

func init() {
	crawlCmd.Flags().StringVarP(&crawlOutput, "output", "o", "data/chunks.jsonl", "output file")
	crawlCmd.Flags().IntVar(&crawlMaxPages, "max-pages", 0, "maximum pages to visit (default from CRAWLER_MAX_PAGES)")
	crawlCmd.Flags().IntVar(&crawlMaxWords, "max-words", 0, "maximum words per chunk (default from CRAWLER_MAX_WORDS)")
	crawlCmd.Flags().StringVar(&crawlLanguage, "lang", "", "language recorded on every chunk (default from CRAWLER_LANGUAGE)")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	opts := crawler.OptionsFromConfig(cfg.Crawler)
	if crawlMaxPages > 0 {
		opts.MaxPages = crawlMaxPages
	}
	if crawlMaxWords > 0 {
		opts.MaxWords = crawlMaxWords
	}
	if crawlLanguage != "" {
		opts.Language = crawlLanguage
	}

	session := crawler.NewSession(opts, logger)

	bar := ui.NewProgressBar(int64(opts.MaxPages), "Crawling")
	chunks, err := session.Crawl(cmd.Context(), args[0], bar.Update)
	bar.Finish()
	if err != nil {
		return fmt.Errorf("crawl %s: %w", args[0], err)
	}

	store := repository.NewJSONLStore[model.Chunk](crawlOutput)
	if err := store.ReplaceAll(chunks); err != nil {
		return fmt.Errorf("write chunks: %w", err)
	}

	ui.Success("%d pages visited, %d chunks written to %s", session.Visited(), len(chunks), crawlOutput)
	return nil
}
