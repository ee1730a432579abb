package commands

import (
	"fmt"

	"studenthousing/cmd/ingest/ui"
	"studenthousing/internal/crawler"
	"studenthousing/internal/model"
	"studenthousing/internal/repository"
	"studenthousing/internal/service"

	"github.com/spf13/cobra"
)

var (
	classifyInput  string
	classifyOutput string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Assign a topic category to crawled chunks",
	RunE:  runClassify,
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyInput, "input", "i", "data/chunks.jsonl", "chunk file to classify")
	classifyCmd.Flags().StringVarP(&classifyOutput, "output", "o", "", "output file (default: rewrite the input)")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	chunks, err := repository.NewJSONLStore[model.Chunk](classifyInput).List()
	if err != nil {
		return fmt.Errorf("read chunks: %w", err)
	}
	if len(chunks) == 0 {
		ui.Info("no chunks in %s", classifyInput)
		return nil
	}

	client := service.NewOpenAIClient(&cfg.OpenAI, logger)
	if !client.IsEnabled() {
		return fmt.Errorf("classification needs OPENAI_API_KEY")
	}
	classifier := crawler.NewClassifier(client, logger)

	bar := ui.NewProgressBar(int64(len(chunks)), "Classifying")
	classified := classifier.ClassifyAll(cmd.Context(), chunks, bar.Update)
	bar.Finish()

	output := classifyOutput
	if output == "" {
		output = classifyInput
	}
	if err := repository.NewJSONLStore[model.Chunk](output).ReplaceAll(classified); err != nil {
		return fmt.Errorf("write chunks: %w", err)
	}

	counts := make(map[string]int)
	for _, c := range classified {
		counts[c.Metadata.Type]++
	}
	for category, n := range counts {
		ui.Info("%-20s %d", category, n)
	}
	ui.Success("%d chunks classified into %s", len(classified), output)
	return nil
}
