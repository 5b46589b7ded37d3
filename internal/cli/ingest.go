package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/akolanti/DocChat/internal/rag"
	"github.com/spf13/cobra"
)

var ingestCategory string

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Index documents into a category",
	Long: `Copies each file into the category's upload folder and indexes it.
Files are processed independently, including ones that cannot be opened;
a file that is already indexed is skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestCategory, "category", "c", "", "target category")
	_ = ingestCmd.MarkFlagRequired("category")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := service.CreateCategory(cmd.Context(), ingestCategory); err != nil {
		return err
	}

	// results follow the order of args; accepted[j] is the slot of uploads[j]
	results := make([]chatModel.IngestResult, len(args))
	var uploads []rag.Upload
	var accepted []int
	for i, path := range args {
		name := filepath.Base(path)
		f, err := os.Open(path)
		if err != nil {
			results[i] = chatModel.IngestResult{Filename: name, Outcome: chatModel.IngestFailed, Error: err.Error()}
			continue
		}
		defer f.Close()
		uploads = append(uploads, rag.Upload{Filename: name, Content: f})
		accepted = append(accepted, i)
	}
	for j, res := range service.IngestBatch(cmd.Context(), ingestCategory, uploads) {
		if j < len(accepted) {
			results[accepted[j]] = res
		}
	}

	failed := 0
	for _, r := range results {
		switch r.Outcome {
		case chatModel.IngestIndexed:
			cmd.Printf("indexed  %s (%d chunks, %s)\n", r.Filename, r.Chunks, r.Method)
		case chatModel.IngestFailed:
			failed++
			cmd.Printf("failed   %s: %s\n", r.Filename, r.Error)
		default:
			cmd.Printf("%-8s %s\n", r.Outcome, r.Filename)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}
