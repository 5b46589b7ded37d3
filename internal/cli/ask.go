package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/akolanti/DocChat/internal/adapter"
	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/spf13/cobra"
)

var (
	askCategory string
	askGeneral  bool
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about a category",
	Long: `Answers from the documents of --category only, citing document and page.
With --general the question goes to the assistant without retrieval.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askCategory, "category", "c", "", "category to answer from")
	askCmd.Flags().BoolVar(&askGeneral, "general", false, "ask the general assistant instead")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	var answer chatModel.Answer
	var err error
	switch {
	case askGeneral:
		answer, err = service.AskGeneral(cmd.Context(), args[0])
	case askCategory == "":
		return errors.New("--category is required unless --general is set")
	default:
		answer, err = service.Ask(cmd.Context(), askCategory, args[0])
	}
	if err != nil {
		return err
	}

	if askJSON {
		data, err := json.MarshalIndent(adapter.ToChatResponse(answer), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Text)
	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, s := range answer.Sources {
			cmd.Printf("  - %s, page %d\n", s.Document, s.Page)
		}
	}
	return nil
}
