// Package cli is the docchat operator command line. It drives the same service as the HTTP API.
package cli

import (
	"context"
	"os"

	"github.com/akolanti/DocChat/internal/app"
	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/rag"
	"github.com/akolanti/DocChat/pkg/logger_i"
	"github.com/spf13/cobra"
)

var (
	configPath string

	// service is built on first use; tests assign a mock before executing.
	service  rag.Service
	closeApp func()
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Ask questions about your PDF documents",
	Long: `docchat indexes PDF documents into categories and answers questions
using only the text of the documents in a category, with page citations.
Scanned PDFs are read with OCR (English and Bengali).`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $DOCCHAT_CONFIG)")
}

func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	if service != nil {
		return nil
	}
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// stdout carries command output and the MCP stdio stream
	logger_i.InitWithWriter(settings.Log, os.Stderr)

	a, err := app.Build(cmd.Context(), settings)
	if err != nil {
		return err
	}
	service = a.Service
	closeApp = a.Close
	return nil
}

func teardown(*cobra.Command, []string) error {
	if closeApp != nil {
		closeApp()
		closeApp = nil
	}
	return nil
}
