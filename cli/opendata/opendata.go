package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/opendata/internal/cli"
	"github.com/glorpus-work/opendata/pkg/errutils"
)

var (
	configPath   string
	verbose      bool
	logLevel     string
	outputFormat string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(errutils.ExitCode(err))
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opendata",
		Short: "Command-line client for the CERN Open Data portal",
		Long: `opendata queries the CERN Open Data portal and works with record files:
- Metadata: get-metadata, get-file-locations, search
- Files: download-files, verify-files
- Storage: list-directory`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Malformed flag values, such as a non-numeric --recid, are usage errors.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errutils.ErrValidation, err)
	})

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format (text, json, yaml)")

	// Set up CLI pkg variables
	cli.ConfigPath = &configPath
	cli.Verbose = &verbose
	cli.LogLevel = &logLevel
	cli.OutputFormat = &outputFormat

	// Add subcommands
	cmd.AddCommand(
		cli.NewGetMetadataCmd(),
		cli.NewGetFileLocationsCmd(),
		cli.NewDownloadFilesCmd(),
		cli.NewVerifyFilesCmd(),
		cli.NewListDirectoryCmd(),
		cli.NewSearchCmd(),
		cli.NewConfigCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
