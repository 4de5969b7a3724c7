package cli

import (
	"fmt"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/opendata/pkg/download"
	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/walker"
)

// newLister is replaced in tests with an in-memory listing.
var newLister = func() (walker.Lister, error) {
	if _, err := exec.LookPath(download.XRDFSBinary); err != nil {
		return nil, fmt.Errorf("%s is required to list directories: %w", download.XRDFSBinary, errutils.ErrEngineUnavailable)
	}
	return walker.NewXRDFSLister(download.ExecRunner), nil
}

// NewListDirectoryCmd creates the list-directory command.
func NewListDirectoryCmd() *cobra.Command {
	var (
		recursive bool
		timeout   int
	)

	cmd := &cobra.Command{
		Use:   "list-directory PATH",
		Short: "List contents of an EOSPUBLIC directory",
		Long: `List the contents of a directory on the storage federation.

With --recursive every file below PATH is listed with its full path. A recursive
listing that takes longer than --timeout seconds is aborted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListDirectory(cmd, args[0], recursive, timeout)
		},
	}

	cmd.Flags().BoolVar(&recursive, "recursive", false, "Iterate recursively in the given directory path")
	cmd.Flags().IntVar(&timeout, "timeout", DefaultListTimeoutSeconds, "Timeout in seconds after which a recursive listing stops (default from config)")

	return cmd
}

func runListDirectory(cmd *cobra.Command, path string, recursive bool, timeoutSeconds int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	timeout := cfg.Settings.ListTimeout
	if cmd.Flags().Changed("timeout") {
		if timeoutSeconds <= 0 {
			return fmt.Errorf("invalid value for --timeout: timeout should be a positive integer: %w", errutils.ErrValidation)
		}
		timeout = time.Duration(timeoutSeconds) * time.Second
	}

	lister, err := newLister()
	if err != nil {
		return err
	}

	files, err := walker.New(lister).List(cmd.Context(), path, recursive, timeout)
	if err != nil {
		return fmt.Errorf("directory %s: %w", path, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%s: %w", path, errutils.ErrEmptyDirectory)
	}

	out := cmd.OutOrStdout()
	for _, f := range files {
		_, _ = fmt.Fprintln(out, f)
	}
	return nil
}
