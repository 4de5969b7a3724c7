package cli

import (
	"fmt"

	"github.com/hashicorp/go-version"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/opendata/pkg/errutils"
)

// Build information, overridable with -ldflags "-X".
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	var checkMin string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version information for opendata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if checkMin != "" {
				return runVersionCheck(cmd, checkMin)
			}
			runVersion(cmd)
			return nil
		},
	}

	cmd.Flags().StringVar(&checkMin, "check-min", "", "Fail unless this client is at least the given version")

	return cmd
}

func runVersion(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "opendata version %s\n", Version)
	_, _ = fmt.Fprintf(out, "Build date: %s\n", BuildDate)
	_, _ = fmt.Fprintf(out, "Git commit: %s\n", GitCommit)
}

func runVersionCheck(cmd *cobra.Command, minimum string) error {
	current, err := version.NewVersion(Version)
	if err != nil {
		return errutils.Wrapf(err, "invalid build version %q", Version)
	}
	constraint, err := version.NewConstraint(">= " + minimum)
	if err != nil {
		return fmt.Errorf("invalid value for --check-min %q: %w: %w", minimum, errutils.ErrValidation, err)
	}
	if !constraint.Check(current) {
		return fmt.Errorf("%w: %s < %s", errutils.ErrVersionTooOld, current, minimum)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "opendata version %s satisfies >= %s\n", current, minimum)
	return nil
}

// userAgent identifies the client to the catalog and file servers.
func userAgent() string {
	return "opendata/" + Version
}
