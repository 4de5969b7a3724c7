package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/opendata/internal/logger"
	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/verify"
)

// NewVerifyFilesCmd creates the verify-files command.
func NewVerifyFilesCmd() *cobra.Command {
	var (
		rec     recordFlags
		filters filterFlags
	)

	cmd := &cobra.Command{
		Use:   "verify-files",
		Short: "Verify downloaded data files belonging to a record",
		Long: `Compare the files downloaded for a record with the catalog.

The number of files must match, then every file is checked for size and
Adler-32 checksum in catalog order. The first mismatch stops the verification.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerifyFiles(cmd, &rec, &filters)
		},
	}

	rec.register(cmd, true)
	filters.register(cmd)

	return cmd
}

func runVerifyFiles(cmd *cobra.Command, rec *recordFlags, filters *filterFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	req, err := rec.validate(cmd, cfg)
	if err != nil {
		return err
	}
	spec, err := filters.parse()
	if err != nil {
		return err
	}

	client := newCatalogClient(cfg, req.Server)
	record, remote, err := resolveFiles(cmd.Context(), client, req, spec)
	if err != nil {
		return err
	}

	dir := record.ID.String()
	local, err := verify.New(afero.NewOsFs()).LocalInfo(dir)
	if err != nil {
		return err
	}
	if len(local) == 0 {
		return fmt.Errorf("%w for record %s", errutils.ErrNoLocalFiles, record.ID)
	}
	logger.Debug("Verifying files", logger.Fields{"dir": dir, "local": len(local), "remote": len(remote)})

	out := cmd.OutOrStdout()
	if err := verify.Verify(out, local, remote); err != nil {
		return err
	}
	printSuccess(out)
	return nil
}
