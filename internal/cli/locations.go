package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/opendata/pkg/filter"
)

// NewGetFileLocationsCmd creates the get-file-locations command.
func NewGetFileLocationsCmd() *cobra.Command {
	var rec recordFlags

	cmd := &cobra.Command{
		Use:   "get-file-locations",
		Short: "Get a list of data file locations of a record",
		Long: `Get the list of files belonging to a record, one location per line.

File indexes are expanded unless --no-expand is given. With --verbose the size
and checksum of every file is printed next to its location.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGetFileLocations(cmd, &rec)
		},
	}

	rec.register(cmd, true)

	return cmd
}

func runGetFileLocations(cmd *cobra.Command, rec *recordFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	req, err := rec.validate(cmd, cfg)
	if err != nil {
		return err
	}

	client := newCatalogClient(cfg, req.Server)
	_, files, err := resolveFiles(cmd.Context(), client, req, filter.Spec{})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch cfg.Settings.OutputFormat {
	case "json", "yaml":
		return writeStructured(out, cfg.Settings.OutputFormat, files)
	}

	for _, f := range files {
		if verbose() {
			_, _ = fmt.Fprintf(out, "%s\t%d\t%s\t(%s)\n", f.URI, f.Size, f.Checksum, humanize.IBytes(uint64(max(f.Size, 0))))
			continue
		}
		_, _ = fmt.Fprintln(out, f.URI)
	}
	return nil
}
