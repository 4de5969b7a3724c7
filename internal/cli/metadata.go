package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/metadata"
)

// NewGetMetadataCmd creates the get-metadata command.
func NewGetMetadataCmd() *cobra.Command {
	var (
		rec          recordFlags
		outputValue  string
		filters      []string
		outputFields string
	)

	cmd := &cobra.Command{
		Use:   "get-metadata",
		Short: "Get metadata content of a record",
		Long: `Get metadata content of a record identified by its recid, DOI or title.

--output-value selects a dotted path inside the metadata, e.g. authors.name.
--filter field=value keeps only the objects of the selected array whose field
equals value; it can be repeated and all filters must match.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGetMetadata(cmd, &rec, outputValue, filters, outputFields)
		},
	}

	rec.register(cmd, false)
	cmd.Flags().StringVar(&outputValue, "output-value", "", "Output value of only desired metadata field")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Filter only certain output values matching filtering criteria (field=value)")
	cmd.Flags().StringVar(&outputFields, "output-fields", "", "Comma separated list of top level fields to include in the output")
	cmd.MarkFlagsMutuallyExclusive("output-value", "output-fields")

	return cmd
}

func runGetMetadata(cmd *cobra.Command, rec *recordFlags, outputValue string, filters []string, outputFields string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	req, err := rec.validate(cmd, cfg)
	if err != nil {
		return err
	}
	if _, err := metadata.ParseFilters(filters); err != nil {
		return err
	}
	if outputValue == "" && len(filters) > 0 {
		return fmt.Errorf("--filter requires --output-value: %w", errutils.ErrValidation)
	}

	record, err := newCatalogClient(cfg, req.Server).GetRecord(cmd.Context(), req.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	format := cfg.Settings.OutputFormat

	if outputFields != "" {
		doc, err := metadata.OutputFields(record.Document, strings.Split(outputFields, ","))
		if err != nil {
			return err
		}
		return writeStructured(out, format, doc)
	}

	if outputValue == "" {
		return writeStructured(out, format, record.Document)
	}

	value, err := metadata.Select(record.Metadata(), outputValue, filters)
	if err != nil {
		return err
	}
	if format == "yaml" {
		return writeStructured(out, format, value)
	}
	text, err := metadata.Format(value)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, text)
	return nil
}
