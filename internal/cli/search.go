package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/model"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	var (
		server   string
		query    string
		page     int
		size     int
		facets   []string
		facetMap = map[string]*string{}
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search records of the open data portal",
		Long: `Search the catalog and print the ID and title of every matching record.

The experiment, year, type and category flags narrow the search like the
facets of the portal's search page. Further facets can be given as --facet name:value.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all := append([]string(nil), facets...)
			for _, name := range []string{"experiment", "year", "type", "category"} {
				if v := *facetMap[name]; v != "" {
					all = append(all, name+":"+v)
				}
			}
			return runSearch(cmd, server, query, page, size, all)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Which CERN Open Data server to query (default from config)")
	cmd.Flags().StringVar(&query, "q", "", "Free text query")
	cmd.Flags().IntVar(&page, "page", DefaultSearchPage, "Result page")
	cmd.Flags().IntVar(&size, "size", DefaultSearchSize, "Results per page")
	cmd.Flags().StringArrayVar(&facets, "facet", nil, "Additional facet filter name:value")
	for _, name := range []string{"experiment", "year", "type", "category"} {
		facetMap[name] = cmd.Flags().String(name, "", "Restrict results to this "+name)
	}

	return cmd
}

func runSearch(cmd *cobra.Command, server, query string, page, size int, facets []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	server = strings.TrimRight(firstNonEmpty(server, cfg.Settings.Server), "/")
	if err := model.ValidateServer(server); err != nil {
		return fmt.Errorf("invalid value for --server: %w", err)
	}
	if page < 1 || size < 1 {
		return fmt.Errorf("--page and --size should be positive integers: %w", errutils.ErrValidation)
	}
	for _, f := range facets {
		if name, value, ok := strings.Cut(f, ":"); !ok || name == "" || value == "" {
			return fmt.Errorf("invalid facet %q, use name:value: %w", f, errutils.ErrValidation)
		}
	}

	result, err := newCatalogClient(cfg, server).Search(cmd.Context(), query, page, size, facets...)
	if err != nil {
		return err
	}
	if result.Hits.Total == 0 {
		return fmt.Errorf("no records found for query %q: %w", query, errors.Join(errutils.ErrNotFound, errutils.ErrRecordSearch))
	}

	out := cmd.OutOrStdout()
	switch cfg.Settings.OutputFormat {
	case "json", "yaml":
		return writeStructured(out, cfg.Settings.OutputFormat, result.Hits.Hits)
	}

	tabWriter := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "RECID\tTITLE")
	for _, hit := range result.Hits.Hits {
		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\n", hit.ID, truncateTitle(hit.Title(), MaxTitleLength))
	}
	_ = tabWriter.Flush()

	_, _ = fmt.Fprintf(out, "\nFound %d record(s), showing page %d\n", result.Hits.Total, page)
	return nil
}

// truncateTitle shortens title to at most limit characters, ending in "...".
func truncateTitle(title string, limit int) string {
	runes := []rune(title)
	if len(runes) <= limit {
		return title
	}
	return string(runes[:limit-3]) + "..."
}
