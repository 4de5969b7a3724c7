package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/opendata/internal/logger"
	"github.com/glorpus-work/opendata/pkg/catalog"
	"github.com/glorpus-work/opendata/pkg/config"
	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/filter"
	"github.com/glorpus-work/opendata/pkg/model"
	"github.com/glorpus-work/opendata/pkg/resolver"
)

// These variables will be set by the main package
var (
	ConfigPath   *string
	Verbose      *bool
	LogLevel     *string
	OutputFormat *string
)

// loadConfig loads the configuration file and applies the global flags on top.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path := getConfigPath(); path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if OutputFormat != nil && *OutputFormat != "" {
		cfg.Settings.OutputFormat = *OutputFormat
	}
	if LogLevel != nil && *LogLevel != "" {
		cfg.Settings.LogLevel = *LogLevel
	}
	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errutils.ErrValidation, err)
	}

	InitLogger(cfg)
	return cfg, nil
}

func verbose() bool {
	return Verbose != nil && *Verbose
}

// recordFlags are the record selection and location flags shared by the
// record based commands.
type recordFlags struct {
	recid    int64
	doi      string
	title    string
	server   string
	protocol string
	expand   bool
	noExpand bool
}

func (f *recordFlags) register(cmd *cobra.Command, withProtocol bool) {
	cmd.Flags().Int64Var(&f.recid, "recid", 0, "Record ID")
	cmd.Flags().StringVar(&f.doi, "doi", "", "Digital Object Identifier")
	cmd.Flags().StringVar(&f.title, "title", "", "Record title")
	cmd.Flags().StringVar(&f.server, "server", "", "Which CERN Open Data server to query (default from config)")
	if withProtocol {
		cmd.Flags().StringVar(&f.protocol, "protocol", "", "Protocol to be used in links (http, xrootd; default from config)")
		cmd.Flags().BoolVar(&f.expand, "expand", true, "Expand file indexes")
		cmd.Flags().BoolVar(&f.noExpand, "no-expand", false, "Do not expand file indexes")
		cmd.MarkFlagsMutuallyExclusive("expand", "no-expand")
	}
}

// recordRequest is the validated form of recordFlags.
type recordRequest struct {
	ID       model.Identifier
	Server   string
	Protocol model.Protocol
	Expand   bool
}

// validate checks the flags before anything is sent over the network.
func (f *recordFlags) validate(cmd *cobra.Command, cfg *config.Config) (*recordRequest, error) {
	if cmd.Flags().Changed("recid") {
		if err := model.ValidateRecID(f.recid); err != nil {
			return nil, fmt.Errorf("invalid value for --recid: %w", err)
		}
	}

	req := &recordRequest{
		ID:     model.Identifier{RecID: model.RecordID(f.recid), DOI: f.doi, Title: f.title},
		Server: strings.TrimRight(firstNonEmpty(f.server, cfg.Settings.Server), "/"),
		Expand: f.expand && !f.noExpand,
	}
	if err := model.ValidateServer(req.Server); err != nil {
		return nil, fmt.Errorf("invalid value for --server: %w", err)
	}

	protocol, err := model.ParseProtocol(firstNonEmpty(f.protocol, cfg.Settings.Protocol))
	if err != nil {
		return nil, fmt.Errorf("invalid value for --protocol: %w: %w", errutils.ErrValidation, err)
	}
	req.Protocol = protocol

	if req.ID.Empty() {
		return nil, errutils.ErrMissingIdentifier
	}
	return req, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// filterFlags select a subset of the resolved file list.
type filterFlags struct {
	names  []string
	regexp string
	ranges []string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.names, "filter-name", nil, "Select files by exact name (comma separated or repeated)")
	cmd.Flags().StringVar(&f.regexp, "filter-regexp", "", "Select files whose name matches the regular expression")
	cmd.Flags().StringSliceVar(&f.ranges, "filter-range", nil, "Select files by 1-based position, e.g. 1-5 (comma separated or repeated)")
}

func (f *filterFlags) parse() (filter.Spec, error) {
	return filter.Parse(f.names, f.regexp, f.ranges)
}

func newCatalogClient(cfg *config.Config, server string) *catalog.Client {
	return catalog.NewClient(server, cfg.Settings.CatalogTimeout, userAgent())
}

// resolveFiles fetches the record and returns its file list after index
// expansion, protocol rewriting and filtering.
func resolveFiles(ctx context.Context, client *catalog.Client, req *recordRequest, spec filter.Spec) (*model.Record, []model.FileEntry, error) {
	record, err := client.GetRecord(ctx, req.ID)
	if err != nil {
		return nil, nil, err
	}

	files, err := resolver.New(client).Resolve(ctx, req.Server, record, req.Protocol, req.Expand)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Resolved file list", logger.Fields{"recid": record.ID.String(), "files": len(files)})

	if spec.Empty() {
		return record, files, nil
	}
	selected, err := filter.Select(files, spec)
	if err != nil {
		return nil, nil, err
	}
	return record, selected, nil
}

// writeStructured prints v as indented JSON or as YAML.
func writeStructured(w io.Writer, format string, v interface{}) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(config.YAMLIndent)
		if err := enc.Encode(v); err != nil {
			return errutils.Wrap(err, "failed to encode output")
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return errutils.Wrap(err, "failed to encode output")
	}
	return nil
}

func printSuccess(w io.Writer) {
	_, _ = fmt.Fprintln(w, "\n==> Success!")
}
