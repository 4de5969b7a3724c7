package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/opendata/internal/logger"
	"github.com/glorpus-work/opendata/pkg/config"
	"github.com/glorpus-work/opendata/pkg/download"
	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/model"
	"github.com/glorpus-work/opendata/pkg/orchestrator"
	"github.com/glorpus-work/opendata/pkg/resolver"
)

// detectCapabilities is replaced in tests to pin the available engines.
var detectCapabilities = func() download.Capabilities {
	return download.DetectCapabilities(nil)
}

// NewDownloadFilesCmd creates the download-files command.
func NewDownloadFilesCmd() *cobra.Command {
	var (
		rec        recordFlags
		filters    filterFlags
		dryRun     bool
		verifyEach bool
		retryLimit int
		retrySleep int
		engine     string
	)

	cmd := &cobra.Command{
		Use:   "download-files",
		Short: "Download data files belonging to a record",
		Long: `Download the files of a record into a directory named after the record ID.

Files already present with the remote size are skipped and shorter ones are
resumed. A download that returns the server's error page is retried up to
--retry-limit times, waiting --retry-sleep seconds between attempts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDownloadFiles(cmd, downloadArgs{
				rec:        &rec,
				filters:    &filters,
				dryRun:     dryRun,
				verify:     verifyEach,
				retryLimit: retryLimit,
				retrySleep: retrySleep,
				engine:     engine,
			})
		},
	}

	rec.register(cmd, true)
	filters.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the files that would be downloaded without downloading them")
	cmd.Flags().BoolVar(&verifyEach, "verify", false, "Verify size and checksum of every file after it was downloaded")
	cmd.Flags().IntVar(&retryLimit, "retry-limit", config.DefaultRetryLimit, "Number of retries when a download returns the error page (default from config)")
	cmd.Flags().IntVar(&retrySleep, "retry-sleep", int(config.DefaultRetrySleep/time.Second), "Seconds to wait between retries (default from config)")
	cmd.Flags().StringVar(&engine, "download-engine", "", "Download engine: http (requests), curl (pycurl) or xrootd (default per protocol)")

	return cmd
}

type downloadArgs struct {
	rec        *recordFlags
	filters    *filterFlags
	dryRun     bool
	verify     bool
	retryLimit int
	retrySleep int
	engine     string
}

func runDownloadFiles(cmd *cobra.Command, args downloadArgs) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	req, err := args.rec.validate(cmd, cfg)
	if err != nil {
		return err
	}
	spec, err := args.filters.parse()
	if err != nil {
		return err
	}
	caps := detectCapabilities()
	opts, err := downloadOptions(cmd, cfg, req, args, caps)
	if err != nil {
		return err
	}

	client := newCatalogClient(cfg, req.Server)
	record, files, err := resolveFiles(cmd.Context(), client, req, spec)
	if err != nil {
		return err
	}

	remote := &recordCatalog{
		resolver: resolver.New(client),
		server:   req.Server,
		id:       record.ID,
		protocol: req.Protocol,
		expand:   req.Expand,
	}
	engines := func(name string) (download.Engine, error) {
		return download.NewEngine(name, download.Options{
			Timeout:   cfg.Settings.HTTPTimeout,
			UserAgent: userAgent(),
		})
	}
	hooks := orchestrator.Hooks{OnEvent: func(e orchestrator.Event) {
		logger.Debug("Download event", logger.Fields{"phase": e.Phase, "file": e.ID, "msg": e.Msg})
	}}

	orch := orchestrator.New(remote, caps, engines, cmd.OutOrStdout(), cmd.ErrOrStderr(), hooks)
	orch.ErrorPage = orchestrator.ErrorPage{
		Size:     cfg.Settings.ErrorPage.Size,
		Checksum: cfg.Settings.ErrorPage.Checksum,
	}

	res, err := orch.DownloadAll(cmd.Context(), record.ID.String(), files, opts)
	if err != nil {
		return err
	}
	if args.dryRun {
		return nil
	}

	logger.Debug("Download summary", logger.Fields{
		"engine":  res.Engine,
		"written": len(res.Written),
		"skipped": len(res.Skipped),
	})
	printSuccess(cmd.OutOrStdout())
	return nil
}

// downloadOptions validates the retry and engine flags. Flags the user did not
// set fall back to the configuration. An engine that cannot serve the protocol
// is rejected here, before the catalog is contacted.
func downloadOptions(cmd *cobra.Command, cfg *config.Config, req *recordRequest, args downloadArgs, caps download.Capabilities) (orchestrator.Options, error) {
	opts := orchestrator.Options{
		Protocol:   model.EffectiveProtocol(req.Server, req.Protocol),
		RetryLimit: cfg.Settings.RetryLimit,
		RetrySleep: cfg.Settings.RetrySleep,
		Verify:     args.verify,
		DryRun:     args.dryRun,
	}

	if cmd.Flags().Changed("retry-limit") {
		if args.retryLimit <= 0 {
			return opts, fmt.Errorf("invalid value for --retry-limit: retry limit should be a positive integer: %w", errutils.ErrValidation)
		}
		opts.RetryLimit = args.retryLimit
	}
	if cmd.Flags().Changed("retry-sleep") {
		if args.retrySleep <= 0 {
			return opts, fmt.Errorf("invalid value for --retry-sleep: retry sleep should be a positive integer: %w", errutils.ErrValidation)
		}
		opts.RetrySleep = time.Duration(args.retrySleep) * time.Second
	}

	name, err := download.CanonicalEngine(firstNonEmpty(args.engine, cfg.Settings.Engine))
	if err != nil {
		return opts, fmt.Errorf("invalid value for --download-engine: %w: %w", errutils.ErrValidation, err)
	}
	opts.Engine = name
	if _, err := download.SelectEngine(opts.Protocol, name, caps); err != nil {
		return opts, err
	}
	return opts, nil
}

// recordCatalog answers per-file verification lookups for one record.
type recordCatalog struct {
	resolver *resolver.Resolver
	server   string
	id       model.RecordID
	protocol model.Protocol
	expand   bool
}

func (c *recordCatalog) RemoteInfo(ctx context.Context, uris []string) ([]model.FileEntry, error) {
	return c.resolver.RemoteInfo(ctx, c.server, c.id, c.protocol, c.expand, uris)
}
