package orchestrator

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/glorpus-work/opendata/internal/logger"
	"github.com/glorpus-work/opendata/pkg/clock"
	"github.com/glorpus-work/opendata/pkg/download"
	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/fsutil"
	"github.com/glorpus-work/opendata/pkg/model"
	"github.com/glorpus-work/opendata/pkg/verify"
	"github.com/spf13/afero"
)

// New constructs an Orchestrator using the OS filesystem and the real clock.
// Hooks can be empty if no event handling is needed.
func New(catalog Catalog, caps download.Capabilities, engines EngineFactory, out, progress io.Writer, hooks Hooks) *Orchestrator {
	fs := afero.NewOsFs()
	return &Orchestrator{
		Catalog:   catalog,
		NewEngine: engines,
		Caps:      caps,
		Fs:        fs,
		Verifier:  verify.New(fs),
		Clock:     clock.Real(),
		ErrorPage: DefaultErrorPage,
		Out:       out,
		Progress:  progress,
		Hooks:     hooks,
	}
}

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// DownloadAll writes every file into dir, in order. The engine is validated before
// anything touches the disk. Files that already exist with the remote size are
// skipped, shorter ones are resumed. A file that comes back as the server error page
// is fetched again up to RetryLimit times; running out of retries, a failed transfer
// or a failed verification aborts the batch.
func (o *Orchestrator) DownloadAll(ctx context.Context, dir string, files []model.FileEntry, opts Options) (*Result, error) {
	name, err := download.SelectEngine(opts.Protocol, opts.Engine, o.Caps)
	if err != nil {
		return nil, err
	}
	if o.NewEngine == nil {
		return nil, fmt.Errorf("engine factory is not configured: %w", errutils.ErrEngineUnavailable)
	}
	engine, err := o.NewEngine(name)
	if err != nil {
		return nil, err
	}
	o.setDefaults()

	res := &Result{Engine: name, Written: []string{}, Skipped: []string{}}
	if opts.DryRun {
		for _, f := range files {
			emit(o.Hooks, Event{Phase: PhaseDownloading, ID: f.Name(), Msg: "dry-run"})
			_, _ = fmt.Fprintf(o.Out, "  -> File: %s (%s)\n", displayPath(filepath.Join(dir, f.Name())), humanize.IBytes(uint64(max(f.Size, 0))))
		}
		emit(o.Hooks, Event{Phase: PhaseDone, Msg: "dry-run"})
		return res, nil
	}

	if err := fsutil.EnsureDir(o.Fs, dir); err != nil {
		logger.Error("Could not create download directory", logger.Fields{"dir": dir, "error": err})
	}

	logger.Debug("Starting downloads", logger.Fields{"files": len(files), "engine": name, "protocol": opts.Protocol})
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		dest := filepath.Join(dir, f.Name())
		_, _ = fmt.Fprintf(o.Out, "==> Downloading file %d of %d\n", i+1, len(files))
		_, _ = fmt.Fprintf(o.Out, "  -> File: %s\n", displayPath(dest))

		skipped, err := o.downloadOne(ctx, engine, dest, f, opts)
		if err != nil {
			return res, err
		}
		if skipped {
			res.Skipped = append(res.Skipped, dest)
		} else {
			res.Written = append(res.Written, dest)
			if size, ok, _ := fsutil.FileSize(o.Fs, dest); ok {
				res.Bytes += size
			}
		}

		if opts.Verify {
			if err := o.verifyOne(ctx, dest, f); err != nil {
				return res, err
			}
		}
	}

	emit(o.Hooks, Event{Phase: PhaseDone, Msg: humanize.IBytes(uint64(res.Bytes))})
	logger.Debug("Downloads finished", logger.Fields{
		"written": len(res.Written),
		"skipped": len(res.Skipped),
		"size":    humanize.IBytes(uint64(res.Bytes)),
	})
	return res, nil
}

func displayPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return "./" + p
}

func (o *Orchestrator) setDefaults() {
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Verifier == nil {
		o.Verifier = verify.New(o.Fs)
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Out == nil {
		o.Out = io.Discard
	}
	if o.Progress == nil {
		o.Progress = io.Discard
	}
}

// startOffset decides between skipping, resuming and a fresh write for dest.
func (o *Orchestrator) startOffset(ctx context.Context, engine download.Engine, dest string, f model.FileEntry) (offset int64, skip bool, err error) {
	emit(o.Hooks, Event{Phase: PhaseChecking, ID: f.Name()})

	local, exists, err := fsutil.FileSize(o.Fs, dest)
	if err != nil {
		return 0, false, errutils.Wrapf(err, "stat %s", dest)
	}
	if !exists {
		return 0, false, nil
	}

	remote, err := engine.Size(ctx, f.URI)
	if err != nil {
		logger.Debug("Could not get remote size, using catalog size", logger.Fields{"uri": f.URI, "error": err})
		remote = f.Size
	}

	switch {
	case remote < 0 || local > remote:
		return 0, false, nil
	case local == remote:
		return 0, true, nil
	default:
		return local, false, nil
	}
}

func (o *Orchestrator) downloadOne(ctx context.Context, engine download.Engine, dest string, f model.FileEntry, opts Options) (bool, error) {
	offset, skip, err := o.startOffset(ctx, engine, dest, f)
	if err != nil {
		return false, err
	}
	if skip {
		emit(o.Hooks, Event{Phase: PhaseSkipping, ID: f.Name()})
		logger.Info("File already downloaded, skipping", logger.Fields{"file": dest})
		return true, nil
	}

	for attempt := 0; ; attempt++ {
		switch {
		case attempt > 0:
			emit(o.Hooks, Event{Phase: PhaseRetrying, ID: f.Name(), Msg: fmt.Sprintf("attempt %d of %d", attempt, opts.RetryLimit)})
		case offset > 0:
			emit(o.Hooks, Event{Phase: PhaseResuming, ID: f.Name(), Msg: fmt.Sprintf("from byte %d", offset)})
			logger.Info("Resuming incomplete download", logger.Fields{"file": dest, "offset": offset})
		default:
			emit(o.Hooks, Event{Phase: PhaseDownloading, ID: f.Name()})
		}

		progress := download.NewProgress(o.Progress)
		err := engine.Fetch(ctx, f.URI, dest, offset, withCatalogTotal(progress.Update, f.Size))
		progress.Done()
		if err != nil {
			return false, err
		}

		isErrorPage, err := o.isErrorPage(dest, f)
		if err != nil {
			return false, err
		}
		if !isErrorPage {
			return false, nil
		}
		if attempt >= opts.RetryLimit {
			return false, fmt.Errorf("%s: gave up after %d retries: %w: %w",
				f.Name(), opts.RetryLimit, errutils.ErrRetriesExhausted, errutils.ErrTransientDownload)
		}

		logger.Warn("Server returned an error page, retrying", logger.Fields{
			"file":  f.Name(),
			"retry": attempt + 1,
			"limit": opts.RetryLimit,
			"sleep": opts.RetrySleep.String(),
		})
		if err := o.Clock.Sleep(ctx, opts.RetrySleep); err != nil {
			return false, err
		}
		offset = 0
	}
}

// isErrorPage compares dest against the error page fingerprint. Files whose catalog
// size equals the error page size are never treated as error pages.
func (o *Orchestrator) isErrorPage(dest string, f model.FileEntry) (bool, error) {
	if f.Size == o.ErrorPage.Size {
		return false, nil
	}
	info, err := o.Verifier.FileInfo(dest)
	if err != nil {
		return false, err
	}
	return info.Size == o.ErrorPage.Size && info.Checksum == o.ErrorPage.Checksum, nil
}

func (o *Orchestrator) verifyOne(ctx context.Context, dest string, f model.FileEntry) error {
	emit(o.Hooks, Event{Phase: PhaseVerifying, ID: f.Name()})
	if o.Catalog == nil {
		return fmt.Errorf("catalog is not configured: %w", errutils.ErrVerification)
	}

	remote, err := o.Catalog.RemoteInfo(ctx, []string{f.URI})
	if err != nil {
		return err
	}
	if len(remote) == 0 {
		return fmt.Errorf("%s: no remote information: %w", f.Name(), errutils.ErrVerification)
	}

	local, err := o.Verifier.FileInfo(dest)
	if err != nil {
		return err
	}
	return verify.VerifyFile(o.Out, remote[0], local)
}

// withCatalogTotal fills in the catalog size when the engine cannot tell the total.
func withCatalogTotal(fn download.ProgressFunc, size int64) download.ProgressFunc {
	return func(transferred, total int64) {
		if total < 0 {
			total = size
		}
		fn(transferred, total)
	}
}
