package download

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/fsutil"
	"github.com/glorpus-work/opendata/pkg/model"
	"github.com/spf13/afero"
)

// CurlEngine delegates HTTP transfers to the curl executable.
type CurlEngine struct {
	run      Runner
	fs       afero.Fs
	interval time.Duration
}

// NewCurlEngine creates a curl engine. The filesystem is only used to watch the
// destination for progress, curl itself writes to the real destination path.
func NewCurlEngine(run Runner, fs afero.Fs) *CurlEngine {
	return &CurlEngine{run: run, fs: fs, interval: DefaultPollInterval}
}

// Name implements Engine.
func (e *CurlEngine) Name() string { return EngineCurl }

// Protocols implements Engine.
func (e *CurlEngine) Protocols() []model.Protocol {
	return []model.Protocol{model.ProtocolHTTP, model.ProtocolHTTPS}
}

// Size runs a HEAD request through curl and reads the last Content-Length header,
// so redirects report the size of the final target.
func (e *CurlEngine) Size(ctx context.Context, uri string) (int64, error) {
	out, err := e.run(ctx, CurlBinary, "-sSfIL", uri)
	if err != nil {
		return 0, fmt.Errorf("HEAD %s: %w: %w", uri, errutils.ErrDownloadFailed, err)
	}
	return parseContentLength(out), nil
}

// Fetch implements Engine. curl appends to dest when resuming with -C.
func (e *CurlEngine) Fetch(ctx context.Context, uri, dest string, offset int64, progress ProgressFunc) error {
	args := []string{"-fsSL", "-o", dest}
	if offset > 0 {
		args = append(args, "-C", strconv.FormatInt(offset, 10))
	}
	args = append(args, uri)

	stop := watchFile(ctx, e.fs, dest, e.interval, progress)
	_, err := e.run(ctx, CurlBinary, args...)
	stop()
	if err != nil {
		return fmt.Errorf("GET %s: %w: %w", uri, errutils.ErrDownloadFailed, err)
	}
	return reportFinalSize(e.fs, dest, progress)
}

func parseContentLength(headers []byte) int64 {
	size := int64(-1)
	sc := bufio.NewScanner(bytes.NewReader(headers))
	for sc.Scan() {
		name, value, ok := strings.Cut(sc.Text(), ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		if n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			size = n
		}
	}
	return size
}

func reportFinalSize(fs afero.Fs, dest string, progress ProgressFunc) error {
	if progress == nil {
		return nil
	}
	size, ok, err := fsutil.FileSize(fs, dest)
	if err != nil {
		return errutils.Wrapf(err, "stat %s", dest)
	}
	if ok {
		progress(size, size)
	}
	return nil
}
