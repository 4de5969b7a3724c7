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
	"github.com/glorpus-work/opendata/pkg/model"
	"github.com/spf13/afero"
)

// XRootDEngine copies files from the storage federation with xrdcp and queries
// sizes with xrdfs.
type XRootDEngine struct {
	run      Runner
	fs       afero.Fs
	interval time.Duration
}

// NewXRootDEngine creates an xrootd engine.
func NewXRootDEngine(run Runner, fs afero.Fs) *XRootDEngine {
	return &XRootDEngine{run: run, fs: fs, interval: DefaultPollInterval}
}

// Name implements Engine.
func (e *XRootDEngine) Name() string { return EngineXRootD }

// Protocols implements Engine.
func (e *XRootDEngine) Protocols() []model.Protocol {
	return []model.Protocol{model.ProtocolXRootD}
}

// Size runs xrdfs stat and parses the Size line.
func (e *XRootDEngine) Size(ctx context.Context, uri string) (int64, error) {
	endpoint, path, ok := model.SplitRootURI(uri)
	if !ok {
		return 0, fmt.Errorf("not a federation uri: %q: %w", uri, errutils.ErrDownloadFailed)
	}
	out, err := e.run(ctx, XRDFSBinary, endpoint, "stat", path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w: %w", uri, errutils.ErrDownloadFailed, err)
	}
	return parseStatSize(out), nil
}

// Fetch implements Engine. Resumed copies use xrdcp --continue, fresh copies overwrite.
func (e *XRootDEngine) Fetch(ctx context.Context, uri, dest string, offset int64, progress ProgressFunc) error {
	args := []string{"--silent"}
	if offset > 0 {
		args = append(args, "--continue")
	} else {
		args = append(args, "--force")
	}
	args = append(args, uri, dest)

	stop := watchFile(ctx, e.fs, dest, e.interval, progress)
	_, err := e.run(ctx, XRDCPBinary, args...)
	stop()
	if err != nil {
		return fmt.Errorf("copy %s: %w: %w", uri, errutils.ErrDownloadFailed, err)
	}
	return reportFinalSize(e.fs, dest, progress)
}

func parseStatSize(out []byte) int64 {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		name, value, ok := strings.Cut(sc.Text(), ":")
		if !ok || strings.TrimSpace(name) != "Size" {
			continue
		}
		if n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return n
		}
	}
	return -1
}
