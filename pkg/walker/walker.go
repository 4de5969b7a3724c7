//go:generate mockgen -destination=./mocks/walker.go . Lister

// Package walker lists directories of the storage federation, optionally
// descending into subdirectories within a wall-clock budget.
package walker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/glorpus-work/opendata/internal/logger"
	"github.com/glorpus-work/opendata/pkg/clock"
	"github.com/glorpus-work/opendata/pkg/download"
	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/model"
)

// Entry is one item of a directory listing.
type Entry struct {
	Path  string
	IsDir bool
}

// Lister lists the direct children of a federation directory.
type Lister interface {
	List(ctx context.Context, dir string) ([]Entry, error)
}

// XRDFSLister lists directories with `xrdfs <endpoint> ls -l <dir>`.
type XRDFSLister struct {
	Endpoint string
	Run      download.Runner
}

// NewXRDFSLister creates a lister for the public federation endpoint.
func NewXRDFSLister(run download.Runner) *XRDFSLister {
	if run == nil {
		run = download.ExecRunner
	}
	endpoint, _, _ := model.SplitRootURI(model.ServerRootURI)
	return &XRDFSLister{Endpoint: endpoint, Run: run}
}

// List implements Lister. Any failure of the listing tool is reported as a missing directory.
func (l *XRDFSLister) List(ctx context.Context, dir string) ([]Entry, error) {
	out, err := l.Run(ctx, download.XRDFSBinary, l.Endpoint, "ls", "-l", dir)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %w", errutils.ErrDirectoryNotFound, dir, err)
	}
	return parseLongListing(out), nil
}

// parseLongListing reads lines like "dr-x 2020-06-02 09:41:35 4096 /eos/opendata/cms".
func parseLongListing(out []byte) []Entry {
	var entries []Entry
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		entries = append(entries, Entry{
			Path:  fields[len(fields)-1],
			IsDir: strings.HasPrefix(fields[0], "d"),
		})
	}
	return entries
}

// Walker lists federation directories.
type Walker struct {
	Lister Lister
	Clock  clock.Clock
}

// New creates a Walker using the real clock.
func New(l Lister) *Walker {
	return &Walker{Lister: l, Clock: clock.Real()}
}

// List returns the names of the direct children of dir. With recursive set it
// instead returns the full path of every file below dir, visiting directories depth
// first. The recursive walk fails with ErrWalkTimeout once more than timeout has
// elapsed; a zero timeout disables the limit.
func (w *Walker) List(ctx context.Context, dir string, recursive bool, timeout time.Duration) ([]string, error) {
	if !recursive {
		entries, err := w.Lister.List(ctx, dir)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, path.Base(e.Path))
		}
		return names, nil
	}
	return w.walk(ctx, dir, timeout)
}

func (w *Walker) walk(ctx context.Context, root string, timeout time.Duration) ([]string, error) {
	start := w.Clock.Now()
	files := []string{}
	stack := []string{root}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if elapsed := w.Clock.Now().Sub(start); timeout > 0 && elapsed > timeout {
			logger.Debug("Directory walk timed out", logger.Fields{"path": root, "elapsed": elapsed.String()})
			return nil, errutils.ErrWalkTimeout
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := w.Lister.List(ctx, dir)
		if err != nil {
			return nil, err
		}
		var subdirs []string
		for _, e := range entries {
			if e.IsDir {
				subdirs = append(subdirs, e.Path)
				continue
			}
			files = append(files, e.Path)
		}
		slices.Reverse(subdirs)
		stack = append(stack, subdirs...)
	}
	return files, nil
}
