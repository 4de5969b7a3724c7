//go:generate mockgen -destination=./mocks/download.go . Engine

package download

import (
	"context"

	"github.com/glorpus-work/opendata/pkg/model"
)

// Engine transfers a single remote file to a local path using one transport.
type Engine interface {
	// Name returns the canonical engine name (http, curl or xrootd).
	Name() string

	// Protocols lists the delivery protocols the engine can serve.
	Protocols() []model.Protocol

	// Size returns the remote size of uri in bytes, or -1 when the server does not report it.
	Size(ctx context.Context, uri string) (int64, error)

	// Fetch writes uri to dest. With offset > 0 the transfer resumes at that byte and
	// appends to dest; engines that cannot resume rewrite dest from the start.
	Fetch(ctx context.Context, uri, dest string, offset int64, progress ProgressFunc) error
}

// ProgressFunc receives the number of bytes present in the destination so far and
// the expected total, which is -1 when unknown.
type ProgressFunc func(transferred, total int64)

// Runner executes an external program and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)
