//go:generate mockgen -destination=./mocks/orchestrator.go . Catalog

package orchestrator

import (
	"context"
	"io"
	"time"

	"github.com/glorpus-work/opendata/pkg/clock"
	"github.com/glorpus-work/opendata/pkg/download"
	"github.com/glorpus-work/opendata/pkg/model"
	"github.com/glorpus-work/opendata/pkg/verify"
	"github.com/spf13/afero"
)

// Catalog reports the catalog's size and checksum for resolved file URIs.
// It is used to verify each file right after it was written.
type Catalog interface {
	RemoteInfo(ctx context.Context, uris []string) ([]model.FileEntry, error)
}

// EngineFactory builds the engine selected for a batch.
type EngineFactory func(name string) (download.Engine, error)

// Orchestrator downloads resolved file lists one file at a time.
type Orchestrator struct {
	Catalog   Catalog
	NewEngine EngineFactory
	Caps      download.Capabilities
	Fs        afero.Fs
	Verifier  *verify.Verifier
	Clock     clock.Clock
	ErrorPage ErrorPage
	Out       io.Writer // per-file messages and verification lines
	Progress  io.Writer // in-place progress line
	Hooks     Hooks     // Hooks for progress and event notifications
}

// ErrorPage is the size and checksum of the body the server sends instead of a
// file when it fails. A downloaded file matching it is fetched again.
type ErrorPage struct {
	Size     int64
	Checksum string
}

// DefaultErrorPage is an empty body.
var DefaultErrorPage = ErrorPage{Size: 0, Checksum: verify.FormatChecksum(1)}

// Event represents a simple progress notification.
type Event struct {
	Phase string // checking|skipping|downloading|resuming|retrying|verifying|done
	ID    string // file name
	Msg   string
}

// Phases reported through Hooks.
const (
	PhaseChecking    = "checking"
	PhaseSkipping    = "skipping"
	PhaseDownloading = "downloading"
	PhaseResuming    = "resuming"
	PhaseRetrying    = "retrying"
	PhaseVerifying   = "verifying"
	PhaseDone        = "done"
)

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
}

// Options control a download batch.
type Options struct {
	Protocol   model.Protocol
	Engine     string // requested engine, empty selects the default for Protocol
	RetryLimit int    // retries after an error page, on top of the first attempt
	RetrySleep time.Duration
	Verify     bool
	DryRun     bool
}

// Result lists the files of a batch by outcome.
type Result struct {
	Engine  string
	Written []string
	Skipped []string
	Bytes   int64
}
