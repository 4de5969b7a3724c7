package download

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/glorpus-work/opendata/pkg/fsutil"
)

const kib = 1024

// DefaultPollInterval is how often the destination of an external transfer is sampled.
const DefaultPollInterval = 250 * time.Millisecond

// Percent returns the completed share of total rounded down, or 0 when the total is unknown.
func Percent(transferred, total int64) int64 {
	if total <= 0 {
		return 0
	}
	return transferred * 100 / total
}

// Progress renders a single progress line that is rewritten in place.
type Progress struct {
	w       io.Writer
	started bool
}

// NewProgress creates a Progress writing to w. A nil writer discards output.
func NewProgress(w io.Writer) *Progress {
	if w == nil {
		w = io.Discard
	}
	return &Progress{w: w}
}

// Update redraws the progress line. It satisfies ProgressFunc.
func (p *Progress) Update(transferred, total int64) {
	if total < 0 {
		total = 0
	}
	p.started = true
	_, _ = fmt.Fprintf(p.w, "  -> Progress: %d/%d kiB (%d%%)\r", transferred/kib, total/kib, Percent(transferred, total))
}

// Done terminates the progress line if one was drawn.
func (p *Progress) Done() {
	if p.started {
		_, _ = fmt.Fprintln(p.w)
		p.started = false
	}
}

// watchFile reports the size of dest to progress on every tick until the returned
// stop function is called. External tools do not expose their byte counts, so the
// growing destination file is the progress source. The total is unknown (-1).
// stop waits for the last report, so progress is never called concurrently.
func watchFile(ctx context.Context, fs afero.Fs, dest string, interval time.Duration, progress ProgressFunc) (stop func()) {
	if progress == nil || fs == nil {
		return func() {}
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		last := int64(-1)
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				size, ok, err := fsutil.FileSize(fs, dest)
				if err != nil || !ok || size == last {
					continue
				}
				last = size
				progress(size, -1)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		wg.Wait()
	}
}
