package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/glorpus-work/opendata/internal/logger"
	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/fsutil"
	"github.com/glorpus-work/opendata/pkg/model"
	"github.com/spf13/afero"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "opendata/1.0"

// HTTPEngine is the built-in streaming HTTP engine. It resumes with a Range request
// and falls back to a full rewrite when the server ignores the range.
type HTTPEngine struct {
	client    *http.Client
	userAgent string
	fs        afero.Fs
}

// NewHTTPEngine creates an HTTP engine with the given timeout and user agent.
// A zero timeout means no timeout.
func NewHTTPEngine(timeout time.Duration, userAgent string, fs afero.Fs) *HTTPEngine {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &HTTPEngine{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		fs:        fs,
	}
}

// Name implements Engine.
func (e *HTTPEngine) Name() string { return EngineHTTP }

// Protocols implements Engine.
func (e *HTTPEngine) Protocols() []model.Protocol {
	return []model.Protocol{model.ProtocolHTTP, model.ProtocolHTTPS}
}

// Size issues a HEAD request and returns the reported content length.
func (e *HTTPEngine) Size(ctx context.Context, uri string) (int64, error) {
	resp, err := e.doRequest(ctx, http.MethodHead, uri, 0)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HEAD %s: unexpected status code: %d: %w", uri, resp.StatusCode, errutils.ErrDownloadFailed)
	}
	return resp.ContentLength, nil
}

// Fetch implements Engine.
func (e *HTTPEngine) Fetch(ctx context.Context, uri, dest string, offset int64, progress ProgressFunc) error {
	resp, err := e.doRequest(ctx, http.MethodGet, uri, offset)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	resume := false
	switch resp.StatusCode {
	case http.StatusPartialContent:
		resume = offset > 0
	case http.StatusOK:
		if offset > 0 {
			logger.Debug("Server ignored range request, downloading from scratch", logger.Fields{"uri": uri})
		}
		offset = 0
	default:
		return fmt.Errorf("GET %s: unexpected status code: %d: %w", uri, resp.StatusCode, errutils.ErrDownloadFailed)
	}

	return writeBody(e.fs, dest, resume, resp.Body, offset, total(resp.ContentLength, offset), progress)
}

func (e *HTTPEngine) doRequest(ctx context.Context, method, uri string, offset int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, uri, http.NoBody)
	if err != nil {
		return nil, errutils.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", e.userAgent)
	if offset > 0 {
		req.Header.Set("Range", "bytes="+strconv.FormatInt(offset, 10)+"-")
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, uri, errutils.ErrDownloadFailed, err)
	}
	return resp, nil
}

func total(contentLength, offset int64) int64 {
	if contentLength < 0 {
		return -1
	}
	return contentLength + offset
}

func writeBody(fs afero.Fs, dest string, resume bool, body io.Reader, offset, size int64, progress ProgressFunc) error {
	f, err := fsutil.OpenForWrite(fs, dest, resume)
	if err != nil {
		return errutils.Wrapf(err, "could not open %s", dest)
	}

	pw := &progressWriter{written: offset, total: size, fn: progress}
	if _, err := io.Copy(io.MultiWriter(f, pw), body); err != nil {
		_ = f.Close()
		return fmt.Errorf("could not write %s: %w: %w", dest, errutils.ErrDownloadFailed, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errutils.Wrap(err, "could not sync file")
	}
	if err := f.Close(); err != nil {
		return errutils.Wrap(err, "could not close file")
	}
	return nil
}

type progressWriter struct {
	written int64
	total   int64
	fn      ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.fn != nil {
		p.fn(p.written, p.total)
	}
	return len(b), nil
}
