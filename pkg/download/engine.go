package download

import (
	"context"
	"fmt"
	"os/exec"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/model"
	"github.com/spf13/afero"
)

// Canonical engine names.
const (
	EngineHTTP   = "http"
	EngineCurl   = "curl"
	EngineXRootD = "xrootd"
)

// Executables looked up by DetectCapabilities.
const (
	CurlBinary  = "curl"
	XRDCPBinary = "xrdcp"
	XRDFSBinary = "xrdfs"
)

var engineAliases = map[string]string{
	"requests": EngineHTTP,
	"pycurl":   EngineCurl,
}

// CanonicalEngine resolves aliases and rejects unknown engine names.
// An empty name stays empty and means "choose for me".
func CanonicalEngine(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := engineAliases[name]; ok {
		name = alias
	}
	switch name {
	case "", EngineHTTP, EngineCurl, EngineXRootD:
		return name, nil
	default:
		return "", fmt.Errorf("%w: %q, must be one of: http (requests), curl (pycurl), xrootd", errutils.ErrUnknownEngine, name)
	}
}

// Capabilities is the set of engines usable on this host. It is computed once at
// startup and only read afterwards.
type Capabilities map[string]bool

// Has reports whether the engine is available.
func (c Capabilities) Has(name string) bool {
	return c[name]
}

// Names returns the available engines in sorted order.
func (c Capabilities) Names() []string {
	names := make([]string, 0, len(c))
	for name, ok := range c {
		if ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// DetectCapabilities looks up the external transfer tools with lookPath. The built-in
// http engine is always available. A nil lookPath uses exec.LookPath.
func DetectCapabilities(lookPath func(string) (string, error)) Capabilities {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	caps := Capabilities{EngineHTTP: true}
	if _, err := lookPath(CurlBinary); err == nil {
		caps[EngineCurl] = true
	}
	_, errCP := lookPath(XRDCPBinary)
	_, errFS := lookPath(XRDFSBinary)
	if errCP == nil && errFS == nil {
		caps[EngineXRootD] = true
	}
	return caps
}

// enginesFor returns the engines able to serve a protocol, most preferred first.
func enginesFor(p model.Protocol) []string {
	if p == model.ProtocolXRootD {
		return []string{EngineXRootD}
	}
	return []string{EngineCurl, EngineHTTP}
}

// SelectEngine picks the engine for protocol. Without an explicit request the first
// available compatible engine wins. A requested engine must serve the protocol and
// be available.
func SelectEngine(protocol model.Protocol, requested string, caps Capabilities) (string, error) {
	name, err := CanonicalEngine(requested)
	if err != nil {
		return "", err
	}
	candidates := enginesFor(protocol)

	if name == "" {
		for _, c := range candidates {
			if caps.Has(c) {
				return c, nil
			}
		}
		return "", fmt.Errorf("no download engine for protocol %s (need %s): %w",
			protocol, strings.Join(candidates, " or "), errutils.ErrEngineUnavailable)
	}

	if !slices.Contains(candidates, name) {
		return "", fmt.Errorf("%s engine can not be used with %s protocol, use one of: %s: %w",
			name, protocol, strings.Join(candidates, ", "), errutils.ErrIncompatibleEngine)
	}
	if !caps.Has(name) {
		return "", fmt.Errorf("%s engine is not installed: %w", name, errutils.ErrEngineUnavailable)
	}
	return name, nil
}

// Options configure the engines built by NewEngine.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Fs        afero.Fs
	Runner    Runner
}

// NewEngine builds the engine with the given canonical name.
func NewEngine(name string, opts Options) (Engine, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner
	}
	switch name {
	case EngineHTTP:
		return NewHTTPEngine(opts.Timeout, opts.UserAgent, opts.Fs), nil
	case EngineCurl:
		return NewCurlEngine(opts.Runner, opts.Fs), nil
	case EngineXRootD:
		return NewXRootDEngine(opts.Runner, opts.Fs), nil
	default:
		return nil, fmt.Errorf("%w: %q", errutils.ErrUnknownEngine, name)
	}
}

// ExecRunner runs the program with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return out, nil
}
