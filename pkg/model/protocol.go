package model

import (
	"strings"

	"github.com/glorpus-work/opendata/pkg/errutils"
)

// Protocol is the delivery protocol used for file locations.
type Protocol string

const (
	ProtocolHTTP   Protocol = "http"
	ProtocolHTTPS  Protocol = "https"
	ProtocolXRootD Protocol = "xrootd"
)

// ParseProtocol parses a user supplied protocol. Only http and xrootd can be requested;
// https is derived from the server URL.
func ParseProtocol(s string) (Protocol, error) {
	switch Protocol(strings.ToLower(s)) {
	case "", ProtocolHTTP:
		return ProtocolHTTP, nil
	case ProtocolXRootD:
		return ProtocolXRootD, nil
	default:
		return "", errutils.ErrInvalidProtocolWithDetails(s)
	}
}

// IsHTTPFamily reports whether the protocol is served by HTTP capable engines.
func (p Protocol) IsHTTPFamily() bool {
	return p == ProtocolHTTP || p == ProtocolHTTPS
}

// EffectiveProtocol returns the protocol actually used for a server. A non-default
// server decides between http and https by its scheme unless xrootd was requested.
func EffectiveProtocol(server string, requested Protocol) Protocol {
	if requested == ProtocolXRootD {
		return ProtocolXRootD
	}
	if server != ServerHTTPURI {
		if scheme, _, ok := strings.Cut(server, ":"); ok {
			return Protocol(strings.ToLower(scheme))
		}
	}
	if requested == "" {
		return ProtocolHTTP
	}
	return requested
}

// RewriteURI maps a storage federation URI onto the delivery protocol.
func RewriteURI(uri, server string, protocol Protocol) string {
	switch protocol {
	case ProtocolHTTP:
		return strings.ReplaceAll(uri, ServerRootURI, server)
	case ProtocolHTTPS:
		return strings.ReplaceAll(uri, ServerRootURI, ServerHTTPSURI)
	default:
		return uri
	}
}

// ValidateServer checks that the server is an http or https URL.
func ValidateServer(server string) error {
	if strings.HasPrefix(server, "http://") || strings.HasPrefix(server, "https://") {
		return nil
	}
	return errutils.Wrapf(errutils.ErrInvalidServer, "%q", server)
}

// SplitRootURI splits a federation URI such as root://host//eos/path into the
// endpoint root://host and the absolute path /eos/path.
func SplitRootURI(uri string) (endpoint, path string, ok bool) {
	rest, found := strings.CutPrefix(uri, "root://")
	if !found {
		return "", "", false
	}
	host, p, _ := strings.Cut(rest, "/")
	if host == "" {
		return "", "", false
	}
	return "root://" + host, "/" + strings.TrimLeft(p, "/"), true
}
