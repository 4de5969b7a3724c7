//go:generate mockgen -destination=./mocks/resolver.go . Catalog

// Package resolver turns a record's file metadata into the ordered list of file
// locations that filters and downloads operate on.
package resolver

import (
	"context"
	"slices"

	"github.com/glorpus-work/opendata/internal/logger"
	"github.com/glorpus-work/opendata/pkg/model"
)

// Catalog is the subset of the catalog client used to expand file indexes and
// to look up remote file information.
type Catalog interface {
	FetchRecord(ctx context.Context, id model.RecordID) (*model.Record, error)
	FetchFileIndex(ctx context.Context, id model.RecordID, name string) ([]model.FileEntry, error)
}

// Resolver builds resolved file lists.
type Resolver struct {
	Catalog Catalog
}

// New creates a Resolver backed by the given catalog.
func New(c Catalog) *Resolver {
	return &Resolver{Catalog: c}
}

// Resolve returns the record's files in catalog order. With expand set, every JSON
// file index is replaced in place by the entries it lists and legacy text indexes
// are dropped. URIs are then rewritten for the effective protocol on server.
func (r *Resolver) Resolve(ctx context.Context, server string, record *model.Record, protocol model.Protocol, expand bool) ([]model.FileEntry, error) {
	files := slices.Clone(record.Files)
	if files == nil {
		files = []model.FileEntry{}
	}

	if expand {
		expanded, err := r.expand(ctx, record.ID, files)
		if err != nil {
			return nil, err
		}
		files = expanded
	}

	return Rewrite(files, server, protocol), nil
}

func (r *Resolver) expand(ctx context.Context, id model.RecordID, files []model.FileEntry) ([]model.FileEntry, error) {
	out := make([]model.FileEntry, 0, len(files))
	for _, f := range files {
		switch {
		case f.IsJSONIndex():
			entries, err := r.Catalog.FetchFileIndex(ctx, id, f.Name())
			if err != nil {
				return nil, err
			}
			logger.Debug("Expanded file index", logger.Fields{"index": f.Name(), "files": len(entries)})
			out = append(out, entries...)
		case f.IsTextIndex():
			logger.Debug("Skipping legacy file index", logger.Fields{"index": f.Name()})
		default:
			out = append(out, f)
		}
	}
	return out, nil
}

// Rewrite maps every URI onto the protocol effectively used for server.
// The input slice is not modified.
func Rewrite(files []model.FileEntry, server string, protocol model.Protocol) []model.FileEntry {
	effective := model.EffectiveProtocol(server, protocol)
	out := make([]model.FileEntry, len(files))
	for i, f := range files {
		f.URI = model.RewriteURI(f.URI, server, effective)
		out[i] = f
	}
	return out
}

// RemoteInfo fetches the record and resolves its files like Resolve does. When uris
// is not empty only entries whose resolved URI is listed are returned.
func (r *Resolver) RemoteInfo(ctx context.Context, server string, id model.RecordID, protocol model.Protocol, expand bool, uris []string) ([]model.FileEntry, error) {
	record, err := r.Catalog.FetchRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	files, err := r.Resolve(ctx, server, record, protocol, expand)
	if err != nil {
		return nil, err
	}
	if len(uris) == 0 {
		return files, nil
	}

	out := files[:0]
	for _, f := range files {
		if slices.Contains(uris, f.URI) {
			out = append(out, f)
		}
	}
	return out, nil
}
