// Package model provides the data structures shared by the catalog client,
// the file list resolver, the filter engine, the downloader and the verifier.
package model

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/glorpus-work/opendata/pkg/errutils"
)

// Well-known servers of the open data portal.
const (
	ServerHTTPURI  = "http://opendata.cern.ch"
	ServerHTTPSURI = "https://opendata.cern.ch"
	ServerRootURI  = "root://eospublic.cern.ch/"
)

// Suffixes of file entries that point at a secondary file listing.
const (
	JSONIndexSuffix = "_file_index.json"
	TextIndexSuffix = "_file_index.txt"
)

// RecordID is the numeric identifier of a catalog record.
type RecordID int64

func (id RecordID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Identifier selects a record by ID, title or DOI. Resolution order is ID > title > DOI.
type Identifier struct {
	RecID RecordID
	DOI   string
	Title string
}

// Empty reports whether no lookup key was provided.
func (i Identifier) Empty() bool {
	return i.RecID == 0 && i.DOI == "" && i.Title == ""
}

// ValidateRecID rejects non-positive record IDs.
func ValidateRecID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("recid should be a positive integer: %w", errutils.ErrValidation)
	}
	return nil
}

// FileEntry is a single remote file as reported by the catalog.
type FileEntry struct {
	URI      string `json:"uri" yaml:"uri"`
	Size     int64  `json:"size" yaml:"size"`
	Checksum string `json:"checksum" yaml:"checksum"`
}

// Name returns the final path segment of the entry's URI.
func (f FileEntry) Name() string {
	return path.Base(f.URI)
}

// IsJSONIndex reports whether the entry is a JSON file index.
func (f FileEntry) IsJSONIndex() bool {
	return strings.HasSuffix(f.URI, JSONIndexSuffix)
}

// IsTextIndex reports whether the entry is a legacy text file index.
func (f FileEntry) IsTextIndex() bool {
	return strings.HasSuffix(f.URI, TextIndexSuffix)
}

// Record is a normalized catalog record.
type Record struct {
	ID RecordID
	// Document is the full normalized JSON document, as returned by get-metadata.
	Document map[string]interface{}
	Files    []FileEntry
}

// Metadata returns the record's metadata object, or nil when absent.
func (r *Record) Metadata() map[string]interface{} {
	if r == nil || r.Document == nil {
		return nil
	}
	md, _ := r.Document["metadata"].(map[string]interface{})
	return md
}

// LocalFileInfo describes a file found in a download directory.
type LocalFileInfo struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}
