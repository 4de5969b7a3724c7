// Package testutil provides a fake open data portal for tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glorpus-work/opendata/internal/logger"
	"github.com/glorpus-work/opendata/pkg/model"
	"github.com/glorpus-work/opendata/pkg/verify"
)

// ErrorPage is the body served instead of a file while an error page is injected.
// Its size and checksum are the default error page fingerprint.
var ErrorPage = []byte{}

// CatalogServer is an in-process catalog API and file server.
type CatalogServer struct {
	*httptest.Server

	mu         sync.Mutex
	records    map[int64]map[string]interface{}
	indexes    map[string][]model.FileEntry
	files      map[string][]byte
	errorPages map[string]int
	requests   []string
}

// NewCatalogServer starts a fake catalog that is closed when the test ends.
func NewCatalogServer(t *testing.T) *CatalogServer {
	t.Helper()
	s := &CatalogServer{
		records:    map[int64]map[string]interface{}{},
		indexes:    map[string][]model.FileEntry{},
		files:      map[string][]byte{},
		errorPages: map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// FileURI returns the storage federation URI of a file stored under path.
func FileURI(path string) string {
	return model.ServerRootURI + "/" + strings.TrimPrefix(path, "/")
}

// AddFile stores content under path and returns the matching catalog entry.
func (s *CatalogServer) AddFile(path string, content []byte) model.FileEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	path = "/" + strings.TrimPrefix(path, "/")
	s.files[path] = content
	sum, _ := verify.ChecksumReader(bytes.NewReader(content))
	return model.FileEntry{URI: FileURI(path), Size: int64(len(content)), Checksum: sum}
}

// AddRecord registers a record with the given title, DOI and file entries.
// Extra metadata fields can be passed in extra.
func (s *CatalogServer) AddRecord(recid int64, title, doi string, files []model.FileEntry, extra map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fileObjs := make([]interface{}, 0, len(files))
	for _, f := range files {
		fileObjs = append(fileObjs, map[string]interface{}{
			"uri":        f.URI,
			"size":       f.Size,
			"checksum":   f.Checksum,
			"key":        f.Name(),
			"bucket":     "bucket-" + strconv.FormatInt(recid, 10),
			"version_id": "version-1",
		})
	}
	metadata := map[string]interface{}{
		"recid":  strconv.FormatInt(recid, 10),
		"title":  title,
		"doi":    doi,
		"files":  fileObjs,
		"_files": fileObjs,
	}
	for k, v := range extra {
		metadata[k] = v
	}
	s.records[recid] = map[string]interface{}{
		"id":       strconv.FormatInt(recid, 10),
		"metadata": metadata,
	}
}

// AddIndex registers the secondary listing served for a file index of a record.
func (s *CatalogServer) AddIndex(recid int64, name string, files []model.FileEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes[strconv.FormatInt(recid, 10)+"/"+name] = files
}

// InjectErrorPages makes the next n downloads of path return the error page.
func (s *CatalogServer) InjectErrorPages(path string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorPages["/"+strings.TrimPrefix(path, "/")] = n
}

// Requests returns "METHOD path" for every request served so far.
func (s *CatalogServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *CatalogServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
	s.mu.Unlock()

	p := r.URL.Path
	switch {
	case p == "/api/records":
		s.handleSearch(w, r)
	case strings.HasPrefix(p, "/api/records/"):
		s.handleRecordAPI(w, strings.TrimPrefix(p, "/api/records/"))
	case strings.HasPrefix(p, "/record/"):
		s.handleRecordPage(w, strings.TrimPrefix(p, "/record/"))
	default:
		s.handleFile(w, r)
	}
}

func (s *CatalogServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	field, value := "", q
	if f, v, ok := strings.Cut(q, ":"); ok && (f == "title" || f == "doi") {
		field, value = f, strings.Trim(v, `"`)
	}

	s.mu.Lock()
	hits := []interface{}{}
	for id, rec := range s.records {
		md := rec["metadata"].(map[string]interface{})
		match := false
		switch field {
		case "":
			title, _ := md["title"].(string)
			match = strings.Contains(strings.ToLower(title), strings.ToLower(value))
		default:
			match = md[field] == value
		}
		if match {
			hits = append(hits, map[string]interface{}{"id": id, "metadata": md})
		}
	}
	s.mu.Unlock()

	writeJSON(w, map[string]interface{}{
		"hits": map[string]interface{}{"total": len(hits), "hits": hits},
	})
}

func (s *CatalogServer) handleRecordAPI(w http.ResponseWriter, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	s.mu.Lock()
	rec, ok := s.records[id]
	s.mu.Unlock()
	if err != nil || !ok {
		http.NotFound(w, nil)
		return
	}
	writeJSON(w, rec)
}

func (s *CatalogServer) handleRecordPage(w http.ResponseWriter, rest string) {
	idStr, name, isFile := strings.Cut(rest, "/files/")
	id, err := strconv.ParseInt(idStr, 10, 64)

	s.mu.Lock()
	_, ok := s.records[id]
	files, hasIndex := s.indexes[idStr+"/"+name]
	s.mu.Unlock()

	switch {
	case err != nil || !ok:
		http.NotFound(w, nil)
	case !isFile:
		_, _ = fmt.Fprintf(w, "<html><body>record %d</body></html>", id)
	case hasIndex:
		writeJSON(w, files)
	default:
		http.NotFound(w, nil)
	}
}

func (s *CatalogServer) handleFile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	content, ok := s.files[r.URL.Path]
	serveError := r.Method == http.MethodGet && s.errorPages[r.URL.Path] > 0
	if serveError {
		s.errorPages[r.URL.Path]--
	}
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if serveError {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(ErrorPage)
		return
	}
	http.ServeContent(w, r, filepath.Base(r.URL.Path), time.Time{}, bytes.NewReader(content))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode test response", logger.Fields{"error": err})
	}
}

// Chdir switches the working directory for the duration of the test.
func Chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}
