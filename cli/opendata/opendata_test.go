package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/model"
	"github.com/glorpus-work/opendata/test/testutil"
)

const testRecID = 3005

// portal is a fake catalog holding record 3005 with three files and a
// workspace directory the downloads land in.
type portal struct {
	srv     *testutil.CatalogServer
	cfgPath string
	workDir string
	files   []model.FileEntry
}

func newPortal(t *testing.T) *portal {
	t.Helper()
	srv := testutil.NewCatalogServer(t)

	files := []model.FileEntry{
		srv.AddFile("/eos/opendata/cms/3005/events_1.root", bytes.Repeat([]byte("a"), 4096)),
		srv.AddFile("/eos/opendata/cms/3005/events_2.root", bytes.Repeat([]byte("b"), 2048)),
		srv.AddFile("/eos/opendata/cms/3005/readme.txt", []byte("hello open data\n")),
	}
	srv.AddRecord(testRecID, "Higgs-to-four-lepton analysis example using 2011-2012 data", "10.7483/OPENDATA.CMS.JKB8.RR42", files, map[string]interface{}{
		"experiment": "CMS",
		"authors": []interface{}{
			map[string]interface{}{"name": "Jomhari, Nur Zulaiha", "orcid": "0000-0001-9127-7408"},
			map[string]interface{}{"name": "Geiser, Achim"},
		},
	})

	root := t.TempDir()
	cfgPath := filepath.Join(root, "config.yaml")
	yamlContent := "settings:\n" +
		"  server: " + srv.URL + "\n" +
		"  catalog_timeout: 5s\n" +
		"  http_timeout: 5s\n" +
		"  retry_limit: 3\n" +
		"  retry_sleep: 10ms\n" +
		"  engine: http\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlContent), 0o600))

	workDir := filepath.Join(root, "work")
	require.NoError(t, os.MkdirAll(workDir, 0o755))
	testutil.Chdir(t, workDir)

	return &portal{srv: srv, cfgPath: cfgPath, workDir: workDir, files: files}
}

// run executes the root command and returns what it wrote to stdout and stderr.
func (p *portal) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", p.cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (p *portal) fileRequests() []string {
	var out []string
	for _, r := range p.srv.Requests() {
		if strings.Contains(r, "/eos/") {
			out = append(out, r)
		}
	}
	return out
}

func TestDownloadAndVerify(t *testing.T) {
	p := newPortal(t)

	out, _, err := p.run(t, "download-files", "--recid", "3005")
	require.NoError(t, err)
	assert.Contains(t, out, "==> Downloading file 1 of 3")
	assert.Contains(t, out, "==> Downloading file 3 of 3")
	assert.Contains(t, out, "==> Success!")

	for _, f := range p.files {
		info, err := os.Stat(filepath.Join(p.workDir, "3005", f.Name()))
		require.NoError(t, err)
		assert.Equal(t, f.Size, info.Size())
	}

	out, _, err = p.run(t, "verify-files", "--recid", "3005")
	require.NoError(t, err)
	assert.Contains(t, out, "==> Verifying file events_1.root")
	assert.Contains(t, out, "==> Success!")
}

func TestDownload_SecondRunSkipsCompleteFiles(t *testing.T) {
	p := newPortal(t)

	_, _, err := p.run(t, "download-files", "--recid", "3005")
	require.NoError(t, err)
	first := len(p.fileRequests())

	_, _, err = p.run(t, "download-files", "--recid", "3005")
	require.NoError(t, err)
	for _, r := range p.fileRequests()[first:] {
		assert.True(t, strings.HasPrefix(r, "HEAD "), "unexpected transfer %s", r)
	}
}

func TestDownload_Filters(t *testing.T) {
	p := newPortal(t)

	_, _, err := p.run(t, "download-files", "--recid", "3005", "--filter-regexp", `\.root$`, "--filter-range", "2-2")
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(p.workDir, "3005"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "events_2.root", entries[0].Name())
}

func TestDownload_DryRun(t *testing.T) {
	p := newPortal(t)

	out, _, err := p.run(t, "download-files", "--recid", "3005", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "events_1.root")
	assert.NotContains(t, out, "Success")
	assert.Empty(t, p.fileRequests())
}

func TestDownload_RetriesErrorPage(t *testing.T) {
	p := newPortal(t)
	p.srv.InjectErrorPages("/eos/opendata/cms/3005/readme.txt", 2)

	_, _, err := p.run(t, "download-files", "--recid", "3005", "--filter-name", "readme.txt")
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(p.workDir, "3005", "readme.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello open data\n", string(content))
}

func TestDownload_RetriesExhausted(t *testing.T) {
	p := newPortal(t)
	p.srv.InjectErrorPages("/eos/opendata/cms/3005/readme.txt", 10)

	_, _, err := p.run(t, "download-files", "--recid", "3005", "--filter-name", "readme.txt", "--retry-limit", "2")
	require.Error(t, err)
	assert.ErrorIs(t, err, errutils.ErrRetriesExhausted)
	assert.Equal(t, errutils.ExitFailure, errutils.ExitCode(err))
}

func TestDownload_InvalidInputDoesNotTouchNetwork(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"zero recid", []string{"download-files", "--recid", "0"}, errutils.ExitUsage},
		{"non-numeric recid", []string{"download-files", "--recid", "abc"}, errutils.ExitUsage},
		{"fractional recid", []string{"get-file-locations", "--recid", "1.5"}, errutils.ExitUsage},
		{"non-numeric retry limit", []string{"download-files", "--recid", "3005", "--retry-limit", "many"}, errutils.ExitUsage},
		{"bad server", []string{"download-files", "--recid", "3005", "--server", "opendata.cern.ch"}, errutils.ExitUsage},
		{"bad range", []string{"download-files", "--recid", "3005", "--filter-range", "0-3"}, errutils.ExitUsage},
		{"bad retry limit", []string{"download-files", "--recid", "3005", "--retry-limit", "0"}, errutils.ExitUsage},
		{"unknown engine", []string{"download-files", "--recid", "3005", "--download-engine", "wget"}, errutils.ExitUsage},
		{"incompatible engine", []string{"download-files", "--recid", "3005", "--download-engine", "xrootd", "--protocol", "http"}, errutils.ExitFailure},
		{"missing identifier", []string{"download-files"}, errutils.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPortal(t)
			_, _, err := p.run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, errutils.ExitCode(err), err.Error())
			assert.Empty(t, p.srv.Requests())
		})
	}
}

func TestVerify_NoLocalFiles(t *testing.T) {
	p := newPortal(t)

	_, _, err := p.run(t, "verify-files", "--recid", "3005")
	require.Error(t, err)
	assert.ErrorIs(t, err, errutils.ErrNoLocalFiles)
	assert.Contains(t, err.Error(), "no local files found for record 3005")
}

func TestVerify_DetectsCorruption(t *testing.T) {
	p := newPortal(t)

	_, _, err := p.run(t, "download-files", "--recid", "3005")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(p.workDir, "3005", "readme.txt"), []byte("hello open dat?\n"), 0o644))

	_, _, err = p.run(t, "verify-files", "--recid", "3005")
	require.Error(t, err)
	assert.ErrorIs(t, err, errutils.ErrChecksumMismatch)
}

func TestGetMetadata(t *testing.T) {
	p := newPortal(t)

	out, _, err := p.run(t, "get-metadata", "--recid", "3005")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Higgs-to-four-lepton analysis example using 2011-2012 data"`)

	out, _, err = p.run(t, "get-metadata", "--recid", "3005", "--output-value", "authors.name")
	require.NoError(t, err)
	assert.Contains(t, out, "Jomhari, Nur Zulaiha")
	assert.Contains(t, out, "Geiser, Achim")

	out, _, err = p.run(t, "get-metadata", "--recid", "3005", "--output-value", "authors.orcid", "--filter", "name=Jomhari, Nur Zulaiha")
	require.NoError(t, err)
	assert.Equal(t, "0000-0001-9127-7408\n", out)
}

func TestGetMetadata_ByTitleAndDOI(t *testing.T) {
	p := newPortal(t)

	out, _, err := p.run(t, "get-metadata", "--doi", "10.7483/OPENDATA.CMS.JKB8.RR42", "--output-value", "experiment")
	require.NoError(t, err)
	assert.Equal(t, "CMS\n", out)

	_, _, err = p.run(t, "get-metadata", "--title", "no such record")
	require.Error(t, err)
	assert.Equal(t, errutils.ExitUsage, errutils.ExitCode(err))
}

func TestGetMetadata_Errors(t *testing.T) {
	p := newPortal(t)

	_, _, err := p.run(t, "get-metadata", "--recid", "3005", "--output-value", "authors.name", "--filter", "name")
	require.Error(t, err)
	assert.ErrorIs(t, err, errutils.ErrInvalidFilter)

	_, _, err = p.run(t, "get-metadata", "--recid", "3005", "--output-value", "authors.name", "--filter", "name=Nobody")
	require.Error(t, err)
	assert.ErrorIs(t, err, errutils.ErrNotFound)
	assert.Equal(t, errutils.ExitFailure, errutils.ExitCode(err))
}

func TestGetFileLocations(t *testing.T) {
	p := newPortal(t)

	out, _, err := p.run(t, "get-file-locations", "--recid", "3005")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, p.srv.URL+"/eos/opendata/cms/3005/events_1.root", lines[0])

	out, _, err = p.run(t, "get-file-locations", "--recid", "3005", "--protocol", "xrootd")
	require.NoError(t, err)
	assert.Contains(t, out, "root://eospublic.cern.ch//eos/opendata/cms/3005/readme.txt")
}

func TestGetFileLocations_ExpandsIndex(t *testing.T) {
	p := newPortal(t)
	chunk := p.srv.AddFile("/eos/opendata/cms/3006/chunk.root", []byte("chunk"))
	index := model.FileEntry{URI: testutil.FileURI("/eos/opendata/cms/3006/data_file_index.json"), Size: 10, Checksum: "adler32:00000001"}
	p.srv.AddRecord(3006, "Indexed record", "10.0/indexed", []model.FileEntry{index}, nil)
	p.srv.AddIndex(3006, "data_file_index.json", []model.FileEntry{chunk})

	out, _, err := p.run(t, "get-file-locations", "--recid", "3006")
	require.NoError(t, err)
	assert.Equal(t, p.srv.URL+"/eos/opendata/cms/3006/chunk.root\n", out)

	out, _, err = p.run(t, "get-file-locations", "--recid", "3006", "--no-expand")
	require.NoError(t, err)
	assert.Equal(t, p.srv.URL+"/eos/opendata/cms/3006/data_file_index.json\n", out)
}

func TestSearch(t *testing.T) {
	p := newPortal(t)

	out, _, err := p.run(t, "search", "--q", "higgs", "--experiment", "CMS")
	require.NoError(t, err)
	assert.Contains(t, out, "3005")
	assert.Contains(t, out, "Found 1 record(s)")

	_, _, err = p.run(t, "search", "--q", "no such analysis")
	require.Error(t, err)
	assert.Equal(t, errutils.ExitUsage, errutils.ExitCode(err))
}

func TestVersion(t *testing.T) {
	p := newPortal(t)

	out, _, err := p.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "opendata version")

	_, _, err = p.run(t, "version", "--check-min", "0.0.1")
	require.NoError(t, err)

	_, _, err = p.run(t, "version", "--check-min", "99.0.0")
	assert.ErrorIs(t, err, errutils.ErrVersionTooOld)
}

func TestConfigSetGet(t *testing.T) {
	p := newPortal(t)

	_, _, err := p.run(t, "config", "set", "retry_limit", "7")
	require.NoError(t, err)

	out, _, err := p.run(t, "config", "get", "retry_limit")
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)

	_, _, err = p.run(t, "config", "set", "protocol", "ftp")
	assert.ErrorIs(t, err, errutils.ErrConfigValidation)
}
