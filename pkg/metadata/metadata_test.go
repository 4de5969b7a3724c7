package metadata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/opendata/pkg/errutils"
)

const sampleMetadata = `{
	"recid": "451",
	"title": "Configuration file for LHE step HIG-Summer11pLHE-00114_1_cfg.py",
	"authors": [
		{"name": "Plagge, Michael", "affiliation": "CERN", "ccid": "CCID-722528"},
		{"name": "Someone, Else", "affiliation": "CERN", "ccid": "CCID-000001"},
		{"name": "Far, Away", "affiliation": "Fermilab"}
	],
	"usage": {
		"links": [
			{"description": "Getting started with CMS open data", "url": "/docs/cms-getting-started-2010"},
			{"description": "How to install the CMS Virtual Machine", "url": "/docs/cms-virtual-machine-2010"},
			{"url": "/docs/no-description"}
		]
	},
	"distribution": {"number_files": 1, "size": 3644}
}`

func loadSample(t *testing.T) map[string]any {
	t.Helper()
	var md map[string]any
	require.NoError(t, json.Unmarshal([]byte(sampleMetadata), &md))
	return md
}

func TestSelect_Path(t *testing.T) {
	md := loadSample(t)

	tests := []struct {
		name        string
		outputValue string
		want        any
	}{
		{"top level", "title", "Configuration file for LHE step HIG-Summer11pLHE-00114_1_cfg.py"},
		{"nested", "distribution.number_files", float64(1)},
		{"array elementwise", "authors.name", []any{"Plagge, Michael", "Someone, Else", "Far, Away"}},
		{"array skips missing", "usage.links.description", []any{
			"Getting started with CMS open data",
			"How to install the CMS Virtual Machine",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(md, tt.outputValue, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelect_WholeDocument(t *testing.T) {
	md := loadSample(t)
	got, err := Select(md, "", nil)
	require.NoError(t, err)
	assert.Equal(t, md, got)
}

func TestSelect_MissingField(t *testing.T) {
	md := loadSample(t)
	_, err := Select(md, "distribution.missing", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errutils.ErrNotFound)
	assert.Contains(t, err.Error(), "field 'missing' is not present in metadata")
	assert.Equal(t, errutils.ExitFailure, errutils.ExitCode(err))
}

func TestSelect_Filter(t *testing.T) {
	md := loadSample(t)

	got, err := Select(md, "usage.links.description", []string{"url=/docs/cms-getting-started-2010"})
	require.NoError(t, err)
	assert.Equal(t, "Getting started with CMS open data", got)
}

func TestSelect_FiltersAreCombined(t *testing.T) {
	md := loadSample(t)

	got, err := Select(md, "authors.name", []string{"affiliation=CERN", "ccid=CCID-722528"})
	require.NoError(t, err)
	assert.Equal(t, "Plagge, Michael", got)

	got, err = Select(md, "authors.name", []string{"affiliation=CERN"})
	require.NoError(t, err)
	assert.Equal(t, []any{"Plagge, Michael", "Someone, Else"}, got)
}

func TestSelect_FilterReturnsObjectWithoutField(t *testing.T) {
	md := loadSample(t)

	got, err := Select(md, "usage.links.description", []string{"url=/docs/no-description"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"url": "/docs/no-description"}, got)
}

func TestSelect_FilterErrors(t *testing.T) {
	md := loadSample(t)

	tests := []struct {
		name        string
		outputValue string
		filters     []string
		wantErr     error
		wantMsg     string
	}{
		{
			name:        "no separator",
			outputValue: "usage.links.description",
			filters:     []string{"url"},
			wantErr:     errutils.ErrInvalidFilter,
			wantMsg:     "Use --filter some_field_name=some_value",
		},
		{
			name:        "unknown field",
			outputValue: "usage.links.description",
			filters:     []string{"link=/docs/cms-getting-started-2010"},
			wantErr:     errutils.ErrNotFound,
			wantMsg:     "field 'link' is not present in metadata",
		},
		{
			name:        "no match",
			outputValue: "usage.links.description",
			filters:     []string{"url=/docs/cms-getting-started-20"},
			wantErr:     errutils.ErrNotFound,
			wantMsg:     "no objects found with url=/docs/cms-getting-started-20",
		},
		{
			name:        "second filter narrows to nothing",
			outputValue: "authors.name",
			filters:     []string{"affiliation=CERN", "ccid=CCID-999999"},
			wantErr:     errutils.ErrNotFound,
			wantMsg:     "no objects found with ccid=CCID-999999",
		},
		{
			name:        "container is not an array",
			outputValue: "distribution.size",
			filters:     []string{"size=3644"},
			wantErr:     errutils.ErrNotFound,
			wantMsg:     "field 'distribution' is not present in metadata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Select(md, tt.outputValue, tt.filters)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Equal(t, errutils.ExitFailure, errutils.ExitCode(err))
		})
	}
}

func TestSelect_FilterWithoutOutputValue(t *testing.T) {
	_, err := Select(loadSample(t), "", []string{"a=b"})
	assert.ErrorIs(t, err, errutils.ErrValidation)
}

func TestOutputFields(t *testing.T) {
	doc := map[string]any{"id": float64(3005), "metadata": map[string]any{}, "created": "2020"}

	got, err := OutputFields(doc, []string{"id", " created "})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": float64(3005), "created": "2020"}, got)

	_, err = OutputFields(doc, []string{"links"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errutils.ErrNotFound)
	assert.Contains(t, err.Error(), "created, id, metadata")
}

func TestFormat(t *testing.T) {
	s, err := Format("plain <text>")
	require.NoError(t, err)
	assert.Equal(t, "plain <text>", s)

	s, err = Format(map[string]any{"url": "/docs/a&b"})
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"url\": \"/docs/a&b\"\n}", s)
}
