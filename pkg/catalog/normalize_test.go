package catalog

import (
	"encoding/json"
	"testing"

	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &doc))
	return doc
}

func TestNormalize(t *testing.T) {
	raw := decode(t, `{
		"id": 5500,
		"metadata": {
			"title": "Higgs-to-four-lepton analysis example",
			"_files": [{"key": "x"}],
			"files": [
				{"uri": "root://eospublic.cern.ch//eos/opendata/cms/BuildFile.xml", "size": 305, "checksum": "adler32:ff63668a", "bucket": "b", "version_id": "v"}
			]
		}
	}`)

	rec, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, model.RecordID(5500), rec.ID)
	assert.Equal(t, []model.FileEntry{{
		URI:      "root://eospublic.cern.ch//eos/opendata/cms/BuildFile.xml",
		Size:     305,
		Checksum: "adler32:ff63668a",
	}}, rec.Files)

	md := rec.Metadata()
	assert.NotContains(t, md, "_files")
	assert.NotContains(t, md["files"].([]interface{})[0], "bucket")
	assert.NotContains(t, md["files"].([]interface{})[0], "version_id")

	assert.Contains(t, raw["metadata"], "_files", "input document must not be modified")
}

func TestNormalize_MissingFiles(t *testing.T) {
	for name, doc := range map[string]string{
		"absent": `{"id": "1", "metadata": {"title": "t"}}`,
		"null":   `{"id": "1", "metadata": {"files": null}}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec, err := Normalize(decode(t, doc))
			require.NoError(t, err)
			assert.NotNil(t, rec.Files)
			assert.Empty(t, rec.Files)
			assert.Equal(t, []interface{}{}, rec.Metadata()["files"])
			assert.Equal(t, model.RecordID(1), rec.ID)
		})
	}
}

func TestNormalize_Invalid(t *testing.T) {
	_, err := Normalize(nil)
	assert.ErrorIs(t, err, errutils.ErrInvalidRecord)

	_, err = Normalize(decode(t, `{"id": 1}`))
	assert.ErrorIs(t, err, errutils.ErrInvalidRecord)

	_, err = Normalize(decode(t, `{"id": 1, "metadata": {"files": [{"uri": 5}]}}`))
	assert.ErrorIs(t, err, errutils.ErrInvalidRecord)
}
