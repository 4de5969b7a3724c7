package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/model"
)

// Internal storage fields removed from every record.
var (
	deniedMetadataFields = []string{"_files"}
	deniedFileFields     = []string{"bucket", "version_id"}
)

// Normalize strips internal storage fields from a raw record document and extracts
// its file list. The input is not modified. A missing or null files list becomes empty.
func Normalize(raw map[string]interface{}) (*model.Record, error) {
	doc, _ := cloneValue(raw).(map[string]interface{})
	if doc == nil {
		return nil, fmt.Errorf("empty record document: %w", errutils.ErrInvalidRecord)
	}

	metadata, ok := doc["metadata"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("record has no metadata: %w", errutils.ErrInvalidRecord)
	}
	for _, key := range deniedMetadataFields {
		delete(metadata, key)
	}

	files, _ := metadata["files"].([]interface{})
	if files == nil {
		files = []interface{}{}
	}
	for _, f := range files {
		if entry, ok := f.(map[string]interface{}); ok {
			for _, key := range deniedFileFields {
				delete(entry, key)
			}
		}
	}
	metadata["files"] = files

	entries, err := fileEntries(files)
	if err != nil {
		return nil, err
	}

	return &model.Record{
		ID:       recordID(doc),
		Document: doc,
		Files:    entries,
	}, nil
}

func fileEntries(files []interface{}) ([]model.FileEntry, error) {
	data, err := json.Marshal(files)
	if err != nil {
		return nil, errutils.Wrap(err, "encode file list")
	}
	entries := []model.FileEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("malformed file list: %w: %w", errutils.ErrInvalidRecord, err)
	}
	return entries, nil
}

func recordID(doc map[string]interface{}) model.RecordID {
	var s string
	switch v := doc["id"].(type) {
	case json.Number:
		s = v.String()
	case string:
		s = v
	case float64:
		return model.RecordID(v)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return model.RecordID(id)
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
