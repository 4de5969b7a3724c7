// Package catalog talks to the open data portal's REST API: record lookup by ID,
// DOI or title, record metadata, file index listings and free-text search.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/glorpus-work/opendata/internal/logger"
	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/model"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "opendata/1.0"

// Client is a read-only client for the catalog API.
type Client struct {
	server    string
	client    *http.Client
	userAgent string
}

// NewClient creates a catalog client for server with the given request timeout.
func NewClient(server string, timeout time.Duration, userAgent string) *Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		server:    strings.TrimRight(server, "/"),
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Server returns the base URL of the catalog.
func (c *Client) Server() string {
	return c.server
}

// SearchResult is the subset of the search response used by the client.
type SearchResult struct {
	Hits struct {
		Total int         `json:"total"`
		Hits  []SearchHit `json:"hits"`
	} `json:"hits"`
}

// SearchHit is one record returned by a search.
type SearchHit struct {
	ID       json.Number            `json:"id"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Title returns the hit's title, if any.
func (h SearchHit) Title() string {
	title, _ := h.Metadata["title"].(string)
	return title
}

// ResolveRecordID turns an identifier into a numeric record ID. An explicit ID is
// returned unchanged; a title or DOI must match exactly one record.
func (c *Client) ResolveRecordID(ctx context.Context, id model.Identifier) (model.RecordID, error) {
	var field, value string
	switch {
	case id.RecID != 0:
		return id.RecID, nil
	case id.Title != "":
		field, value = "title", id.Title
	case id.DOI != "":
		field, value = "doi", id.DOI
	default:
		return 0, errutils.ErrMissingIdentifier
	}

	q := field + ":" + quoteQueryValue(`"`+value+`"`)
	endpoint := c.server + "/api/records?page=1&size=1&q=" + q

	var result SearchResult
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return 0, err
	}

	switch total := result.Hits.Total; {
	case total < 1:
		return 0, errutils.ErrRecordNotFoundWithField(field)
	case total > 1:
		return 0, errutils.ErrAmbiguousRecordWithField(field)
	}
	if len(result.Hits.Hits) == 0 {
		return 0, errutils.Wrapf(errutils.ErrTransport, "search for %s reported one hit but returned none", field)
	}

	recid, err := strconv.ParseInt(result.Hits.Hits[0].ID.String(), 10, 64)
	if err != nil {
		return 0, errutils.Wrapf(errutils.ErrTransport, "unexpected record id %q", result.Hits.Hits[0].ID)
	}
	logger.Debug("Resolved record", logger.Fields{field: value, "recid": recid})
	return model.RecordID(recid), nil
}

// quoteQueryValue escapes v like a URL path segment would, so spaces become %20.
func quoteQueryValue(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

// VerifyRecordExists requests the record's landing page.
func (c *Client) VerifyRecordExists(ctx context.Context, id model.RecordID) error {
	resp, err := c.do(ctx, http.MethodGet, c.server+"/record/"+id.String())
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("record %s: HTTP %d: %w", id, resp.StatusCode, errutils.ErrInvalidRecord)
	}
	return nil
}

// FetchRecord downloads and normalizes the record's JSON document.
func (c *Client) FetchRecord(ctx context.Context, id model.RecordID) (*model.Record, error) {
	resp, err := c.do(ctx, http.MethodGet, c.server+"/api/records/"+id.String())
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("record %s: HTTP %d: %w", id, resp.StatusCode, errutils.ErrInvalidRecord)
	}

	raw, err := decodeDocument(resp.Body)
	if err != nil {
		return nil, errutils.Wrapf(errutils.ErrTransport, "decode record %s: %v", id, err)
	}
	record, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		record.ID = id
	}
	return record, nil
}

// GetRecord resolves the identifier, checks the record exists and fetches it.
func (c *Client) GetRecord(ctx context.Context, id model.Identifier) (*model.Record, error) {
	recid, err := c.ResolveRecordID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.VerifyRecordExists(ctx, recid); err != nil {
		return nil, err
	}
	return c.FetchRecord(ctx, recid)
}

// FetchFileIndex downloads the secondary file listing named by a file index entry.
func (c *Client) FetchFileIndex(ctx context.Context, id model.RecordID, name string) ([]model.FileEntry, error) {
	endpoint := c.server + "/record/" + id.String() + "/files/" + url.PathEscape(name)
	var files []model.FileEntry
	if err := c.getJSON(ctx, endpoint, &files); err != nil {
		return nil, errutils.Wrapf(err, "error occurred while fetching file info for %s", name)
	}
	return files, nil
}

// Search runs a free-text query against the catalog. Facets are "name:value"
// pairs such as "experiment:CMS" and are sent as repeated f parameters.
func (c *Client) Search(ctx context.Context, query string, page, size int, facets ...string) (*SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))
	for _, f := range facets {
		params.Add("f", f)
	}

	var result SearchResult
	if err := c.getJSON(ctx, c.server+"/api/records?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, http.NoBody)
	if err != nil {
		return nil, errutils.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	logger.Debug("Catalog request", logger.Fields{"method": method, "url": endpoint})
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, endpoint, errutils.ErrTransport, err)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, endpoint)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d: %w", resp.StatusCode, errutils.ErrTransport)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errutils.Wrap(err, "failed to read response body")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w: %w", endpoint, errutils.ErrTransport, err)
	}
	return nil
}

// decodeDocument decodes a JSON object keeping numbers as json.Number so the
// document can be printed back without losing precision.
func decodeDocument(r io.Reader) (map[string]interface{}, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}
