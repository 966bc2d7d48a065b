package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/roster/internal/models"
)

const (
	// DefaultPageSize matches the backend's default limit.
	DefaultPageSize = 10

	cursorParam = "startAfter"
	limitParam  = "limit"
	cursorField = "nextPageToken"
	dataField   = "data"
)

// Collection fetches cursor-paginated pages of /api/<name>.
type Collection struct {
	api      *APIService
	name     string
	pageSize int
	logger   *log.Logger
}

// NewCollection creates a [Collection] for name. A non-positive pageSize uses [DefaultPageSize].
func NewCollection(api *APIService, name string, pageSize int) *Collection {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Collection{
		api:      api,
		name:     name,
		pageSize: pageSize,
		logger:   api.logger.With("collection", name),
	}
}

// Name returns the collection name, which is also its snapshot key.
func (c *Collection) Name() string {
	return c.name
}

// Path returns the collection endpoint path.
func (c *Collection) Path() string {
	return "/api/" + c.name
}

// ItemPath returns the endpoint for a single record.
func (c *Collection) ItemPath(id string) string {
	return c.Path() + "/" + url.PathEscape(id)
}

// FetchPage requests one page starting after cursor; a nil cursor requests the first page.
//
// Non-2xx responses and transport failures are errors. A response body of an unexpected shape
// is logged and returned as an empty page with a nil cursor.
func (c *Collection) FetchPage(ctx context.Context, cursor *string) (models.Page, error) {
	q := url.Values{}
	q.Set(limitParam, strconv.Itoa(c.pageSize))
	if cursor != nil {
		q.Set(cursorParam, *cursor)
	}

	resp, err := c.api.Get(ctx, c.Path()+"?"+q.Encode())
	if err != nil {
		return models.Page{}, err
	}
	if err := resp.Err(); err != nil {
		return models.Page{}, err
	}

	page, ok := decodePage(c.name, resp.Body)
	if !ok {
		c.logger.Warn("unexpected page shape, treating as end of list", "request_id", resp.RequestID)
	}

	c.logger.Debug("fetched page", "records", len(page.Records), "has_more", page.HasMore())
	return page, nil
}

// decodePage accepts a bare array or a {data|<collection>, nextPageToken} envelope.
//
// The boolean is false when the body matched neither shape.
func decodePage(collection string, body []byte) (models.Page, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return models.Page{}, false
	}

	if trimmed[0] == '[' {
		records, err := models.DecodeRecords(trimmed)
		if err != nil {
			return models.Page{}, false
		}
		return models.Page{Records: records}, true
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var envelope map[string]json.RawMessage
	if err := dec.Decode(&envelope); err != nil || envelope == nil {
		return models.Page{}, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return models.Page{}, false
	}

	raw, ok := envelope[dataField]
	if !ok {
		raw, ok = envelope[collection]
	}
	if !ok {
		return models.Page{}, false
	}

	records, err := models.DecodeRecords(raw)
	if err != nil {
		return models.Page{}, false
	}

	return models.Page{Records: records, NextCursor: decodeCursor(envelope[cursorField])}, true
}

// decodeCursor returns nil for a missing, null or empty token. Numeric tokens are kept verbatim.
func decodeCursor(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil
	}

	var token string
	switch t := v.(type) {
	case string:
		token = t
	case json.Number:
		token = t.String()
	default:
		return nil
	}

	if token == "" {
		return nil
	}
	return &token
}

// String implements [fmt.Stringer] for log output.
func (c *Collection) String() string {
	return fmt.Sprintf("%s (page size %d)", c.Path(), c.pageSize)
}
