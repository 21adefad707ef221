// Package airtable implements the record store on top of the Airtable REST API.
package airtable

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

	"go.uber.org/zap"

	"github.com/aether-community/backend/internal/store"
)

// DefaultBaseURL is the public Airtable API endpoint.
const DefaultBaseURL = "https://api.airtable.com/v0"

const pageSize = 100

// Tables names the Airtable tables backing each entity.
type Tables struct {
	Members   string
	Events    string
	RSVPs     string
	Resources string
	Updates   string
	Support   string
}

// Config holds Airtable connection settings.
type Config struct {
	APIKey  string
	BaseID  string
	BaseURL string        // empty = DefaultBaseURL
	Timeout time.Duration // per request; zero = 10s
	Tables  Tables
}

// Client is a store.Store backed by one Airtable base.
type Client struct {
	http    *http.Client
	cfg     Config
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

var _ store.Store = (*Client)(nil)

// New creates an Airtable client.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		baseURL: base + "/" + url.PathEscape(cfg.BaseID),
		logger:  logger,
		now:     time.Now,
	}
}

type record struct {
	ID          string         `json:"id,omitempty"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Fields      map[string]any `json:"fields"`
}

type writeRequest struct {
	Fields   map[string]any `json:"fields"`
	Typecast bool           `json:"typecast"`
}

type listResponse struct {
	Records []record `json:"records"`
	Offset  string   `json:"offset"`
}

// errorBody covers both {"error":"NOT_FOUND"} and {"error":{"type":..,"message":..}}.
type errorBody struct {
	Error json.RawMessage `json:"error"`
}

func (c *Client) tableURL(table string, id string) string {
	u := c.baseURL + "/" + url.PathEscape(table)
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	return u
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("airtable request failed", zap.String("method", method), zap.Error(err))
		return store.WrapTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return store.WrapTransport(fmt.Errorf("read response: %w", err))
	}
	c.logger.Debug("airtable request",
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return store.NewStatusError(resp.StatusCode, errorMessage(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &store.StoreError{StatusCode: resp.StatusCode, Kind: store.KindUnexpected, Message: "decode response", Err: err}
	}
	return nil
}

func errorMessage(raw []byte) string {
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil || len(eb.Error) == 0 {
		return strings.TrimSpace(string(raw))
	}
	var s string
	if json.Unmarshal(eb.Error, &s) == nil {
		return s
	}
	var obj struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if json.Unmarshal(eb.Error, &obj) == nil {
		if obj.Message != "" {
			return obj.Type + ": " + obj.Message
		}
		return obj.Type
	}
	return string(eb.Error)
}

// list returns every record of table matching formula, following offsets.
// limit <= 0 means no limit.
func (c *Client) list(ctx context.Context, table, formula string, sortField string, limit int) ([]record, error) {
	var out []record
	offset := ""
	for {
		q := url.Values{}
		q.Set("pageSize", strconv.Itoa(pageSize))
		if formula != "" {
			q.Set("filterByFormula", formula)
		}
		if sortField != "" {
			q.Set("sort[0][field]", sortField)
			q.Set("sort[0][direction]", "asc")
		}
		if limit > 0 {
			q.Set("maxRecords", strconv.Itoa(limit))
		}
		if offset != "" {
			q.Set("offset", offset)
		}
		var page listResponse
		if err := c.do(ctx, http.MethodGet, c.tableURL(table, ""), q, nil, &page); err != nil {
			return nil, fmt.Errorf("list %s: %w", table, err)
		}
		out = append(out, page.Records...)
		if page.Offset == "" || (limit > 0 && len(out) >= limit) {
			return out, nil
		}
		offset = page.Offset
	}
}

func (c *Client) findOne(ctx context.Context, table, formula string) (*record, error) {
	recs, err := c.list(ctx, table, formula, "", 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, store.ErrNotFound
	}
	return &recs[0], nil
}

func (c *Client) create(ctx context.Context, table string, fields map[string]any) (*record, error) {
	var rec record
	if err := c.do(ctx, http.MethodPost, c.tableURL(table, ""), nil, writeRequest{Fields: fields, Typecast: true}, &rec); err != nil {
		return nil, fmt.Errorf("create %s record: %w", table, err)
	}
	return &rec, nil
}

func (c *Client) update(ctx context.Context, table, id string, fields map[string]any) (*record, error) {
	var rec record
	if err := c.do(ctx, http.MethodPatch, c.tableURL(table, id), nil, writeRequest{Fields: fields, Typecast: true}, &rec); err != nil {
		return nil, fmt.Errorf("update %s record %s: %w", table, id, err)
	}
	return &rec, nil
}

// quote renders s as an Airtable formula string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

func eq(field, value string) string {
	return "{" + field + "} = " + quote(value)
}
