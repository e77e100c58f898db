// Package datastore reads client, address, contract and signature records
// from the external tabular datastore.
package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nemt_portal_backend/platform/config"
	"nemt_portal_backend/platform/logger"
)

const (
	pageSize     = 100
	maxPages     = 200
	maxErrorBody = 256
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// Record is one raw datastore row.
type Record struct {
	ID          string    `json:"id"`
	CreatedTime time.Time `json:"createdTime"`
	Fields      Fields    `json:"fields"`
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

// Client is the HTTP client for the datastore REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	tables     config.DatastoreTables
	log        *logger.Logger
}

// New creates a datastore client.
func New(cfg config.DatastoreConfig, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.GetDatastoreURL(), "/"),
		apiKey:     cfg.GetDatastoreAPIKey(),
		tables:     cfg.GetDatastoreTables(),
		log:        log,
	}
}

// listRecords follows offsets until the table is exhausted.
func (c *Client) listRecords(ctx context.Context, table string) ([]Record, error) {
	var all []Record
	offset := ""

	for page := 0; page < maxPages; page++ {
		params := url.Values{}
		params.Set("pageSize", fmt.Sprint(pageSize))
		if offset != "" {
			params.Set("offset", offset)
		}

		var resp listResponse
		reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(table), params.Encode())
		if err := c.get(ctx, reqURL, &resp); err != nil {
			return nil, fmt.Errorf("list %s: %w", table, err)
		}

		all = append(all, resp.Records...)
		if resp.Offset == "" {
			return all, nil
		}
		offset = resp.Offset
	}

	return nil, fmt.Errorf("list %s: more than %d pages", table, maxPages)
}

func (c *Client) getRecord(ctx context.Context, table, id string) (Record, error) {
	var rec Record
	reqURL := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(table), url.PathEscape(id))
	if err := c.get(ctx, reqURL, &rec); err != nil {
		return Record{}, fmt.Errorf("get %s/%s: %w", table, id, err)
	}
	return rec, nil
}

func (c *Client) get(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("datastore request failed", "error", err)
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Error("datastore upstream error", "status", resp.StatusCode)
		return fmt.Errorf("upstream error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
