// Package lookup provides the HTTP clients for the zone and product/fare
// lookup webhooks used while a ride is being drafted.
package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nemt_portal_backend/platform/logger"
)

const maxErrorBody = 256

// StatusError is returned when a webhook answers with a non-2xx status.
type StatusError struct {
	Webhook    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s webhook returned status %d", e.Webhook, e.StatusCode)
	}
	return fmt.Sprintf("%s webhook returned status %d: %s", e.Webhook, e.StatusCode, e.Body)
}

type webhook struct {
	name       string
	url        string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

func newWebhook(name, url, apiKey string, timeout time.Duration, log *logger.Logger) webhook {
	return webhook{
		name:       name,
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// post sends body as JSON and decodes a 2xx answer into out.
func (w webhook) post(ctx context.Context, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", w.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if w.apiKey != "" {
		req.Header.Set("X-API-Key", w.apiKey)
	}

	started := time.Now()
	resp, err := w.httpClient.Do(req)
	if err != nil {
		w.log.WebhookCall(w.name, 0, time.Since(started), err)
		return fmt.Errorf("%s webhook unreachable: %w", w.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{Webhook: w.name, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		w.log.WebhookCall(w.name, resp.StatusCode, time.Since(started), statusErr)
		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		w.log.WebhookCall(w.name, resp.StatusCode, time.Since(started), err)
		return fmt.Errorf("decode %s response: %w", w.name, err)
	}

	w.log.WebhookCall(w.name, resp.StatusCode, time.Since(started), nil)
	return nil
}

// flexString accepts a JSON string, number or null and keeps its text form.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", trimmed)
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return fmt.Errorf("expected integer, got %q", s)
	}
	*f = flexInt(v)
	return nil
}
