package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"nemt_portal_backend/platform/logger"
)

const maxResponseBody = 1 << 20

type payloadGuest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Locale      string `json:"locale"`
}

type payloadPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type payloadScheduling struct {
	PickupTime string `json:"pickup_time"`
}

type payloadDeferred struct {
	PickupDay string `json:"pickup_day"`
}

type payloadContact struct {
	PhoneNumber string `json:"phone_number"`
}

// Payload is the JSON body posted to the dispatch webhook.
type Payload struct {
	ClientID             string            `json:"client_id"`
	RideType             string            `json:"ride_type"`
	Guest                payloadGuest      `json:"guest"`
	NoteForDriver        string            `json:"note_for_driver"`
	FareID               string            `json:"fare_id"`
	Pickup               payloadPoint      `json:"pickup"`
	Dropoff              payloadPoint      `json:"dropoff"`
	Stops                []payloadPoint    `json:"stops"`
	ProductID            string            `json:"product_id"`
	Scheduling           payloadScheduling `json:"scheduling"`
	DeferredRideOptions  payloadDeferred   `json:"deferred_ride_options"`
	NotificationContacts []payloadContact  `json:"notification_contacts"`
}

// DispatchResponse is the raw answer of the dispatch webhook.
type DispatchResponse struct {
	StatusCode int
	Body       []byte
}

// Dispatcher sends a payload to the ride dispatch service.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload Payload) (DispatchResponse, error)
}

// WebhookDispatcher posts payloads to the dispatch webhook over HTTP.
type WebhookDispatcher struct {
	httpClient *http.Client
	url        string
	apiKey     string
	log        *logger.Logger
}

// NewWebhookDispatcher creates a dispatcher for url. apiKey is optional.
func NewWebhookDispatcher(url, apiKey string, timeout time.Duration, log *logger.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		apiKey:     apiKey,
		log:        log,
	}
}

// Dispatch performs one POST. Transport failures return an error; any HTTP
// answer, successful or not, is returned as a DispatchResponse.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, payload Payload) (DispatchResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return DispatchResponse{}, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return DispatchResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if d.apiKey != "" {
		req.Header.Set("X-API-Key", d.apiKey)
	}

	started := time.Now()
	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.log.WebhookCall("dispatch", 0, time.Since(started), err)
		return DispatchResponse{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		d.log.WebhookCall("dispatch", resp.StatusCode, time.Since(started), err)
		return DispatchResponse{}, fmt.Errorf("read response: %w", err)
	}

	d.log.WebhookCall("dispatch", resp.StatusCode, time.Since(started), nil)
	return DispatchResponse{StatusCode: resp.StatusCode, Body: raw}, nil
}

var _ Dispatcher = (*WebhookDispatcher)(nil)
