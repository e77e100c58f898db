package submission

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nemt_portal_backend/platform/logger"
)

type dispatchServer struct {
	*httptest.Server
	calls    atomic.Int32
	mu       sync.Mutex
	payloads []Payload
}

func newDispatchServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *dispatchServer {
	t.Helper()
	ds := &dispatchServer{}
	ds.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ds.calls.Add(1)
		raw, _ := io.ReadAll(r.Body)
		var p Payload
		if err := json.Unmarshal(raw, &p); err == nil {
			ds.mu.Lock()
			ds.payloads = append(ds.payloads, p)
			ds.mu.Unlock()
		}
		handler(w, r)
	}))
	t.Cleanup(ds.Close)
	return ds
}

func (ds *dispatchServer) lastPayload(t *testing.T) Payload {
	t.Helper()
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if len(ds.payloads) == 0 {
		t.Fatal("dispatch webhook received no payload")
	}
	return ds.payloads[len(ds.payloads)-1]
}

func respondJSON(status int, body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func newTestPipeline(url string) *Pipeline {
	log := logger.Nop()
	return NewPipeline(NewMemoryGuard(), NewWebhookDispatcher(url, "key", 5*time.Second, log), log)
}

func baseRequest() Request {
	return Request{
		ClientID:     "recClient",
		ContactPhone: "(312) 555-0182",
		Guest: Guest{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			Phone:     "5551234567",
			Locale:    "Spanish",
		},
		FareID:    "fare-1",
		ProductID: "prod-1",
		Pickup:    Coordinate{Latitude: 41.88, Longitude: -87.63},
		Dropoff:   Coordinate{Latitude: 41.9, Longitude: -87.65},
		RideType:  RideTypeImmediate,
	}
}

func TestSubmitImmediateRide(t *testing.T) {
	ds := newDispatchServer(t, respondJSON(http.StatusOK, `{"status":"Success","message":"Ride booked"}`))
	p := newTestPipeline(ds.URL)

	result := p.Submit(context.Background(), baseRequest())
	if !result.Succeeded() {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.WebhookStatus != "Success" || result.WebhookMessage != "Ride booked" || result.Message != "Ride booked" {
		t.Fatalf("webhook fields not passed through: %+v", result)
	}

	payload := ds.lastPayload(t)
	if payload.Guest.PhoneNumber != "+15551234567" {
		t.Fatalf("expected E.164 guest phone, got %q", payload.Guest.PhoneNumber)
	}
	if payload.Scheduling.PickupTime != "" || payload.DeferredRideOptions.PickupDay != "" {
		t.Fatalf("immediate ride must have empty scheduling, got %+v %+v", payload.Scheduling, payload.DeferredRideOptions)
	}
	if payload.Guest.Locale != "es" {
		t.Fatalf("expected normalized locale es, got %q", payload.Guest.Locale)
	}
	if len(payload.NotificationContacts) != 1 || payload.NotificationContacts[0].PhoneNumber != "+13125550182" {
		t.Fatalf("unexpected notification contacts: %+v", payload.NotificationContacts)
	}
	if payload.Stops == nil || len(payload.Stops) != 0 {
		t.Fatalf("expected empty stops list, got %+v", payload.Stops)
	}
}

func TestSubmitSendsRawPayloadShape(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "key" {
			t.Errorf("expected api key header, got %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = io.WriteString(w, `{"status":"success"}`)
	}))
	defer srv.Close()

	req := baseRequest()
	req.Stops = []Coordinate{{Latitude: 1, Longitude: 2}}
	result := newTestPipeline(srv.URL).Submit(context.Background(), req)
	if !result.Succeeded() {
		t.Fatalf("expected success, got %+v", result)
	}

	for _, key := range []string{"client_id", "ride_type", "guest", "note_for_driver", "fare_id", "pickup", "dropoff", "stops", "product_id", "scheduling", "deferred_ride_options", "notification_contacts"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("payload missing %q: %v", key, raw)
		}
	}
	pickup := raw["pickup"].(map[string]any)
	if pickup["latitude"].(float64) != 41.88 {
		t.Fatalf("unexpected pickup: %v", pickup)
	}
}

func TestSubmitRejectsInvalidPhoneWithoutCall(t *testing.T) {
	ds := newDispatchServer(t, respondJSON(http.StatusOK, `{"status":"Success"}`))
	p := newTestPipeline(ds.URL)

	req := baseRequest()
	req.Guest.Phone = "abc"
	result := p.Submit(context.Background(), req)

	if result.Status != StatusFailure || result.Code != CodeInvalidPhone {
		t.Fatalf("expected invalid phone failure, got %+v", result)
	}
	if !strings.Contains(result.Message, "Invalid phone number format") {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if ds.calls.Load() != 0 {
		t.Fatal("dispatch webhook must not be called")
	}
}

func TestSubmitScheduledRideConvertsTimezone(t *testing.T) {
	ds := newDispatchServer(t, respondJSON(http.StatusOK, `{"status":"Success"}`))
	p := newTestPipeline(ds.URL)

	req := baseRequest()
	req.RideType = RideTypeFlexible
	req.Schedule = Schedule{Date: "2025-06-15", Time: "14:30", Timezone: "America/Chicago"}
	if result := p.Submit(context.Background(), req); !result.Succeeded() {
		t.Fatalf("expected success, got %+v", result)
	}

	payload := ds.lastPayload(t)
	want := time.Date(2025, 6, 15, 19, 30, 0, 0, time.UTC).UnixMilli()
	if payload.Scheduling.PickupTime != "1750015800000" || want != 1750015800000 {
		t.Fatalf("expected pickup_time %d, got %q", want, payload.Scheduling.PickupTime)
	}
	if payload.DeferredRideOptions.PickupDay != "2025-06-15" {
		t.Fatalf("expected pickup_day 2025-06-15, got %q", payload.DeferredRideOptions.PickupDay)
	}
}

func TestSubmitRejectsMissingScheduleWithoutCall(t *testing.T) {
	ds := newDispatchServer(t, respondJSON(http.StatusOK, `{"status":"Success"}`))
	p := newTestPipeline(ds.URL)

	req := baseRequest()
	req.RideType = RideTypeScheduled
	req.Schedule = Schedule{Date: "2025-06-15", Timezone: "America/Chicago"}
	result := p.Submit(context.Background(), req)

	if result.Code != CodeInvalidSchedule {
		t.Fatalf("expected INVALID_SCHEDULE, got %+v", result)
	}
	if ds.calls.Load() != 0 {
		t.Fatal("dispatch webhook must not be called")
	}
}

func TestSubmitMapsHTTPStatus(t *testing.T) {
	cases := []struct {
		status int
		code   string
	}{
		{http.StatusBadRequest, CodeInvalidRequest},
		{http.StatusUnauthorized, CodeUnauthorized},
		{http.StatusForbidden, CodeUnauthorized},
		{http.StatusTooManyRequests, CodeRateLimit},
		{http.StatusBadGateway, CodeServiceUnavailable},
		{http.StatusNotFound, CodeWebhookError},
	}

	for _, tc := range cases {
		ds := newDispatchServer(t, respondJSON(tc.status, `{"error":"nope"}`))
		result := newTestPipeline(ds.URL).Submit(context.Background(), baseRequest())

		if result.Status != StatusFailure || result.Code != tc.code {
			t.Fatalf("status %d: expected %s, got %+v", tc.status, tc.code, result)
		}
		if result.Details == nil || result.Details.HTTPStatus != tc.status {
			t.Fatalf("status %d: expected details with status, got %+v", tc.status, result.Details)
		}
	}
}

func TestSubmitRateLimitMessage(t *testing.T) {
	ds := newDispatchServer(t, respondJSON(http.StatusTooManyRequests, ``))
	result := newTestPipeline(ds.URL).Submit(context.Background(), baseRequest())

	if result.Code != CodeRateLimit {
		t.Fatalf("expected RATE_LIMIT, got %+v", result)
	}
	if result.Message != "Too many requests. Please wait a moment and try again." {
		t.Fatalf("unexpected message %q", result.Message)
	}
}

func TestSubmitComparesWebhookStatusCaseInsensitively(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"status":"Success"}`, StatusSuccess},
		{`{"status":"SUCCESS"}`, StatusSuccess},
		{`{"status":"success"}`, StatusSuccess},
		{`{"status":"Failure","message":"Rider opted out"}`, StatusFailure},
		{`{"message":"no status"}`, StatusFailure},
	}
	for _, tc := range cases {
		ds := newDispatchServer(t, respondJSON(http.StatusOK, tc.body))
		result := newTestPipeline(ds.URL).Submit(context.Background(), baseRequest())
		if result.Status != tc.want {
			t.Fatalf("body %s: expected %s, got %+v", tc.body, tc.want, result)
		}
	}

	ds := newDispatchServer(t, respondJSON(http.StatusOK, `{"status":"Failure","message":"Rider opted out"}`))
	result := newTestPipeline(ds.URL).Submit(context.Background(), baseRequest())
	if result.WebhookMessage != "Rider opted out" || result.Message != "Rider opted out" {
		t.Fatalf("business rejection message not passed through: %+v", result)
	}
}

func TestSubmitInvalidResponseBody(t *testing.T) {
	ds := newDispatchServer(t, respondJSON(http.StatusOK, `<html>`))
	result := newTestPipeline(ds.URL).Submit(context.Background(), baseRequest())
	if result.Code != CodeInvalidResponse {
		t.Fatalf("expected INVALID_RESPONSE, got %+v", result)
	}
}

func TestSubmitNetworkErrorReleasesKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	guard := NewMemoryGuard()
	p := NewPipeline(guard, NewWebhookDispatcher(url, "", time.Second, logger.Nop()), logger.Nop())
	req := baseRequest()

	result := p.Submit(context.Background(), req)
	if result.Code != CodeNetworkError {
		t.Fatalf("expected NETWORK_ERROR, got %+v", result)
	}
	if guard.Held(req.DedupKey()) {
		t.Fatal("dedup key must be released after a network error")
	}
}

func TestSubmitDeduplicatesConcurrentCalls(t *testing.T) {
	received := make(chan struct{}, 1)
	unblock := make(chan struct{})
	ds := newDispatchServer(t, func(w http.ResponseWriter, _ *http.Request) {
		received <- struct{}{}
		<-unblock
		_, _ = io.WriteString(w, `{"status":"Success"}`)
	})
	p := newTestPipeline(ds.URL)
	req := baseRequest()

	var wg sync.WaitGroup
	var first Result
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = p.Submit(context.Background(), req)
	}()

	<-received
	second := p.Submit(context.Background(), req)
	close(unblock)
	wg.Wait()

	if !first.Succeeded() {
		t.Fatalf("expected first submission to succeed, got %+v", first)
	}
	if second.Status != StatusFailure || second.Code != CodeDuplicateSubmission {
		t.Fatalf("expected duplicate failure, got %+v", second)
	}
	if got := ds.calls.Load(); got != 1 {
		t.Fatalf("expected exactly one webhook call, got %d", got)
	}

	// The key is free again once the first call completed.
	go func() { <-received }()
	if third := p.Submit(context.Background(), req); !third.Succeeded() {
		t.Fatalf("expected resubmission to succeed, got %+v", third)
	}
}

func TestSubmitOutlivesCallerCancellation(t *testing.T) {
	received := make(chan struct{})
	unblock := make(chan struct{})
	ds := newDispatchServer(t, func(w http.ResponseWriter, _ *http.Request) {
		close(received)
		<-unblock
		_, _ = io.WriteString(w, `{"status":"Success","message":"booked"}`)
	})
	guard := NewMemoryGuard()
	p := NewPipeline(guard, NewWebhookDispatcher(ds.URL, "key", 5*time.Second, logger.Nop()), logger.Nop())
	req := baseRequest()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() { done <- p.Submit(ctx, req) }()

	<-received
	cancel()
	close(unblock)

	result := <-done
	if !result.Succeeded() || result.WebhookMessage != "booked" {
		t.Fatalf("expected the in-flight booking to complete, got %+v", result)
	}
	if got := ds.calls.Load(); got != 1 {
		t.Fatalf("expected exactly one webhook call, got %d", got)
	}
	if guard.Held(req.DedupKey()) {
		t.Fatal("dedup key must be released after the call completes")
	}
}

func TestDedupKey(t *testing.T) {
	req := baseRequest()
	if got := req.DedupKey(); got != "recClient-fare-1-immediate" {
		t.Fatalf("unexpected key %q", got)
	}
	req.Schedule.Date = "2025-06-15"
	if got := req.DedupKey(); got != "recClient-fare-1-2025-06-15" {
		t.Fatalf("unexpected key %q", got)
	}
}
