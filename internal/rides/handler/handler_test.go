package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nemt_portal_backend/internal/datastore"
	"nemt_portal_backend/internal/events"
	"nemt_portal_backend/internal/rides/domain"
	"nemt_portal_backend/internal/rides/history"
	"nemt_portal_backend/internal/rides/lookup"
	"nemt_portal_backend/internal/rides/submission"
	"nemt_portal_backend/internal/rides/transport"
	"nemt_portal_backend/internal/rides/wizard"
	"nemt_portal_backend/platform/httpkit"
	"nemt_portal_backend/platform/logger"
	"nemt_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type stubDirectory struct{}

func (stubDirectory) ListClients(context.Context) ([]datastore.ClientRecord, error) {
	return []datastore.ClientRecord{
		{ID: "rec1", FirstName: "Ada", LastName: "Lovelace", Phone: "5551234567", Language: "en", Status: "Active", Reviewed: true, ContractIDs: []string{"con1"}},
	}, nil
}

func (stubDirectory) ListAddresses(context.Context, string) ([]datastore.AddressRecord, error) {
	return []datastore.AddressRecord{
		{ID: "a1", ClientIDs: []string{"rec1"}, Address: "1 Main St", Latitude: "41.8781", Longitude: "-87.6298", Active: true},
		{ID: "a2", ClientIDs: []string{"rec1"}, Address: "2 Clinic Rd", Latitude: "41.9", Longitude: "-87.65", Active: true},
	}, nil
}

func (stubDirectory) ListActiveContracts(context.Context) ([]datastore.ContractRecord, error) {
	return []datastore.ContractRecord{{ID: "con1", Status: "Active"}}, nil
}

type stubZones struct{}

func (stubZones) Zones(context.Context, float64, float64) ([]domain.Zone, error) {
	return []domain.Zone{{ID: "z1", Label: "Downtown", Latitude: "41.88", Longitude: "-87.63", Token: "secret-token"}}, nil
}

type stubProducts struct{}

func (stubProducts) Products(context.Context, lookup.ProductQuery) ([]domain.Product, error) {
	return []domain.Product{{ID: "p1", Name: "Sedan", Capacity: 4, Estimate: domain.FareEstimate{Amount: "$18.50", FareID: "f1"}}}, nil
}

type stubSubmitter struct {
	result submission.Result
}

func (s stubSubmitter) Submit(context.Context, submission.Request) submission.Result {
	return s.result
}

type memoryHistory struct {
	items []history.Submission
}

func (m *memoryHistory) Insert(_ context.Context, s history.Submission) error {
	m.items = append(m.items, s)
	return nil
}

func (m *memoryHistory) List(_ context.Context, params history.ListParams) (history.ListResult, error) {
	return history.ListResult{Items: m.items, Total: len(m.items), Page: 1, PageSize: 20, TotalPages: 1}, nil
}

type testServer struct {
	engine *gin.Engine
	owner  uuid.UUID
	store  *memoryHistory
}

func newTestServer(t *testing.T, result submission.Result) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bus := events.NewInMemoryBus(logger.Nop())
	store := &memoryHistory{}
	hist := history.NewService(store, logger.Nop())
	ctrl := wizard.NewController(wizard.Deps{
		Store:     wizard.NewMemoryStore(time.Hour),
		Guard:     submission.NewMemoryGuard(),
		Directory: stubDirectory{},
		Zones:     stubZones{},
		Products:  stubProducts{},
		Submitter: stubSubmitter{result: result},
		EventBus:  bus,
		Logger:    logger.Nop(),
	})
	h := New(ctrl, hist, validator.New())

	srv := &testServer{engine: gin.New(), owner: uuid.New(), store: store}
	group := srv.engine.Group("/rides", func(c *gin.Context) {
		if raw := c.GetHeader("X-Test-User"); raw != "" {
			c.Set(httpkit.ContextUserIDKey, uuid.MustParse(raw))
		}
		c.Next()
	})
	group.GET("/wizard/clients", h.ListClients)
	group.POST("/wizard", h.Start)
	group.GET("/wizard/:id", h.Get)
	group.DELETE("/wizard/:id", h.Discard)
	group.POST("/wizard/:id/client-locations", h.SubmitClientLocations)
	group.POST("/wizard/:id/zone", h.SelectZone)
	group.POST("/wizard/:id/schedule", h.SubmitSchedule)
	group.POST("/wizard/:id/product", h.SelectProduct)
	group.POST("/wizard/:id/submit", h.Submit)
	group.GET("/submissions", h.ListSubmissions)
	return srv
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return s.doAs(t, s.owner, method, path, body)
}

func (s *testServer) doAs(t *testing.T, user uuid.UUID, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != uuid.Nil {
		req.Header.Set("X-Test-User", user.String())
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) transport.SessionResponse {
	t.Helper()
	var resp transport.SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode session: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func (s *testServer) walkToReview(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/rides/wizard", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 on start, got %d: %s", rec.Code, rec.Body.String())
	}
	id := decodeSession(t, rec).ID

	steps := []struct {
		path string
		body interface{}
	}{
		{"/client-locations", transport.ClientLocationsRequest{ClientID: "rec1", PickupID: "a1", DropoffID: "a2"}},
		{"/zone", transport.SelectZoneRequest{ZoneID: "z1"}},
		{"/schedule", transport.ScheduleRequest{RideType: "immediate"}},
		{"/product", transport.SelectProductRequest{ProductID: "p1", FareID: "f1"}},
	}
	for _, step := range steps {
		rec := s.do(t, http.MethodPost, "/rides/wizard/"+id+step.path, step.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("step %s: expected 200, got %d: %s", step.path, rec.Code, rec.Body.String())
		}
	}
	return id
}

func TestWizardHidesZoneTokens(t *testing.T) {
	srv := newTestServer(t, submission.Result{Status: submission.StatusSuccess, Message: "ok"})
	id := srv.walkToReview(t)

	rec := srv.do(t, http.MethodGet, "/rides/wizard/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret-token") {
		t.Fatalf("zone token leaked in response: %s", rec.Body.String())
	}
	resp := decodeSession(t, rec)
	if resp.Step != wizard.StepReview || !resp.Draft.Validation.Overall {
		t.Fatalf("expected a complete draft on review, got %s %+v", resp.Step, resp.Draft.Validation)
	}
}

func TestSubmitFailureIsReportedWithOK(t *testing.T) {
	srv := newTestServer(t, submission.Result{
		Status:  submission.StatusFailure,
		Code:    submission.CodeRateLimit,
		Message: "Too many requests. Please wait a moment and try again.",
	})
	id := srv.walkToReview(t)

	rec := srv.do(t, http.MethodPost, "/rides/wizard/"+id+"/submit", transport.SubmitRideRequest{DriverNote: "ring twice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a dispatch failure, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeSession(t, rec)
	if resp.Result == nil || resp.Result.Status != submission.StatusFailure || resp.Result.Code != submission.CodeRateLimit {
		t.Fatalf("expected failure result, got %+v", resp.Result)
	}
	if resp.Step != wizard.StepReview {
		t.Fatalf("expected session to stay on review for retry, got %s", resp.Step)
	}
}

func TestSubmitSuccessCompletesSession(t *testing.T) {
	srv := newTestServer(t, submission.Result{Status: submission.StatusSuccess, Message: "booked"})
	id := srv.walkToReview(t)

	rec := srv.do(t, http.MethodPost, "/rides/wizard/"+id+"/submit", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp := decodeSession(t, rec); resp.Step != wizard.StepCompleted {
		t.Fatalf("expected completed step, got %s", resp.Step)
	}

	if rec := srv.do(t, http.MethodGet, "/rides/wizard/"+id, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected completed session to be gone, got %d", rec.Code)
	}
}

func TestWizardRejectsInvalidInput(t *testing.T) {
	srv := newTestServer(t, submission.Result{Status: submission.StatusSuccess})
	rec := srv.do(t, http.MethodPost, "/rides/wizard", nil)
	id := decodeSession(t, rec).ID

	rec = srv.do(t, http.MethodPost, "/rides/wizard/"+id+"/client-locations", transport.ClientLocationsRequest{ClientID: "   ", PickupID: "a1", DropoffID: "a2"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank client id, got %d", rec.Code)
	}

	rec = srv.do(t, http.MethodPost, "/rides/wizard/"+id+"/zone", transport.SelectZoneRequest{ZoneID: "z1"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for out-of-order step, got %d", rec.Code)
	}
}

func TestWizardSessionsAreScopedToOwner(t *testing.T) {
	srv := newTestServer(t, submission.Result{Status: submission.StatusSuccess})
	rec := srv.do(t, http.MethodPost, "/rides/wizard", nil)
	id := decodeSession(t, rec).ID

	if rec := srv.doAs(t, uuid.New(), http.MethodGet, "/rides/wizard/"+id, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another user's session, got %d", rec.Code)
	}
	if rec := srv.doAs(t, uuid.Nil, http.MethodGet, "/rides/wizard/"+id, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodDelete, "/rides/wizard/"+id, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on discard, got %d", rec.Code)
	}
}

func TestListSubmissionsValidatesQuery(t *testing.T) {
	srv := newTestServer(t, submission.Result{Status: submission.StatusSuccess})

	if rec := srv.do(t, http.MethodGet, "/rides/submissions?status=pending", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}

	srv.store.items = []history.Submission{{ID: uuid.New(), ClientID: "rec1", Status: submission.StatusSuccess, Message: "booked"}}
	rec := srv.do(t, http.MethodGet, "/rides/submissions?clientId=rec1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp transport.SubmissionListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if resp.Total != 1 || resp.Items[0].ClientID != "rec1" {
		t.Fatalf("unexpected list response: %+v", resp)
	}
}
