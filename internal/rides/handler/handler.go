package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nemt_portal_backend/internal/rides/history"
	"nemt_portal_backend/internal/rides/transport"
	"nemt_portal_backend/internal/rides/wizard"
	"nemt_portal_backend/platform/httpkit"
	"nemt_portal_backend/platform/sanitize"
	"nemt_portal_backend/platform/validator"
)

// Handler handles HTTP requests for the ride scheduling wizard.
type Handler struct {
	wizard  *wizard.Controller
	history *history.Service
	val     *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgMissingID        = "missing session id"
)

// New creates a new rides handler.
func New(ctrl *wizard.Controller, hist *history.Service, val *validator.Validator) *Handler {
	return &Handler{wizard: ctrl, history: hist, val: val}
}

// ListClients returns the clients eligible for ride scheduling.
// GET /api/v1/rides/wizard/clients
func (h *Handler) ListClients(c *gin.Context) {
	if httpkit.MustGetIdentity(c) == nil {
		return
	}

	clients, err := h.wizard.EligibleClients(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewClientListResponse(clients))
}

// ListAddresses returns the active saved addresses of one client.
// GET /api/v1/rides/wizard/clients/:clientId/addresses
func (h *Handler) ListAddresses(c *gin.Context) {
	if httpkit.MustGetIdentity(c) == nil {
		return
	}
	clientID := strings.TrimSpace(c.Param("clientId"))
	if clientID == "" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	addresses, err := h.wizard.ClientAddresses(c.Request.Context(), clientID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewAddressListResponse(addresses))
}

// Start opens a new wizard session.
// POST /api/v1/rides/wizard
func (h *Handler) Start(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	session, err := h.wizard.Start(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.NewSessionResponse(session))
}

// Get returns the current state of a session.
// GET /api/v1/rides/wizard/:id
func (h *Handler) Get(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.wizard.Get(c.Request.Context(), identity.UserID(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewSessionResponse(session))
}

// Discard abandons a session.
// DELETE /api/v1/rides/wizard/:id
func (h *Handler) Discard(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	if err := h.wizard.Discard(c.Request.Context(), identity.UserID(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// SubmitClientLocations handles step one of the wizard.
// POST /api/v1/rides/wizard/:id/client-locations
func (h *Handler) SubmitClientLocations(c *gin.Context) {
	var req transport.ClientLocationsRequest
	if !h.bind(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.wizard.SubmitClientLocations(c.Request.Context(), identity.UserID(), id, wizard.ClientLocationsInput{
		ClientID:  strings.TrimSpace(req.ClientID),
		PickupID:  strings.TrimSpace(req.PickupID),
		DropoffID: strings.TrimSpace(req.DropoffID),
		StopIDs:   req.StopIDs,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewSessionResponse(session))
}

// SelectZone handles step two of the wizard.
// POST /api/v1/rides/wizard/:id/zone
func (h *Handler) SelectZone(c *gin.Context) {
	var req transport.SelectZoneRequest
	if !h.bind(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.wizard.SelectZone(c.Request.Context(), identity.UserID(), id, strings.TrimSpace(req.ZoneID))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewSessionResponse(session))
}

// SubmitSchedule handles step three of the wizard.
// POST /api/v1/rides/wizard/:id/schedule
func (h *Handler) SubmitSchedule(c *gin.Context) {
	var req transport.ScheduleRequest
	if !h.bind(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.wizard.SubmitSchedule(c.Request.Context(), identity.UserID(), id, wizard.ScheduleInput{
		RideType: req.RideType,
		Date:     strings.TrimSpace(req.Date),
		Time:     strings.TrimSpace(req.Time),
		Timezone: strings.TrimSpace(req.Timezone),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewSessionResponse(session))
}

// SelectProduct handles step four of the wizard.
// POST /api/v1/rides/wizard/:id/product
func (h *Handler) SelectProduct(c *gin.Context) {
	var req transport.SelectProductRequest
	if !h.bind(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.wizard.SelectProduct(c.Request.Context(), identity.UserID(), id, wizard.ProductInput{
		ProductID: strings.TrimSpace(req.ProductID),
		FareID:    strings.TrimSpace(req.FareID),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewSessionResponse(session))
}

// Submit sends the reviewed ride to dispatch. A dispatch failure is still a
// 200; the outcome is carried in the session result.
// POST /api/v1/rides/wizard/:id/submit
func (h *Handler) Submit(c *gin.Context) {
	var req transport.SubmitRideRequest
	if c.Request.ContentLength != 0 {
		if !h.bind(c, &req) {
			return
		}
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.wizard.Submit(c.Request.Context(), identity.UserID(), id, wizard.ReviewInput{
		DriverNote: sanitize.Text(req.DriverNote),
		GuestEmail: strings.TrimSpace(req.GuestEmail),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewSessionResponse(session))
}

// ListSubmissions returns recorded dispatch attempts.
// GET /api/v1/rides/submissions
func (h *Handler) ListSubmissions(c *gin.Context) {
	var req transport.ListSubmissionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if httpkit.MustGetIdentity(c) == nil {
		return
	}

	result, err := h.history.List(c.Request.Context(), history.ListParams{
		ClientID: strings.TrimSpace(req.ClientID),
		Status:   req.Status,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewSubmissionListResponse(result))
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func sessionID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		httpkit.Error(c, http.StatusBadRequest, msgMissingID, nil)
		return "", false
	}
	return id, true
}
