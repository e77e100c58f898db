package submission

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"nemt_portal_backend/platform/locale"
	"nemt_portal_backend/platform/logger"
	"nemt_portal_backend/platform/phone"
)

const defaultLocale = "en"

// Pipeline validates, normalizes and dispatches ride requests.
type Pipeline struct {
	guard      Guard
	dispatcher Dispatcher
	log        *logger.Logger
}

// NewPipeline wires a pipeline. The guard is owned by the caller so that
// tests and replicas can choose their own scope.
func NewPipeline(guard Guard, dispatcher Dispatcher, log *logger.Logger) *Pipeline {
	return &Pipeline{guard: guard, dispatcher: dispatcher, log: log}
}

// Submit dispatches req at most once per dedup key and never returns an error.
func (p *Pipeline) Submit(ctx context.Context, req Request) Result {
	key := req.DedupKey()
	log := p.log.WithContext(ctx)

	release, ok, err := p.guard.TryAcquire(ctx, key)
	if err != nil {
		log.Error("submission guard unavailable", "key", key, "error", err)
		return failure(CodeLockUnavailable, msgLockUnavailable)
	}
	if !ok {
		log.Warn("duplicate ride submission rejected", "key", key)
		return failure(CodeDuplicateSubmission, msgDuplicate)
	}
	defer release()

	payload, result, ok := buildPayload(req)
	if !ok {
		return result
	}

	// A caller that goes away does not abort a booking already on the wire.
	// The dispatcher's own timeout still bounds the call.
	resp, err := p.dispatcher.Dispatch(context.WithoutCancel(ctx), payload)
	if err != nil {
		log.Error("dispatch webhook unreachable", "key", key, "error", err)
		r := failure(CodeNetworkError, msgNetwork)
		r.Details = &Details{Error: err.Error()}
		return r
	}

	return mapResponse(resp)
}

// buildPayload normalizes the request. On failure it returns the Result to report.
func buildPayload(req Request) (Payload, Result, bool) {
	guestPhone, err := phone.ParseE164(req.Guest.Phone)
	if err != nil {
		return Payload{}, failure(CodeInvalidPhone, msgInvalidPhone+": "+strings.TrimSpace(req.Guest.Phone)), false
	}

	scheduling, err := DeriveScheduling(req.RideType, req.Schedule)
	if err != nil {
		return Payload{}, failure(CodeInvalidSchedule, scheduleMessage(err)), false
	}

	guestLocale := locale.Normalize(req.Guest.Locale)
	if guestLocale == "" {
		guestLocale = defaultLocale
	}

	stops := make([]payloadPoint, 0, len(req.Stops))
	for _, s := range req.Stops {
		stops = append(stops, payloadPoint(s))
	}

	contacts := []payloadContact{}
	if contact := strings.TrimSpace(req.ContactPhone); contact != "" {
		contacts = append(contacts, payloadContact{PhoneNumber: phone.NormalizeE164(contact)})
	}

	return Payload{
		ClientID: req.ClientID,
		RideType: string(req.RideType),
		Guest: payloadGuest{
			FirstName:   strings.TrimSpace(req.Guest.FirstName),
			LastName:    strings.TrimSpace(req.Guest.LastName),
			Email:       strings.TrimSpace(req.Guest.Email),
			PhoneNumber: guestPhone,
			Locale:      guestLocale,
		},
		NoteForDriver:        req.DriverNote,
		FareID:               req.FareID,
		Pickup:               payloadPoint(req.Pickup),
		Dropoff:              payloadPoint(req.Dropoff),
		Stops:                stops,
		ProductID:            req.ProductID,
		Scheduling:           payloadScheduling{PickupTime: scheduling.PickupTime},
		DeferredRideOptions:  payloadDeferred{PickupDay: scheduling.PickupDay},
		NotificationContacts: contacts,
	}, Result{}, true
}

func scheduleMessage(err error) string {
	if errors.Is(err, ErrMissingSchedule) {
		return "Scheduled date, time and timezone are required for this ride type."
	}
	return "The scheduled pickup time could not be interpreted: " + err.Error()
}

type dispatchBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func mapResponse(resp DispatchResponse) Result {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failureForStatus(resp.StatusCode, resp.Body)
	}

	var body dispatchBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		r := failure(CodeInvalidResponse, msgInvalidResponse)
		r.Details = &Details{HTTPStatus: resp.StatusCode, Body: truncate(string(resp.Body), maxDetailBody)}
		return r
	}

	result := Result{
		WebhookStatus:  body.Status,
		WebhookMessage: body.Message,
		Message:        body.Message,
	}
	if strings.EqualFold(strings.TrimSpace(body.Status), StatusSuccess) {
		result.Status = StatusSuccess
		if result.Message == "" {
			result.Message = msgAccepted
		}
		return result
	}

	result.Status = StatusFailure
	result.Code = CodeDispatchRejected
	if result.Message == "" {
		result.Message = msgRejected
	}
	return result
}
