package wizard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nemt_portal_backend/internal/events"
	"nemt_portal_backend/internal/rides/submission"
	"nemt_portal_backend/platform/apperr"

	"github.com/google/uuid"
)

// Submit hands the completed draft to the submission pipeline. A rejected
// submission is not an error: the result is stored, LastError is set and the
// session stays on the review step. An accepted one completes the session
// and removes it from the store.
func (c *Controller) Submit(ctx context.Context, ownerID uuid.UUID, id string, in ReviewInput) (*Session, error) {
	return c.withSession(ctx, ownerID, id, StepCompleted, func(s *Session) error {
		log := c.log.WithContext(ctx).WithSessionID(s.ID)

		req, err := buildRequest(s, in)
		if err != nil {
			s.LastError = errorMessage(err)
			s.UpdatedAt = c.now()
			if saveErr := c.store.Save(ctx, s); saveErr != nil {
				return fmt.Errorf("save session: %w", saveErr)
			}
			return err
		}

		result := c.submitter.Submit(ctx, req)
		// The dispatch outcome is recorded even if the caller has gone away.
		detached := context.WithoutCancel(ctx)
		s.Result = &result
		s.UpdatedAt = c.now()
		c.publishAttempt(detached, s, req, result)

		if !result.Succeeded() {
			s.LastError = result.Message
			log.Warn("ride submission failed", "code", result.Code, "webhook_status", result.WebhookStatus)
			if err := c.store.Save(detached, s); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			return nil
		}

		if err := s.moveTo(StepCompleted); err != nil {
			return err
		}
		if err := c.store.Delete(detached, s.ID); err != nil {
			log.Error("failed to remove completed ride wizard session", "error", err)
		}
		c.bus.Publish(detached, events.RideSubmitted{
			BaseEvent:      events.NewBaseEvent(),
			SessionID:      s.ID,
			ClientID:       req.ClientID,
			FareID:         req.FareID,
			RideType:       string(req.RideType),
			WebhookMessage: result.WebhookMessage,
			SubmittedBy:    s.OwnerID,
		})
		log.Info("ride submitted", "client_id", req.ClientID, "ride_type", req.RideType)
		return nil
	})
}

func (c *Controller) publishAttempt(ctx context.Context, s *Session, req submission.Request, result submission.Result) {
	var scheduledFor *time.Time
	if req.RideType != submission.RideTypeImmediate {
		if t, err := submission.LocalPickup(req.Schedule); err == nil {
			utc := t.UTC()
			scheduledFor = &utc
		}
	}

	c.bus.Publish(ctx, events.RideSubmissionAttempted{
		BaseEvent:      events.NewBaseEvent(),
		SessionID:      s.ID,
		ClientID:       req.ClientID,
		FareID:         req.FareID,
		ProductID:      req.ProductID,
		RideType:       string(req.RideType),
		ScheduledFor:   scheduledFor,
		Status:         result.Status,
		Code:           result.Code,
		Message:        result.Message,
		WebhookStatus:  result.WebhookStatus,
		WebhookMessage: result.WebhookMessage,
		SubmittedBy:    s.OwnerID,
	})
}

func buildRequest(s *Session, in ReviewInput) (submission.Request, error) {
	draft := s.Draft
	if !draft.Validation.Overall || draft.Client == nil || draft.Product == nil {
		return submission.Request{}, apperr.Validation("ride details are incomplete")
	}

	rideType, ok := submission.ParseRideType(s.RideType)
	if !ok {
		return submission.Request{}, apperr.Validation("ride type is missing")
	}

	pickup, err := parseCoordinate(draft.Locations.Pickup.Latitude, draft.Locations.Pickup.Longitude)
	if err != nil {
		return submission.Request{}, apperr.Validation("pickup address has no valid coordinates")
	}
	dropoff, err := parseCoordinate(draft.Locations.Dropoff.Latitude, draft.Locations.Dropoff.Longitude)
	if err != nil {
		return submission.Request{}, apperr.Validation("dropoff address has no valid coordinates")
	}
	stops := make([]submission.Coordinate, 0, len(draft.Locations.Stops))
	for _, stop := range draft.Locations.Stops {
		point, err := parseCoordinate(stop.Latitude, stop.Longitude)
		if err != nil {
			return submission.Request{}, apperr.Validation("a stop address has no valid coordinates")
		}
		stops = append(stops, point)
	}

	email := strings.TrimSpace(in.GuestEmail)
	if email == "" {
		email = draft.Client.Email
	}

	return submission.Request{
		ClientID:     draft.Client.ID,
		ContactPhone: draft.Client.Phone,
		Guest: submission.Guest{
			FirstName: draft.Client.FirstName,
			LastName:  draft.Client.LastName,
			Email:     email,
			Phone:     draft.Client.Phone,
			Locale:    draft.Client.Language,
		},
		FareID:     draft.Product.Estimate.FareID,
		ProductID:  draft.Product.ID,
		Pickup:     pickup,
		Dropoff:    dropoff,
		Stops:      stops,
		DriverNote: strings.TrimSpace(in.DriverNote),
		RideType:   rideType,
		Schedule:   submission.Schedule(s.Schedule),
	}, nil
}
