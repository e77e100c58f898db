package history

import (
	"context"
	"fmt"

	"nemt_portal_backend/internal/events"
	"nemt_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Service records submission outcomes and serves the history.
type Service struct {
	store Store
	log   *logger.Logger
}

// NewService creates a history service.
func NewService(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// Subscribe registers the service on the event bus.
func (s *Service) Subscribe(bus events.Bus) {
	bus.Subscribe(events.RideSubmissionAttempted{}.EventName(), events.HandlerFunc(s.handleAttempt))
	bus.Subscribe(events.RideSubmitted{}.EventName(), events.HandlerFunc(s.handleBooked))
}

// handleBooked writes the audit line for a ride the dispatch service accepted.
func (s *Service) handleBooked(ctx context.Context, event events.Event) error {
	e, ok := event.(events.RideSubmitted)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	s.log.WithContext(ctx).WithSessionID(e.SessionID).Info("ride booked",
		"client_id", e.ClientID,
		"fare_id", e.FareID,
		"ride_type", e.RideType,
		"webhook_message", e.WebhookMessage,
		"submitted_by", e.SubmittedBy.String(),
	)
	return nil
}

func (s *Service) handleAttempt(ctx context.Context, event events.Event) error {
	e, ok := event.(events.RideSubmissionAttempted)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	record := Submission{
		ID:             uuid.New(),
		SessionID:      e.SessionID,
		ClientID:       e.ClientID,
		FareID:         e.FareID,
		ProductID:      e.ProductID,
		RideType:       e.RideType,
		ScheduledFor:   e.ScheduledFor,
		Status:         e.Status,
		Code:           optionalText(e.Code),
		Message:        e.Message,
		WebhookStatus:  optionalText(e.WebhookStatus),
		WebhookMessage: optionalText(e.WebhookMessage),
		SubmittedBy:    e.SubmittedBy,
		CreatedAt:      e.OccurredAt(),
	}

	if err := s.store.Insert(ctx, record); err != nil {
		s.log.DatabaseError("insert ride submission", err)
		return err
	}
	return nil
}

// List returns a page of recorded submissions, newest first.
func (s *Service) List(ctx context.Context, params ListParams) (ListResult, error) {
	return s.store.List(ctx, params)
}
