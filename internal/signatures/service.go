// Package signatures exports signed client consent records to the
// downstream document archive through a background job.
package signatures

import (
	"context"
	"errors"
	"fmt"

	"nemt_portal_backend/internal/datastore"
	"nemt_portal_backend/internal/events"
	"nemt_portal_backend/internal/scheduler"
	"nemt_portal_backend/platform/apperr"
	"nemt_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Service accepts export requests and queues them.
type Service struct {
	queue      scheduler.SignatureExportScheduler
	signatures SignatureReader
	bus        events.Bus
	log        *logger.Logger
}

func NewService(queue scheduler.SignatureExportScheduler, signatures SignatureReader, bus events.Bus, log *logger.Logger) *Service {
	return &Service{queue: queue, signatures: signatures, bus: bus, log: log}
}

// Subscribe registers the service on the event bus.
func (s *Service) Subscribe(bus events.Bus) {
	bus.Subscribe(events.SignatureExportQueued{}.EventName(), events.HandlerFunc(s.handleQueued))
}

func (s *Service) handleQueued(ctx context.Context, event events.Event) error {
	e, ok := event.(events.SignatureExportQueued)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	s.log.WithContext(ctx).Info("signature export queued",
		"signature_id", e.SignatureID,
		"requested_by", e.RequestedBy.String(),
	)
	return nil
}

// RequestExport checks that the signature exists and queues its export.
func (s *Service) RequestExport(ctx context.Context, signatureID string, requestedBy uuid.UUID) error {
	if _, err := s.signatures.GetSignature(ctx, signatureID); err != nil {
		if datastore.IsNotFound(err) {
			return apperr.NotFound("signature not found")
		}
		return apperr.Upstream("could not load signature", err)
	}

	err := s.queue.EnqueueSignatureExport(ctx, scheduler.SignatureExportPayload{
		SignatureID: signatureID,
		RequestedBy: requestedBy.String(),
	})
	if errors.Is(err, scheduler.ErrDuplicateExport) {
		return apperr.Conflict("an export of this signature is already queued")
	}
	if err != nil {
		s.log.Error("failed to enqueue signature export", "signature_id", signatureID, "error", err)
		return apperr.Wrap(apperr.KindInternal, "could not queue signature export", err)
	}

	s.bus.Publish(ctx, events.SignatureExportQueued{
		BaseEvent:   events.NewBaseEvent(),
		SignatureID: signatureID,
		RequestedBy: requestedBy,
	})
	return nil
}
