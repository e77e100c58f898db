// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"nemt_portal_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Rides Domain Events
// =============================================================================

// RideSubmissionAttempted is published after the dispatch pipeline returns,
// whatever the outcome. Only the outcome travels; the request is not retained.
type RideSubmissionAttempted struct {
	BaseEvent
	SessionID      string     `json:"sessionId"`
	ClientID       string     `json:"clientId"`
	FareID         string     `json:"fareId"`
	ProductID      string     `json:"productId"`
	RideType       string     `json:"rideType"`
	ScheduledFor   *time.Time `json:"scheduledFor,omitempty"`
	Status         string     `json:"status"`
	Code           string     `json:"code,omitempty"`
	Message        string     `json:"message"`
	WebhookStatus  string     `json:"webhookStatus,omitempty"`
	WebhookMessage string     `json:"webhookMessage,omitempty"`
	SubmittedBy    uuid.UUID  `json:"submittedBy"`
}

func (e RideSubmissionAttempted) EventName() string { return "rides.submission.attempted" }

// RideSubmitted is published when the dispatch webhook accepted a ride.
type RideSubmitted struct {
	BaseEvent
	SessionID      string    `json:"sessionId"`
	ClientID       string    `json:"clientId"`
	FareID         string    `json:"fareId"`
	RideType       string    `json:"rideType"`
	WebhookMessage string    `json:"webhookMessage,omitempty"`
	SubmittedBy    uuid.UUID `json:"submittedBy"`
}

func (e RideSubmitted) EventName() string { return "rides.submission.succeeded" }

// =============================================================================
// Signatures Domain Events
// =============================================================================

// SignatureExportQueued is published when a signature export job was enqueued.
type SignatureExportQueued struct {
	BaseEvent
	SignatureID string    `json:"signatureId"`
	RequestedBy uuid.UUID `json:"requestedBy"`
}

func (e SignatureExportQueued) EventName() string { return "signatures.export.queued" }
