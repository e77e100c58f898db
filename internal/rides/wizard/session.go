// Package wizard drives the five-step ride scheduling flow. Each step is one
// call against a server-side session; steps only move forward.
package wizard

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"nemt_portal_backend/internal/rides/domain"
	"nemt_portal_backend/internal/rides/submission"

	"github.com/google/uuid"
)

// ErrInvalidTransition is returned when a session would leave its step for
// one the flow does not allow.
var ErrInvalidTransition = errors.New("invalid ride wizard step transition")

// Step is the position of a session in the flow.
type Step string

const (
	StepClientLocations Step = "client_locations"
	StepZone            Step = "zone"
	StepSchedule        Step = "schedule"
	StepProduct         Step = "product"
	StepReview          Step = "review"
	StepCompleted       Step = "completed"
)

// transitions lists the steps each step may move to. Steps only move forward
// and a completed session is terminal.
var transitions = map[Step][]Step{
	StepClientLocations: {StepZone},
	StepZone:            {StepSchedule},
	StepSchedule:        {StepProduct},
	StepProduct:         {StepReview},
	StepReview:          {StepCompleted},
	StepCompleted:       {},
}

// CanTransition reports whether a session at from may move to to.
func CanTransition(from, to Step) bool {
	return slices.Contains(transitions[from], to)
}

func (s *Session) moveTo(to Step) error {
	if !CanTransition(s.Step, to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, s.Step, to)
	}
	s.Step = to
	return nil
}

// Schedule is the operator-entered ride timing.
type Schedule struct {
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// Session is the server-side state of one scheduling flow.
type Session struct {
	ID        string             `json:"id"`
	OwnerID   uuid.UUID          `json:"ownerId"`
	Step      Step               `json:"step"`
	Draft     domain.RideDraft   `json:"draft"`
	Zones     []domain.Zone      `json:"zones,omitempty"`
	Products  []domain.Product   `json:"products,omitempty"`
	RideType  string             `json:"rideType,omitempty"`
	Schedule  Schedule           `json:"schedule"`
	LastError string             `json:"lastError,omitempty"`
	Result    *submission.Result `json:"result,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// ClientLocationsInput selects the rider and the trip addresses.
type ClientLocationsInput struct {
	ClientID  string
	PickupID  string
	DropoffID string
	StopIDs   []string
}

// ScheduleInput selects the ride type and, unless immediate, its timing.
type ScheduleInput struct {
	RideType string
	Date     string
	Time     string
	Timezone string
}

// ProductInput selects one product and its fare.
type ProductInput struct {
	ProductID string
	FareID    string
}

// ReviewInput carries the fields entered on the confirmation step.
type ReviewInput struct {
	DriverNote string
	GuestEmail string
}
