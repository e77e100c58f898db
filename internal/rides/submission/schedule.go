package submission

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

var (
	// ErrMissingSchedule is returned when a non-immediate ride lacks date, time or timezone.
	ErrMissingSchedule = errors.New("scheduled date, time and timezone are required")
	// ErrInvalidSchedule is returned when the schedule cannot be interpreted.
	ErrInvalidSchedule = errors.New("invalid scheduled date or time")
)

var clockLayouts = []string{"15:04", "15:04:05"}

// Scheduling holds the dispatch scheduling fields derived from a request.
type Scheduling struct {
	PickupTime string // epoch milliseconds, empty for immediate rides
	PickupDay  string // local yyyy-MM-dd, flexible rides only
}

// DeriveScheduling converts the wall-clock schedule into dispatch fields.
func DeriveScheduling(rideType RideType, schedule Schedule) (Scheduling, error) {
	if rideType == RideTypeImmediate {
		return Scheduling{}, nil
	}

	local, err := LocalPickup(schedule)
	if err != nil {
		return Scheduling{}, err
	}

	out := Scheduling{PickupTime: strconv.FormatInt(local.UTC().UnixMilli(), 10)}
	if rideType == RideTypeFlexible {
		out.PickupDay = local.Format(time.DateOnly)
	}
	return out, nil
}

// LocalPickup interprets date and time in the schedule's timezone.
func LocalPickup(schedule Schedule) (time.Time, error) {
	date := strings.TrimSpace(schedule.Date)
	clock := strings.TrimSpace(schedule.Time)
	zone := strings.TrimSpace(schedule.Timezone)
	if date == "" || clock == "" || zone == "" {
		return time.Time{}, ErrMissingSchedule
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unknown timezone %q", ErrInvalidSchedule, zone)
	}

	for _, layout := range clockLayouts {
		t, err := time.ParseInLocation(time.DateOnly+" "+layout, date+" "+clock, loc)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q %q", ErrInvalidSchedule, date, clock)
}
