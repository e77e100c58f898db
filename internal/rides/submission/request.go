package submission

import "strings"

// RideType selects how the dispatch service schedules the pickup.
type RideType string

const (
	RideTypeImmediate RideType = "immediate"
	RideTypeScheduled RideType = "scheduled"
	RideTypeFlexible  RideType = "flexible"
	RideTypeHourly    RideType = "hourly"
)

// ParseRideType accepts a ride type in any letter case.
func ParseRideType(value string) (RideType, bool) {
	switch rt := RideType(strings.ToLower(strings.TrimSpace(value))); rt {
	case RideTypeImmediate, RideTypeScheduled, RideTypeFlexible, RideTypeHourly:
		return rt, true
	default:
		return "", false
	}
}

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Guest identifies the rider to the dispatch service.
type Guest struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Locale    string
}

// Schedule is the operator-entered pickup time for non-immediate rides.
type Schedule struct {
	Date     string // 2006-01-02
	Time     string // 15:04 or 15:04:05
	Timezone string // IANA name
}

// Request is the terminal payload assembled from a complete ride draft.
// It is owned by a single Submit call and not retained afterwards.
type Request struct {
	ClientID     string
	ContactPhone string
	Guest        Guest
	FareID       string
	ProductID    string
	Pickup       Coordinate
	Dropoff      Coordinate
	Stops        []Coordinate
	DriverNote   string
	RideType     RideType
	Schedule     Schedule
}

// DedupKey identifies one logical submission.
func (r Request) DedupKey() string {
	scheduled := strings.TrimSpace(r.Schedule.Date)
	if scheduled == "" {
		scheduled = "immediate"
	}
	return r.ClientID + "-" + r.FareID + "-" + scheduled
}
