// Package domain holds the ride draft model and the completeness rules that
// gate each wizard step. Everything here is pure: no I/O and no errors.
package domain

import "time"

// Client is the rider a ride is booked for.
type Client struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Language  string `json:"language"`
	Email     string `json:"email,omitempty"`
}

// Address is a registered client address. Coordinates stay in the textual
// form the datastore delivered and are parsed where they are used.
type Address struct {
	ID           string `json:"id"`
	Address      string `json:"address"`
	Latitude     string `json:"latitude"`
	Longitude    string `json:"longitude"`
	Instructions string `json:"instructions,omitempty"`
}

// Locations groups pickup, dropoff and optional intermediate stops.
type Locations struct {
	Pickup  Address   `json:"pickup"`
	Dropoff Address   `json:"dropoff"`
	Stops   []Address `json:"stops,omitempty"`
}

// Zone is a pickup geofence returned by the zone lookup. Token is the opaque
// dispatch token required by the product lookup.
type Zone struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Instruction string `json:"instruction,omitempty"`
	Note        string `json:"note,omitempty"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	Token       string `json:"token,omitempty"`
}

// FareEstimate is the priced quote attached to a product.
type FareEstimate struct {
	Amount   string `json:"amount"`
	FareID   string `json:"fareId"`
	Distance string `json:"distance"`
	Duration string `json:"duration"`
}

// Product is a vehicle or service product offered for the trip.
type Product struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Capacity int          `json:"capacity"`
	Estimate FareEstimate `json:"estimate"`
}

// Timestamps tracks the draft lifecycle.
type Timestamps struct {
	Created       time.Time  `json:"created"`
	Updated       time.Time  `json:"updated"`
	LastValidated *time.Time `json:"lastValidated,omitempty"`
}

// Validation caches predicate results. Overall is derived, never set directly.
type Validation struct {
	Client    bool `json:"client"`
	Locations bool `json:"locations"`
	Zone      bool `json:"zone"`
	Product   bool `json:"product"`
	Overall   bool `json:"overall"`
}

// RideDraft is the state accumulated across one scheduling session.
type RideDraft struct {
	Client     *Client    `json:"client"`
	Locations  Locations  `json:"locations"`
	Zone       *Zone      `json:"zone"`
	Product    *Product   `json:"product"`
	Timestamps Timestamps `json:"timestamps"`
	Validation Validation `json:"validation"`
}

// NewRideDraft returns an empty draft stamped at now.
func NewRideDraft(now time.Time) RideDraft {
	return RideDraft{
		Timestamps: Timestamps{Created: now, Updated: now},
	}
}

// Clone returns a deep copy so callers can treat drafts as values.
func (d RideDraft) Clone() RideDraft {
	out := d
	if d.Client != nil {
		c := *d.Client
		out.Client = &c
	}
	if d.Zone != nil {
		z := *d.Zone
		out.Zone = &z
	}
	if d.Product != nil {
		p := *d.Product
		out.Product = &p
	}
	if d.Timestamps.LastValidated != nil {
		t := *d.Timestamps.LastValidated
		out.Timestamps.LastValidated = &t
	}
	out.Locations.Stops = cloneAddresses(d.Locations.Stops)
	return out
}

func cloneAddresses(in []Address) []Address {
	if in == nil {
		return nil
	}
	out := make([]Address, len(in))
	copy(out, in)
	return out
}
