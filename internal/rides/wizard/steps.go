package wizard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"nemt_portal_backend/internal/datastore"
	"nemt_portal_backend/internal/rides/domain"
	"nemt_portal_backend/internal/rides/lookup"
	"nemt_portal_backend/internal/rides/submission"
	"nemt_portal_backend/platform/apperr"

	"github.com/google/uuid"
)

// SubmitClientLocations records the client and addresses, then looks up the
// zones around the pickup address.
func (c *Controller) SubmitClientLocations(ctx context.Context, ownerID uuid.UUID, id string, in ClientLocationsInput) (*Session, error) {
	return c.advance(ctx, ownerID, id, StepZone, func(s *Session) error {
		snap, err := c.fetchDirectory(ctx, in.ClientID)
		if err != nil {
			return err
		}

		client, ok := findEligible(snap, in.ClientID)
		if !ok {
			return apperr.Validation("client is not eligible for ride scheduling")
		}

		byID := make(map[string]datastore.AddressRecord)
		for _, a := range activeOnly(snap.addresses) {
			byID[a.ID] = a
		}
		pickup, ok := byID[in.PickupID]
		if !ok {
			return apperr.Validation("pickup must be one of the client's active addresses")
		}
		dropoff, ok := byID[in.DropoffID]
		if !ok {
			return apperr.Validation("dropoff must be one of the client's active addresses")
		}
		stops := make([]domain.Address, 0, len(in.StopIDs))
		for _, stopID := range in.StopIDs {
			stop, ok := byID[stopID]
			if !ok {
				return apperr.Validation("every stop must be one of the client's active addresses")
			}
			stops = append(stops, toAddress(stop))
		}

		now := c.now()
		draftClient := domain.Client{
			ID:        client.ID,
			FirstName: client.FirstName,
			LastName:  client.LastName,
			Phone:     client.Phone,
			Language:  client.Language,
			Email:     client.Email,
		}
		locations := domain.Locations{Pickup: toAddress(pickup), Dropoff: toAddress(dropoff), Stops: stops}
		s.Draft = domain.UpdateRideData(s.Draft, domain.Update{Client: &draftClient}, domain.SectionClient, now)
		s.Draft = domain.UpdateRideData(s.Draft, domain.Update{Locations: &locations}, domain.SectionLocations, now)

		if !s.Draft.Validation.Client {
			return apperr.Validation("client record is missing a name, phone number or language")
		}
		if !s.Draft.Validation.Locations {
			return apperr.Validation("pickup and dropoff need an address and coordinates")
		}

		point, err := parseCoordinate(pickup.Latitude, pickup.Longitude)
		if err != nil {
			return apperr.Validation("pickup address has no valid coordinates")
		}

		zones, err := c.zones.Zones(ctx, point.Latitude, point.Longitude)
		if err != nil {
			return apperr.Upstream("zone lookup failed: "+err.Error(), err)
		}
		if len(zones) == 0 {
			return apperr.Validation("no service zone covers the pickup address")
		}

		s.Zones = zones
		return nil
	})
}

// SelectZone picks one of the zones returned for the pickup address.
func (c *Controller) SelectZone(ctx context.Context, ownerID uuid.UUID, id, zoneID string) (*Session, error) {
	return c.advance(ctx, ownerID, id, StepSchedule, func(s *Session) error {
		var selected *domain.Zone
		for i := range s.Zones {
			if s.Zones[i].ID == zoneID {
				selected = &s.Zones[i]
				break
			}
		}
		if selected == nil {
			return apperr.Validation("select one of the zones returned for the pickup address")
		}

		s.Draft = domain.UpdateRideData(s.Draft, domain.Update{Zone: selected}, domain.SectionZone, c.now())
		if !s.Draft.Validation.Zone {
			return apperr.Validation("selected zone is missing its label or coordinates")
		}
		return nil
	})
}

// SubmitSchedule records the ride type and timing, then prices the trip.
func (c *Controller) SubmitSchedule(ctx context.Context, ownerID uuid.UUID, id string, in ScheduleInput) (*Session, error) {
	return c.advance(ctx, ownerID, id, StepProduct, func(s *Session) error {
		if strings.TrimSpace(in.RideType) == "" {
			return apperr.Validation("ride type is required")
		}
		rideType, ok := submission.ParseRideType(in.RideType)
		if !ok {
			return apperr.Validation(fmt.Sprintf("unknown ride type %q", in.RideType))
		}

		schedule := Schedule{}
		if rideType != submission.RideTypeImmediate {
			schedule = Schedule{
				Date:     strings.TrimSpace(in.Date),
				Time:     strings.TrimSpace(in.Time),
				Timezone: strings.TrimSpace(in.Timezone),
			}
		}
		scheduling, err := submission.DeriveScheduling(rideType, submission.Schedule(schedule))
		if err != nil {
			if errors.Is(err, submission.ErrMissingSchedule) {
				return apperr.Validation("date, time and timezone are required for this ride type")
			}
			return apperr.Validation(err.Error())
		}

		// The type and timing are kept even if pricing fails.
		s.RideType = string(rideType)
		s.Schedule = schedule

		query, err := productQuery(s.Draft, rideType, schedule, scheduling)
		if err != nil {
			return err
		}

		products, err := c.products.Products(ctx, query)
		if err != nil {
			return apperr.Upstream("product lookup failed: "+err.Error(), err)
		}
		if len(products) == 0 {
			return apperr.Validation("no products are available for this trip")
		}

		s.Products = products
		return nil
	})
}

// SelectProduct picks one product and fare estimate.
func (c *Controller) SelectProduct(ctx context.Context, ownerID uuid.UUID, id string, in ProductInput) (*Session, error) {
	return c.advance(ctx, ownerID, id, StepReview, func(s *Session) error {
		var selected *domain.Product
		for i := range s.Products {
			p := &s.Products[i]
			if p.ID == in.ProductID && (in.FareID == "" || p.Estimate.FareID == in.FareID) {
				selected = p
				break
			}
		}
		if selected == nil {
			return apperr.Validation("select one of the offered products")
		}

		s.Draft = domain.UpdateRideData(s.Draft, domain.Update{Product: selected}, domain.SectionProduct, c.now())
		if !s.Draft.Validation.Product {
			return apperr.Validation("selected product has no complete fare estimate")
		}
		return nil
	})
}

func productQuery(draft domain.RideDraft, rideType submission.RideType, schedule Schedule, scheduling submission.Scheduling) (lookup.ProductQuery, error) {
	pickup, err := toPlace(draft.Locations.Pickup)
	if err != nil {
		return lookup.ProductQuery{}, apperr.Validation("pickup address has no valid coordinates")
	}
	dropoff, err := toPlace(draft.Locations.Dropoff)
	if err != nil {
		return lookup.ProductQuery{}, apperr.Validation("dropoff address has no valid coordinates")
	}
	waypoints := make([]lookup.Place, 0, len(draft.Locations.Stops))
	for _, stop := range draft.Locations.Stops {
		place, err := toPlace(stop)
		if err != nil {
			return lookup.ProductQuery{}, apperr.Validation("a stop address has no valid coordinates")
		}
		waypoints = append(waypoints, place)
	}

	token := ""
	if draft.Zone != nil {
		token = draft.Zone.Token
	}

	return lookup.ProductQuery{
		RideType: string(rideType),
		Scheduling: lookup.Scheduling{
			PickupTime: scheduling.PickupTime,
			PickupDay:  scheduling.PickupDay,
			Date:       schedule.Date,
			Time:       schedule.Time,
			Timezone:   schedule.Timezone,
		},
		Token:     token,
		Pickup:    pickup,
		Dropoff:   dropoff,
		Waypoints: waypoints,
	}, nil
}

func findEligible(snap directorySnapshot, clientID string) (datastore.ClientRecord, bool) {
	for _, client := range snap.eligible() {
		if client.ID == clientID {
			return client, true
		}
	}
	return datastore.ClientRecord{}, false
}

func toAddress(a datastore.AddressRecord) domain.Address {
	return domain.Address{
		ID:           a.ID,
		Address:      a.Address,
		Latitude:     a.Latitude,
		Longitude:    a.Longitude,
		Instructions: a.Instructions,
	}
}

func toPlace(a domain.Address) (lookup.Place, error) {
	point, err := parseCoordinate(a.Latitude, a.Longitude)
	if err != nil {
		return lookup.Place{}, err
	}
	return lookup.Place{Address: a.Address, Latitude: point.Latitude, Longitude: point.Longitude}, nil
}

var errInvalidCoordinate = errors.New("invalid coordinate")

func parseCoordinate(lat, lng string) (submission.Coordinate, error) {
	latitude, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil || math.IsNaN(latitude) || latitude < -90 || latitude > 90 {
		return submission.Coordinate{}, errInvalidCoordinate
	}
	longitude, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil || math.IsNaN(longitude) || longitude < -180 || longitude > 180 {
		return submission.Coordinate{}, errInvalidCoordinate
	}
	return submission.Coordinate{Latitude: latitude, Longitude: longitude}, nil
}
