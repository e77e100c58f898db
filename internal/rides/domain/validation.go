package domain

import (
	"strings"
	"time"
)

// Section names one validated part of a RideDraft.
type Section string

const (
	SectionClient    Section = "client"
	SectionLocations Section = "locations"
	SectionZone      Section = "zone"
	SectionProduct   Section = "product"
)

// requiredFields builds a predicate that is true when target is non-nil and
// every accessor yields a non-blank string after trimming.
func requiredFields[T any](accessors ...func(*T) string) func(*T) bool {
	return func(target *T) bool {
		if target == nil {
			return false
		}
		for _, get := range accessors {
			if strings.TrimSpace(get(target)) == "" {
				return false
			}
		}
		return true
	}
}

var (
	clientComplete = requiredFields(
		func(c *Client) string { return c.FirstName },
		func(c *Client) string { return c.LastName },
		func(c *Client) string { return c.Phone },
		func(c *Client) string { return c.Language },
	)

	locationsComplete = requiredFields(
		func(l *Locations) string { return l.Pickup.ID },
		func(l *Locations) string { return l.Pickup.Address },
		func(l *Locations) string { return l.Pickup.Latitude },
		func(l *Locations) string { return l.Pickup.Longitude },
		func(l *Locations) string { return l.Dropoff.ID },
		func(l *Locations) string { return l.Dropoff.Address },
		func(l *Locations) string { return l.Dropoff.Latitude },
		func(l *Locations) string { return l.Dropoff.Longitude },
	)

	zoneComplete = requiredFields(
		func(z *Zone) string { return z.ID },
		func(z *Zone) string { return z.Label },
		func(z *Zone) string { return z.Latitude },
		func(z *Zone) string { return z.Longitude },
	)

	productComplete = requiredFields(
		func(p *Product) string { return p.ID },
		func(p *Product) string { return p.Name },
		func(p *Product) string { return p.Estimate.Amount },
		func(p *Product) string { return p.Estimate.FareID },
		func(p *Product) string { return p.Estimate.Distance },
		func(p *Product) string { return p.Estimate.Duration },
	)
)

// ValidateClientInfo reports whether first name, last name, phone and language are present.
func ValidateClientInfo(client *Client) bool {
	return clientComplete(client)
}

// ValidateLocations reports whether pickup and dropoff are both fully populated.
// Stops are optional and never affect the result.
func ValidateLocations(locations Locations) bool {
	return locationsComplete(&locations)
}

// ValidateZone reports whether a zone with id, label and coordinates is selected.
func ValidateZone(zone *Zone) bool {
	return zoneComplete(zone)
}

// ValidateProduct reports whether a product with a complete fare estimate is selected.
func ValidateProduct(product *Product) bool {
	return productComplete(product)
}

// Update carries the sections to merge into a draft. Nil fields are left alone.
type Update struct {
	Client    *Client
	Locations *Locations
	Zone      *Zone
	Product   *Product
}

// UpdateRideData merges update into current, re-runs the predicate for section
// and recomputes Overall. current is not modified.
func UpdateRideData(current RideDraft, update Update, section Section, now time.Time) RideDraft {
	next := current.Clone()

	if update.Client != nil {
		c := *update.Client
		next.Client = &c
	}
	if update.Locations != nil {
		next.Locations = Locations{
			Pickup:  update.Locations.Pickup,
			Dropoff: update.Locations.Dropoff,
			Stops:   cloneAddresses(update.Locations.Stops),
		}
	}
	if update.Zone != nil {
		z := *update.Zone
		next.Zone = &z
	}
	if update.Product != nil {
		p := *update.Product
		next.Product = &p
	}

	next.Timestamps.Updated = now

	switch section {
	case SectionClient:
		next.Validation.Client = ValidateClientInfo(next.Client)
	case SectionLocations:
		next.Validation.Locations = ValidateLocations(next.Locations)
	case SectionZone:
		next.Validation.Zone = ValidateZone(next.Zone)
	case SectionProduct:
		next.Validation.Product = ValidateProduct(next.Product)
	}

	v := &next.Validation
	v.Overall = v.Client && v.Locations && v.Zone && v.Product
	validated := now
	next.Timestamps.LastValidated = &validated

	return next
}
