package lookup

import (
	"context"
	"time"

	"nemt_portal_backend/internal/rides/domain"
	"nemt_portal_backend/platform/logger"
)

// ProductClient fetches the products and fare estimates for a trip.
type ProductClient struct {
	hook webhook
}

// NewProductClient creates a product/fare lookup client.
func NewProductClient(url, apiKey string, timeout time.Duration, log *logger.Logger) *ProductClient {
	return &ProductClient{hook: newWebhook("product_lookup", url, apiKey, timeout, log)}
}

// Place is an address with its coordinates.
type Place struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Scheduling describes when the ride is wanted.
type Scheduling struct {
	PickupTime string `json:"pickup_time"`
	PickupDay  string `json:"pickup_day"`
	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
}

// ProductQuery is the body sent to the product lookup webhook.
type ProductQuery struct {
	RideType   string     `json:"ride_type"`
	Scheduling Scheduling `json:"scheduling"`
	Token      string     `json:"token"`
	Pickup     Place      `json:"pickup"`
	Dropoff    Place      `json:"dropoff"`
	Waypoints  []Place    `json:"waypoints"`
}

type apiProductOption struct {
	Product struct {
		ProductID   flexString `json:"product_id"`
		DisplayName string     `json:"display_name"`
		Capacity    flexInt    `json:"capacity"`
	} `json:"product"`
	Estimate struct {
		Fare struct {
			FareID  flexString `json:"fare_id"`
			Value   flexString `json:"value"`
			Display string     `json:"display"`
		} `json:"fare"`
		Trip struct {
			DistanceEstimate flexString `json:"distance_estimate"`
			DurationEstimate flexString `json:"duration_estimate"`
		} `json:"trip"`
	} `json:"estimate"`
}

// Products returns the bookable products for the query.
func (c *ProductClient) Products(ctx context.Context, query ProductQuery) ([]domain.Product, error) {
	if query.Waypoints == nil {
		query.Waypoints = []Place{}
	}

	var options []apiProductOption
	if err := c.hook.post(ctx, query, &options); err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(options))
	for _, o := range options {
		amount := o.Estimate.Fare.Display
		if amount == "" {
			amount = string(o.Estimate.Fare.Value)
		}
		products = append(products, domain.Product{
			ID:       string(o.Product.ProductID),
			Name:     o.Product.DisplayName,
			Capacity: int(o.Product.Capacity),
			Estimate: domain.FareEstimate{
				Amount:   amount,
				FareID:   string(o.Estimate.Fare.FareID),
				Distance: string(o.Estimate.Trip.DistanceEstimate),
				Duration: string(o.Estimate.Trip.DurationEstimate),
			},
		})
	}
	return products, nil
}
