package wizard

import (
	"context"

	"nemt_portal_backend/internal/datastore"
	"nemt_portal_backend/internal/rides/domain"
	"nemt_portal_backend/internal/rides/lookup"
	"nemt_portal_backend/internal/rides/submission"
)

// Directory reads rider records from the external datastore.
type Directory interface {
	ListClients(ctx context.Context) ([]datastore.ClientRecord, error)
	ListAddresses(ctx context.Context, clientID string) ([]datastore.AddressRecord, error)
	ListActiveContracts(ctx context.Context) ([]datastore.ContractRecord, error)
}

// ZoneFinder resolves the pickup zones for a coordinate.
type ZoneFinder interface {
	Zones(ctx context.Context, latitude, longitude float64) ([]domain.Zone, error)
}

// ProductFinder prices the trip.
type ProductFinder interface {
	Products(ctx context.Context, query lookup.ProductQuery) ([]domain.Product, error)
}

// Submitter dispatches the finished ride.
type Submitter interface {
	Submit(ctx context.Context, req submission.Request) submission.Result
}
