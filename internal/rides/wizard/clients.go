package wizard

import (
	"context"
	"strings"

	"nemt_portal_backend/internal/datastore"
	"nemt_portal_backend/platform/apperr"

	"golang.org/x/sync/errgroup"
)

const minActiveAddresses = 2

// directorySnapshot is the datastore state eligibility is computed from.
type directorySnapshot struct {
	clients   []datastore.ClientRecord
	addresses []datastore.AddressRecord
	contracts []datastore.ContractRecord
}

// fetchDirectory reads clients, addresses and contracts concurrently.
// An empty clientID reads every address.
func (c *Controller) fetchDirectory(ctx context.Context, clientID string) (directorySnapshot, error) {
	var snap directorySnapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		snap.clients, err = c.directory.ListClients(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.addresses, err = c.directory.ListAddresses(gctx, clientID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.contracts, err = c.directory.ListActiveContracts(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return directorySnapshot{}, apperr.Upstream("could not load client records: "+err.Error(), err)
	}
	return snap, nil
}

// eligible returns the clients that may be booked.
func (snap directorySnapshot) eligible() []datastore.ClientRecord {
	contracted := make(map[string]bool)
	activeContracts := make(map[string]bool, len(snap.contracts))
	for _, contract := range snap.contracts {
		activeContracts[contract.ID] = true
		for _, id := range contract.ClientIDs {
			contracted[id] = true
		}
	}

	activeAddresses := make(map[string]int)
	for _, a := range snap.addresses {
		if !a.Active {
			continue
		}
		for _, id := range a.ClientIDs {
			activeAddresses[id]++
		}
	}

	out := make([]datastore.ClientRecord, 0, len(snap.clients))
	for _, client := range snap.clients {
		if !strings.EqualFold(client.Status, "active") || !client.Reviewed {
			continue
		}
		if strings.TrimSpace(client.Phone) == "" {
			continue
		}
		if !contracted[client.ID] && !anyActive(client.ContractIDs, activeContracts) {
			continue
		}
		if activeAddresses[client.ID] < minActiveAddresses {
			continue
		}
		out = append(out, client)
	}
	return out
}

func anyActive(ids []string, active map[string]bool) bool {
	for _, id := range ids {
		if active[id] {
			return true
		}
	}
	return false
}

// EligibleClients lists clients that are active, reviewed, reachable by phone,
// under an active contract and registered with at least two active addresses.
func (c *Controller) EligibleClients(ctx context.Context) ([]datastore.ClientRecord, error) {
	snap, err := c.fetchDirectory(ctx, "")
	if err != nil {
		return nil, err
	}
	return snap.eligible(), nil
}

// ClientAddresses lists the active addresses of one client.
func (c *Controller) ClientAddresses(ctx context.Context, clientID string) ([]datastore.AddressRecord, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, apperr.Validation("client id is required")
	}
	addresses, err := c.directory.ListAddresses(ctx, clientID)
	if err != nil {
		return nil, apperr.Upstream("could not load client addresses: "+err.Error(), err)
	}
	return activeOnly(addresses), nil
}

func activeOnly(addresses []datastore.AddressRecord) []datastore.AddressRecord {
	out := make([]datastore.AddressRecord, 0, len(addresses))
	for _, a := range addresses {
		if a.Active {
			out = append(out, a)
		}
	}
	return out
}
