package datastore

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ClientRecord is a rider as stored in the datastore.
type ClientRecord struct {
	ID          string   `json:"id"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Phone       string   `json:"phone"`
	Email       string   `json:"email,omitempty"`
	Language    string   `json:"language"`
	Status      string   `json:"status"`
	Reviewed    bool     `json:"reviewed"`
	Programs    []string `json:"programs"`
	Activities  []string `json:"activities"`
	ContractIDs []string `json:"contractIds"`
}

// AddressRecord is a registered address of one or more clients.
type AddressRecord struct {
	ID           string   `json:"id"`
	ClientIDs    []string `json:"clientIds"`
	Address      string   `json:"address"`
	Latitude     string   `json:"latitude"`
	Longitude    string   `json:"longitude"`
	Instructions string   `json:"instructions,omitempty"`
	Active       bool     `json:"active"`
}

// ContractRecord links clients to a funding contract.
type ContractRecord struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Status    string   `json:"status"`
	ClientIDs []string `json:"clientIds"`
}

// SignatureRecord is a signed trip or enrollment document.
type SignatureRecord struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"clientId"`
	SignerName  string    `json:"signerName"`
	SignedAt    time.Time `json:"signedAt"`
	DocumentURL string    `json:"documentUrl"`
}

// ListClients returns every client record.
func (c *Client) ListClients(ctx context.Context) ([]ClientRecord, error) {
	records, err := c.listRecords(ctx, c.tables.Clients)
	if err != nil {
		return nil, err
	}

	clients := make([]ClientRecord, 0, len(records))
	for _, r := range records {
		clients = append(clients, toClient(r))
	}
	return clients, nil
}

// ListAddresses returns the addresses linked to clientID, or all addresses
// when clientID is empty.
func (c *Client) ListAddresses(ctx context.Context, clientID string) ([]AddressRecord, error) {
	records, err := c.listRecords(ctx, c.tables.Addresses)
	if err != nil {
		return nil, err
	}

	addresses := make([]AddressRecord, 0, len(records))
	for _, r := range records {
		a := toAddress(r)
		if clientID != "" && !contains(a.ClientIDs, clientID) {
			continue
		}
		addresses = append(addresses, a)
	}
	return addresses, nil
}

// ListActiveContracts returns contracts whose status is Active.
func (c *Client) ListActiveContracts(ctx context.Context) ([]ContractRecord, error) {
	records, err := c.listRecords(ctx, c.tables.Contracts)
	if err != nil {
		return nil, err
	}

	contracts := make([]ContractRecord, 0, len(records))
	for _, r := range records {
		contract := toContract(r)
		if strings.EqualFold(contract.Status, "active") {
			contracts = append(contracts, contract)
		}
	}
	return contracts, nil
}

// GetSignature loads one signature record.
func (c *Client) GetSignature(ctx context.Context, id string) (SignatureRecord, error) {
	r, err := c.getRecord(ctx, c.tables.Signatures, id)
	if err != nil {
		return SignatureRecord{}, err
	}
	return toSignature(r), nil
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func toClient(r Record) ClientRecord {
	return ClientRecord{
		ID:          r.ID,
		FirstName:   r.Fields.String("First Name", "FirstName"),
		LastName:    r.Fields.String("Last Name", "LastName"),
		Phone:       r.Fields.String("Phone", "Phone Number"),
		Email:       r.Fields.String("Email"),
		Language:    r.Fields.String("Language", "Preferred Language"),
		Status:      r.Fields.String("Status"),
		Reviewed:    r.Fields.Bool("Reviewed"),
		Programs:    r.Fields.Strings("Program", "Programs"),
		Activities:  r.Fields.Strings("Activity", "Activities"),
		ContractIDs: r.Fields.Strings("Contract", "Contracts"),
	}
}

// toAddress treats an address as inactive unless it carries a checked
// Active box or an Active status. Airtable omits unchecked checkboxes.
func toAddress(r Record) AddressRecord {
	active := false
	if _, ok := r.Fields["Active"]; ok {
		active = r.Fields.Bool("Active")
	} else if status := r.Fields.String("Status"); status != "" {
		active = strings.EqualFold(status, "active")
	}

	return AddressRecord{
		ID:           r.ID,
		ClientIDs:    r.Fields.Strings("Client", "Clients"),
		Address:      r.Fields.String("Address", "Full Address"),
		Latitude:     r.Fields.String("Latitude", "Lat"),
		Longitude:    r.Fields.String("Longitude", "Long", "Lng"),
		Instructions: r.Fields.String("Instructions", "Pickup Instructions"),
		Active:       active,
	}
}

func toContract(r Record) ContractRecord {
	return ContractRecord{
		ID:        r.ID,
		Name:      r.Fields.String("Name", "Contract Name"),
		Status:    r.Fields.String("Status"),
		ClientIDs: r.Fields.Strings("Clients", "Client"),
	}
}

func toSignature(r Record) SignatureRecord {
	signedAt := r.CreatedTime
	if raw := r.Fields.String("Signed At", "Date"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			signedAt = t
		} else if t, err := time.Parse(time.DateOnly, raw); err == nil {
			signedAt = t
		}
	}

	return SignatureRecord{
		ID:          r.ID,
		ClientID:    r.Fields.String("Client"),
		SignerName:  r.Fields.String("Signer Name", "Name"),
		SignedAt:    signedAt,
		DocumentURL: r.Fields.AttachmentURL("Document"),
	}
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
