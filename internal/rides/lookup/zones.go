package lookup

import (
	"context"
	"time"

	"nemt_portal_backend/internal/rides/domain"
	"nemt_portal_backend/platform/logger"
)

// ZoneClient resolves the pickup zones around a coordinate.
type ZoneClient struct {
	hook  webhook
	token string
}

// NewZoneClient creates a zone lookup client. token is sent with every request.
func NewZoneClient(url, token, apiKey string, timeout time.Duration, log *logger.Logger) *ZoneClient {
	return &ZoneClient{
		hook:  newWebhook("zone_lookup", url, apiKey, timeout, log),
		token: token,
	}
}

type zoneRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Token     string  `json:"token"`
}

type zoneResponse struct {
	Zones []apiZone  `json:"zones"`
	Token flexString `json:"token"`
}

type apiZone struct {
	ID          flexString `json:"id"`
	Label       string     `json:"label"`
	Instruction string     `json:"instruction"`
	Note        string     `json:"note"`
	Lat         flexString `json:"lat"`
	Long        flexString `json:"long"`
	Token       flexString `json:"token"`
}

// Zones returns the zones containing the given pickup point.
func (c *ZoneClient) Zones(ctx context.Context, latitude, longitude float64) ([]domain.Zone, error) {
	var resp zoneResponse
	req := zoneRequest{Latitude: latitude, Longitude: longitude, Token: c.token}
	if err := c.hook.post(ctx, req, &resp); err != nil {
		return nil, err
	}

	zones := make([]domain.Zone, 0, len(resp.Zones))
	for _, z := range resp.Zones {
		token := string(z.Token)
		if token == "" {
			token = string(resp.Token)
		}
		zones = append(zones, domain.Zone{
			ID:          string(z.ID),
			Label:       z.Label,
			Instruction: z.Instruction,
			Note:        z.Note,
			Latitude:    string(z.Lat),
			Longitude:   string(z.Long),
			Token:       token,
		})
	}
	return zones, nil
}
