package transport

import (
	"time"

	"nemt_portal_backend/internal/datastore"
	"nemt_portal_backend/internal/rides/domain"
	"nemt_portal_backend/internal/rides/history"
	"nemt_portal_backend/internal/rides/submission"
	"nemt_portal_backend/internal/rides/wizard"

	"github.com/google/uuid"
)

type ClientLocationsRequest struct {
	ClientID  string   `json:"clientId" validate:"required,notblank,max=64"`
	PickupID  string   `json:"pickupId" validate:"required,notblank,max=64"`
	DropoffID string   `json:"dropoffId" validate:"required,notblank,max=64"`
	StopIDs   []string `json:"stopIds,omitempty" validate:"omitempty,max=5,dive,required,max=64"`
}

type SelectZoneRequest struct {
	ZoneID string `json:"zoneId" validate:"required,notblank,max=64"`
}

type ScheduleRequest struct {
	RideType string `json:"rideType" validate:"required,notblank,max=20"`
	Date     string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Time     string `json:"time,omitempty" validate:"omitempty,max=8"`
	Timezone string `json:"timezone,omitempty" validate:"omitempty,max=64"`
}

type SelectProductRequest struct {
	ProductID string `json:"productId" validate:"required,notblank,max=64"`
	FareID    string `json:"fareId,omitempty" validate:"omitempty,max=128"`
}

type SubmitRideRequest struct {
	DriverNote string `json:"driverNote,omitempty" validate:"omitempty,max=500"`
	GuestEmail string `json:"guestEmail,omitempty" validate:"omitempty,email"`
}

type ListSubmissionsRequest struct {
	ClientID string `form:"clientId" validate:"omitempty,max=64"`
	Status   string `form:"status" validate:"omitempty,oneof=success failure"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type ZoneResponse struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Instruction string `json:"instruction,omitempty"`
	Note        string `json:"note,omitempty"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
}

type SessionResponse struct {
	ID        string             `json:"id"`
	Step      wizard.Step        `json:"step"`
	Draft     domain.RideDraft   `json:"draft"`
	Zones     []ZoneResponse     `json:"zones"`
	Products  []domain.Product   `json:"products"`
	RideType  string             `json:"rideType,omitempty"`
	Schedule  wizard.Schedule    `json:"schedule"`
	LastError string             `json:"lastError,omitempty"`
	Result    *submission.Result `json:"result,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// NewSessionResponse builds the API view of a session. Zone dispatch tokens
// never leave the server.
func NewSessionResponse(s *wizard.Session) SessionResponse {
	draft := s.Draft.Clone()
	if draft.Zone != nil {
		draft.Zone.Token = ""
	}

	zones := make([]ZoneResponse, 0, len(s.Zones))
	for _, z := range s.Zones {
		zones = append(zones, ZoneResponse{
			ID:          z.ID,
			Label:       z.Label,
			Instruction: z.Instruction,
			Note:        z.Note,
			Latitude:    z.Latitude,
			Longitude:   z.Longitude,
		})
	}

	products := s.Products
	if products == nil {
		products = []domain.Product{}
	}

	return SessionResponse{
		ID:        s.ID,
		Step:      s.Step,
		Draft:     draft,
		Zones:     zones,
		Products:  products,
		RideType:  s.RideType,
		Schedule:  s.Schedule,
		LastError: s.LastError,
		Result:    s.Result,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

type ClientResponse struct {
	ID         string   `json:"id"`
	FirstName  string   `json:"firstName"`
	LastName   string   `json:"lastName"`
	Phone      string   `json:"phone"`
	Email      string   `json:"email,omitempty"`
	Language   string   `json:"language"`
	Programs   []string `json:"programs"`
	Activities []string `json:"activities"`
}

type ClientListResponse struct {
	Items []ClientResponse `json:"items"`
	Total int              `json:"total"`
}

func NewClientListResponse(clients []datastore.ClientRecord) ClientListResponse {
	items := make([]ClientResponse, 0, len(clients))
	for _, c := range clients {
		items = append(items, ClientResponse{
			ID:         c.ID,
			FirstName:  c.FirstName,
			LastName:   c.LastName,
			Phone:      c.Phone,
			Email:      c.Email,
			Language:   c.Language,
			Programs:   nonNil(c.Programs),
			Activities: nonNil(c.Activities),
		})
	}
	return ClientListResponse{Items: items, Total: len(items)}
}

type AddressResponse struct {
	ID           string `json:"id"`
	Address      string `json:"address"`
	Latitude     string `json:"latitude"`
	Longitude    string `json:"longitude"`
	Instructions string `json:"instructions,omitempty"`
}

type AddressListResponse struct {
	Items []AddressResponse `json:"items"`
}

func NewAddressListResponse(addresses []datastore.AddressRecord) AddressListResponse {
	items := make([]AddressResponse, 0, len(addresses))
	for _, a := range addresses {
		items = append(items, AddressResponse{
			ID:           a.ID,
			Address:      a.Address,
			Latitude:     a.Latitude,
			Longitude:    a.Longitude,
			Instructions: a.Instructions,
		})
	}
	return AddressListResponse{Items: items}
}

type SubmissionResponse struct {
	ID             uuid.UUID  `json:"id"`
	SessionID      string     `json:"sessionId"`
	ClientID       string     `json:"clientId"`
	FareID         string     `json:"fareId"`
	ProductID      string     `json:"productId"`
	RideType       string     `json:"rideType"`
	ScheduledFor   *time.Time `json:"scheduledFor,omitempty"`
	Status         string     `json:"status"`
	Code           *string    `json:"code,omitempty"`
	Message        string     `json:"message"`
	WebhookStatus  *string    `json:"webhookStatus,omitempty"`
	WebhookMessage *string    `json:"webhookMessage,omitempty"`
	SubmittedBy    uuid.UUID  `json:"submittedBy"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type SubmissionListResponse struct {
	Items      []SubmissionResponse `json:"items"`
	Total      int                  `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"pageSize"`
	TotalPages int                  `json:"totalPages"`
}

func NewSubmissionListResponse(result history.ListResult) SubmissionListResponse {
	items := make([]SubmissionResponse, 0, len(result.Items))
	for _, s := range result.Items {
		items = append(items, SubmissionResponse(s))
	}
	return SubmissionListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
