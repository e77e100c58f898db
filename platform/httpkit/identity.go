package httpkit

import (
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Roles carried in the access token's roles claim.
const (
	RoleAdmin      = "admin"
	RoleDispatcher = "dispatcher"
)

// Identity is the back-office operator behind a request, as established by
// AuthRequired. Handlers read it instead of touching the gin context keys.
type Identity interface {
	// UserID is the token subject. Wizard sessions and submission history
	// are scoped by it.
	UserID() uuid.UUID
	HasRole(role string) bool
	IsAuthenticated() bool
}

type operator struct {
	id    uuid.UUID
	roles []string
}

func (o operator) UserID() uuid.UUID { return o.id }

func (o operator) HasRole(role string) bool { return slices.Contains(o.roles, role) }

func (o operator) IsAuthenticated() bool { return o.id != uuid.Nil }

// GetIdentity reads the operator from the gin context. The identity is
// unauthenticated when AuthRequired has not run for the route.
func GetIdentity(c *gin.Context) Identity {
	var op operator
	if v, ok := c.Get(ContextUserIDKey); ok {
		op.id, _ = v.(uuid.UUID)
	}
	if v, ok := c.Get(ContextRolesKey); ok {
		op.roles, _ = v.([]string)
	}
	return op
}

// MustGetIdentity returns the authenticated operator, or aborts with 401 and
// returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		abortUnauthorized(c, "unauthorized")
		return nil
	}
	return id
}
