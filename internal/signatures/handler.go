package signatures

import (
	"net/http"
	"strings"

	"nemt_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler handles signature export requests.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Export queues a signature for export.
// POST /api/v1/signatures/:id/export
func (h *Handler) Export(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		httpkit.Error(c, http.StatusBadRequest, "missing signature id", nil)
		return
	}

	if err := h.svc.RequestExport(c.Request.Context(), id, identity.UserID()); httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, gin.H{"status": "queued", "signatureId": id})
}
