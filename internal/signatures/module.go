package signatures

import (
	"nemt_portal_backend/internal/events"
	apphttp "nemt_portal_backend/internal/http"
	"nemt_portal_backend/internal/scheduler"
	"nemt_portal_backend/platform/httpkit"
	"nemt_portal_backend/platform/logger"
)

// Module wires the signature export HTTP routes.
type Module struct {
	handler *Handler
}

func NewModule(queue scheduler.SignatureExportScheduler, signatures SignatureReader, bus events.Bus, log *logger.Logger) *Module {
	svc := NewService(queue, signatures, bus, log)
	svc.Subscribe(bus)
	return &Module{handler: NewHandler(svc)}
}

func (m *Module) Name() string {
	return "signatures"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/signatures", httpkit.RequireRole(httpkit.RoleAdmin))
	group.POST("/:id/export", m.handler.Export)
}

var _ apphttp.Module = (*Module)(nil)
