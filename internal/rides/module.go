// Package rides wires the ride scheduling wizard, the dispatch pipeline and
// the submission history into one HTTP module.
package rides

import (
	"nemt_portal_backend/internal/datastore"
	"nemt_portal_backend/internal/events"
	apphttp "nemt_portal_backend/internal/http"
	"nemt_portal_backend/internal/rides/handler"
	"nemt_portal_backend/internal/rides/history"
	"nemt_portal_backend/internal/rides/lookup"
	"nemt_portal_backend/internal/rides/submission"
	"nemt_portal_backend/internal/rides/wizard"
	"nemt_portal_backend/platform/config"
	"nemt_portal_backend/platform/logger"
	"nemt_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the rides bounded context.
type Module struct {
	handler *handler.Handler
}

// NewModule creates the rides module. The guard serializes both wizard
// sessions and duplicate dispatches; pass a Redis-backed guard when more than
// one API instance runs.
func NewModule(
	pool *pgxpool.Pool,
	eventBus events.Bus,
	directory *datastore.Client,
	sessions wizard.SessionStore,
	guard submission.Guard,
	cfg config.RideWebhookConfig,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	dispatcher := submission.NewWebhookDispatcher(cfg.GetDispatchURL(), cfg.GetWebhookAPIKey(), cfg.GetWebhookTimeout(), log)
	pipeline := submission.NewPipeline(guard, dispatcher, log)

	zones := lookup.NewZoneClient(cfg.GetZoneLookupURL(), cfg.GetZoneLookupToken(), cfg.GetWebhookAPIKey(), cfg.GetWebhookTimeout(), log)
	products := lookup.NewProductClient(cfg.GetProductLookupURL(), cfg.GetWebhookAPIKey(), cfg.GetWebhookTimeout(), log)

	ctrl := wizard.NewController(wizard.Deps{
		Store:     sessions,
		Guard:     guard,
		Directory: directory,
		Zones:     zones,
		Products:  products,
		Submitter: pipeline,
		EventBus:  eventBus,
		Logger:    log,
	})

	hist := history.NewService(history.NewRepository(pool), log)
	hist.Subscribe(eventBus)

	return &Module{
		handler: handler.New(ctrl, hist, val),
	}
}

func (m *Module) Name() string {
	return "rides"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/rides")

	wiz := group.Group("/wizard")
	wiz.GET("/clients", m.handler.ListClients)
	wiz.GET("/clients/:clientId/addresses", m.handler.ListAddresses)
	wiz.POST("", m.handler.Start)
	wiz.GET("/:id", m.handler.Get)
	wiz.DELETE("/:id", m.handler.Discard)
	wiz.POST("/:id/client-locations", m.handler.SubmitClientLocations)
	wiz.POST("/:id/zone", m.handler.SelectZone)
	wiz.POST("/:id/schedule", m.handler.SubmitSchedule)
	wiz.POST("/:id/product", m.handler.SelectProduct)
	wiz.POST("/:id/submit", m.handler.Submit)

	group.GET("/submissions", m.handler.ListSubmissions)
}

var _ apphttp.Module = (*Module)(nil)
