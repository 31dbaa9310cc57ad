package transport

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyang/xactlock/internal/domain/event"
	porteventbus "github.com/alanyang/xactlock/internal/port/eventbus"
	lockstatussvc "github.com/alanyang/xactlock/internal/service/lockstatus"

	healthhandler "github.com/alanyang/xactlock/internal/transport/health"
	lockshandler "github.com/alanyang/xactlock/internal/transport/locks"
	wshandler "github.com/alanyang/xactlock/internal/transport/ws"
)

// NewRouter builds the inspection server. bus may be nil, in which case the
// websocket stream stays open but silent.
func NewRouter(
	ctx context.Context,
	statusSvc *lockstatussvc.Service,
	db healthhandler.Pinger,
	bus porteventbus.EventBus,
	gatherer prometheus.Gatherer,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(CORSMiddleware())

	healthhandler.Register(r, db)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	lockshandler.Register(api.Group("/locks"), statusSvc)

	hub := wshandler.NewHub()
	hub.Register(api.Group("/ws"))

	// Bridge: one LISTEN connection forwards every process's lock events to
	// websocket clients.
	if bus != nil {
		if _, err := bus.Subscribe(ctx, func(_ context.Context, e event.Event) {
			hub.Broadcast(e)
		}); err != nil {
			slog.Error("failed to subscribe lock events to WS hub", "error", err)
		}
	}

	return r
}
