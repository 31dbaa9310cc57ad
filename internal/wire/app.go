package wire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	pgdb "github.com/alanyang/xactlock/internal/adapter/postgres"
	pgeventbus "github.com/alanyang/xactlock/internal/adapter/postgres/eventbus"
	pginspect "github.com/alanyang/xactlock/internal/adapter/postgres/inspect"
	pglocker "github.com/alanyang/xactlock/internal/adapter/postgres/locker"

	"github.com/alanyang/xactlock/internal/adapter/metrics"
	"github.com/alanyang/xactlock/internal/adapter/retry"
	"github.com/alanyang/xactlock/internal/config"
	"github.com/alanyang/xactlock/internal/domain/event"
	porteventbus "github.com/alanyang/xactlock/internal/port/eventbus"
	lockstatussvc "github.com/alanyang/xactlock/internal/service/lockstatus"
	"github.com/alanyang/xactlock/internal/transport"
)

// Runtime is what every entry point needs: a pool, a locker publishing lock
// events, and the lock status service.
type Runtime struct {
	Pool      *pgxpool.Pool
	Bus       *pgeventbus.EventBus
	Locker    *pglocker.Locker
	StatusSvc *lockstatussvc.Service
}

func (rt *Runtime) Close() {
	rt.Bus.Close()
	rt.Pool.Close()
}

// App holds the top-level resources needed to run and gracefully stop the
// inspection server.
type App struct {
	*Runtime
	Server   *http.Server
	Registry *prometheus.Registry
}

// BuildRuntime is the composition root for the lock itself. extra publishers
// receive every lock event next to the NOTIFY bus.
func BuildRuntime(ctx context.Context, cfg *config.Config, extra ...porteventbus.Publisher) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	pool, err := pgdb.Connect(ctx, cfg.DatabaseURL, cfg.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	bus := pgeventbus.New(pool)
	ns := cfg.Namespace()
	locker := pglocker.New(pool, retry.New(cfg.Retry),
		pglocker.WithNamespace(ns),
		pglocker.WithPublisher(append(fanout{bus}, extra...)),
		pglocker.WithLogger(slog.Default()),
	)

	return &Runtime{
		Pool:      pool,
		Bus:       bus,
		Locker:    locker,
		StatusSvc: lockstatussvc.NewService(pginspect.New(pool), ns),
	}, nil
}

// Build wires the inspection server on top of a Runtime.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.ValidateServer(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(reg)

	rt, err := BuildRuntime(ctx, cfg, recorder)
	if err != nil {
		return nil, err
	}

	router := transport.NewRouter(ctx, rt.StatusSvc, rt.Pool, rt.Bus, reg)
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	slog.Info("application wired", "port", cfg.Port, "namespace", int64(rt.StatusSvc.Namespace()))

	return &App{
		Runtime:  rt,
		Server:   server,
		Registry: reg,
	}, nil
}

// fanout publishes to every publisher and reports the first failure.
type fanout []porteventbus.Publisher

func (f fanout) Publish(ctx context.Context, e event.Event) error {
	var first error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
