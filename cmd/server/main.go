package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"
	_ "go.uber.org/automaxprocs"

	"github.com/ascendpay/ascendpay-backend/internal/application/health"
	"github.com/ascendpay/ascendpay-backend/internal/application/registry"
	"github.com/ascendpay/ascendpay-backend/internal/application/sdk/mux"
	"github.com/ascendpay/ascendpay-backend/internal/config"
	"github.com/ascendpay/ascendpay-backend/internal/domain/tenant"
	httpServer "github.com/ascendpay/ascendpay-backend/internal/infra/adapters/http"
	handler "github.com/ascendpay/ascendpay-backend/internal/infra/adapters/http/handler"
	"github.com/ascendpay/ascendpay-backend/internal/infra/metrics"
	"github.com/ascendpay/ascendpay-backend/internal/infra/storage/postgres"
	"github.com/ascendpay/ascendpay-backend/pkg/common/logger"
	"github.com/ascendpay/ascendpay-backend/pkg/common/otel"
	"github.com/ascendpay/ascendpay-backend/pkg/common/validate"
)

// build is set at link time.
var build = "develop"

const shutdownTimeout = 20 * time.Second

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	// Error records are also attached to the active span.
	events := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			trace.SpanFromContext(ctx).AddEvent(r.Message)
		},
	}
	log := logger.NewWithEvents(os.Stdout, level, cfg.ServiceName, otel.GetTraceID, events)

	ctx := context.Background()
	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "startup", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	log.Info(ctx, "starting tenant database service", "build", build, "port", cfg.Port)

	// -------------------------------------------------------------------------
	// Telemetry

	tp, shutdownTelemetry, err := otel.InitTelemetry(ctx, otel.Config{
		ServiceName:      cfg.ServiceName,
		ExporterEndpoint: cfg.OTELExporterEndpoint,
		Probability:      cfg.OTELSampleProbability,
		ResourceAttributes: map[string]string{
			"service.version": build,
		},
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			log.Error(ctx, "shutting down telemetry", "error", err)
		}
	}()
	tracer := tp.Tracer(cfg.ServiceName)

	metricsRegistry, err := metrics.NewRegistry(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}

	// -------------------------------------------------------------------------
	// Tenant connection registry

	pgConnector, err := postgres.NewConnector(postgres.Config{
		BaseURI:  cfg.DatabaseURIBase,
		MinConns: cfg.TenantPoolMinConns,
		MaxConns: cfg.TenantPoolMaxConns,
	}, log, tracer)
	if err != nil {
		return fmt.Errorf("creating tenant connector: %w", err)
	}

	var connector registry.Connector = pgConnector
	if cfg.TenantMigrationsPath != "" {
		migrating, err := pgConnector.WithMigrations(cfg.TenantMigrationsPath)
		if err != nil {
			return fmt.Errorf("configuring tenant migrations: %w", err)
		}
		connector = migrating
	}

	// The checker is assigned before the first GetOrCreate, so every
	// settlement sees it.
	var checker *health.Checker
	tenants := registry.New(connector,
		registry.WithLogger(log),
		registry.WithTracer(tracer),
		registry.WithMetrics(metricsRegistry.Connections),
		registry.WithConnectTimeout(cfg.TenantConnectTimeout),
		registry.WithListener(func(ctx context.Context, _ registry.Event) {
			checker.Readiness(ctx)
		}),
	)
	// Readiness follows the bootstrap tenants only; handles created on demand
	// through the API never take the service out of rotation.
	required := make([]tenant.ID, 0, len(cfg.BootstrapTenants))
	for _, id := range cfg.BootstrapTenants {
		required = append(required, tenant.ID(id))
	}
	checker = health.NewChecker(tenants, metricsRegistry.Health, required)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tenants.Close(ctx); err != nil {
			log.Error(ctx, "closing tenant connections", "error", err)
		}
	}()

	for _, id := range cfg.BootstrapTenants {
		if _, err := tenants.GetOrCreate(ctx, id); err != nil {
			if errors.Is(err, tenant.ErrInvalidTenantID) {
				log.Warn(ctx, "skipping bootstrap tenant", "tenant_id", id, "error", err)
				continue
			}
			return fmt.Errorf("bootstrapping tenant %q: %w", id, err)
		}
	}

	// -------------------------------------------------------------------------
	// HTTP

	v, err := validate.New()
	if err != nil {
		return fmt.Errorf("creating validator: %w", err)
	}

	root, err := mux.WrapWithMiddleware(mux.Config{
		Build:          build,
		Service:        cfg.ServiceName,
		Log:            log,
		TracerProvider: tp,
		APIMetrics:     metricsRegistry.API,
		Health:         checker,
	},
		httpServer.NewRouter(handler.NewConnectionHandler(tenants, v)),
		mux.WithCORS(cfg.CORSOrigins),
		mux.WithStatsViz(cfg.DebugStatsviz),
	)
	if err != nil {
		return fmt.Errorf("building http handler: %w", err)
	}

	server := httpServer.NewHTTPServer(cfg.Addr(), root, log)

	serverErrors := make(chan error, 1)
	go func() {
		log.Info(ctx, "http server listening", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil

	case sig := <-shutdown:
		log.Info(ctx, "shutdown started", "signal", sig.String())
		defer log.Info(ctx, "shutdown complete", "signal", sig.String())

		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			_ = server.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}
