// Package postgres opens per-tenant Postgres connection pools for the
// tenant connection registry.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ascendpay/ascendpay-backend/internal/application/registry"
	"github.com/ascendpay/ascendpay-backend/internal/domain/tenant"
	"github.com/ascendpay/ascendpay-backend/internal/infra/storage"
	"github.com/ascendpay/ascendpay-backend/pkg/common/logger"
)

var _ registry.Connector = (*Connector)(nil)

// ErrInvalidBaseURI is returned when the base address cannot be used to
// compose tenant addresses.
var ErrInvalidBaseURI = errors.New("invalid database base uri")

// Config controls how tenant pools are built.
type Config struct {
	// BaseURI is the address each tenant id is appended to, for example
	// "postgres://user:pass@db:5432/" or "postgres://db:5432/ascendpay_".
	BaseURI  string
	MinConns int32
	MaxConns int32
}

// Connector composes tenant DSNs and opens traced pgx pools.
type Connector struct {
	base   *url.URL
	cfg    Config
	logger *logger.Logger
	tracer trace.Tracer
}

// NewConnector validates cfg.BaseURI and returns a Connector.
func NewConnector(cfg Config, log *logger.Logger, tracer trace.Tracer) (*Connector, error) {
	base, err := parseBase(cfg.BaseURI)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 && cfg.MinConns > cfg.MaxConns {
		return nil, fmt.Errorf("min conns %d exceeds max conns %d", cfg.MinConns, cfg.MaxConns)
	}

	return &Connector{
		base:   base,
		cfg:    cfg,
		logger: log.With("component", "tenant_connector"),
		tracer: tracer,
	}, nil
}

func parseBase(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidBaseURI)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURI, err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidBaseURI, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidBaseURI)
	}
	return u, nil
}

// Target appends the tenant id to the base path. The query string is kept
// and the redacted form hides the password.
func (c *Connector) Target(id tenant.ID) registry.Target {
	u := *c.base

	path := u.Path
	if path == "" {
		path = "/"
	}
	u.Path = path + id.String()
	u.RawPath = ""

	return registry.Target{
		TenantID: id,
		DSN:      u.String(),
		Redacted: u.Redacted(),
	}
}

// Open builds the pool for target. The pool connects lazily, so reachability
// is only known after the registry pings it.
func (c *Connector) Open(ctx context.Context, target registry.Target) (registry.Conn, error) {
	var pool *pgxpool.Pool

	err := storage.ExecuteAndTrace(ctx, c.tracer, "postgres.Connector.Open", []attribute.KeyValue{
		attribute.String("tenant_id", target.TenantID.String()),
		attribute.String("db.connection_string", target.Redacted),
	}, func(ctx context.Context) error {
		poolCfg, err := pgxpool.ParseConfig(target.DSN)
		if err != nil {
			// pgx echoes the connection string in parse errors.
			return fmt.Errorf("parsing connection config for %s failed", target.Redacted)
		}
		if c.cfg.MinConns > 0 {
			poolCfg.MinConns = c.cfg.MinConns
		}
		if c.cfg.MaxConns > 0 {
			poolCfg.MaxConns = c.cfg.MaxConns
		}
		poolCfg.ConnConfig.Tracer = otelpgx.NewTracer(
			otelpgx.WithAttributes(attribute.String("tenant_id", target.TenantID.String())),
		)

		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return fmt.Errorf("creating pool: %w", err)
		}

		if err := otelpgx.RecordStats(pool); err != nil {
			c.logger.Warn(ctx, "unable to record pool stats",
				"tenant_id", target.TenantID,
				"error", err,
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pool, nil
}
