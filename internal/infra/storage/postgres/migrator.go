package postgres

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ascendpay/ascendpay-backend/internal/application/registry"
	"github.com/ascendpay/ascendpay-backend/internal/infra/storage"
)

var (
	_ registry.Connector = (*MigratingConnector)(nil)
	_ registry.Preparer  = (*MigratingConnector)(nil)
)

// MigratingConnector is a Connector that also applies schema migrations to
// every tenant database once it is reachable.
type MigratingConnector struct {
	*Connector
	sourceURL string
}

// WithMigrations returns a connector that runs the migrations found in dir
// as the registry's prepare step.
func (c *Connector) WithMigrations(dir string) (*MigratingConnector, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving migrations path %q: %w", dir, err)
	}
	return &MigratingConnector{Connector: c, sourceURL: "file://" + filepath.ToSlash(abs)}, nil
}

// Prepare applies all pending up migrations to the tenant database.
func (m *MigratingConnector) Prepare(ctx context.Context, target registry.Target, conn registry.Conn) error {
	pool, ok := conn.(*pgxpool.Pool)
	if !ok {
		return fmt.Errorf("unexpected connection type %T", conn)
	}

	return storage.ExecuteAndTrace(ctx, m.tracer, "postgres.MigratingConnector.Prepare", []attribute.KeyValue{
		attribute.String("tenant_id", target.TenantID.String()),
		attribute.String("migrations.source", m.sourceURL),
	}, func(ctx context.Context) error {
		start := time.Now()
		version, err := m.migrate(ctx, pool)
		if err != nil {
			return err
		}

		m.logger.Info(ctx, "tenant migrations applied",
			"tenant_id", target.TenantID,
			"version", version,
			"took", time.Since(start).String(),
		)
		return nil
	})
}

func (m *MigratingConnector) migrate(ctx context.Context, pool *pgxpool.Pool) (uint, error) {
	// Closing this handle does not close the pool it wraps.
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return 0, fmt.Errorf("could not create pgx driver: %w", err)
	}

	mig, err := migrate.NewWithDatabaseInstance(m.sourceURL, "pgx5", driver)
	if err != nil {
		return 0, fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer mig.Close()

	done := make(chan error, 1)
	go func() { done <- mig.Up() }()

	select {
	case err = <-done:
	case <-ctx.Done():
		mig.GracefulStop <- true
		err = <-done
		if err == nil || errors.Is(err, migrate.ErrNoChange) {
			err = ctx.Err()
		}
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migration up failed: %w", err)
	}

	version, _, err := mig.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("reading migration version: %w", err)
	}
	return version, nil
}
