package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Postgres is a running PostgreSQL container shared by the tenant databases
// of one test.
type Postgres struct {
	// BaseURI is the server address with a trailing slash; appending a
	// database name yields a tenant DSN.
	BaseURI string
	// Query is appended after the database name when connecting.
	Query string

	admin *pgxpool.Pool
}

// SetupTestContainer starts a PostgreSQL container. It returns the server
// handle and a cleanup function.
func SetupTestContainer(t *testing.T) (*Postgres, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
			return fmt.Sprintf("postgres://test:test@%s:%s/postgres?sslmode=disable", host, port.Port())
		}),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	base := fmt.Sprintf("postgres://test:test@%s:%s/", host, port.Port())
	const query = "?sslmode=disable"

	admin, err := pgxpool.New(ctx, base+"postgres"+query)
	require.NoError(t, err)

	cleanup := func() {
		admin.Close()
		_ = container.Terminate(ctx)
	}

	return &Postgres{BaseURI: base, Query: query, admin: admin}, cleanup
}

// CreateDatabases creates one empty database per tenant id.
func (p *Postgres) CreateDatabases(t *testing.T, tenants ...string) {
	t.Helper()

	ctx := context.Background()
	for _, name := range tenants {
		ident := pgx.Identifier{name}.Sanitize()
		_, err := p.admin.Exec(ctx, "CREATE DATABASE "+ident)
		require.NoError(t, err)
	}
}

// BaseURIWithQuery returns the base address with the connection options in
// place, ready to have a tenant id appended to its path.
func (p *Postgres) BaseURIWithQuery() string { return p.BaseURI + p.Query }

// MigrationsPath returns the absolute path of the per-tenant migrations.
func MigrationsPath() string {
	_, currentFile, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(currentFile), "..", "..", "..", "..")
	return filepath.Join(projectRoot, "db", "migrations", "tenant")
}

// NoOpTracer returns a no-op tracer for testing
func NoOpTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("test")
}
