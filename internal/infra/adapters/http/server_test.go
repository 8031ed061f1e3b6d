package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ascendpay/ascendpay-backend/internal/application/registry"
	"github.com/ascendpay/ascendpay-backend/internal/domain/tenant"
	httpServer "github.com/ascendpay/ascendpay-backend/internal/infra/adapters/http"
	handler "github.com/ascendpay/ascendpay-backend/internal/infra/adapters/http/handler"
	"github.com/ascendpay/ascendpay-backend/pkg/common/logger"
	"github.com/ascendpay/ascendpay-backend/pkg/common/validate"
)

type okConn struct{}

func (okConn) Ping(context.Context) error { return nil }
func (okConn) Close()                     {}

type okConnector struct{}

func (okConnector) Target(id tenant.ID) registry.Target {
	return registry.Target{TenantID: id, DSN: "postgres://db/" + string(id), Redacted: "postgres://db/" + string(id)}
}

func (okConnector) Open(context.Context, registry.Target) (registry.Conn, error) { return okConn{}, nil }

func newRouter(t *testing.T) (http.Handler, *registry.Registry) {
	t.Helper()

	v, err := validate.New()
	require.NoError(t, err)

	reg := registry.New(okConnector{})
	t.Cleanup(func() { _ = reg.Close(context.Background()) })

	return httpServer.NewRouter(handler.NewConnectionHandler(reg, v)), reg
}

func TestNewRouter_TenantIDDecodedOnce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		want tenant.ID
	}{
		{name: "plain", path: "/api/v1/tenants/fnb/connection", want: "fnb"},
		{name: "literal percent", path: "/api/v1/tenants/100%25/connection", want: "100%"},
		{name: "escaped escape sequence", path: "/api/v1/tenants/a%2541/connection", want: "a%41"},
		{name: "escaped space", path: "/api/v1/tenants/first%20national/connection", want: "first national"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, reg := newRouter(t)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path+"?wait=5s", nil))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var info registry.HandleInfo
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
			assert.Equal(t, tt.want, info.TenantID)

			snapshot := reg.Snapshot()
			require.Len(t, snapshot, 1)
			assert.Equal(t, tt.want, snapshot[0].TenantID)
		})
	}
}

func TestNewRouter_ListsConnections(t *testing.T) {
	t.Parallel()

	router, _ := newRouter(t)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/tenants/fnb/connection?wait=5s", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tenants/connections", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body handler.ConnectionsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)
}

func TestNewHTTPServer(t *testing.T) {
	t.Parallel()

	srv := httpServer.NewHTTPServer(":3000", http.NotFoundHandler(), logger.Noop())

	assert.Equal(t, ":3000", srv.Addr)
	assert.NotNil(t, srv.ErrorLog)
	assert.Greater(t, srv.WriteTimeout, srv.ReadTimeout)
}
