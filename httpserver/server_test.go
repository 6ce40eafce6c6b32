package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liwenju0/deepenc/bootstrap"
	"github.com/liwenju0/deepenc/interfaces"
	"github.com/liwenju0/deepenc/loader"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type envKeyStrategy struct{}

func (envKeyStrategy) Name() string                 { return "environment" }
func (envKeyStrategy) Source() interfaces.KeySource { return interfaces.KeySourceEnvironment }
func (envKeyStrategy) TryResolve(ctx context.Context) (interfaces.Key, error) {
	return interfaces.Key("0123456789abcdef"), nil
}

type nopExecutor struct{}

func (nopExecutor) Execute(source string, ns *interfaces.Namespace) error { return nil }

func newTestServer(t *testing.T) (*Server, *bootstrap.System) {
	t.Helper()

	sys := bootstrap.NewSystem(bootstrap.Config{
		BuildRoot:  t.TempDir(),
		Strategies: []interfaces.KeyStrategy{envKeyStrategy{}},
		Executor:   nopExecutor{},
		Log:        testLogger(),
	}, loader.NewChain(testLogger()))
	require.NoError(t, sys.Initialize(context.Background()))

	srv, err := New(&HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      testLogger(),
		DrainDuration:            time.Millisecond,
		GracefulShutdownDuration: time.Second,
	}, NewHandler(sys, testLogger()))
	require.NoError(t, err)
	return srv, sys
}

func TestHandleLivenessAndReadiness(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.getRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestDrainUndrain(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.getRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/drain", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/undrain", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandleStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.getRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var status bootstrap.Status
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.True(t, status.Installed)
	assert.Equal(t, "environment", status.Auth.Source)
}

func TestHandleCaches(t *testing.T) {
	srv, sys := newTestServer(t)
	router := srv.getRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/caches", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var info loader.CacheInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	assert.Equal(t, 0, info.Cached)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/caches", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, sys.Status().Units.Cached)
}
