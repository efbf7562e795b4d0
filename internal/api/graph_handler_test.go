package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gstech/itc-compliance/internal/crypto"
	"github.com/gstech/itc-compliance/internal/engine"
	"github.com/gstech/itc-compliance/internal/mockdata"
	"github.com/gstech/itc-compliance/internal/service"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	signer, err := crypto.NewSigner(base64.StdEncoding.EncodeToString([]byte("test-secret")))
	require.NoError(t, err)

	opts := mockdata.DefaultOptions()
	opts.Taxpayers = 10
	opts.Invoices = 80
	svc := service.NewGraphService(mockdata.NewSnapshotRepository(opts), nil, signer, engine.DefaultConfig(), zap.NewNop())
	require.NoError(t, svc.Rebuild(context.Background()))

	e := echo.New()
	NewGraphHandler(svc).RegisterRoutes(e.Group("/api"))
	return e
}

func doRequest(t *testing.T, e *echo.Echo, method, target string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestServer(t)

	code, body := doRequest(t, e, http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	data := body["data"].(map[string]any)
	assert.Equal(t, "itc-compliance", data["service"])
}

func TestStatsEndpoint(t *testing.T) {
	e := newTestServer(t)

	code, body := doRequest(t, e, http.MethodGet, "/api/graph/stats")
	assert.Equal(t, http.StatusOK, code)

	data := body["data"].(map[string]any)
	assert.Greater(t, data["node_count"].(float64), 0.0)
	assert.Greater(t, data["edge_count"].(float64), 0.0)
}

func TestReconcileRequiresPeriod(t *testing.T) {
	e := newTestServer(t)

	code, body := doRequest(t, e, http.MethodGet, "/api/reconcile/07AAACB1111A1Z5")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "error", body["status"])
}

func TestReconcileRejectsBadAsOf(t *testing.T) {
	e := newTestServer(t)

	code, _ := doRequest(t, e, http.MethodGet, "/api/reconcile/07AAACB1111A1Z5?period=062024&as_of=junk")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUnknownGSTINMapsToNotFound(t *testing.T) {
	e := newTestServer(t)

	code, body := doRequest(t, e, http.MethodGet, "/api/reconcile/99ZZZZZ9999Z9Z9?period=062024")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "gstin not found", body["error"])

	code, _ = doRequest(t, e, http.MethodGet, "/api/payments/99ZZZZZ9999Z9Z9")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = doRequest(t, e, http.MethodGet, "/api/predict/99ZZZZZ9999Z9Z9")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestChainRejectsBadMaxHops(t *testing.T) {
	e := newTestServer(t)

	code, _ := doRequest(t, e, http.MethodGet, "/api/itc/chain/99ZZZZZ9999Z9Z9?max_hops=0")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doRequest(t, e, http.MethodGet, "/api/itc/chain/99ZZZZZ9999Z9Z9?max_hops=abc")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestChainCapsMaxHops(t *testing.T) {
	e := newTestServer(t)

	opts := mockdata.DefaultOptions()
	opts.Taxpayers = 10
	opts.Invoices = 80
	snap, err := mockdata.NewSnapshotRepository(opts).Load(context.Background())
	require.NoError(t, err)
	gstin := snap.Taxpayers[0].GSTIN

	code, body := doRequest(t, e, http.MethodGet, "/api/itc/chain/"+gstin+"?max_hops=99")
	require.Equal(t, http.StatusOK, code)

	data := body["data"].(map[string]any)
	assert.Equal(t, 6.0, data["max_hops"])
}

func TestVendorRiskTopParam(t *testing.T) {
	e := newTestServer(t)

	code, body := doRequest(t, e, http.MethodGet, "/api/vendors/risk?top=3")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"].([]any), 3)

	code, _ = doRequest(t, e, http.MethodGet, "/api/vendors/risk?top=-1")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAuditSearchEndpoint(t *testing.T) {
	e := newTestServer(t)

	code, body := doRequest(t, e, http.MethodGet, "/api/audits")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "error", body["status"])

	// The test server runs without an audit index.
	code, body = doRequest(t, e, http.MethodGet, "/api/audits?q=RECONCILE")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "audit index disabled", body["error"])
}

func TestRebuildEndpoint(t *testing.T) {
	e := newTestServer(t)

	code, body := doRequest(t, e, http.MethodPost, "/api/rebuild")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}
