package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/otcnet/coordinator/mmregistry"
)

func TestHandleStatus(t *testing.T) {
	registry := mmregistry.NewRegistry()
	hub := NewMMHub(registry)
	srv := New(nil, nil, hub)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleConnectedMarketMakersEmpty(t *testing.T) {
	registry := mmregistry.NewRegistry()
	hub := NewMMHub(registry)
	srv := New(nil, nil, hub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/market-makers/connected", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"market_makers":[]}`, rec.Body.String())
}

func TestHandleCreateSwapRejectsBadJSON(t *testing.T) {
	registry := mmregistry.NewRegistry()
	hub := NewMMHub(registry)
	srv := New(nil, nil, hub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/swaps", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
