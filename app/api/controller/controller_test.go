package controller

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/level-fi/llp-tracker/app/api/types"
)

func TestParsePageSpecDefaults(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/time-frames", nil)
	spec, err := parsePageSpec(r)
	require.NoError(t, err)
	require.Equal(t, pageSpec{Size: 10, Page: 1, Sort: SortOrderDesc}, spec)
}

func TestParsePageSpec(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/time-frames?size=100&page=3&from=100&to=200&sort=asc", nil)
	spec, err := parsePageSpec(r)
	require.NoError(t, err)
	require.Equal(t, pageSpec{Size: 100, Page: 3, From: 100, To: 200, Sort: SortOrderAsc}, spec)
}

func TestParsePageSpecRejectsBadInput(t *testing.T) {
	for _, qs := range []string{
		"size=5",    // below minimum
		"size=2000", // above maximum
		"size=ten",
		"page=0",
		"page=-1",
		"from=abc",
		"from=200&to=100", // inverted range
		"sort=sideways",
	} {
		r := httptest.NewRequest(http.MethodGet, "/time-frames?"+qs, nil)
		_, err := parsePageSpec(r)
		require.Error(t, err, qs)
	}
}

func TestWalletScopeNormalizes(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = mux.SetURLVars(r, map[string]string{
		"tranche": "0xABCDEF0123456789abcdef0123456789ABCDEF01",
		"wallet":  "0x1111111111111111111111111111111111111111",
	})
	tranche, wallet, err := walletScope(r)
	require.NoError(t, err)
	require.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", tranche)
	require.Equal(t, "0x1111111111111111111111111111111111111111", wallet)
}

func TestWalletScopeRejectsBadAddresses(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = mux.SetURLVars(r, map[string]string{"tranche": "not-an-address"})
	_, _, err := walletScope(r)
	require.ErrorIs(t, err, errInvalidTranche)

	r = mux.SetURLVars(r, map[string]string{
		"tranche": "0xabcdef0123456789abcdef0123456789abcdef01",
		"wallet":  "0x123", // too short
	})
	_, _, err = walletScope(r)
	require.ErrorIs(t, err, errInvalidWallet)
}

func TestWithAPIKey(t *testing.T) {
	c := &Controller{App: &types.App{APIKey: "sesame"}}
	called := false
	handler := c.withAPIKey(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	// No key
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/rebuild", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, called)

	// Wrong key
	rec = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/rebuild", nil)
	r.Header.Set("x-api-key", "guess")
	handler(rec, r)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Header key
	rec = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/rebuild", nil)
	r.Header.Set("x-api-key", "sesame")
	handler(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, called)

	// Query param key
	called = false
	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/rebuild?apiKey=sesame", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, called)
}

func TestWithAPIKeyDisabledWithoutConfig(t *testing.T) {
	c := &Controller{App: &types.App{}}
	handler := c.withAPIKey(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a configured key")
	})

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/rebuild", nil)
	r.Header.Set("x-api-key", "")
	handler(rec, r)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWithCORSPreflight(t *testing.T) {
	wrapped := WithCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}))

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodOptions, "/time-frames", nil)
	r.Header.Set("Origin", "https://app.example.com")
	wrapped.ServeHTTP(rec, r)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
