package controller

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/level-fi/llp-tracker/app/api/types"
	"github.com/level-fi/llp-tracker/pkg/utils"
)

type Controller struct {
	App *types.App
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	return &Controller{
		App: app,
	}
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()

	r.Handle("/health", http.HandlerFunc(c.HandleHealth)).Methods("GET")
	r.HandleFunc("/readiness", c.HandleReadiness).Methods("GET")
	r.HandleFunc("/synced-info", c.HandleSyncedInfo).Methods("GET")

	r.HandleFunc("/tranches/{tranche}/wallets/{wallet}/time-frames", c.HandleTimeFrames).Methods("GET")
	r.HandleFunc("/tranches/{tranche}/wallets/{wallet}/live", c.HandleLive).Methods("GET")
	r.HandleFunc("/tranches/{tranche}/wallets/{wallet}/charts/{chart}", c.HandleChart).Methods("GET")

	r.HandleFunc("/tranches/{tranche}/rebuild", c.withAPIKey(c.HandleRebuildTranche)).Methods("POST")
	r.HandleFunc("/tranches/{tranche}/wallets/{wallet}/rebuild", c.withAPIKey(c.HandleRebuildWallet)).Methods("POST")

	return r, nil
}

// WithCORS wraps the router with permissive CORS handling.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Development: Echo back the origin to allow credentials with any origin
		// TODO: Restrict this in production to specific domains
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Api-Key")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodPost+", "+http.MethodOptions)

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withAPIKey guards mutating endpoints. The key travels in the x-api-key
// header or the apiKey query parameter. No configured key disables the route.
func (c *Controller) withAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c.App.APIKey == "" {
			writeError(w, http.StatusServiceUnavailable, "rebuild endpoints are disabled")
			return
		}
		key := r.Header.Get("x-api-key")
		if key == "" {
			key = r.URL.Query().Get("apiKey")
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(c.App.APIKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next(w, r)
	}
}

// walletScope pulls and validates the tranche/wallet path parameters.
func walletScope(r *http.Request) (tranche, wallet string, err error) {
	vars := mux.Vars(r)
	tranche = vars["tranche"]
	wallet = vars["wallet"]
	if !utils.IsHexAddress(tranche) {
		return "", "", errInvalidTranche
	}
	if wallet != "" && !utils.IsHexAddress(wallet) {
		return "", "", errInvalidWallet
	}
	return utils.NormalizeAddress(tranche), utils.NormalizeAddress(wallet), nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

var (
	errInvalidTranche = &parseError{msg: "invalid tranche address"}
	errInvalidWallet  = &parseError{msg: "invalid wallet address"}
)
