package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"referra.org/internal/auth"
	"referra.org/internal/award"
	"referra.org/internal/bank"
	"referra.org/internal/obs"
	"referra.org/internal/referral"
)

// ReadyProbe reports readiness, pinging the database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps are the service dependencies the HTTP layer dispatches into.
type Deps struct {
	Auth      *auth.Service
	Tokens    *auth.Tokens
	Directory auth.ProfileDirectory
	Referrals *referral.Service
	Awards    *award.Service
	Bank      *bank.Service

	MaxBodyBytes int64
	RateRPS      float64
	RateBurst    int
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	auth      *auth.Service
	tokens    *auth.Tokens
	directory auth.ProfileDirectory
	referrals *referral.Service
	awards    *award.Service
	bank      *bank.Service

	maxBodyBytes int64
	rateRPS      float64
	rateBurst    int
}

func New(rp ReadyProbe, version string, deps Deps) *API {
	a := &API{
		mux:          http.NewServeMux(),
		readyProbe:   rp,
		version:      version,
		auth:         deps.Auth,
		tokens:       deps.Tokens,
		directory:    deps.Directory,
		referrals:    deps.Referrals,
		awards:       deps.Awards,
		bank:         deps.Bank,
		maxBodyBytes: deps.MaxBodyBytes,
		rateRPS:      deps.RateRPS,
		rateBurst:    deps.RateBurst,
	}
	if a.maxBodyBytes <= 0 {
		a.maxBodyBytes = 1 << 20
	}
	if a.rateRPS <= 0 {
		a.rateRPS = 20
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 40
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/login/dashboard", a.handleDashboardLogin)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)

	// profiles
	a.mux.HandleFunc("/v1/profiles/", a.handleProfileResource)

	// bank accounts
	a.mux.HandleFunc("/v1/bank-accounts", a.handleBankCollection)
	a.mux.HandleFunc("/v1/bank-accounts/self", a.handleBankSelf)

	// awards
	a.mux.HandleFunc("/v1/awards", a.handleAwardsCollection)
	a.mux.HandleFunc("/v1/awards/self", a.handleAwardsSelf)
	a.mux.HandleFunc("/v1/awards/", a.handleAwardResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware stack around the mux.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = Logging(h)
	h = RequestID(h)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = RateLimit(h, a.rateBurst, a.rateRPS)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "referra-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "referra-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// decodeJSON relies on the MaxBodyBytes middleware for the size cap.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
