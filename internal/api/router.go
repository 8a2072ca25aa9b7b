package api

import (
	"context"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"authgate/internal/logging"
)

// RouterConfig holds what NewRouter needs beyond the Authenticator.
type RouterConfig struct {
	// Health reports whether backing services are reachable. Nil means always healthy.
	Health func(ctx context.Context) error
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// CORSOrigins lists allowed origins; empty allows any.
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter mounts the authentication endpoints under /api/auth and wraps
// them with recovery, CORS, security headers and access logging.
func NewRouter(svc Authenticator, cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	h := NewHandlers(svc)

	router := mux.NewRouter()
	router.HandleFunc("/healthz", healthHandler(cfg.Health)).Methods(http.MethodGet)
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api/auth").Subrouter()
	api.HandleFunc("/register", h.register).Methods(http.MethodPost)
	api.HandleFunc("/login", h.login).Methods(http.MethodPost)
	api.HandleFunc("/forgetPassword", h.forgetPassword).Methods(http.MethodPost)
	api.HandleFunc("/resetPassword", h.resetPassword).Methods(http.MethodPost)
	api.HandleFunc("/logout", h.logout).Methods(http.MethodGet)
	api.Handle("/checkLogin", Gate(svc)(http.HandlerFunc(h.checkLogin))).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, messageBody{Message: "not found"})
	})
	router.Use(securityHeaders)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)

	var handler http.Handler = router
	handler = cors(handler)
	handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(cfg.Logger)),
		handlers.PrintRecoveryStack(true),
	)(handler)
	handler = handlers.LoggingHandler(logging.NewWriter(cfg.Logger), handler)
	return handler
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, messageBody{Message: "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, messageBody{Message: "ok"})
	}
}

// securityHeaders sets the response headers a browser-facing API should always send.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}
