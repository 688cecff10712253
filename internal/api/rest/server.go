// Package rest provides the HTTP API for credential management and
// the scope catalog.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/netview-platform/authcore/internal/apikey"
	"github.com/netview-platform/authcore/internal/audit"
	"github.com/netview-platform/authcore/internal/gateway"
	"github.com/netview-platform/authcore/internal/identity"
	"github.com/netview-platform/authcore/internal/metrics"
	"github.com/netview-platform/authcore/internal/roles"
)

// Server is the REST API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	logger     *zap.Logger
	gateway    *gateway.Gateway
	keys       *apikey.Service
	users      identity.Store
	metrics    *metrics.Metrics
	audit      audit.Logger
	config     Config
}

// Config configures the REST API server.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBodySize  int64
}

// DefaultConfig returns default API server configuration.
func DefaultConfig() Config {
	return Config{
		Port:         8080,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		MaxBodySize:  1 * 1024 * 1024, // 1MB
	}
}

// Deps are the server's collaborators.
type Deps struct {
	Gateway *gateway.Gateway
	Keys    *apikey.Service
	Users   identity.Store
	Metrics *metrics.Metrics
	Audit   audit.Logger
	Logger  *zap.Logger
}

// New creates a new REST API server.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if deps.Keys == nil {
		return nil, fmt.Errorf("api key service is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Audit == nil {
		deps.Audit = audit.NopLogger{}
	}

	s := &Server{
		router:  mux.NewRouter(),
		logger:  deps.Logger,
		gateway: deps.Gateway,
		keys:    deps.Keys,
		users:   deps.Users,
		metrics: deps.Metrics,
		audit:   deps.Audit,
		config:  cfg,
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Port),
		Handler:        s.router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.maxBodySizeMiddleware)

	s.router.HandleFunc("/health", s.health).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(
			s.metrics.Registry(),
			promhttp.HandlerOpts{},
		)).Methods("GET")
	}

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.Use(mux.MiddlewareFunc(s.gateway.Authenticate))

	v1.HandleFunc("/scopes", s.listScopes).Methods("GET")
	v1.HandleFunc("/roles", s.listRoles).Methods("GET")
	v1.HandleFunc("/whoami", s.whoami).Methods("GET")

	keysRead := s.gateway.RequireScopes("*:*:api_keys:read")
	keysWrite := s.gateway.RequireScopes("*:*:api_keys:write")
	keysDelete := s.gateway.RequireScopes("*:*:api_keys:delete")

	v1.Handle("/keys", keysWrite(http.HandlerFunc(s.createKey))).Methods("POST")
	v1.Handle("/keys", keysRead(http.HandlerFunc(s.listKeys))).Methods("GET")
	v1.Handle("/keys/{id}", keysRead(http.HandlerFunc(s.getKey))).Methods("GET")
	v1.Handle("/keys/{id}", keysWrite(http.HandlerFunc(s.updateKey))).Methods("PATCH")
	v1.Handle("/keys/{id}/deactivate", keysWrite(http.HandlerFunc(s.deactivateKey))).Methods("POST")
	v1.Handle("/keys/{id}/activate", keysWrite(http.HandlerFunc(s.activateKey))).Methods("POST")
	v1.Handle("/keys/{id}", keysDelete(http.HandlerFunc(s.deleteKey))).Methods("DELETE")
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting REST API server", zap.Int("port", s.config.Port))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping REST API server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the underlying router for testing.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// principalOr401 extracts the authenticated principal, writing a 401 if
// the middleware chain somehow let an unauthenticated request through.
func (s *Server) principalOr401(w http.ResponseWriter, r *http.Request) (*gateway.Principal, bool) {
	principal, ok := gateway.PrincipalFrom(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED",
			"authentication required", "")
		return nil, false
	}
	return principal, true
}

func isAdminRole(role string) bool {
	return role == roles.RoleTenantAdmin || role == roles.RolePlatformAdmin
}
