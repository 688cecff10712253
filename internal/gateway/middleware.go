package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/netview-platform/authcore/internal/apikey"
	"github.com/netview-platform/authcore/internal/audit"
	"github.com/netview-platform/authcore/internal/auth"
	"github.com/netview-platform/authcore/internal/identity"
	"github.com/netview-platform/authcore/internal/metrics"
)

const (
	// HeaderAPIKey carries the raw API key secret. Session tokens
	// travel in Authorization; the two channels are never mixed.
	HeaderAPIKey = "X-API-Key"

	headerAuthorization = "Authorization"
	bearerPrefix        = "Bearer "
)

// Gateway authenticates requests and produces principals.
type Gateway struct {
	validator *apikey.Validator
	sessions  *auth.SessionVerifier
	users     identity.Store
	logger    *zap.Logger
	metrics   *metrics.Metrics
	audit     audit.Logger
}

// Config wires the gateway's collaborators.
type Config struct {
	Validator *apikey.Validator
	Sessions  *auth.SessionVerifier
	Users     identity.Store
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Audit     audit.Logger
}

// New creates a gateway.
func New(cfg Config) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	auditLog := cfg.Audit
	if auditLog == nil {
		auditLog = audit.NopLogger{}
	}
	return &Gateway{
		validator: cfg.Validator,
		sessions:  cfg.Sessions,
		users:     cfg.Users,
		logger:    logger,
		metrics:   cfg.Metrics,
		audit:     auditLog,
	}
}

// Authenticate resolves the caller into a principal, or rejects with
// 401. The X-API-Key header is the only credential channel; a bearer
// token is only ever treated as a session token, even if it happens to
// look like an API key.
func (g *Gateway) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if secret := r.Header.Get(HeaderAPIKey); secret != "" {
			g.authenticateCredential(w, r, next, secret)
			return
		}

		if header := r.Header.Get(headerAuthorization); header != "" {
			g.authenticateSession(w, r, next, header)
			return
		}

		g.deny(w, http.StatusUnauthorized, auth.ErrAuthenticationRequired.Error())
	})
}

func (g *Gateway) authenticateCredential(w http.ResponseWriter, r *http.Request, next http.Handler, secret string) {
	start := time.Now()
	result := g.validator.Validate(r.Context(), secret)

	if !result.Valid {
		// An infrastructure failure is a server error, never a
		// credential rejection; only fail-closed reasons map to 401.
		if !apikey.IsRejection(result.Err) {
			g.logger.Error("api key validation failed",
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(result.Err),
			)
			g.observeValidation("error", start)
			g.deny(w, http.StatusInternalServerError, "internal server error")
			return
		}

		// Differentiated reason stays in logs and audit; the caller
		// sees the same generic failure for unknown, expired, and
		// deactivated keys alike.
		g.logger.Info("api key rejected",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(result.Err),
		)
		g.observeValidation("rejected", start)
		g.auditValidation(result, audit.DecisionDeny)
		g.deny(w, http.StatusUnauthorized, auth.ErrInvalidCredential.Error())
		return
	}

	g.observeValidation("accepted", start)
	g.auditValidation(result, audit.DecisionAllow)

	principal := &Principal{
		Kind: PrincipalCredential,
		User: result.User,
		Key:  result.Key,
	}
	next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
}

func (g *Gateway) authenticateSession(w http.ResponseWriter, r *http.Request, next http.Handler, header string) {
	if !strings.HasPrefix(header, bearerPrefix) {
		g.deny(w, http.StatusUnauthorized, auth.ErrInvalidSession.Error())
		return
	}

	claims, err := g.sessions.Verify(strings.TrimPrefix(header, bearerPrefix))
	if err != nil {
		g.logger.Info("session token rejected",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		g.deny(w, http.StatusUnauthorized, auth.ErrInvalidSession.Error())
		return
	}

	user, err := g.users.GetByID(r.Context(), claims.Subject)
	if err != nil {
		if !errors.Is(err, identity.ErrUserNotFound) {
			g.logger.Error("session subject lookup failed",
				zap.String("subject", claims.Subject),
				zap.Error(err),
			)
			g.deny(w, http.StatusInternalServerError, "internal server error")
			return
		}
		g.logger.Info("session subject rejected",
			zap.String("subject", claims.Subject),
		)
		g.deny(w, http.StatusUnauthorized, auth.ErrInvalidSession.Error())
		return
	}
	if !user.IsActive {
		g.logger.Info("session subject rejected",
			zap.String("subject", claims.Subject),
		)
		g.deny(w, http.StatusUnauthorized, auth.ErrInvalidSession.Error())
		return
	}

	principal := &Principal{
		Kind: PrincipalSession,
		User: user,
	}
	next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
}

func (g *Gateway) observeValidation(result string, start time.Time) {
	if g.metrics != nil {
		g.metrics.ObserveValidation(result, time.Since(start).Seconds())
	}
}

func (g *Gateway) auditValidation(result *apikey.ValidationResult, decision audit.Decision) {
	event := audit.Event{
		EventType: audit.EventTypeKeyValidation,
		Decision:  decision,
	}
	if result.Err != nil {
		event.Reason = result.Err.Error()
	}
	if result.Key != nil {
		event.KeyID = result.Key.ID
		event.KeyPrefix = result.Key.KeyPrefix
		event.TenantID = result.Key.TenantID
	}
	if result.User != nil {
		event.UserID = result.User.ID
	}
	g.audit.Record(event)
}

func (g *Gateway) deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
