package auth

import (
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// SessionClaims are the claims this core reads from an externally-issued
// session token. Issuance is the identity provider's job; we only verify.
type SessionClaims struct {
	Email    string `json:"email,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// SessionVerifierConfig configures session token verification.
type SessionVerifierConfig struct {
	PublicKey *rsa.PublicKey
	Issuer    string
	Audience  string
	Logger    *zap.Logger
}

// SessionVerifier validates RS256 session tokens issued by the external
// identity provider and extracts the subject user id.
type SessionVerifier struct {
	publicKey *rsa.PublicKey
	issuer    string
	audience  string
	logger    *zap.Logger
}

// NewSessionVerifier creates a session token verifier.
func NewSessionVerifier(cfg SessionVerifierConfig) (*SessionVerifier, error) {
	if cfg.PublicKey == nil {
		return nil, fmt.Errorf("public key is required")
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("issuer is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &SessionVerifier{
		publicKey: cfg.PublicKey,
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		logger:    cfg.Logger,
	}, nil
}

// Verify validates a session token and returns its claims.
func (v *SessionVerifier) Verify(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidSession)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.publicKey, nil
	}, opts...)
	if err != nil {
		v.logger.Debug("session token rejected", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSession
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidSession)
	}

	return claims, nil
}
