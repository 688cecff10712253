package rest

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/netview-platform/authcore/internal/apikey"
	"github.com/netview-platform/authcore/internal/auth"
	"github.com/netview-platform/authcore/internal/gateway"
	"github.com/netview-platform/authcore/internal/identity"
	"github.com/netview-platform/authcore/internal/metrics"
	"github.com/netview-platform/authcore/internal/roles"
)

const testIssuer = "https://idp.netview.example"

type fixture struct {
	server  *Server
	users   *identity.MemoryStore
	keys    *apikey.MemoryStore
	signKey *rsa.PrivateKey
	editor  *identity.User
	admin   *identity.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	signKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	verifier, err := auth.NewSessionVerifier(auth.SessionVerifierConfig{
		PublicKey: &signKey.PublicKey,
		Issuer:    testIssuer,
		Logger:    zap.NewNop(),
	})
	require.NoError(t, err)

	users := identity.NewMemoryStore()
	keys := apikey.NewMemoryStore()
	ctx := context.Background()

	editor := &identity.User{
		ID:       "user-editor",
		Email:    "editor@acme.example",
		Role:     roles.RoleEditor,
		TenantID: "acme",
		IsActive: true,
	}
	admin := &identity.User{
		ID:       "user-admin",
		Email:    "admin@acme.example",
		Role:     roles.RoleTenantAdmin,
		TenantID: "acme",
		IsActive: true,
	}
	require.NoError(t, users.Create(ctx, editor))
	require.NoError(t, users.Create(ctx, admin))

	gw := gateway.New(gateway.Config{
		Validator: apikey.NewValidator(keys, users, zap.NewNop()),
		Sessions:  verifier,
		Users:     users,
		Logger:    zap.NewNop(),
	})

	server, err := New(DefaultConfig(), Deps{
		Gateway: gw,
		Keys:    apikey.NewService(keys, zap.NewNop()),
		Users:   users,
		Metrics: metrics.New(),
		Logger:  zap.NewNop(),
	})
	require.NoError(t, err)

	return &fixture{
		server:  server,
		users:   users,
		keys:    keys,
		signKey: signKey,
		editor:  editor,
		admin:   admin,
	}
}

func (f *fixture) sessionToken(t *testing.T, subject string) string {
	t.Helper()
	claims := auth.SessionClaims{
		TenantID: "acme",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(f.signKey)
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeData(t, rec)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestV1RequiresAuthentication(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/v1/scopes", "/v1/roles", "/v1/keys", "/v1/whoami"} {
		rec := f.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestListScopes(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/scopes", f.sessionToken(t, f.editor.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	scopes, ok := data["scopes"].([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, scopes)
	assert.EqualValues(t, len(scopes), data["count"])

	first, ok := scopes[0].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, first, "scope")
	assert.Contains(t, first, "description")
}

func TestListRoles(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/roles", f.sessionToken(t, f.editor.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	roleList, ok := data["roles"].([]interface{})
	require.True(t, ok)
	assert.Len(t, roleList, 4)
}

func TestWhoamiSession(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/whoami", f.sessionToken(t, f.editor.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, "session", data["principal"])
	assert.Equal(t, f.editor.ID, data["user_id"])
	assert.Equal(t, roles.RoleEditor, data["role"])
	assert.NotContains(t, data, "key_id")
}

func TestKeyLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	token := f.sessionToken(t, f.editor.ID)

	// Create.
	rec := f.do(t, http.MethodPost, "/v1/keys", token, apikey.CreateRequest{
		Name:   "ci-runner",
		Scopes: []string{"*:*:probes:read", "*:*:probes:execute"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decodeData(t, rec)
	secret, _ := created["key"].(string)
	keyID, _ := created["id"].(string)
	assert.Contains(t, secret, "nv_live_")
	require.NotEmpty(t, keyID)

	// The secret never appears again: read back exposes prefix only.
	rec = f.do(t, http.MethodGet, "/v1/keys/"+keyID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), secret)
	assert.Contains(t, rec.Body.String(), secret[:12])

	// List.
	rec = f.do(t, http.MethodGet, "/v1/keys", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeData(t, rec)["count"])

	// Update name.
	rec = f.do(t, http.MethodPatch, "/v1/keys/"+keyID, token, map[string]interface{}{
		"name": "ci-runner-v2",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Deactivate, then the key stops validating.
	rec = f.do(t, http.MethodPost, "/v1/keys/"+keyID+"/deactivate", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	req.Header.Set(gateway.HeaderAPIKey, secret)
	keyRec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(keyRec, req)
	assert.Equal(t, http.StatusUnauthorized, keyRec.Code)

	// Reactivate and delete.
	rec = f.do(t, http.MethodPost, "/v1/keys/"+keyID+"/activate", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/v1/keys/"+keyID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/keys/"+keyID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateKeyEscalationDenied(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/keys", f.sessionToken(t, f.editor.ID), apikey.CreateRequest{
		Name:   "too-broad",
		Scopes: []string{"*:*:alerts:write"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "ESCALATION_DENIED")
}

func TestCreateKeyPastExpiry(t *testing.T) {
	f := newFixture(t)

	past := time.Now().Add(-time.Second)
	rec := f.do(t, http.MethodPost, "/v1/keys", f.sessionToken(t, f.editor.ID), apikey.CreateRequest{
		Name:      "stale",
		Scopes:    []string{"*:*:probes:read"},
		ExpiresAt: &past,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/keys", f.sessionToken(t, f.editor.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decodeData(t, rec)["count"])
}

func TestWhoamiWithAPIKey(t *testing.T) {
	f := newFixture(t)
	token := f.sessionToken(t, f.editor.ID)

	rec := f.do(t, http.MethodPost, "/v1/keys", token, apikey.CreateRequest{
		Name:   "introspect",
		Scopes: []string{"*:*:probes:read"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	secret, _ := decodeData(t, rec)["key"].(string)

	req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	req.Header.Set(gateway.HeaderAPIKey, secret)
	keyRec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(keyRec, req)
	require.Equal(t, http.StatusOK, keyRec.Code)

	data := decodeData(t, keyRec)
	assert.Equal(t, "credential", data["principal"])
	assert.Equal(t, f.editor.ID, data["user_id"])
	assert.Contains(t, data, "key_prefix")

	scopes, ok := data["scopes"].([]interface{})
	require.True(t, ok)
	assert.Len(t, scopes, 1)
}

func TestCredentialWithoutKeyScopesCannotManageKeys(t *testing.T) {
	f := newFixture(t)
	token := f.sessionToken(t, f.editor.ID)

	rec := f.do(t, http.MethodPost, "/v1/keys", token, apikey.CreateRequest{
		Name:   "probe-only",
		Scopes: []string{"*:*:probes:read"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	secret, _ := decodeData(t, rec)["key"].(string)

	req := httptest.NewRequest(http.MethodGet, "/v1/keys", nil)
	req.Header.Set(gateway.HeaderAPIKey, secret)
	keyRec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(keyRec, req)
	assert.Equal(t, http.StatusForbidden, keyRec.Code)
}

func TestTenantWideListingRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	editorToken := f.sessionToken(t, f.editor.ID)
	adminToken := f.sessionToken(t, f.admin.ID)

	rec := f.do(t, http.MethodPost, "/v1/keys", editorToken, apikey.CreateRequest{
		Name:   "editor-key",
		Scopes: []string{"*:*:probes:read"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/keys?all=true", editorToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/keys?all=true", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeData(t, rec)["count"])
}
