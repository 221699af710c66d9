package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
	"github.com/stretchr/testify/assert"
)

func newTestGuard() *Guard {
	verifier := &testVerifier{
		claims: map[string]domainauth.IdentityClaim{
			"admin-token":   {Subject: "sub-admin", TokenUse: domainauth.TokenUseAccess},
			"student-token": {Subject: "sub-student", TokenUse: domainauth.TokenUseAccess},
			"blocked-token": {Subject: "sub-blocked", TokenUse: domainauth.TokenUseAccess},
			"ghost-token":   {Subject: "sub-ghost", TokenUse: domainauth.TokenUseAccess},
		},
		errs: map[string]error{
			"expired-token": domainauth.NewTokenError(domainauth.TokenExpired, errors.New("exp in past")),
		},
	}
	resolver := &testResolver{
		identities: map[string]domainauth.ResolvedIdentity{
			"sub-admin":   {UserID: 1, Email: "admin@portal.test", Role: domainauth.RoleAdmin},
			"sub-student": {UserID: 2, Email: "student@portal.test", Role: domainauth.RoleStudent},
		},
		errs: map[string]error{
			"sub-blocked": &domainauth.AuthzError{Code: domainauth.AuthzBlocked, Subject: "sub-blocked"},
		},
	}
	return NewGuard(GuardOptions{Verifier: verifier, Resolver: resolver})
}

func guardedEndpoint(g *Guard, roles ...domainauth.Role) http.Handler {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		WriteJSON(w, http.StatusOK, identity)
	})
	return g.Require(roles...)(handler)
}

func doGuarded(h http.Handler, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	h.ServeHTTP(w, r)
	return w
}

func errCodeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body["error"]
}

func TestGuard_AllowsMatchingRole(t *testing.T) {
	h := guardedEndpoint(newTestGuard(), domainauth.RoleAdmin)

	w := doGuarded(h, "admin-token")

	assert.Equal(t, http.StatusOK, w.Code)
	var identity domainauth.ResolvedIdentity
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &identity))
	assert.Equal(t, int64(1), identity.UserID)
	assert.Equal(t, domainauth.RoleAdmin, identity.Role)
}

func TestGuard_AllowsAnyListedRole(t *testing.T) {
	h := guardedEndpoint(newTestGuard(), domainauth.RoleAdmin, domainauth.RoleStudent)

	assert.Equal(t, http.StatusOK, doGuarded(h, "student-token").Code)
	assert.Equal(t, http.StatusOK, doGuarded(h, "admin-token").Code)
}

func TestGuard_MissingToken(t *testing.T) {
	h := guardedEndpoint(newTestGuard(), domainauth.RoleAdmin)

	w := doGuarded(h, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "no_identity", errCodeOf(t, w))
}

func TestGuard_ExpiredToken(t *testing.T) {
	h := guardedEndpoint(newTestGuard(), domainauth.RoleAdmin)

	w := doGuarded(h, "expired-token")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	// Expiry is distinguishable so clients refresh instead of logging out.
	assert.Equal(t, "token_expired", errCodeOf(t, w))
}

func TestGuard_BadSignature(t *testing.T) {
	h := guardedEndpoint(newTestGuard(), domainauth.RoleAdmin)

	w := doGuarded(h, "forged-token")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "token_bad_signature", errCodeOf(t, w))
}

func TestGuard_RoleMismatch(t *testing.T) {
	h := guardedEndpoint(newTestGuard(), domainauth.RoleAdmin)

	w := doGuarded(h, "student-token")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "role_mismatch", errCodeOf(t, w))
}

func TestGuard_BlockedAccount(t *testing.T) {
	h := guardedEndpoint(newTestGuard(), domainauth.RoleAdmin, domainauth.RoleStudent)

	w := doGuarded(h, "blocked-token")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "account_blocked", errCodeOf(t, w))
}

func TestGuard_NoInternalRecord(t *testing.T) {
	h := guardedEndpoint(newTestGuard(), domainauth.RoleStudent)

	w := doGuarded(h, "ghost-token")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "no_record", errCodeOf(t, w))
}

func TestGuard_NoRolesMeansPublic(t *testing.T) {
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})
	h := newTestGuard().Require()(handler)

	w := doGuarded(h, "")

	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{"standard", "Bearer abc123", "abc123", true},
		{"case insensitive scheme", "bearer abc123", "abc123", true},
		{"missing header", "", "", false},
		{"empty token", "Bearer ", "", false},
		{"wrong scheme", "Basic abc123", "", false},
		{"bare token", "abc123", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			token, ok := bearerToken(r)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, token)
		})
	}
}
