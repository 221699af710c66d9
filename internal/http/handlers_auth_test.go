package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
	"github.com/edbridge/portal-api/internal/ports"
	"github.com/edbridge/portal-api/internal/service"
	"github.com/stretchr/testify/assert"
)

func newAuthHandlers(provider *testProvider) *AuthHandlers {
	svc := service.NewAuthService(service.AuthServiceOptions{
		Provider: provider,
		Groups:   testGroupMapper{},
	})
	return &AuthHandlers{Svc: svc}
}

func postJSON(h http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	h(w, r)
	return w
}

func TestLoginHandler_Success(t *testing.T) {
	var gotGroup string
	provider := &testProvider{
		login: func(_ context.Context, in ports.LoginInput) (domainauth.TokenSet, error) {
			gotGroup = in.RequiredGroup
			return domainauth.TokenSet{
				IDToken:      "idt",
				AccessToken:  "at",
				RefreshToken: "rt",
				ExpiresAt:    time.Now().Add(time.Hour),
			}, nil
		},
	}
	h := newAuthHandlers(provider)

	w := postJSON(h.Login, "/api/auth/login",
		`{"email":"a@portal.test","password":"pw","portal":"student"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "portal-students", gotGroup)

	var tokens domainauth.TokenSet
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))
	assert.Equal(t, "at", tokens.AccessToken)
	assert.Equal(t, "rt", tokens.RefreshToken)
}

func TestLoginHandler_GenericFailureMessage(t *testing.T) {
	// Wrong password, unknown account, and missing group membership must all
	// produce the same response, or the endpoint enumerates account state.
	causes := []error{
		&domainauth.ProviderError{Name: domainauth.ProviderErrNotAuthorized},
		&domainauth.ProviderError{Name: domainauth.ProviderErrUserNotFound},
		&domainauth.ProviderError{Name: domainauth.ProviderErrUserNotConfirmed},
	}

	var bodies []string
	for _, cause := range causes {
		provider := &testProvider{
			login: func(context.Context, ports.LoginInput) (domainauth.TokenSet, error) {
				return domainauth.TokenSet{}, cause
			},
		}
		w := postJSON(newAuthHandlers(provider).Login, "/api/auth/login",
			`{"email":"a@portal.test","password":"pw"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid_credentials", errCodeOf(t, w))
		bodies = append(bodies, w.Body.String())
	}
	assert.Equal(t, bodies[0], bodies[1])
	assert.Equal(t, bodies[0], bodies[2])
}

func TestLoginHandler_MissingCredentials(t *testing.T) {
	w := postJSON(newAuthHandlers(&testProvider{}).Login, "/api/auth/login", `{"email":"a@portal.test"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing_credentials", errCodeOf(t, w))
}

func TestLoginHandler_InvalidJSON(t *testing.T) {
	w := postJSON(newAuthHandlers(&testProvider{}).Login, "/api/auth/login", `{"email":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_json", errCodeOf(t, w))
}

func TestRefreshHandler(t *testing.T) {
	provider := &testProvider{
		refresh: func(_ context.Context, refreshToken string) (domainauth.TokenSet, error) {
			assert.Equal(t, "rt", refreshToken)
			return domainauth.TokenSet{AccessToken: "new-at"}, nil
		},
	}
	h := newAuthHandlers(provider)

	w := postJSON(h.Refresh, "/api/auth/refresh", `{"refresh_token":"rt"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var tokens domainauth.TokenSet
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))
	assert.Equal(t, "new-at", tokens.AccessToken)
	// Refresh responses never rotate the refresh token.
	assert.Empty(t, tokens.RefreshToken)

	w = postJSON(h.Refresh, "/api/auth/refresh", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing_refresh_token", errCodeOf(t, w))
}

func TestRefreshHandler_RevokedToken(t *testing.T) {
	provider := &testProvider{
		refresh: func(context.Context, string) (domainauth.TokenSet, error) {
			return domainauth.TokenSet{}, &domainauth.ProviderError{Name: domainauth.ProviderErrNotAuthorized}
		},
	}

	w := postJSON(newAuthHandlers(provider).Refresh, "/api/auth/refresh", `{"refresh_token":"revoked"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_refresh_token", errCodeOf(t, w))
}

func TestForgotPasswordHandler_AlwaysAccepted(t *testing.T) {
	provider := &testProvider{
		forgot: func(context.Context, string) error {
			return &domainauth.ProviderError{Name: domainauth.ProviderErrUserNotFound}
		},
	}

	w := postJSON(newAuthHandlers(provider).ForgotPassword, "/api/auth/forgot", `{"email":"ghost@portal.test"}`)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestResetPasswordHandler(t *testing.T) {
	h := newAuthHandlers(&testProvider{})

	w := postJSON(h.ResetPassword, "/api/auth/reset",
		`{"email":"a@portal.test","code":"123456","new_password":"new-pw"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(h.ResetPassword, "/api/auth/reset", `{"email":"a@portal.test","code":"123456"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing_fields", errCodeOf(t, w))
}

func TestResetPasswordHandler_BadCode(t *testing.T) {
	for _, name := range []string{domainauth.ProviderErrCodeMismatch, domainauth.ProviderErrExpiredCode} {
		provider := &testProvider{
			reset: func(context.Context, string, string, string) error {
				return &domainauth.ProviderError{Name: name}
			},
		}
		w := postJSON(newAuthHandlers(provider).ResetPassword, "/api/auth/reset",
			`{"email":"a@portal.test","code":"000000","new_password":"new-pw"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_code", errCodeOf(t, w))
	}
}

func TestLogoutHandler(t *testing.T) {
	var revoked string
	provider := &testProvider{
		logout: func(_ context.Context, accessToken string) error {
			revoked = accessToken
			return nil
		},
	}
	h := newAuthHandlers(provider)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	r.Header.Set("Authorization", "Bearer at-1")
	h.Logout(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "at-1", revoked)
}

func TestLogoutHandler_NoToken(t *testing.T) {
	h := newAuthHandlers(&testProvider{})

	w := httptest.NewRecorder()
	h.Logout(w, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "no_identity", errCodeOf(t, w))
}
