package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
	"github.com/edbridge/portal-api/internal/service"
)

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc    *service.AuthService
	Logger *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Portal   string `json:"portal,omitempty"`
}

// Login handles POST /api/auth/login.
// Failures always return the same generic invalid-credentials message,
// whether the password was wrong, the account is unconfirmed, or the account
// lacks the portal's group, so the endpoint cannot be used to enumerate
// account state. The precise cause is logged server-side.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_credentials",
			Err:     errors.New("email and password are required"),
		})
		return
	}

	tokens, err := h.Svc.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Portal:   service.Portal(req.Portal),
	})
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "invalid_credentials",
			Err:     errors.New("invalid email or password"),
		})
		return
	}

	WriteJSON(w, http.StatusOK, tokens)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_refresh_token",
			Err:     errors.New("refresh token is required"),
		})
		return
	}

	tokens, err := h.Svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "invalid_refresh_token",
			Err:     errors.New("refresh token is invalid or revoked"),
		})
		return
	}

	WriteJSON(w, http.StatusOK, tokens)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword handles POST /api/auth/forgot.
// Always answers 202 so the endpoint reveals nothing about which accounts
// exist.
func (h *AuthHandlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_email",
			Err:     errors.New("email is required"),
		})
		return
	}

	if err := h.Svc.ForgotPassword(r.Context(), req.Email); err != nil {
		h.logger().ErrorContext(r.Context(), "forgot password", "error", err)
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// ResetPassword handles POST /api/auth/reset.
func (h *AuthHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Code == "" || req.NewPassword == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_fields",
			Err:     errors.New("email, code, and new password are required"),
		})
		return
	}

	if err := h.Svc.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		if domainauth.IsProviderError(err, domainauth.ProviderErrCodeMismatch) ||
			domainauth.IsProviderError(err, domainauth.ProviderErrExpiredCode) {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: "invalid_code",
				Err:     errors.New("the recovery code is invalid or expired"),
			})
			return
		}
		WriteError(w, ErrorParams{
			Code:    http.StatusBadGateway,
			ErrCode: "reset_failed",
			Err:     errors.New("could not reset password"),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Logout handles POST /api/auth/logout. The bearer access token is revoked
// globally at the IdP, invalidating every outstanding token for the user.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	rawToken, ok := bearerToken(r)
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "no_identity",
			Err:     errors.New("authorization header is required"),
		})
		return
	}

	if err := h.Svc.Logout(r.Context(), rawToken); err != nil {
		h.logger().ErrorContext(r.Context(), "logout", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusBadGateway,
			ErrCode: "logout_failed",
			Err:     errors.New("could not sign out"),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}
