package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/edbridge/portal-api/internal/data"
	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
	"github.com/edbridge/portal-api/internal/service"
)

// AccountStatusWriter is the slice of the user repository the admin status
// endpoint needs.
type AccountStatusWriter interface {
	SetBlocked(ctx context.Context, id int64, blocked bool) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// UserHandlers provides HTTP handlers for user provisioning and identity
// introspection.
type UserHandlers struct {
	Provisioning *service.ProvisioningService
	Users        AccountStatusWriter
}

type provisionUserRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	Role        string  `json:"role"`
	FullName    *string `json:"full_name,omitempty"`
	CorporateID *int64  `json:"corporate_id,omitempty"`
}

// ProvisionUser handles POST /api/admin/users. The operation is ensure-exists:
// replaying the same request converges on one provisioned account without a
// duplicate-user error. A partial failure (account created at the IdP but a
// later step failed) is distinguished from total failure so operators can
// find the orphaned account.
func (h *UserHandlers) ProvisionUser(w http.ResponseWriter, r *http.Request) {
	var req provisionUserRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	role := domainauth.Role(req.Role)
	if !role.Valid() {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_role",
			Err:     errors.New("role must be one of ADMIN, CORPORATE, STUDENT"),
		})
		return
	}

	user, err := h.Provisioning.ProvisionUser(r.Context(), service.ProvisionInput{
		Email:       req.Email,
		Password:    req.Password,
		Role:        role,
		FullName:    req.FullName,
		CorporateID: req.CorporateID,
	})
	if err != nil {
		if errors.Is(err, domainauth.ErrPartialProvisioning) {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadGateway,
				ErrCode: "partial_provisioning",
				Err:     errors.New("account created but not fully provisioned; recorded for repair"),
			})
			return
		}
		WriteError(w, ErrorParams{
			Code:    http.StatusBadGateway,
			ErrCode: "provisioning_failed",
			Err:     errors.New("could not provision user"),
		})
		return
	}

	WriteJSON(w, http.StatusCreated, user)
}

// Orphans handles GET /api/admin/provisioning/orphans, listing partially
// provisioned accounts awaiting manual repair.
func (h *UserHandlers) Orphans(w http.ResponseWriter, r *http.Request) {
	failures, err := h.Provisioning.Orphans(r.Context())
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "ledger_unavailable",
			Err:     errors.New("could not list provisioning failures"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"orphans": failures})
}

// ResolveOrphan handles DELETE /api/admin/provisioning/orphans/{id}. An
// operator acknowledges a provisioning failure after repairing (or
// deliberately discarding) the account, removing its ledger entry.
func (h *UserHandlers) ResolveOrphan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_failure_id",
			Err:     errors.New("failure id is required"),
		})
		return
	}
	if err := h.Provisioning.ResolveOrphan(r.Context(), id); err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "ledger_unavailable",
			Err:     errors.New("could not resolve provisioning failure"),
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type accountStatusRequest struct {
	IsBlocked *bool `json:"is_blocked,omitempty"`
	IsActive  *bool `json:"is_active,omitempty"`
}

// UpdateStatus handles PATCH /api/admin/users/{id}/status. Blocking or
// deactivating takes effect on the user's next request because authorization
// is recomputed from the database on every call; no token revocation is
// needed.
func (h *UserHandlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_user_id",
			Err:     errors.New("user id must be an integer"),
		})
		return
	}

	var req accountStatusRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.IsBlocked == nil && req.IsActive == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_fields",
			Err:     errors.New("is_blocked or is_active is required"),
		})
		return
	}

	if req.IsBlocked != nil {
		if err := h.Users.SetBlocked(r.Context(), id, *req.IsBlocked); err != nil {
			h.writeStatusError(w, err)
			return
		}
	}
	if req.IsActive != nil {
		if err := h.Users.SetActive(r.Context(), id, *req.IsActive); err != nil {
			h.writeStatusError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandlers) writeStatusError(w http.ResponseWriter, err error) {
	if errors.Is(err, data.ErrUserNotFound) {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "user_not_found",
			Err:     errors.New("no such user"),
		})
		return
	}
	WriteError(w, ErrorParams{
		Code:    http.StatusInternalServerError,
		ErrCode: "update_failed",
		Err:     errors.New("could not update account status"),
	})
}

// Me handles GET /api/me, returning the resolved identity the guard derived
// for this request. Useful for frontends to hydrate their identity context.
func (h *UserHandlers) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		// The guard always runs ahead of this handler; a missing identity is
		// a routing bug, not a client error.
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "no_identity",
			Err:     errors.New("no identity in request context"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, identity)
}
