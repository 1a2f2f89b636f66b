package http

import (
	"errors"
	"net/http"

	"github.com/plumtrips/backend/internal/api/service"
	"github.com/plumtrips/backend/pkg/httpx"
	"github.com/plumtrips/backend/pkg/slogx"
)

// MeHandler returns the authenticated caller's account.
type MeHandler struct {
	Accounts *service.AccountService
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.Accounts.Get(ctx, httpx.UserIDFromCtx(ctx))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Account no longer exists")
			return
		}
		slogx.FromContext(ctx).Error("failed to load user", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to load account")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}
