package http

import (
	"errors"
	"net/http"

	"github.com/plumtrips/backend/internal/api/service"
	"github.com/plumtrips/backend/pkg/httpx"
	"github.com/plumtrips/backend/pkg/slogx"
)

// SessionsHandler lists and revokes the caller's login sessions.
type SessionsHandler struct {
	Sessions *service.SessionService
}

func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessions, err := h.Sessions.List(ctx, httpx.UserIDFromCtx(ctx))
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list sessions", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to list sessions")
		return
	}

	current := httpx.SessionIDFromCtx(ctx)
	out := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s, current))
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (h *SessionsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "session id is required")
		return
	}

	err := h.Sessions.Revoke(ctx, httpx.UserIDFromCtx(ctx), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "session_not_found", "Session not found")
		case errors.Is(err, service.ErrNotSessionOwner):
			writeError(w, http.StatusForbidden, "forbidden", "Session belongs to a different user")
		default:
			slogx.FromContext(ctx).Error("failed to revoke session", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "Failed to revoke session")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (h *SessionsHandler) HandleRevokeAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Sessions.RevokeAll(ctx, httpx.UserIDFromCtx(ctx)); err != nil {
		slogx.FromContext(ctx).Error("failed to revoke sessions", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to revoke sessions")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
