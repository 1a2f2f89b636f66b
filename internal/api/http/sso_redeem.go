package http

import (
	"errors"
	"net/http"

	"github.com/plumtrips/backend/internal/api/service"
	"github.com/plumtrips/backend/pkg/httpx"
	"github.com/plumtrips/backend/pkg/slogx"
)

// RedeemKeyHeader carries the shared secret the relying party presents
// when exchanging a ticket server-to-server.
const RedeemKeyHeader = "x-sso-key"

// SSORedeemHandler exchanges a ticket for a session token. The four
// rejection reasons are distinct so the relying party can branch on them.
type SSORedeemHandler struct {
	SSO      *service.SSOService
	Sessions *service.SessionService
}

type ssoRedeemRequest struct {
	Ticket string `json:"ticket"`
}

func (h *SSORedeemHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req ssoRedeemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Ticket == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "ticket is required")
		return
	}

	user, err := h.SSO.Redeem(ctx, r.Header.Get(RedeemKeyHeader), req.Ticket)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRedeemUnauthorized):
			writeError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid redeem key")
		case errors.Is(err, service.ErrInvalidTicket):
			writeError(w, http.StatusUnauthorized, "invalid_ticket", "Ticket is malformed or has a bad signature")
		case errors.Is(err, service.ErrTicketNotFound):
			writeError(w, http.StatusBadRequest, "ticket_not_found", "Ticket not found")
		case errors.Is(err, service.ErrTicketUsed):
			writeError(w, http.StatusBadRequest, "ticket_used", "Ticket has already been redeemed")
		case errors.Is(err, service.ErrTicketExpired):
			writeError(w, http.StatusBadRequest, "ticket_expired", "Ticket has expired")
		default:
			log.Error("failed to redeem sso ticket", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "Failed to redeem ticket")
		}
		return
	}

	token, _, err := h.Sessions.Open(ctx, user, "sso", r.UserAgent(), clientIP(r))
	if err != nil {
		log.Error("failed to open session", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to open session")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authResponse{
		Token: token,
		User:  toUserResponse(user),
	})
}
