package http

import (
	"errors"
	"net/http"

	"github.com/plumtrips/backend/internal/api/service"
	"github.com/plumtrips/backend/pkg/httpx"
	"github.com/plumtrips/backend/pkg/slogx"
)

// SSOTicketHandler mints an SSO ticket for the authenticated caller and
// returns the relying-party redirect URL carrying it.
type SSOTicketHandler struct {
	SSO      *service.SSOService
	Accounts *service.AccountService
}

type ssoTicketRequest struct {
	Audience   string `json:"audience"`
	ReturnPath string `json:"return_path"`
}

type ssoTicketResponse struct {
	RedirectURL string `json:"redirect_url"`
}

func (h *SSOTicketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req ssoTicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Audience == "" {
		req.Audience = h.SSO.Audience
	}

	user, err := h.Accounts.Get(ctx, httpx.UserIDFromCtx(ctx))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Account no longer exists")
		return
	}

	redirect, err := h.SSO.IssueTicket(ctx, user, req.Audience, req.ReturnPath)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAudienceUnknown):
			writeError(w, http.StatusBadRequest, "unknown_audience", "Audience is not an accepted relying party")
		case errors.Is(err, service.ErrTicketIssuance):
			log.Error("failed to issue sso ticket", "err", err)
			writeError(w, http.StatusInternalServerError, "ticket_issuance_failed", "Failed to issue ticket")
		default:
			log.Error("failed to issue sso ticket", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "Failed to issue ticket")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ssoTicketResponse{RedirectURL: redirect})
}
