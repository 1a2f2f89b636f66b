package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plumtrips/backend/internal/api/service"
	"github.com/plumtrips/backend/internal/api/store"
	"github.com/plumtrips/backend/internal/tbo"
	"github.com/plumtrips/backend/pkg/httpx"
	"github.com/plumtrips/backend/pkg/jwtx"
	"github.com/plumtrips/backend/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     *jwtx.HS256Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	cookies      CookieConfig
	frontendBase string

	store    store.Store
	registry *prometheus.Registry

	AccountService *service.AccountService
	SessionService *service.SessionService
	SSOService     *service.SSOService
	GoogleService  *service.GoogleService
	TBOClient      *tbo.Client
}

func NewRouter(
	verifier *jwtx.HS256Verifier,
	buildVersion string,
	st store.Store,
	registry *prometheus.Registry,
	cookies CookieConfig,
	frontendBase string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		registry:     registry,
		cookies:      cookies,
		frontendBase: frontendBase,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerOAuth()
	r.registerSSO()
	r.registerMe()
	r.registerFlights()
	r.registerBridge()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// session builds the authentication middleware, touching the session's
// last-seen marker on every authenticated request.
func (r *Router) session() httpx.Middleware {
	return httpx.SessionMiddleware(r.verifier, func(ctx context.Context, c jwtx.SessionClaims) {
		r.SessionService.Touch(ctx, c.SID)
	})
}

func (r *Router) registerAuth() {
	registerHandler := &RegisterHandler{
		Accounts: r.AccountService,
		Sessions: r.SessionService,
		Cookies:  r.cookies,
	}
	loginHandler := &LoginHandler{
		Accounts: r.AccountService,
		Sessions: r.SessionService,
		Cookies:  r.cookies,
	}
	logoutHandler := &LogoutHandler{
		Sessions: r.SessionService,
		Cookies:  r.cookies,
	}
	meHandler := &MeHandler{Accounts: r.AccountService}

	// Credential endpoints get the strict per-IP limit
	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Logout accepts expired or absent sessions; it still clears cookies
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(logoutHandler,
			httpx.OptionalSession(r.verifier),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /api/auth/me",
		httpx.Chain(meHandler,
			r.session(),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerOAuth() {
	// Google login is optional; without a configured client the routes
	// simply don't exist.
	if r.GoogleService == nil {
		return
	}

	h := &GoogleHandler{
		Google:       r.GoogleService,
		Sessions:     r.SessionService,
		Cookies:      r.cookies,
		FrontendBase: r.frontendBase,
	}

	r.Mux.Handle("GET /api/oauth/google/start",
		httpx.Chain(http.HandlerFunc(h.HandleStart),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /api/oauth/google/callback",
		httpx.Chain(http.HandlerFunc(h.HandleCallback),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSSO() {
	ticketHandler := &SSOTicketHandler{
		SSO:      r.SSOService,
		Accounts: r.AccountService,
	}
	redeemHandler := &SSORedeemHandler{
		SSO:      r.SSOService,
		Sessions: r.SessionService,
	}

	// Ticket minting needs an authenticated user
	r.Mux.Handle("POST /api/v1/sso/ticket",
		httpx.Chain(ticketHandler,
			r.session(),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	// Redemption is server-to-server, gated by the shared key inside the
	// handler; rate limited by IP
	r.Mux.Handle("POST /api/v1/sso/redeem",
		httpx.Chain(redeemHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerMe() {
	profileHandler := &ProfileHandler{
		Accounts: r.AccountService,
		Cookies:  r.cookies,
	}
	sessionsHandler := &SessionsHandler{Sessions: r.SessionService}

	secured := func(h http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(h,
			r.session(),
			httpx.RateLimitByUser(limit),
		)
	}

	r.Mux.Handle("GET /api/v1/me/profile", secured(profileHandler.HandleGet, httpx.LenientLimit))
	r.Mux.Handle("PUT /api/v1/me/profile", secured(profileHandler.HandleUpdate, httpx.ModerateLimit))
	r.Mux.Handle("PUT /api/v1/me/co-travellers", secured(profileHandler.HandleCoTravellers, httpx.ModerateLimit))
	r.Mux.Handle("POST /api/v1/me/password", secured(profileHandler.HandleChangePassword, httpx.StrictLimit))

	r.Mux.Handle("GET /api/v1/me/sessions", secured(sessionsHandler.HandleList, httpx.LenientLimit))
	r.Mux.Handle("DELETE /api/v1/me/sessions/{id}", secured(sessionsHandler.HandleRevoke, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /api/v1/me/sessions", secured(sessionsHandler.HandleRevokeAll, httpx.ModerateLimit))
}

func (r *Router) registerFlights() {
	mockHandler := &MockFlightsHandler{}

	r.Mux.Handle("GET /api/v1/flights/search",
		httpx.Chain(mockHandler,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// The supplier proxy is optional; without credentials the routes
	// simply don't exist.
	if r.TBOClient == nil {
		return
	}
	tboHandler := &TBOHandler{Client: r.TBOClient}

	secured := func(h http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(h,
			r.session(),
			httpx.RateLimitByUser(limit),
		)
	}

	r.Mux.Handle("POST /api/v1/tbo/flights/search", secured(tboHandler.HandleSearch, httpx.ModerateLimit))
	r.Mux.Handle("POST /api/v1/tbo/flights/fare-rule", secured(tboHandler.HandleFareRule, httpx.ModerateLimit))
	r.Mux.Handle("POST /api/v1/tbo/flights/fare-quote", secured(tboHandler.HandleFareQuote, httpx.ModerateLimit))
	r.Mux.Handle("POST /api/v1/tbo/flights/book", secured(tboHandler.HandleBook, httpx.StrictLimit))
	r.Mux.Handle("POST /api/v1/tbo/flights/ticket", secured(tboHandler.HandleTicket, httpx.StrictLimit))
	r.Mux.Handle("POST /api/v1/tbo/flights/booking-details", secured(tboHandler.HandleBookingDetails, httpx.ModerateLimit))
}

func (r *Router) registerBridge() {
	h := &BridgeHandler{
		Verifier: r.verifier,
		Cookies:  r.cookies,
	}

	r.Mux.Handle("GET /bridge",
		httpx.Chain(http.HandlerFunc(h.HandleBridge),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /logout-bridge",
		httpx.Chain(http.HandlerFunc(h.HandleLogoutBridge),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics",
		promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}),
	)
}
