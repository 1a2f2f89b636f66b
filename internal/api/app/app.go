package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	httpapi "github.com/plumtrips/backend/internal/api/http"
	"github.com/plumtrips/backend/internal/api/metrics"
	"github.com/plumtrips/backend/internal/api/service"
	"github.com/plumtrips/backend/internal/api/store"
	"github.com/plumtrips/backend/internal/api/store/drivers/sqlite"
	"github.com/plumtrips/backend/internal/tbo"
	"github.com/plumtrips/backend/pkg/cryptox"
	"github.com/plumtrips/backend/pkg/jwtx"
	"github.com/plumtrips/backend/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the backend with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	sessionSigner   *jwtx.HS256Signer
	sessionVerifier *jwtx.HS256Verifier

	accountService      *service.AccountService
	sessionService      *service.SessionService
	ssoService          *service.SSOService
	googleService       *service.GoogleService
	housekeepingService *service.HousekeepingService
	tboClient           *tbo.Client

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "plumtrips-api",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.SessionSecret == "" {
		return nil, errors.New("PT_SESSION_SECRET is required")
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initMetrics()

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("api starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down api...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("api stopped")
	return nil
}

func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initMetrics() {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.New(app.registry)
}

func (app *Application) initServices() error {
	signer, err := jwtx.NewSignerHS256([]byte(app.cfg.SessionSecret))
	if err != nil {
		return fmt.Errorf("failed to initialize session signer: %w", err)
	}
	verifier, err := jwtx.NewVerifierHS256([]byte(app.cfg.SessionSecret), app.cfg.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize session verifier: %w", err)
	}
	app.sessionSigner = signer
	app.sessionVerifier = verifier

	app.accountService = &service.AccountService{Store: app.db}
	app.sessionService = &service.SessionService{
		Store:   app.db,
		Signer:  signer,
		Issuer:  app.cfg.PublicBaseURL,
		TTL:     app.cfg.SessionTTL,
		Metrics: app.metrics,
	}

	if err := app.initSSO(); err != nil {
		return err
	}

	if app.cfg.GoogleClientID != "" {
		app.googleService = &service.GoogleService{
			Store: app.db,
			OAuth: &oauth2.Config{
				ClientID:     app.cfg.GoogleClientID,
				ClientSecret: app.cfg.GoogleClientSecret,
				RedirectURL:  app.cfg.GoogleRedirectURL,
				Scopes:       []string{"openid", "email", "profile"},
				Endpoint:     google.Endpoint,
			},
		}
	} else {
		app.logger.Warn("google oauth disabled: PT_GOOGLE_CLIENT_ID not set")
	}

	if app.cfg.TBOBaseURL != "" {
		app.tboClient = tbo.NewClient(tbo.Config{
			BaseURL:   app.cfg.TBOBaseURL,
			AuthURL:   app.cfg.TBOAuthURL,
			ClientID:  app.cfg.TBOClientID,
			UserName:  app.cfg.TBOUserName,
			Password:  app.cfg.TBOPassword,
			EndUserIP: app.cfg.TBOEndUserIP,
			TokenTTL:  app.cfg.TBOTokenTTL,
			Metrics:   app.metrics,
		})
	} else {
		app.logger.Warn("flight proxy disabled: PT_TBO_BASE_URL not set")
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	return nil
}

// initSSO loads or generates the RS256 ticket keypair and builds the SSO
// service. A generated key is ephemeral: tickets stop verifying across a
// restart, which is fine for dev and wrong for prod, hence the warning.
func (app *Application) initSSO() error {
	var privPEM []byte
	if app.cfg.SSOPrivateKeyFile != "" {
		pem, err := os.ReadFile(app.cfg.SSOPrivateKeyFile)
		if err != nil {
			return fmt.Errorf("failed to read sso private key: %w", err)
		}
		privPEM = pem
	} else {
		app.logger.Warn("PT_SSO_PRIVATE_KEY_FILE not set, generating an ephemeral sso key")
		pem, err := cryptox.GenerateRSAKey(2048)
		if err != nil {
			return fmt.Errorf("failed to generate sso key: %w", err)
		}
		privPEM = pem
	}

	pubPEM, err := cryptox.RSAPublicKeyPEM(privPEM)
	if err != nil {
		return fmt.Errorf("failed to derive sso public key: %w", err)
	}

	rsSigner, err := jwtx.NewSignerRS256(privPEM)
	if err != nil {
		return fmt.Errorf("failed to initialize sso signer: %w", err)
	}
	rsVerifier, err := jwtx.NewVerifierRS256(pubPEM, app.cfg.PublicBaseURL, app.cfg.SSOAudience)
	if err != nil {
		return fmt.Errorf("failed to initialize sso verifier: %w", err)
	}

	if app.cfg.SSORedeemKey == "" {
		app.logger.Warn("PT_SSO_REDEEM_KEY not set, ticket redemption is disabled")
	}

	app.ssoService = &service.SSOService{
		Store:             app.db,
		Signer:            rsSigner,
		Verifier:          rsVerifier,
		Issuer:            app.cfg.PublicBaseURL,
		Audience:          app.cfg.SSOAudience,
		RelyingPartyBase:  app.cfg.SSORelyingPartyBase,
		RedeemKey:         app.cfg.SSORedeemKey,
		DefaultReturnPath: app.cfg.SSODefaultReturnPath,
		TicketTTL:         app.cfg.SSOTicketTTL,
		Metrics:           app.metrics,
	}

	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.sessionVerifier,
		BuildVersion,
		app.db,
		app.registry,
		httpapi.CookieConfig{
			Domain: app.cfg.CookieDomain,
			Secure: app.cfg.CookieSecure,
		},
		app.cfg.FrontendBaseURL,
		app.logger,
	)

	router.AccountService = app.accountService
	router.SessionService = app.sessionService
	router.SSOService = app.ssoService
	router.GoogleService = app.googleService
	router.TBOClient = app.tboClient
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
