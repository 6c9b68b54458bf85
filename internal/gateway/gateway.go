// ABOUTME: Server orchestrator that wires the loyalty form's HTTP routes
// ABOUTME: Manages the logo store, listeners and graceful shutdown lifecycle

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"tailscale.com/tsnet"

	"github.com/2389/loyalty-form/internal/assets"
	"github.com/2389/loyalty-form/internal/auth"
	"github.com/2389/loyalty-form/internal/config"
	"github.com/2389/loyalty-form/internal/loyaltyapi"
	"github.com/2389/loyalty-form/internal/pages"
	"github.com/2389/loyalty-form/internal/profilecache"
	"github.com/2389/loyalty-form/internal/store"
)

// Gateway serves the loyalty form and its supporting pages.
type Gateway struct {
	config      *config.Config
	store       store.LogoStore
	pages       *pages.Renderer
	normalizer  *auth.Normalizer
	signer      *auth.Signer
	loyalty     *loyaltyapi.Client
	profiles    *profilecache.Cache
	handler     http.Handler
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger

	// publicURL is the externally reachable base URL used in sample links.
	// Empty means derive it from the request.
	publicURL string
}

// initStore creates the logo store at the configured path.
func initStore(cfg *config.Config) (store.LogoStore, error) {
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New creates a Gateway with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}
	return newWithStore(cfg, s, logger)
}

func newWithStore(cfg *config.Config, s store.LogoStore, logger *slog.Logger) (*Gateway, error) {
	renderer, err := pages.New(logger)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("loading pages: %w", err)
	}

	gw := &Gateway{
		config:    cfg,
		store:     s,
		pages:     renderer,
		signer:    auth.NewSigner(auth.SigningKey(cfg.Auth.JWTSecret)),
		loyalty:   loyaltyapi.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.APIToken, cfg.Upstream.Timeout, logger),
		logger:    logger.With("component", "gateway"),
		publicURL: cfg.Branding.PublicURL,
	}

	strategies := auth.DefaultStrategies(cfg.Auth.JWTSecret, cfg.IsProduction())
	if !cfg.IsProduction() {
		gw.logger.Warn("unverified token fallback enabled", "environment", cfg.Environment)
	}
	decoder := auth.NewDecoder(logger.With("component", "auth"), strategies...)
	gw.normalizer = auth.NewNormalizer(decoder, gw.profileLookup(), logger.With("component", "normalizer"))

	mux := http.NewServeMux()

	// Health endpoints
	mux.HandleFunc("GET /health", gw.handleHealth)
	mux.HandleFunc("GET /health/ready", gw.handleReady)

	// Form entry point, any method
	mux.HandleFunc("/{$}", gw.handleRoot)
	mux.HandleFunc("/index.html", gw.handleRoot)

	mux.HandleFunc("GET /success", gw.handleSuccess)
	mux.HandleFunc("GET /redirect", gw.handleRedirect)
	gw.registerLogoRoutes(mux)

	mux.Handle("GET /static/", http.StripPrefix("/static", assets.FileServer()))

	gw.handler = requestLogger(gw.logger, mux)
	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// profileLookup returns the enrichment source, or nil when enrichment is off.
func (g *Gateway) profileLookup() auth.ProfileLookup {
	if g.config.Enrichment.Disabled {
		return nil
	}
	if g.config.Upstream.BaseURL == "" {
		g.logger.Warn("upstream.base_url not set, first-name enrichment disabled")
		return nil
	}
	if g.config.Enrichment.CacheTTL > 0 {
		g.profiles = profilecache.New(g.config.Enrichment.CacheTTL, g.config.Enrichment.CacheMaxUsers)
	}
	return newCachedProfiles(g.loyalty, g.profiles)
}

// Handler returns the root HTTP handler, including request logging.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// setupTCPListener creates the standard TCP listener for HTTP.
func (g *Gateway) setupTCPListener() (net.Listener, error) {
	g.logger.Info("starting loyalty form server", "http_addr", g.config.Server.HTTPAddr)

	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// setupListener creates the listener based on configuration (Tailscale or TCP).
func (g *Gateway) setupListener(ctx context.Context) (net.Listener, error) {
	if g.config.Tailscale.Enabled {
		if g.config.Server.HTTPAddr != "" {
			g.logger.Warn("server.http_addr is ignored when tailscale is enabled", "http_addr", g.config.Server.HTTPAddr)
		}
		return g.setupTailscaleListener(ctx)
	}
	return g.setupTCPListener()
}

// startServer starts the HTTP server in a goroutine, returning its error channel.
func (g *Gateway) startServer(ln net.Listener) chan error {
	errCh := make(chan error, 1)

	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		return err
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := g.setupListener(ctx)
	if err != nil {
		return err
	}

	errCh := g.startServer(ln)
	serverErr := g.waitForShutdownSignal(ctx, errCh)

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() since the run context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully stops the server and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down loyalty form server")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	if g.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", g.tsnetServer.Close())
	}
	errs = appendCloseError(errs, "store close", g.store.Close())

	if g.profiles != nil {
		g.profiles.Close()
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if the logo store answers.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := g.store.Ping(ctx); err != nil {
		g.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
