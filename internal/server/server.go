package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/Zipties/toolarr/internal/arr"
	"github.com/Zipties/toolarr/internal/authserver"
	"github.com/Zipties/toolarr/internal/config"
	"github.com/Zipties/toolarr/internal/gateway"
	"github.com/Zipties/toolarr/internal/tools"
	"github.com/Zipties/toolarr/pkg/logging"
)

const (
	// DefaultReadHeaderTimeout is the default timeout for reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultWriteTimeout is the default timeout for writing responses.
	DefaultWriteTimeout = 120 * time.Second
	// DefaultIdleTimeout is the default idle timeout for keepalive connections.
	DefaultIdleTimeout = 120 * time.Second
	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 15 * time.Second

	// HealthPath serves the unauthenticated health check.
	HealthPath = "/health"

	serverName = "toolarr"
)

// Server is the toolarr HTTP server: the OAuth endpoints, the health check
// and the gateway-protected MCP endpoint on one mux.
type Server struct {
	config    config.Config
	auth      *authserver.AuthServer
	registry  *gateway.Registry
	gateway   *gateway.Gateway
	instances *arr.Instances
	handler   http.Handler
	version   string
}

// New wires the authorization server, tool registry, MCP server and
// gateway from cfg. cfg must already be validated.
func New(cfg config.Config, instances *arr.Instances, version string) (*Server, error) {
	if err := validateHTTPSRequirement(cfg.Server); err != nil {
		return nil, err
	}

	auth, err := authserver.New(authOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization server: %w", err)
	}

	registry := gateway.NewRegistry()
	if err := tools.New(instances).Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	mcpServer := gateway.NewMCPServer(registry, serverName, version)
	mcpHandler := gateway.NewHTTPHandler(mcpServer, gateway.DefaultEndpointPath)

	gw := gateway.New(auth.Tokens, registry, auth.Metrics, gateway.Config{
		Realm:               auth.Engine.Issuer(),
		ResourceMetadataURL: auth.Engine.ResourceMetadataURL(),
		LegacyAPIKey:        cfg.Server.APIKey,
		FullScopes:          authserver.NewScopes(cfg.OAuth.Scopes...),
		TrustProxyHeaders:   cfg.Server.TrustProxyHeaders,
	})

	s := &Server{
		config:    cfg,
		auth:      auth,
		registry:  registry,
		gateway:   gw,
		instances: instances,
		version:   version,
	}
	s.handler = s.createMux(mcpHandler)

	if cfg.Server.APIKey != "" {
		logging.Warn("Server", "Legacy API key authentication is enabled; it grants every scope")
	}
	return s, nil
}

func authOptions(cfg config.Config) authserver.Options {
	static := make([]authserver.StaticClient, 0, len(cfg.OAuth.Clients))
	for _, c := range cfg.OAuth.Clients {
		static = append(static, authserver.StaticClient{
			ID:           c.ID,
			Secret:       c.Secret,
			Name:         c.Name,
			GrantTypes:   c.GrantTypes,
			RedirectURIs: c.RedirectURIs,
			AuthMethod:   c.AuthMethod,
			Scopes:       c.Scopes,
		})
	}

	return authserver.Options{
		Issuer:        cfg.Server.BaseURL,
		ResourceName:  cfg.Server.ResourceName,
		Scopes:        cfg.OAuth.Scopes,
		CodeTTL:       cfg.OAuth.CodeTTL,
		TokenTTL:      cfg.OAuth.TokenTTL,
		SweepInterval: cfg.OAuth.SweepInterval,
		Registration: authserver.RegistrationOptions{
			Enabled:      cfg.OAuth.Registration.Enabled,
			MaxPerWindow: cfg.OAuth.Registration.MaxPerWindow,
			Window:       cfg.OAuth.Registration.Window,
		},
		StaticClients:     static,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
	}
}

// createMux routes the health check, the OAuth endpoints and the
// protected MCP endpoint, with permissive CORS in front.
func (s *Server) createMux(mcpHandler http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+HealthPath, s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleHealth)

	s.auth.RegisterRoutes(mux)
	logging.Info("OAuth", "Registered OAuth 2.1 endpoints")

	mux.Handle(gateway.DefaultEndpointPath, s.gateway.Middleware(mcpHandler))
	logging.Info("Gateway", "Protected %s with bearer authentication (%d tools)", gateway.DefaultEndpointPath, s.registry.Len())

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Mcp-Session-Id", "Mcp-Protocol-Version"},
		ExposedHeaders: []string{"WWW-Authenticate", "Mcp-Session-Id"},
	}).Handler(mux)
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status    string                  `json:"status"`
	Version   string                  `json:"version,omitempty"`
	Clients   int                     `json:"clients"`
	Tools     int                     `json:"tools"`
	Instances map[string][]string     `json:"instances"`
	Auth      authserver.HealthStatus `json:"auth"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	auth := s.auth.Health()
	body := HealthResponse{
		Status:  "ok",
		Version: s.version,
		Clients: auth.Clients,
		Tools:   s.registry.Len(),
		Instances: map[string][]string{
			string(arr.KindSonarr): s.instances.Names(arr.KindSonarr),
			string(arr.KindRadarr): s.instances.Names(arr.KindRadarr),
		},
		Auth: auth,
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Auth returns the embedded authorization server.
func (s *Server) Auth() *authserver.AuthServer {
	return s.auth
}

// Registry returns the tool registry.
func (s *Server) Registry() *gateway.Registry {
	return s.registry
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.Server.ListenAddress()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve runs the HTTP server and the token sweeper on listener until ctx
// is cancelled or either fails, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.auth.Sweeper.Run(gctx)
	})

	g.Go(func() error {
		logging.Info("Server", "Listening on %s (issuer %s)", listener.Addr(), s.auth.Engine.Issuer())
		if err := httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		notifySystemd(daemon.SdNotifyStopping)
		logging.Info("Server", "Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		logging.Info("Server", "Server stopped")
		return nil
	})

	notifySystemd(daemon.SdNotifyReady)
	return g.Wait()
}

// notifySystemd reports state to systemd when running under a unit with
// Type=notify. Elsewhere it is a no-op.
func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logging.Warn("Server", "Failed to notify systemd (%s): %v", state, err)
		return
	}
	if sent {
		logging.Debug("Server", "Notified systemd: %s", state)
	}
}

// validateHTTPSRequirement ensures OAuth 2.1 HTTPS compliance.
// Allows HTTP only for loopback addresses unless explicitly permitted.
func validateHTTPSRequirement(cfg config.ServerConfig) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if err := config.ValidateBaseURL(cfg.BaseURL, cfg.AllowInsecureHTTP); err != nil {
		return fmt.Errorf("invalid base URL %s: %w. Use HTTPS or localhost for development", cfg.BaseURL, err)
	}
	return nil
}
