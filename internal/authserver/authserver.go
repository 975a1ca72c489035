package authserver

import (
	"fmt"
	"net/http"
	"time"
)

// RegistrationOptions controls dynamic client registration.
type RegistrationOptions struct {
	Enabled      bool
	MaxPerWindow int
	Window       time.Duration
}

// Options configures an AuthServer.
type Options struct {
	// Issuer is the public base URL of the server.
	Issuer       string
	ResourceName string
	Scopes       []string

	CodeTTL       time.Duration
	TokenTTL      time.Duration
	SweepInterval time.Duration

	Registration      RegistrationOptions
	StaticClients     []StaticClient
	TrustProxyHeaders bool

	// Clock and Secrets default to the system clock and crypto/rand.
	Clock   Clock
	Secrets SecretGenerator
}

// AuthServer bundles the stores, engine and HTTP handler of the embedded
// authorization server. It is constructed once at startup and shared by
// reference with the gateway.
type AuthServer struct {
	Clients *ClientRegistry
	Codes   *CodeStore
	Tokens  *TokenStore
	Engine  *Engine
	Metrics *Metrics
	Limiter *RateLimiter
	Handler *Handler
	Sweeper *Sweeper
}

// New builds an AuthServer and loads its static clients.
func New(opts Options) (*AuthServer, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("issuer is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	secrets := opts.Secrets
	if secrets == nil {
		secrets = NewRandomGenerator()
	}
	scopes := NewScopes(opts.Scopes...)
	if scopes.Empty() {
		scopes = DefaultScopes
	}

	metrics := NewMetrics()
	clients := NewClientRegistry(secrets, clock, scopes)
	codes := NewCodeStore(secrets, clock, opts.CodeTTL)
	tokens := NewTokenStore(secrets, clock, opts.TokenTTL)
	limiter := NewRateLimiter(RateLimiterConfig{
		MaxAttempts: opts.Registration.MaxPerWindow,
		Window:      opts.Registration.Window,
	}, clock)

	for _, sc := range opts.StaticClients {
		if err := clients.AddStatic(sc); err != nil {
			return nil, err
		}
	}

	engine := NewEngine(EngineConfig{
		Issuer:              opts.Issuer,
		ResourceName:        opts.ResourceName,
		Scopes:              scopes,
		RegistrationEnabled: opts.Registration.Enabled,
	}, clients, codes, tokens, clock, metrics)

	handlerOpts := []HandlerOption{WithTrustedProxyHeaders(opts.TrustProxyHeaders)}
	if opts.Registration.Enabled {
		handlerOpts = append(handlerOpts, WithRegistration(limiter))
	}

	return &AuthServer{
		Clients: clients,
		Codes:   codes,
		Tokens:  tokens,
		Engine:  engine,
		Metrics: metrics,
		Limiter: limiter,
		Handler: NewHandler(engine, metrics, handlerOpts...),
		Sweeper: NewSweeper(codes, tokens, limiter, metrics, clock, opts.SweepInterval),
	}, nil
}

// RegisterRoutes mounts the OAuth endpoints on mux.
func (s *AuthServer) RegisterRoutes(mux *http.ServeMux) {
	s.Handler.RegisterRoutes(mux)
}

// HealthStatus summarizes the server for the health endpoint.
type HealthStatus struct {
	Clients int            `json:"clients"`
	Codes   int            `json:"codes"`
	Tokens  int            `json:"tokens"`
	Metrics MetricsSummary `json:"metrics"`
}

// Health returns current store sizes and counters.
func (s *AuthServer) Health() HealthStatus {
	return HealthStatus{
		Clients: s.Clients.Count(),
		Codes:   s.Codes.Count(),
		Tokens:  s.Tokens.Count(),
		Metrics: s.Metrics.Summary(),
	}
}
