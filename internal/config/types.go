package config

import "time"

// Config is the top-level configuration structure for toolarr.
type Config struct {
	Server ServerConfig     `yaml:"server"`
	OAuth  OAuthConfig      `yaml:"oauth"`
	Sonarr []InstanceConfig `yaml:"sonarr,omitempty"`
	Radarr []InstanceConfig `yaml:"radarr,omitempty"`
}

// ServerConfig configures the HTTP listener and public identity.
type ServerConfig struct {
	Host              string `yaml:"host,omitempty"`              // Host to bind to (default: 0.0.0.0)
	Port              int    `yaml:"port,omitempty"`              // Port to listen on (default: 8000)
	BaseURL           string `yaml:"baseUrl,omitempty"`           // Public URL, used as the OAuth issuer
	ResourceName      string `yaml:"resourceName,omitempty"`      // Human readable name in resource metadata
	APIKey            string `yaml:"apiKey,omitempty"`            // Legacy pre-shared bearer key (optional)
	AllowInsecureHTTP bool   `yaml:"allowInsecureHTTP,omitempty"` // Permit a non-loopback http:// baseUrl
	TrustProxyHeaders bool   `yaml:"trustProxyHeaders,omitempty"` // Use X-Forwarded-For for client IPs
}

// OAuthConfig configures the embedded authorization server.
type OAuthConfig struct {
	CodeTTL       time.Duration      `yaml:"codeTTL,omitempty"`
	TokenTTL      time.Duration      `yaml:"tokenTTL,omitempty"`
	SweepInterval time.Duration      `yaml:"sweepInterval,omitempty"`
	Scopes        []string           `yaml:"scopes,omitempty"`
	Registration  RegistrationConfig `yaml:"registration"`
	Clients       []ClientConfig     `yaml:"clients,omitempty"`
}

// RegistrationConfig controls dynamic client registration.
type RegistrationConfig struct {
	Enabled      bool          `yaml:"enabled"`
	MaxPerWindow int           `yaml:"maxPerWindow,omitempty"` // Registrations allowed per client IP per window
	Window       time.Duration `yaml:"window,omitempty"`
}

// ClientConfig is a client provisioned from configuration rather than
// dynamic registration.
type ClientConfig struct {
	ID           string   `yaml:"id"`
	Secret       string   `yaml:"secret"`
	Name         string   `yaml:"name,omitempty"`
	GrantTypes   []string `yaml:"grantTypes,omitempty"`
	RedirectURIs []string `yaml:"redirectUris,omitempty"`
	AuthMethod   string   `yaml:"authMethod,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty"`
}

// InstanceConfig is one Sonarr or Radarr server.
type InstanceConfig struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	APIKey string `yaml:"apiKey"`
}

// ListenAddress returns host:port for the HTTP listener.
func (s ServerConfig) ListenAddress() string {
	return joinHostPort(s.Host, s.Port)
}
