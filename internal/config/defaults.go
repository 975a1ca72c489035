package config

import (
	"net"
	"strconv"
	"time"
)

const (
	// DefaultHost is the default bind address.
	DefaultHost = "0.0.0.0"

	// DefaultPort is the default listen port.
	DefaultPort = 8000

	// DefaultResourceName is advertised in protected resource metadata.
	DefaultResourceName = "toolarr"

	DefaultCodeTTL       = 10 * time.Minute
	DefaultTokenTTL      = time.Hour
	DefaultSweepInterval = time.Minute

	DefaultRegistrationsPerWindow = 10
	DefaultRegistrationWindow     = time.Hour
)

// DefaultScopes are the scopes the server supports out of the box.
var DefaultScopes = []string{"mcp:read", "mcp:write", "mcp:admin"}

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			ResourceName: DefaultResourceName,
		},
		OAuth: OAuthConfig{
			CodeTTL:       DefaultCodeTTL,
			TokenTTL:      DefaultTokenTTL,
			SweepInterval: DefaultSweepInterval,
			Scopes:        append([]string(nil), DefaultScopes...),
			Registration: RegistrationConfig{
				Enabled:      true,
				MaxPerWindow: DefaultRegistrationsPerWindow,
				Window:       DefaultRegistrationWindow,
			},
		},
	}
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
