package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	config := GetDefaultConfig()
	config.Server.BaseURL = "https://toolarr.example.com"
	config.Sonarr = []InstanceConfig{{Name: "default", URL: "http://sonarr:8989", APIKey: "key"}}
	return config
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Config)
		wantFields []string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:       "missing base URL",
			mutate:     func(c *Config) { c.Server.BaseURL = "" },
			wantFields: []string{"server.baseUrl"},
		},
		{
			name:       "insecure base URL",
			mutate:     func(c *Config) { c.Server.BaseURL = "http://toolarr.example.com" },
			wantFields: []string{"server.baseUrl"},
		},
		{
			name: "insecure base URL allowed",
			mutate: func(c *Config) {
				c.Server.BaseURL = "http://toolarr.lan"
				c.Server.AllowInsecureHTTP = true
			},
		},
		{
			name:   "loopback http is fine",
			mutate: func(c *Config) { c.Server.BaseURL = "http://127.0.0.1:8000" },
		},
		{
			name:       "placeholder API key",
			mutate:     func(c *Config) { c.Server.APIKey = "changeme" },
			wantFields: []string{"server.apiKey"},
		},
		{
			name:       "bad port",
			mutate:     func(c *Config) { c.Server.Port = 0 },
			wantFields: []string{"server.port"},
		},
		{
			name: "bad durations",
			mutate: func(c *Config) {
				c.OAuth.TokenTTL = 0
				c.OAuth.Registration.Window = 0
			},
			wantFields: []string{"oauth.tokenTTL", "oauth.registration.window"},
		},
		{
			name: "bad static clients",
			mutate: func(c *Config) {
				c.OAuth.Clients = []ClientConfig{
					{ID: "a", Secret: "0123456789abcdef", GrantTypes: []string{"password"}},
					{ID: "a", Secret: "short", Scopes: []string{"mcp:superuser"}},
				}
			},
			wantFields: []string{
				"oauth.clients[0].grantTypes",
				"oauth.clients[1].id",
				"oauth.clients[1].secret",
				"oauth.clients[1].scopes",
			},
		},
		{
			name: "bad instances",
			mutate: func(c *Config) {
				c.Radarr = []InstanceConfig{
					{Name: "default", URL: "radarr:7878", APIKey: "k"},
					{Name: "default", URL: "http://radarr:7878"},
				}
			},
			wantFields: []string{"radarr[0].url", "radarr[1].name", "radarr[1].apiKey"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)

			err := config.Validate()
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)

			var collection *ConfigurationErrorCollection
			require.True(t, errors.As(err, &collection))

			var fields []string
			for _, e := range collection.Errors {
				fields = append(fields, e.Field)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}

func TestConfigurationErrorCollection(t *testing.T) {
	errs := &ConfigurationErrorCollection{}
	assert.False(t, errs.HasErrors())
	assert.Equal(t, "no configuration errors", errs.Error())

	errs.Add("server", "server.port", "must be between 1 and 65535", "use 8000")
	assert.Equal(t, "[server] server.port: must be between 1 and 65535", errs.Error())

	errs.Add("sonarr", "sonarr[0].url", "is required")
	assert.Equal(t, 2, errs.Count())
	assert.Contains(t, errs.Error(), "2 configuration errors")
	assert.Len(t, errs.GetErrorsByCategory("sonarr"), 1)
	assert.Contains(t, errs.GetDetailedReport(), "- use 8000")
}

func TestValidateBaseURL(t *testing.T) {
	assert.NoError(t, ValidateBaseURL("https://example.com/toolarr", false))
	assert.NoError(t, ValidateBaseURL("http://localhost:8000", false))
	assert.NoError(t, ValidateBaseURL("http://[::1]:8000", false))
	assert.Error(t, ValidateBaseURL("https://example.com?x=1", false))
	assert.Error(t, ValidateBaseURL("ftp://example.com", true))
	assert.Error(t, ValidateBaseURL("/relative", true))
}

func TestValidate_ErrorOrderIsStable(t *testing.T) {
	config := validConfig()
	config.OAuth.CodeTTL = 0
	config.OAuth.TokenTTL = 0
	config.OAuth.SweepInterval = 0

	want := []string{"oauth.codeTTL", "oauth.tokenTTL", "oauth.sweepInterval"}
	for i := 0; i < 20; i++ {
		var collection *ConfigurationErrorCollection
		require.True(t, errors.As(config.Validate(), &collection))

		var fields []string
		for _, e := range collection.Errors {
			fields = append(fields, e.Field)
		}
		require.Equal(t, want, fields)
	}
}
