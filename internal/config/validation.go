package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
)

// placeholderAPIKey is the well-known sample key from older deployments;
// it is refused outright.
const placeholderAPIKey = "changeme"

var knownGrantTypes = []string{"authorization_code", "client_credentials"}

var knownAuthMethods = []string{"client_secret_basic", "client_secret_post"}

// Validate checks the configuration and returns a
// *ConfigurationErrorCollection describing every problem, or nil.
func (c Config) Validate() error {
	errs := &ConfigurationErrorCollection{}

	c.validateServer(errs)
	c.validateOAuth(errs)
	validateInstances(errs, "sonarr", c.Sonarr)
	validateInstances(errs, "radarr", c.Radarr)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (c Config) validateServer(errs *ConfigurationErrorCollection) {
	s := c.Server
	if s.Port < 1 || s.Port > 65535 {
		errs.Add("server", "server.port", fmt.Sprintf("must be between 1 and 65535, got %d", s.Port))
	}

	if strings.TrimSpace(s.BaseURL) == "" {
		errs.Add("server", "server.baseUrl", "is required",
			"Set server.baseUrl or "+EnvBaseURL+" to the public URL clients use, e.g. https://toolarr.example.com")
	} else if err := ValidateBaseURL(s.BaseURL, s.AllowInsecureHTTP); err != nil {
		errs.Add("server", "server.baseUrl", err.Error(),
			"Serve toolarr behind TLS, or set server.allowInsecureHTTP for local testing")
	}

	if s.APIKey != "" {
		if s.APIKey == placeholderAPIKey {
			errs.Add("server", "server.apiKey", "must not be the placeholder value", "Generate a random key, e.g. openssl rand -hex 32")
		} else if err := ValidateMinLength("server.apiKey", s.APIKey, 16); err != nil {
			errs.Add("server", "server.apiKey", err.Error())
		}
	}
}

func (c Config) validateOAuth(errs *ConfigurationErrorCollection) {
	o := c.OAuth
	positive := []lo.Entry[string, time.Duration]{
		{Key: "oauth.codeTTL", Value: o.CodeTTL},
		{Key: "oauth.tokenTTL", Value: o.TokenTTL},
		{Key: "oauth.sweepInterval", Value: o.SweepInterval},
	}
	for _, duration := range positive {
		if duration.Value <= 0 {
			errs.Add("oauth", duration.Key, "must be a positive duration")
		}
	}

	if len(o.Scopes) == 0 {
		errs.Add("oauth", "oauth.scopes", "must list at least one scope")
	}
	for _, scope := range o.Scopes {
		if scope == "" || strings.ContainsAny(scope, " \t\"\\") {
			errs.Add("oauth", "oauth.scopes", fmt.Sprintf("invalid scope %q", scope))
		}
	}

	if o.Registration.Enabled {
		if o.Registration.MaxPerWindow <= 0 {
			errs.Add("oauth", "oauth.registration.maxPerWindow", "must be positive when registration is enabled")
		}
		if o.Registration.Window <= 0 {
			errs.Add("oauth", "oauth.registration.window", "must be a positive duration when registration is enabled")
		}
	}

	seen := make(map[string]bool)
	for i, client := range o.Clients {
		field := fmt.Sprintf("oauth.clients[%d]", i)
		if err := ValidateRequired(field+".id", client.ID, "client"); err != nil {
			errs.Add("oauth", field+".id", "is required")
		} else if seen[client.ID] {
			errs.Add("oauth", field+".id", fmt.Sprintf("duplicate client id %q", client.ID))
		}
		seen[client.ID] = true

		if err := ValidateMinLength(field+".secret", client.Secret, 16); err != nil {
			errs.Add("oauth", field+".secret", "must be at least 16 characters")
		}
		for _, grant := range client.GrantTypes {
			if err := ValidateOneOf(field+".grantTypes", grant, knownGrantTypes); err != nil {
				errs.Add("oauth", field+".grantTypes", err.Error())
			}
		}
		if client.AuthMethod != "" {
			if err := ValidateOneOf(field+".authMethod", client.AuthMethod, knownAuthMethods); err != nil {
				errs.Add("oauth", field+".authMethod", err.Error())
			}
		}
		for _, scope := range client.Scopes {
			if !lo.Contains(o.Scopes, scope) {
				errs.Add("oauth", field+".scopes", fmt.Sprintf("scope %q is not in oauth.scopes", scope))
			}
		}
	}
}

func validateInstances(errs *ConfigurationErrorCollection, category string, instances []InstanceConfig) {
	seen := make(map[string]bool)
	for i, instance := range instances {
		field := fmt.Sprintf("%s[%d]", category, i)
		if strings.TrimSpace(instance.Name) == "" {
			errs.Add(category, field+".name", "is required")
		} else if seen[instance.Name] {
			errs.Add(category, field+".name", fmt.Sprintf("duplicate instance name %q", instance.Name))
		}
		seen[instance.Name] = true

		if u, err := url.Parse(instance.URL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			errs.Add(category, field+".url", fmt.Sprintf("must be an absolute http(s) URL, got %q", instance.URL))
		}
		if strings.TrimSpace(instance.APIKey) == "" {
			errs.Add(category, field+".apiKey", "is required")
		}
	}
}

// ValidateBaseURL checks that baseURL is an absolute URL without query or
// fragment, served over https unless the host is loopback or allowInsecure
// is set.
func ValidateBaseURL(baseURL string, allowInsecure bool) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("is not a valid URL: %w", err)
	}
	if u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("must be an absolute http(s) URL")
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("must not contain a query or fragment")
	}
	if u.Scheme == "http" && !allowInsecure && !isLoopback(u.Hostname()) {
		return fmt.Errorf("must use https")
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value, entityType string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("is required for %s", entityType),
		}
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	if lo.Contains(allowed, value) {
		return nil
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateMinLength checks if a string meets minimum length requirements
func ValidateMinLength(field, value string, minLength int) error {
	if len(strings.TrimSpace(value)) < minLength {
		return ValidationError{
			Field:   field,
			Value:   "<redacted>",
			Message: fmt.Sprintf("must be at least %d characters long", minLength),
		}
	}
	return nil
}
