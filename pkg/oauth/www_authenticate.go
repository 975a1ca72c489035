package oauth

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

var authParamRegex = regexp.MustCompile(`(\w+)="([^"]*)"`)

// ParseWWWAuthenticate parses a WWW-Authenticate header value.
// It supports the Bearer scheme with OAuth 2.0 and MCP-specific parameters.
//
// Example headers:
//
//	Bearer realm="https://toolarr.example.com"
//	Bearer realm="https://toolarr.example.com", error="insufficient_scope", scope="mcp:write"
//	Bearer realm="https://toolarr.example.com", resource_metadata="https://toolarr.example.com/.well-known/oauth-protected-resource"
//
// Returns an AuthChallenge with the parsed parameters, or an error if parsing fails.
func ParseWWWAuthenticate(header string) (*AuthChallenge, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, fmt.Errorf("empty WWW-Authenticate header")
	}

	parts := strings.SplitN(header, " ", 2)
	challenge := &AuthChallenge{
		Scheme: parts[0],
	}

	if len(parts) > 1 {
		params := parseAuthParams(parts[1])

		if realm, ok := params["realm"]; ok {
			challenge.Realm = realm
			if strings.HasPrefix(realm, "http://") || strings.HasPrefix(realm, "https://") {
				challenge.Issuer = realm
			}
		}
		challenge.ResourceMetadataURL = params["resource_metadata"]
		challenge.Scope = params["scope"]
		challenge.Error = params["error"]
		challenge.ErrorDescription = params["error_description"]
	}

	return challenge, nil
}

// parseAuthParams parses the parameter portion of a WWW-Authenticate header.
// Parameters are in the format: key1="value1", key2="value2"
func parseAuthParams(paramStr string) map[string]string {
	params := make(map[string]string)

	for _, match := range authParamRegex.FindAllStringSubmatch(paramStr, -1) {
		if len(match) == 3 {
			params[strings.ToLower(match[1])] = match[2]
		}
	}

	return params
}

// ParseWWWAuthenticateFromResponse extracts the auth challenge from a 401 or 403 response.
// Returns nil if no WWW-Authenticate header is present or if parsing fails.
func ParseWWWAuthenticateFromResponse(resp *http.Response) *AuthChallenge {
	if resp == nil {
		return nil
	}
	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return nil
	}

	header := resp.Header.Get("WWW-Authenticate")
	if header == "" {
		return nil
	}

	challenge, err := ParseWWWAuthenticate(header)
	if err != nil {
		return nil
	}

	return challenge
}

// FormatWWWAuthenticate renders a Bearer challenge (RFC 6750 section 3).
// Empty fields are omitted. Double quotes in values are dropped since the
// header grammar does not allow escaping them in our parser.
func FormatWWWAuthenticate(c AuthChallenge) string {
	scheme := c.Scheme
	if scheme == "" {
		scheme = TokenTypeBearer
	}

	var params []string
	add := func(key, value string) {
		if value == "" {
			return
		}
		params = append(params, fmt.Sprintf(`%s="%s"`, key, strings.ReplaceAll(value, `"`, "")))
	}
	add("realm", c.Realm)
	add("resource_metadata", c.ResourceMetadataURL)
	add("error", c.Error)
	add("error_description", c.ErrorDescription)
	add("scope", c.Scope)

	if len(params) == 0 {
		return scheme
	}
	return scheme + " " + strings.Join(params, ", ")
}
