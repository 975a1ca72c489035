package oauth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWWWAuthenticate(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected *AuthChallenge
		wantErr  bool
	}{
		{
			name:    "empty header",
			header:  "",
			wantErr: true,
		},
		{
			name:     "bare scheme",
			header:   "Bearer",
			expected: &AuthChallenge{Scheme: "Bearer"},
		},
		{
			name:   "realm with URL becomes issuer",
			header: `Bearer realm="https://toolarr.example.com"`,
			expected: &AuthChallenge{
				Scheme: "Bearer",
				Realm:  "https://toolarr.example.com",
				Issuer: "https://toolarr.example.com",
			},
		},
		{
			name:   "insufficient scope challenge",
			header: `Bearer realm="toolarr", error="insufficient_scope", error_description="scope mcp:write required", scope="mcp:write"`,
			expected: &AuthChallenge{
				Scheme:           "Bearer",
				Realm:            "toolarr",
				Error:            "insufficient_scope",
				ErrorDescription: "scope mcp:write required",
				Scope:            "mcp:write",
			},
		},
		{
			name:   "resource metadata",
			header: `Bearer resource_metadata="https://toolarr.example.com/.well-known/oauth-protected-resource"`,
			expected: &AuthChallenge{
				Scheme:              "Bearer",
				ResourceMetadataURL: "https://toolarr.example.com/.well-known/oauth-protected-resource",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWWWAuthenticate(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFormatWWWAuthenticate_RoundTrip(t *testing.T) {
	challenge := AuthChallenge{
		Scheme:              "Bearer",
		Realm:               "https://toolarr.example.com",
		ResourceMetadataURL: "https://toolarr.example.com/.well-known/oauth-protected-resource",
		Error:               "invalid_token",
		ErrorDescription:    "The access token is missing, invalid or expired",
	}

	header := FormatWWWAuthenticate(challenge)
	assert.Contains(t, header, `error="invalid_token"`)
	assert.NotContains(t, header, "scope=")

	parsed, err := ParseWWWAuthenticate(header)
	require.NoError(t, err)
	assert.Equal(t, challenge.Realm, parsed.Realm)
	assert.Equal(t, challenge.ResourceMetadataURL, parsed.ResourceMetadataURL)
	assert.Equal(t, challenge.Error, parsed.Error)
	assert.Equal(t, challenge.ErrorDescription, parsed.ErrorDescription)
	assert.True(t, parsed.IsOAuthChallenge())
	assert.Equal(t, "https://toolarr.example.com", parsed.GetIssuer())
}

func TestFormatWWWAuthenticate_Defaults(t *testing.T) {
	assert.Equal(t, "Bearer", FormatWWWAuthenticate(AuthChallenge{}))
	assert.Equal(t, `Bearer realm="ab"`, FormatWWWAuthenticate(AuthChallenge{Realm: `a"b`}))
}

func TestParseWWWAuthenticateFromResponse(t *testing.T) {
	assert.Nil(t, ParseWWWAuthenticateFromResponse(nil))

	ok := &http.Response{StatusCode: http.StatusOK, Header: http.Header{}}
	ok.Header.Set("WWW-Authenticate", `Bearer realm="x"`)
	assert.Nil(t, ParseWWWAuthenticateFromResponse(ok))

	forbidden := &http.Response{StatusCode: http.StatusForbidden, Header: http.Header{}}
	forbidden.Header.Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="mcp:admin"`)
	challenge := ParseWWWAuthenticateFromResponse(forbidden)
	require.NotNil(t, challenge)
	assert.Equal(t, "mcp:admin", challenge.Scope)

	missing := &http.Response{StatusCode: http.StatusUnauthorized, Header: http.Header{}}
	assert.Nil(t, ParseWWWAuthenticateFromResponse(missing))
}
