package authserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zipties/toolarr/pkg/oauth"
)

func newTestMux(t *testing.T) (*http.ServeMux, *AuthServer) {
	t.Helper()
	srv, _ := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	return mux, srv
}

func doRequest(mux http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func registerViaHTTP(t *testing.T, mux http.Handler, body string) oauth.ClientRegistrationResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, oauth.RegistrationPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(mux, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp oauth.ClientRegistrationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) oauth.ErrorResponse {
	t.Helper()
	var resp oauth.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandler_RegisterThenClientCredentials(t *testing.T) {
	mux, _ := newTestMux(t)

	reg := registerViaHTTP(t, mux, `{"client_name":"Test"}`)
	assert.True(t, strings.HasPrefix(reg.ClientID, "mcp-"))
	assert.NotEmpty(t, reg.ClientSecret)
	assert.Equal(t, "Test", reg.ClientName)
	assert.Equal(t, []string{"client_credentials"}, reg.GrantTypes)
	assert.Equal(t, "client_secret_basic", reg.TokenEndpointAuthMethod)
	assert.Equal(t, "mcp:admin mcp:read mcp:write", reg.Scope)
	assert.NotZero(t, reg.ClientIDIssuedAt)

	form := url.Values{"grant_type": {"client_credentials"}}
	req := httptest.NewRequest(http.MethodPost, oauth.TokenPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(reg.ClientID, reg.ClientSecret)
	rec := doRequest(mux, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var token map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	assert.NotEmpty(t, token["access_token"])
	assert.Equal(t, "Bearer", token["token_type"])
	assert.Equal(t, float64(3600), token["expires_in"])
	assert.NotContains(t, rec.Body.String(), reg.ClientSecret)
}

func TestHandler_ClientSecretPost(t *testing.T) {
	mux, _ := newTestMux(t)
	reg := registerViaHTTP(t, mux, `{"client_name":"poster","token_endpoint_auth_method":"client_secret_post"}`)

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {reg.ClientID},
		"client_secret": {reg.ClientSecret},
		"scope":         {"mcp:read"},
	}
	req := httptest.NewRequest(http.MethodPost, oauth.TokenPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := doRequest(mux, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"scope":"mcp:read"`)
}

func TestHandler_TokenErrors(t *testing.T) {
	mux, _ := newTestMux(t)
	reg := registerViaHTTP(t, mux, `{"client_name":"Test"}`)

	tests := []struct {
		name     string
		form     url.Values
		basic    []string
		expected string
	}{
		{
			name:     "no credentials",
			form:     url.Values{"grant_type": {"client_credentials"}},
			expected: ErrorCodeInvalidClient,
		},
		{
			name:     "wrong secret",
			form:     url.Values{"grant_type": {"client_credentials"}},
			basic:    []string{reg.ClientID, "wrong"},
			expected: ErrorCodeInvalidClient,
		},
		{
			name:     "two authentication methods",
			form:     url.Values{"grant_type": {"client_credentials"}, "client_secret": {reg.ClientSecret}},
			basic:    []string{reg.ClientID, reg.ClientSecret},
			expected: ErrorCodeInvalidRequest,
		},
		{
			name:     "missing grant type",
			form:     url.Values{},
			basic:    []string{reg.ClientID, reg.ClientSecret},
			expected: ErrorCodeInvalidRequest,
		},
		{
			name:     "unsupported grant type",
			form:     url.Values{"grant_type": {"password"}},
			basic:    []string{reg.ClientID, reg.ClientSecret},
			expected: ErrorCodeUnsupportedGrantType,
		},
		{
			name:     "authorization code for machine client",
			form:     url.Values{"grant_type": {"authorization_code"}, "code": {"x"}},
			basic:    []string{reg.ClientID, reg.ClientSecret},
			expected: ErrorCodeUnauthorizedClient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, oauth.TokenPath, strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.basic != nil {
				req.SetBasicAuth(tt.basic[0], tt.basic[1])
			}
			rec := doRequest(mux, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.expected, decodeError(t, rec).Error)
			assert.NotContains(t, rec.Body.String(), reg.ClientSecret)
		})
	}
}

func TestHandler_AuthorizationCodeOverHTTP(t *testing.T) {
	mux, _ := newTestMux(t)
	reg := registerViaHTTP(t, mux, `{"client_name":"browser","grant_types":["authorization_code"],"redirect_uris":["http://127.0.0.1:9876/cb"]}`)
	verifier, challenge := pkcePair()

	query := url.Values{
		"response_type":         {"code"},
		"client_id":             {reg.ClientID},
		"redirect_uri":          {"http://127.0.0.1:9876/cb"},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
		"state":                 {"xyz"},
	}
	rec := doRequest(mux, httptest.NewRequest(http.MethodGet, oauth.AuthorizationPath+"?"+query.Encode(), nil))
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9876", location.Host)
	assert.Equal(t, "xyz", location.Query().Get("state"))

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {location.Query().Get("code")},
		"redirect_uri":  {"http://127.0.0.1:9876/cb"},
		"code_verifier": {verifier},
	}
	req := httptest.NewRequest(http.MethodPost, oauth.TokenPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(reg.ClientID, reg.ClientSecret)
	tokenRec := doRequest(mux, req)
	require.Equal(t, http.StatusOK, tokenRec.Code, tokenRec.Body.String())
}

func TestHandler_AuthorizeUnregisteredRedirect(t *testing.T) {
	mux, srv := newTestMux(t)
	reg := registerViaHTTP(t, mux, `{"client_name":"browser","grant_types":["authorization_code"],"redirect_uris":["https://app.example.com/cb"]}`)
	_, challenge := pkcePair()

	query := url.Values{
		"response_type":         {"code"},
		"client_id":             {reg.ClientID},
		"redirect_uri":          {"https://evil.example/cb"},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
		"state":                 {"xyz"},
	}
	rec := doRequest(mux, httptest.NewRequest(http.MethodGet, oauth.AuthorizationPath+"?"+query.Encode(), nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
	assert.Equal(t, ErrorCodeInvalidRequest, decodeError(t, rec).Error)
	assert.Equal(t, 0, srv.Codes.Count())
}

func TestHandler_AuthorizeErrorRedirect(t *testing.T) {
	mux, _ := newTestMux(t)
	reg := registerViaHTTP(t, mux, `{"client_name":"browser","grant_types":["authorization_code"],"redirect_uris":["https://app.example.com/cb"]}`)

	query := url.Values{
		"response_type": {"code"},
		"client_id":     {reg.ClientID},
		"redirect_uri":  {"https://app.example.com/cb"},
		"state":         {"abc"},
	}
	rec := doRequest(mux, httptest.NewRequest(http.MethodGet, oauth.AuthorizationPath+"?"+query.Encode(), nil))
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, ErrorCodeInvalidRequest, location.Query().Get("error"))
	assert.Equal(t, "abc", location.Query().Get("state"))
}

func TestHandler_Metadata(t *testing.T) {
	mux, _ := newTestMux(t)

	for _, path := range []string{oauth.AuthorizationServerMetadataPath, oauth.AuthorizationServerMetadataPath + "/mcp"} {
		rec := doRequest(mux, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var metadata oauth.Metadata
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metadata))
		assert.Equal(t, testIssuer, metadata.Issuer)
		assert.True(t, metadata.SupportsPKCE())
		assert.True(t, metadata.SupportsGrant(oauth.GrantTypeClientCredentials))
	}

	rec := doRequest(mux, httptest.NewRequest(http.MethodGet, oauth.ProtectedResourceMetadataPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resource oauth.ProtectedResourceMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resource))
	assert.Equal(t, testIssuer+"/mcp", resource.Resource)
}

func TestHandler_RegistrationErrors(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, oauth.RegistrationPath, strings.NewReader(`not json`))
	rec := doRequest(mux, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrorCodeInvalidClientMetadata, decodeError(t, rec).Error)

	req = httptest.NewRequest(http.MethodPost, oauth.RegistrationPath,
		strings.NewReader(`{"client_name":"x","grant_types":["authorization_code"],"redirect_uris":["http://evil.example/cb"]}`))
	rec = doRequest(mux, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrorCodeInvalidRedirectURI, decodeError(t, rec).Error)
}

func TestHandler_RegistrationRateLimit(t *testing.T) {
	mux, srv := newTestMux(t)

	// newTestServer allows five registrations per window.
	for i := 0; i < 5; i++ {
		registerViaHTTP(t, mux, `{"client_name":"Test"}`)
	}

	req := httptest.NewRequest(http.MethodPost, oauth.RegistrationPath, strings.NewReader(`{"client_name":"Test"}`))
	rec := doRequest(mux, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 5, srv.Clients.Count())
	assert.Equal(t, int64(1), srv.Metrics.Summary().RateLimitBlocks)
}

func TestHandler_RegistrationDisabled(t *testing.T) {
	srv, err := New(Options{Issuer: testIssuer, Clock: newFakeClock()})
	require.NoError(t, err)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, oauth.RegistrationPath, strings.NewReader(`{"client_name":"Test"}`))
	rec := doRequest(mux, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, srv.Engine.Metadata().RegistrationEndpoint)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:41234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	assert.Equal(t, "10.0.0.5", ClientIP(req, false))
	assert.Equal(t, "203.0.113.9", ClientIP(req, true))

	req.RemoteAddr = "unix"
	assert.Equal(t, "unix", ClientIP(req, false))
}
