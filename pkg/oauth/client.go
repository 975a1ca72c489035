package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultMetadataCacheTTL is the default TTL for cached OAuth metadata.
	DefaultMetadataCacheTTL = 30 * time.Minute

	// maxResponseBytes bounds how much of a server response is read.
	maxResponseBytes = 1 << 20
)

// metadataCacheEntry holds cached OAuth metadata with its timestamp.
type metadataCacheEntry struct {
	metadata  *Metadata
	fetchedAt time.Time
}

// Client talks to a toolarr authorization server: metadata discovery,
// dynamic registration, client credentials and code exchange.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	metadataMu    sync.RWMutex
	metadataCache map[string]*metadataCacheEntry
	metadataTTL   time.Duration

	// singleflight group to deduplicate concurrent metadata fetches
	metadataGroup singleflight.Group
}

// ClientOption configures the OAuth client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetadataCacheTTL sets the metadata cache TTL.
func WithMetadataCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.metadataTTL = ttl
	}
}

// NewClient creates a new OAuth client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: DefaultHTTPTimeout},
		logger:        slog.Default(),
		metadataCache: make(map[string]*metadataCacheEntry),
		metadataTTL:   DefaultMetadataCacheTTL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ServerError is an OAuth error returned by the authorization server.
type ServerError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *ServerError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s (status %d)", e.Code, e.Description, e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", e.Code, e.StatusCode)
}

// DiscoverMetadata fetches RFC 8414 metadata from the issuer's well-known endpoint.
// Results are cached with a TTL to reduce network requests.
func (c *Client) DiscoverMetadata(ctx context.Context, issuer string) (*Metadata, error) {
	issuer = NormalizeServerURL(issuer)

	if m := c.cachedMetadata(issuer); m != nil {
		return m, nil
	}

	result, err, _ := c.metadataGroup.Do(issuer, func() (interface{}, error) {
		// Double-check cache after acquiring singleflight lock
		if m := c.cachedMetadata(issuer); m != nil {
			return m, nil
		}

		metadata, err := c.fetchMetadata(ctx, issuer+AuthorizationServerMetadataPath)
		if err != nil {
			return nil, fmt.Errorf("failed to discover OAuth metadata for %s: %w", issuer, err)
		}
		c.cacheMetadata(issuer, metadata)
		return metadata, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*Metadata), nil
}

func (c *Client) cachedMetadata(issuer string) *Metadata {
	c.metadataMu.RLock()
	defer c.metadataMu.RUnlock()

	if entry, ok := c.metadataCache[issuer]; ok && time.Since(entry.fetchedAt) < c.metadataTTL {
		return entry.metadata
	}
	return nil
}

// fetchMetadata fetches metadata from a specific URL.
func (c *Client) fetchMetadata(ctx context.Context, metadataURL string) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata request failed with status %d", resp.StatusCode)
	}

	var metadata Metadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	return &metadata, nil
}

// cacheMetadata stores metadata in the cache.
func (c *Client) cacheMetadata(issuer string, metadata *Metadata) {
	c.metadataMu.Lock()
	c.metadataCache[issuer] = &metadataCacheEntry{
		metadata:  metadata,
		fetchedAt: time.Now(),
	}
	c.metadataMu.Unlock()

	c.logger.Debug("Cached OAuth metadata",
		"issuer", issuer,
		"token_endpoint", metadata.TokenEndpoint)
}

// RegisterClient performs RFC 7591 dynamic client registration.
func (c *Client) RegisterClient(ctx context.Context, registrationEndpoint string, req ClientRegistrationRequest) (*ClientRegistrationResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode registration request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, registrationEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create registration request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("registration request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read registration response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return nil, decodeServerError(resp.StatusCode, respBody)
	}

	var registration ClientRegistrationResponse
	if err := json.Unmarshal(respBody, &registration); err != nil {
		return nil, fmt.Errorf("failed to parse registration response: %w", err)
	}
	return &registration, nil
}

// ClientCredentialsToken runs the client_credentials grant.
// Credentials are sent with HTTP Basic unless authMethod is client_secret_post.
func (c *Client) ClientCredentialsToken(ctx context.Context, tokenEndpoint, clientID, clientSecret, authMethod string, scopes []string) (*Token, error) {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenEndpoint,
		Scopes:       scopes,
		AuthStyle:    authStyle(authMethod),
	}

	tok, err := cfg.Token(c.oauth2Context(ctx))
	if err != nil {
		return nil, convertRetrieveError(err)
	}
	return TokenFromOAuth2(tok, time.Now()), nil
}

// ExchangeCode exchanges an authorization code for an access token, proving
// possession of the PKCE verifier.
func (c *Client) ExchangeCode(ctx context.Context, tokenEndpoint, clientID, clientSecret, authMethod, code, redirectURI, codeVerifier string) (*Token, error) {
	cfg := oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenEndpoint,
			AuthStyle: authStyle(authMethod),
		},
	}

	tok, err := cfg.Exchange(c.oauth2Context(ctx), code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, convertRetrieveError(err)
	}
	return TokenFromOAuth2(tok, time.Now()), nil
}

// BuildAuthorizationURL constructs an OAuth authorization URL.
func (c *Client) BuildAuthorizationURL(authEndpoint, clientID, redirectURI, state, scope string, pkce *PKCEChallenge) (string, error) {
	authURL, err := url.Parse(authEndpoint)
	if err != nil {
		return "", fmt.Errorf("invalid authorization endpoint: %w", err)
	}

	query := authURL.Query()
	query.Set("response_type", ResponseTypeCode)
	query.Set("client_id", clientID)
	query.Set("redirect_uri", redirectURI)
	query.Set("state", state)

	if scope != "" {
		query.Set("scope", scope)
	}

	if pkce != nil {
		query.Set("code_challenge", pkce.CodeChallenge)
		query.Set("code_challenge_method", pkce.CodeChallengeMethod)
	}

	authURL.RawQuery = query.Encode()
	return authURL.String(), nil
}

func (c *Client) oauth2Context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func authStyle(authMethod string) oauth2.AuthStyle {
	if authMethod == AuthMethodClientSecretPost {
		return oauth2.AuthStyleInParams
	}
	return oauth2.AuthStyleInHeader
}

// convertRetrieveError turns an oauth2.RetrieveError into a ServerError.
func convertRetrieveError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return decodeServerError(retrieveErr.Response.StatusCode, retrieveErr.Body)
	}
	return fmt.Errorf("token request failed: %w", err)
}

func decodeServerError(status int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return &ServerError{
			StatusCode:  status,
			Code:        "server_error",
			Description: strings.TrimSpace(http.StatusText(status)),
		}
	}
	return &ServerError{
		StatusCode:  status,
		Code:        errResp.Error,
		Description: errResp.ErrorDescription,
	}
}
