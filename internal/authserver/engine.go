package authserver

import (
	"errors"
	"net/url"
	"strings"

	"github.com/Zipties/toolarr/pkg/logging"
	"github.com/Zipties/toolarr/pkg/oauth"
)

// DefaultResourcePath is where the protected MCP endpoint is mounted.
const DefaultResourcePath = "/mcp"

// EngineConfig is the static configuration the engine derives its
// metadata from.
type EngineConfig struct {
	// Issuer is the public base URL, without trailing slash.
	Issuer string
	// ResourcePath is the path of the protected resource.
	ResourcePath string
	// ResourceName is advertised in protected resource metadata.
	ResourceName string
	// Scopes is the supported scope set.
	Scopes Scopes
	// RegistrationEnabled controls whether the registration endpoint is advertised.
	RegistrationEnabled bool
}

// AuthorizeRequest carries the parameters of an authorization request.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string
	Scope               string
	State               string
	RemoteAddr          string
}

// TokenRequest carries the parameters of a token request after client
// credentials have been extracted from the header or body.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
	CodeVerifier string
	Scope        string
	RemoteAddr   string
}

// Engine runs the OAuth flows on top of the client registry, code store
// and token store.
type Engine struct {
	config  EngineConfig
	clients *ClientRegistry
	codes   *CodeStore
	tokens  *TokenStore
	clock   Clock
	metrics *Metrics
}

// NewEngine wires the engine to its stores.
func NewEngine(config EngineConfig, clients *ClientRegistry, codes *CodeStore, tokens *TokenStore, clock Clock, metrics *Metrics) *Engine {
	config.Issuer = strings.TrimSuffix(config.Issuer, "/")
	if config.ResourcePath == "" {
		config.ResourcePath = DefaultResourcePath
	}
	if config.Scopes.Empty() {
		config.Scopes = DefaultScopes
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Engine{
		config:  config,
		clients: clients,
		codes:   codes,
		tokens:  tokens,
		clock:   clock,
		metrics: metrics,
	}
}

// Tokens returns the token store the engine issues into.
func (e *Engine) Tokens() *TokenStore {
	return e.tokens
}

// RegisterClient performs dynamic client registration.
func (e *Engine) RegisterClient(reg ClientRegistration, remoteAddr string) (*oauth.ClientRegistrationResponse, error) {
	client, secret, err := e.clients.Register(reg)
	if err != nil {
		e.metrics.RecordRegistration(false)
		logging.Audit(logging.AuditEvent{
			Action:     "client_registration",
			Outcome:    "failure",
			Detail:     AsError(err).Code,
			RemoteAddr: remoteAddr,
		})
		return nil, err
	}

	e.metrics.RecordRegistration(true)
	logging.Audit(logging.AuditEvent{
		Action:     "client_registration",
		Outcome:    "success",
		ClientID:   client.ID,
		Detail:     client.Name,
		RemoteAddr: remoteAddr,
	})

	return &oauth.ClientRegistrationResponse{
		ClientID:                client.ID,
		ClientSecret:            secret,
		ClientIDIssuedAt:        client.IssuedAt.Unix(),
		ClientSecretExpiresAt:   0,
		ClientName:              client.Name,
		RedirectURIs:            client.RedirectURIs,
		GrantTypes:              client.GrantTypes,
		TokenEndpointAuthMethod: client.AuthMethod,
		Scope:                   client.AllowedScopes.String(),
	}, nil
}

// Authorize validates an authorization request and issues a code.
//
// When the request cannot be tied to a registered redirect URI the error is
// returned with a nil redirect and must be shown to the user agent directly.
// Once the redirect URI is trusted, failures are returned together with a
// redirect carrying error, error_description and state. On success the
// redirect carries code and state.
func (e *Engine) Authorize(req AuthorizeRequest) (*url.URL, error) {
	if req.ClientID == "" {
		return nil, ErrInvalidRequest("client_id is required")
	}
	client, err := e.clients.Lookup(req.ClientID)
	if err != nil {
		return nil, ErrInvalidClient()
	}
	if !client.SupportsGrant(oauth.GrantTypeAuthorizationCode) {
		return nil, ErrInvalidClient()
	}
	if req.RedirectURI == "" || !client.HasRedirectURI(req.RedirectURI) {
		logging.Audit(logging.AuditEvent{
			Action:     "authorize",
			Outcome:    "denied",
			ClientID:   client.ID,
			Detail:     "unregistered redirect_uri",
			RemoteAddr: req.RemoteAddr,
		})
		return nil, ErrInvalidRequest("redirect_uri is not registered for this client")
	}

	redirect, err := url.Parse(req.RedirectURI)
	if err != nil {
		return nil, ErrInvalidRequest("redirect_uri is not a valid URI")
	}

	code, err := e.issueCode(client, req)
	if err != nil {
		return withQuery(redirect, map[string]string{
			"error":             AsError(err).Code,
			"error_description": AsError(err).Description,
			"state":             req.State,
		}), err
	}

	e.metrics.RecordCodeIssued()
	logging.Audit(logging.AuditEvent{
		Action:     "authorize",
		Outcome:    "success",
		ClientID:   client.ID,
		Detail:     code.Scope.String(),
		RemoteAddr: req.RemoteAddr,
	})

	return withQuery(redirect, map[string]string{
		"code":  code.Code,
		"state": req.State,
	}), nil
}

func (e *Engine) issueCode(client *Client, req AuthorizeRequest) (*AuthorizationCode, error) {
	if req.ResponseType != oauth.ResponseTypeCode {
		return nil, ErrUnsupportedResponseType(req.ResponseType)
	}
	if req.CodeChallengeMethod != oauth.CodeChallengeMethodS256 {
		return nil, ErrInvalidRequest("code_challenge_method must be S256")
	}

	scope, err := effectiveScope(req.Scope, client.AllowedScopes)
	if err != nil {
		return nil, err
	}
	return e.codes.Issue(client.ID, req.RedirectURI, req.CodeChallenge, scope)
}

// Token dispatches a token request on its grant type.
func (e *Engine) Token(req TokenRequest) (*oauth.Token, error) {
	var (
		token *oauth.Token
		err   error
	)
	switch req.GrantType {
	case "":
		err = ErrInvalidRequest("grant_type is required")
	case oauth.GrantTypeAuthorizationCode:
		token, err = e.ExchangeCode(req)
	case oauth.GrantTypeClientCredentials:
		token, err = e.ClientCredentials(req)
	default:
		err = ErrUnsupportedGrantType(req.GrantType)
	}

	if err != nil {
		oauthErr := AsError(err)
		e.metrics.RecordTokenError(oauthErr.Code)
		logging.Audit(logging.AuditEvent{
			Action:     "token",
			Outcome:    "failure",
			ClientID:   req.ClientID,
			Target:     req.GrantType,
			Detail:     oauthErr.Code,
			RemoteAddr: req.RemoteAddr,
		})
		return nil, err
	}

	e.metrics.RecordTokenIssued(req.GrantType)
	logging.Audit(logging.AuditEvent{
		Action:     "token",
		Outcome:    "success",
		ClientID:   req.ClientID,
		Target:     req.GrantType,
		Detail:     token.Scope,
		RemoteAddr: req.RemoteAddr,
	})
	return token, nil
}

// ExchangeCode runs the authorization_code grant.
func (e *Engine) ExchangeCode(req TokenRequest) (*oauth.Token, error) {
	client, err := e.clients.Authenticate(req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}
	if !client.SupportsGrant(oauth.GrantTypeAuthorizationCode) {
		return nil, ErrUnauthorizedClient("client is not allowed to use the authorization_code grant")
	}
	switch {
	case req.Code == "":
		return nil, ErrInvalidRequest("code is required")
	case req.RedirectURI == "":
		return nil, ErrInvalidRequest("redirect_uri is required")
	case req.CodeVerifier == "":
		return nil, ErrInvalidRequest("code_verifier is required")
	}

	code, err := e.codes.Redeem(req.Code, client.ID, req.RedirectURI, req.CodeVerifier)
	if err != nil {
		var replay *CodeReplayError
		if errors.As(err, &replay) {
			revoked := e.tokens.RevokeGrant(replay.GrantID)
			e.metrics.RecordCodeReplay()
			logging.Warn("OAuth", "Revoked %d tokens after authorization code replay by client %s", revoked, client.ID)
		}
		return nil, err
	}

	return e.issueCodeToken(req.Code, code)
}

// issueCodeToken stores the token first and then checks the code for a
// replay. A replay marks the code before it revokes the grant, so either the
// check here sees the mark or the replay's revocation sees the stored token.
func (e *Engine) issueCodeToken(plaintext string, code *AuthorizationCode) (*oauth.Token, error) {
	token, err := e.issueToken(code.ClientID, code.Scope, code.GrantID)
	if err != nil {
		return nil, err
	}
	if e.codes.GrantRevoked(plaintext) {
		e.tokens.RevokeGrant(code.GrantID)
		logging.Warn("OAuth", "Discarded token for client %s: its authorization code was replayed during issuance", code.ClientID)
		return nil, ErrInvalidGrant("authorization code has already been used")
	}
	return token, nil
}

// ClientCredentials runs the client_credentials grant.
func (e *Engine) ClientCredentials(req TokenRequest) (*oauth.Token, error) {
	client, err := e.clients.Authenticate(req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}
	if !client.SupportsGrant(oauth.GrantTypeClientCredentials) {
		return nil, ErrUnauthorizedClient("client is not allowed to use the client_credentials grant")
	}

	scope, err := effectiveScope(req.Scope, client.AllowedScopes)
	if err != nil {
		return nil, err
	}
	return e.issueToken(client.ID, scope, "")
}

func (e *Engine) issueToken(clientID string, scope Scopes, grantID string) (*oauth.Token, error) {
	record, value, err := e.tokens.Issue(clientID, scope, grantID)
	if err != nil {
		return nil, err
	}
	return &oauth.Token{
		AccessToken: value,
		TokenType:   oauth.TokenTypeBearer,
		ExpiresIn:   record.ExpiresIn(record.IssuedAt),
		Scope:       scope.String(),
	}, nil
}

// effectiveScope is requested ∩ allowed, or allowed when nothing was requested.
func effectiveScope(requested string, allowed Scopes) (Scopes, error) {
	want := ParseScopes(requested)
	if want.Empty() {
		if allowed.Empty() {
			return nil, ErrInvalidScope("client has no allowed scopes")
		}
		return allowed, nil
	}
	scope := want.Intersect(allowed)
	if scope.Empty() {
		return nil, ErrInvalidScope("none of the requested scopes are allowed for this client")
	}
	return scope, nil
}

// Metadata returns the RFC 8414 authorization server metadata.
func (e *Engine) Metadata() oauth.Metadata {
	metadata := oauth.Metadata{
		Issuer:                 e.config.Issuer,
		AuthorizationEndpoint:  e.config.Issuer + oauth.AuthorizationPath,
		TokenEndpoint:          e.config.Issuer + oauth.TokenPath,
		ScopesSupported:        e.config.Scopes,
		ResponseTypesSupported: []string{oauth.ResponseTypeCode},
		GrantTypesSupported: []string{
			oauth.GrantTypeClientCredentials,
			oauth.GrantTypeAuthorizationCode,
		},
		TokenEndpointAuthMethodsSupported: []string{
			oauth.AuthMethodClientSecretBasic,
			oauth.AuthMethodClientSecretPost,
		},
		CodeChallengeMethodsSupported: []string{oauth.CodeChallengeMethodS256},
	}
	if e.config.RegistrationEnabled {
		metadata.RegistrationEndpoint = e.config.Issuer + oauth.RegistrationPath
	}
	return metadata
}

// ProtectedResourceMetadata returns the RFC 9728 document for the MCP endpoint.
func (e *Engine) ProtectedResourceMetadata() oauth.ProtectedResourceMetadata {
	return oauth.ProtectedResourceMetadata{
		Resource:               e.ResourceURL(),
		AuthorizationServers:   []string{e.config.Issuer},
		ScopesSupported:        e.config.Scopes,
		BearerMethodsSupported: []string{"header"},
		ResourceName:           e.config.ResourceName,
	}
}

// ResourceURL is the absolute URL of the protected resource.
func (e *Engine) ResourceURL() string {
	return e.config.Issuer + e.config.ResourcePath
}

// ResourceMetadataURL is the absolute URL of the protected resource metadata.
func (e *Engine) ResourceMetadataURL() string {
	return e.config.Issuer + oauth.ProtectedResourceMetadataPath
}

// Issuer returns the issuer identifier.
func (e *Engine) Issuer() string {
	return e.config.Issuer
}

func withQuery(base *url.URL, params map[string]string) *url.URL {
	u := *base
	query := u.Query()
	for key, value := range params {
		if value != "" {
			query.Set(key, value)
		}
	}
	u.RawQuery = query.Encode()
	return &u
}
