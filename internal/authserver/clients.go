package authserver

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/Zipties/toolarr/pkg/logging"
	"github.com/Zipties/toolarr/pkg/oauth"
)

// Client is a registered OAuth client. Clients are immutable once created
// and live for the lifetime of the process.
type Client struct {
	ID            string
	Name          string
	GrantTypes    []string
	RedirectURIs  []string
	AuthMethod    string
	AllowedScopes Scopes
	IssuedAt      time.Time
	Static        bool

	secretHash [sha256.Size]byte
}

// SupportsGrant reports whether the client may use grantType.
func (c *Client) SupportsGrant(grantType string) bool {
	return lo.Contains(c.GrantTypes, grantType)
}

// HasRedirectURI reports whether uri is registered, by exact string match.
func (c *Client) HasRedirectURI(uri string) bool {
	return lo.Contains(c.RedirectURIs, uri)
}

func (c *Client) clone() *Client {
	cp := *c
	cp.GrantTypes = append([]string(nil), c.GrantTypes...)
	cp.RedirectURIs = append([]string(nil), c.RedirectURIs...)
	cp.AllowedScopes = append(Scopes(nil), c.AllowedScopes...)
	return &cp
}

// ClientRegistration is the validated input of dynamic registration.
type ClientRegistration struct {
	Name         string
	GrantTypes   []string
	RedirectURIs []string
	AuthMethod   string
	Scope        string
}

// StaticClient is a client declared in configuration with a fixed secret.
type StaticClient struct {
	ID           string
	Secret       string
	Name         string
	GrantTypes   []string
	RedirectURIs []string
	AuthMethod   string
	Scopes       []string
}

// ClientRegistry holds every known client, keyed by client id.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*Client

	secrets   SecretGenerator
	clock     Clock
	supported Scopes

	// dummyHash is compared against for unknown client ids so the
	// authentication path costs the same either way.
	dummyHash [sha256.Size]byte
}

// NewClientRegistry creates an empty registry offering the supported scopes.
func NewClientRegistry(secrets SecretGenerator, clock Clock, supported Scopes) *ClientRegistry {
	if supported.Empty() {
		supported = DefaultScopes
	}
	return &ClientRegistry{
		clients:   make(map[string]*Client),
		secrets:   secrets,
		clock:     clock,
		supported: supported,
		dummyHash: sha256.Sum256([]byte("toolarr-unknown-client")),
	}
}

// Register creates a dynamically registered client and returns it together
// with its plaintext secret. The secret is not retrievable afterwards.
func (r *ClientRegistry) Register(reg ClientRegistration) (*Client, string, error) {
	client, err := r.buildClient(reg.Name, reg.GrantTypes, reg.RedirectURIs, reg.AuthMethod, ParseScopes(reg.Scope))
	if err != nil {
		return nil, "", err
	}

	id, err := r.secrets.ClientID()
	if err != nil {
		return nil, "", ErrServer(err)
	}
	secret, err := r.secrets.Secret()
	if err != nil {
		return nil, "", ErrServer(err)
	}

	client.ID = id
	client.IssuedAt = r.clock.Now()
	client.secretHash = sha256.Sum256([]byte(secret))

	r.mu.Lock()
	r.clients[id] = client
	r.mu.Unlock()

	logging.Info("OAuth", "Registered client %s (%s) grants=%v scope=%q",
		id, client.Name, client.GrantTypes, client.AllowedScopes.String())

	return client.clone(), secret, nil
}

// AddStatic registers a configuration-defined client under its fixed id.
func (r *ClientRegistry) AddStatic(sc StaticClient) error {
	if sc.ID == "" || sc.Secret == "" {
		return fmt.Errorf("static client requires an id and a secret")
	}

	client, err := r.buildClient(sc.Name, sc.GrantTypes, sc.RedirectURIs, sc.AuthMethod, NewScopes(sc.Scopes...))
	if err != nil {
		return fmt.Errorf("static client %s: %w", sc.ID, err)
	}
	client.ID = sc.ID
	client.IssuedAt = r.clock.Now()
	client.Static = true
	client.secretHash = sha256.Sum256([]byte(sc.Secret))

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[sc.ID]; exists {
		return fmt.Errorf("static client %s is already registered", sc.ID)
	}
	r.clients[sc.ID] = client

	logging.Info("OAuth", "Loaded static client %s (%s)", sc.ID, client.Name)
	return nil
}

// buildClient applies registration defaults and validation.
func (r *ClientRegistry) buildClient(name string, grantTypes, redirectURIs []string, authMethod string, requested Scopes) (*Client, error) {
	if len(grantTypes) == 0 {
		grantTypes = []string{oauth.GrantTypeClientCredentials}
	}
	grantTypes = lo.Uniq(grantTypes)
	for _, g := range grantTypes {
		if g != oauth.GrantTypeAuthorizationCode && g != oauth.GrantTypeClientCredentials {
			return nil, ErrInvalidClientMetadata("grant type %q is not supported", g)
		}
	}

	switch authMethod {
	case "":
		authMethod = oauth.AuthMethodClientSecretBasic
	case oauth.AuthMethodClientSecretBasic, oauth.AuthMethodClientSecretPost:
	default:
		return nil, ErrInvalidClientMetadata("token_endpoint_auth_method %q is not supported", authMethod)
	}

	redirectURIs = lo.Uniq(redirectURIs)
	if lo.Contains(grantTypes, oauth.GrantTypeAuthorizationCode) && len(redirectURIs) == 0 {
		return nil, ErrInvalidRedirectURI("redirect_uris is required for the authorization_code grant")
	}
	for _, uri := range redirectURIs {
		if err := ValidateRedirectURI(uri); err != nil {
			return nil, err
		}
	}

	allowed := r.supported
	if !requested.Empty() {
		allowed = requested.Intersect(r.supported)
		if allowed.Empty() {
			return nil, ErrInvalidClientMetadata("none of the requested scopes are supported")
		}
	}

	return &Client{
		Name:          strings.TrimSpace(name),
		GrantTypes:    grantTypes,
		RedirectURIs:  redirectURIs,
		AuthMethod:    authMethod,
		AllowedScopes: allowed,
	}, nil
}

// Lookup returns the client with the given id.
func (r *ClientRegistry) Lookup(clientID string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[clientID]
	if !ok {
		return nil, ErrClientNotFound
	}
	return client.clone(), nil
}

// Authenticate checks a client secret. Unknown ids and wrong secrets yield
// the same invalid_client error after the same amount of work.
func (r *ClientRegistry) Authenticate(clientID, secret string) (*Client, error) {
	r.mu.RLock()
	client, ok := r.clients[clientID]
	r.mu.RUnlock()

	expected := r.dummyHash
	if ok {
		expected = client.secretHash
	}
	presented := sha256.Sum256([]byte(secret))
	match := subtle.ConstantTimeCompare(presented[:], expected[:]) == 1

	if !ok || !match || secret == "" {
		logging.Debug("OAuth", "Client authentication failed for %s", clientID)
		return nil, ErrInvalidClient()
	}
	return client.clone(), nil
}

// Count returns the number of registered clients.
func (r *ClientRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// ValidateRedirectURI accepts absolute https URIs, http URIs on a loopback
// host (RFC 8252 section 7.3) and private-use schemes of native apps
// (RFC 8252 section 7.1). Fragments are never allowed.
func ValidateRedirectURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidRedirectURI("redirect URI %q is not a valid URI", raw)
	}
	if u.Fragment != "" || strings.Contains(raw, "#") {
		return ErrInvalidRedirectURI("redirect URI %q must not contain a fragment", raw)
	}
	if u.Scheme == "" {
		return ErrInvalidRedirectURI("redirect URI %q must be absolute", raw)
	}

	switch strings.ToLower(u.Scheme) {
	case "https":
		if u.Host == "" {
			return ErrInvalidRedirectURI("redirect URI %q has no host", raw)
		}
	case "http":
		if !isLoopbackHost(u.Hostname()) {
			return ErrInvalidRedirectURI("redirect URI %q must use https unless it targets a loopback address", raw)
		}
	case "javascript", "data", "file", "vbscript":
		return ErrInvalidRedirectURI("redirect URI scheme %q is not allowed", u.Scheme)
	default:
		if u.Host == "" && u.Opaque == "" && u.Path == "" {
			return ErrInvalidRedirectURI("redirect URI %q is not a usable callback", raw)
		}
	}
	return nil
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
