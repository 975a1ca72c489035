package authserver

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/Zipties/toolarr/pkg/logging"
	"github.com/Zipties/toolarr/pkg/oauth"
)

// maxRequestBodyBytes bounds registration and token request bodies.
const maxRequestBodyBytes = 64 << 10

// Handler serves the authorization server endpoints.
type Handler struct {
	engine              *Engine
	limiter             *RateLimiter
	metrics             *Metrics
	registrationEnabled bool
	trustProxyHeaders   bool
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithRegistration enables dynamic registration, limited per client IP.
func WithRegistration(limiter *RateLimiter) HandlerOption {
	return func(h *Handler) {
		h.registrationEnabled = true
		h.limiter = limiter
	}
}

// WithTrustedProxyHeaders makes ClientIP honour X-Forwarded-For.
func WithTrustedProxyHeaders(trust bool) HandlerOption {
	return func(h *Handler) {
		h.trustProxyHeaders = trust
	}
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine *Engine, metrics *Metrics, opts ...HandlerOption) *Handler {
	h := &Handler{
		engine:  engine,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the OAuth endpoints on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Path-suffixed variants serve clients that insert the resource path
	// into the well-known URL (RFC 8414 section 3.1, RFC 9728 section 3.1).
	mux.HandleFunc("GET "+oauth.AuthorizationServerMetadataPath, h.ServeAuthorizationServerMetadata)
	mux.HandleFunc("GET "+oauth.AuthorizationServerMetadataPath+DefaultResourcePath, h.ServeAuthorizationServerMetadata)
	mux.HandleFunc("GET "+oauth.ProtectedResourceMetadataPath, h.ServeProtectedResourceMetadata)
	mux.HandleFunc("GET "+oauth.ProtectedResourceMetadataPath+DefaultResourcePath, h.ServeProtectedResourceMetadata)
	mux.HandleFunc("POST "+oauth.RegistrationPath, h.ServeClientRegistration)
	mux.HandleFunc("GET "+oauth.AuthorizationPath, h.ServeAuthorization)
	mux.HandleFunc("POST "+oauth.AuthorizationPath, h.ServeAuthorization)
	mux.HandleFunc("POST "+oauth.TokenPath, h.ServeToken)
}

// ServeAuthorizationServerMetadata serves RFC 8414 metadata.
func (h *Handler) ServeAuthorizationServerMetadata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Metadata())
}

// ServeProtectedResourceMetadata serves RFC 9728 metadata.
func (h *Handler) ServeProtectedResourceMetadata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.ProtectedResourceMetadata())
}

// ServeClientRegistration handles RFC 7591 dynamic client registration.
func (h *Handler) ServeClientRegistration(w http.ResponseWriter, r *http.Request) {
	if !h.registrationEnabled {
		http.NotFound(w, r)
		return
	}

	ip := ClientIP(r, h.trustProxyHeaders)
	if h.limiter != nil && !h.limiter.Allow(ip) {
		h.metrics.RecordRateLimitBlock()
		logging.Audit(logging.AuditEvent{
			Action:     "client_registration",
			Outcome:    "denied",
			Detail:     "rate limited",
			RemoteAddr: ip,
		})
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, oauth.ErrorResponse{
			Error:            ErrorCodeInvalidRequest,
			ErrorDescription: "too many registration requests",
		})
		return
	}

	var req oauth.ClientRegistrationRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		writeError(w, ErrInvalidClientMetadata("request body must be a JSON object"))
		return
	}

	resp, err := h.engine.RegisterClient(ClientRegistration{
		Name:         req.ClientName,
		GrantTypes:   req.GrantTypes,
		RedirectURIs: req.RedirectURIs,
		AuthMethod:   req.TokenEndpointAuthMethod,
		Scope:        req.Scope,
	}, ip)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusCreated, resp)
}

// ServeAuthorization handles the authorization endpoint. Requests are
// approved without user interaction; clients are the only principals.
func (h *Handler) ServeAuthorization(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, ErrInvalidRequest("malformed request parameters"))
		return
	}

	redirect, err := h.engine.Authorize(AuthorizeRequest{
		ResponseType:        r.Form.Get("response_type"),
		ClientID:            r.Form.Get("client_id"),
		RedirectURI:         r.Form.Get("redirect_uri"),
		CodeChallenge:       r.Form.Get("code_challenge"),
		CodeChallengeMethod: r.Form.Get("code_challenge_method"),
		Scope:               r.Form.Get("scope"),
		State:               r.Form.Get("state"),
		RemoteAddr:          ClientIP(r, h.trustProxyHeaders),
	})
	if redirect != nil {
		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, redirect.String(), http.StatusFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeError(w, ErrServer(errors.New("authorization produced no redirect")))
}

// ServeToken handles the token endpoint.
func (h *Handler) ServeToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, ErrInvalidRequest("request body must be application/x-www-form-urlencoded"))
		return
	}

	clientID, clientSecret, err := clientCredentials(r)
	if err != nil {
		h.metrics.RecordTokenError(AsError(err).Code)
		writeError(w, err)
		return
	}

	token, err := h.engine.Token(TokenRequest{
		GrantType:    r.PostForm.Get("grant_type"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Code:         r.PostForm.Get("code"),
		RedirectURI:  r.PostForm.Get("redirect_uri"),
		CodeVerifier: r.PostForm.Get("code_verifier"),
		Scope:        r.PostForm.Get("scope"),
		RemoteAddr:   ClientIP(r, h.trustProxyHeaders),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, token)
}

// clientCredentials extracts client authentication from the Basic header
// (RFC 6749 section 2.3.1) or the form body. Using both is rejected.
func clientCredentials(r *http.Request) (string, string, error) {
	formID := r.PostForm.Get("client_id")
	formSecret := r.PostForm.Get("client_secret")

	if id, secret, ok := r.BasicAuth(); ok {
		if formSecret != "" {
			return "", "", ErrInvalidRequest("multiple client authentication methods used")
		}
		id, secret = formUnescape(id), formUnescape(secret)
		if formID != "" && formID != id {
			return "", "", ErrInvalidRequest("client_id does not match the authorization header")
		}
		return id, secret, nil
	}

	if formID == "" {
		return "", "", ErrInvalidClient()
	}
	return formID, formSecret, nil
}

func formUnescape(s string) string {
	if unescaped, err := url.QueryUnescape(s); err == nil {
		return unescaped
	}
	return s
}

// ClientIP returns the caller's address. X-Forwarded-For is only consulted
// when the server runs behind a trusted proxy.
func ClientIP(r *http.Request, trustProxyHeaders bool) string {
	if trustProxyHeaders {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, err error) {
	oauthErr := AsError(err)
	if oauthErr.Code == ErrorCodeServerError {
		logging.Error("OAuth", err, "Request failed")
	}
	writeJSON(w, oauthErr.Status, oauth.ErrorResponse{
		Error:            oauthErr.Code,
		ErrorDescription: oauthErr.Description,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Debug("OAuth", "Failed to write response: %v", err)
	}
}
