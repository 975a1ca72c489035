package gateway

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Zipties/toolarr/internal/authserver"
	"github.com/Zipties/toolarr/pkg/logging"
	"github.com/Zipties/toolarr/pkg/oauth"
)

const (
	// DefaultMaxBodyBytes bounds the JSON-RPC body the gateway inspects.
	DefaultMaxBodyBytes = 4 << 20

	methodToolsCall = "tools/call"

	// JSON-RPC 2.0 error codes.
	jsonRPCParseError     = -32700
	jsonRPCInvalidRequest = -32600
)

// TokenValidator resolves bearer values to token records.
type TokenValidator interface {
	Validate(token string) (*authserver.AccessToken, error)
}

// Config configures the gateway.
type Config struct {
	// Realm is placed in WWW-Authenticate challenges, normally the issuer.
	Realm string
	// ResourceMetadataURL points clients at RFC 9728 metadata.
	ResourceMetadataURL string
	// LegacyAPIKey is a pre-shared bearer value granted FullScopes.
	// Empty disables it.
	LegacyAPIKey string
	// FullScopes is the scope set of the legacy key.
	FullScopes authserver.Scopes
	// MaxBodyBytes bounds the inspected request body.
	MaxBodyBytes int64
	// TrustProxyHeaders makes audit logs use X-Forwarded-For.
	TrustProxyHeaders bool
}

// Gateway authenticates and authorizes requests to the MCP endpoint.
// Failed requests never reach the wrapped handler.
type Gateway struct {
	tokens   TokenValidator
	registry *Registry
	metrics  *authserver.Metrics
	config   Config
}

// New creates a gateway. metrics may be nil.
func New(tokens TokenValidator, registry *Registry, metrics *authserver.Metrics, config Config) *Gateway {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if config.FullScopes.Empty() {
		config.FullScopes = authserver.DefaultScopes
	}
	if metrics == nil {
		metrics = authserver.NewMetrics()
	}
	return &Gateway{
		tokens:   tokens,
		registry: registry,
		metrics:  metrics,
		config:   config,
	}
}

// Middleware wraps next with bearer authentication and per-tool scope checks.
func (g *Gateway) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remote := authserver.ClientIP(r, g.config.TrustProxyHeaders)

		token, err := bearerToken(r.Header.Get("Authorization"))
		if err != nil {
			g.unauthorized(w, remote, "", err.Error())
			return
		}

		identity, ok := g.authenticate(token)
		if !ok {
			g.unauthorized(w, remote, authserver.ErrorCodeInvalidToken, "access token is invalid or expired")
			return
		}

		if r.Method == http.MethodPost {
			body, err := io.ReadAll(io.LimitReader(r.Body, g.config.MaxBodyBytes+1))
			r.Body.Close()
			if err != nil {
				writeJSONRPCError(w, http.StatusBadRequest, jsonRPCParseError, "failed to read request body")
				return
			}
			if int64(len(body)) > g.config.MaxBodyBytes {
				g.metrics.RecordGatewayDenied(http.StatusRequestEntityTooLarge)
				writeJSONRPCError(w, http.StatusRequestEntityTooLarge, jsonRPCInvalidRequest, "request body too large")
				return
			}

			calls, err := toolCalls(body)
			if err != nil {
				g.metrics.RecordGatewayDenied(http.StatusBadRequest)
				writeJSONRPCError(w, http.StatusBadRequest, jsonRPCParseError, "Parse error")
				return
			}
			for _, tool := range calls {
				scope, known := g.registry.RequiredScope(tool)
				if known && !identity.HasScope(scope) {
					g.forbidden(w, remote, identity, tool, scope)
					return
				}
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
		}

		g.metrics.RecordGatewayAllowed()

		forwarded := r.Clone(WithIdentity(r.Context(), identity))
		forwarded.Header.Del("Authorization")
		next.ServeHTTP(w, forwarded)
	})
}

// authenticate resolves a bearer value to an identity.
func (g *Gateway) authenticate(token string) (Identity, bool) {
	if g.config.LegacyAPIKey != "" &&
		subtle.ConstantTimeCompare([]byte(token), []byte(g.config.LegacyAPIKey)) == 1 {
		return Identity{Scopes: g.config.FullScopes, Legacy: true}, true
	}

	record, err := g.tokens.Validate(token)
	if err != nil {
		return Identity{}, false
	}
	return Identity{ClientID: record.ClientID, Scopes: record.Scope}, true
}

var (
	errMissingBearer   = errors.New("missing bearer token")
	errMalformedBearer = errors.New("malformed authorization header")
)

// bearerToken extracts the credential from an RFC 6750 Authorization header.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingBearer
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, oauth.TokenTypeBearer) {
		return "", errMalformedBearer
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", errMalformedBearer
	}
	return token, nil
}

// rpcCall is the part of a JSON-RPC message the gateway looks at. It is
// decoded with encoding/json, as the MCP server does, so key matching and
// duplicate keys resolve the same way on both sides.
type rpcCall struct {
	Method string `json:"method"`
	Params struct {
		Name string `json:"name"`
	} `json:"params"`
}

// toolCalls returns the tool names invoked by a single or batched
// JSON-RPC body.
func toolCalls(body []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	if !gjson.ValidBytes(trimmed) {
		return nil, fmt.Errorf("invalid JSON")
	}

	root := gjson.ParseBytes(trimmed)
	messages := []gjson.Result{root}
	if root.IsArray() {
		messages = root.Array()
	}

	var calls []string
	for _, msg := range messages {
		if !msg.IsObject() {
			return nil, fmt.Errorf("JSON-RPC message is not an object")
		}
		var call rpcCall
		if err := json.Unmarshal([]byte(msg.Raw), &call); err != nil {
			return nil, fmt.Errorf("invalid JSON-RPC message: %w", err)
		}
		if call.Method != methodToolsCall {
			continue
		}
		calls = append(calls, call.Params.Name)
	}
	return calls, nil
}

func (g *Gateway) unauthorized(w http.ResponseWriter, remote, code, description string) {
	g.metrics.RecordGatewayDenied(http.StatusUnauthorized)
	logging.Audit(logging.AuditEvent{
		Action:     "mcp_request",
		Outcome:    "denied",
		Detail:     description,
		RemoteAddr: remote,
	})

	w.Header().Set("WWW-Authenticate", oauth.FormatWWWAuthenticate(oauth.AuthChallenge{
		Realm:               g.config.Realm,
		ResourceMetadataURL: g.config.ResourceMetadataURL,
		Error:               code,
		ErrorDescription:    description,
	}))
	if code == "" {
		code = authserver.ErrorCodeInvalidToken
	}
	writeJSON(w, http.StatusUnauthorized, oauth.ErrorResponse{Error: code, ErrorDescription: description})
}

func (g *Gateway) forbidden(w http.ResponseWriter, remote string, identity Identity, tool, scope string) {
	g.metrics.RecordGatewayDenied(http.StatusForbidden)
	logging.Audit(logging.AuditEvent{
		Action:     "tool_call",
		Outcome:    "denied",
		ClientID:   identity.ClientID,
		Target:     tool,
		Detail:     "missing scope " + scope,
		RemoteAddr: remote,
	})

	description := fmt.Sprintf("tool %s requires scope %s", tool, scope)
	w.Header().Set("WWW-Authenticate", oauth.FormatWWWAuthenticate(oauth.AuthChallenge{
		Realm:               g.config.Realm,
		ResourceMetadataURL: g.config.ResourceMetadataURL,
		Error:               authserver.ErrorCodeInsufficientScope,
		ErrorDescription:    description,
		Scope:               scope,
	}))
	writeJSON(w, http.StatusForbidden, oauth.ErrorResponse{
		Error:            authserver.ErrorCodeInsufficientScope,
		ErrorDescription: description,
	})
}

type jsonRPCError struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int   `json:"id"`
	Error   struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSONRPCError(w http.ResponseWriter, status, code int, message string) {
	resp := jsonRPCError{JSONRPC: "2.0"}
	resp.Error.Code = code
	resp.Error.Message = message
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Debug("Gateway", "Failed to write response: %v", err)
	}
}
