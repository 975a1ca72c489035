package authserver

import (
	"errors"
	"fmt"
	"net/http"
)

// OAuth error codes (RFC 6749 section 4.1.2.1 and 5.2, RFC 7591 section 3.2.2,
// RFC 6750 section 3.1).
const (
	ErrorCodeInvalidRequest          = "invalid_request"
	ErrorCodeInvalidClient           = "invalid_client"
	ErrorCodeInvalidGrant            = "invalid_grant"
	ErrorCodeUnauthorizedClient      = "unauthorized_client"
	ErrorCodeInvalidScope            = "invalid_scope"
	ErrorCodeUnsupportedGrantType    = "unsupported_grant_type"
	ErrorCodeUnsupportedResponseType = "unsupported_response_type"
	ErrorCodeInvalidClientMetadata   = "invalid_client_metadata"
	ErrorCodeInvalidRedirectURI      = "invalid_redirect_uri"
	ErrorCodeAccessDenied            = "access_denied"
	ErrorCodeServerError             = "server_error"
	ErrorCodeInvalidToken            = "invalid_token"
	ErrorCodeInsufficientScope       = "insufficient_scope"
)

var (
	// ErrClientNotFound is returned by ClientRegistry.Lookup for unknown ids.
	ErrClientNotFound = errors.New("client not found")

	// ErrInvalidToken is returned by TokenStore.Validate for unknown and
	// expired tokens alike.
	ErrInvalidToken = errors.New("invalid or expired access token")

	// ErrCodeReplayed marks a redemption of an already consumed code.
	ErrCodeReplayed = errors.New("authorization code already redeemed")
)

// Error is an OAuth protocol error with the HTTP status it is served with.
type Error struct {
	Code        string
	Description string
	Status      int

	cause error
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

func newError(code string, status int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Description: fmt.Sprintf(format, args...), Status: status}
}

// ErrInvalidRequest reports a missing or malformed parameter.
func ErrInvalidRequest(format string, args ...interface{}) *Error {
	return newError(ErrorCodeInvalidRequest, http.StatusBadRequest, format, args...)
}

// ErrInvalidClient reports failed client authentication. The description
// is fixed so unknown ids and wrong secrets are indistinguishable.
func ErrInvalidClient() *Error {
	return newError(ErrorCodeInvalidClient, http.StatusBadRequest, "client authentication failed")
}

// ErrInvalidGrant reports an unusable authorization code.
func ErrInvalidGrant(format string, args ...interface{}) *Error {
	return newError(ErrorCodeInvalidGrant, http.StatusBadRequest, format, args...)
}

// ErrUnauthorizedClient reports a grant type the client may not use.
func ErrUnauthorizedClient(format string, args ...interface{}) *Error {
	return newError(ErrorCodeUnauthorizedClient, http.StatusBadRequest, format, args...)
}

// ErrInvalidScope reports a requested scope outside the allowed set.
func ErrInvalidScope(format string, args ...interface{}) *Error {
	return newError(ErrorCodeInvalidScope, http.StatusBadRequest, format, args...)
}

// ErrUnsupportedGrantType reports an unknown grant_type.
func ErrUnsupportedGrantType(grantType string) *Error {
	return newError(ErrorCodeUnsupportedGrantType, http.StatusBadRequest, "grant_type %q is not supported", grantType)
}

// ErrUnsupportedResponseType reports a response_type other than code.
func ErrUnsupportedResponseType(responseType string) *Error {
	return newError(ErrorCodeUnsupportedResponseType, http.StatusBadRequest, "response_type %q is not supported", responseType)
}

// ErrInvalidClientMetadata reports an unacceptable registration request.
func ErrInvalidClientMetadata(format string, args ...interface{}) *Error {
	return newError(ErrorCodeInvalidClientMetadata, http.StatusBadRequest, format, args...)
}

// ErrInvalidRedirectURI reports an unacceptable redirect URI at registration.
func ErrInvalidRedirectURI(format string, args ...interface{}) *Error {
	return newError(ErrorCodeInvalidRedirectURI, http.StatusBadRequest, format, args...)
}

// ErrServer wraps an internal failure. The cause is logged, never served.
func ErrServer(cause error) *Error {
	return &Error{
		Code:        ErrorCodeServerError,
		Description: "internal server error",
		Status:      http.StatusInternalServerError,
		cause:       cause,
	}
}

// withCause attaches cause so callers can match it with errors.Is/As.
func (e *Error) withCause(cause error) *Error {
	e.cause = cause
	return e
}

// CodeReplayError identifies the grant whose code was presented twice.
type CodeReplayError struct {
	GrantID string
}

func (e *CodeReplayError) Error() string {
	return ErrCodeReplayed.Error()
}

// Is makes errors.Is(err, ErrCodeReplayed) hold for replay errors.
func (e *CodeReplayError) Is(target error) bool {
	return target == ErrCodeReplayed
}

// AsError extracts the OAuth error from err, mapping anything else to
// server_error.
func AsError(err error) *Error {
	var oauthErr *Error
	if errors.As(err, &oauthErr) {
		return oauthErr
	}
	return ErrServer(err)
}
