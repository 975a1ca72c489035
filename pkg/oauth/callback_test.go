package oauth

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := NewCallbackServer(0)
	require.NoError(t, err)
	s.Start(ctx)
	defer s.Stop()

	redirectURI := s.RedirectURI()
	assert.True(t, strings.HasPrefix(redirectURI, "http://127.0.0.1:"))
	assert.True(t, strings.HasSuffix(redirectURI, CallbackPath))

	resp, err := http.Get(redirectURI + "?code=abc&state=xyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	result, err := s.WaitForCallback(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", result.Code)
	assert.Equal(t, "xyz", result.State)
	assert.False(t, result.IsError())

	resp, err = http.Get(redirectURI + "?code=again")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "only the first redirect is accepted")
}

func TestCallbackServer_Error(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := NewCallbackServer(0)
	require.NoError(t, err)
	s.Start(ctx)
	defer s.Stop()

	resp, err := http.Get(s.RedirectURI() + "?error=invalid_scope&error_description=nope&state=s")
	require.NoError(t, err)
	resp.Body.Close()

	result, err := s.WaitForCallback(ctx)
	require.NoError(t, err)
	assert.True(t, result.IsError())
	assert.Equal(t, "invalid_scope", result.Error)
}

func TestCallbackServer_WaitTimesOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s, err := NewCallbackServer(0)
	require.NoError(t, err)
	s.Start(ctx)

	_, err = s.WaitForCallback(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
