package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zipties/toolarr/internal/authserver"
	"github.com/Zipties/toolarr/pkg/oauth"
)

// newAuthServer runs an authorization server on a loopback listener.
func newAuthServer(t *testing.T) (string, *authserver.AuthServer) {
	t.Helper()

	httpServer := httptest.NewUnstartedServer(nil)
	baseURL := "http://" + httpServer.Listener.Addr().String()

	auth, err := authserver.New(authserver.Options{
		Issuer:       baseURL,
		ResourceName: "toolarr",
		Registration: authserver.RegistrationOptions{Enabled: true, MaxPerWindow: 10, Window: time.Hour},
	})
	require.NoError(t, err)

	mux := http.NewServeMux()
	auth.RegisterRoutes(mux)
	httpServer.Config.Handler = mux
	httpServer.Start()
	t.Cleanup(httpServer.Close)
	return baseURL, auth
}

func TestRegisterAndTokenCommands(t *testing.T) {
	baseURL, auth := newAuthServer(t)

	register := newRegisterCmd()
	var regOut bytes.Buffer
	register.SetOut(&regOut)
	register.SetArgs([]string{"--server", baseURL + "/mcp", "--name", "automation", "--scope", "mcp:read", "-o", "json"})
	require.NoError(t, register.Execute())

	var registration oauth.ClientRegistrationResponse
	require.NoError(t, json.Unmarshal(regOut.Bytes(), &registration))
	assert.NotEmpty(t, registration.ClientID)
	assert.NotEmpty(t, registration.ClientSecret)
	assert.Equal(t, "mcp:read", registration.Scope)
	assert.Equal(t, 1, auth.Health().Clients)

	token := newTokenCmd()
	var tokOut bytes.Buffer
	token.SetOut(&tokOut)
	token.SetArgs([]string{"--server", baseURL,
		"--client-id", registration.ClientID,
		"--client-secret", registration.ClientSecret})
	require.NoError(t, token.Execute())

	accessToken := strings.TrimSpace(tokOut.String())
	assert.NotEmpty(t, accessToken)
	assert.Equal(t, 1, auth.Health().Tokens)
}

func TestRegisterCommand_TextOutput(t *testing.T) {
	baseURL, _ := newAuthServer(t)

	register := newRegisterCmd()
	var out bytes.Buffer
	register.SetOut(&out)
	register.SetArgs([]string{"--server", baseURL})
	require.NoError(t, register.Execute())

	assert.Contains(t, out.String(), "client_id:")
	assert.Contains(t, out.String(), "not shown again")
}

func TestTokenCommand_BadSecret(t *testing.T) {
	baseURL, _ := newAuthServer(t)

	token := newTokenCmd()
	token.SetOut(&bytes.Buffer{})
	token.SetErr(&bytes.Buffer{})
	token.SetArgs([]string{"--server", baseURL, "--client-id", "unknown", "--client-secret", "wrong-secret"})
	err := token.Execute()
	require.Error(t, err)

	var serverErr *oauth.ServerError
	require.True(t, errors.As(err, &serverErr))
	assert.Equal(t, "invalid_client", serverErr.Code)
	assert.Equal(t, ExitCodeAuthFailed, getExitCode(err))
}

func TestTokenCommand_SecretSources(t *testing.T) {
	baseURL, _ := newAuthServer(t)

	register := newRegisterCmd()
	var regOut bytes.Buffer
	register.SetOut(&regOut)
	register.SetArgs([]string{"--server", baseURL, "-o", "json"})
	require.NoError(t, register.Execute())

	var registration oauth.ClientRegistrationResponse
	require.NoError(t, json.Unmarshal(regOut.Bytes(), &registration))

	tests := []struct {
		name    string
		env     string
		stdin   string
		args    []string
		wantErr string
	}{
		{
			name: "environment",
			env:  registration.ClientSecret,
		},
		{
			name:  "stdin",
			stdin: registration.ClientSecret + "\n",
			args:  []string{"--client-secret-stdin"},
		},
		{
			name:  "stdin without trailing newline",
			stdin: registration.ClientSecret,
			args:  []string{"--client-secret-stdin"},
		},
		{
			name:    "empty stdin",
			args:    []string{"--client-secret-stdin"},
			wantErr: "no client secret on stdin",
		},
		{
			name:    "no secret anywhere",
			wantErr: EnvClientSecret,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvClientSecret, tt.env)

			token := newTokenCmd()
			var out bytes.Buffer
			token.SetOut(&out)
			token.SetErr(&bytes.Buffer{})
			token.SetIn(strings.NewReader(tt.stdin))
			token.SetArgs(append([]string{"--server", baseURL, "--client-id", registration.ClientID}, tt.args...))

			err := token.Execute()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, strings.TrimSpace(out.String()))
		})
	}
}

func TestTokenCommand_SecretFlagsExclusive(t *testing.T) {
	token := newTokenCmd()
	token.SetOut(&bytes.Buffer{})
	token.SetErr(&bytes.Buffer{})
	token.SetArgs([]string{"--server", "http://127.0.0.1:1", "--client-id", "a",
		"--client-secret", "s", "--client-secret-stdin"})
	require.Error(t, token.Execute())
}

func TestRegisterCommand_NoServer(t *testing.T) {
	register := newRegisterCmd()
	register.SetOut(&bytes.Buffer{})
	register.SetErr(&bytes.Buffer{})
	register.SetArgs([]string{"--server", ""})
	err := register.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no server given")
}
