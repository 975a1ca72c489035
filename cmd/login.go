package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/Zipties/toolarr/internal/config"
	"github.com/Zipties/toolarr/pkg/oauth"
)

// DefaultLoginTimeout is how long login waits for the browser redirect.
const DefaultLoginTimeout = 5 * time.Minute

// openBrowser opens url in the default browser. Tests replace it.
var openBrowser = func(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

type loginOptions struct {
	server       string
	name         string
	scopes       []string
	callbackPort int
	timeout      time.Duration
	output       string
}

// newLoginCmd runs the authorization code flow with PKCE against a server.
func newLoginCmd() *cobra.Command {
	opts := &loginOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Obtain an access token through the browser with authorization code + PKCE",
		Long: `Authenticate to a toolarr MCP endpoint the way MCP clients do.

The command calls the MCP endpoint without a token, follows the
WWW-Authenticate challenge to the authorization server, registers a
client with a loopback redirect URI, opens the authorization URL in a
browser and exchanges the returned code using PKCE (S256).

Examples:
  toolarr login --server https://toolarr.example.com
  toolarr login --server https://toolarr.example.com/mcp --scope mcp:read -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts, newOAuthClient())
		},
	}

	addServerFlag(cmd, &opts.server)
	cmd.Flags().StringVar(&opts.name, "name", "toolarr-login", "Client name to register")
	cmd.Flags().StringSliceVar(&opts.scopes, "scope", nil, "Requested scope (repeatable, default all)")
	cmd.Flags().IntVar(&opts.callbackPort, "callback-port", 0, "Loopback port for the redirect (default: any free port)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", DefaultLoginTimeout, "How long to wait for the browser redirect")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "token", "Output format: token or json")
	return cmd
}

func runLogin(cmd *cobra.Command, opts *loginOptions, client *oauth.Client) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	if opts.server == "" {
		return fmt.Errorf("no server given: use --server or set %s", config.EnvBaseURL)
	}
	mcpURL := oauth.NormalizeServerURL(opts.server) + "/mcp"

	challenge, err := probeEndpoint(ctx, mcpURL)
	if err != nil {
		return err
	}
	issuer := challenge.GetIssuer()
	if issuer == "" {
		issuer = oauth.NormalizeServerURL(opts.server)
	}

	metadata, err := client.DiscoverMetadata(ctx, issuer)
	if err != nil {
		return err
	}
	if !metadata.SupportsPKCE() {
		return fmt.Errorf("server %s does not support PKCE S256", metadata.Issuer)
	}
	if metadata.RegistrationEndpoint == "" {
		return fmt.Errorf("server %s does not offer dynamic client registration", metadata.Issuer)
	}

	callback, err := oauth.NewCallbackServer(opts.callbackPort)
	if err != nil {
		return err
	}
	callback.Start(ctx)
	defer callback.Stop()
	redirectURI := callback.RedirectURI()

	registration, err := client.RegisterClient(ctx, metadata.RegistrationEndpoint, oauth.ClientRegistrationRequest{
		ClientName:   opts.name,
		RedirectURIs: []string{redirectURI},
		GrantTypes:   []string{oauth.GrantTypeAuthorizationCode},
		Scope:        strings.Join(opts.scopes, " "),
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	pkce := oauth.GeneratePKCE()
	state := uuid.NewString()
	authURL, err := client.BuildAuthorizationURL(metadata.AuthorizationEndpoint, registration.ClientID, redirectURI, state, registration.Scope, pkce)
	if err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "Opening browser to authorize %s\n", text.FgCyan.Sprint(metadata.Issuer))
	if err := openBrowser(authURL); err != nil {
		fmt.Fprintf(errOut, "%s %v\nOpen this URL manually:\n  %s\n", text.FgYellow.Sprint("!"), err, authURL)
	}

	result, err := callback.WaitForCallback(ctx)
	if err != nil {
		return fmt.Errorf("no authorization redirect received: %w", err)
	}
	if result.IsError() {
		return &oauth.ServerError{StatusCode: http.StatusBadRequest, Code: result.Error, Description: result.ErrorDescription}
	}
	if result.State != state {
		return fmt.Errorf("authorization redirect carried an unexpected state")
	}

	token, err := client.ExchangeCode(ctx, metadata.TokenEndpoint, registration.ClientID, registration.ClientSecret,
		registration.TokenEndpointAuthMethod, result.Code, redirectURI, pkce.CodeVerifier)
	if err != nil {
		return fmt.Errorf("code exchange failed: %w", err)
	}
	if token.IsExpired(time.Now()) {
		return fmt.Errorf("server issued an already expired token")
	}

	if err := verifyAccess(ctx, mcpURL, token); err != nil {
		return err
	}
	fmt.Fprintf(errOut, "%s Logged in to %s with scope %q\n", text.FgGreen.Sprint("✓"), mcpURL, token.Scope)

	if opts.output == "json" {
		return writeJSON(cmd.OutOrStdout(), token)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token.AccessToken)
	return nil
}

const pingRequest = `{"jsonrpc":"2.0","id":1,"method":"ping"}`

func newMCPRequest(ctx context.Context, mcpURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mcpURL, bytes.NewReader([]byte(pingRequest)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	return req, nil
}

// probeEndpoint calls the MCP endpoint without credentials and returns the
// OAuth challenge from the 401.
func probeEndpoint(ctx context.Context, mcpURL string) (*oauth.AuthChallenge, error) {
	req, err := newMCPRequest(ctx, mcpURL)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", mcpURL, err)
	}
	defer resp.Body.Close()

	challenge := oauth.ParseWWWAuthenticateFromResponse(resp)
	if !challenge.IsOAuthChallenge() {
		return nil, fmt.Errorf("%s did not answer with an OAuth challenge (status %d)", mcpURL, resp.StatusCode)
	}
	return challenge, nil
}

// verifyAccess repeats the call with the new token and fails if the
// gateway still rejects it.
func verifyAccess(ctx context.Context, mcpURL string, token *oauth.Token) error {
	req, err := newMCPRequest(ctx, mcpURL)
	if err != nil {
		return err
	}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token.ToOAuth2Token()))
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to verify token against %s: %w", mcpURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("token was not accepted by %s (status %d)", mcpURL, resp.StatusCode)
	}
	return nil
}
