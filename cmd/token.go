package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zipties/toolarr/pkg/oauth"
)

// EnvClientSecret supplies the client secret without putting it on the command line.
const EnvClientSecret = "TOOLARR_CLIENT_SECRET"

type tokenOptions struct {
	server       string
	clientID     string
	clientSecret string
	secretStdin  bool
	authMethod   string
	scopes       []string
	output       string
}

// newTokenCmd obtains an access token with the client_credentials grant.
func newTokenCmd() *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Obtain an access token with the client_credentials grant",
		Long: `Requests a bearer token from a toolarr server using client credentials.

By default only the access token is printed, so the output can be used
directly in an Authorization header:

  curl -H "Authorization: Bearer $(toolarr token --client-id ...)" ...

The client secret is read from $`+EnvClientSecret+`, or from the first line of
standard input with --client-secret-stdin. --client-secret also works but
leaves the secret visible in the process list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(cmd, opts, newOAuthClient())
		},
	}

	addServerFlag(cmd, &opts.server)
	cmd.Flags().StringVar(&opts.clientID, "client-id", "", "OAuth client ID")
	cmd.Flags().StringVar(&opts.clientSecret, "client-secret", "", "OAuth client secret (prefer $"+EnvClientSecret+" or --client-secret-stdin)")
	cmd.Flags().BoolVar(&opts.secretStdin, "client-secret-stdin", false, "Read the client secret from standard input")
	cmd.Flags().StringVar(&opts.authMethod, "auth-method", oauth.AuthMethodClientSecretBasic, "Token endpoint auth method")
	cmd.Flags().StringSliceVar(&opts.scopes, "scope", nil, "Requested scope (repeatable, default all granted to the client)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "token", "Output format: token or json")
	_ = cmd.MarkFlagRequired("client-id")
	cmd.MarkFlagsMutuallyExclusive("client-secret", "client-secret-stdin")
	return cmd
}

func runToken(cmd *cobra.Command, opts *tokenOptions, client *oauth.Client) error {
	secret, err := resolveClientSecret(cmd, opts)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(cmd)
	defer cancel()

	metadata, err := discover(ctx, client, opts.server)
	if err != nil {
		return err
	}
	if !metadata.SupportsGrant(oauth.GrantTypeClientCredentials) {
		return fmt.Errorf("server %s does not support the client_credentials grant", metadata.Issuer)
	}

	token, err := client.ClientCredentialsToken(ctx, metadata.TokenEndpoint, opts.clientID, secret, opts.authMethod, opts.scopes)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}

	if opts.output == "json" {
		return writeJSON(cmd.OutOrStdout(), token)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token.AccessToken)
	return nil
}

// resolveClientSecret picks the secret from --client-secret, stdin or the
// environment, in that order.
func resolveClientSecret(cmd *cobra.Command, opts *tokenOptions) (string, error) {
	if opts.clientSecret != "" {
		return opts.clientSecret, nil
	}
	if opts.secretStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read client secret from stdin: %w", err)
		}
		secret := strings.TrimSpace(line)
		if secret == "" {
			return "", fmt.Errorf("no client secret on stdin")
		}
		return secret, nil
	}
	if secret := os.Getenv(EnvClientSecret); secret != "" {
		return secret, nil
	}
	return "", fmt.Errorf("no client secret given: set %s or use --client-secret-stdin", EnvClientSecret)
}
