package cmd

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/Zipties/toolarr/pkg/oauth"
)

type registerOptions struct {
	server       string
	name         string
	redirectURIs []string
	grants       []string
	authMethod   string
	scopes       []string
	output       string
}

// newRegisterCmd registers an OAuth client through dynamic client registration.
func newRegisterCmd() *cobra.Command {
	opts := &registerOptions{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register an OAuth client with a running toolarr server",
		Long: `Registers a new OAuth client using dynamic client registration (RFC 7591).

The client secret is printed once and cannot be retrieved again.

Examples:
  toolarr register --server https://toolarr.example.com --name automation
  toolarr register --name claude --grant authorization_code \
    --redirect-uri http://127.0.0.1:33418/callback`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd, opts, newOAuthClient())
		},
	}

	addServerFlag(cmd, &opts.server)
	cmd.Flags().StringVar(&opts.name, "name", "toolarr-cli", "Client name")
	cmd.Flags().StringSliceVar(&opts.redirectURIs, "redirect-uri", nil, "Redirect URI (repeatable, required for authorization_code)")
	cmd.Flags().StringSliceVar(&opts.grants, "grant", []string{oauth.GrantTypeClientCredentials}, "Grant type (repeatable)")
	cmd.Flags().StringVar(&opts.authMethod, "auth-method", oauth.AuthMethodClientSecretBasic, "Token endpoint auth method")
	cmd.Flags().StringSliceVar(&opts.scopes, "scope", nil, "Requested scope (repeatable, default all)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "Output format: text or json")
	return cmd
}

func runRegister(cmd *cobra.Command, opts *registerOptions, client *oauth.Client) error {
	ctx, cancel := requestContext(cmd)
	defer cancel()

	metadata, err := discover(ctx, client, opts.server)
	if err != nil {
		return err
	}
	if metadata.RegistrationEndpoint == "" {
		return fmt.Errorf("server %s does not offer dynamic client registration", metadata.Issuer)
	}

	registration, err := client.RegisterClient(ctx, metadata.RegistrationEndpoint, oauth.ClientRegistrationRequest{
		ClientName:              opts.name,
		RedirectURIs:            opts.redirectURIs,
		GrantTypes:              opts.grants,
		TokenEndpointAuthMethod: opts.authMethod,
		Scope:                   strings.Join(opts.scopes, " "),
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.output == "json" {
		return writeJSON(out, registration)
	}

	fmt.Fprintf(out, "%s Registered client %s\n", text.FgGreen.Sprint("✓"), registration.ClientName)
	fmt.Fprintf(out, "  client_id:     %s\n", registration.ClientID)
	fmt.Fprintf(out, "  client_secret: %s\n", registration.ClientSecret)
	fmt.Fprintf(out, "  grant_types:   %s\n", strings.Join(registration.GrantTypes, ", "))
	fmt.Fprintf(out, "  auth_method:   %s\n", registration.TokenEndpointAuthMethod)
	fmt.Fprintf(out, "  scope:         %s\n", registration.Scope)
	fmt.Fprintf(out, "%s\n", text.FgYellow.Sprint("Store the client secret now; it is not shown again."))
	return nil
}
