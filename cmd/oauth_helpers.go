package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zipties/toolarr/internal/config"
	"github.com/Zipties/toolarr/pkg/logging"
	"github.com/Zipties/toolarr/pkg/oauth"
)

// DefaultRequestTimeout bounds discovery plus one OAuth request.
const DefaultRequestTimeout = 30 * time.Second

// addServerFlag registers --server, defaulting to TOOLARR_BASE_URL.
func addServerFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "server", os.Getenv(config.EnvBaseURL),
		"toolarr base URL (default $"+config.EnvBaseURL+")")
}

// newOAuthClient returns a client that logs through the application logger.
func newOAuthClient() *oauth.Client {
	return oauth.NewClient(oauth.WithLogger(logging.Logger()))
}

// discover fetches the authorization server metadata for server.
func discover(ctx context.Context, client *oauth.Client, server string) (*oauth.Metadata, error) {
	if server == "" {
		return nil, fmt.Errorf("no server given: use --server or set %s", config.EnvBaseURL)
	}
	metadata, err := client.DiscoverMetadata(ctx, server)
	if err != nil {
		return nil, err
	}
	return metadata, nil
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, DefaultRequestTimeout)
}
