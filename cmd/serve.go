package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zipties/toolarr/internal/app"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveJSONLogs switches log output to JSON, for log collectors.
var serveJSONLogs bool

// serveConfigPath specifies a custom configuration directory path.
// The directory should contain config.yaml.
var serveConfigPath string

// serveCmd starts the authorization server and the MCP gateway.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the toolarr OAuth server and MCP gateway",
	Long: `Starts the embedded OAuth 2.1 authorization server and the MCP endpoint
at /mcp, serving Sonarr and Radarr tools to authorized clients.

Configuration:
  toolarr loads config.yaml from ~/.config/toolarr, or from the directory
  given with --config-path. Environment variables override the file:

  TOOLARR_BASE_URL           public issuer URL (required)
  TOOLARR_HOST, TOOLARR_PORT listen address
  TOOL_API_KEY               legacy static bearer key with full access
  SONARR_INSTANCE_<n>_NAME, _URL, _API_KEY
  RADARR_INSTANCE_<n>_NAME, _URL, _API_KEY

The process stops gracefully on SIGINT or SIGTERM and notifies systemd
when run as a notify service.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveDebug, serveJSONLogs, serveConfigPath, GetVersion())

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return application.Run(cmd.Context())
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable general debug logging")
	serveCmd.Flags().BoolVar(&serveJSONLogs, "json-logs", false, "Write logs as JSON")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Directory containing config.yaml (default ~/.config/toolarr)")
}
