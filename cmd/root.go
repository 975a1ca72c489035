package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zipties/toolarr/internal/config"
	"github.com/Zipties/toolarr/pkg/oauth"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfigError indicates the configuration failed validation.
	ExitCodeConfigError = 2
	// ExitCodeAuthFailed indicates the authorization server rejected a request.
	ExitCodeAuthFailed = 3
)

// rootCmd represents the base command for the toolarr application.
var rootCmd = &cobra.Command{
	Use:   "toolarr",
	Short: "OAuth-protected MCP gateway for Sonarr and Radarr",
	Long: `toolarr exposes Sonarr and Radarr management as MCP tools behind an
embedded OAuth 2.1 authorization server.

Run 'toolarr serve' to start the server, then register a client with
'toolarr register' and obtain a bearer token with 'toolarr token'.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "toolarr version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var configErrs *config.ConfigurationErrorCollection
	if errors.As(err, &configErrs) {
		return ExitCodeConfigError
	}

	var serverErr *oauth.ServerError
	if errors.As(err, &serverErr) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newToolsCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newLoginCmd())
}
