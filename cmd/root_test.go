package cmd

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/Zipties/toolarr/internal/config"
	"github.com/Zipties/toolarr/pkg/oauth"
)

func TestSetVersion(t *testing.T) {
	originalVersion := rootCmd.Version
	defer func() { rootCmd.Version = originalVersion }()

	SetVersion("1.2.3-test")
	assert.Equal(t, "1.2.3-test", GetVersion())
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "toolarr", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}
	testCmd.SetVersionTemplate(`{{printf "toolarr version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})

	assert.NoError(t, testCmd.Execute())
	assert.Equal(t, "toolarr version 1.0.0\n", buf.String())
}

func TestSubcommands(t *testing.T) {
	found := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		found[cmd.Name()] = true
	}

	for _, expected := range []string{"version", "serve", "tools", "register", "token", "login"} {
		assert.True(t, found[expected], "subcommand %s should be registered", expected)
	}
}

func TestGetExitCode(t *testing.T) {
	configErrs := &config.ConfigurationErrorCollection{}
	configErrs.Add("server", "baseUrl", "is required")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"general error", fmt.Errorf("boom"), ExitCodeError},
		{"config error", fmt.Errorf("invalid configuration: %w", configErrs), ExitCodeConfigError},
		{"oauth error", fmt.Errorf("token request failed: %w", &oauth.ServerError{StatusCode: 401, Code: "invalid_client"}), ExitCodeAuthFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getExitCode(tt.err))
		})
	}
}

func TestServeFlags(t *testing.T) {
	for _, name := range []string{"debug", "json-logs", "config-path"} {
		assert.NotNil(t, serveCmd.Flags().Lookup(name), "flag %s", name)
	}
	assert.True(t, strings.Contains(serveCmd.Long, config.EnvBaseURL))
}
