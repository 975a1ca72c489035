package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Zipties/toolarr/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/toolarr"
	configFileName = "config.yaml"
)

// Environment variables read on top of the file.
const (
	EnvBaseURL     = "TOOLARR_BASE_URL"
	EnvHost        = "TOOLARR_HOST"
	EnvPort        = "TOOLARR_PORT"
	EnvLegacyKey   = "TOOL_API_KEY"
	EnvSonarrGroup = "SONARR"
	EnvRadarrGroup = "RADARR"
)

// osUserHomeDir is swapped in tests.
var osUserHomeDir = os.UserHomeDir

// GetDefaultConfigPath returns ~/.config/toolarr.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads configuration from configPath/config.yaml on top of the
// defaults, then applies environment overrides. A missing file is not an
// error. The result is not validated; call Validate.
func LoadConfig(configPath string) (Config, error) {
	config := GetDefaultConfig()

	configFilePath := filepath.Join(configPath, configFileName)
	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return Config{}, err
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
		}
		logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	if err := applyEnv(&config, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return config, nil
}

// applyEnv overlays environment variables. Numbered instance variables
// (SONARR_INSTANCE_1_NAME, _URL, _API_KEY, ...) are read until the first
// missing name; an instance with a configured name is replaced.
func applyEnv(config *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvBaseURL); ok && v != "" {
		config.Server.BaseURL = v
	}
	if v, ok := lookup(EnvHost); ok && v != "" {
		config.Server.Host = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		config.Server.Port = port
	}
	if v, ok := lookup(EnvLegacyKey); ok && v != "" {
		config.Server.APIKey = v
	}

	config.Sonarr = mergeInstances(config.Sonarr, envInstances(EnvSonarrGroup, lookup))
	config.Radarr = mergeInstances(config.Radarr, envInstances(EnvRadarrGroup, lookup))
	return nil
}

func envInstances(group string, lookup func(string) (string, bool)) []InstanceConfig {
	var instances []InstanceConfig
	for i := 1; ; i++ {
		prefix := fmt.Sprintf("%s_INSTANCE_%d_", group, i)
		name, ok := lookup(prefix + "NAME")
		if !ok || strings.TrimSpace(name) == "" {
			return instances
		}
		url, _ := lookup(prefix + "URL")
		apiKey, _ := lookup(prefix + "API_KEY")
		instances = append(instances, InstanceConfig{
			Name:   strings.TrimSpace(name),
			URL:    strings.TrimSpace(url),
			APIKey: strings.TrimSpace(apiKey),
		})
	}
}

func mergeInstances(base, overrides []InstanceConfig) []InstanceConfig {
	for _, override := range overrides {
		replaced := false
		for i := range base {
			if base[i].Name == override.Name {
				base[i] = override
				replaced = true
				break
			}
		}
		if !replaced {
			base = append(base, override)
		}
	}
	return base
}
