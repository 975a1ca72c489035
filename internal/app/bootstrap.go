package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Zipties/toolarr/internal/arr"
	"github.com/Zipties/toolarr/internal/config"
	"github.com/Zipties/toolarr/internal/server"
	"github.com/Zipties/toolarr/pkg/logging"
)

// Application bootstraps and runs the toolarr server.
//
// Initialization happens in NewApplication: logging, configuration,
// instance clients and the HTTP server. Run then serves until the context
// is cancelled or a termination signal arrives.
type Application struct {
	config *Config
	server *server.Server
}

// NewApplication creates and initializes a new application instance with
// the provided configuration. It fails if the configuration cannot be
// loaded or does not validate.
func NewApplication(cfg *Config) (*Application, error) {
	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}
	var logOutput io.Writer = os.Stdout
	if cfg.LogOutput != nil {
		logOutput = cfg.LogOutput
	}
	if cfg.JSONLogs {
		logging.InitWithFormat(appLogLevel, logOutput, logging.FormatJSON)
	} else {
		logging.InitForCLI(appLogLevel, logOutput)
	}

	if cfg.ToolarrConfig == nil {
		loaded, err := loadConfig(cfg.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg.ToolarrConfig = &loaded
	}

	if err := cfg.ToolarrConfig.Validate(); err != nil {
		if collection, ok := err.(*config.ConfigurationErrorCollection); ok {
			logging.Error("Bootstrap", err, "Invalid configuration\n%s", collection.GetDetailedReport())
		}
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	instances, err := buildInstances(*cfg.ToolarrConfig)
	if err != nil {
		return nil, err
	}

	srv, err := server.New(*cfg.ToolarrConfig, instances, cfg.Version)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to create server")
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	return &Application{
		config: cfg,
		server: srv,
	}, nil
}

func loadConfig(configPath string) (config.Config, error) {
	if configPath == "" {
		defaultPath, err := config.GetDefaultConfigPath()
		if err != nil {
			return config.Config{}, err
		}
		configPath = defaultPath
	}

	loaded, err := config.LoadConfig(configPath)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load toolarr configuration from path: %s", configPath)
		return config.Config{}, fmt.Errorf("failed to load toolarr configuration from path %s: %w", configPath, err)
	}
	return loaded, nil
}

// buildInstances creates a client per configured Sonarr and Radarr instance.
func buildInstances(cfg config.Config) (*arr.Instances, error) {
	instances := arr.NewInstances()
	add := func(kind arr.Kind, list []config.InstanceConfig) error {
		for _, ic := range list {
			if err := instances.Add(arr.Instance{Name: ic.Name, Kind: kind, URL: ic.URL, APIKey: ic.APIKey}); err != nil {
				return err
			}
			logging.Info("Bootstrap", "Configured %s instance %s at %s", kind.DisplayName(), ic.Name, ic.URL)
		}
		return nil
	}
	if err := add(arr.KindSonarr, cfg.Sonarr); err != nil {
		return nil, err
	}
	if err := add(arr.KindRadarr, cfg.Radarr); err != nil {
		return nil, err
	}
	if instances.Len() == 0 {
		logging.Warn("Bootstrap", "No Sonarr or Radarr instances configured; tools will report missing instances")
	}
	return instances, nil
}

// Server returns the HTTP server.
func (a *Application) Server() *server.Server {
	return a.server
}

// Run executes the application
//
// Handles graceful shutdown via context cancellation and system signals.
// The method blocks until the application is terminated or encounters an error.
func (a *Application) Run(ctx context.Context) error {
	return runServer(ctx, a.server)
}
