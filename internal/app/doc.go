// Package app bootstraps the toolarr server.
//
// NewApplication initializes logging, loads and validates configuration,
// creates a client for each configured Sonarr and Radarr instance and
// builds the HTTP server. Run serves until SIGINT, SIGTERM or context
// cancellation.
//
//	cfg := app.NewConfig(debug, jsonLogs, configPath, version)
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to initialize application: %w", err)
//	}
//	return application.Run(ctx)
package app
