package app

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/Zipties/toolarr/internal/server"
	"github.com/Zipties/toolarr/pkg/logging"
)

// runServer serves until SIGINT or SIGTERM, or until ctx is cancelled,
// then shuts down gracefully. Suitable for systemd units and containers.
func runServer(ctx context.Context, srv *server.Server) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info("CLI", "Starting toolarr. Press Ctrl+C to stop.")
	if err := srv.Run(ctx); err != nil {
		logging.Error("CLI", err, "Server failed")
		return err
	}
	logging.Info("CLI", "Shut down cleanly")
	return nil
}
