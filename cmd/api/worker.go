package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"moneta/internal/shared/config"
	"moneta/internal/shared/telemetry"
	"moneta/internal/supervisor"
)

// runWorker serves requests on the socket inherited from the supervisor
// until it is told to stop (or it crashes, in which case the supervisor
// replaces it).
func runWorker(cfg *config.Config, slot int) error {
	log.Printf("Worker process %d is running (slot %d)", os.Getpid(), slot)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			// Sibling workers run on one host; offset the metrics port by
			// slot so they never collide.
			MetricsPort: strconv.Itoa(cfg.Telemetry.MetricsBasePort + slot),
			InstanceID:  fmt.Sprintf("worker-%d", slot),
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Printf("Error shutting down telemetry: %v", err)
			}
		}()
	}

	deps, err := NewDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	ln, err := inheritedListener()
	if err != nil {
		return err
	}

	srv := StartServer(SetupRoutes(deps, cfg), ln)

	<-ctx.Done()
	GracefulShutdown(srv, 30*time.Second)
	return nil
}

// inheritedListener reopens the shared listening socket the supervisor
// passed as an extra file descriptor.
func inheritedListener() (net.Listener, error) {
	f := os.NewFile(supervisor.ListenerFD, "listener")
	if f == nil {
		return nil, fmt.Errorf("listener fd %d not inherited", supervisor.ListenerFD)
	}
	defer f.Close() // net.FileListener dups the descriptor

	ln, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen inherited listener: %w", err)
	}
	return ln, nil
}
