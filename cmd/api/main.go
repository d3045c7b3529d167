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

	"moneta/internal/shared/config"
	"moneta/internal/supervisor"
)

// The same binary runs in two roles. The supervisor process opens the
// listening socket, forks one worker per slot with the socket as fd 3,
// and restarts workers forever. A process started with the worker slot
// env var set serves requests on the inherited socket instead.
func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if slotEnv := os.Getenv(supervisor.EnvWorkerSlot); slotEnv != "" {
		slot, err := strconv.Atoi(slotEnv)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", supervisor.EnvWorkerSlot, err)
		}
		return runWorker(cfg, slot)
	}
	return runSupervisor(cfg)
}

func runSupervisor(cfg *config.Config) error {
	addr := cfg.Server.Host + ":" + cfg.Server.Port

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	defer ln.Close()

	// Dup the socket so it can be inherited by every worker. The
	// supervisor never accepts on it; it only keeps it alive across
	// worker generations.
	lf, err := ln.(*net.TCPListener).File()
	if err != nil {
		return fmt.Errorf("failed to obtain listener file: %w", err)
	}
	defer lf.Close()

	log.Printf("Supervisor listening on %s", addr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sup := supervisor.New(cfg.Supervisor.WorkerCount, supervisor.ExecSpawner(lf))
	return sup.Run(ctx)
}
