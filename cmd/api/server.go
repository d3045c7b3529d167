package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"
)

// StartServer serves on the inherited listener in a background goroutine.
// All sibling workers serve on the same socket; the kernel spreads
// incoming connections across them.
func StartServer(handler http.Handler, ln net.Listener) *http.Server {
	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Worker serving on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	return srv
}

// GracefulShutdown drains in-flight requests before the worker exits. A
// write already admitted to the guard runs to completion; idempotency,
// not cancellation, is what protects duplicate submissions.
func GracefulShutdown(srv *http.Server, timeout time.Duration) {
	log.Println("Worker shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}

	log.Println("Worker stopped")
}
