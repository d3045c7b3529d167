package main

import (
	"net/http"

	httphandlers "moneta/internal/interfaces/http"
	"moneta/internal/shared/config"
	"moneta/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// Transactions API
	mux.HandleFunc("/api/transactions", deps.TransactionHandler.HandleTransactions)
	mux.HandleFunc("/api/transactions/{id}", deps.TransactionHandler.HandleTransactionByID)

	// Diagnostic route: kills this worker to exercise the supervisor's
	// restart path end to end.
	mux.HandleFunc("/crash", deps.CrashHandler.Handle)

	// Apply global middleware
	handler := middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(mux))

	if cfg.Telemetry.Enabled {
		handler = middleware.Tracing(handler)
	}

	return handler
}
