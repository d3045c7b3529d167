package main

import (
	"context"
	"log"

	"moneta/internal/domain/transaction"
	"moneta/internal/infrastructure/postgres"
	httphandlers "moneta/internal/interfaces/http"
	"moneta/internal/shared/config"
)

// Dependencies holds all initialized worker components.
type Dependencies struct {
	DB *postgres.DB

	TransactionHandler *httphandlers.TransactionHandler
	CrashHandler       *httphandlers.CrashHandler
}

// NewDependencies connects to the shared storage backend and wires the
// write guard and handlers. Every worker does this independently; workers
// share nothing in memory.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	transactionRepo := postgres.NewTransactionRepository(db)
	guard := transaction.NewWriteGuard(transactionRepo)

	return &Dependencies{
		DB:                 db,
		TransactionHandler: httphandlers.NewTransactionHandler(guard, transactionRepo),
		CrashHandler:       httphandlers.NewCrashHandler(),
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
