package transaction

import (
	"context"
	"errors"
	"log"
)

// WriteResult is the outcome of a guarded write.
type WriteResult struct {
	Transaction *Transaction
	// AlreadyProcessed is true when the request id had already committed a
	// row and that prior row is being returned instead of a new one.
	AlreadyProcessed bool
}

// WriteGuard serializes duplicate write submissions onto a single
// committed row per idempotency key. Worker processes share no memory, so
// the guard never reads before writing: it attempts the insert and treats
// the storage layer's unique-violation as the signal that a concurrent or
// earlier duplicate already won.
type WriteGuard struct {
	repo Repository
}

func NewWriteGuard(repo Repository) *WriteGuard {
	return &WriteGuard{repo: repo}
}

// HandleWrite validates and applies a write request.
//
// An empty requestID bypasses the guard entirely and applies the write
// unconditionally. Otherwise the transaction and its idempotency record
// are created atomically; a duplicate key resolves to the winning row
// with AlreadyProcessed set, never to an error.
func (g *WriteGuard) HandleWrite(ctx context.Context, requestID string, params CreateTransactionParams) (*WriteResult, error) {
	if verr := params.Validate(); verr != nil {
		return nil, verr
	}
	params.Normalize()

	created, err := g.repo.Create(ctx, params, requestID)
	if err == nil {
		return &WriteResult{Transaction: created}, nil
	}

	var dup *DuplicateKeyError
	if requestID == "" || !errors.As(err, &dup) {
		return nil, err
	}

	// Lost the race (or the duplicate arrived after the winner committed):
	// the unique constraint guarantees exactly one row under this key, so
	// re-fetch and return it.
	log.Printf("Duplicate request %s detected. Returning existing transaction.", requestID)
	existing, err := g.repo.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return &WriteResult{Transaction: existing, AlreadyProcessed: true}, nil
}
