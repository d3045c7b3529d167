package transaction

import "context"

// Repository is the storage contract for transactions. Create must enforce
// the unique constraint on the request id atomically with the insert and
// report a collision as *DuplicateKeyError; that constraint is the only
// synchronization visible across worker processes.
type Repository interface {
	// Create inserts a transaction. requestID may be empty, in which case
	// no idempotency record is attached to the row.
	Create(ctx context.Context, params CreateTransactionParams, requestID string) (*Transaction, error)

	// GetByRequestID returns the transaction committed under an
	// idempotency key, or *NotFoundError if the key is unknown.
	GetByRequestID(ctx context.Context, requestID string) (*Transaction, error)

	GetByID(ctx context.Context, id string) (*Transaction, error)

	// List returns all transactions sorted by creation time, newest first.
	List(ctx context.Context) ([]*Transaction, error)

	Update(ctx context.Context, id string, params UpdateTransactionParams) (*Transaction, error)

	Delete(ctx context.Context, id string) error
}
