package postgres

import (
	"context"
	"fmt"
)

// The request_id UNIQUE constraint doubles as the idempotency record:
// at most one transaction row may ever exist per idempotency key, and
// Postgres enforces that across all worker processes. NULL request_ids
// (writes submitted without a key) never collide with each other.
const schema = `
CREATE TABLE IF NOT EXISTS transactions (
    id          TEXT PRIMARY KEY,
    description TEXT NOT NULL,
    amount      DOUBLE PRECISION NOT NULL,
    type        TEXT NOT NULL CHECK (type IN ('income', 'expense')),
    category    TEXT NOT NULL DEFAULT 'Uncategorized',
    request_id  TEXT UNIQUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_transactions_created_at
    ON transactions (created_at DESC);
`

// EnsureSchema creates the transactions table if it does not exist.
// Every worker runs this at startup; the statements are idempotent, so
// concurrent workers racing through it are harmless.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
