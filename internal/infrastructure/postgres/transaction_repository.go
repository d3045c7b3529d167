package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"moneta/internal/domain/transaction"
)

const transactionColumns = `id, description, amount, type, category, request_id, created_at`

type TransactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts the transaction and its idempotency record in a single
// statement. A request_id collision surfaces as *DuplicateKeyError; the
// caller decides whether that means "lost a race" or "seen before" (the
// two are indistinguishable here, deliberately).
func (r *TransactionRepository) Create(ctx context.Context, params transaction.CreateTransactionParams, requestID string) (*transaction.Transaction, error) {
	query := `
		INSERT INTO transactions (id, description, amount, type, category, request_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + transactionColumns

	var reqID sql.NullString
	if requestID != "" {
		reqID = sql.NullString{String: requestID, Valid: true}
	}

	row := r.db.QueryRowContext(
		ctx, query,
		uuid.New().String(), params.Description, *params.Amount, params.Type, params.Category, reqID,
	)

	tx, err := scanTransaction(row)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, &transaction.DuplicateKeyError{Key: requestID}
		}
		return nil, &transaction.TransientError{Op: "create transaction", Err: err}
	}
	return tx, nil
}

func (r *TransactionRepository) GetByRequestID(ctx context.Context, requestID string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE request_id = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &transaction.NotFoundError{ID: requestID}
		}
		return nil, &transaction.TransientError{Op: "get transaction by request id", Err: err}
	}
	return tx, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &transaction.NotFoundError{ID: id}
		}
		return nil, &transaction.TransientError{Op: "get transaction", Err: err}
	}
	return tx, nil
}

// List returns every transaction, newest first. The ordering is part of
// the read contract and holds regardless of which worker serves the read.
func (r *TransactionRepository) List(ctx context.Context) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &transaction.TransientError{Op: "list transactions", Err: err}
	}
	defer rows.Close()

	var transactions []*transaction.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, &transaction.TransientError{Op: "scan transaction", Err: err}
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, &transaction.TransientError{Op: "iterate transactions", Err: err}
	}

	return transactions, nil
}

func (r *TransactionRepository) Update(ctx context.Context, id string, params transaction.UpdateTransactionParams) (*transaction.Transaction, error) {
	query := `
		UPDATE transactions
		SET description = COALESCE($1, description),
		    amount = COALESCE($2, amount),
		    type = COALESCE($3, type),
		    category = COALESCE($4, category)
		WHERE id = $5
		RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.db.QueryRowContext(
		ctx, query,
		params.Description, params.Amount, params.Type, params.Category, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &transaction.NotFoundError{ID: id}
		}
		return nil, &transaction.TransientError{Op: "update transaction", Err: err}
	}
	return tx, nil
}

func (r *TransactionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return &transaction.TransientError{Op: "delete transaction", Err: err}
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return &transaction.TransientError{Op: "delete transaction", Err: err}
	}
	if rows == 0 {
		return &transaction.NotFoundError{ID: id}
	}
	return nil
}

// scanner covers *sql.Rows, *sql.Row and the traced row wrapper.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	var requestID sql.NullString

	err := s.Scan(
		&tx.ID, &tx.Description, &tx.Amount, &tx.Type, &tx.Category,
		&requestID, &tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if requestID.Valid {
		tx.RequestID = requestID.String
	}
	return &tx, nil
}
