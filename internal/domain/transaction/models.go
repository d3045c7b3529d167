package transaction

import (
	"strings"
	"time"
)

// Transaction types. The type is declared by the caller and stored as-is;
// it is never re-derived from the amount's sign (known data-quality gap).
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

const DefaultCategory = "Uncategorized"

type Transaction struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"` // signed: negative = expense, positive = income
	Type        string    `json:"type"`   // "income" or "expense"
	Category    string    `json:"category"`
	RequestID   string    `json:"requestId,omitempty"` // idempotency key, empty when none was sent
	CreatedAt   time.Time `json:"createdAt"`
}

type CreateTransactionParams struct {
	Description string
	Amount      *float64 // pointer so a missing amount is distinguishable from 0
	Type        string
	Category    string
}

type UpdateTransactionParams struct {
	Description *string
	Amount      *float64
	Type        *string
	Category    *string
}

// Validate checks the create params and collects every violated field
// message, mirroring the storage schema's field requirements.
func (p CreateTransactionParams) Validate() *ValidationError {
	var messages []string

	if strings.TrimSpace(p.Description) == "" {
		messages = append(messages, "Please add a description.")
	}
	if p.Amount == nil {
		messages = append(messages, "Please add a positive or negative amount.")
	}
	if p.Type != TypeIncome && p.Type != TypeExpense {
		messages = append(messages, "Please specify if it is an income or expense.")
	}

	if len(messages) > 0 {
		return &ValidationError{Messages: messages}
	}
	return nil
}

// Normalize applies schema defaults: trimmed text fields and the default
// category. Call after Validate.
func (p *CreateTransactionParams) Normalize() {
	p.Description = strings.TrimSpace(p.Description)
	p.Category = strings.TrimSpace(p.Category)
	if p.Category == "" {
		p.Category = DefaultCategory
	}
}
