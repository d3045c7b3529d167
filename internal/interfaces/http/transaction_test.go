package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"moneta/internal/domain/transaction"
)

// MockRepository implements transaction.Repository for testing
type MockRepository struct {
	CreateFunc         func(ctx context.Context, params transaction.CreateTransactionParams, requestID string) (*transaction.Transaction, error)
	GetByRequestIDFunc func(ctx context.Context, requestID string) (*transaction.Transaction, error)
	GetByIDFunc        func(ctx context.Context, id string) (*transaction.Transaction, error)
	ListFunc           func(ctx context.Context) ([]*transaction.Transaction, error)
	UpdateFunc         func(ctx context.Context, id string, params transaction.UpdateTransactionParams) (*transaction.Transaction, error)
	DeleteFunc         func(ctx context.Context, id string) error
}

func (m *MockRepository) Create(ctx context.Context, params transaction.CreateTransactionParams, requestID string) (*transaction.Transaction, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params, requestID)
	}
	return nil, nil
}

func (m *MockRepository) GetByRequestID(ctx context.Context, requestID string) (*transaction.Transaction, error) {
	if m.GetByRequestIDFunc != nil {
		return m.GetByRequestIDFunc(ctx, requestID)
	}
	return nil, nil
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockRepository) List(ctx context.Context) ([]*transaction.Transaction, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockRepository) Update(ctx context.Context, id string, params transaction.UpdateTransactionParams) (*transaction.Transaction, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, params)
	}
	return nil, nil
}

func (m *MockRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Count   *int            `json:"count"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func newHandler(repo transaction.Repository) *TransactionHandler {
	return NewTransactionHandler(transaction.NewWriteGuard(repo), repo)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	return env
}

func TestHandleListTransactions(t *testing.T) {
	tests := []struct {
		name           string
		repo           *MockRepository
		expectedStatus int
		expectedCount  int
		expectSuccess  bool
	}{
		{
			name: "returns transactions newest first",
			repo: &MockRepository{
				ListFunc: func(ctx context.Context) ([]*transaction.Transaction, error) {
					return []*transaction.Transaction{
						{ID: "tx-3", Description: "Latest"},
						{ID: "tx-2", Description: "Middle"},
						{ID: "tx-1", Description: "Oldest"},
					}, nil
				},
			},
			expectedStatus: http.StatusOK,
			expectedCount:  3,
			expectSuccess:  true,
		},
		{
			name:           "empty store",
			repo:           &MockRepository{},
			expectedStatus: http.StatusOK,
			expectedCount:  0,
			expectSuccess:  true,
		},
		{
			name: "backend failure",
			repo: &MockRepository{
				ListFunc: func(ctx context.Context) ([]*transaction.Transaction, error) {
					return nil, &transaction.TransientError{Op: "list", Err: errors.New("connection refused")}
				},
			},
			expectedStatus: http.StatusInternalServerError,
			expectSuccess:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newHandler(tt.repo)
			req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
			rec := httptest.NewRecorder()

			handler.HandleTransactions(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.expectedStatus)
			}

			env := decodeEnvelope(t, rec)
			if env.Success != tt.expectSuccess {
				t.Errorf("success = %v, want %v", env.Success, tt.expectSuccess)
			}
			if tt.expectSuccess {
				if env.Count == nil || *env.Count != tt.expectedCount {
					t.Errorf("count = %v, want %d", env.Count, tt.expectedCount)
				}
			}
		})
	}
}

func TestHandleCreateTransaction(t *testing.T) {
	amount := -42.5
	stored := &transaction.Transaction{
		ID:          "tx-1",
		Description: "Groceries",
		Amount:      amount,
		Type:        transaction.TypeExpense,
		Category:    transaction.DefaultCategory,
		RequestID:   "req-1",
		CreatedAt:   time.Now(),
	}

	t.Run("creates with idempotency key", func(t *testing.T) {
		var gotRequestID string
		repo := &MockRepository{
			CreateFunc: func(ctx context.Context, params transaction.CreateTransactionParams, requestID string) (*transaction.Transaction, error) {
				gotRequestID = requestID
				return stored, nil
			},
		}
		handler := newHandler(repo)

		body, _ := json.Marshal(map[string]any{
			"description": "Groceries",
			"amount":      amount,
			"type":        "expense",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewReader(body))
		req.Header.Set(HeaderRequestID, "req-1")
		rec := httptest.NewRecorder()

		handler.HandleTransactions(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
		}
		if gotRequestID != "req-1" {
			t.Errorf("requestID passed to repo = %q, want %q", gotRequestID, "req-1")
		}
		env := decodeEnvelope(t, rec)
		if !env.Success {
			t.Error("success = false, want true")
		}
	})

	t.Run("duplicate key returns prior result", func(t *testing.T) {
		repo := &MockRepository{
			CreateFunc: func(ctx context.Context, params transaction.CreateTransactionParams, requestID string) (*transaction.Transaction, error) {
				return nil, &transaction.DuplicateKeyError{Key: requestID}
			},
			GetByRequestIDFunc: func(ctx context.Context, requestID string) (*transaction.Transaction, error) {
				return stored, nil
			},
		}
		handler := newHandler(repo)

		body, _ := json.Marshal(map[string]any{
			"description": "Groceries",
			"amount":      amount,
			"type":        "expense",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewReader(body))
		req.Header.Set(HeaderRequestID, "req-1")
		rec := httptest.NewRecorder()

		handler.HandleTransactions(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		env := decodeEnvelope(t, rec)
		if env.Message != "Request already processed." {
			t.Errorf("message = %q, want %q", env.Message, "Request already processed.")
		}

		var got transaction.Transaction
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatalf("failed to decode data: %v", err)
		}
		if got.ID != stored.ID {
			t.Errorf("data.id = %q, want prior row %q", got.ID, stored.ID)
		}
	})

	t.Run("validation failure lists violated fields", func(t *testing.T) {
		created := false
		repo := &MockRepository{
			CreateFunc: func(ctx context.Context, params transaction.CreateTransactionParams, requestID string) (*transaction.Transaction, error) {
				created = true
				return nil, nil
			},
		}
		handler := newHandler(repo)

		body, _ := json.Marshal(map[string]any{"amount": amount, "type": "expense"})
		req := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewReader(body))
		req.Header.Set(HeaderRequestID, "req-1")
		rec := httptest.NewRecorder()

		handler.HandleTransactions(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if created {
			t.Error("repository Create called despite validation failure")
		}

		env := decodeEnvelope(t, rec)
		var messages []string
		if err := json.Unmarshal(env.Error, &messages); err != nil {
			t.Fatalf("error field is not a message array: %s", env.Error)
		}
		if len(messages) != 1 || messages[0] != "Please add a description." {
			t.Errorf("messages = %v, want the missing-description violation", messages)
		}
	})
}

func TestHandleCreateOmissionFault(t *testing.T) {
	repo := &MockRepository{
		CreateFunc: func(ctx context.Context, params transaction.CreateTransactionParams, requestID string) (*transaction.Transaction, error) {
			t.Error("omission fault must drop the request before it is applied")
			return nil, nil
		},
	}
	handler := newHandler(repo)

	srv := httptest.NewServer(http.HandlerFunc(handler.HandleTransactions))
	defer srv.Close()

	client := &http.Client{Timeout: 200 * time.Millisecond}

	req, _ := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(`{}`))
	req.Header.Set(HeaderEmulateFault, FaultOmission)
	req.Header.Set(HeaderRequestID, "req-omit")

	_, err := client.Do(req)
	if err == nil {
		t.Fatal("expected a client-side timeout, got a response")
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func TestHandleTransactionByID(t *testing.T) {
	notFound := &transaction.NotFoundError{ID: "missing"}

	tests := []struct {
		name           string
		method         string
		id             string
		body           string
		repo           *MockRepository
		expectedStatus int
	}{
		{
			name:   "update success",
			method: http.MethodPut,
			id:     "tx-1",
			body:   `{"description":"Updated"}`,
			repo: &MockRepository{
				UpdateFunc: func(ctx context.Context, id string, params transaction.UpdateTransactionParams) (*transaction.Transaction, error) {
					if params.Description == nil || *params.Description != "Updated" {
						t.Errorf("params.Description = %v, want Updated", params.Description)
					}
					return &transaction.Transaction{ID: id, Description: *params.Description}, nil
				},
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "update unknown id",
			method: http.MethodPut,
			id:     "missing",
			body:   `{"description":"Updated"}`,
			repo: &MockRepository{
				UpdateFunc: func(ctx context.Context, id string, params transaction.UpdateTransactionParams) (*transaction.Transaction, error) {
					return nil, notFound
				},
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "delete success",
			method:         http.MethodDelete,
			id:             "tx-1",
			repo:           &MockRepository{},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "delete unknown id",
			method: http.MethodDelete,
			id:     "missing",
			repo: &MockRepository{
				DeleteFunc: func(ctx context.Context, id string) error {
					return notFound
				},
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newHandler(tt.repo)

			mux := http.NewServeMux()
			mux.HandleFunc("/api/transactions/{id}", handler.HandleTransactionByID)

			req := httptest.NewRequest(tt.method, "/api/transactions/"+tt.id, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.expectedStatus, rec.Body.String())
			}

			env := decodeEnvelope(t, rec)
			wantSuccess := tt.expectedStatus == http.StatusOK
			if env.Success != wantSuccess {
				t.Errorf("success = %v, want %v", env.Success, wantSuccess)
			}

			if tt.method == http.MethodDelete && wantSuccess && string(env.Data) != "{}" {
				t.Errorf("delete data = %s, want {}", env.Data)
			}
		})
	}
}
