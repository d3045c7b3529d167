package http

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"moneta/internal/domain/transaction"
)

const (
	// HeaderRequestID carries the client-generated idempotency key.
	HeaderRequestID = "X-Request-Id"

	// HeaderEmulateFault lets test clients ask the server to misbehave.
	HeaderEmulateFault = "X-Emulate-Fault"

	// FaultOmission drops the request without ever responding; the client
	// observes it as a timeout.
	FaultOmission = "omission"
)

// omissionHold keeps a hijacked connection open long past any sane client
// timeout so the dropped response is seen as a timeout, not a reset.
const omissionHold = 30 * time.Second

type TransactionHandler struct {
	guard *transaction.WriteGuard
	repo  transaction.Repository
}

func NewTransactionHandler(guard *transaction.WriteGuard, repo transaction.Repository) *TransactionHandler {
	return &TransactionHandler{guard: guard, repo: repo}
}

type CreateTransactionRequest struct {
	Description string   `json:"description"`
	Amount      *float64 `json:"amount"`
	Type        string   `json:"type"`
	Category    string   `json:"category,omitempty"`
}

type UpdateTransactionRequest struct {
	Description *string  `json:"description,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	Type        *string  `json:"type,omitempty"`
	Category    *string  `json:"category,omitempty"`
}

// HandleTransactions serves the collection route: GET lists, POST creates.
func (h *TransactionHandler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TransactionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.repo.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if transactions == nil {
		transactions = []*transaction.Transaction{}
	}

	count := len(transactions)
	writeJSON(w, http.StatusOK, envelope{Success: true, Count: &count, Data: transactions})
}

func (h *TransactionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(HeaderEmulateFault) == FaultOmission {
		h.dropResponse(w)
		return
	}

	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "Invalid request body"})
		return
	}

	requestID := r.Header.Get(HeaderRequestID)

	result, err := h.guard.HandleWrite(r.Context(), requestID, transaction.CreateTransactionParams{
		Description: req.Description,
		Amount:      req.Amount,
		Type:        req.Type,
		Category:    req.Category,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if result.AlreadyProcessed {
		writeJSON(w, http.StatusOK, envelope{
			Success: true,
			Data:    result.Transaction,
			Message: "Request already processed.",
		})
		return
	}

	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: result.Transaction})
}

// dropResponse emulates an omission fault: the request is received but no
// response is ever written. The connection is hijacked so net/http cannot
// send its implicit 200, then held open until well past client timeouts.
func (h *TransactionHandler) dropResponse(w http.ResponseWriter) {
	log.Println("Emulating an omission fault: not sending a response.")

	conn, _, err := http.NewResponseController(w).Hijack()
	if err != nil {
		// Hijacking is unsupported here (e.g. HTTP/2); closing without a
		// response is the nearest observable failure.
		log.Printf("Hijack unavailable for omission fault: %v", err)
		panic(http.ErrAbortHandler)
	}

	go func() {
		time.Sleep(omissionHold)
		conn.Close()
	}()
}

// HandleTransactionByID serves the item route: PUT updates, DELETE removes.
func (h *TransactionHandler) HandleTransactionByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "Transaction ID is required"})
		return
	}

	switch r.Method {
	case http.MethodPut:
		h.handleUpdate(w, r, id)
	case http.MethodDelete:
		h.handleDelete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TransactionHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "Invalid request body"})
		return
	}

	updated, err := h.repo.Update(r.Context(), id, transaction.UpdateTransactionParams{
		Description: req.Description,
		Amount:      req.Amount,
		Type:        req.Type,
		Category:    req.Category,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: updated})
}

func (h *TransactionHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{}})
}
