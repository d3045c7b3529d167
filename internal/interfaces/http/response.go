package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"moneta/internal/domain/transaction"
)

// envelope is the response shape shared by every endpoint:
// {success, count?, message?, data?|error?}. Error is either a single
// string or an array of field-level validation messages.
type envelope struct {
	Success bool   `json:"success"`
	Count   *int   `json:"count,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// writeError maps a domain error onto the envelope. Dispatch is on the
// closed set of tagged variants; duplicate-key conflicts never reach here
// because the write guard resolves them into success responses.
func writeError(w http.ResponseWriter, err error) {
	var verr *transaction.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: verr.Messages})
		return
	}

	var nferr *transaction.NotFoundError
	if errors.As(err, &nferr) {
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Error: "Transaction not found"})
		return
	}

	log.Printf("Server error: %v", err)
	writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Error: "Server Error"})
}
