// Package client is the ledger's write-side HTTP client. It masks
// transient failures (timeouts, connection errors, 5xx responses) by
// retrying with a growing delay, while validation and not-found failures
// surface immediately. Every logical write carries one idempotency key,
// generated once and reused verbatim across retries, so a retry of a
// write whose response was lost can never double-apply.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Header names shared with the server.
const (
	headerRequestID    = "X-Request-Id"
	headerEmulateFault = "X-Emulate-Fault"
)

// FaultOmission instructs the server to drop the request without
// responding. Test use only.
const FaultOmission = "omission"

const (
	defaultTimeout     = 2 * time.Second
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
)

// Transaction is the wire shape of a ledger entry.
type Transaction struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	RequestID   string    `json:"requestId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// WritePayload holds the fields of one logical write.
type WritePayload struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"` // "income" or "expense"
	Category    string  `json:"category,omitempty"`
}

// UpdatePayload carries partial updates; nil fields are left unchanged.
type UpdatePayload struct {
	Description *string  `json:"description,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	Type        *string  `json:"type,omitempty"`
	Category    *string  `json:"category,omitempty"`
}

// WriteResult is a successful write response.
type WriteResult struct {
	Transaction Transaction
	// AlreadyProcessed is true when the server had seen the idempotency
	// key before and returned the previously committed transaction.
	AlreadyProcessed bool
	// RequestID is the idempotency key the write was submitted under.
	RequestID string
}

// APIError is a well-formed non-2xx response. 4xx responses are terminal;
// 5xx responses are retryable.
type APIError struct {
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %v", e.StatusCode, e.Messages)
}

// Retryable reports whether the failure may be transient.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500
}

// RetryError is returned once every attempt of a write has failed.
type RetryError struct {
	Attempts int
	LastErr  error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *RetryError) Unwrap() error {
	return e.LastErr
}

// Config controls the retry policy. Zero values take the defaults.
type Config struct {
	BaseURL     string
	Timeout     time.Duration // per-attempt timeout
	MaxAttempts int
	BaseDelay   time.Duration // attempt n sleeps n × BaseDelay after failing
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	baseDelay   time.Duration
}

func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
	}
}

type writeOptions struct {
	requestID string
	fault     string
}

type WriteOption func(*writeOptions)

// WithRequestID pins the idempotency key instead of generating one, for
// retrying a logical write across client restarts.
func WithRequestID(id string) WriteOption {
	return func(o *writeOptions) { o.requestID = id }
}

// WithFault asks the server to inject the named fault. Test use only.
func WithFault(mode string) WriteOption {
	return func(o *writeOptions) { o.fault = mode }
}

// SubmitWrite submits one logical write, retrying transient failures up
// to the attempt limit. The idempotency key is fixed before the first
// attempt and identical on every retry.
func (c *Client) SubmitWrite(ctx context.Context, payload WritePayload, opts ...WriteOption) (*WriteResult, error) {
	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.requestID == "" {
		o.requestID = uuid.New().String()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		result, err := c.submitOnce(ctx, o, body)
		if err == nil {
			return result, nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return nil, err
		}
		lastErr = err

		delay := time.Duration(attempt) * c.baseDelay
		log.Printf("Attempt %d failed: %v. Retrying in %s...", attempt, err, delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, &RetryError{Attempts: c.maxAttempts, LastErr: lastErr}
}

func (c *Client) submitOnce(ctx context.Context, o writeOptions, body []byte) (*WriteResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerRequestID, o.requestID)
	if o.fault != "" {
		req.Header.Set(headerEmulateFault, o.fault)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Connection failure or timeout: retryable. An omission fault
		// lands here as an ordinary timeout.
		return nil, err
	}
	defer resp.Body.Close()

	env, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}

	var tx Transaction
	if err := json.Unmarshal(env.Data, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	return &WriteResult{
		Transaction:      tx,
		AlreadyProcessed: resp.StatusCode == http.StatusOK,
		RequestID:        o.requestID,
	}, nil
}

// List fetches every transaction, newest first. Reads carry no
// idempotency key and are not retried.
func (c *Client) List(ctx context.Context) ([]Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/transactions", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	env, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}

	var transactions []Transaction
	if err := json.Unmarshal(env.Data, &transactions); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return transactions, nil
}

// Update modifies a transaction in place.
func (c *Client) Update(ctx context.Context, id string, payload UpdatePayload) (*Transaction, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/api/transactions/"+id, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	env, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}

	var tx Transaction
	if err := json.Unmarshal(env.Data, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return &tx, nil
}

// Delete removes a transaction.
func (c *Client) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/transactions/"+id, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = decodeEnvelope(resp)
	return err
}

// Crash invokes the diagnostic endpoint that kills the serving worker.
func (c *Client) Crash(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/crash", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func decodeEnvelope(resp *http.Response) (*apiEnvelope, error) {
	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			// Malformed error body: classify on status alone.
			return nil, &APIError{StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Messages:   errorMessages(env.Error),
		}
	}
	return &env, nil
}

// errorMessages accepts both error shapes the server produces: a single
// string or an array of field-level validation messages.
func errorMessages(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}
	}
	return []string{string(raw)}
}
