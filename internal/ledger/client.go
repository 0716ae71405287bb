package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"hydra-launchpad/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout          = 30 * time.Second
	DefaultMaxRetries       = 3
	DefaultRetryDelay       = 1 * time.Second
	DefaultMaxDelay         = 10 * time.Second
	DefaultBackoffMult      = 2.0
	DefaultConfirmationPoll = 2 * time.Second
)

// HTTPClient implements Client using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	confirmPoll time.Duration
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithConfirmationPoll sets the confirmation polling interval.
func WithConfirmationPoll(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.confirmPoll = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new ledger service HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		confirmPoll: DefaultConfirmationPoll,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// spendableUnitResult is the raw RPC response item for getSpendableUnits.
type spendableUnitResult struct {
	TxHash      string           `json:"txHash"`
	OutputIndex int              `json:"outputIndex"`
	Address     string           `json:"address"`
	Lovelace    int64            `json:"lovelace"`
	Assets      map[string]int64 `json:"assets"`
}

// GetSpendableUnits retrieves the current spendable units of an address.
func (c *HTTPClient) GetSpendableUnits(ctx context.Context, address string) ([]domain.SpendableUnit, error) {
	params := []interface{}{address}

	var result []spendableUnitResult
	if err := c.call(ctx, "getSpendableUnits", params, &result); err != nil {
		return nil, err
	}

	units := make([]domain.SpendableUnit, len(result))
	for i, r := range result {
		value := domain.NewValue(r.Lovelace)
		for unit, qty := range r.Assets {
			value.Assets[unit] = qty
		}
		units[i] = domain.SpendableUnit{
			Ref:     domain.TxOutRef{TxHash: r.TxHash, OutputIndex: r.OutputIndex},
			Address: r.Address,
			Value:   value,
		}
	}

	return units, nil
}

// buildTransactionResult is the raw RPC response for buildUnsignedTransaction.
type buildTransactionResult struct {
	TxBytes string `json:"txBytes"` // base64 encoded
}

// BuildUnsignedTransaction builds an unsigned transaction from a spec.
func (c *HTTPClient) BuildUnsignedTransaction(ctx context.Context, spec *TxSpec) ([]byte, error) {
	params := []interface{}{spec}

	var result buildTransactionResult
	if err := c.call(ctx, "buildUnsignedTransaction", params, &result); err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(result.TxBytes)
	if err != nil {
		return nil, fmt.Errorf("decode tx bytes: %w", err)
	}

	return raw, nil
}

// submitResult is the raw RPC response for submitTransaction.
type submitResult struct {
	TxRef string `json:"txRef"`
}

// Submit sends a signed transaction and returns its reference.
func (c *HTTPClient) Submit(ctx context.Context, signed []byte) (string, error) {
	params := []interface{}{base64.StdEncoding.EncodeToString(signed)}

	var result submitResult
	if err := c.call(ctx, "submitTransaction", params, &result); err != nil {
		if isStaleInputsError(err) {
			return "", fmt.Errorf("%w: %s", ErrStaleInputs, err)
		}
		return "", err
	}

	return result.TxRef, nil
}

// isStaleInputsError detects the ledger's already-spent-input rejection.
func isStaleInputsError(err error) bool {
	rpcErr, ok := err.(*rpcError)
	if !ok {
		return false
	}
	return strings.Contains(rpcErr.Message, "BadInputsUTxO")
}

// confirmationResult is the raw RPC response for getTransactionStatus.
type confirmationResult struct {
	Confirmed bool `json:"confirmed"`
}

// AwaitConfirmation polls until the ledger reports the transaction final.
// No internal timeout; bound the wait via ctx.
func (c *HTTPClient) AwaitConfirmation(ctx context.Context, txRef string) error {
	ticker := time.NewTicker(c.confirmPoll)
	defer ticker.Stop()

	for {
		var result confirmationResult
		if err := c.call(ctx, "getTransactionStatus", []interface{}{txRef}, &result); err != nil {
			return err
		}
		if result.Confirmed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
