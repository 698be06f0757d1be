package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Default configuration values.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second

	// maxReplySize bounds how much of a reply body is read.
	maxReplySize = 16 << 20
)

// Caller performs one remote procedure call. params are encoded as a JSON
// array and the reply's "result" object is decoded into result.
type Caller interface {
	Call(ctx context.Context, method string, params []any, result any) error
}

// Config holds client configuration.
type Config struct {
	// URL is the vault RPC endpoint, e.g. https://vault.example.org/vault/rpc.
	URL        string
	HTTPClient *http.Client
	MaxRetries int
	RetryDelay time.Duration
	RetryOn    []int
	Logger     *slog.Logger

	// Caller replaces the HTTP transport entirely. URL and the HTTP
	// settings are ignored when it is set.
	Caller Caller
}

// Client is the vault RPC client. Each remote operation is a method.
type Client struct {
	caller Caller
}

// HTTPCaller is the default Caller. It POSTs a JSON request body to a
// single endpoint and retries idempotent reads on transient failures.
type HTTPCaller struct {
	url        string
	httpClient *http.Client
	retry      *RetryConfig
	logger     *slog.Logger
}

// NewClient creates a new vault client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Caller != nil {
		return &Client{caller: cfg.Caller}, nil
	}

	caller, err := NewHTTPCaller(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{caller: caller}, nil
}

// NewHTTPCaller creates the HTTP transport from the given configuration.
func NewHTTPCaller(cfg Config) (*HTTPCaller, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("vault URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	retry := DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxRetries = cfg.MaxRetries
	} else if cfg.MaxRetries < 0 {
		retry.MaxRetries = 0
	}
	if cfg.RetryDelay > 0 {
		retry.BaseDelay = cfg.RetryDelay
	}
	if len(cfg.RetryOn) > 0 {
		codes := make(map[int]bool, len(cfg.RetryOn))
		for _, code := range cfg.RetryOn {
			codes[code] = true
		}
		retry.RetryableOn = func(statusCode int) bool { return codes[statusCode] }
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &HTTPCaller{
		url:        cfg.URL,
		httpClient: httpClient,
		retry:      retry,
		logger:     logger,
	}, nil
}

type request struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type envelope struct {
	Result json.RawMessage `json:"result"`
}

// Call implements Caller.
func (h *HTTPCaller) Call(ctx context.Context, method string, params []any, result any) error {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(request{Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	requestID := uuid.NewString()
	idempotent := IsIdempotent(method)
	log := h.logger.With("method", method, "request_id", requestID)

	var lastErr error
	for attempt := 0; ; attempt++ {
		status, data, err := h.post(ctx, body, requestID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = &NetworkError{Err: err, URL: h.url, Attempt: attempt + 1}
			if !idempotent || attempt >= h.retry.MaxRetries {
				return lastErr
			}
			log.Debug("retrying after network error", "attempt", attempt+1, "err", err)
			if err := h.retry.Wait(ctx, attempt); err != nil {
				return err
			}
			continue
		}

		if status >= 400 {
			lastErr = parseErrorResponse(status, data, requestID)
			if idempotent && h.retry.ShouldRetry(attempt, status) {
				log.Debug("retrying after server error", "attempt", attempt+1, "status", status)
				if err := h.retry.Wait(ctx, attempt); err != nil {
					return err
				}
				continue
			}
			if errors.Is(lastErr, ErrRateLimited) {
				log.Warn("vault rate limit exceeded", "attempts", attempt+1)
			}
			return lastErr
		}

		return decodeResult(method, data, result)
	}
}

func (h *HTTPCaller) post(ctx context.Context, body []byte, requestID string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// decodeResult unwraps the {"result": {...}} envelope, turns a reply with
// error set into a *VaultError, and decodes the payload into result.
func decodeResult(method string, data []byte, result any) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if len(env.Result) == 0 || bytes.Equal(env.Result, []byte("null")) {
		return fmt.Errorf("%w: missing result", ErrMalformedReply)
	}

	var base struct {
		Reply
		Childs []ServiceRef `json:"childs"`
	}
	if err := json.Unmarshal(env.Result, &base); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if base.Error {
		return &VaultError{Method: method, Message: base.Message, Dependents: base.Childs}
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedReply, method, err)
	}
	return nil
}

func parseErrorResponse(status int, body []byte, requestID string) error {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}

	msg := string(bytes.TrimSpace(body))
	if err := json.Unmarshal(body, &errResp); err == nil {
		switch {
		case errResp.Message != "":
			msg = errResp.Message
		case errResp.Error != "":
			msg = errResp.Error
		}
	}

	return &APIError{
		StatusCode: status,
		Message:    msg,
		RequestID:  requestID,
	}
}

// call is the single entry point used by the endpoint methods.
func (c *Client) call(ctx context.Context, method string, result any, params ...any) error {
	err := c.caller.Call(ctx, "sflvault."+method, params, result)
	var vaultErr *VaultError
	if errors.As(err, &vaultErr) && vaultErr.Method == "" {
		vaultErr.Method = "sflvault." + method
	}
	return err
}
