package api

import (
	"errors"
	"fmt"
	"strings"
)

// Common API errors that can be checked with errors.Is.
var (
	// ErrUnauthorized indicates the session token is missing, invalid or expired.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound indicates the vault has no entity with the requested id.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrMalformedReply indicates the reply body could not be decoded.
	ErrMalformedReply = errors.New("malformed reply")
)

// APIError represents an HTTP error from the vault endpoint.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		if e.Message != "" {
			return fmt.Sprintf("API error %d: %s (request_id: %s)", e.StatusCode, e.Message, e.RequestID)
		}
		return fmt.Sprintf("API error %d (request_id: %s)", e.StatusCode, e.RequestID)
	}
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case 401:
		return target == ErrUnauthorized
	case 404:
		return target == ErrNotFound
	case 429:
		return target == ErrRateLimited
	}
	return false
}

// VaultError is a well-formed reply whose error flag is set. The call
// reached the vault and was refused.
type VaultError struct {
	Method  string
	Message string
	// Dependents lists services that prevented a delete.
	Dependents []ServiceRef
}

func (e *VaultError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: vault returned an error", e.Method)
	}
	return fmt.Sprintf("%s: %s", e.Method, e.Message)
}

// Is implements errors.Is. The vault signals missing entities only through
// its message text.
func (e *VaultError) Is(target error) bool {
	if target != ErrNotFound {
		return false
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "not found") || strings.Contains(msg, "doesn't exist") ||
		strings.Contains(msg, "does not exist")
}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err     error
	URL     string
	Attempt int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
