package sflvault

import (
	"context"
	"errors"
	"fmt"

	"github.com/sflvault/client-go/internal/api"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrNotConfigured is returned when no identity has been set up locally.
	ErrNotConfigured = errors.New("sflvault is not configured")

	// ErrDecrypt is returned when any decryption step fails.
	ErrDecrypt = errors.New("decryption failed")

	// ErrAuthentication is returned when the vault rejects a login or a
	// session token.
	ErrAuthentication = errors.New("authentication failed")

	// ErrRemoting is returned when a connection plan cannot be built.
	ErrRemoting = errors.New("remoting error")

	// ErrVault is returned when the vault refuses an operation.
	ErrVault = errors.New("vault error")

	// ErrNotFound is returned when the vault has no entity with the given id.
	ErrNotFound = errors.New("not found")

	// ErrAborted is returned when the user interrupts a prompt or the
	// context is cancelled.
	ErrAborted = errors.New("operation aborted")

	// ErrTransport is returned when the vault could not be reached or
	// answered with an HTTP error.
	ErrTransport = errors.New("transport error")

	// ErrInvalidVaultID is returned for malformed entity references.
	ErrInvalidVaultID = errors.New("invalid vault id")

	// ErrClientClosed is returned when operations are attempted on a closed client.
	ErrClientClosed = errors.New("client has been closed")

	// ErrMissingCiphertext is the cause recorded when a reply lacks one of
	// the ciphertexts needed to reach a secret.
	ErrMissingCiphertext = errors.New("missing ciphertext")
)

// SFLvaultError is implemented by all errors returned from this package.
type SFLvaultError interface {
	error
	SFLvaultError() // marker method
}

// ConfigurationError reports missing or unreadable local configuration.
type ConfigurationError struct {
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrNotConfigured
}

// SFLvaultError implements the SFLvaultError interface.
func (e *ConfigurationError) SFLvaultError() {}

// DecryptStage names the step of a decryption that failed.
type DecryptStage string

// Decryption stages, in the order they run.
const (
	StagePrivateKey DecryptStage = "private key"
	StageChallenge  DecryptStage = "challenge"
	StageGroupKey   DecryptStage = "group key"
	StageSessionKey DecryptStage = "session key"
	StageSecret     DecryptStage = "secret"
)

// DecryptError represents a failure to decrypt key material or a secret.
type DecryptError struct {
	Stage DecryptStage
	Err   error
}

func (e *DecryptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unable to decrypt %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("unable to decrypt %s", e.Stage)
}

// Unwrap returns the underlying error.
func (e *DecryptError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *DecryptError) Is(target error) bool {
	return target == ErrDecrypt
}

// SFLvaultError implements the SFLvaultError interface.
func (e *DecryptError) SFLvaultError() {}

// AuthenticationError is returned when the vault rejects a login, or a
// session token it previously issued.
type AuthenticationError struct {
	Username string
	Message  string
	Err      error
}

func (e *AuthenticationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Username != "" {
		return fmt.Sprintf("authentication failed for %s: %s", e.Username, msg)
	}
	return fmt.Sprintf("authentication failed: %s", msg)
}

// Unwrap returns the underlying error.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}

// SFLvaultError implements the SFLvaultError interface.
func (e *AuthenticationError) SFLvaultError() {}

// RemotingError is returned when a hop of a connection plan has no
// recoverable credential.
type RemotingError struct {
	ServiceID int64
	URL       string
	Reason    string
}

func (e *RemotingError) Error() string {
	return fmt.Sprintf("cannot connect through s#%d (%s): %s", e.ServiceID, e.URL, e.Reason)
}

// Is implements errors.Is for sentinel error matching.
func (e *RemotingError) Is(target error) bool {
	return target == ErrRemoting
}

// SFLvaultError implements the SFLvaultError interface.
func (e *RemotingError) SFLvaultError() {}

// ServiceRef names a service, as listed in delete refusals.
type ServiceRef struct {
	ID  int64
	URL string
}

// VaultError is returned when the vault answers with its error flag set.
type VaultError struct {
	Operation string
	Message   string
	// Dependents lists services that rely on the entity a delete targeted.
	Dependents []ServiceRef
	notFound   bool
}

func (e *VaultError) Error() string {
	if len(e.Dependents) > 0 {
		return fmt.Sprintf("%s: %s (%d dependent services)", e.Operation, e.Message, len(e.Dependents))
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

// Is implements errors.Is for sentinel error matching.
func (e *VaultError) Is(target error) bool {
	return target == ErrVault || (target == ErrNotFound && e.notFound)
}

// SFLvaultError implements the SFLvaultError interface.
func (e *VaultError) SFLvaultError() {}

// AbortedError is returned when a prompt is interrupted or the context
// ends. No partial state is kept.
type AbortedError struct {
	Operation string
	Err       error
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("%s aborted: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *AbortedError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *AbortedError) Is(target error) bool {
	return target == ErrAborted
}

// SFLvaultError implements the SFLvaultError interface.
func (e *AbortedError) SFLvaultError() {}

// TransportError represents a failure to exchange a request with the vault.
type TransportError struct {
	URL        string
	StatusCode int    // zero for network-level failures
	RequestID  string // if known
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.RequestID != "" {
			return fmt.Sprintf("vault returned HTTP %d: %v (request_id: %s)", e.StatusCode, e.Err, e.RequestID)
		}
		return fmt.Sprintf("vault returned HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("cannot reach vault: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// SFLvaultError implements the SFLvaultError interface.
func (e *TransportError) SFLvaultError() {}

// VaultIDError is returned for a malformed or mismatched entity reference.
type VaultIDError struct {
	Input   string
	Kind    Kind
	Message string
}

func (e *VaultIDError) Error() string {
	return fmt.Sprintf("invalid %s id %q: %s", e.Kind, e.Input, e.Message)
}

// Is implements errors.Is for sentinel error matching.
func (e *VaultIDError) Is(target error) bool {
	return target == ErrInvalidVaultID
}

// SFLvaultError implements the SFLvaultError interface.
func (e *VaultIDError) SFLvaultError() {}

// wrapError converts internal API errors to public errors.
// Errors that already carry a public kind pass through unchanged.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pub SFLvaultError
	if errors.As(err, &pub) {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &AbortedError{Operation: op, Err: err}
	}

	var vaultErr *api.VaultError
	if errors.As(err, &vaultErr) {
		deps := make([]ServiceRef, 0, len(vaultErr.Dependents))
		for _, d := range vaultErr.Dependents {
			deps = append(deps, ServiceRef{ID: d.ID, URL: d.URL})
		}
		return &VaultError{
			Operation:  op,
			Message:    vaultErr.Message,
			Dependents: deps,
			notFound:   errors.Is(vaultErr, api.ErrNotFound),
		}
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return &TransportError{
			StatusCode: apiErr.StatusCode,
			RequestID:  apiErr.RequestID,
			Err:        errors.New(apiErr.Message),
		}
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return &TransportError{URL: netErr.URL, Err: netErr.Err}
	}

	if errors.Is(err, api.ErrMalformedReply) {
		return &TransportError{Err: err}
	}

	return fmt.Errorf("%s: %w", op, err)
}
