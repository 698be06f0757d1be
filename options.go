package sflvault

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sflvault/client-go/internal/api"
	"github.com/sflvault/client-go/internal/crypto"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultTreeConcurrency = 4
)

// Transport carries one remote call to the vault. params are sent as a
// positional list and the reply's result object is decoded into result.
// The default transport is JSON over HTTP POST.
type Transport = api.Caller

// KDFParams are the Argon2id costs used when locking a private key.
type KDFParams = crypto.KDFParams

// DefaultKDFParams are used unless WithKDFParams overrides them.
var DefaultKDFParams = crypto.DefaultKDFParams

// clientConfig holds configuration for the client.
type clientConfig struct {
	url             string
	httpClient      *http.Client
	timeout         time.Duration
	retries         int
	retryOn         []int
	logger          *slog.Logger
	transport       Transport
	store           IdentityStore
	identity        *Identity
	passphrase      PassphraseSource
	keyCacheTTL     time.Duration
	tokenLifetime   time.Duration
	kdf             KDFParams
	treeConcurrency int
}

// Option configures the client.
type Option func(*clientConfig)

// WithURL sets the vault RPC endpoint. It overrides the URL recorded in
// the identity store.
func WithURL(url string) Option {
	return func(c *clientConfig) {
		c.url = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request HTTP timeout.
// Default: 30 seconds
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithRetries sets how many times read-only calls are retried. A negative
// count disables retries.
// Default: 3
func WithRetries(count int) Option {
	return func(c *clientConfig) {
		c.retries = count
	}
}

// WithRetryOn sets the HTTP status codes that trigger a retry.
// Default: [408, 429, 500, 502, 503, 504]
func WithRetryOn(statusCodes []int) Option {
	return func(c *clientConfig) {
		c.retryOn = statusCodes
	}
}

// WithLogger sets the structured logger. Nothing is logged by default.
// Key material, passphrases, tokens and secrets are never logged.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithTransport replaces the HTTP transport. WithURL, WithHTTPClient,
// WithTimeout and the retry options have no effect when it is set.
func WithTransport(t Transport) Option {
	return func(c *clientConfig) {
		c.transport = t
	}
}

// WithIdentityStore sets where the identity is loaded from and where
// UserSetup saves it.
func WithIdentityStore(store IdentityStore) Option {
	return func(c *clientConfig) {
		c.store = store
	}
}

// WithIdentity uses id instead of loading one from the identity store.
func WithIdentity(id *Identity) Option {
	return func(c *clientConfig) {
		c.identity = id
	}
}

// WithPassphraseSource sets how the passphrase is obtained when the
// identity must be unlocked.
// Default: $SFLVAULT_ASKPASS if set, otherwise a terminal prompt.
func WithPassphraseSource(src PassphraseSource) Option {
	return func(c *clientConfig) {
		c.passphrase = src
	}
}

// WithKeyCache keeps the unlocked identity key in memory for ttl, so the
// passphrase is asked once per ttl instead of once per call. The key is
// held in an encrypted memguard enclave, but a longer ttl is a longer
// window in which a compromised process can use it.
// Default: 0 (unlock per call)
func WithKeyCache(ttl time.Duration) Option {
	return func(c *clientConfig) {
		c.keyCacheTTL = ttl
	}
}

// WithTokenLifetime discards session tokens older than d and logs in
// again. The vault remains the authority; an unauthorized reply always
// discards the token.
// Default: 0 (tokens are kept until rejected)
func WithTokenLifetime(d time.Duration) Option {
	return func(c *clientConfig) {
		c.tokenLifetime = d
	}
}

// WithKDFParams sets the Argon2id costs used by UserSetup.
func WithKDFParams(p KDFParams) Option {
	return func(c *clientConfig) {
		c.kdf = p
	}
}

// WithTreeConcurrency bounds how many services of a tree are decrypted at
// once.
// Default: 4
func WithTreeConcurrency(n int) Option {
	return func(c *clientConfig) {
		c.treeConcurrency = n
	}
}
