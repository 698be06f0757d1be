package sflvault

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sflvault/client-go/internal/api"
)

// Client is an authenticated connection to one vault as one user.
//
// Every operation that needs a session runs through the same path: make
// sure a token is held (unlocking the identity and logging in if not),
// perform the call, and when the reply carries ciphertext, unwrap it with
// the identity key unlocked for that call. A Client is safe for concurrent
// use.
type Client struct {
	api           *api.Client
	url           string
	store         IdentityStore
	aliases       AliasResolver
	logger        *slog.Logger
	kdf           KDFParams
	idOpts        []IdentityOption
	tokenLifetime time.Duration
	parallel      int

	mu       sync.RWMutex
	identity *Identity
	session  *Session
	closed   bool
}

// New creates a client. The identity and vault URL come from the identity
// store unless WithIdentity and WithURL are given. A client without an
// identity can still run UserSetup; every other operation returns a
// *ConfigurationError until one is configured.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		timeout:         defaultTimeout,
		kdf:             DefaultKDFParams,
		treeConcurrency: defaultTreeConcurrency,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.passphrase == nil {
		cfg.passphrase = DefaultPassphraseSource()
	}
	if cfg.treeConcurrency < 1 {
		cfg.treeConcurrency = 1
	}

	var stored *StoredIdentity
	if cfg.store != nil {
		var err error
		stored, err = cfg.store.LoadIdentity()
		if err != nil {
			return nil, err
		}
		if cfg.url == "" {
			cfg.url = stored.URL
		}
	}

	if cfg.transport == nil && cfg.url == "" {
		return nil, &ConfigurationError{Message: "vault URL is required"}
	}

	apiClient, err := buildAPIClient(cfg)
	if err != nil {
		return nil, &ConfigurationError{Message: "cannot create vault client", Err: err}
	}

	c := &Client{
		api:           apiClient,
		url:           cfg.url,
		store:         cfg.store,
		logger:        cfg.logger,
		kdf:           cfg.kdf,
		tokenLifetime: cfg.tokenLifetime,
		parallel:      cfg.treeConcurrency,
		idOpts: []IdentityOption{
			IdentityPassphrase(cfg.passphrase),
			IdentityKeyCache(cfg.keyCacheTTL),
			IdentityKDFParams(cfg.kdf),
			IdentityLogger(cfg.logger),
		},
	}
	if r, ok := cfg.store.(AliasResolver); ok {
		c.aliases = r
	}

	identity := cfg.identity
	if identity == nil && stored != nil && len(stored.LockedKey) > 0 {
		identity = NewIdentity(stored.Username, stored.LockedKey, c.idOpts...)
	}
	c.setIdentity(identity)

	return c, nil
}

// buildAPIClient creates and configures an API client from the given config.
func buildAPIClient(cfg *clientConfig) (*api.Client, error) {
	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.timeout}
	}
	return api.NewClient(api.Config{
		URL:        cfg.url,
		HTTPClient: httpClient,
		MaxRetries: cfg.retries,
		RetryOn:    cfg.retryOn,
		Logger:     cfg.logger,
		Caller:     cfg.transport,
	})
}

func (c *Client) setIdentity(id *Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.identity != nil {
		c.identity.Forget()
	}
	c.identity = id
	username := ""
	if id != nil {
		username = id.Username()
	}
	c.session = newSession(username, c.tokenLifetime)
}

func (c *Client) current() (*Identity, *Session) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity, c.session
}

// Identity returns the configured identity, or nil.
func (c *Client) Identity() *Identity {
	id, _ := c.current()
	return id
}

// Session returns the current session.
func (c *Client) Session() *Session {
	_, s := c.current()
	return s
}

// Close drops the session and destroys cached key material. Operations
// on a closed client return ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.identity != nil {
		c.identity.Forget()
	}
	if c.session != nil {
		c.session.clear()
	}
	return nil
}

// callFunc is a protected operation body. key is nil unless the operation
// asked for it.
type callFunc func(ctx context.Context, token string, key *IdentityKey) error

// protected runs fn with a valid session token. The identity is unlocked
// at most once per call: before logging in when no token is held, and
// whenever needKey is set. The same key serves both purposes and is
// destroyed when fn returns. An unauthorized reply discards the token.
func (c *Client) protected(ctx context.Context, op string, needKey bool, fn callFunc) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClientClosed
	}

	identity, session := c.current()
	if identity == nil {
		return &ConfigurationError{Message: "no identity configured; run user setup first"}
	}

	token, ok := session.validToken()

	var key *IdentityKey
	if !ok || needKey {
		var err error
		key, err = identity.Unlock(ctx)
		if err != nil {
			return err
		}
		defer key.Destroy()
	}

	if !ok {
		var err error
		token, err = c.ensureToken(ctx, session, key)
		if err != nil {
			return err
		}
	}

	err := fn(ctx, token, key)
	if errors.Is(err, api.ErrUnauthorized) {
		session.drop(token)
		c.logger.Info("session token rejected", "username", session.username, "op", op)
		return &AuthenticationError{Username: session.username, Message: "session rejected by vault", Err: err}
	}
	if err != nil {
		c.logger.Debug("operation failed", "op", op, "err", err)
	}
	return wrapError(op, err)
}
