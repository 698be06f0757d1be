package sflvault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/awnumar/memguard"
	"golang.org/x/sync/singleflight"

	"github.com/sflvault/client-go/internal/crypto"
)

// Identity is a user's keypair as known locally: the public half and the
// private half locked under a passphrase. Unlock recovers the private key
// for the duration of one call, or longer when a key cache is configured.
//
// An Identity is safe for concurrent use. Concurrent Unlock calls share a
// single passphrase prompt.
type Identity struct {
	username  string
	publicKey []byte
	locked    []byte

	source   PassphraseSource
	cacheTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time

	unlocks singleflight.Group

	mu        sync.Mutex
	cached    *memguard.Enclave
	expiresAt time.Time
	// generation is bumped by Forget; an unlock started under an older
	// generation does not populate the cache.
	generation uint64
}

// identityConfig holds configuration for an Identity.
type identityConfig struct {
	source   PassphraseSource
	cacheTTL time.Duration
	kdf      KDFParams
	logger   *slog.Logger
}

// IdentityOption configures an Identity.
type IdentityOption func(*identityConfig)

// IdentityPassphrase sets the passphrase source used by Unlock.
func IdentityPassphrase(src PassphraseSource) IdentityOption {
	return func(c *identityConfig) {
		c.source = src
	}
}

// IdentityKeyCache keeps the unlocked key for ttl. See WithKeyCache.
func IdentityKeyCache(ttl time.Duration) IdentityOption {
	return func(c *identityConfig) {
		c.cacheTTL = ttl
	}
}

// IdentityKDFParams sets the Argon2id costs used by GenerateIdentity.
func IdentityKDFParams(p KDFParams) IdentityOption {
	return func(c *identityConfig) {
		c.kdf = p
	}
}

// IdentityLogger sets the logger.
func IdentityLogger(l *slog.Logger) IdentityOption {
	return func(c *identityConfig) {
		c.logger = l
	}
}

func newIdentityConfig(opts []IdentityOption) *identityConfig {
	cfg := &identityConfig{kdf: DefaultKDFParams}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.source == nil {
		cfg.source = DefaultPassphraseSource()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return cfg
}

// GenerateIdentity creates a new keypair and locks its private half under
// passphrase. The passphrase buffer is zeroed before returning and the
// plaintext private key is never retained.
func GenerateIdentity(username string, passphrase []byte, opts ...IdentityOption) (*Identity, error) {
	defer crypto.Zero(passphrase)

	if len(passphrase) == 0 {
		return nil, &ConfigurationError{Message: "passphrase must not be empty"}
	}

	cfg := newIdentityConfig(opts)

	kp, err := crypto.GenerateKeypair()
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	defer kp.Destroy()

	locked, err := crypto.LockSecretKey(kp.SecretKey, passphrase, cfg.kdf)
	if err != nil {
		return nil, fmt.Errorf("lock private key: %w", err)
	}

	id := newIdentity(username, locked, cfg)
	id.publicKey = append([]byte(nil), kp.PublicKey...)
	return id, nil
}

// NewIdentity wraps a previously locked private key.
func NewIdentity(username string, lockedKey []byte, opts ...IdentityOption) *Identity {
	return newIdentity(username, append([]byte(nil), lockedKey...), newIdentityConfig(opts))
}

func newIdentity(username string, locked []byte, cfg *identityConfig) *Identity {
	return &Identity{
		username: username,
		locked:   locked,
		source:   cfg.source,
		cacheTTL: cfg.cacheTTL,
		logger:   cfg.logger,
		now:      time.Now,
	}
}

// Username returns the vault username the identity belongs to.
func (id *Identity) Username() string {
	return id.username
}

// LockedKey returns a copy of the locked private key blob.
func (id *Identity) LockedKey() []byte {
	return append([]byte(nil), id.locked...)
}

// PublicKey returns the public key when it is known without unlocking,
// which is the case for freshly generated identities.
func (id *Identity) PublicKey() []byte {
	id.mu.Lock()
	defer id.mu.Unlock()
	return append([]byte(nil), id.publicKey...)
}

// Unlock returns the private key. Each call gets its own copy, which the
// caller must Destroy.
//
// Errors: *ConfigurationError when no locked key is known, *DecryptError
// (StagePrivateKey) for a wrong passphrase or a damaged blob, and
// *AbortedError when the prompt is interrupted or ctx ends.
func (id *Identity) Unlock(ctx context.Context) (*IdentityKey, error) {
	if id == nil || len(id.locked) == 0 {
		return nil, &ConfigurationError{Message: "no private key configured; run user setup first"}
	}

	if enclave := id.cachedEnclave(); enclave != nil {
		return keyFromEnclave(enclave)
	}

	ch := id.unlocks.DoChan("unlock", func() (any, error) {
		return id.unlock(ctx)
	})

	select {
	case <-ctx.Done():
		return nil, &AbortedError{Operation: "unlock", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return keyFromEnclave(res.Val.(*memguard.Enclave))
	}
}

// unlock prompts once and seals the recovered key into an enclave that
// every waiting caller opens independently.
func (id *Identity) unlock(ctx context.Context) (*memguard.Enclave, error) {
	id.logger.Debug("unlocking identity", "username", id.username)

	id.mu.Lock()
	generation := id.generation
	id.mu.Unlock()

	pass, err := id.source.Passphrase(ctx, fmt.Sprintf("Passphrase for %s: ", id.username))
	if err != nil {
		if errors.Is(err, ErrPromptInterrupted) || errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) {
			return nil, &AbortedError{Operation: "unlock", Err: err}
		}
		return nil, &ConfigurationError{Message: "cannot obtain passphrase", Err: err}
	}

	secret, err := crypto.UnlockSecretKey(id.locked, pass)
	crypto.Zero(pass)
	if err != nil {
		id.logger.Warn("identity unlock failed", "username", id.username, "err", err)
		return nil, &DecryptError{Stage: StagePrivateKey, Err: err}
	}

	kp, err := crypto.KeypairFromSecretKey(secret)
	if err != nil {
		crypto.Zero(secret)
		return nil, &DecryptError{Stage: StagePrivateKey, Err: err}
	}

	id.mu.Lock()
	mismatch := len(id.publicKey) > 0 && !bytes.Equal(kp.PublicKey, id.publicKey)
	if len(id.publicKey) == 0 {
		id.publicKey = append([]byte(nil), kp.PublicKey...)
	}
	id.mu.Unlock()
	if mismatch {
		kp.Destroy()
		return nil, &DecryptError{Stage: StagePrivateKey, Err: errors.New("private key does not match public key")}
	}

	// NewEnclave wipes secret.
	enclave := memguard.NewEnclave(secret)
	if id.cacheTTL > 0 {
		id.mu.Lock()
		if id.generation == generation {
			id.cached = enclave
			id.expiresAt = id.now().Add(id.cacheTTL)
		}
		id.mu.Unlock()
	}
	return enclave, nil
}

func (id *Identity) cachedEnclave() *memguard.Enclave {
	id.mu.Lock()
	defer id.mu.Unlock()

	if id.cached == nil {
		return nil
	}
	if !id.now().Before(id.expiresAt) {
		id.cached = nil
		return nil
	}
	return id.cached
}

// Forget drops any cached key material. The next Unlock prompts again,
// and an unlock still in progress does not repopulate the cache.
func (id *Identity) Forget() {
	if id == nil {
		return
	}
	id.mu.Lock()
	id.generation++
	id.cached = nil
	id.expiresAt = time.Time{}
	id.mu.Unlock()
}

func keyFromEnclave(enclave *memguard.Enclave) (*IdentityKey, error) {
	buf, err := enclave.Open()
	if err != nil {
		return nil, &DecryptError{Stage: StagePrivateKey, Err: err}
	}
	defer buf.Destroy()

	secret := append([]byte(nil), buf.Bytes()...)
	kp, err := crypto.KeypairFromSecretKey(secret)
	if err != nil {
		crypto.Zero(secret)
		return nil, &DecryptError{Stage: StagePrivateKey, Err: err}
	}
	return &IdentityKey{kp: kp}, nil
}
