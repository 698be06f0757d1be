package crypto

import (
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	lockVersion   = 1
	lockSaltSize  = 16
	lockHeaderLen = 1 + 4 + 4 + 1 + lockSaltSize + chacha20poly1305.NonceSizeX
)

// KDFParams are the Argon2id cost parameters used to lock a private key.
type KDFParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultKDFParams are the parameters used for newly locked keys.
var DefaultKDFParams = KDFParams{Time: 3, Memory: 64 * 1024, Threads: 4}

// LockSecretKey encrypts a secret key under a passphrase.
//
// Layout: version (1) || time (4, BE) || memory (4, BE) || threads (1) ||
// salt (16) || nonce (24) || XChaCha20-Poly1305(secret). The header is
// authenticated as associated data, so the stored parameters cannot be
// downgraded without detection.
func LockSecretKey(secret, passphrase []byte, params KDFParams) ([]byte, error) {
	if params.Time == 0 || params.Memory == 0 || params.Threads == 0 {
		return nil, fmt.Errorf("invalid kdf params: %+v", params)
	}

	header := make([]byte, lockHeaderLen)
	header[0] = lockVersion
	binary.BigEndian.PutUint32(header[1:5], params.Time)
	binary.BigEndian.PutUint32(header[5:9], params.Memory)
	header[9] = params.Threads
	if _, err := io.ReadFull(random(), header[10:]); err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	salt := header[10 : 10+lockSaltSize]
	nonce := header[10+lockSaltSize:]

	key := argon2.IDKey(passphrase, salt, params.Time, params.Memory, params.Threads, chacha20poly1305.KeySize)
	defer Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return aead.Seal(header, nonce, secret, header), nil
}

// UnlockSecretKey reverses LockSecretKey. A wrong passphrase and a corrupted
// blob are indistinguishable and both return ErrWrongPassphrase.
func UnlockSecretKey(locked, passphrase []byte) ([]byte, error) {
	if len(locked) < lockHeaderLen+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: locked key too short", ErrInvalidPayload)
	}
	if locked[0] != lockVersion {
		return nil, fmt.Errorf("%w: unknown locked key version %d", ErrInvalidPayload, locked[0])
	}

	header := locked[:lockHeaderLen]
	params := KDFParams{
		Time:    binary.BigEndian.Uint32(header[1:5]),
		Memory:  binary.BigEndian.Uint32(header[5:9]),
		Threads: header[9],
	}
	if params.Time == 0 || params.Memory == 0 || params.Threads == 0 {
		return nil, fmt.Errorf("%w: invalid kdf params", ErrInvalidPayload)
	}
	salt := header[10 : 10+lockSaltSize]
	nonce := header[10+lockSaltSize:]

	key := argon2.IDKey(passphrase, salt, params.Time, params.Memory, params.Threads, chacha20poly1305.KeySize)
	defer Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	secret, err := aead.Open(nil, nonce, locked[lockHeaderLen:], header)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return secret, nil
}
