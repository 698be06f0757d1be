package crypto

import (
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// NewSymmetricKey returns a fresh random service session key.
func NewSymmetricKey() ([]byte, error) {
	key := make([]byte, SymmetricKeySize)
	if _, err := io.ReadFull(random(), key); err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	return key, nil
}

// SealSecret encrypts a service secret under a session key. The output is
// nonce (24 bytes) || secretbox(plaintext).
func SealSecret(key, plaintext []byte) ([]byte, error) {
	if len(key) != SymmetricKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), SymmetricKeySize)
	}

	var k [SymmetricKeySize]byte
	copy(k[:], key)
	defer Zero(k[:])

	var nonce [SecretboxNonceSize]byte
	if _, err := io.ReadFull(random(), nonce[:]); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}

	return secretbox.Seal(nonce[:], plaintext, &nonce, &k), nil
}

// OpenSecret reverses SealSecret.
func OpenSecret(key, sealed []byte) ([]byte, error) {
	if len(key) != SymmetricKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), SymmetricKeySize)
	}
	if len(sealed) < SecretboxNonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("%w: secret too short", ErrInvalidPayload)
	}

	var k [SymmetricKeySize]byte
	copy(k[:], key)
	defer Zero(k[:])

	var nonce [SecretboxNonceSize]byte
	copy(nonce[:], sealed[:SecretboxNonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[SecretboxNonceSize:], &nonce, &k)
	if !ok {
		return nil, ErrDecryptionFailed
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}
