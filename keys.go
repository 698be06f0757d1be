package sflvault

import (
	"github.com/sflvault/client-go/internal/crypto"
)

// IdentityKey is an unlocked user private key. It is valid until Destroy.
type IdentityKey struct {
	kp *crypto.Keypair
}

// PublicKey returns a copy of the matching public key.
func (k *IdentityKey) PublicKey() []byte {
	if k == nil || k.kp == nil {
		return nil
	}
	return append([]byte(nil), k.kp.PublicKey...)
}

// Destroy zeroes the key. Calling it more than once is safe.
func (k *IdentityKey) Destroy() {
	if k != nil {
		k.kp.Destroy()
	}
}

// GroupKey is a plaintext group private key, recovered from a member's
// wrapped copy. It never leaves the process.
type GroupKey struct {
	kp *crypto.Keypair
}

// NewGroupKey generates a fresh group keypair.
func NewGroupKey() (*GroupKey, error) {
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		return nil, err
	}
	return &GroupKey{kp: kp}, nil
}

// PublicKey returns a copy of the group public key.
func (k *GroupKey) PublicKey() []byte {
	if k == nil || k.kp == nil {
		return nil
	}
	return append([]byte(nil), k.kp.PublicKey...)
}

// Destroy zeroes the key. Calling it more than once is safe.
func (k *GroupKey) Destroy() {
	if k != nil {
		k.kp.Destroy()
	}
}

// SessionKey is the symmetric key a service secret is encrypted under.
type SessionKey struct {
	key []byte
}

// NewSessionKey generates a fresh random session key.
func NewSessionKey() (*SessionKey, error) {
	key, err := crypto.NewSymmetricKey()
	if err != nil {
		return nil, err
	}
	return &SessionKey{key: key}, nil
}

// Destroy zeroes the key. Calling it more than once is safe.
func (k *SessionKey) Destroy() {
	if k != nil {
		crypto.Zero(k.key)
		k.key = nil
	}
}
