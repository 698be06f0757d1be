package sflvault

import (
	"errors"
	"fmt"

	"github.com/sflvault/client-go/internal/crypto"
)

// Ciphertexts are the three wrapped values that lead from an identity to a
// service secret.
type Ciphertexts struct {
	// CryptGroupKey is the group private key sealed to the user.
	CryptGroupKey []byte
	// CryptSymKey is the session key sealed to the group.
	CryptSymKey []byte
	// Secret is the service secret encrypted under the session key.
	Secret []byte
}

// UnwrapGroupKey recovers a group private key from the member's wrapped
// copy. The caller must Destroy the result.
func UnwrapGroupKey(id *IdentityKey, wrapped []byte) (*GroupKey, error) {
	if id == nil || id.kp == nil || id.kp.SecretKey == nil {
		return nil, &DecryptError{Stage: StageGroupKey, Err: errors.New("identity is locked")}
	}
	if len(wrapped) == 0 {
		return nil, &DecryptError{Stage: StageGroupKey, Err: ErrMissingCiphertext}
	}

	secret, err := id.kp.Open(crypto.LabelGroupKey, wrapped)
	if err != nil {
		return nil, &DecryptError{Stage: StageGroupKey, Err: err}
	}
	kp, err := crypto.KeypairFromSecretKey(secret)
	if err != nil {
		crypto.Zero(secret)
		return nil, &DecryptError{Stage: StageGroupKey, Err: err}
	}
	return &GroupKey{kp: kp}, nil
}

// UnwrapSessionKey recovers a service session key with a group key. The
// caller must Destroy the result.
func UnwrapSessionKey(g *GroupKey, wrapped []byte) (*SessionKey, error) {
	if g == nil || g.kp == nil || g.kp.SecretKey == nil {
		return nil, &DecryptError{Stage: StageSessionKey, Err: errors.New("group key unavailable")}
	}
	if len(wrapped) == 0 {
		return nil, &DecryptError{Stage: StageSessionKey, Err: ErrMissingCiphertext}
	}

	key, err := g.kp.Open(crypto.LabelSessionKey, wrapped)
	if err != nil {
		return nil, &DecryptError{Stage: StageSessionKey, Err: err}
	}
	if len(key) != crypto.SymmetricKeySize {
		crypto.Zero(key)
		return nil, &DecryptError{Stage: StageSessionKey, Err: fmt.Errorf("%w: session key is %d bytes", crypto.ErrInvalidKeySize, len(key))}
	}
	return &SessionKey{key: key}, nil
}

// DecryptSecret decrypts a service secret with its session key.
func DecryptSecret(s *SessionKey, ciphertext []byte) ([]byte, error) {
	if s == nil || s.key == nil {
		return nil, &DecryptError{Stage: StageSecret, Err: errors.New("session key unavailable")}
	}
	if len(ciphertext) == 0 {
		return nil, &DecryptError{Stage: StageSecret, Err: ErrMissingCiphertext}
	}

	plaintext, err := crypto.OpenSecret(s.key, ciphertext)
	if err != nil {
		return nil, &DecryptError{Stage: StageSecret, Err: err}
	}
	return plaintext, nil
}

// EncryptSecret encrypts a service secret under a session key.
func EncryptSecret(s *SessionKey, plaintext []byte) ([]byte, error) {
	if s == nil || s.key == nil {
		return nil, errors.New("session key unavailable")
	}
	return crypto.SealSecret(s.key, plaintext)
}

// UnwrapSecret runs the whole chain: group key, then session key, then
// secret. Intermediate keys are destroyed on every path; only the
// plaintext secret is returned.
func UnwrapSecret(id *IdentityKey, c Ciphertexts) ([]byte, error) {
	s, err := unwrapSessionKey(id, c)
	if err != nil {
		return nil, err
	}
	defer s.Destroy()

	return DecryptSecret(s, c.Secret)
}

// unwrapSessionKey runs the first two steps of the chain.
func unwrapSessionKey(id *IdentityKey, c Ciphertexts) (*SessionKey, error) {
	g, err := UnwrapGroupKey(id, c.CryptGroupKey)
	if err != nil {
		return nil, err
	}
	defer g.Destroy()

	return UnwrapSessionKey(g, c.CryptSymKey)
}

// WrapGroupKey seals a group private key to a member's public key.
func WrapGroupKey(g *GroupKey, memberPubKey []byte) ([]byte, error) {
	if g == nil || g.kp == nil || g.kp.SecretKey == nil {
		return nil, errors.New("group key unavailable")
	}
	return crypto.Seal(memberPubKey, crypto.LabelGroupKey, g.kp.SecretKey)
}

// WrapSessionKey seals a session key to a group public key.
func WrapSessionKey(s *SessionKey, groupPubKey []byte) ([]byte, error) {
	if s == nil || s.key == nil {
		return nil, errors.New("session key unavailable")
	}
	return crypto.Seal(groupPubKey, crypto.LabelSessionKey, s.key)
}
