package crypto

import (
	"io"

	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
)

// randReader is the random source used for key generation and sealing.
// It defaults to nil (which uses crypto/rand) but can be overridden for testing.
var randReader io.Reader

// Keypair represents an ML-KEM-768 keypair. Both user identities and
// vault groups are Keypairs at this layer.
type Keypair struct {
	// PublicKey is the raw ML-KEM-768 public key bytes.
	PublicKey []byte
	// SecretKey is the raw ML-KEM-768 secret key bytes.
	SecretKey []byte
}

// GenerateKeypair creates a new ML-KEM-768 keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := mlkem768.GenerateKeyPair(randReader)
	if err != nil {
		return nil, err
	}

	// MarshalBinary never fails for valid keys from GenerateKeyPair
	pubBytes, _ := pub.MarshalBinary()
	privBytes, _ := priv.MarshalBinary()

	return &Keypair{
		PublicKey: pubBytes,
		SecretKey: privBytes,
	}, nil
}

// KeypairFromSecretKey reconstructs a keypair from the secret key.
// The public key is embedded in the secret key at offset 1152.
// The secret key is validated by unpacking it.
func KeypairFromSecretKey(secretKey []byte) (*Keypair, error) {
	if len(secretKey) != MLKEMSecretKeySize {
		return nil, ErrInvalidSecretKeySize
	}

	var priv mlkem768.PrivateKey
	if err := priv.Unpack(secretKey); err != nil {
		return nil, err
	}

	publicKey := make([]byte, MLKEMPublicKeySize)
	copy(publicKey, secretKey[PublicKeyOffset:PublicKeyOffset+MLKEMPublicKeySize])

	return &Keypair{
		PublicKey: publicKey,
		SecretKey: secretKey,
	}, nil
}

// ValidatePublicKey checks that raw bytes form a usable ML-KEM-768 public key.
func ValidatePublicKey(publicKey []byte) error {
	if len(publicKey) != MLKEMPublicKeySize {
		return ErrInvalidPublicKeySize
	}
	if _, err := mlkem768.Scheme().UnmarshalBinaryPublicKey(publicKey); err != nil {
		return err
	}
	return nil
}

// Destroy zeroes the secret key bytes. The keypair is unusable afterwards.
func (k *Keypair) Destroy() {
	if k == nil {
		return
	}
	Zero(k.SecretKey)
	k.SecretKey = nil
}

// Open decrypts a payload produced by Seal for this keypair's public key.
func (k *Keypair) Open(label string, sealed []byte) ([]byte, error) {
	return Open(k.SecretKey, label, sealed)
}
