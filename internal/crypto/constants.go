package crypto

import "github.com/cloudflare/circl/kem/mlkem/mlkem768"

const (
	// HKDFContext is the context string used in HKDF key derivation
	// for domain separation.
	HKDFContext = "sflvault:seal:v1"

	// MLKEMPublicKeySize is the size of an ML-KEM-768 public key in bytes.
	MLKEMPublicKeySize = mlkem768.PublicKeySize
	// MLKEMSecretKeySize is the size of an ML-KEM-768 secret key in bytes.
	MLKEMSecretKeySize = mlkem768.PrivateKeySize
	// MLKEMCiphertextSize is the size of an ML-KEM-768 ciphertext in bytes.
	MLKEMCiphertextSize = mlkem768.CiphertextSize
	// MLKEMSharedKeySize is the size of the shared secret from ML-KEM-768 in bytes.
	MLKEMSharedKeySize = mlkem768.SharedKeySize

	// AESKeySize is the size of an AES-256 key in bytes.
	AESKeySize = 32
	// AESNonceSize is the size of an AES-GCM nonce in bytes.
	AESNonceSize = 12
	// AESTagSize is the size of an AES-GCM authentication tag in bytes.
	AESTagSize = 16

	// SymmetricKeySize is the size of a service session key in bytes.
	SymmetricKeySize = 32
	// SecretboxNonceSize is the size of the nonce prepended to secretbox output.
	SecretboxNonceSize = 24

	// PublicKeyOffset is the byte offset where the public key is embedded
	// within an ML-KEM-768 secret key.
	PublicKeyOffset = 1152
)

// Labels bind a sealed payload to the role of its content. A ciphertext
// sealed under one label never opens under another.
const (
	LabelChallenge  = "sflvault:challenge:v1"
	LabelGroupKey   = "sflvault:groupkey:v1"
	LabelSessionKey = "sflvault:symkey:v1"
)
