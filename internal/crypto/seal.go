package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
)

// sealOverhead is the number of bytes Seal adds to a plaintext.
const sealOverhead = MLKEMCiphertextSize + AESNonceSize + AESTagSize

// Seal encrypts plaintext so that only the holder of the secret key matching
// publicKey can recover it. The label is bound into the key derivation and
// the AEAD associated data.
//
// The sealing process:
//  1. ML-KEM-768 encapsulation against the recipient public key
//  2. HKDF-SHA-512 key derivation using the shared secret, label, and KEM ciphertext
//  3. AES-256-GCM encryption with a fresh random nonce
//
// The output format is: ct_kem (1088 bytes) || nonce (12 bytes) || ciphertext || tag (16 bytes).
// Sealing the same plaintext twice yields unrelated ciphertexts.
func Seal(publicKey []byte, label string, plaintext []byte) ([]byte, error) {
	if len(publicKey) != MLKEMPublicKeySize {
		return nil, ErrInvalidPublicKeySize
	}

	scheme := mlkem768.Scheme()
	pub, err := scheme.UnmarshalBinaryPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("unmarshal public key: %w", err)
	}

	// 1. KEM Encapsulation
	var ctKem, sharedSecret []byte
	if randReader != nil {
		seed := make([]byte, scheme.EncapsulationSeedSize())
		if _, err := io.ReadFull(randReader, seed); err != nil {
			return nil, fmt.Errorf("read seed: %w", err)
		}
		ctKem, sharedSecret, err = scheme.EncapsulateDeterministically(pub, seed)
	} else {
		ctKem, sharedSecret, err = scheme.Encapsulate(pub)
	}
	if err != nil {
		return nil, fmt.Errorf("encapsulate: %w", err)
	}
	defer Zero(sharedSecret)

	// 2. Key Derivation (HKDF-SHA-512)
	aesKey, err := deriveSealKey(sharedSecret, ctKem, label)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer Zero(aesKey)

	// 3. AES-256-GCM Encryption
	nonce := make([]byte, AESNonceSize)
	if _, err := io.ReadFull(random(), nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	ciphertext, err := encryptAESGCM(aesKey, nonce, []byte(label), plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	out := make([]byte, 0, sealOverhead+len(plaintext))
	out = append(out, ctKem...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// Open reverses Seal using the recipient's raw ML-KEM-768 secret key.
//
// ML-KEM decapsulation with a foreign key yields an unrelated shared secret,
// so a payload sealed for somebody else fails at the AES-GCM step with
// ErrDecryptionFailed rather than producing garbage.
func Open(secretKey []byte, label string, sealed []byte) ([]byte, error) {
	if len(secretKey) != MLKEMSecretKeySize {
		return nil, ErrInvalidSecretKeySize
	}
	if len(sealed) < sealOverhead {
		return nil, fmt.Errorf("%w: sealed payload too short", ErrInvalidPayload)
	}

	ctKem := sealed[:MLKEMCiphertextSize]
	nonce := sealed[MLKEMCiphertextSize : MLKEMCiphertextSize+AESNonceSize]
	ciphertext := sealed[MLKEMCiphertextSize+AESNonceSize:]

	// 1. KEM Decapsulation
	var privKey mlkem768.PrivateKey
	if err := privKey.Unpack(secretKey); err != nil {
		return nil, fmt.Errorf("unmarshal private key: %w", err)
	}

	sharedSecret := make([]byte, MLKEMSharedKeySize)
	privKey.DecapsulateTo(sharedSecret, ctKem)
	defer Zero(sharedSecret)

	// 2. Key Derivation (HKDF-SHA-512)
	aesKey, err := deriveSealKey(sharedSecret, ctKem, label)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer Zero(aesKey)

	// 3. AES-256-GCM Decryption
	plaintext, err := decryptAESGCM(aesKey, nonce, []byte(label), ciphertext)
	if err != nil {
		return nil, err
	}

	return plaintext, nil
}

func random() io.Reader {
	if randReader != nil {
		return randReader
	}
	return rand.Reader
}
