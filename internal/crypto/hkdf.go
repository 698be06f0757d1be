package crypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey derives a key using HKDF-SHA-512.
//
// Parameters:
//   - secret: the input key material (e.g., shared secret from KEM)
//   - salt: optional salt value; if empty, a zero-filled salt is used
//   - info: context/application-specific info for domain separation
//   - length: desired output key length in bytes
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	if len(salt) == 0 {
		salt = make([]byte, sha512.Size)
	}

	reader := hkdf.New(sha512.New, secret, salt, info)
	key := make([]byte, length)

	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	return key, nil
}

// deriveSealKey performs HKDF-SHA-512 key derivation for the seal scheme.
//
// The key derivation uses:
//   - IKM (input key material): the KEM shared secret
//   - Salt: SHA-256 hash of the KEM ciphertext
//   - Info: context string || label length (4 bytes BE) || label
//
// This produces a 256-bit key suitable for AES-256-GCM.
func deriveSealKey(sharedSecret, ctKem []byte, label string) ([]byte, error) {
	saltHash := sha256.Sum256(ctKem)

	contextBytes := []byte(HKDFContext)
	labelLength := make([]byte, 4)
	binary.BigEndian.PutUint32(labelLength, uint32(len(label)))

	info := make([]byte, 0, len(contextBytes)+4+len(label))
	info = append(info, contextBytes...)
	info = append(info, labelLength...)
	info = append(info, label...)

	return DeriveKey(sharedSecret, saltHash[:], info, AESKeySize)
}
