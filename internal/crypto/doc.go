// Package crypto provides the cryptographic primitives of the sflvault
// client: identity and group keypairs, sealing to a public key, service
// secret encryption, and passphrase locking of private keys.
//
// # Algorithm Suite
//
//   - ML-KEM-768 (NIST FIPS 203): key encapsulation for user and group
//     keypairs. Every payload sealed to a public key uses a fresh
//     encapsulation.
//
//   - AES-256-GCM: authenticated encryption of sealed payloads. The payload
//     label is passed as associated data.
//
//   - HKDF-SHA-512 (RFC 5869): derives the AES key from the KEM shared
//     secret, salted with the KEM ciphertext hash and bound to the label.
//
//   - XSalsa20-Poly1305 (NaCl secretbox): encryption of service secrets
//     under a 32-byte session key.
//
//   - Argon2id + XChaCha20-Poly1305: passphrase locking of the private key
//     stored in the config file.
//
// # Labels
//
// [Seal] and [Open] take a label naming what the plaintext is. A challenge
// sealed with [LabelChallenge] can never be opened as a group key, and so
// on, even under the same recipient key.
//
// # Key Management
//
// Use [GenerateKeypair] to create a new ML-KEM-768 keypair. The secret key
// contains an embedded copy of the public key at offset 1152, which
// [KeypairFromSecretKey] extracts. Secret keys should never be logged or
// stored unlocked; use [LockSecretKey] before persisting one and [Zero]
// buffers once they are no longer needed.
package crypto
