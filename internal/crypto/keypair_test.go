package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestGenerateKeypair(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	if len(kp.PublicKey) != MLKEMPublicKeySize {
		t.Errorf("PublicKey size = %d, want %d", len(kp.PublicKey), MLKEMPublicKeySize)
	}
	if len(kp.SecretKey) != MLKEMSecretKeySize {
		t.Errorf("SecretKey size = %d, want %d", len(kp.SecretKey), MLKEMSecretKeySize)
	}
}

func TestGenerateKeypair_Uniqueness(t *testing.T) {
	kp1, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}
	kp2, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	if bytes.Equal(kp1.PublicKey, kp2.PublicKey) {
		t.Error("Generated keypairs have identical public keys")
	}
	if bytes.Equal(kp1.SecretKey, kp2.SecretKey) {
		t.Error("Generated keypairs have identical secret keys")
	}
}

func TestGenerateKeypair_FixedRandomness(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, 64)

	restore := SetRandReaderForTesting(bytes.NewReader(seed))
	kp1, err := GenerateKeypair()
	restore()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	restore = SetRandReaderForTesting(bytes.NewReader(seed))
	kp2, err := GenerateKeypair()
	restore()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	if !bytes.Equal(kp1.SecretKey, kp2.SecretKey) {
		t.Error("keypairs from the same randomness differ")
	}
}

func TestKeypairFromSecretKey(t *testing.T) {
	original, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	restored, err := KeypairFromSecretKey(original.SecretKey)
	if err != nil {
		t.Fatalf("KeypairFromSecretKey() error = %v", err)
	}

	if !bytes.Equal(restored.PublicKey, original.PublicKey) {
		t.Error("restored public key does not match original")
	}
	if !bytes.Equal(restored.SecretKey, original.SecretKey) {
		t.Error("restored secret key does not match original")
	}
}

func TestKeypairFromSecretKey_InvalidSize(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"too short", MLKEMSecretKeySize - 1},
		{"too long", MLKEMSecretKeySize + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := KeypairFromSecretKey(make([]byte, tt.size))
			if !errors.Is(err, ErrInvalidSecretKeySize) {
				t.Errorf("error = %v, want ErrInvalidSecretKeySize", err)
			}
		})
	}
}

func TestValidatePublicKey(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	if err := ValidatePublicKey(kp.PublicKey); err != nil {
		t.Errorf("ValidatePublicKey() error = %v", err)
	}
	if err := ValidatePublicKey(kp.PublicKey[:10]); !errors.Is(err, ErrInvalidPublicKeySize) {
		t.Errorf("short key error = %v, want ErrInvalidPublicKeySize", err)
	}
}

func TestKeypair_Destroy(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}
	secret := kp.SecretKey

	kp.Destroy()

	if kp.SecretKey != nil {
		t.Error("SecretKey not cleared")
	}
	for i, b := range secret {
		if b != 0 {
			t.Fatalf("secret byte %d = %#x, want 0", i, b)
		}
	}

	var nilKP *Keypair
	nilKP.Destroy()
}

func TestPublicKeyOffset(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	embedded := kp.SecretKey[PublicKeyOffset : PublicKeyOffset+MLKEMPublicKeySize]
	if !bytes.Equal(embedded, kp.PublicKey) {
		t.Error("public key is not embedded at PublicKeyOffset")
	}
}

func BenchmarkGenerateKeypair(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = GenerateKeypair()
	}
}
