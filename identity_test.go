package sflvault

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sflvault/client-go/internal/crypto"
)

func TestGenerateIdentity_UnlockRoundTrip(t *testing.T) {
	id := newTestIdentity(t, "alice", "p@ss1")

	if got := len(id.PublicKey()); got != crypto.MLKEMPublicKeySize {
		t.Fatalf("public key length = %d, want %d", got, crypto.MLKEMPublicKeySize)
	}

	key := unlockKey(t, id)
	if !bytes.Equal(key.PublicKey(), id.PublicKey()) {
		t.Error("unlocked key does not match the generated public key")
	}
}

func TestGenerateIdentity_ZeroesPassphrase(t *testing.T) {
	pass := []byte("p@ss1")
	if _, err := GenerateIdentity("alice", pass, IdentityKDFParams(testKDF)); err != nil {
		t.Fatalf("GenerateIdentity() error = %v", err)
	}
	if !bytes.Equal(pass, make([]byte, len(pass))) {
		t.Errorf("passphrase not zeroed: %q", pass)
	}
}

func TestGenerateIdentity_EmptyPassphrase(t *testing.T) {
	_, err := GenerateIdentity("alice", nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}

func TestNewIdentity_UnlocksStoredKey(t *testing.T) {
	orig := newTestIdentity(t, "alice", "p@ss1")

	loaded := NewIdentity("alice", orig.LockedKey(), IdentityPassphrase(StaticPassphrase("p@ss1")))
	if len(loaded.PublicKey()) != 0 {
		t.Fatal("public key known before unlock")
	}

	key := unlockKey(t, loaded)
	if !bytes.Equal(key.PublicKey(), orig.PublicKey()) {
		t.Error("stored key unlocked to a different keypair")
	}
	if !bytes.Equal(loaded.PublicKey(), orig.PublicKey()) {
		t.Error("public key not recorded after unlock")
	}
}

func TestUnlock_Errors(t *testing.T) {
	orig := newTestIdentity(t, "alice", "p@ss1")
	locked := orig.LockedKey()

	damaged := append([]byte(nil), locked...)
	damaged[len(damaged)-1] ^= 0x01

	tests := []struct {
		name   string
		id     *Identity
		target error
	}{
		{
			name:   "wrong passphrase",
			id:     NewIdentity("alice", locked, IdentityPassphrase(StaticPassphrase("wrong"))),
			target: ErrDecrypt,
		},
		{
			name:   "damaged blob",
			id:     NewIdentity("alice", damaged, IdentityPassphrase(StaticPassphrase("p@ss1"))),
			target: ErrDecrypt,
		},
		{
			name:   "no key",
			id:     NewIdentity("alice", nil),
			target: ErrNotConfigured,
		},
		{
			name: "prompt interrupted",
			id: NewIdentity("alice", locked, IdentityPassphrase(PassphraseFunc(
				func(context.Context, string) ([]byte, error) { return nil, ErrPromptInterrupted },
			))),
			target: ErrAborted,
		},
		{
			name: "source failure",
			id: NewIdentity("alice", locked, IdentityPassphrase(PassphraseFunc(
				func(context.Context, string) ([]byte, error) { return nil, errors.New("no tty") },
			))),
			target: ErrNotConfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := tt.id.Unlock(t.Context())
			if err == nil {
				key.Destroy()
				t.Fatal("Unlock() succeeded")
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestUnlock_WrongPassphraseStage(t *testing.T) {
	orig := newTestIdentity(t, "alice", "p@ss1")
	id := NewIdentity("alice", orig.LockedKey(), IdentityPassphrase(StaticPassphrase("wrong")))

	_, err := id.Unlock(t.Context())
	var decErr *DecryptError
	if !errors.As(err, &decErr) {
		t.Fatalf("error = %v, want *DecryptError", err)
	}
	if decErr.Stage != StagePrivateKey {
		t.Errorf("Stage = %q, want %q", decErr.Stage, StagePrivateKey)
	}
}

func TestUnlock_ContextCancelled(t *testing.T) {
	orig := newTestIdentity(t, "alice", "p@ss1")
	id := NewIdentity("alice", orig.LockedKey(), IdentityPassphrase(PassphraseFunc(
		func(ctx context.Context, _ string) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	)))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err := id.Unlock(ctx)
	var aborted *AbortedError
	if !errors.As(err, &aborted) {
		t.Fatalf("error = %v, want *AbortedError", err)
	}
}

func TestUnlock_ConcurrentCallersShareOnePrompt(t *testing.T) {
	orig := newTestIdentity(t, "alice", "p@ss1")

	var prompts atomic.Int32
	release := make(chan struct{})
	id := NewIdentity("alice", orig.LockedKey(), IdentityPassphrase(PassphraseFunc(
		func(context.Context, string) ([]byte, error) {
			prompts.Add(1)
			<-release
			return []byte("p@ss1"), nil
		},
	)))

	const callers = 8
	keys := make([]*IdentityKey, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keys[i], errs[i] = id.Unlock(t.Context())
		}()
	}

	for prompts.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := prompts.Load(); got != 1 {
		t.Errorf("prompts = %d, want 1", got)
	}
	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}

	// Each caller owns its copy.
	keys[0].Destroy()
	for _, k := range keys[1:] {
		if k.kp.SecretKey == nil {
			t.Fatal("destroying one key destroyed another")
		}
		if !bytes.Equal(k.PublicKey(), orig.PublicKey()) {
			t.Error("caller got the wrong key")
		}
		k.Destroy()
	}
}

func TestUnlock_KeyCache(t *testing.T) {
	orig := newTestIdentity(t, "alice", "p@ss1")

	var prompts atomic.Int32
	src := PassphraseFunc(func(context.Context, string) ([]byte, error) {
		prompts.Add(1)
		return []byte("p@ss1"), nil
	})
	id := NewIdentity("alice", orig.LockedKey(), IdentityPassphrase(src), IdentityKeyCache(time.Minute))

	unlockKey(t, id)
	unlockKey(t, id)
	if got := prompts.Load(); got != 1 {
		t.Fatalf("prompts after cached unlock = %d, want 1", got)
	}

	id.Forget()
	unlockKey(t, id)
	if got := prompts.Load(); got != 2 {
		t.Fatalf("prompts after Forget = %d, want 2", got)
	}

	later := time.Now().Add(2 * time.Minute)
	id.now = func() time.Time { return later }
	unlockKey(t, id)
	if got := prompts.Load(); got != 3 {
		t.Errorf("prompts after expiry = %d, want 3", got)
	}
}

func TestUnlock_ForgetDuringPrompt(t *testing.T) {
	orig := newTestIdentity(t, "alice", "p@ss1")

	var prompts atomic.Int32
	release := make(chan struct{}, 1)
	id := NewIdentity("alice", orig.LockedKey(),
		IdentityKeyCache(time.Hour),
		IdentityPassphrase(PassphraseFunc(func(context.Context, string) ([]byte, error) {
			prompts.Add(1)
			<-release
			return []byte("p@ss1"), nil
		})),
	)

	done := make(chan error, 1)
	go func() {
		key, err := id.Unlock(t.Context())
		if err == nil {
			key.Destroy()
		}
		done <- err
	}()

	for prompts.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	id.Forget()
	release <- struct{}{}
	if err := <-done; err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	if id.cachedEnclave() != nil {
		t.Fatal("unlock finishing after Forget populated the cache")
	}

	release <- struct{}{}
	key, err := id.Unlock(t.Context())
	if err != nil {
		t.Fatalf("second Unlock() error = %v", err)
	}
	key.Destroy()
	if got := prompts.Load(); got != 2 {
		t.Errorf("prompts = %d, want 2", got)
	}

	// Without a Forget the next unlock is cached again.
	key, err = id.Unlock(t.Context())
	if err != nil {
		t.Fatalf("third Unlock() error = %v", err)
	}
	key.Destroy()
	if got := prompts.Load(); got != 2 {
		t.Errorf("prompts after cached unlock = %d, want 2", got)
	}
}

func TestUnlock_NoCacheByDefault(t *testing.T) {
	orig := newTestIdentity(t, "alice", "p@ss1")

	var prompts atomic.Int32
	id := NewIdentity("alice", orig.LockedKey(), IdentityPassphrase(PassphraseFunc(
		func(context.Context, string) ([]byte, error) {
			prompts.Add(1)
			return []byte("p@ss1"), nil
		},
	)))

	unlockKey(t, id)
	unlockKey(t, id)
	if got := prompts.Load(); got != 2 {
		t.Errorf("prompts = %d, want 2", got)
	}
}

func TestIdentityKey_Destroy(t *testing.T) {
	id := newTestIdentity(t, "alice", "p@ss1")
	key, err := id.Unlock(t.Context())
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	key.Destroy()
	key.Destroy()
	if key.kp.SecretKey != nil {
		t.Error("secret key still present after Destroy")
	}
	if _, err := UnwrapGroupKey(key, []byte{1}); !errors.Is(err, ErrDecrypt) {
		t.Errorf("UnwrapGroupKey with destroyed key: error = %v, want ErrDecrypt", err)
	}
}
