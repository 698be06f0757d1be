package sflvault

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_IdentityRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	store := NewFileStore(path)

	empty, err := store.LoadIdentity()
	if err != nil {
		t.Fatalf("LoadIdentity() on missing file error = %v", err)
	}
	if empty.Username != "" || empty.LockedKey != nil {
		t.Errorf("empty store returned %+v", empty)
	}

	if err := store.SetAlias("web", "m#3"); err != nil {
		t.Fatal(err)
	}
	want := &StoredIdentity{Username: "alice", URL: "https://vault.example/vault/rpc", LockedKey: []byte{1, 2, 3, 4}}
	if err := store.SaveIdentity(want); err != nil {
		t.Fatalf("SaveIdentity() error = %v", err)
	}

	got, err := NewFileStore(path).LoadIdentity()
	if err != nil {
		t.Fatalf("LoadIdentity() error = %v", err)
	}
	if got.Username != want.Username || got.URL != want.URL || !bytes.Equal(got.LockedKey, want.LockedKey) {
		t.Errorf("LoadIdentity() = %+v, want %+v", got, want)
	}

	if target, ok, _ := store.ResolveAlias("web"); !ok || target != "m#3" {
		t.Error("alias lost when saving identity")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config mode = %o, want 600", perm)
	}
}

func TestFileStore_Aliases(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "config.toml"))

	if err := store.SetAlias("web", "web1"); !errors.Is(err, ErrInvalidVaultID) {
		t.Errorf("SetAlias(bad target) error = %v, want ErrInvalidVaultID", err)
	}
	for name, target := range map[string]string{"db": "s#1", "gw": "s#2"} {
		if err := store.SetAlias(name, target); err != nil {
			t.Fatal(err)
		}
	}

	aliases, err := store.Aliases()
	if err != nil {
		t.Fatal(err)
	}
	if len(aliases) != 2 || aliases[0].Name != "db" || aliases[1].Name != "gw" {
		t.Errorf("Aliases() = %+v", aliases)
	}

	if ok, err := store.DelAlias("db"); !ok || err != nil {
		t.Errorf("DelAlias(db) = %v, %v", ok, err)
	}
	if ok, _ := store.DelAlias("db"); ok {
		t.Error("DelAlias reported a missing alias as deleted")
	}
}

func TestFileStore_CorruptKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "[sflvault]\nusername = \"alice\"\nkey = \"%%%\"\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileStore(path).LoadIdentity(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}
