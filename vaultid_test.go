package sflvault

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestParseVaultID(t *testing.T) {
	tests := []struct {
		in      string
		kind    Kind
		want    int64
		wantErr bool
	}{
		{"s#12", KindService, 12, false},
		{"12", KindService, 12, false},
		{"m#3", KindMachine, 3, false},
		{"c#0", KindCustomer, 0, false},
		{"g#7", KindAny, 7, false},
		{"m#3", KindService, 0, true},
		{"7", KindAny, 0, true},
		{"s#", KindService, 0, true},
		{"s#-1", KindService, 0, true},
		{"-1", KindService, 0, true},
		{"web1", KindService, 0, true},
		{"s#99999999999999999999", KindService, 0, true},
		{"", KindService, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVaultID(tt.in, tt.kind)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidVaultID) {
					t.Errorf("ParseVaultID(%q) error = %v, want ErrInvalidVaultID", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVaultID(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseVaultID(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatVaultID(t *testing.T) {
	if got := FormatVaultID(KindService, 12); got != "s#12" {
		t.Errorf("FormatVaultID() = %q, want s#12", got)
	}
	id, err := ParseVaultID(FormatVaultID(KindGroup, 5), KindGroup)
	if err != nil || id != 5 {
		t.Errorf("round trip = %d, %v", id, err)
	}
}

func TestKind_String(t *testing.T) {
	if got := KindService.String(); got != "service" {
		t.Errorf("KindService.String() = %q", got)
	}
	if got := Kind('x').String(); got != "kind(x)" {
		t.Errorf("Kind('x').String() = %q", got)
	}
}

func TestResolveID_Aliases(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "config.toml"))
	if err := store.SetAlias("db", "s#42"); err != nil {
		t.Fatalf("SetAlias() error = %v", err)
	}

	tv := newTestVault(t)
	c, err := New(WithURL(tv.URL()), WithIdentityStore(store))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if id, err := c.ResolveID("db", KindService); err != nil || id != 42 {
		t.Errorf("ResolveID(db) = %d, %v, want 42", id, err)
	}
	if _, err := c.ResolveID("db", KindMachine); !errors.Is(err, ErrInvalidVaultID) {
		t.Errorf("ResolveID(db, machine) error = %v, want ErrInvalidVaultID", err)
	}
	if id, err := c.ResolveID("s#7", KindService); err != nil || id != 7 {
		t.Errorf("ResolveID(s#7) = %d, %v", id, err)
	}
}
