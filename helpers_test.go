package sflvault

import (
	"testing"

	"github.com/sflvault/client-go/internal/api"
	"github.com/sflvault/client-go/internal/fakevault"
)

// testKDF keeps Argon2id cheap in tests.
var testKDF = KDFParams{Time: 1, Memory: 1024, Threads: 1}

func newTestIdentity(t *testing.T, username, passphrase string, opts ...IdentityOption) *Identity {
	t.Helper()
	opts = append([]IdentityOption{
		IdentityKDFParams(testKDF),
		IdentityPassphrase(StaticPassphrase(passphrase)),
	}, opts...)
	id, err := GenerateIdentity(username, []byte(passphrase), opts...)
	if err != nil {
		t.Fatalf("GenerateIdentity() error = %v", err)
	}
	return id
}

// unlockKey unlocks id and destroys the key when the test ends.
func unlockKey(t *testing.T, id *Identity) *IdentityKey {
	t.Helper()
	key, err := id.Unlock(t.Context())
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	t.Cleanup(key.Destroy)
	return key
}

// testVault is a fake vault with one customer and one machine.
type testVault struct {
	*fakevault.Vault
	t       *testing.T
	machine int64
}

func newTestVault(t *testing.T) *testVault {
	t.Helper()
	v := fakevault.New()
	t.Cleanup(v.Close)
	customer := v.AddCustomer("acme")
	machine := v.AddMachine(api.Machine{CustomerID: customer, Name: "web1", FQDN: "web1.acme.example"})
	return &testVault{Vault: v, t: t, machine: machine}
}

func (tv *testVault) register(id *Identity, admin bool) {
	tv.AddUser(id.Username(), id.PublicKey(), admin)
}

// group creates a group whose key is sealed to each member. The plaintext
// group key stays with the test so it can seal services to the group.
func (tv *testVault) group(name string, members ...*Identity) (int64, *GroupKey) {
	tv.t.Helper()
	g, err := NewGroupKey()
	if err != nil {
		tv.t.Fatalf("NewGroupKey() error = %v", err)
	}
	tv.t.Cleanup(g.Destroy)

	gid := tv.AddGroup(name, g.PublicKey())
	for _, m := range members {
		tv.addMember(gid, g, m)
	}
	return gid, g
}

func (tv *testVault) addMember(gid int64, g *GroupKey, m *Identity) {
	tv.t.Helper()
	wrapped, err := WrapGroupKey(g, m.PublicKey())
	if err != nil {
		tv.t.Fatalf("WrapGroupKey() error = %v", err)
	}
	tv.SetMember(gid, m.Username(), wrapped, true)
}

// service stores secret under a fresh session key sealed to each group.
func (tv *testVault) service(url string, parent int64, secret string, groups map[int64]*GroupKey) int64 {
	tv.t.Helper()
	s, err := NewSessionKey()
	if err != nil {
		tv.t.Fatalf("NewSessionKey() error = %v", err)
	}
	defer s.Destroy()

	ct, err := EncryptSecret(s, []byte(secret))
	if err != nil {
		tv.t.Fatalf("EncryptSecret() error = %v", err)
	}
	keys := make(map[int64][]byte, len(groups))
	for gid, g := range groups {
		keys[gid], err = WrapSessionKey(s, g.PublicKey())
		if err != nil {
			tv.t.Fatalf("WrapSessionKey() error = %v", err)
		}
	}
	return tv.AddService(fakevault.Service{
		MachineID:       tv.machine,
		ParentServiceID: parent,
		URL:             url,
		Secret:          ct,
		Keys:            keys,
	})
}

// client returns a client for id with retries disabled.
func (tv *testVault) client(id *Identity, opts ...Option) *Client {
	tv.t.Helper()
	opts = append([]Option{
		WithURL(tv.URL()),
		WithIdentity(id),
		WithKDFParams(testKDF),
		WithRetries(-1),
	}, opts...)
	c, err := New(opts...)
	if err != nil {
		tv.t.Fatalf("New() error = %v", err)
	}
	tv.t.Cleanup(func() { c.Close() })
	return c
}

func serviceSeed(tv *testVault, url string, secret []byte, gid int64, cryptSymKey []byte) fakevault.Service {
	return fakevault.Service{
		MachineID: tv.machine,
		URL:       url,
		Secret:    secret,
		Keys:      map[int64][]byte{gid: cryptSymKey},
	}
}
