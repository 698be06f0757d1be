package sflvault

import (
	"github.com/sflvault/client-go/internal/config"
	"github.com/sflvault/client-go/internal/crypto"
)

// StoredIdentity is what an IdentityStore persists.
type StoredIdentity struct {
	Username  string
	URL       string
	LockedKey []byte
}

// IdentityStore persists the local identity.
type IdentityStore interface {
	// LoadIdentity returns the stored identity. A store with nothing in it
	// returns a zero StoredIdentity and no error.
	LoadIdentity() (*StoredIdentity, error)
	SaveIdentity(*StoredIdentity) error
}

// AliasResolver maps a short name to an entity reference such as "s#12".
type AliasResolver interface {
	ResolveAlias(name string) (target string, ok bool, err error)
}

// FileStore is the TOML config file store. It implements IdentityStore
// and AliasResolver.
type FileStore struct {
	cfg *config.Store
}

// Alias is one alias entry.
type Alias = config.Alias

// NewFileStore opens the config file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{cfg: config.Open(path)}
}

// DefaultFileStore opens $SFLVAULT_CONFIG, or ~/.sflvault/config.toml.
func DefaultFileStore() (*FileStore, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return nil, &ConfigurationError{Message: "cannot locate config file", Err: err}
	}
	return NewFileStore(path), nil
}

// Path returns the config file location.
func (s *FileStore) Path() string {
	return s.cfg.Path()
}

// LoadIdentity implements IdentityStore.
func (s *FileStore) LoadIdentity() (*StoredIdentity, error) {
	f, err := s.cfg.Load()
	if err != nil {
		return nil, &ConfigurationError{Message: "cannot read config", Err: err}
	}

	id := &StoredIdentity{Username: f.Vault.Username, URL: f.Vault.URL}
	if f.Vault.Key != "" {
		id.LockedKey, err = crypto.DecodeBase64(f.Vault.Key)
		if err != nil {
			return nil, &ConfigurationError{Message: "stored private key is not valid base64", Err: err}
		}
	}
	return id, nil
}

// SaveIdentity implements IdentityStore. Aliases are preserved.
func (s *FileStore) SaveIdentity(id *StoredIdentity) error {
	err := s.cfg.Update(func(f *config.File) error {
		f.Vault.Username = id.Username
		f.Vault.URL = id.URL
		f.Vault.Key = crypto.ToBase64(id.LockedKey)
		return nil
	})
	if err != nil {
		return &ConfigurationError{Message: "cannot write config", Err: err}
	}
	return nil
}

// ResolveAlias implements AliasResolver.
func (s *FileStore) ResolveAlias(name string) (string, bool, error) {
	return s.cfg.Alias(name)
}

// SetAlias records name → target. target must look like "s#12".
func (s *FileStore) SetAlias(name, target string) error {
	if err := s.cfg.SetAlias(name, target); err != nil {
		return &VaultIDError{Input: target, Kind: KindAny, Message: err.Error()}
	}
	return nil
}

// DelAlias removes an alias and reports whether it existed.
func (s *FileStore) DelAlias(name string) (bool, error) {
	return s.cfg.DelAlias(name)
}

// Aliases lists all aliases sorted by name.
func (s *FileStore) Aliases() ([]Alias, error) {
	return s.cfg.Aliases()
}
