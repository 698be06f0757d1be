// Package config persists the local sflvault configuration: the user's
// identity (username, vault URL, locked private key) and entity aliases.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
)

// Environment variables read by DefaultPath and the CLI.
const (
	EnvConfig  = "SFLVAULT_CONFIG"
	EnvAskPass = "SFLVAULT_ASKPASS"
)

// ErrInvalidAlias is returned when an alias target is not of the form
// <kind>#<id>.
var ErrInvalidAlias = errors.New("invalid alias target")

var aliasTarget = regexp.MustCompile(`^(.)#(\d+)$`)

// File is the on-disk layout.
type File struct {
	Vault   Vault             `toml:"sflvault"`
	Aliases map[string]string `toml:"aliases"`
}

// Vault holds the identity section.
type Vault struct {
	Username string `toml:"username"`
	URL      string `toml:"url"`
	// Key is the base64 locked private key.
	Key string `toml:"key"`
}

// Store reads and writes one config file. It is safe for concurrent use
// within a process.
type Store struct {
	path string
	mu   sync.Mutex
}

// DefaultPath returns $SFLVAULT_CONFIG or ~/.sflvault/config.toml.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".sflvault", "config.toml"), nil
}

// Open returns a Store for path. The file need not exist yet.
func Open(path string) *Store {
	return &Store{path: path}
}

// Path returns the file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the file. A missing file yields an empty configuration.
func (s *Store) Load() (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*File, error) {
	f := &File{Aliases: make(map[string]string)}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return f, nil
	}
	if err := loadTOML(s.path, f); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", s.path, err)
	}
	if f.Aliases == nil {
		f.Aliases = make(map[string]string)
	}
	return f, nil
}

// Update loads the file, applies fn and saves the result. Nothing is
// written when fn returns an error.
func (s *Store) Update(fn func(*File) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		return err
	}
	if err := saveTOML(s.path, f); err != nil {
		return fmt.Errorf("failed to save config %s: %w", s.path, err)
	}
	return nil
}

// ValidateAlias checks that target looks like "s#12".
func ValidateAlias(target string) error {
	if !aliasTarget.MatchString(target) {
		return fmt.Errorf("%w: %q (expected e.g. s#12)", ErrInvalidAlias, target)
	}
	return nil
}

// SetAlias records name → target.
func (s *Store) SetAlias(name, target string) error {
	if name == "" {
		return fmt.Errorf("alias name is empty")
	}
	if err := ValidateAlias(target); err != nil {
		return err
	}
	return s.Update(func(f *File) error {
		f.Aliases[name] = target
		return nil
	})
}

// DelAlias removes an alias. It reports whether the alias existed.
func (s *Store) DelAlias(name string) (bool, error) {
	var found bool
	err := s.Update(func(f *File) error {
		_, found = f.Aliases[name]
		delete(f.Aliases, name)
		return nil
	})
	return found, err
}

// Alias returns the target of name.
func (s *Store) Alias(name string) (string, bool, error) {
	f, err := s.Load()
	if err != nil {
		return "", false, err
	}
	target, ok := f.Aliases[name]
	return target, ok, nil
}

// Alias is one name/target pair.
type Alias struct {
	Name   string
	Target string
}

// Aliases lists all aliases sorted by name.
func (s *Store) Aliases() ([]Alias, error) {
	f, err := s.Load()
	if err != nil {
		return nil, err
	}
	out := make([]Alias, 0, len(f.Aliases))
	for name, target := range f.Aliases {
		out = append(out, Alias{Name: name, Target: target})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
