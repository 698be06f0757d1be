package sflvault

import (
	"fmt"
	"regexp"
	"strconv"
)

// Kind is the one-letter prefix of an entity reference.
type Kind byte

// Entity kinds.
const (
	KindAny      Kind = 0
	KindService  Kind = 's'
	KindMachine  Kind = 'm'
	KindCustomer Kind = 'c'
	KindGroup    Kind = 'g'
	KindUser     Kind = 'u'
)

func (k Kind) String() string {
	switch k {
	case KindService:
		return "service"
	case KindMachine:
		return "machine"
	case KindCustomer:
		return "customer"
	case KindGroup:
		return "group"
	case KindUser:
		return "user"
	case KindAny:
		return "entity"
	}
	return fmt.Sprintf("kind(%c)", byte(k))
}

var vaultIDPattern = regexp.MustCompile(`^(.)#(\d+)$`)

// ParseVaultID parses "s#12" or a bare "12" as an id of the given kind.
// A prefix naming another kind is an error. KindAny accepts every prefix
// but rejects bare numbers.
func ParseVaultID(s string, kind Kind) (int64, error) {
	if m := vaultIDPattern.FindStringSubmatch(s); m != nil {
		if kind != KindAny && Kind(m[1][0]) != kind {
			return 0, &VaultIDError{Input: s, Kind: kind, Message: fmt.Sprintf("expected %c#<id>", byte(kind))}
		}
		id, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return 0, &VaultIDError{Input: s, Kind: kind, Message: "id out of range"}
		}
		return id, nil
	}

	if kind != KindAny {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil && id >= 0 {
			return id, nil
		}
	}
	return 0, &VaultIDError{Input: s, Kind: kind, Message: "expected <kind>#<id>"}
}

// FormatVaultID renders an id as "s#12".
func FormatVaultID(kind Kind, id int64) string {
	return fmt.Sprintf("%c#%d", byte(kind), id)
}

// ResolveVaultID is ParseVaultID with alias lookup first.
func ResolveVaultID(aliases AliasResolver, s string, kind Kind) (int64, error) {
	if aliases != nil {
		target, ok, err := aliases.ResolveAlias(s)
		if err != nil {
			return 0, &ConfigurationError{Message: "cannot read aliases", Err: err}
		}
		if ok {
			s = target
		}
	}
	return ParseVaultID(s, kind)
}

// ResolveID resolves s against the client's alias store, if any, and
// parses it as kind.
func (c *Client) ResolveID(s string, kind Kind) (int64, error) {
	return ResolveVaultID(c.aliases, s, kind)
}
