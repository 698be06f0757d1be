package sflvault

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sflvault/client-go/internal/api"
	"github.com/sflvault/client-go/internal/crypto"
)

// Service is a service with its secret decrypted when the caller has
// access. When Denied is set, Secret is nil and DeniedReason says why.
type Service struct {
	ID              int64
	MachineID       int64
	ParentServiceID int64
	GroupID         int64
	URL             string
	Notes           string
	Secret          []byte

	Denied       bool
	DeniedReason string
}

// ServiceData holds the editable fields of a service.
type ServiceData = api.ServiceData

// NewService describes a service to create. Secret is encrypted locally;
// the vault only sees ciphertext.
type NewService struct {
	MachineID       int64
	ParentServiceID int64
	URL             string
	Notes           string
	GroupIDs        []int64
	Secret          []byte
}

// ciphertextsOf decodes the wire ciphertexts of a service. A field that
// fails to decode is reported at the stage that would consume it.
func ciphertextsOf(s *api.Service) (Ciphertexts, error) {
	var c Ciphertexts
	var err error
	if c.CryptGroupKey, err = decodeField(s.CryptGroupKey); err != nil {
		return c, &DecryptError{Stage: StageGroupKey, Err: err}
	}
	if c.CryptSymKey, err = decodeField(s.CryptSymKey); err != nil {
		return c, &DecryptError{Stage: StageSessionKey, Err: err}
	}
	if c.Secret, err = decodeField(s.Secret); err != nil {
		return c, &DecryptError{Stage: StageSecret, Err: err}
	}
	return c, nil
}

func decodeField(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := crypto.DecodeBase64(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", crypto.ErrInvalidPayload, err)
	}
	return b, nil
}

func serviceFromAPI(s *api.Service) Service {
	return Service{
		ID:              s.ID,
		MachineID:       s.MachineID,
		ParentServiceID: s.ParentServiceID,
		GroupID:         s.GroupID,
		URL:             s.URL,
		Notes:           s.Notes,
	}
}

// decryptService fills in Secret, or marks the service denied. It never
// fails: every chain error becomes a denial.
func decryptService(key *IdentityKey, s *api.Service) Service {
	out := serviceFromAPI(s)

	c, err := ciphertextsOf(s)
	if err == nil {
		out.Secret, err = UnwrapSecret(key, c)
	}
	if err != nil {
		out.Denied = true
		out.DeniedReason = deniedReason(err)
	}
	return out
}

func deniedReason(err error) string {
	if errors.Is(err, ErrMissingCiphertext) {
		return "access denied"
	}
	return err.Error()
}

// ServiceGet fetches a service and decrypts its secret. A service the
// caller has no fan-out entry for is returned with Denied set; a fan-out
// entry that fails to decrypt is a *DecryptError.
func (c *Client) ServiceGet(ctx context.Context, id int64) (*Service, error) {
	var out *Service
	err := c.protected(ctx, "service_get", true, func(ctx context.Context, token string, key *IdentityKey) error {
		reply, err := c.api.ServiceGet(ctx, token, id)
		if err != nil {
			return err
		}

		svc := serviceFromAPI(&reply.Service)
		if reply.Service.CryptGroupKey == "" || reply.Service.CryptSymKey == "" {
			svc.Denied = true
			svc.DeniedReason = "access denied"
			out = &svc
			return nil
		}

		ct, err := ciphertextsOf(&reply.Service)
		if err != nil {
			return err
		}
		svc.Secret, err = UnwrapSecret(key, ct)
		if err != nil {
			return err
		}
		out = &svc
		return nil
	})
	return out, err
}

// ServiceTree fetches a service and its parents, root first, and
// decrypts every secret it can. Items whose chain cannot be completed are
// returned with Denied set; they never fail the call.
func (c *Client) ServiceTree(ctx context.Context, id int64) ([]Service, error) {
	var out []Service
	err := c.protected(ctx, "service_get_tree", true, func(ctx context.Context, token string, key *IdentityKey) error {
		reply, err := c.api.ServiceGetTree(ctx, token, id)
		if err != nil {
			return err
		}
		out = c.decryptAll(key, reply.Services)
		return nil
	})
	return out, err
}

// decryptAll decrypts services concurrently. Results keep input order.
func (c *Client) decryptAll(key *IdentityKey, services []api.Service) []Service {
	out := make([]Service, len(services))

	var g errgroup.Group
	g.SetLimit(c.parallel)
	for i := range services {
		g.Go(func() error {
			out[i] = decryptService(key, &services[i])
			if out[i].Denied {
				c.logger.Debug("service secret unavailable",
					"service_id", out[i].ID, "reason", out[i].DeniedReason)
			}
			return nil
		})
	}
	_ = g.Wait() // workers never fail

	return out
}

// ServiceAdd creates a service. A fresh session key encrypts the secret
// and is sealed to the public key of every group in GroupIDs.
func (c *Client) ServiceAdd(ctx context.Context, svc NewService) (int64, error) {
	if len(svc.GroupIDs) == 0 {
		return 0, &VaultError{Operation: "service_add", Message: "at least one group is required"}
	}

	var serviceID int64
	err := c.protected(ctx, "service_add", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		session, err := NewSessionKey()
		if err != nil {
			return err
		}
		defer session.Destroy()

		keys := make([]api.ServiceGroupKey, 0, len(svc.GroupIDs))
		for _, gid := range svc.GroupIDs {
			wrapped, err := c.sealToGroup(ctx, token, gid, session)
			if err != nil {
				return err
			}
			keys = append(keys, api.ServiceGroupKey{GroupID: gid, CryptSymKey: crypto.ToBase64(wrapped)})
		}

		secret, err := EncryptSecret(session, svc.Secret)
		if err != nil {
			return err
		}

		data := api.ServiceData{
			MachineID:       svc.MachineID,
			ParentServiceID: svc.ParentServiceID,
			URL:             svc.URL,
			Notes:           svc.Notes,
		}
		reply, err := c.api.ServiceAdd(ctx, token, data, keys, crypto.ToBase64(secret))
		if err != nil {
			return err
		}
		serviceID = reply.ServiceID
		return nil
	})
	return serviceID, err
}

// sealToGroup fetches a group's public key and seals the session key to it.
func (c *Client) sealToGroup(ctx context.Context, token string, groupID int64, s *SessionKey) ([]byte, error) {
	reply, err := c.api.GroupGet(ctx, token, groupID)
	if err != nil {
		return nil, err
	}
	pub, err := crypto.DecodeBase64(reply.Group.PubKey)
	if err != nil || crypto.ValidatePublicKey(pub) != nil {
		return nil, &VaultError{Operation: "group_get", Message: fmt.Sprintf("g#%d has no usable public key", groupID)}
	}
	return WrapSessionKey(s, pub)
}

// ServicePut saves edited service fields.
func (c *Client) ServicePut(ctx context.Context, id int64, data ServiceData) error {
	return c.protected(ctx, "service_put", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		_, err := c.api.ServicePut(ctx, token, id, data)
		return err
	})
}

// ServiceDel deletes a service. When other services depend on it the
// vault refuses with a *VaultError listing them in Dependents.
func (c *Client) ServiceDel(ctx context.Context, id int64) error {
	return c.protected(ctx, "service_del", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		_, err := c.api.ServiceDel(ctx, token, id)
		return err
	})
}

// ServicePasswd replaces a service secret. The new secret is encrypted
// under the service's existing session key, recovered through the caller's
// own fan-out entry, so no group's wrapped key changes.
func (c *Client) ServicePasswd(ctx context.Context, id int64, secret []byte) error {
	return c.protected(ctx, "service_passwd", true, func(ctx context.Context, token string, key *IdentityKey) error {
		reply, err := c.api.ServiceGet(ctx, token, id)
		if err != nil {
			return err
		}
		ct, err := ciphertextsOf(&reply.Service)
		if err != nil {
			return err
		}

		session, err := unwrapSessionKey(key, ct)
		if err != nil {
			return err
		}
		defer session.Destroy()

		sealed, err := EncryptSecret(session, secret)
		if err != nil {
			return err
		}
		_, err = c.api.ServicePasswd(ctx, token, id, crypto.ToBase64(sealed))
		return err
	})
}
