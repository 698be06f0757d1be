package sflvault

import (
	"context"
	"fmt"

	"github.com/sflvault/client-go/internal/crypto"
)

// RewrapGroupKey recovers a group key from the caller's wrapped copy and
// seals it to another member's public key. The group key itself does not
// change: existing members' entries and all service keys stay valid.
func RewrapGroupKey(id *IdentityKey, wrapped, memberPubKey []byte) ([]byte, error) {
	g, err := UnwrapGroupKey(id, wrapped)
	if err != nil {
		return nil, err
	}
	defer g.Destroy()

	if err := crypto.ValidatePublicKey(memberPubKey); err != nil {
		return nil, &VaultError{Operation: "group_add_user", Message: fmt.Sprintf("member public key is unusable: %v", err)}
	}
	return WrapGroupKey(g, memberPubKey)
}

// GroupAddUser gives username access to a group. The vault first returns
// the caller's wrapped group key and the new member's public key; the
// group key is re-sealed for the new member and submitted in a second
// call.
func (c *Client) GroupAddUser(ctx context.Context, groupID int64, username string, isAdmin bool) error {
	return c.protected(ctx, "group_add_user", true, func(ctx context.Context, token string, key *IdentityKey) error {
		reply, err := c.api.GroupAddUser(ctx, token, groupID, username)
		if err != nil {
			return err
		}

		wrapped, err := decodeField(reply.CryptGroupKey)
		if err != nil {
			return &DecryptError{Stage: StageGroupKey, Err: err}
		}
		pub, err := decodeField(reply.UserPubKey)
		if err != nil || len(pub) == 0 {
			return &VaultError{Operation: "group_add_user", Message: fmt.Sprintf("%s has no usable public key", username)}
		}

		rewrapped, err := RewrapGroupKey(key, wrapped, pub)
		if err != nil {
			return err
		}

		_, err = c.api.GroupAddUserKey(ctx, token, groupID, username, isAdmin, crypto.ToBase64(rewrapped))
		if err == nil {
			c.logger.Info("group member added", "group_id", groupID, "member", username)
		}
		return err
	})
}

// GroupDelUser removes a member's wrapped group key. The group key is not
// rotated: a removed member who kept a copy of the group key can still
// decrypt session keys wrapped under it.
func (c *Client) GroupDelUser(ctx context.Context, groupID int64, username string) error {
	return c.protected(ctx, "group_del_user", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		_, err := c.api.GroupDelUser(ctx, token, groupID, username)
		return err
	})
}

// GroupAddService gives a group access to a service. The service's session
// key is recovered through the caller's own access and sealed to the
// group's public key. The service secret is never decrypted.
func (c *Client) GroupAddService(ctx context.Context, groupID, serviceID int64) error {
	return c.protected(ctx, "group_add_service", true, func(ctx context.Context, token string, key *IdentityKey) error {
		svc, err := c.api.ServiceGet(ctx, token, serviceID)
		if err != nil {
			return err
		}
		ct, err := ciphertextsOf(&svc.Service)
		if err != nil {
			return err
		}

		session, err := unwrapSessionKey(key, ct)
		if err != nil {
			return err
		}
		defer session.Destroy()

		wrapped, err := c.sealToGroup(ctx, token, groupID, session)
		if err != nil {
			return err
		}

		_, err = c.api.GroupAddService(ctx, token, groupID, serviceID, crypto.ToBase64(wrapped))
		return err
	})
}

// GroupDelService removes a group's wrapped session key for a service.
func (c *Client) GroupDelService(ctx context.Context, groupID, serviceID int64) error {
	return c.protected(ctx, "group_del_service", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		_, err := c.api.GroupDelService(ctx, token, groupID, serviceID)
		return err
	})
}

// GroupAdd creates a group. The keypair is generated locally and the
// private half is sealed to the creator, so the vault never holds a
// plaintext group key.
func (c *Client) GroupAdd(ctx context.Context, name string) (int64, error) {
	var groupID int64
	err := c.protected(ctx, "group_add", true, func(ctx context.Context, token string, key *IdentityKey) error {
		g, err := NewGroupKey()
		if err != nil {
			return err
		}
		defer g.Destroy()

		wrapped, err := WrapGroupKey(g, key.PublicKey())
		if err != nil {
			return err
		}

		reply, err := c.api.GroupAdd(ctx, token, name, crypto.ToBase64(g.PublicKey()), crypto.ToBase64(wrapped))
		if err != nil {
			return err
		}
		groupID = reply.GroupID
		return nil
	})
	return groupID, err
}
