package sflvault

import (
	"context"
	"errors"

	"github.com/sflvault/client-go/internal/api"
	"github.com/sflvault/client-go/internal/crypto"
)

// UserSetup completes the account an admin created with UserAdd: it
// generates a keypair, registers the public key with the vault, and saves
// the locked private key to the identity store. The passphrase buffer is
// zeroed.
//
// Nothing is saved when the vault refuses the registration.
func (c *Client) UserSetup(ctx context.Context, username string, passphrase []byte) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		crypto.Zero(passphrase)
		return ErrClientClosed
	}

	id, err := GenerateIdentity(username, passphrase, c.idOpts...)
	if err != nil {
		return err
	}

	c.logger.Info("registering public key", "username", username)
	if _, err := c.api.UserSetup(ctx, username, crypto.ToBase64(id.PublicKey())); err != nil {
		var vaultErr *api.VaultError
		if errors.As(err, &vaultErr) {
			return &AuthenticationError{Username: username, Message: vaultErr.Message, Err: err}
		}
		return wrapError("user_setup", err)
	}

	if c.store != nil {
		err := c.store.SaveIdentity(&StoredIdentity{
			Username:  username,
			URL:       c.url,
			LockedKey: id.LockedKey(),
		})
		if err != nil {
			return err
		}
	}

	c.setIdentity(id)
	return nil
}
