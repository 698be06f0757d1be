package sflvault

import (
	"context"
	"errors"

	"github.com/sflvault/client-go/internal/api"
	"github.com/sflvault/client-go/internal/crypto"
)

// Login authenticates now instead of on the first protected call.
func (c *Client) Login(ctx context.Context) error {
	return c.protected(ctx, "login", false, func(ctx context.Context, token string, key *IdentityKey) error {
		return nil
	})
}

// Logout discards the session token and any cached identity key.
func (c *Client) Logout() {
	identity, session := c.current()
	session.clear()
	identity.Forget()
}

// ensureToken returns a valid token, running the challenge-response
// exchange with key if needed. Concurrent callers wait for one login.
func (c *Client) ensureToken(ctx context.Context, s *Session, key *IdentityKey) (string, error) {
	if token, ok := s.validToken(); ok {
		return token, nil
	}

	s.login.Lock()
	defer s.login.Unlock()

	// Another caller may have logged in while we waited.
	if token, ok := s.validToken(); ok {
		return token, nil
	}

	token, err := c.authenticate(ctx, s, key)
	if err != nil {
		switch {
		case errors.Is(err, ErrAuthentication):
			s.setState(StateRejected)
		case errors.Is(err, ErrAborted), errors.Is(err, ErrDecrypt):
			s.setState(StateAborted)
		default:
			s.setState(StateUnauthenticated)
		}
		return "", err
	}
	s.store(token)
	c.logger.Info("authenticated", "username", s.username)
	return token, nil
}

// authenticate proves possession of key's private half:
//
//  1. login(username) → challenge sealed to the user's public key
//  2. open the challenge with the private key
//  3. authenticate(username, base64(challenge)) → session token
func (c *Client) authenticate(ctx context.Context, s *Session, key *IdentityKey) (string, error) {
	username := s.username

	s.setState(StateUnauthenticated)
	reply, err := c.api.Login(ctx, username)
	if err != nil {
		return "", authWrap(username, "login", err)
	}
	s.setState(StateChallengeIssued)

	sealed, err := crypto.DecodeBase64(reply.CryptToken)
	if err == nil && len(sealed) == 0 {
		err = ErrMissingCiphertext
	}
	if err != nil {
		return "", &DecryptError{Stage: StageChallenge, Err: err}
	}

	challenge, err := key.kp.Open(crypto.LabelChallenge, sealed)
	if err != nil {
		c.logger.Warn("challenge decryption failed", "username", username, "err", err)
		return "", &DecryptError{Stage: StageChallenge, Err: err}
	}
	answer := crypto.ToBase64(challenge)
	crypto.Zero(challenge)

	auth, err := c.api.Authenticate(ctx, username, answer)
	if err != nil {
		return "", authWrap(username, "authenticate", err)
	}
	if auth.AuthToken == "" {
		return "", &AuthenticationError{Username: username, Message: "vault returned no session token"}
	}
	return auth.AuthToken, nil
}

// authWrap turns a vault refusal during login into an AuthenticationError
// and leaves transport failures as they are.
func authWrap(username, op string, err error) error {
	var vaultErr *api.VaultError
	if errors.As(err, &vaultErr) {
		return &AuthenticationError{Username: username, Message: vaultErr.Message, Err: err}
	}
	if errors.Is(err, api.ErrUnauthorized) {
		return &AuthenticationError{Username: username, Message: "unauthorized", Err: err}
	}
	return wrapError(op, err)
}
