package main

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/fatih/color"
	"github.com/sflvault/client-go"
	"github.com/sflvault/client-go/internal/crypto"
	"github.com/spf13/cobra"
)

var errPassphraseMismatch = errors.New("passphrases do not match")

func newUserSetupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "user-setup <username> <url>",
		Short: "Create your key pair and register it with the vault",
		Long: `Completes an account an administrator created with "user add".

A new key pair is generated locally. The public key is sent to the vault
and the private key is saved to the config file, locked by the passphrase
you choose.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, url := args[0], args[1]
			a.log.Infof("Setting up %s on %s", username, url)

			pass, err := readNewPassphrase(cmd.Context(), a.passphrase())
			if err != nil {
				return err
			}

			c, err := a.newClient(sflvault.WithURL(url))
			if err != nil {
				crypto.Zero(pass)
				return err
			}
			defer c.Close()

			if err := c.UserSetup(cmd.Context(), username, pass); err != nil {
				return err
			}
			a.printf("%s User %s is ready\n", color.GreenString("✓"), color.YellowString(username))
			return nil
		},
	}
}

// readNewPassphrase asks twice and returns the passphrase when both
// answers agree.
func readNewPassphrase(ctx context.Context, src sflvault.PassphraseSource) ([]byte, error) {
	first, err := src.Passphrase(ctx, "Enter a passphrase for your private key: ")
	if err != nil {
		return nil, err
	}
	second, err := src.Passphrase(ctx, "Repeat the passphrase: ")
	if err != nil {
		crypto.Zero(first)
		return nil, err
	}
	defer crypto.Zero(second)
	if subtle.ConstantTimeCompare(first, second) != 1 {
		crypto.Zero(first)
		return nil, errPassphraseMismatch
	}
	return first, nil
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check that your identity can authenticate to the vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				if err := c.Login(ctx); err != nil {
					return err
				}
				a.printf("%s Authenticated as %s\n", color.GreenString("✓"), color.YellowString(c.Identity().Username()))
				return nil
			})
		},
	}
}
