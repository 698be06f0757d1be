package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sflvault/client-go"
	"github.com/spf13/cobra"
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	cfg Config
	log logger

	configPath string
	url        string
	keyCache   time.Duration
	verbose    bool
	debug      bool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "sflvault",
		Short: "Client for the SFLvault secrets vault",
		Long: `sflvault reads and manages credentials stored in an SFLvault vault.

Secrets never leave this machine in plaintext. Your private key is kept
locked by a passphrase in the config file and is only unlocked for the
duration of a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.log.verbose = a.verbose
			a.log.debug = a.debug
			a.log.Debugf("Running %q with verbose=%t, debug=%t", cmd.CommandPath(), a.verbose, a.debug)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default $SFLVAULT_CONFIG or ~/.sflvault/config.toml)")
	flags.StringVar(&a.url, "url", "", "vault URL, overriding the one in the config file")
	flags.DurationVar(&a.keyCache, "key-cache", 0, "keep the unlocked key in memory for this long")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVarP(&a.debug, "debug", "d", false, "enable debug output")

	root.AddCommand(
		newUserSetupCmd(a),
		newLoginCmd(a),
		newShowCmd(a),
		newConnectCmd(a),
		newServiceCmd(a),
		newGroupCmd(a),
		newCustomerCmd(a),
		newMachineCmd(a),
		newUserCmd(a),
		newSearchCmd(a),
		newAliasCmd(a),
	)
	return root
}

func (a *app) store() (*sflvault.FileStore, error) {
	if a.configPath != "" {
		return sflvault.NewFileStore(a.configPath), nil
	}
	return sflvault.DefaultFileStore()
}

func (a *app) passphrase() sflvault.PassphraseSource {
	if a.cfg.Passphrase != nil {
		return a.cfg.Passphrase
	}
	return sflvault.DefaultPassphraseSource()
}

func (a *app) newClient(extra ...sflvault.Option) (*sflvault.Client, error) {
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	opts := []sflvault.Option{
		sflvault.WithIdentityStore(store),
		sflvault.WithPassphraseSource(a.passphrase()),
		sflvault.WithLogger(a.log.slog()),
		sflvault.WithKeyCache(a.keyCache),
	}
	if a.url != "" {
		opts = append(opts, sflvault.WithURL(a.url))
	}
	opts = append(opts, a.cfg.Options...)
	opts = append(opts, extra...)
	return sflvault.New(opts...)
}

// withClient builds a client for the duration of fn.
func (a *app) withClient(ctx context.Context, fn func(context.Context, *sflvault.Client) error) error {
	c, err := a.newClient()
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.cfg.Stdout, format, args...)
}

// resolveAll resolves each reference in refs as an id of kind.
func resolveAll(c *sflvault.Client, refs []string, kind sflvault.Kind) ([]int64, error) {
	ids := make([]int64, 0, len(refs))
	for _, r := range refs {
		id, err := c.ResolveID(r, kind)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
