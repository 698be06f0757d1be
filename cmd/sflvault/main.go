// Command sflvault is a command-line client for an SFLvault vault.
//
// Usage:
//
//	sflvault user-setup <username> <url>
//	sflvault show <service>
//	sflvault connect <service>
//	sflvault service add --machine m#3 --group g#1 ssh://root@web1
//	sflvault alias set web s#12
//
// Passphrases are read from the terminal, or from the program named by
// SFLVAULT_ASKPASS. The config file defaults to ~/.sflvault/config.toml
// and can be moved with SFLVAULT_CONFIG or --config.
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"

	"github.com/awnumar/memguard"
	"github.com/sflvault/client-go"
)

// Config holds the command's I/O and test hooks.
type Config struct {
	Stdout io.Writer
	Stderr io.Writer
	// Passphrase replaces the default passphrase source when set.
	Passphrase sflvault.PassphraseSource
	// Options are appended to every client a command builds.
	Options []sflvault.Option
}

// DefaultConfig returns a Config using the process streams.
func DefaultConfig() Config {
	return Config{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], DefaultConfig())
	stop()
	memguard.SafeExit(code)
}

// run executes one command line and returns the exit code. Cancelling ctx
// interrupts any open prompt or request; the command then reports
// [aborted] and exits with code 130.
func run(ctx context.Context, args []string, cfg Config) int {
	a := &app{cfg: cfg}
	a.log = logger{out: cfg.Stdout, err: cfg.Stderr}

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(cfg.Stdout)
	root.SetErr(cfg.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, sflvault.ErrAborted) {
			a.log.Abortedf("%v", err)
			return 130
		}
		a.log.Errorf("%v", err)
		return 1
	}
	return 0
}
