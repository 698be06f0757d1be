package sflvault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/sflvault/client-go/internal/config"
	"github.com/sflvault/client-go/internal/crypto"
	"golang.org/x/term"
)

// ErrPromptInterrupted is returned by a PassphraseSource when the user
// cancels the prompt.
var ErrPromptInterrupted = errors.New("passphrase prompt interrupted")

// PassphraseSource supplies the passphrase that unlocks an identity. The
// caller zeroes the returned buffer after use.
type PassphraseSource interface {
	Passphrase(ctx context.Context, prompt string) ([]byte, error)
}

// PassphraseFunc adapts a function to a PassphraseSource.
type PassphraseFunc func(ctx context.Context, prompt string) ([]byte, error)

// Passphrase implements PassphraseSource.
func (f PassphraseFunc) Passphrase(ctx context.Context, prompt string) ([]byte, error) {
	return f(ctx, prompt)
}

// StaticPassphrase always returns a copy of the same passphrase. It is
// meant for tests and non-interactive automation.
type StaticPassphrase []byte

// Passphrase implements PassphraseSource.
func (s StaticPassphrase) Passphrase(ctx context.Context, prompt string) ([]byte, error) {
	return append([]byte(nil), s...), nil
}

// AskPassProgram runs an external program and uses its standard output,
// without the trailing newline, as the passphrase. The prompt is passed as
// the only argument, like ssh's SSH_ASKPASS.
type AskPassProgram string

// Passphrase implements PassphraseSource.
func (p AskPassProgram) Passphrase(ctx context.Context, prompt string) ([]byte, error) {
	var stdout bytes.Buffer
	defer zeroBuffer(&stdout)
	cmd := exec.CommandContext(ctx, string(p), prompt)
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("askpass program %s: %w", p, err)
	}

	out := bytes.TrimRight(stdout.Bytes(), "\r\n")
	return append([]byte(nil), out...), nil
}

// TerminalPrompt reads the passphrase from the controlling terminal with
// echo disabled.
type TerminalPrompt struct {
	// Out receives the prompt. Defaults to os.Stderr.
	Out io.Writer
}

// Passphrase implements PassphraseSource. Cancelling ctx restores the
// terminal mode and returns ErrPromptInterrupted. The abandoned reader
// goroutine stays blocked on stdin until the next line of input, which it
// discards.
func (t TerminalPrompt) Passphrase(ctx context.Context, prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("cannot read passphrase: stdin is not a terminal")
	}
	state, err := term.GetState(fd)
	if err != nil {
		return nil, fmt.Errorf("cannot read passphrase: %w", err)
	}

	out := t.Out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprint(out, prompt)

	type result struct {
		pass []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		pass, err := term.ReadPassword(fd)
		if ctx.Err() != nil {
			crypto.Zero(pass)
		}
		done <- result{pass, err}
	}()

	select {
	case <-ctx.Done():
		_ = term.Restore(fd, state)
		fmt.Fprintln(out)
		return nil, fmt.Errorf("%w: %v", ErrPromptInterrupted, ctx.Err())
	case r := <-done:
		fmt.Fprintln(out) // newline after hidden input
		if ctx.Err() != nil {
			crypto.Zero(r.pass)
			return nil, fmt.Errorf("%w: %v", ErrPromptInterrupted, ctx.Err())
		}
		if r.err != nil {
			return nil, fmt.Errorf("failed to read passphrase: %w", r.err)
		}
		return r.pass, nil
	}
}

// DefaultPassphraseSource returns AskPassProgram($SFLVAULT_ASKPASS) when the
// variable is set, and a TerminalPrompt otherwise.
func DefaultPassphraseSource() PassphraseSource {
	if prog := strings.TrimSpace(os.Getenv(config.EnvAskPass)); prog != "" {
		return AskPassProgram(prog)
	}
	return TerminalPrompt{}
}

func zeroBuffer(b *bytes.Buffer) {
	buf := b.Bytes()
	buf = buf[:cap(buf)]
	for i := range buf {
		buf[i] = 0
	}
}
