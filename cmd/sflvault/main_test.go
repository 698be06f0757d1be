package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/sflvault/client-go"
	"github.com/sflvault/client-go/internal/fakevault"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Stdout != os.Stdout {
		t.Error("DefaultConfig().Stdout should be os.Stdout")
	}
	if cfg.Stderr != os.Stderr {
		t.Error("DefaultConfig().Stderr should be os.Stderr")
	}
	if cfg.Passphrase != nil {
		t.Error("DefaultConfig().Passphrase should be nil")
	}
}

// cli runs commands against one config file and vault.
type cli struct {
	t          *testing.T
	configPath string
	passphrase string
	// promptErr, when set, is returned by every passphrase prompt.
	promptErr error
	vault     *fakevault.Vault
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	v := fakevault.New()
	t.Cleanup(v.Close)
	return &cli{
		t:          t,
		configPath: filepath.Join(t.TempDir(), "config.toml"),
		passphrase: "p@ss1",
		vault:      v,
	}
}

func (c *cli) config(stdout, stderr *bytes.Buffer) Config {
	return Config{
		Stdout: stdout,
		Stderr: stderr,
		Passphrase: sflvault.PassphraseFunc(func(ctx context.Context, prompt string) ([]byte, error) {
			if c.promptErr != nil {
				return nil, c.promptErr
			}
			if strings.Contains(prompt, "password") {
				return []byte("hunter2"), nil
			}
			return []byte(c.passphrase), nil
		}),
		Options: []sflvault.Option{
			sflvault.WithKDFParams(sflvault.KDFParams{Time: 1, Memory: 1024, Threads: 1}),
			sflvault.WithRetries(-1),
		},
	}
}

// run executes args and returns the exit code with both streams.
func (c *cli) run(args ...string) (int, string, string) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	args = append([]string{"--config", c.configPath}, args...)
	code := run(c.t.Context(), args, c.config(&stdout, &stderr))
	return code, stdout.String(), stderr.String()
}

// mustRun fails the test on a non-zero exit and returns stdout.
func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	code, stdout, stderr := c.run(args...)
	if code != 0 {
		c.t.Fatalf("sflvault %s: exit %d\nstdout: %s\nstderr: %s", strings.Join(args, " "), code, stdout, stderr)
	}
	return stdout
}

var refPattern = regexp.MustCompile(`[a-z]#\d+`)

// ref returns the last entity reference printed in out.
func ref(t *testing.T, out string) string {
	t.Helper()
	refs := refPattern.FindAllString(out, -1)
	if len(refs) == 0 {
		t.Fatalf("no entity reference in %q", out)
	}
	return refs[len(refs)-1]
}

func TestRun_EndToEnd(t *testing.T) {
	c := newCLI(t)
	c.vault.AddUser("alice", nil, true)

	out := c.mustRun("user-setup", "alice", c.vault.URL())
	if !strings.Contains(out, "User alice is ready") {
		t.Errorf("user-setup output = %q", out)
	}
	if c.vault.UserPubKey("alice") == nil {
		t.Fatal("public key was not registered")
	}

	out = c.mustRun("login")
	if !strings.Contains(out, "Authenticated as alice") {
		t.Errorf("login output = %q", out)
	}

	customer := ref(t, c.mustRun("customer", "add", "acme"))
	machine := ref(t, c.mustRun("machine", "add", "--customer", customer, "--fqdn", "web1.acme.test", "web1"))
	group := ref(t, c.mustRun("group", "add", "ops"))
	parent := ref(t, c.mustRun("service", "add", "--machine", machine, "--group", group, "ssh://root@web1"))
	child := ref(t, c.mustRun("service", "add", "--machine", machine, "--parent", parent, "--group", group, "mysql://admin@localhost"))

	c.mustRun("alias", "set", "db", child)

	out = c.mustRun("show", "db")
	for _, want := range []string{child, "mysql://admin@localhost", "parent:  " + parent, "secret:  hunter2"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	out = c.mustRun("connect", "--show-secrets", child)
	want := "1. " + parent + " ssh://root@web1 hunter2\n2. " + child + " mysql://admin@localhost hunter2\n"
	if out != want {
		t.Errorf("connect output = %q, want %q", out, want)
	}

	out = c.mustRun("connect", child)
	if strings.Contains(out, "hunter2") {
		t.Errorf("connect printed secrets without --show-secrets: %q", out)
	}

	out = c.mustRun("search", "web1")
	for _, want := range []string{customer + " acme", machine + " web1", parent + " ssh://root@web1"} {
		if !strings.Contains(out, want) {
			t.Errorf("search output missing %q:\n%s", want, out)
		}
	}

	out = c.mustRun("group", "list")
	if !strings.Contains(out, group+" ops (admin)") {
		t.Errorf("group list output = %q", out)
	}
}

func TestRun_WrongPassphrase(t *testing.T) {
	c := newCLI(t)
	c.vault.AddUser("alice", nil, false)
	c.mustRun("user-setup", "alice", c.vault.URL())

	c.passphrase = "wrong"
	code, _, stderr := c.run("login")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "[error] ") {
		t.Errorf("stderr = %q, want an [error] line", stderr)
	}
	if n := c.vault.CallCount("login"); n != 0 {
		t.Errorf("login calls = %d, want 0", n)
	}
}

func TestRun_ServiceDelReportsDependents(t *testing.T) {
	c := newCLI(t)
	c.vault.AddUser("alice", nil, true)
	c.mustRun("user-setup", "alice", c.vault.URL())

	customer := ref(t, c.mustRun("customer", "add", "acme"))
	machine := ref(t, c.mustRun("machine", "add", "--customer", customer, "web1"))
	group := ref(t, c.mustRun("group", "add", "ops"))
	parent := ref(t, c.mustRun("service", "add", "--machine", machine, "--group", group, "ssh://root@web1"))
	child := ref(t, c.mustRun("service", "add", "--machine", machine, "--parent", parent, "--group", group, "mysql://localhost"))

	code, _, stderr := c.run("service", "del", parent)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, child+" mysql://localhost") {
		t.Errorf("stderr = %q, want dependent %s listed", stderr, child)
	}
}

func TestRun_Alias(t *testing.T) {
	c := newCLI(t)

	c.mustRun("alias", "set", "web", "s#12")
	c.mustRun("alias", "set", "box", "m#3")

	if out := c.mustRun("alias", "get", "web"); out != "s#12\n" {
		t.Errorf("alias get = %q, want %q", out, "s#12\n")
	}
	if out := c.mustRun("alias", "list"); out != "box\tm#3\nweb\ts#12\n" {
		t.Errorf("alias list = %q", out)
	}

	c.mustRun("alias", "del", "web")
	if code, _, _ := c.run("alias", "get", "web"); code != 1 {
		t.Errorf("alias get after del: exit %d, want 1", code)
	}

	_, _, stderr := c.run("alias", "del", "web")
	if !strings.Contains(stderr, "[warn] ") {
		t.Errorf("deleting a missing alias should warn, stderr = %q", stderr)
	}

	code, _, stderr := c.run("alias", "set", "bad", "service12")
	if code != 1 || !strings.Contains(stderr, "[error] ") {
		t.Errorf("invalid target: exit %d, stderr %q", code, stderr)
	}
}

func TestRun_ShowDeniedParent(t *testing.T) {
	c := newCLI(t)
	c.vault.AddUser("alice", nil, true)
	c.mustRun("user-setup", "alice", c.vault.URL())

	customer := ref(t, c.mustRun("customer", "add", "acme"))
	machine := ref(t, c.mustRun("machine", "add", "--customer", customer, "web1"))
	group := ref(t, c.mustRun("group", "add", "ops"))
	gw := c.vault.AddService(fakevault.Service{URL: "ssh://gw.acme.test", Secret: []byte("sealed")})
	gwRef := sflvault.FormatVaultID(sflvault.KindService, gw)
	child := ref(t, c.mustRun("service", "add", "--machine", machine, "--parent", gwRef, "--group", group, "ssh://root@web1"))

	out := c.mustRun("show", child)
	want := gwRef + " ssh://gw.acme.test\n  secret:  [access denied]\n" +
		child + " ssh://root@web1\n  parent:  " + gwRef + "\n  secret:  hunter2\n"
	if out != want {
		t.Errorf("show output = %q, want %q", out, want)
	}
}

func TestRun_NoIdentity(t *testing.T) {
	c := newCLI(t)
	code, _, stderr := c.run("--url", c.vault.URL(), "login")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "[error] ") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRun_InterruptedPrompt(t *testing.T) {
	c := newCLI(t)
	c.vault.AddUser("alice", nil, true)
	c.mustRun("user-setup", "alice", c.vault.URL())

	c.promptErr = sflvault.ErrPromptInterrupted
	code, _, stderr := c.run("login")
	if code != 130 {
		t.Fatalf("exit code = %d, want 130", code)
	}
	if !strings.HasPrefix(stderr, "[aborted] ") {
		t.Errorf("stderr = %q, want [aborted] prefix", stderr)
	}
	if strings.Contains(stderr, "[error]") {
		t.Errorf("interrupted prompt reported as an error: %q", stderr)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	c := newCLI(t)
	c.vault.AddUser("alice", nil, true)
	c.mustRun("user-setup", "alice", c.vault.URL())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	var stdout, stderr bytes.Buffer
	code := run(ctx, []string{"--config", c.configPath, "login"}, c.config(&stdout, &stderr))
	if code != 130 {
		t.Fatalf("exit code = %d, want 130\nstderr: %s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "[aborted] ") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestReadNewPassphrase(t *testing.T) {
	answers := [][]byte{[]byte("one"), []byte("two")}
	src := sflvault.PassphraseFunc(func(ctx context.Context, prompt string) ([]byte, error) {
		a := answers[0]
		answers = answers[1:]
		return a, nil
	})
	if _, err := readNewPassphrase(t.Context(), src); err != errPassphraseMismatch {
		t.Errorf("readNewPassphrase() error = %v, want %v", err, errPassphraseMismatch)
	}

	got, err := readNewPassphrase(t.Context(), sflvault.StaticPassphrase("same"))
	if err != nil {
		t.Fatalf("readNewPassphrase() error = %v", err)
	}
	if string(got) != "same" {
		t.Errorf("readNewPassphrase() = %q, want %q", got, "same")
	}
}

func TestLogger(t *testing.T) {
	var out, errOut bytes.Buffer
	l := logger{out: &out, err: &errOut}

	l.Infof("hidden")
	l.Debugf("hidden")
	if out.Len() != 0 {
		t.Errorf("quiet logger wrote %q", out.String())
	}

	l.verbose = true
	l.Infof("hello %s", "world")
	if out.String() != "[info] hello world\n" {
		t.Errorf("Infof wrote %q", out.String())
	}

	l.Warnf("careful")
	l.Errorf("broken")
	l.Abortedf("stopped")
	if errOut.String() != "[warn] careful\n[error] broken\n[aborted] stopped\n" {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestSortedKeys(t *testing.T) {
	got := sortedKeys(map[string]int{"10": 0, "9": 0, "100": 0, "2": 0})
	want := []string{"2", "9", "10", "100"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("sortedKeys() = %v, want %v", got, want)
	}
}
