package cli_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calvinalkan/threadbench/internal/cli"
)

// CLI runs threadbench commands inside a temp directory.
type CLI struct {
	t   *testing.T
	Dir string
	Env map[string]string
}

// NewCLI creates a test CLI with a temp directory and a minimal environment.
func NewCLI(t *testing.T) *CLI {
	t.Helper()

	dir := t.TempDir()

	return &CLI{
		t:   t,
		Dir: dir,
		Env: map[string]string{
			"PATH":            os.Getenv("PATH"),
			"HOME":            dir,
			"XDG_CONFIG_HOME": filepath.Join(dir, ".config"),
		},
	}
}

// Run executes the CLI with no stdin and returns stdout, stderr, and exit code.
// Args should not include the program name or --cwd.
func (c *CLI) Run(args ...string) (string, string, int) {
	return c.RunWithInput(nil, args...)
}

// RunWithInput executes the CLI reading stdin from in.
func (c *CLI) RunWithInput(in io.Reader, args ...string) (string, string, int) {
	var outBuf, errBuf bytes.Buffer

	fullArgs := append([]string{"threadbench", "--cwd", c.Dir}, args...)
	code := cli.Run(context.Background(), in, &outBuf, &errBuf, fullArgs, c.Env)

	return outBuf.String(), errBuf.String(), code
}

// MustRun fails the test if the command returns non-zero. Returns stdout.
func (c *CLI) MustRun(args ...string) string {
	c.t.Helper()

	stdout, stderr, code := c.Run(args...)
	if code != 0 {
		c.t.Fatalf("command %v failed with exit code %d\nstderr: %s", args, code, stderr)
	}

	return stdout
}

// MustFail fails the test if the command succeeds. Returns trimmed stderr.
func (c *CLI) MustFail(args ...string) string {
	c.t.Helper()

	stdout, stderr, code := c.Run(args...)
	if code == 0 {
		c.t.Fatalf("command %v should have failed but succeeded\nstdout: %s", args, stdout)
	}

	return strings.TrimSpace(stderr)
}

// Path joins elem onto the CLI's directory.
func (c *CLI) Path(elem ...string) string {
	return filepath.Join(append([]string{c.Dir}, elem...)...)
}

// WriteFile writes content under the CLI directory, creating parents.
func (c *CLI) WriteFile(rel, content string, perm os.FileMode) {
	c.t.Helper()

	path := c.Path(rel)

	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		c.t.Fatalf("failed to create dir for %s: %v", rel, err)
	}

	err = os.WriteFile(path, []byte(content), perm)
	if err != nil {
		c.t.Fatalf("failed to write %s: %v", rel, err)
	}
}

// ReadFile returns the content of a file under the CLI directory.
func (c *CLI) ReadFile(rel string) string {
	c.t.Helper()

	content, err := os.ReadFile(c.Path(rel))
	if err != nil {
		c.t.Fatalf("failed to read %s: %v", rel, err)
	}

	return string(content)
}

// Exists reports whether rel exists under the CLI directory.
func (c *CLI) Exists(rel string) bool {
	_, err := os.Stat(c.Path(rel))

	return err == nil
}

// SetupBenchmark creates the test directory "case1" and a script at
// build/bench.sh that appends "<threads> <args>" to calls.log in its cwd and
// then runs tail.
func (c *CLI) SetupBenchmark(tail string) {
	c.t.Helper()

	err := os.MkdirAll(c.Path("case1"), 0o750)
	if err != nil {
		c.t.Fatalf("failed to create case1: %v", err)
	}

	c.WriteFile("build/bench.sh", "#!/bin/sh\necho \"$OMP_NUM_THREADS $*\" >> calls.log\n"+tail, 0o700)
}

// Lines splits content into lines without the trailing empty one.
func Lines(content string) []string {
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return nil
	}

	return strings.Split(content, "\n")
}

// AssertContains fails the test if content doesn't contain substr.
func AssertContains(t *testing.T, content, substr string) {
	t.Helper()

	if !strings.Contains(content, substr) {
		t.Errorf("content should contain %q\ncontent:\n%s", substr, content)
	}
}

// AssertNotContains fails the test if content contains substr.
func AssertNotContains(t *testing.T, content, substr string) {
	t.Helper()

	if strings.Contains(content, substr) {
		t.Errorf("content should NOT contain %q\ncontent:\n%s", substr, content)
	}
}
