// Package shell runs external commands with captured output and explicit
// exit-code reporting.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
)

// Command describes a single process invocation.
type Command struct {
	// Name is the executable to run.
	Name string
	// Args are the process arguments.
	Args []string
	// Dir is the working directory. Empty means the caller's directory.
	Dir string
	// Env is the full process environment. Nil inherits the host environment.
	Env []string
}

// Result holds the captured outcome of a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Passed reports whether the process exited with status zero.
func (r *Result) Passed() bool { return r.ExitCode == 0 }

// CombinedOutput returns stdout followed by stderr, trimmed.
func (r *Result) CombinedOutput() string {
	return strings.TrimSpace(r.Stdout + r.Stderr)
}

// Run executes cmd and waits for it to finish. A non-zero exit status is not
// an error; it is reported through Result.ExitCode. The returned error covers
// spawn failures (missing binary, bad working directory) and context
// cancellation only.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Name == "" {
		return nil, fmt.Errorf("command name is empty")
	}

	c := exec.Command(cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env

	// Own process group so cancellation kills the whole tree.
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cmd.Name, err)
	}

	done := make(chan error, 1)
	go func() { done <- c.Wait() }()

	select {
	case <-ctx.Done():
		_ = syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
		<-done
		return nil, fmt.Errorf("run %s: %w", cmd.Name, ctx.Err())
	case err := <-done:
		res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
		if err == nil {
			return res, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return nil, fmt.Errorf("wait %s: %w", cmd.Name, err)
	}
}
