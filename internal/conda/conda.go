// Package conda integrates with conda-compatible environment managers
// (micromamba, mamba, conda): locating the tool, creating named environments,
// and running commands inside them.
package conda

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/stephanebdc/condaci/internal/shell"
	"github.com/stephanebdc/condaci/internal/workflow"
)

// searchNames are tried in order when locating a manager on PATH.
var searchNames = []string{"micromamba", "mamba", "conda"}

// lookPath is a package-level variable for test injection.
var lookPath = exec.LookPath

// Tool is a located environment manager.
type Tool struct {
	// Name is the manager flavor (micromamba, mamba, conda).
	Name string
	// Path is the resolved executable.
	Path string
	// Root is the base prefix under which envs/<name> live.
	Root string
}

// Locate finds a conda-compatible manager on PATH and resolves its root
// prefix. An explicit root overrides discovery.
func Locate(ctx context.Context, root string) (*Tool, error) {
	for _, name := range searchNames {
		path, err := lookPath(name)
		if err != nil {
			continue
		}
		t := &Tool{Name: name, Path: path, Root: root}
		if t.Root == "" {
			base, err := t.resolveRoot(ctx)
			if err != nil {
				return nil, err
			}
			t.Root = base
		}
		return t, nil
	}
	return nil, fmt.Errorf("no conda-compatible environment manager found on PATH (tried %s)", strings.Join(searchNames, ", "))
}

func (t *Tool) resolveRoot(ctx context.Context) (string, error) {
	if t.Name == "micromamba" {
		if prefix := os.Getenv("MAMBA_ROOT_PREFIX"); prefix != "" {
			return prefix, nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve micromamba root: %w", err)
		}
		return filepath.Join(home, "micromamba"), nil
	}
	res, err := shell.Run(ctx, shell.Command{Name: t.Path, Args: []string{"info", "--base"}})
	if err != nil {
		return "", fmt.Errorf("resolve %s root: %w", t.Name, err)
	}
	if !res.Passed() {
		return "", fmt.Errorf("resolve %s root: exit %d: %s", t.Name, res.ExitCode, res.CombinedOutput())
	}
	return strings.TrimSpace(res.Stdout), nil
}

// SelfUpdate updates the manager itself. Used when the workflow opts in to a
// fresh tool before resolution.
func (t *Tool) SelfUpdate(ctx context.Context) (*shell.Result, error) {
	args := []string{"update", "-n", "base", "-y", t.Name}
	if t.Name == "micromamba" {
		args = []string{"self-update"}
	}
	return shell.Run(ctx, shell.Command{Name: t.Path, Args: args})
}

// CreateEnv creates the named environment with the pinned runtime and package
// set, resolved from the workflow's channel. Resolution and download are the
// manager's concern; the caller only sees the exit status.
func (t *Tool) CreateEnv(ctx context.Context, env workflow.Environment) (*shell.Result, error) {
	args := []string{"create", "-y", "-n", env.Name, env.Runtime}
	args = append(args, env.Packages...)
	args = append(args, "-c", env.Channel)
	return shell.Run(ctx, shell.Command{Name: t.Path, Args: args})
}

// EnvPrefix returns the directory the named environment lives in.
func (t *Tool) EnvPrefix(name string) string {
	return filepath.Join(t.Root, "envs", name)
}

// ActiveEnv is an activated environment: commands run through it resolve to
// the environment's interpreter and libraries.
type ActiveEnv struct {
	Name   string
	Prefix string
	// Env is the full process environment with the env's bin directory
	// leading PATH and the usual conda variables set.
	Env []string
}

// Activate resolves the named environment and builds its activated process
// environment. It fails when the environment does not exist.
func (t *Tool) Activate(name string) (*ActiveEnv, error) {
	prefix := t.EnvPrefix(name)
	if fi, err := os.Stat(prefix); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("environment %s not found at %s", name, prefix)
	}
	binDir := filepath.Join(prefix, "bin")
	env := make([]string, 0, len(os.Environ())+3)
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		switch key {
		case "PATH", "CONDA_PREFIX", "CONDA_DEFAULT_ENV":
			continue
		}
		env = append(env, kv)
	}
	env = append(env,
		"PATH="+binDir+string(os.PathListSeparator)+os.Getenv("PATH"),
		"CONDA_PREFIX="+prefix,
		"CONDA_DEFAULT_ENV="+name,
	)
	return &ActiveEnv{Name: name, Prefix: prefix, Env: env}, nil
}

// Resolve maps a bare command name to the environment's own binary when one
// exists. The parent process resolves executables against its own PATH, so
// activation alone is not enough to pick the env's interpreter.
func (a *ActiveEnv) Resolve(name string) string {
	if filepath.Base(name) != name {
		return name
	}
	candidate := filepath.Join(a.Prefix, "bin", name)
	if fi, err := os.Stat(candidate); err == nil && fi.Mode()&0o111 != 0 {
		return candidate
	}
	return name
}

// Run executes a command inside the activated environment.
func (a *ActiveEnv) Run(ctx context.Context, dir, name string, args ...string) (*shell.Result, error) {
	return shell.Run(ctx, shell.Command{Name: a.Resolve(name), Args: args, Dir: dir, Env: a.Env})
}
