// Package checkout acquires repository content at the triggering revision.
package checkout

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stephanebdc/condaci/internal/shell"
)

// Options describe what to fetch and where.
type Options struct {
	// RepoURL is the repository to clone. Empty means the host checkout is
	// already in place and Dir must point at it.
	RepoURL string
	// Ref is the revision to check out. Empty keeps the clone's default head.
	Ref string
	// Dir is the destination directory.
	Dir string
}

// Run populates opts.Dir with the repository content. Network and auth
// failures surface as errors; nothing is retried.
func Run(ctx context.Context, opts Options) error {
	if opts.Dir == "" {
		return fmt.Errorf("checkout destination is empty")
	}
	if opts.RepoURL == "" {
		return verifyExisting(opts.Dir)
	}
	if err := os.MkdirAll(filepath.Dir(opts.Dir), 0o755); err != nil {
		return fmt.Errorf("prepare checkout dir: %w", err)
	}
	res, err := shell.Run(ctx, shell.Command{Name: "git", Args: []string{"clone", "--quiet", opts.RepoURL, opts.Dir}})
	if err != nil {
		return fmt.Errorf("clone %s: %w", opts.RepoURL, err)
	}
	if !res.Passed() {
		return fmt.Errorf("clone %s: exit %d: %s", opts.RepoURL, res.ExitCode, res.CombinedOutput())
	}
	if opts.Ref == "" {
		return nil
	}
	res, err = shell.Run(ctx, shell.Command{Name: "git", Args: []string{"checkout", "--quiet", opts.Ref}, Dir: opts.Dir})
	if err != nil {
		return fmt.Errorf("checkout %s: %w", opts.Ref, err)
	}
	if !res.Passed() {
		return fmt.Errorf("checkout %s: exit %d: %s", opts.Ref, res.ExitCode, res.CombinedOutput())
	}
	return nil
}

// verifyExisting accepts a pre-populated checkout, as on a hosted runner where
// a separate action has already fetched the repository.
func verifyExisting(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("checkout dir %s: %w", dir, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("checkout path %s is not a directory", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read checkout dir %s: %w", dir, err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("checkout dir %s is empty", dir)
	}
	return nil
}
