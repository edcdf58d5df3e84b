// Package runner executes the environment provisioning and verification
// sequence: checkout, tool install, environment creation, activation, and the
// import smoke test. The sequence is strictly linear and fail-fast; no step
// retries and no step runs after a failure.
package runner

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stephanebdc/condaci/internal/checkout"
	"github.com/stephanebdc/condaci/internal/conda"
	"github.com/stephanebdc/condaci/internal/trigger"
	"github.com/stephanebdc/condaci/internal/workflow"
)

// Options configure one run. A run never shares state with another.
type Options struct {
	Workflow workflow.Workflow
	Event    trigger.Event

	// RepoURL and Ref describe the checkout. An empty RepoURL means WorkDir
	// already holds the repository content.
	RepoURL string
	Ref     string
	// WorkDir is the run workspace. Empty creates a fresh temporary one.
	WorkDir string

	// Root overrides the environment manager's root prefix.
	Root string
	// SelfUpdate updates the manager before resolution.
	SelfUpdate bool
	// Tool skips discovery when pre-located.
	Tool *conda.Tool

	Log *zap.SugaredLogger
}

// stepError carries the exit code a failing step aborts the run with.
type stepError struct {
	exit int
	err  error
}

func (e *stepError) Error() string { return e.err.Error() }

func failStep(exit int, format string, args ...any) error {
	return &stepError{exit: exit, err: fmt.Errorf(format, args...)}
}

type state struct {
	opts   Options
	tool   *conda.Tool
	active *conda.ActiveEnv
}

// Run executes the full sequence and reports the outcome. The report's exit
// code is zero on success, otherwise the first failing step's status.
func Run(ctx context.Context, opts Options) Report {
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	report := Report{
		RunID:     uuid.NewString(),
		Workflow:  opts.Workflow.Name,
		Event:     string(opts.Event.Type),
		Branch:    opts.Event.Branch,
		Passed:    true,
		ExitCode:  ExitPass,
		StartedAt: time.Now().UTC(),
	}

	if opts.WorkDir == "" {
		dir, err := os.MkdirTemp("", "condaci-run-")
		if err != nil {
			report.addFailure(StepCheckout, ExitCheckoutFail, fmt.Sprintf("create workspace: %v", err), "")
			report.FinishedAt = time.Now().UTC()
			return report
		}
		opts.WorkDir = dir
	}

	st := &state{opts: opts}
	steps := []struct {
		name string
		run  func(ctx context.Context, st *state) (string, error)
	}{
		{StepCheckout, runCheckout},
		{StepToolInstall, runToolInstall},
		{StepCreate, runCreate},
		{StepActivate, runActivate},
		{StepVerify, runVerify},
	}

	for _, step := range steps {
		log.Infow("step start", "run_id", report.RunID, "step", step.name)
		output, err := step.run(ctx, st)
		if err != nil {
			se, ok := err.(*stepError)
			exit := ExitVerifyFail
			if ok {
				exit = se.exit
			}
			report.addFailure(step.name, exit, err.Error(), output)
			log.Errorw("step failed", "run_id", report.RunID, "step", step.name, "exit_code", exit, "error", err)
			break
		}
		report.addSuccess(step.name, output)
		log.Infow("step done", "run_id", report.RunID, "step", step.name)
	}

	report.FinishedAt = time.Now().UTC()
	return report
}

func runCheckout(ctx context.Context, st *state) (string, error) {
	err := checkout.Run(ctx, checkout.Options{
		RepoURL: st.opts.RepoURL,
		Ref:     st.opts.Ref,
		Dir:     st.opts.WorkDir,
	})
	if err != nil {
		return "", failStep(ExitCheckoutFail, "acquire checkout: %v", err)
	}
	return st.opts.WorkDir, nil
}

func runToolInstall(ctx context.Context, st *state) (string, error) {
	tool := st.opts.Tool
	if tool == nil {
		located, err := conda.Locate(ctx, st.opts.Root)
		if err != nil {
			return "", failStep(ExitToolFail, "install environment manager: %v", err)
		}
		tool = located
	}
	st.tool = tool
	if st.opts.SelfUpdate {
		res, err := tool.SelfUpdate(ctx)
		if err != nil {
			return "", failStep(ExitToolFail, "update %s: %v", tool.Name, err)
		}
		if !res.Passed() {
			return res.CombinedOutput(), failStep(res.ExitCode, "update %s: exit %d", tool.Name, res.ExitCode)
		}
	}
	return fmt.Sprintf("%s (%s)", tool.Name, tool.Path), nil
}

func runCreate(ctx context.Context, st *state) (string, error) {
	env := st.opts.Workflow.Environment
	res, err := st.tool.CreateEnv(ctx, env)
	if err != nil {
		return "", failStep(ExitCreateFail, "create environment %s: %v", env.Name, err)
	}
	if !res.Passed() {
		return res.CombinedOutput(), failStep(res.ExitCode, "create environment %s: exit %d", env.Name, res.ExitCode)
	}
	return res.CombinedOutput(), nil
}

func runActivate(_ context.Context, st *state) (string, error) {
	active, err := st.tool.Activate(st.opts.Workflow.Environment.Name)
	if err != nil {
		return "", failStep(ExitActivateFail, "activate environment: %v", err)
	}
	st.active = active
	return active.Prefix, nil
}

func runVerify(ctx context.Context, st *state) (string, error) {
	wf := st.opts.Workflow
	runtimeCmd := wf.Environment.RuntimeCommand()
	var out strings.Builder

	commands := [][]string{
		{runtimeCmd, "--version"},
		{runtimeCmd, "-c", "import sys; print(sys.executable)"},
		{runtimeCmd, "-c", wf.Verify.ImportProgram()},
	}
	for _, cmd := range commands {
		res, err := st.active.Run(ctx, st.opts.WorkDir, cmd[0], cmd[1:]...)
		if err != nil {
			return out.String(), failStep(ExitVerifyFail, "verify %s: %v", cmd[0], err)
		}
		out.WriteString(res.CombinedOutput())
		out.WriteString("\n")
		if !res.Passed() {
			return out.String(), failStep(res.ExitCode, "verify %s: exit %d", cmd[0], res.ExitCode)
		}
	}
	return strings.TrimSpace(out.String()), nil
}
