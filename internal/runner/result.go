package runner

import "time"

// Step-class exit codes, used when a step fails without a process exit status
// to propagate (missing tool, missing environment, spawn failure). When the
// failing step ran a process, the process's own status is propagated instead.
const (
	ExitPass         = 0
	ExitCheckoutFail = 10
	ExitToolFail     = 11
	ExitCreateFail   = 12
	ExitActivateFail = 13
	ExitVerifyFail   = 14
)

// Step names, in mandatory execution order.
const (
	StepCheckout    = "checkout"
	StepToolInstall = "toolinstall"
	StepCreate      = "create"
	StepActivate    = "activate"
	StepVerify      = "verify"
)

// StepResult records one step's outcome.
type StepResult struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	ExitCode int    `json:"exit_code"`
	Message  string `json:"message"`
	Output   string `json:"output,omitempty"`
}

// Report is the full outcome of one run. Steps after the first failure never
// execute and therefore never appear.
type Report struct {
	RunID      string       `json:"run_id"`
	Workflow   string       `json:"workflow"`
	Event      string       `json:"event"`
	Branch     string       `json:"branch"`
	Passed     bool         `json:"passed"`
	ExitCode   int          `json:"exit_code"`
	Steps      []StepResult `json:"steps"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

func (r *Report) addSuccess(step, output string) {
	r.Steps = append(r.Steps, StepResult{Name: step, Passed: true, ExitCode: ExitPass, Message: "ok", Output: output})
}

func (r *Report) addFailure(step string, exit int, message, output string) {
	r.Passed = false
	r.ExitCode = exit
	r.Steps = append(r.Steps, StepResult{Name: step, Passed: false, ExitCode: exit, Message: message, Output: output})
}
