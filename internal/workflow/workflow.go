// Package workflow defines the declarative workflow document: which repository
// events start a run and what environment the run must provision and verify.
package workflow

import (
	"fmt"
	"strings"
)

// Workflow is the full declarative document. It is parsed once per run and
// never mutated afterward.
type Workflow struct {
	Version     int         `yaml:"version" json:"version"`
	Name        string      `yaml:"name" json:"name"`
	On          Triggers    `yaml:"on" json:"on"`
	Environment Environment `yaml:"environment" json:"environment"`
	Verify      Verify      `yaml:"verify" json:"verify"`
}

// Triggers enumerates the repository events that initiate a run.
type Triggers struct {
	Push        *BranchFilter `yaml:"push,omitempty" json:"push,omitempty"`
	PullRequest *BranchFilter `yaml:"pull_request,omitempty" json:"pull_request,omitempty"`
}

// BranchFilter is a branch-name allow-list. Entries may be exact names or
// shell-style globs (release/*).
type BranchFilter struct {
	Branches []string `yaml:"branches" json:"branches"`
}

// Environment describes the isolated environment to create: a named identifier,
// a pinned runtime, additional packages, and the channel they resolve from.
type Environment struct {
	Name     string   `yaml:"name" json:"name"`
	Runtime  string   `yaml:"runtime" json:"runtime"`
	Packages []string `yaml:"packages" json:"packages"`
	Channel  string   `yaml:"channel" json:"channel"`
}

// Verify describes the smoke test: libraries to import and the confirmation
// string printed on success.
type Verify struct {
	Imports []string `yaml:"imports" json:"imports"`
	Message string   `yaml:"message" json:"message"`
}

// RuntimeCommand returns the interpreter command name for the pinned runtime,
// e.g. "python" for "python=3.11".
func (e Environment) RuntimeCommand() string {
	name, _, _ := strings.Cut(e.Runtime, "=")
	return strings.TrimSpace(name)
}

// ImportProgram builds the one-line verification program executed inside the
// environment: one import per required library, then the confirmation print.
func (v Verify) ImportProgram() string {
	parts := make([]string, 0, len(v.Imports)+1)
	for _, lib := range v.Imports {
		parts = append(parts, "import "+lib)
	}
	parts = append(parts, fmt.Sprintf("print(%q)", v.Message))
	return strings.Join(parts, "; ")
}

// Validate enforces the structural requirements that the JSON schema cannot
// express against loaded values.
func (w Workflow) Validate() error {
	if w.Environment.Name == "" {
		return fmt.Errorf("environment.name is required")
	}
	if w.Environment.Runtime == "" {
		return fmt.Errorf("environment.runtime is required")
	}
	if w.Environment.Channel == "" {
		return fmt.Errorf("environment.channel is required")
	}
	if len(w.Verify.Imports) == 0 {
		return fmt.Errorf("verify.imports must name at least one library")
	}
	if w.Verify.Message == "" {
		return fmt.Errorf("verify.message is required")
	}
	if w.On.Push == nil && w.On.PullRequest == nil {
		return fmt.Errorf("at least one trigger (push, pull_request) is required")
	}
	return nil
}
