package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no workflow file is given explicitly.
const DefaultPath = "condaci.yaml"

// Load reads and parses a workflow file, then validates the result.
func Load(path string) (Workflow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Workflow{}, fmt.Errorf("read workflow %s: %w", path, err)
	}
	var w Workflow
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return Workflow{}, fmt.Errorf("parse workflow %s: %w", path, err)
	}
	if err := w.Validate(); err != nil {
		return Workflow{}, fmt.Errorf("invalid workflow %s: %w", path, err)
	}
	return w, nil
}

// Document re-reads the workflow file as a generic document for schema
// validation, which operates on untyped values.
func Document(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow %s: %w", path, err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse workflow %s: %w", path, err)
	}
	return doc, nil
}

// Default returns the workflow the original repository shipped: a smoke test
// that provisions a pinned Python with tk and reportlab from conda-forge and
// imports both libraries.
func Default() Workflow {
	main := &BranchFilter{Branches: []string{"main"}}
	return Workflow{
		Version: 1,
		Name:    "smoke-test",
		On: Triggers{
			Push:        main,
			PullRequest: &BranchFilter{Branches: []string{"main"}},
		},
		Environment: Environment{
			Name:     "envejp",
			Runtime:  "python=3.11",
			Packages: []string{"tk", "reportlab"},
			Channel:  "conda-forge",
		},
		Verify: Verify{
			Imports: []string{"tkinter", "reportlab"},
			Message: "tkinter and reportlab OK",
		},
	}
}
