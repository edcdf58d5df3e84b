package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stephanebdc/condaci/internal/runner"
)

func repoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("cannot resolve test file path")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeDefaultWorkflow(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "condaci.yaml")
	writeFile(t, path, defaultWorkflowYAML)
	return path
}

func TestNewRootCommand_SubcommandRegistration(t *testing.T) {
	root := newRootCommand()
	want := map[string]bool{
		"init": false, "validate": false, "run": false, "report": false, "serve": false,
	}
	for _, c := range root.Commands() {
		want[c.Name()] = true
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand: %s", name)
		}
	}
}

func TestValidateCommandAcceptsDefaultWorkflow(t *testing.T) {
	cmd := newValidateCommand()
	cmd.SetArgs([]string{
		"--workflow", writeDefaultWorkflow(t),
		"--schema", filepath.Join(repoRoot(t), "schemas", "v1", "workflow.schema.json"),
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
}

func TestValidateCommandRejectsBrokenWorkflow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "condaci.yaml")
	writeFile(t, path, "version: 1\nname: broken\n")
	cmd := newValidateCommand()
	cmd.SetArgs([]string{
		"--workflow", path,
		"--schema", filepath.Join(repoRoot(t), "schemas", "v1", "workflow.schema.json"),
	})
	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	var ce cliError
	if !errors.As(err, &ce) {
		t.Fatalf("expected cliError, got %T", err)
	}
	if ce.code != 2 {
		t.Fatalf("expected exit 2, got %d", ce.code)
	}
}

func TestRunCommandSkipsUnconfiguredTrigger(t *testing.T) {
	cmd := newRunCommand()
	cmd.SetArgs([]string{
		"--workflow", writeDefaultWorkflow(t),
		"--event", "push",
		"--branch", "feature/x",
		"--store", filepath.Join(t.TempDir(), "runs"),
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected no-op success, got %v", err)
	}
}

func TestRunCommandRejectsUnknownEvent(t *testing.T) {
	cmd := newRunCommand()
	cmd.SetArgs([]string{
		"--workflow", writeDefaultWorkflow(t),
		"--event", "deployment",
	})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for unknown event")
	}
}

func TestRunCommandFullSequenceWithFakeManager(t *testing.T) {
	binDir := t.TempDir()
	root := t.TempDir()
	envBin := filepath.Join(root, "envs", "envejp", "bin")
	script := `#!/bin/sh
if [ "$1" = "create" ]; then
  mkdir -p ` + envBin + `
  cat > ` + filepath.Join(envBin, "python") + ` <<'PYEOF'
#!/bin/sh
if [ "$1" = "--version" ]; then echo "Python 3.11.9"; exit 0; fi
if [ "$1" = "-c" ]; then
  case "$2" in
  *sys.executable*) echo "$0"; exit 0;;
  *import*) echo "tkinter and reportlab OK"; exit 0;;
  esac
fi
exit 0
PYEOF
  chmod +x ` + filepath.Join(envBin, "python") + `
fi
exit 0
`
	if err := os.WriteFile(filepath.Join(binDir, "micromamba"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	workDir := t.TempDir()
	writeFile(t, filepath.Join(workDir, "envejp.py"), "print('app')\n")
	storeDir := filepath.Join(t.TempDir(), "runs")
	outJSON := filepath.Join(t.TempDir(), "run.json")

	cmd := newRunCommand()
	cmd.SetArgs([]string{
		"--workflow", writeDefaultWorkflow(t),
		"--event", "push",
		"--branch", "refs/heads/main",
		"--workdir", workDir,
		"--store", storeDir,
		"--root-prefix", root,
		"--out-json", outJSON,
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	raw, err := os.ReadFile(outJSON)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"exit_code": 0`) {
		t.Fatalf("expected passing report, got %s", raw)
	}
}

func TestReportCommandRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	inPath := filepath.Join(tmp, "run.json")
	outPath := filepath.Join(tmp, "run.md")
	r := runner.Report{RunID: "run-1", Workflow: "smoke-test", Event: "push", Branch: "main", Passed: true}
	writeReportJSON(t, inPath, r)

	cmd := newReportCommand()
	cmd.SetArgs([]string{"--in", inPath, "--out", outPath})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "**PASS**") {
		t.Fatalf("unexpected markdown: %s", raw)
	}
}

func writeReportJSON(t *testing.T, path string, r runner.Report) {
	t.Helper()
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, string(raw))
}

func TestReportCommandMissingFlags(t *testing.T) {
	cmd := newReportCommand()
	cmd.SetArgs([]string{"--in", "only-in.json"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for missing --out")
	}
}
