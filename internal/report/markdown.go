package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/stephanebdc/condaci/internal/runner"
)

func BuildMarkdown(r runner.Report) string {
	status := "PASS"
	if !r.Passed {
		status = "FAIL"
	}
	var b strings.Builder
	b.WriteString("# Environment Provisioning Report\n\n")
	b.WriteString(fmt.Sprintf("- Run: `%s`\n", r.RunID))
	b.WriteString(fmt.Sprintf("- Workflow: `%s`\n", r.Workflow))
	b.WriteString(fmt.Sprintf("- Trigger: `%s` on `%s`\n", r.Event, r.Branch))
	b.WriteString(fmt.Sprintf("- Status: **%s**\n", status))
	b.WriteString(fmt.Sprintf("- Exit Code: `%d`\n\n", r.ExitCode))

	b.WriteString("## Steps\n\n")
	b.WriteString("| Step | Passed | Exit Code | Message |\n")
	b.WriteString("|---|---:|---:|---|\n")
	for _, s := range r.Steps {
		b.WriteString(fmt.Sprintf("| %s | %t | %d | %s |\n", s.Name, s.Passed, s.ExitCode, strings.ReplaceAll(s.Message, "|", "\\|")))
	}

	for _, s := range r.Steps {
		if s.Output == "" {
			continue
		}
		b.WriteString(fmt.Sprintf("\n## Output: %s\n\n```\n%s\n```\n", s.Name, strings.TrimSpace(s.Output)))
	}

	return b.String()
}

func WriteMarkdown(path string, r runner.Report) error {
	return os.WriteFile(path, []byte(BuildMarkdown(r)), 0o644)
}
