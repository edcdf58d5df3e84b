// Package report renders run reports as JSON and Markdown.
package report

import (
	"encoding/json"
	"os"

	"github.com/stephanebdc/condaci/internal/runner"
)

func WriteJSON(path string, r runner.Report) error {
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
