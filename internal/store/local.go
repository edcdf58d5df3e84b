// Package store archives run reports on the local filesystem. The archive is
// write-once per run; nothing stored here influences a later run.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stephanebdc/condaci/internal/runner"
)

// DefaultDir is the default run archive location.
const DefaultDir = ".condaci/runs"

// Local is a directory-backed run archive.
type Local struct {
	Dir string
}

// Open ensures the archive directory exists.
func Open(dir string) (*Local, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run store: %w", err)
	}
	return &Local{Dir: dir}, nil
}

// Save writes the report under its run id and returns the file path.
func (s *Local) Save(r runner.Report) (string, error) {
	if r.RunID == "" {
		return "", fmt.Errorf("report has no run id")
	}
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	path := filepath.Join(s.Dir, r.RunID+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Load reads a stored report by run id.
func (s *Local) Load(runID string) (runner.Report, error) {
	raw, err := os.ReadFile(filepath.Join(s.Dir, runID+".json"))
	if err != nil {
		return runner.Report{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	var r runner.Report
	if err := json.Unmarshal(raw, &r); err != nil {
		return runner.Report{}, fmt.Errorf("parse run %s: %w", runID, err)
	}
	return r, nil
}

// List returns the stored run ids in lexical order.
func (s *Local) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
