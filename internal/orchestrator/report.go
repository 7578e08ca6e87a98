package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/relicta-tech/flowline/internal/domain/gitflow"
	"github.com/relicta-tech/flowline/internal/errors"
)

// ReportWriter persists run results as YAML under .flowline/runs/. The
// report is the durable record an operator reads when completing a
// halted run by hand.
type ReportWriter struct {
	repoRoot string
}

// NewReportWriter creates a report writer rooted at the repository.
func NewReportWriter(repoRoot string) *ReportWriter {
	return &ReportWriter{repoRoot: repoRoot}
}

func (w *ReportWriter) runsDir() string {
	return filepath.Join(w.repoRoot, stateDir, "runs")
}

// Write persists the result of a run.
func (w *ReportWriter) Write(result gitflow.Result) error {
	const op = "orchestrator.ReportWriter.Write"

	if err := os.MkdirAll(w.runsDir(), 0755); err != nil {
		return errors.InternalWrap(err, op, "failed to create runs directory")
	}

	data, err := yaml.Marshal(result)
	if err != nil {
		return errors.InternalWrap(err, op, "failed to marshal run result")
	}

	path := filepath.Join(w.runsDir(), fmt.Sprintf("%s.yaml", result.RunID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.InternalWrap(err, op, "failed to write run report")
	}
	return nil
}

// Read loads a previously written run report.
func (w *ReportWriter) Read(runID gitflow.RunID) (*gitflow.Result, error) {
	const op = "orchestrator.ReportWriter.Read"

	path := filepath.Join(w.runsDir(), fmt.Sprintf("%s.yaml", runID))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(op, fmt.Sprintf("no report for run %s", runID))
		}
		return nil, errors.InternalWrap(err, op, "failed to read run report")
	}

	var result gitflow.Result
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, errors.InternalWrap(err, op, "failed to parse run report")
	}
	return &result, nil
}

// List returns all recorded run results, newest first.
func (w *ReportWriter) List() ([]gitflow.Result, error) {
	const op = "orchestrator.ReportWriter.List"

	entries, err := os.ReadDir(w.runsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.InternalWrap(err, op, "failed to list run reports")
	}

	var results []gitflow.Result
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(w.runsDir(), entry.Name()))
		if err != nil {
			continue
		}
		var result gitflow.Result
		if err := yaml.Unmarshal(data, &result); err != nil {
			continue
		}
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})
	return results, nil
}
