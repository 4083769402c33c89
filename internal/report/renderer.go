// Package report renders finished analysis results into report artifacts and
// pushes them to the configured delivery endpoint.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"vocalis/internal/fileutil"
	"vocalis/internal/pipeline"
)

// Renderer writes analysis results as JSON artifacts under the report
// directory.
type Renderer struct {
	reportDir string
}

// NewRenderer builds a renderer rooted at reportDir.
func NewRenderer(reportDir string) *Renderer {
	return &Renderer{reportDir: reportDir}
}

// Render writes the result to <reportDir>/<reportID>.json and returns the
// artifact path.
func (r *Renderer) Render(result *pipeline.Result) (string, error) {
	if result == nil {
		return "", fmt.Errorf("render report: result is nil")
	}
	if result.ReportID == "" {
		return "", fmt.Errorf("render report: result has no report id")
	}
	if err := os.MkdirAll(r.reportDir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	path := filepath.Join(r.reportDir, result.ReportID+".json")
	if err := fileutil.WriteFileAtomic(path, encoded, 0o644); err != nil {
		return "", fmt.Errorf("write report artifact: %w", err)
	}
	return path, nil
}
