package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"vocalis/internal/queue"
	"vocalis/internal/services"
	"vocalis/internal/stage"
)

// AnalyzeHandler runs the concurrent analysis stage.
type AnalyzeHandler struct {
	runner *Runner
}

// NewAnalyzeHandler builds the analyze stage handler.
func NewAnalyzeHandler(runner *Runner) *AnalyzeHandler {
	return &AnalyzeHandler{runner: runner}
}

// Prepare verifies the downloaded video is still present.
func (h *AnalyzeHandler) Prepare(ctx context.Context, job *queue.Job) error {
	if job.VideoPath == "" {
		return services.Wrap(services.ErrValidation, "analyze", "prepare", "job has no downloaded video", nil)
	}
	if _, err := os.Stat(job.VideoPath); err != nil {
		return services.Wrap(services.ErrResource, "analyze", "prepare", "downloaded video missing", err)
	}
	job.SetProgress("Analyzing", "Running speech and video analysis", 0)
	return nil
}

// Execute runs the three analysis branches and stores the aggregate on the
// job. A failed run still stores the partial aggregate so the output of the
// branches that completed survives the failure.
func (h *AnalyzeHandler) Execute(ctx context.Context, job *queue.Job) error {
	result, runErr := h.runner.Run(ctx, job)
	if result != nil {
		encoded, err := json.Marshal(result)
		if err != nil {
			return services.Wrap(services.ErrResource, "analyze", "persist", "could not encode analysis result", err)
		}
		job.ResultJSON = string(encoded)
	}
	if runErr != nil {
		return runErr
	}
	job.SetProgress("Analyzing", "Analysis complete", 100)
	return nil
}

// HealthCheck verifies the analysis tools resolve.
func (h *AnalyzeHandler) HealthCheck(ctx context.Context) stage.Health {
	const name = "analyze"
	if err := h.runner.HealthCheck(); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("analysis tools: %v", err))
	}
	return stage.Healthy(name)
}
