package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"vocalis/internal/identity"
	"vocalis/internal/logging"
	"vocalis/internal/pipeline"
	"vocalis/internal/queue"
	"vocalis/internal/services"
	"vocalis/internal/stage"
)

// Handler finalises a job: it renders the report artifact, delivers it when a
// delivery endpoint is configured, and records the report against its owner.
type Handler struct {
	renderer  *Renderer
	deliverer *Deliverer
	users     *identity.Store
	logger    *slog.Logger
}

// NewHandler builds the report stage handler. deliverer may be nil to skip
// delivery.
func NewHandler(renderer *Renderer, deliverer *Deliverer, users *identity.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		renderer:  renderer,
		deliverer: deliverer,
		users:     users,
		logger:    logger.With(logging.String(logging.FieldComponent, "report")),
	}
}

// Prepare verifies the job carries an analysis result.
func (h *Handler) Prepare(ctx context.Context, job *queue.Job) error {
	if job.ResultJSON == "" {
		return services.Wrap(services.ErrValidation, "report", "prepare", "job has no analysis result", nil)
	}
	job.SetProgress("Reporting", "Rendering report", 0)
	return nil
}

// Execute renders, delivers, and records the report.
func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	var result pipeline.Result
	if err := json.Unmarshal([]byte(job.ResultJSON), &result); err != nil {
		return services.Wrap(services.ErrEncoding, "report", "render", "stored analysis result is corrupt", err)
	}

	path, err := h.renderer.Render(&result)
	if err != nil {
		return services.Wrap(services.ErrResource, "report", "render", "could not write report artifact", err)
	}
	job.ArtifactPath = path
	job.SetProgress("Reporting", "Report rendered", 50)

	if h.deliverer != nil {
		if err := h.deliverer.Deliver(ctx, job.ReportID, job.Activity, path); err != nil {
			return err
		}
		h.logger.InfoContext(ctx, "report delivered",
			logging.String("report_id", job.ReportID))
	}

	if h.users != nil {
		record := &identity.ReportRecord{
			ReportID: job.ReportID,
			OwnerID:  job.OwnerID,
			Activity: job.Activity,
			FilePath: path,
		}
		if err := h.users.SaveReport(ctx, record); err != nil {
			return services.Wrap(services.ErrResource, "report", "record", "could not record report ownership", err)
		}
	}

	job.SetProgress("Reporting", "Report complete", 100)
	return nil
}

// HealthCheck verifies the report directory is writable.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	const name = "report"
	if err := os.MkdirAll(h.renderer.reportDir, 0o755); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("report dir: %v", err))
	}
	probe, err := os.CreateTemp(h.renderer.reportDir, ".health-*")
	if err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("report dir not writable: %v", err))
	}
	probe.Close()
	_ = os.Remove(probe.Name())
	return stage.Healthy(name)
}
