package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"vocalis/internal/config"
	"vocalis/internal/logging"
	"vocalis/internal/queue"
	"vocalis/internal/services"
	"vocalis/internal/stage"
)

// Fetcher downloads the source video into the job's working directory.
type Fetcher struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher builds the fetch stage handler.
func NewFetcher(cfg *config.Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.Analyzer.DownloadTimeoutSecs) * time.Second
	return &Fetcher{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(logging.String(logging.FieldComponent, "fetch")),
	}
}

// WithHTTPClient overrides the download client (for testing).
func (f *Fetcher) WithHTTPClient(client *http.Client) {
	if client != nil {
		f.httpClient = client
	}
}

// Prepare creates the job's working directory.
func (f *Fetcher) Prepare(ctx context.Context, job *queue.Job) error {
	workDir := filepath.Join(f.cfg.StagingDir, job.ReportID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(services.ErrResource, "fetch", "prepare", "could not create working directory", err)
	}
	job.WorkDir = workDir
	job.SetProgress("Downloading", "Fetching source video", 0)
	return nil
}

// Execute downloads the video and records its path on the job.
func (f *Fetcher) Execute(ctx context.Context, job *queue.Job) error {
	dest := filepath.Join(job.WorkDir, "source.mp4")
	if err := Download(ctx, f.httpClient, job.VideoLink, dest, f.cfg.Analyzer.MaxDownloadSizeBytes); err != nil {
		return err
	}
	job.VideoPath = dest
	job.SetProgress("Downloading", "Source video fetched", 100)
	f.logger.InfoContext(ctx, "video downloaded",
		logging.String("report_id", job.ReportID),
		logging.String("path", dest))
	return nil
}

// HealthCheck verifies the staging directory is writable.
func (f *Fetcher) HealthCheck(ctx context.Context) stage.Health {
	const name = "fetch"
	if err := os.MkdirAll(f.cfg.StagingDir, 0o755); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("staging dir: %v", err))
	}
	probe := filepath.Join(f.cfg.StagingDir, ".health")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("staging dir not writable: %v", err))
	}
	_ = os.Remove(probe)
	return stage.Healthy(name)
}
