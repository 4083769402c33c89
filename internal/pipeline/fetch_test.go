package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"vocalis/internal/pipeline"
	"vocalis/internal/queue"
	"vocalis/internal/services"
	"vocalis/internal/testsupport"
)

func TestFetcherDownloadsIntoWorkDir(t *testing.T) {
	payload := bytes.Repeat([]byte("v"), 512)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	fetcher := pipeline.NewFetcher(cfg, nil)
	fetcher.WithHTTPClient(server.Client())

	job := &queue.Job{ID: 1, ReportID: "report-abc", VideoLink: server.URL}
	ctx := context.Background()
	if err := fetcher.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if job.WorkDir != filepath.Join(cfg.StagingDir, "report-abc") {
		t.Fatalf("work dir = %q", job.WorkDir)
	}
	if job.ProgressStage != "Downloading" {
		t.Fatalf("progress stage = %q", job.ProgressStage)
	}

	if err := fetcher.Execute(ctx, job); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if job.VideoPath != filepath.Join(job.WorkDir, "source.mp4") {
		t.Fatalf("video path = %q", job.VideoPath)
	}
	data, err := os.ReadFile(job.VideoPath)
	if err != nil {
		t.Fatalf("read video: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("downloaded %d bytes, want %d", len(data), len(payload))
	}
	if job.ProgressPercent != 100 {
		t.Fatalf("progress percent = %.0f", job.ProgressPercent)
	}
}

func TestFetcherExecuteSurfacesHostErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	fetcher := pipeline.NewFetcher(cfg, nil)
	fetcher.WithHTTPClient(server.Client())

	job := &queue.Job{ID: 1, ReportID: "report-err", VideoLink: server.URL}
	ctx := context.Background()
	if err := fetcher.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := fetcher.Execute(ctx, job); !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
}

func TestFetcherHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fetcher := pipeline.NewFetcher(cfg, nil)

	health := fetcher.HealthCheck(context.Background())
	if !health.Ready {
		t.Fatalf("health not ready: %s", health.Detail)
	}
}
