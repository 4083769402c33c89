package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"vocalis/internal/config"
	"vocalis/internal/pipeline"
	"vocalis/internal/queue"
	"vocalis/internal/services"
)

func TestAnalyzeHandlerStoresResult(t *testing.T) {
	service := newAnalyzerService(t, defaultOutputs(), nil)
	runner := pipeline.NewRunner(service, &stubNarrative{report: "feedback"}, time.Minute, nil)
	handler := pipeline.NewAnalyzeHandler(runner)

	job := newJob(t)
	ctx := context.Background()
	if err := handler.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if job.ProgressStage != "Analyzing" {
		t.Fatalf("progress stage = %q", job.ProgressStage)
	}

	if err := handler.Execute(ctx, job); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if job.ResultJSON == "" {
		t.Fatal("expected result JSON on job")
	}

	var result pipeline.Result
	if err := json.Unmarshal([]byte(job.ResultJSON), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.ReportID != job.ReportID {
		t.Fatalf("report id = %q", result.ReportID)
	}
	if !result.SpeechRecognized || result.Narrative != "feedback" {
		t.Fatalf("result = %+v", result)
	}
	if job.ProgressPercent != 100 {
		t.Fatalf("progress percent = %.0f", job.ProgressPercent)
	}
}

func TestAnalyzeHandlerPrepareRejectsMissingVideo(t *testing.T) {
	service := newAnalyzerService(t, defaultOutputs(), nil)
	runner := pipeline.NewRunner(service, &stubNarrative{}, time.Minute, nil)
	handler := pipeline.NewAnalyzeHandler(runner)

	err := handler.Prepare(context.Background(), &queue.Job{ID: 1})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}

	job := newJob(t)
	job.VideoPath = job.VideoPath + ".missing"
	if err := handler.Prepare(context.Background(), job); !errors.Is(err, services.ErrResource) {
		t.Fatalf("error = %v, want ErrResource", err)
	}
}

func TestAnalyzeHandlerExecuteStoresPartialResultOnFailure(t *testing.T) {
	failures := map[string]error{config.Default().Analyzer.VideoAnalyzerBinary: errors.New("exit status 2")}
	service := newAnalyzerService(t, defaultOutputs(), failures)
	runner := pipeline.NewRunner(service, &stubNarrative{report: "feedback"}, time.Minute, nil)
	handler := pipeline.NewAnalyzeHandler(runner)

	job := newJob(t)
	if err := handler.Execute(context.Background(), job); !errors.Is(err, services.ErrStageExecution) {
		t.Fatalf("error = %v, want ErrStageExecution", err)
	}
	if job.ResultJSON == "" {
		t.Fatal("expected the partial aggregate stored on the job")
	}

	var result pipeline.Result
	if err := json.Unmarshal([]byte(job.ResultJSON), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Video != nil {
		t.Fatalf("video = %#v, want nil for the failed branch", result.Video)
	}
	if result.Transcript == "" || result.Audio == nil {
		t.Fatalf("partial aggregate missing completed branches: %+v", result)
	}
}
