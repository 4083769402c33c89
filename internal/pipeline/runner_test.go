package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"vocalis/internal/analyzer"
	"vocalis/internal/config"
	"vocalis/internal/pipeline"
	"vocalis/internal/queue"
	"vocalis/internal/services"
)

type stubNarrative struct {
	report string
	err    error
	calls  atomic.Int32
	gotCtx string
	gotTxt string
}

func (s *stubNarrative) GenerateReport(_ context.Context, activityContext, transcript string) (string, error) {
	s.calls.Add(1)
	s.gotCtx = activityContext
	s.gotTxt = transcript
	if s.err != nil {
		return "", s.err
	}
	return s.report, nil
}

// toolScript routes stub tool invocations by binary name and writes the
// configured payload to the -o output path.
func newAnalyzerService(t *testing.T, outputs map[string]any, failures map[string]error) *analyzer.Service {
	t.Helper()
	cfg := config.Default()
	service := analyzer.NewService(cfg.Analyzer, cfg.Policy)
	service.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		if err, ok := failures[name]; ok {
			return err
		}
		payload, ok := outputs[name]
		if !ok {
			return nil
		}
		for i, arg := range args {
			if arg == "-o" && i+1 < len(args) {
				data, err := json.Marshal(payload)
				if err != nil {
					t.Errorf("marshal payload: %v", err)
					return err
				}
				return os.WriteFile(args[i+1], data, 0o644)
			}
		}
		return nil
	})
	return service
}

func newJob(t *testing.T) *queue.Job {
	t.Helper()
	workDir := t.TempDir()
	videoPath := filepath.Join(workDir, "source.mp4")
	if err := os.WriteFile(videoPath, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return &queue.Job{
		ID:        1,
		ReportID:  "report-1",
		Activity:  "Mock interview",
		WorkDir:   workDir,
		VideoPath: videoPath,
	}
}

func defaultOutputs() map[string]any {
	cfg := config.Default().Analyzer
	return map[string]any{
		cfg.TranscriberBinary: analyzer.Transcript{Text: "an important speech", DurationSeconds: 4},
		cfg.AudioAnalyzerBinary: analyzer.AudioMeasurements{
			DurationSeconds: 4, PitchStdDevHz: 60, SentimentScore: 0.6, ClarityScore: 0.9, MeanEnergy: 0.05,
		},
		cfg.VideoAnalyzerBinary: analyzer.VideoMeasurements{
			SampledFrames: 100, GestureFrames: 80, FacialConfidence: 0.95,
		},
	}
}

func TestRunAggregatesAllThreeBranches(t *testing.T) {
	service := newAnalyzerService(t, defaultOutputs(), nil)
	narrative := &stubNarrative{report: "**Strengths**\n- clear voice"}
	runner := pipeline.NewRunner(service, narrative, time.Minute, nil)

	job := newJob(t)
	result, err := runner.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !result.SpeechRecognized {
		t.Fatal("expected speech to be recognized")
	}
	if result.Transcript != "an important speech" {
		t.Fatalf("transcript = %q", result.Transcript)
	}
	if result.Video == nil || result.Video.PostureRating != "Good" {
		t.Fatalf("video = %#v", result.Video)
	}
	if result.Audio == nil || result.Audio.WordEmphasis != "Effective emphasis" {
		t.Fatalf("audio = %#v", result.Audio)
	}
	if result.Narrative == "" {
		t.Fatal("expected narrative")
	}
	if narrative.gotCtx != "Mock interview" {
		t.Fatalf("narrative context = %q", narrative.gotCtx)
	}
	if narrative.gotTxt != "an important speech" {
		t.Fatalf("narrative transcript = %q", narrative.gotTxt)
	}
	if job.AudioPath == "" {
		t.Fatal("expected audio path recorded on job")
	}
}

func TestRunNoRecognizableSpeech(t *testing.T) {
	outputs := defaultOutputs()
	outputs[config.Default().Analyzer.TranscriberBinary] = analyzer.Transcript{Text: "  "}

	service := newAnalyzerService(t, outputs, nil)
	narrative := &stubNarrative{report: "should not be called"}
	runner := pipeline.NewRunner(service, narrative, time.Minute, nil)

	result, err := runner.Run(context.Background(), newJob(t))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.SpeechRecognized {
		t.Fatal("expected speech_recognized = false")
	}
	if result.Audio != nil {
		t.Fatal("expected no audio features without a transcript")
	}
	if result.Video == nil {
		t.Fatal("expected video branch to run regardless of speech")
	}
	if result.Narrative != pipeline.NoSpeechNarrative {
		t.Fatalf("narrative = %q", result.Narrative)
	}
	if narrative.calls.Load() != 0 {
		t.Fatal("narrative client must not be called without a transcript")
	}
}

func TestRunVideoBranchFailureDoesNotStopSiblings(t *testing.T) {
	cfg := config.Default().Analyzer
	service := newAnalyzerService(t, defaultOutputs(), map[string]error{
		cfg.VideoAnalyzerBinary: errors.New("exit status 2"),
	})
	narrative := &stubNarrative{report: "feedback"}
	runner := pipeline.NewRunner(service, narrative, time.Minute, nil)

	result, err := runner.Run(context.Background(), newJob(t))
	if !errors.Is(err, services.ErrStageExecution) {
		t.Fatalf("error = %v, want ErrStageExecution", err)
	}
	// The narrative branch still ran to completion.
	if narrative.calls.Load() != 1 {
		t.Fatalf("narrative calls = %d, want 1", narrative.calls.Load())
	}
	if result == nil {
		t.Fatal("expected a partial aggregate alongside the error")
	}
	if result.Video != nil {
		t.Fatalf("video = %#v, want nil after branch failure", result.Video)
	}
	if result.Transcript != "an important speech" || result.Audio == nil || result.Narrative != "feedback" {
		t.Fatalf("partial aggregate missing completed branches: %+v", result)
	}
}

func TestRunTranscriptionFailureSkipsDependentBranches(t *testing.T) {
	cfg := config.Default().Analyzer
	service := newAnalyzerService(t, defaultOutputs(), map[string]error{
		cfg.TranscriberBinary: errors.New("exit status 1"),
	})
	narrative := &stubNarrative{report: "feedback"}
	runner := pipeline.NewRunner(service, narrative, time.Minute, nil)

	result, err := runner.Run(context.Background(), newJob(t))
	if !errors.Is(err, services.ErrStageExecution) {
		t.Fatalf("error = %v, want ErrStageExecution", err)
	}
	if narrative.calls.Load() != 0 {
		t.Fatal("narrative must not run after transcription failure")
	}
	// The independent video branch's output survives the failure.
	if result == nil || result.Video == nil {
		t.Fatalf("result = %+v, want partial aggregate with video output", result)
	}
	if result.SpeechRecognized || result.Audio != nil {
		t.Fatalf("result = %+v, want no speech output after transcription failure", result)
	}
}

func TestRunNarrativeFailureFailsStage(t *testing.T) {
	service := newAnalyzerService(t, defaultOutputs(), nil)
	narrative := &stubNarrative{err: errors.New("api quota")}
	runner := pipeline.NewRunner(service, narrative, time.Minute, nil)

	_, err := runner.Run(context.Background(), newJob(t))
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
}

func TestRunRequiresDownloadedVideo(t *testing.T) {
	service := newAnalyzerService(t, defaultOutputs(), nil)
	runner := pipeline.NewRunner(service, &stubNarrative{}, time.Minute, nil)

	_, err := runner.Run(context.Background(), &queue.Job{ID: 1})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}
