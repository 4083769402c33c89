package analyzer_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vocalis/internal/analyzer"
	"vocalis/internal/config"
	"vocalis/internal/services"
)

func newService() *analyzer.Service {
	cfg := config.Default()
	return analyzer.NewService(cfg.Analyzer, cfg.Policy)
}

// writeOutput finds the value following the -o flag and writes payload there.
func writeOutput(t *testing.T, args []string, payload any) {
	t.Helper()
	for i, arg := range args {
		if arg == "-o" && i+1 < len(args) {
			data, err := json.Marshal(payload)
			if err != nil {
				t.Fatalf("marshal payload: %v", err)
			}
			if err := os.WriteFile(args[i+1], data, 0o644); err != nil {
				t.Fatalf("write output: %v", err)
			}
			return
		}
	}
	t.Fatal("no -o flag in args")
}

func TestExtractAudioBuildsFFmpegInvocation(t *testing.T) {
	service := newService()
	var gotName string
	var gotArgs []string
	service.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	})

	if err := service.ExtractAudio(context.Background(), "/work/video.mp4", "/work/audio.wav"); err != nil {
		t.Fatalf("ExtractAudio failed: %v", err)
	}
	if gotName != config.Default().Analyzer.FFmpegBinary {
		t.Fatalf("binary = %q", gotName)
	}

	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"-i /work/video.mp4", "-ac 1", "-ar 16000", "pcm_s16le", "/work/audio.wav"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("ffmpeg args missing %q: %s", want, joined)
		}
	}
}

func TestSpeechToTextReturnsTranscript(t *testing.T) {
	service := newService()
	workDir := t.TempDir()
	service.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		writeOutput(t, args, analyzer.Transcript{Text: "hello world", DurationSeconds: 2.5})
		return nil
	})

	transcript, err := service.SpeechToText(context.Background(), filepath.Join(workDir, "audio.wav"), workDir)
	if err != nil {
		t.Fatalf("SpeechToText failed: %v", err)
	}
	if transcript == nil || transcript.Text != "hello world" {
		t.Fatalf("transcript = %#v", transcript)
	}
}

func TestSpeechToTextUnrecognizedSpeechIsNotAnError(t *testing.T) {
	service := newService()
	workDir := t.TempDir()
	service.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		writeOutput(t, args, analyzer.Transcript{Text: "   "})
		return nil
	})

	transcript, err := service.SpeechToText(context.Background(), "audio.wav", workDir)
	if err != nil {
		t.Fatalf("SpeechToText failed: %v", err)
	}
	if transcript != nil {
		t.Fatalf("expected nil transcript, got %#v", transcript)
	}
}

func TestSpeechToTextToolFailure(t *testing.T) {
	service := newService()
	service.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		return errors.New("exit status 1")
	})

	_, err := service.SpeechToText(context.Background(), "audio.wav", t.TempDir())
	if !errors.Is(err, services.ErrStageExecution) {
		t.Fatalf("error = %v, want ErrStageExecution", err)
	}
}

func TestAnalyzeAudioRatesMeasurements(t *testing.T) {
	service := newService()
	workDir := t.TempDir()
	service.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		writeOutput(t, args, analyzer.AudioMeasurements{
			DurationSeconds:   10,
			LongestSilenceSec: 1.2,
			PitchStdDevHz:     20,
			SentimentScore:    0,
			ClarityScore:      0.7,
			MeanEnergy:        0.05,
		})
		return nil
	})

	transcript := &analyzer.Transcript{Text: "ten words of speech spread over exactly ten short seconds", DurationSeconds: 10}
	features, err := service.AnalyzeAudio(context.Background(), "audio.wav", workDir, transcript)
	if err != nil {
		t.Fatalf("AnalyzeAudio failed: %v", err)
	}
	if features.Pace != "Slow pace" {
		t.Fatalf("pace = %q", features.Pace)
	}
	if features.Clarity != "Moderate clarity" {
		t.Fatalf("clarity = %q", features.Clarity)
	}
	if features.PitchAndTone != "Low variations" {
		t.Fatalf("pitch = %q", features.PitchAndTone)
	}
}

func TestAnalyzeVideoRatesMeasurements(t *testing.T) {
	service := newService()
	workDir := t.TempDir()
	service.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		writeOutput(t, args, analyzer.VideoMeasurements{
			SampledFrames:    200,
			GestureFrames:    30,
			FacialConfidence: 0.62,
		})
		return nil
	})

	features, err := service.AnalyzeVideo(context.Background(), "video.mp4", workDir)
	if err != nil {
		t.Fatalf("AnalyzeVideo failed: %v", err)
	}
	if features.FacialExpressionPct != 62 {
		t.Fatalf("facial pct = %d", features.FacialExpressionPct)
	}
	if features.PostureRating != "Bad" {
		t.Fatalf("posture = %q", features.PostureRating)
	}
}

func TestAnalyzeVideoMalformedOutput(t *testing.T) {
	service := newService()
	workDir := t.TempDir()
	service.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		for i, arg := range args {
			if arg == "-o" {
				return os.WriteFile(args[i+1], []byte("not json"), 0o644)
			}
		}
		return nil
	})

	_, err := service.AnalyzeVideo(context.Background(), "video.mp4", workDir)
	if !errors.Is(err, services.ErrStageExecution) {
		t.Fatalf("error = %v, want ErrStageExecution", err)
	}
}
