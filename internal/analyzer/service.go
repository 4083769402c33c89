package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"vocalis/internal/config"
	"vocalis/internal/services"
)

// CommandRunner executes an external tool. Tests substitute this to avoid
// invoking real binaries.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service drives the external analysis tools.
type Service struct {
	cfg           config.Analyzer
	policy        config.Policy
	commandRunner CommandRunner
}

// NewService creates an analyzer service with the given configuration.
func NewService(cfg config.Analyzer, policy config.Policy) *Service {
	return &Service{cfg: cfg, policy: policy}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner CommandRunner) {
	s.commandRunner = runner
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ExtractAudio pulls the audio track out of a video file as mono 16kHz WAV.
func (s *Service) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	if videoPath == "" || audioPath == "" {
		return services.Wrap(services.ErrValidation, "extractAudio", "run", "source and destination required", nil)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		audioPath,
	}
	if err := s.run(ctx, s.cfg.FFmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrStageExecution, "extractAudio", "ffmpeg", "audio extraction failed", err)
	}
	return nil
}

// SpeechToText transcribes the audio file. A recording with no recognizable
// speech yields a nil transcript and no error.
func (s *Service) SpeechToText(ctx context.Context, audioPath, workDir string) (*Transcript, error) {
	outPath := filepath.Join(workDir, "transcript.json")
	args := []string{"-i", audioPath, "-o", outPath}
	if err := s.run(ctx, s.cfg.TranscriberBinary, args...); err != nil {
		return nil, services.Wrap(services.ErrStageExecution, "speechToText", "transcribe", "transcription failed", err)
	}

	var transcript Transcript
	if err := readJSON(outPath, &transcript); err != nil {
		return nil, services.Wrap(services.ErrStageExecution, "speechToText", "read output", "malformed transcriber output", err)
	}
	if strings.TrimSpace(transcript.Text) == "" {
		return nil, nil
	}
	return &transcript, nil
}

// AnalyzeAudio measures the audio track and rates it against the transcript.
func (s *Service) AnalyzeAudio(ctx context.Context, audioPath, workDir string, transcript *Transcript) (*AudioFeatures, error) {
	outPath := filepath.Join(workDir, "audio_metrics.json")
	args := []string{"-i", audioPath, "-o", outPath}
	if err := s.run(ctx, s.cfg.AudioAnalyzerBinary, args...); err != nil {
		return nil, services.Wrap(services.ErrStageExecution, "audioAnalysis", "measure", "audio analysis failed", err)
	}

	var measurements AudioMeasurements
	if err := readJSON(outPath, &measurements); err != nil {
		return nil, services.Wrap(services.ErrStageExecution, "audioAnalysis", "read output", "malformed audio analyzer output", err)
	}

	features := RateAudio(measurements, transcript, s.policy)
	return &features, nil
}

// AnalyzeVideo measures gestures and facial expressions and rates them.
func (s *Service) AnalyzeVideo(ctx context.Context, videoPath, workDir string) (*VideoFeatures, error) {
	outPath := filepath.Join(workDir, "video_metrics.json")
	args := []string{"-i", videoPath, "-o", outPath}
	if err := s.run(ctx, s.cfg.VideoAnalyzerBinary, args...); err != nil {
		return nil, services.Wrap(services.ErrStageExecution, "videoAnalysis", "measure", "video analysis failed", err)
	}

	var measurements VideoMeasurements
	if err := readJSON(outPath, &measurements); err != nil {
		return nil, services.Wrap(services.ErrStageExecution, "videoAnalysis", "read output", "malformed video analyzer output", err)
	}

	features := RateVideo(measurements, s.policy)
	return &features, nil
}

// HealthCheck verifies the configured tools resolve on PATH.
func (s *Service) HealthCheck() error {
	for _, binary := range []string{
		s.cfg.FFmpegBinary,
		s.cfg.TranscriberBinary,
		s.cfg.AudioAnalyzerBinary,
		s.cfg.VideoAnalyzerBinary,
	} {
		if binary == "" {
			return services.Wrap(services.ErrValidation, "analyzer", "health", "analysis binary not configured", nil)
		}
		if _, err := exec.LookPath(binary); err != nil {
			return services.Wrap(services.ErrResource, "analyzer", "health", fmt.Sprintf("%s not found", binary), err)
		}
	}
	return nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
