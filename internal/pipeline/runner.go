package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"vocalis/internal/analyzer"
	"vocalis/internal/logging"
	"vocalis/internal/queue"
	"vocalis/internal/services"
)

// NarrativeClient generates the written feedback section from a transcript.
type NarrativeClient interface {
	GenerateReport(ctx context.Context, activityContext, transcript string) (string, error)
}

// Runner drives the concurrent analysis of a downloaded video.
type Runner struct {
	analyzer     *analyzer.Service
	narrative    NarrativeClient
	stageTimeout time.Duration
	logger       *slog.Logger
}

// NewRunner builds an analysis runner. A stageTimeout of zero disables
// per-stage deadlines.
func NewRunner(service *analyzer.Service, narrative NarrativeClient, stageTimeout time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		analyzer:     service,
		narrative:    narrative,
		stageTimeout: stageTimeout,
		logger:       logger.With(logging.String(logging.FieldComponent, "pipeline")),
	}
}

// Run executes the full analysis for a job with a downloaded video. The
// transcript gates the audio and narrative branches; video analysis runs
// independently. All three branches always run to completion before Run
// returns, even when one of them fails, and a failed run still returns the
// partial aggregate holding whatever the completed branches produced.
func (r *Runner) Run(ctx context.Context, job *queue.Job) (*Result, error) {
	if job.WorkDir == "" || job.VideoPath == "" {
		return nil, services.Wrap(services.ErrValidation, "analyze", "run", "job has no downloaded video", nil)
	}

	audioPath := filepath.Join(job.WorkDir, "audio.wav")
	if err := r.withStageTimeout(ctx, func(stageCtx context.Context) error {
		return r.analyzer.ExtractAudio(stageCtx, job.VideoPath, audioPath)
	}); err != nil {
		return nil, err
	}
	job.AudioPath = audioPath

	var (
		transcript *analyzer.Transcript
		sttErr     error
		textReady  = make(chan struct{})

		videoFeatures *analyzer.VideoFeatures
		videoErr      error
		audioFeatures *analyzer.AudioFeatures
		audioErr      error
		narrative     string
		narrativeErr  error
	)

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		defer close(textReady)
		sttErr = r.withStageTimeout(ctx, func(stageCtx context.Context) error {
			var err error
			transcript, err = r.analyzer.SpeechToText(stageCtx, audioPath, job.WorkDir)
			return err
		})
	}()

	go func() {
		defer wg.Done()
		videoErr = r.withStageTimeout(ctx, func(stageCtx context.Context) error {
			var err error
			videoFeatures, err = r.analyzer.AnalyzeVideo(stageCtx, job.VideoPath, job.WorkDir)
			return err
		})
	}()

	go func() {
		defer wg.Done()
		<-textReady
		if sttErr != nil || transcript == nil {
			return
		}
		audioErr = r.withStageTimeout(ctx, func(stageCtx context.Context) error {
			var err error
			audioFeatures, err = r.analyzer.AnalyzeAudio(stageCtx, audioPath, job.WorkDir, transcript)
			return err
		})
	}()

	go func() {
		defer wg.Done()
		<-textReady
		if sttErr != nil {
			return
		}
		if transcript == nil {
			narrative = NoSpeechNarrative
			return
		}
		narrativeErr = r.withStageTimeout(ctx, func(stageCtx context.Context) error {
			var err error
			narrative, err = r.narrative.GenerateReport(stageCtx, job.Activity, transcript.Text)
			if err != nil {
				return services.Wrap(services.ErrUpstream, "aiReport", "generate", "feedback generation failed", err)
			}
			return nil
		})
	}()

	wg.Wait()

	runErr := errors.Join(sttErr, videoErr, audioErr, narrativeErr)

	result := &Result{
		ReportID:         job.ReportID,
		Activity:         job.Activity,
		GeneratedAt:      time.Now().UTC(),
		SpeechRecognized: transcript != nil,
		Video:            videoFeatures,
		Audio:            audioFeatures,
		Narrative:        narrative,
	}
	if transcript != nil {
		result.Transcript = transcript.Text
	} else if runErr == nil {
		r.logger.InfoContext(ctx, "no recognizable speech in recording",
			logging.String("report_id", job.ReportID))
	}
	return result, runErr
}

// HealthCheck verifies the analysis tools are available.
func (r *Runner) HealthCheck() error {
	return r.analyzer.HealthCheck()
}

func (r *Runner) withStageTimeout(ctx context.Context, fn func(context.Context) error) error {
	if r.stageTimeout <= 0 {
		return fn(ctx)
	}
	stageCtx, cancel := context.WithTimeout(ctx, r.stageTimeout)
	defer cancel()
	err := fn(stageCtx)
	if err != nil && errors.Is(stageCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return services.Wrap(services.ErrTimeout, "analyze", "stage", "analysis stage exceeded its deadline", err)
	}
	return err
}
