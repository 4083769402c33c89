package config

const (
	defaultStagingDir        = "~/.local/share/vocalis/staging"
	defaultReportDir         = "~/.local/share/vocalis/reports"
	defaultLogDir            = "~/.local/share/vocalis/logs"
	defaultKeyDir            = "~/.config/vocalis/keys"
	defaultAPIBind           = "127.0.0.1:7821"
	defaultClientKeyTTLHours = 24
	defaultServerKeyBits     = 2048
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultGeminiBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel       = "gemini-1.5-flash"
	defaultFFmpegBinary      = "ffmpeg"
	defaultStageTimeout      = 600
	defaultDownloadTimeout   = 300
	defaultMaxDownloadBytes  = 2 << 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			ReportDir:  defaultReportDir,
			LogDir:     defaultLogDir,
			KeyDir:     defaultKeyDir,
			APIBind:    defaultAPIBind,
		},
		Keys: Keys{
			ClientKeyTTLHours: defaultClientKeyTTLHours,
			ServerKeyBits:     defaultServerKeyBits,
		},
		KMS: KMS{
			TimeoutSeconds: 10,
		},
		Gemini: Gemini{
			BaseURL:        defaultGeminiBaseURL,
			Model:          defaultGeminiModel,
			TimeoutSeconds: 60,
		},
		Analyzer: Analyzer{
			FFmpegBinary:         defaultFFmpegBinary,
			TranscriberBinary:    "vocalis-transcribe",
			AudioAnalyzerBinary:  "vocalis-audio-features",
			VideoAnalyzerBinary:  "vocalis-video-features",
			StageTimeoutSeconds:  defaultStageTimeout,
			DownloadTimeoutSecs:  defaultDownloadTimeout,
			MaxDownloadSizeBytes: defaultMaxDownloadBytes,
		},
		Policy: Policy{
			FluencyKeywords:   []string{"stutter", "stammer", "hesitate"},
			PaceSlowWPS:       1.5,
			PaceFastWPS:       2.5,
			PitchVariationHz:  50,
			PauseThresholdSec: 0.5,
			PostureGoodPct:    90,
			PostureAveragePct: 75,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  15,
			HeartbeatTimeout:   120,
		},
		Report: Report{
			TimeoutSeconds: 30,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
