package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	ReportDir  string `toml:"report_dir"`
	LogDir     string `toml:"log_dir"`
	KeyDir     string `toml:"key_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Keys contains the key-exchange protocol settings.
type Keys struct {
	// ClientKeyTTLHours controls how long a submitted client public key
	// stays live before the next handshake must replace it.
	ClientKeyTTLHours int `toml:"client_key_ttl_hours"`
	// ServerKeyBits is the modulus size used when generating the server
	// keypair on first start.
	ServerKeyBits int `toml:"server_key_bits"`
}

// KMS contains the external key-management service connection settings.
type KMS struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Gemini contains the generative-AI feedback provider settings.
type Gemini struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Analyzer contains the external analysis tool bindings and per-stage limits.
type Analyzer struct {
	FFmpegBinary         string `toml:"ffmpeg_binary"`
	TranscriberBinary    string `toml:"transcriber_binary"`
	AudioAnalyzerBinary  string `toml:"audio_analyzer_binary"`
	VideoAnalyzerBinary  string `toml:"video_analyzer_binary"`
	StageTimeoutSeconds  int    `toml:"stage_timeout_seconds"`
	DownloadTimeoutSecs  int    `toml:"download_timeout_seconds"`
	MaxDownloadSizeBytes int64  `toml:"max_download_size_bytes"`
}

// Policy contains the metric rating thresholds. These are tunable heuristics,
// not protocol invariants.
type Policy struct {
	FluencyKeywords   []string `toml:"fluency_keywords"`
	PaceSlowWPS       float64  `toml:"pace_slow_wps"`
	PaceFastWPS       float64  `toml:"pace_fast_wps"`
	PitchVariationHz  float64  `toml:"pitch_variation_hz"`
	PauseThresholdSec float64  `toml:"pause_threshold_seconds"`
	PostureGoodPct    float64  `toml:"posture_good_pct"`
	PostureAveragePct float64  `toml:"posture_average_pct"`
}

// Workflow contains daemon timing and interval settings.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Report contains report rendering and delivery settings.
type Report struct {
	DeliveryURL    string `toml:"delivery_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notifications contains operator push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths         `toml:"paths"`
	Keys          Keys          `toml:"keys"`
	KMS           KMS           `toml:"kms"`
	Gemini        Gemini        `toml:"gemini"`
	Analyzer      Analyzer      `toml:"analyzer"`
	Policy        Policy        `toml:"policy"`
	Workflow      Workflow      `toml:"workflow"`
	Report        Report        `toml:"report"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the canonical config file location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "vocalis", "config.toml"), nil
}

// Load reads configuration from path (or the default location when path is
// empty), layering file values over defaults and environment overrides over
// both. The second return value reports whether a config file was found.
func Load(path string) (*Config, bool, error) {
	cfg := Default()

	resolved := strings.TrimSpace(path)
	if resolved == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, false, err
		}
		resolved = defaultPath
	}

	found := true
	raw, err := os.ReadFile(resolved)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, false, fmt.Errorf("read config %s: %w", resolved, err)
		}
		found = false
	} else if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, false, fmt.Errorf("parse config %s: %w", resolved, err)
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Normalize(); err != nil {
		return nil, found, err
	}
	return &cfg, found, nil
}

// WriteSample writes the embedded sample config to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.StagingDir, c.ReportDir, c.LogDir, c.KeyDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("VOCALIS_KMS_API_KEY")); v != "" {
		cfg.KMS.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("VOCALIS_GEMINI_API_KEY")); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("VOCALIS_API_TOKEN")); v != "" {
		cfg.APIToken = v
	}
}
