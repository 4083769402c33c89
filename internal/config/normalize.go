package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Normalize expands paths and fills empty fields with defaults.
func (c *Config) Normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeKeys()
	c.normalizeAnalyzer()
	c.normalizeGemini()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.ReportDir, err = expandPath(c.Paths.ReportDir); err != nil {
		return fmt.Errorf("paths.report_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.KeyDir, err = expandPath(c.Paths.KeyDir); err != nil {
		return fmt.Errorf("paths.key_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeKeys() {
	if c.Keys.ClientKeyTTLHours <= 0 {
		c.Keys.ClientKeyTTLHours = defaultClientKeyTTLHours
	}
	if c.Keys.ServerKeyBits <= 0 {
		c.Keys.ServerKeyBits = defaultServerKeyBits
	}
}

func (c *Config) normalizeAnalyzer() {
	if strings.TrimSpace(c.Analyzer.FFmpegBinary) == "" {
		c.Analyzer.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Analyzer.StageTimeoutSeconds <= 0 {
		c.Analyzer.StageTimeoutSeconds = defaultStageTimeout
	}
	if c.Analyzer.DownloadTimeoutSecs <= 0 {
		c.Analyzer.DownloadTimeoutSecs = defaultDownloadTimeout
	}
	if c.Analyzer.MaxDownloadSizeBytes <= 0 {
		c.Analyzer.MaxDownloadSizeBytes = defaultMaxDownloadBytes
	}
}

func (c *Config) normalizeGemini() {
	c.Gemini.BaseURL = strings.TrimSpace(c.Gemini.BaseURL)
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = defaultGeminiBaseURL
	}
	if strings.TrimSpace(c.Gemini.Model) == "" {
		c.Gemini.Model = defaultGeminiModel
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Abs(trimmed)
}
