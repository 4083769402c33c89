package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable by the daemon.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateKeys(); err != nil {
		return err
	}
	if err := c.validatePolicy(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.ReportDir) == "" {
		return errors.New("paths.report_dir must be set")
	}
	if strings.TrimSpace(c.KeyDir) == "" {
		return errors.New("paths.key_dir must be set")
	}
	return nil
}

func (c *Config) validateKeys() error {
	if c.Keys.ClientKeyTTLHours <= 0 {
		return errors.New("keys.client_key_ttl_hours must be positive")
	}
	if c.Keys.ServerKeyBits < 2048 {
		return errors.New("keys.server_key_bits must be at least 2048")
	}
	return nil
}

func (c *Config) validatePolicy() error {
	if c.Policy.PaceSlowWPS <= 0 || c.Policy.PaceFastWPS <= 0 {
		return errors.New("policy pace bands must be positive")
	}
	if c.Policy.PaceSlowWPS >= c.Policy.PaceFastWPS {
		return fmt.Errorf(
			"policy.pace_slow_wps (%.2f) must be below policy.pace_fast_wps (%.2f)",
			c.Policy.PaceSlowWPS, c.Policy.PaceFastWPS,
		)
	}
	if c.Policy.PostureGoodPct <= c.Policy.PostureAveragePct {
		return errors.New("policy.posture_good_pct must exceed policy.posture_average_pct")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must exceed workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
