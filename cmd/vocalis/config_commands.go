package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vocalis/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}
	cmd.AddCommand(newConfigInitCommand(ctx), newConfigShowCommand(ctx))
	return cmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a sample config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(ctx.configPath)
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			if err := config.WriteSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample config to %s\n", path)
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"staging_dir", cfg.StagingDir},
				{"report_dir", cfg.ReportDir},
				{"log_dir", cfg.LogDir},
				{"key_dir", cfg.KeyDir},
				{"api_bind", cfg.APIBind},
				{"client_key_ttl_hours", fmt.Sprintf("%d", cfg.Keys.ClientKeyTTLHours)},
				{"server_key_bits", fmt.Sprintf("%d", cfg.Keys.ServerKeyBits)},
				{"kms.base_url", cfg.KMS.BaseURL},
				{"gemini.model", cfg.Gemini.Model},
				{"analyzer.ffmpeg_binary", cfg.Analyzer.FFmpegBinary},
				{"analyzer.stage_timeout_seconds", fmt.Sprintf("%d", cfg.Analyzer.StageTimeoutSeconds)},
				{"report.delivery_url", cfg.Report.DeliveryURL},
				{"notifications.ntfy_topic", cfg.Notifications.NtfyTopic},
				{"logging.format", cfg.Logging.Format},
				{"logging.level", cfg.Logging.Level},
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Setting", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}
