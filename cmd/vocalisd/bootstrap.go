package main

import (
	"fmt"
	"log/slog"
	"time"

	"vocalis/internal/analyzer"
	"vocalis/internal/config"
	"vocalis/internal/crypto"
	"vocalis/internal/daemon"
	"vocalis/internal/identity"
	"vocalis/internal/keystore"
	"vocalis/internal/kms"
	"vocalis/internal/notifications"
	"vocalis/internal/pipeline"
	"vocalis/internal/queue"
	"vocalis/internal/report"
	"vocalis/internal/services/gemini"
	"vocalis/internal/workflow"
)

// bootstrap wires stores, protocol services, and the stage pipeline into a
// ready-to-start daemon.
func bootstrap(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}

	users, err := identity.Open(cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open user store: %w", err)
	}

	keys, err := keystore.Open(cfg)
	if err != nil {
		store.Close()
		users.Close()
		return nil, fmt.Errorf("open key store: %w", err)
	}

	serverKeys, err := crypto.LoadOrGenerateServerKeys(cfg.KeyDir, cfg.Keys.ServerKeyBits)
	if err != nil {
		store.Close()
		users.Close()
		keys.Close()
		return nil, fmt.Errorf("load server keys: %w", err)
	}

	keyTTL := time.Duration(cfg.Keys.ClientKeyTTLHours) * time.Hour
	exchange := keystore.NewExchange(keys, *serverKeys, keyTTL, logger)

	custodian := kms.NewClient(cfg.KMS.BaseURL, cfg.KMS.APIKey,
		kms.WithTimeout(time.Duration(cfg.KMS.TimeoutSeconds)*time.Second))
	registrar := identity.NewRegistrar(users, custodian, logger)
	directory := identity.NewDirectory(users, logger)

	narrative := gemini.NewClient(cfg.Gemini.APIKey,
		gemini.WithBaseURL(cfg.Gemini.BaseURL),
		gemini.WithModel(cfg.Gemini.Model),
		gemini.WithTimeout(time.Duration(cfg.Gemini.TimeoutSeconds)*time.Second))

	analysis := analyzer.NewService(cfg.Analyzer, cfg.Policy)
	stageTimeout := time.Duration(cfg.Analyzer.StageTimeoutSeconds) * time.Second
	runner := pipeline.NewRunner(analysis, narrative, stageTimeout, logger)

	deliverer := report.NewDeliverer(cfg.Report.DeliveryURL,
		time.Duration(cfg.Report.TimeoutSeconds)*time.Second)

	stages := workflow.StageSet{
		Fetch:   pipeline.NewFetcher(cfg, logger),
		Analyze: pipeline.NewAnalyzeHandler(runner),
		Report:  report.NewHandler(report.NewRenderer(cfg.ReportDir), deliverer, users, logger),
	}

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManager(cfg, store, logger, notifier, stages)

	return daemon.New(cfg, logger, daemon.Deps{
		Store:     store,
		Users:     users,
		Keys:      keys,
		Exchange:  exchange,
		Registrar: registrar,
		Directory: directory,
		Workflow:  manager,
		Notifier:  notifier,
	})
}
