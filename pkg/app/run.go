// Package app wires configuration, storage, the session core, the
// expiry sweep, and the HTTP gateway into a running service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/flemzord/sessiond/internal/config"
	"github.com/flemzord/sessiond/internal/cron"
	"github.com/flemzord/sessiond/internal/gateway"
	"github.com/flemzord/sessiond/internal/genai"
	"github.com/flemzord/sessiond/internal/session"
	"github.com/flemzord/sessiond/internal/store/sqlite"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is the path to the YAML configuration file.
	ConfigPath string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level
}

// Run loads configuration, starts the gateway and the sweep scheduler,
// and blocks until a shutdown signal is received.
func Run(params RunParams) error {
	cfg, err := config.Load(params.ConfigPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: params.LogLevel,
	}))

	store, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	generator := genai.NewClient(genai.Config{
		APIKey:          cfg.GenAI.APIKey,
		BaseURL:         cfg.GenAI.BaseURL,
		ChatModel:       cfg.GenAI.ChatModel,
		SummaryModel:    cfg.GenAI.SummaryModel,
		RetrievalStore:  cfg.GenAI.RetrievalStore,
		MaxOutputTokens: cfg.GenAI.MaxOutputTokens,
		Timeout:         cfg.GenAI.Timeout,
	})

	compactor := session.NewCompactor(generator, session.CompactorConfig{
		TriggerTurns:  cfg.Session.TriggerTurns,
		KeepLastTurns: cfg.Session.KeepLastTurns,
		SummaryModel:  cfg.GenAI.SummaryModel,
	})

	manager := session.NewManager(
		store.MessageLog(),
		store.StateStore(),
		store.Index(),
		generator,
		compactor,
		session.ManagerConfig{
			SystemPrompt:            cfg.Session.SystemPrompt,
			AllowClientSystemPrompt: cfg.Session.AllowClientSystemPrompt,
			HistoryMaxMessages:      cfg.Session.HistoryMaxMessages,
			HistoryDefaultLimit:     cfg.Session.HistoryDefaultLimit,
		},
		logger,
	)

	gw := gateway.New(cfg.Server, manager, gateway.NewMetrics(), logger)

	scheduler := cron.NewScheduler(logger)
	sweep := &cron.ExpirySweepJob{
		Index:         store.Index(),
		Sessions:      manager,
		IdleThreshold: cfg.Sweep.IdleThreshold,
		BatchLimit:    cfg.Sweep.BatchLimit,
		Logger:        logger,
		ScheduleExpr:  cfg.Sweep.Schedule,
		OnSweep:       gw.Metrics().RecordSweep,
	}
	if err := scheduler.RegisterJob(sweep); err != nil {
		return err
	}

	if err := gw.Start(); err != nil {
		return err
	}
	if err := scheduler.Start(); err != nil {
		_ = gw.Stop(context.Background())
		return err
	}

	logger.Info("sessiond started",
		"bind", cfg.Server.Bind,
		"storage", cfg.Storage.Path,
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig
	logger.Info("shutting down", "signal", received.String())

	ctx := context.Background()
	if err := scheduler.Stop(ctx); err != nil {
		logger.Error("scheduler stop failed", "error", err)
	}
	if err := gw.Stop(ctx); err != nil {
		return fmt.Errorf("app: gateway shutdown: %w", err)
	}
	return nil
}
