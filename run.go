package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run in the foreground until a shutdown trigger fires",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForeground(cmd, *configPath)
		},
	}
}

// runForeground wires the application and parks until the orchestrator
// terminates the process.
func runForeground(cmd *cobra.Command, configPath string) error {
	cfg, err := loadSettings(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	logger.Info("Configuration loaded",
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Duration("exit_delay", cfg.ExitDelay),
		zap.Int("timeout_exit_code", cfg.TimeoutExitCode),
		zap.Int("force_after", cfg.ForceAfter),
		zap.String("journal", cfg.JournalPath),
		zap.String("metrics_addr", cfg.MetricsAddr),
		zap.Bool("dev_mode", cfg.DevMode),
	)

	if err := runStartupValidation(cfg, logger); err != nil {
		_ = logger.Sync()
		return err
	}

	a, err := newApp(cfg, logger, appOptions{console: cmd.ErrOrStderr()})
	if err != nil {
		logger.Error("Failed to start", zap.Error(err))
		_ = logger.Sync()
		return err
	}
	defer a.faults.Recover()

	a.start()
	<-a.orchestrator.Done()
	return nil
}
