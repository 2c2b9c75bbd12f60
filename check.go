package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gracefulexit/core"
	"gracefulexit/core/validation"
	"gracefulexit/journal"
	"gracefulexit/shutdown"
)

func newCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and the environment without running",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(*configPath)
			if err != nil {
				return err
			}

			result := preflightSuite(cfg).WithOutput(cmd.OutOrStdout()).Validate()
			if !result.Success {
				return fmt.Errorf("%s: %w", result.Summary(), result.GetFirstError())
			}
			return nil
		},
	}
}

// preflightSuite builds the startup checks for cfg.
func preflightSuite(cfg *core.Config) *validation.Suite {
	suite := validation.NewSuite("gracefulexit Startup Checks")

	suite.Add(validation.Check{
		Name: "Configuration",
		Run: func() (string, error) {
			if err := cfg.Validate(); err != nil {
				return "", err
			}
			return fmt.Sprintf("timeout %v, exit delay %v", cfg.ShutdownTimeout, cfg.ExitDelay), nil
		},
	})

	suite.Add(validation.Check{
		Name: "Shutdown triggers",
		Run: func() (string, error) {
			shutdownCfg := shutdown.FromAppConfig(cfg)
			source := shutdown.MultiSource{
				shutdown.NewSignalSource(),
				shutdown.NewFaultSource(nil),
				shutdown.NewServiceSource(nil),
			}
			if err := shutdownCfg.Validate(source); err != nil {
				return "", err
			}
			return strings.Join(shutdownCfg.Triggers, ", "), nil
		},
	})

	suite.Add(validation.Check{
		Name: "Log file",
		Run: func() (string, error) {
			return validation.CheckWritableFile(cfg.LogFile, validation.MinFreeBytes)
		},
	})

	journalCheck := validation.Check{
		Name: "Lifecycle journal",
		Run: func() (string, error) {
			if _, err := validation.CheckWritableFile(cfg.JournalPath, validation.MinFreeBytes); err != nil {
				return "", err
			}
			if err := journal.Migrate(cfg.JournalPath); err != nil {
				return "", err
			}
			version, _, err := journal.SchemaVersion(cfg.JournalPath)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s (schema v%d)", cfg.JournalPath, version), nil
		},
	}
	if cfg.JournalPath == "" {
		journalCheck.Skip = "disabled"
	}
	suite.Add(journalCheck)

	metricsCheck := validation.Check{
		Name: "Metrics address",
		Run: func() (string, error) {
			return validation.CheckListenAddr(cfg.MetricsAddr)
		},
	}
	if cfg.MetricsAddr == "" {
		metricsCheck.Skip = "disabled"
	}
	suite.Add(metricsCheck)

	tempCheck := validation.Check{
		Name: "Temp directory",
		Run: func() (string, error) {
			return validation.CheckDirectory(cfg.TempDir)
		},
	}
	if cfg.TempDir == "" {
		tempCheck.Skip = "disabled"
	}
	suite.Add(tempCheck)

	return suite
}

// runStartupValidation runs the preflight checks quietly and logs failures.
func runStartupValidation(cfg *core.Config, logger *zap.Logger) error {
	result := preflightSuite(cfg).WithShowProgress(false).Validate()
	if result.Success {
		logger.Info("Startup validation passed",
			zap.Int("checks_passed", result.PassedSteps),
			zap.Int("checks_skipped", result.Skipped),
			zap.Duration("duration", result.Duration),
		)
		return nil
	}

	for _, step := range result.Steps {
		if step.Status == validation.StepFailed {
			logger.Error("Validation step failed",
				zap.String("step", step.Name),
				zap.Error(step.Error),
			)
		}
	}
	return fmt.Errorf("startup validation failed: %w", result.GetFirstError())
}
