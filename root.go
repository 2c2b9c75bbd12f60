package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gracefulexit/core"
	"gracefulexit/logging"
)

// newRootCmd builds the command tree. Running the root command without a
// subcommand is the same as "run".
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "gracefulexit",
		Short:         "Run a process with ordered, deadline-bounded graceful shutdown",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForeground(cmd, configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML file overlaid on the environment configuration")

	root.AddCommand(
		newRunCmd(&configPath),
		newHistoryCmd(&configPath),
		newCheckCmd(&configPath),
		newServiceCmd(&configPath),
		newVersionCmd(),
	)
	return root
}

// loadSettings reads .env, the environment and the optional YAML overlay.
func loadSettings(configPath string) (*core.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := core.LoadConfig()
	if err != nil {
		return nil, err
	}
	if configPath == "" {
		return cfg, nil
	}
	return core.LoadConfigFile(configPath, cfg)
}

func newLogger(cfg *core.Config) *zap.Logger {
	return logging.NewLogger(logging.Options{
		Level:       cfg.LogLevel,
		Development: cfg.DevMode,
		File:        cfg.LogFile,
	})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gracefulexit %s\n", core.GetVersionInfo())
		},
	}
}
