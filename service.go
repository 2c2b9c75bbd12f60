package main

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gracefulexit/shutdown"
)

// serviceStopSlack is added to the shutdown timeout when the service manager
// waits for Stop to return.
const serviceStopSlack = 5 * time.Second

// serviceConfig describes the installed service. The service manager starts
// it with "service run", forwarding --config when set.
func serviceConfig(configPath string) *service.Config {
	args := []string{"service", "run"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	return &service.Config{
		Name:        "gracefulexit",
		DisplayName: "Graceful Exit",
		Description: "Runs cleanup callbacks in order on shutdown with a hard deadline",
		Arguments:   args,
	}
}

func newServiceCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the system service",
	}

	for _, action := range service.ControlAction {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the system service", action),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := service.New(shutdown.NewServiceSource(nil), serviceConfig(*configPath))
				if err != nil {
					return fmt.Errorf("failed to create service: %w", err)
				}
				if err := service.Control(svc, action); err != nil {
					return fmt.Errorf("failed to %s service: %w", action, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Service %s: ok\n", action)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the system service status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service.New(shutdown.NewServiceSource(nil), serviceConfig(*configPath))
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}
			status, err := svc.Status()
			if err != nil {
				return fmt.Errorf("failed to get service status: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Service is %s\n", statusLabel(status))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run under the service manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(*configPath)
		},
	})
	return cmd
}

// runService runs the application with the service manager as an extra
// trigger source. Termination records the exit code instead of exiting so
// the service manager sees Stop return.
func runService(configPath string) error {
	cfg, err := loadSettings(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	var (
		a        *app
		exitCode atomic.Int64
	)
	source := shutdown.NewServiceSource(func() { a.start() })

	a, err = newApp(cfg, logger, appOptions{
		service:  source,
		triggers: []string{shutdown.TriggerServiceStop},
		extra: []shutdown.Option{
			shutdown.WithTerminate(func(code int) { exitCode.Store(int64(code)) }),
		},
	})
	if err != nil {
		logger.Error("Failed to start service", zap.Error(err))
		_ = logger.Sync()
		return err
	}
	source.WaitFor(a.orchestrator.Done(), cfg.ShutdownTimeout+serviceStopSlack)

	svc, err := service.New(source, serviceConfig(configPath))
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	if err := svc.Run(); err != nil {
		return fmt.Errorf("service run failed: %w", err)
	}

	os.Exit(int(exitCode.Load()))
	return nil
}

func statusLabel(status service.Status) string {
	switch status {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "in an unknown state"
	}
}
