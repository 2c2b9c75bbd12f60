package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"go.uber.org/zap"

	"gracefulexit/core"
	"gracefulexit/journal"
	"gracefulexit/metrics"
	"gracefulexit/shutdown"
)

// Callback ordering for the stock cleanup actions.
const (
	orderMetricsServer = -10
	orderTempFiles     = 0
	orderLoggerSync    = 100

	metricsGracePeriod = 5 * time.Second
	tempFilePattern    = "temp_*"
)

// app holds everything the run and service commands wire together.
type app struct {
	cfg          *core.Config
	logger       *zap.Logger
	orchestrator *shutdown.Orchestrator
	signals      *shutdown.SignalSource
	faults       *shutdown.FaultSource
	service      *shutdown.ServiceSource
	recorder     *metrics.Recorder
	metrics      *metrics.Server
	journal      *journal.Journal
}

// appOptions overrides pieces of the default wiring.
type appOptions struct {
	service  *shutdown.ServiceSource
	console  io.Writer
	extra    []shutdown.Option
	triggers []string
}

// newApp builds the orchestrator with every trigger source, the journal,
// the metrics endpoint and the stock cleanup callbacks. Auto triggers are
// not armed; call start.
func newApp(cfg *core.Config, logger *zap.Logger, opts appOptions) (*app, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		signals:  shutdown.NewSignalSource(),
		faults:   shutdown.NewFaultSource(logger),
		service:  opts.service,
		recorder: metrics.NewRecorder(),
	}
	if a.service == nil {
		a.service = shutdown.NewServiceSource(nil)
	}

	shutdownCfg := shutdown.FromAppConfig(cfg)
	for _, id := range opts.triggers {
		if !slices.Contains(shutdownCfg.Triggers, id) {
			shutdownCfg.Triggers = append(shutdownCfg.Triggers, id)
		}
	}

	options := []shutdown.Option{
		shutdown.WithConfig(shutdownCfg),
		shutdown.WithTriggerSource(shutdown.MultiSource{a.signals, a.faults, a.service}),
		shutdown.WithInstrumentation(a.recorder),
		shutdown.WithListener(a.recorder.Observe),
	}
	if cfg.DevMode {
		console := opts.console
		if console == nil {
			console = os.Stderr
		}
		options = append(options, shutdown.WithListener(consoleListener(console)))
	}
	options = append(options, opts.extra...)

	o, err := shutdown.New(logger, options...)
	if err != nil {
		return nil, err
	}
	a.orchestrator = o

	if err := a.openJournal(); err != nil {
		return nil, err
	}
	if err := a.startMetrics(); err != nil {
		a.closeJournal()
		return nil, err
	}
	a.registerCallbacks()

	return a, nil
}

func (a *app) openJournal() error {
	if a.cfg.JournalPath == "" {
		return nil
	}

	j, err := journal.Open(a.cfg.JournalPath, a.orchestrator.RunID(), a.logger)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	a.journal = j
	a.orchestrator.OnAny(j.Record)
	return nil
}

func (a *app) closeJournal() {
	if a.journal == nil {
		return
	}
	if err := a.journal.Close(); err != nil {
		a.logger.Warn("Failed to close journal", zap.Error(err))
	}
}

func (a *app) startMetrics() error {
	if a.cfg.MetricsAddr == "" {
		return nil
	}

	server := metrics.NewServer(a.cfg.MetricsAddr, a.recorder, a.logger)
	server.OnError(func(err error) {
		a.faults.Report(fmt.Errorf("metrics server: %w", err))
	})
	if err := server.Start(); err != nil {
		return err
	}
	a.metrics = server
	return nil
}

func (a *app) registerCallbacks() {
	o := a.orchestrator

	if a.metrics != nil {
		o.AddCallback(shutdown.ShutdownHTTPServer(a.metrics.HTTPServer(), metricsGracePeriod),
			shutdown.Blocking(),
			shutdown.WithOrder(orderMetricsServer),
			shutdown.WithName("metrics-server"),
		)
	}
	if a.cfg.TempDir != "" {
		o.AddCallback(shutdown.RemoveMatching(a.logger, a.cfg.TempDir, tempFilePattern),
			shutdown.WithOrder(orderTempFiles),
			shutdown.WithName("temp-files"),
		)
	}
	o.AddCallback(shutdown.SyncLogger(a.logger),
		shutdown.Blocking(),
		shutdown.WithOrder(orderLoggerSync),
		shutdown.WithName("logger-sync"),
	)
}

// start arms the configured triggers.
func (a *app) start() {
	a.orchestrator.EnableAutoTriggers()
	a.logger.Info("Shutdown orchestrator armed",
		zap.String("run_id", a.orchestrator.RunID()),
		zap.Strings("triggers", a.orchestrator.Config().Triggers),
		zap.Strings("callbacks", a.orchestrator.RegisteredCallbacks()),
		zap.Duration("timeout", a.orchestrator.Config().Timeout),
	)
}
