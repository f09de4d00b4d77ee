package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/harun/stockagent/internal/config"
	"github.com/harun/stockagent/internal/logger"
	"github.com/harun/stockagent/internal/metrics"
	"github.com/harun/stockagent/internal/tracing"
	"github.com/harun/stockagent/pkg/gateway"
	"github.com/harun/stockagent/pkg/marketdata"
	"github.com/harun/stockagent/pkg/orchestrator"
	"github.com/harun/stockagent/pkg/reasoning"
	"github.com/harun/stockagent/pkg/toolexecutor"
)

// Daemon owns the long-lived components of the stock agent service
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	metrics    *metrics.Metrics
	market     marketdata.Provider
	reasoner   reasoning.Reasoner
	registry   *toolexecutor.Registry
	dispatcher *toolexecutor.Dispatcher
	pipeline   *orchestrator.Pipeline
	server     *gateway.Server

	startTime time.Time
	running   bool
	mu        sync.RWMutex

	tracingEnabled bool
}

var newReasoner = func(ctx context.Context, cfg config.ReasoningConfig) (reasoning.Reasoner, error) {
	return reasoning.New(ctx, cfg)
}

var newMarketProvider = func(cfg config.MarketDataConfig, log *logger.Logger) marketdata.Provider {
	return marketdata.NewYahooClient(marketdata.YahooConfig{
		BaseURL:   cfg.BaseURL,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		UserAgent: cfg.UserAgent,
	}, log.GetZerolog())
}

// New creates a daemon and wires every component from cfg
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	d := &Daemon{
		config:  cfg,
		logger:  log,
		metrics: metrics.NewMetrics(),
	}

	if cfg.Tracing.Enabled {
		if err := tracing.InitOpenTelemetry(cfg.Tracing.ServiceName); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without distributed tracing")
		} else {
			d.tracingEnabled = true
			log.Info().Msg("Tracing initialized successfully")
		}
	}

	if err := d.initializeCoreModules(ctx); err != nil {
		d.shutdownTracing()
		return nil, fmt.Errorf("failed to initialize core modules: %w", err)
	}

	return d, nil
}

// initializeCoreModules builds the pipeline bottom-up
func (d *Daemon) initializeCoreModules(ctx context.Context) error {
	cfg := d.config
	zl := d.logger.GetZerolog()

	d.market = newMarketProvider(cfg.MarketData, d.logger)

	reasoner, err := newReasoner(ctx, cfg.Reasoning)
	if err != nil {
		return fmt.Errorf("failed to create reasoner: %w", err)
	}
	d.reasoner = reasoner

	d.registry, err = toolexecutor.NewStockRegistry(d.market)
	if err != nil {
		return fmt.Errorf("failed to build tool registry: %w", err)
	}

	d.dispatcher = toolexecutor.NewDispatcher(d.registry, toolexecutor.DispatcherConfig{
		MaxConcurrency: cfg.Tools.MaxConcurrency,
		ReportRejected: cfg.Tools.ReportRejected,
		Timeout:        time.Duration(cfg.Tools.TimeoutSeconds) * time.Second,
	}, d.metrics, zl)

	d.pipeline = orchestrator.NewPipeline(d.reasoner, d.dispatcher, orchestrator.Config{
		Plan: orchestrator.StageOptions{
			MaxTokens:   cfg.Reasoning.PlanMaxTokens,
			Temperature: cfg.Reasoning.PlanTemperature,
		},
		Respond: orchestrator.StageOptions{
			MaxTokens:   cfg.Reasoning.RespondMaxTokens,
			Temperature: cfg.Reasoning.RespondTemperature,
		},
	}, d.metrics, zl)

	d.server, err = gateway.NewServer(gateway.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		StreamProgress: cfg.Server.StreamProgress,
		Pipeline:       d.pipeline,
		Metrics:        d.metrics,
		Logger:         zl,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	d.logger.Info().
		Str("provider", d.reasoner.Name()).
		Str("model", cfg.Reasoning.Model).
		Strs("tools", d.registry.ListTools()).
		Msg("Core modules initialized")

	return nil
}

// Start starts the HTTP server
func (d *Daemon) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("daemon is already running")
	}

	if err := d.server.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	d.running = true
	d.startTime = time.Now()
	d.logger.Info().Str("addr", d.server.Addr()).Msg("Stockagent started")

	return nil
}

// Stop drains in-flight queries and stops the server
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return fmt.Errorf("daemon is not running")
	}

	timeout := time.Duration(d.config.Server.ShutdownTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := d.server.Stop(ctx)
	d.shutdownTracing()
	d.running = false

	d.logger.Info().Dur("uptime", time.Since(d.startTime)).Msg("Stockagent stopped")

	return err
}

// Wait blocks until SIGINT or SIGTERM, then stops the daemon
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	sig := <-sigChan
	d.logger.Info().Str("signal", sig.String()).Msg("Received signal")

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

// ApplyConfig applies the hot-reloadable parts of a changed config
func (d *Daemon) ApplyConfig(cfg *config.Config) {
	if cfg.Logging.Level == d.logger.Level().String() {
		return
	}
	if err := d.logger.SetLevel(cfg.Logging.Level); err != nil {
		d.logger.Warn().Err(err).Str("level", cfg.Logging.Level).Msg("Ignoring invalid log level")
		return
	}
	d.logger.Info().Str("level", cfg.Logging.Level).Msg("Log level reloaded")
}

// Close flushes tracing for a daemon whose server was never started, as in
// one-shot queries. It is a no-op after Stop and may be called repeatedly.
func (d *Daemon) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shutdownTracing()
}

func (d *Daemon) shutdownTracing() {
	if !d.tracingEnabled {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracing.ShutdownOpenTelemetry(ctx); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to flush traces")
	}
	d.tracingEnabled = false
}

// Pipeline returns the query pipeline
func (d *Daemon) Pipeline() *orchestrator.Pipeline {
	return d.pipeline
}

// Addr returns the server's bound address
func (d *Daemon) Addr() string {
	return d.server.Addr()
}

// Running reports whether the server is up
func (d *Daemon) Running() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}
