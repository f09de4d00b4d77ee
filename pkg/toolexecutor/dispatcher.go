package toolexecutor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/harun/stockagent/internal/metrics"
	"github.com/harun/stockagent/internal/tracing"
)

// DispatcherConfig configures tool dispatch
type DispatcherConfig struct {
	// MaxConcurrency bounds how many tools run at once
	MaxConcurrency int

	// ReportRejected emits a result for each invalid request instead of dropping it
	ReportRejected bool

	// Timeout bounds each tool execution, zero means no limit
	Timeout time.Duration
}

// Dispatcher validates tool requests and executes the valid ones concurrently
type Dispatcher struct {
	registry *Registry
	config   DispatcherConfig
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher. m may be nil.
func NewDispatcher(registry *Registry, cfg DispatcherConfig, m *metrics.Metrics, logger zerolog.Logger) *Dispatcher {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	return &Dispatcher{
		registry: registry,
		config:   cfg,
		metrics:  m,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Registry returns the tool catalog the dispatcher validates against
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

type job struct {
	slot int
	req  InvocationRequest
	def  *ToolDefinition
}

// Dispatch executes every valid request and returns their results in
// submission order. Invalid requests are dropped unless ReportRejected is set.
// It never fails: execution errors are reported in ToolResult.Error.
func (d *Dispatcher) Dispatch(ctx context.Context, requests []InvocationRequest) []ToolResult {
	logger := tracing.LoggerFromContext(ctx, d.logger)

	results := make([]ToolResult, 0, len(requests))
	var jobs []job

	for _, req := range requests {
		if err := d.registry.Validate(req.Name, req.Args); err != nil {
			var rej *RejectionError
			reason := ReasonInvalidArguments
			if errors.As(err, &rej) {
				reason = rej.Reason
			}
			d.metrics.ToolRejected(reason)
			logger.Warn().
				Str("tool", req.Name).
				Str("reason", reason).
				Err(err).
				Msg("Tool request rejected")

			if d.config.ReportRejected {
				results = append(results, ToolResult{
					ToolName: req.Name,
					Symbol:   symbolOf(req.Args),
					Error:    "request rejected: " + err.Error(),
				})
			}
			continue
		}

		def, _ := d.registry.Lookup(req.Name)
		jobs = append(jobs, job{slot: len(results), req: req, def: def})
		results = append(results, ToolResult{})
	}

	var g errgroup.Group
	g.SetLimit(d.config.MaxConcurrency)

	for _, j := range jobs {
		g.Go(func() error {
			results[j.slot] = d.execute(ctx, j.def, j.req)
			return nil
		})
	}
	_ = g.Wait()

	logger.Debug().
		Int("requests", len(requests)).
		Int("executed", len(jobs)).
		Int("results", len(results)).
		Msg("Dispatch completed")

	return results
}

// execute runs one handler, turning errors and panics into the result's Error
func (d *Dispatcher) execute(ctx context.Context, def *ToolDefinition, req InvocationRequest) (result ToolResult) {
	start := time.Now()
	result = ToolResult{ToolName: def.Name, Symbol: symbolOf(req.Args)}

	ctx, span := tracing.StartSpan(ctx, "toolexecutor", "tool."+def.Name,
		attribute.String("tool.name", def.Name),
		attribute.String("tool.symbol", result.Symbol),
	)

	var execErr error
	defer func() {
		if r := recover(); r != nil {
			execErr = fmt.Errorf("tool panicked: %v", r)
			result.Payload = nil
			result.Error = execErr.Error()
		}

		duration := time.Since(start)
		d.metrics.ToolExecuted(def.Name, execErr == nil, duration)
		tracing.EndSpan(span, execErr)

		logger := tracing.LoggerFromContext(ctx, d.logger)
		event := logger.Debug()
		if execErr != nil {
			event = logger.Warn().Err(execErr)
		}
		event.
			Str("tool", def.Name).
			Str("symbol", result.Symbol).
			Dur("duration", duration).
			Msg("Tool execution finished")
	}()

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	payload, err := def.Handler(ctx, req.Args)
	if err != nil {
		execErr = err
		result.Error = err.Error()
		return result
	}

	result.Payload = payload
	return result
}

// Describe returns the capability list of the registry
func (d *Dispatcher) Describe() string {
	return d.registry.Describe()
}
