package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harun/stockagent/internal/metrics"
	"github.com/harun/stockagent/internal/tracing"
	"github.com/harun/stockagent/pkg/planner"
	"github.com/harun/stockagent/pkg/reasoning"
	"github.com/harun/stockagent/pkg/toolexecutor"
)

// NoAnswerText replaces an empty respond completion
const NoAnswerText = "Failed to generate final response."

// ToolDispatcher runs tool requests and describes the available tools
type ToolDispatcher interface {
	Dispatch(ctx context.Context, requests []toolexecutor.InvocationRequest) []toolexecutor.ToolResult
	Describe() string
}

// StageOptions are the sampling parameters for one reasoning stage
type StageOptions struct {
	MaxTokens   int
	Temperature float64
}

// Config configures the pipeline
type Config struct {
	Plan    StageOptions
	Respond StageOptions
}

// DefaultConfig returns the plan and respond sampling defaults
func DefaultConfig() Config {
	return Config{
		Plan:    StageOptions{MaxTokens: 300, Temperature: 0.3},
		Respond: StageOptions{MaxTokens: 200, Temperature: 0.5},
	}
}

// Pipeline answers one query at a time through Plan, Run and Respond.
// A Pipeline holds no per-query state and is safe for concurrent use.
type Pipeline struct {
	reasoner   reasoning.Reasoner
	dispatcher ToolDispatcher
	config     Config
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewPipeline creates a pipeline. m may be nil.
func NewPipeline(reasoner reasoning.Reasoner, dispatcher ToolDispatcher, cfg Config, m *metrics.Metrics, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		reasoner:   reasoner,
		dispatcher: dispatcher,
		config:     cfg,
		metrics:    m,
		logger:     logger.With().Str("component", "pipeline").Logger(),
	}
}

// AckText is the first chunk sent for query
func AckText(query string) string {
	return "Processing query: " + query
}

// Run starts the pipeline for query and returns its event stream. The first
// event is always the acknowledgment; the last is exactly one answer or error,
// after which the channel is closed.
//
// Work runs on a context detached from ctx: cancelling ctx stops event
// delivery and prevents further stages from starting, but in-flight
// reasoning and tool calls complete.
func (p *Pipeline) Run(ctx context.Context, query string) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)

		emit := func(ev Event) bool {
			if ctx.Err() != nil {
				return false
			}
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		p.run(ctx, query, emit)
	}()

	return events
}

// Execute runs the pipeline to completion without streaming and returns the
// final state
func (p *Pipeline) Execute(ctx context.Context, query string) *PipelineState {
	return p.run(ctx, query, func(Event) bool { return true })
}

func (p *Pipeline) run(ctx context.Context, query string, emit func(Event) bool) *PipelineState {
	work := tracing.NewQueryContext(tracing.Detach(ctx))
	work, span := tracing.StartSpan(work, "orchestrator", "pipeline.query",
		attribute.String("query.id", tracing.GetQueryID(work)),
	)
	logger := tracing.LoggerFromContext(work, p.logger)

	state := &PipelineState{Query: query, Stage: StagePlan}
	start := time.Now()
	p.metrics.QueryStarted()

	defer func() {
		p.metrics.QueryFinished(state.Status())
		tracing.EndSpan(span, state.Err)
		logger.Info().
			Str("status", state.Status()).
			Int("requests", len(state.Requests)).
			Int("results", len(state.Results)).
			Dur("duration", time.Since(start)).
			Msg("Query finished")
	}()

	logger.Info().Str("query", query).Msg("Query received")

	if !emit(Event{Type: EventAck, Text: AckText(query)}) {
		return state
	}

	// Plan
	if err := p.plan(work, state); err != nil {
		p.fail(state, err)
		emit(Event{Type: EventError, Stage: StageError, Text: state.Err.Error()})
		return state
	}
	if !emit(Event{Type: EventStage, Stage: StagePlan, Text: fmt.Sprintf("Planned %d tool call(s)", len(state.Requests))}) {
		return state
	}

	// Run
	state.Stage = StageRun
	p.runTools(work, state)
	if !emit(Event{Type: EventStage, Stage: StageRun, Text: fmt.Sprintf("Collected %d tool result(s)", len(state.Results))}) {
		return state
	}

	// Respond
	state.Stage = StageRespond
	if err := p.respond(work, state); err != nil {
		p.fail(state, err)
		emit(Event{Type: EventError, Stage: StageError, Text: state.Err.Error()})
		return state
	}

	state.Stage = StageDone
	emit(Event{Type: EventAnswer, Stage: StageDone, Text: state.Answer()})
	return state
}

// reasoningError is the user-visible form of a reasoner failure
type reasoningError struct {
	provider string
	err      error
}

func (e *reasoningError) Error() string {
	return fmt.Sprintf("Failed to call %s: %v", e.provider, e.err)
}

func (e *reasoningError) Unwrap() error {
	return e.err
}

func (p *Pipeline) fail(state *PipelineState, err error) {
	state.Stage = StageError
	state.Err = &reasoningError{provider: p.reasoner.Name(), err: err}
}

func (p *Pipeline) plan(ctx context.Context, state *PipelineState) (err error) {
	ctx, span := tracing.StartSpan(ctx, "orchestrator", "pipeline.plan")
	start := time.Now()
	defer func() {
		p.metrics.ObserveStage(string(StagePlan), time.Since(start))
		tracing.EndSpan(span, err)
	}()

	prompt := planner.BuildPlanPrompt(state.Query, p.dispatcher.Describe())
	completion, err := p.invoke(ctx, StagePlan, prompt, p.config.Plan)
	if err != nil {
		return err
	}

	state.Requests = planner.ParsePlan(completion)
	span.SetAttributes(attribute.Int("plan.requests", len(state.Requests)))

	logger := tracing.LoggerFromContext(ctx, p.logger)
	if len(state.Requests) == 0 && strings.TrimSpace(completion) != "" {
		logger.Debug().Str("completion", completion).Msg("Plan completion yielded no tool requests")
	}
	logger.Debug().Int("requests", len(state.Requests)).Msg("Plan stage completed")

	return nil
}

func (p *Pipeline) runTools(ctx context.Context, state *PipelineState) {
	ctx, span := tracing.StartSpan(ctx, "orchestrator", "pipeline.run",
		attribute.Int("run.requests", len(state.Requests)),
	)
	start := time.Now()
	defer func() {
		p.metrics.ObserveStage(string(StageRun), time.Since(start))
		tracing.EndSpan(span, nil)
	}()

	state.Results = p.dispatcher.Dispatch(ctx, state.Requests)
	span.SetAttributes(attribute.Int("run.results", len(state.Results)))
}

func (p *Pipeline) respond(ctx context.Context, state *PipelineState) (err error) {
	ctx, span := tracing.StartSpan(ctx, "orchestrator", "pipeline.respond")
	start := time.Now()
	defer func() {
		p.metrics.ObserveStage(string(StageRespond), time.Since(start))
		tracing.EndSpan(span, err)
	}()

	prompt, err := planner.BuildRespondPrompt(state.Query, state.Results)
	if err != nil {
		return err
	}

	completion, err := p.invoke(ctx, StageRespond, prompt, p.config.Respond)
	if err != nil {
		return err
	}

	answer := strings.TrimSpace(completion)
	if answer == "" {
		answer = NoAnswerText
	}
	state.FinalAnswer = &answer
	return nil
}

func (p *Pipeline) invoke(ctx context.Context, stage Stage, prompt string, opts StageOptions) (string, error) {
	start := time.Now()
	completion, err := p.reasoner.Invoke(ctx, prompt,
		reasoning.WithMaxTokens(opts.MaxTokens),
		reasoning.WithTemperature(opts.Temperature),
	)
	p.metrics.ReasoningCall(string(stage), err)

	logger := tracing.LoggerFromContext(ctx, p.logger)
	if err != nil {
		logger.Error().
			Err(err).
			Str("stage", string(stage)).
			Str("provider", p.reasoner.Name()).
			Dur("duration", time.Since(start)).
			Msg("Reasoning call failed")
		return "", err
	}

	logger.Debug().
		Str("stage", string(stage)).
		Dur("duration", time.Since(start)).
		Msg("Reasoning call completed")
	return completion, nil
}
