package orchestrator

import (
	"github.com/harun/stockagent/pkg/toolexecutor"
)

// Stage is a state of the query pipeline
type Stage string

const (
	StagePlan    Stage = "plan"    // Choose tools for the query
	StageRun     Stage = "run"     // Execute the chosen tools
	StageRespond Stage = "respond" // Write the answer from the tool results
	StageDone    Stage = "done"    // Answer available
	StageError   Stage = "error"   // Reasoning failed, no answer
)

// EventType classifies pipeline events
type EventType string

const (
	EventAck    EventType = "ack"    // Query accepted, always first
	EventStage  EventType = "stage"  // A stage finished
	EventAnswer EventType = "answer" // Final answer, terminal
	EventError  EventType = "error"  // Final error text, terminal
)

// Event is one item of the stream produced by Pipeline.Run
type Event struct {
	Type  EventType
	Stage Stage
	Text  string
}

// Terminal reports whether the event ends the stream
func (e Event) Terminal() bool {
	return e.Type == EventAnswer || e.Type == EventError
}

// PipelineState is threaded through the stages of one invocation.
// Stages only ever add to it.
type PipelineState struct {
	Query       string
	Stage       Stage
	Requests    []toolexecutor.InvocationRequest
	Results     []toolexecutor.ToolResult
	FinalAnswer *string
	Err         error
}

// Answer returns the final answer, or "" when none was produced
func (s *PipelineState) Answer() string {
	if s.FinalAnswer == nil {
		return ""
	}
	return *s.FinalAnswer
}

// Status returns the metric label for the terminal state
func (s *PipelineState) Status() string {
	switch {
	case s.Err != nil:
		return "failed"
	case s.FinalAnswer != nil:
		return "answered"
	default:
		return "abandoned"
	}
}
