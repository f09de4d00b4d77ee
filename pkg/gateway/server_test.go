package gateway

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/stockagent/internal/metrics"
	"github.com/harun/stockagent/internal/tracing"
	"github.com/harun/stockagent/pkg/marketdata"
	"github.com/harun/stockagent/pkg/orchestrator"
	"github.com/harun/stockagent/pkg/reasoning"
	"github.com/harun/stockagent/pkg/toolexecutor"
)

// scriptedRunner replays fixed events
type scriptedRunner struct {
	events  []orchestrator.Event
	queries []string
	queryID string
	mu      sync.Mutex
}

func (r *scriptedRunner) Run(ctx context.Context, query string) <-chan orchestrator.Event {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	r.queryID = tracing.GetQueryID(ctx)
	r.mu.Unlock()

	ch := make(chan orchestrator.Event, len(r.events))
	for _, ev := range r.events {
		ch <- ev
	}
	close(ch)
	return ch
}

func newTestServer(t *testing.T, runner QueryRunner, progress bool) *Server {
	t.Helper()
	s, err := NewServer(Config{
		Port:           0,
		StreamProgress: progress,
		Pipeline:       runner,
		Metrics:        metrics.NewMetrics(),
		Logger:         zerolog.Nop(),
	})
	require.NoError(t, err)
	return s
}

var script = []orchestrator.Event{
	{Type: orchestrator.EventAck, Text: "Processing query: AAPL?"},
	{Type: orchestrator.EventStage, Stage: orchestrator.StagePlan, Text: "Planned 1 tool call(s)"},
	{Type: orchestrator.EventStage, Stage: orchestrator.StageRun, Text: "Collected 1 tool result(s)"},
	{Type: orchestrator.EventAnswer, Stage: orchestrator.StageDone, Text: "AAPL is $190.00."},
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(Config{Port: 8080})
	assert.Error(t, err)

	_, err = NewServer(Config{Port: 70000, Pipeline: &scriptedRunner{}})
	assert.Error(t, err)
}

func TestHandleQuery_StreamsAckAndAnswer(t *testing.T) {
	runner := &scriptedRunner{events: script}
	s := newTestServer(t, runner, false)

	req := httptest.NewRequest(http.MethodGet, "/query?q=AAPL%3F", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Processing query: AAPL?\nAAPL is $190.00.\n", w.Body.String())
	assert.True(t, w.Flushed)

	require.Equal(t, []string{"AAPL?"}, runner.queries)
	assert.NotEmpty(t, w.Header().Get(QueryIDHeader))
	assert.Equal(t, w.Header().Get(QueryIDHeader), runner.queryID)
}

func TestHandleQuery_PassesQueryVerbatim(t *testing.T) {
	runner := &scriptedRunner{events: script}
	s := newTestServer(t, runner, false)

	req := httptest.NewRequest(http.MethodGet, "/query?q=%20%20AAPL%20", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"  AAPL "}, runner.queries)
}

func TestHandleQuery_StreamProgress(t *testing.T) {
	s := newTestServer(t, &scriptedRunner{events: script}, true)

	req := httptest.NewRequest(http.MethodGet, "/query?q=AAPL", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t,
		"Processing query: AAPL?\nPlanned 1 tool call(s)\nCollected 1 tool result(s)\nAAPL is $190.00.\n",
		w.Body.String())
}

func TestHandleQuery_ErrorIsFinalChunk(t *testing.T) {
	runner := &scriptedRunner{events: []orchestrator.Event{
		{Type: orchestrator.EventAck, Text: "Processing query: x"},
		{Type: orchestrator.EventError, Stage: orchestrator.StageError, Text: "Failed to call Bedrock: denied"},
	}}
	s := newTestServer(t, runner, false)

	req := httptest.NewRequest(http.MethodGet, "/query?q=x", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Processing query: x\nFailed to call Bedrock: denied\n", w.Body.String())
}

func TestHandleQuery_MissingQuery(t *testing.T) {
	runner := &scriptedRunner{events: script}
	s := newTestServer(t, runner, false)

	for _, target := range []string{"/query", "/query?q=", "/query?q=%20%20"} {
		t.Run(target, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, target, nil)
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "missing query parameter")
		})
	}
	assert.Empty(t, runner.queries)
}

func TestHandleQuery_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, &scriptedRunner{events: script}, false)

	req := httptest.NewRequest(http.MethodPost, "/query?q=x", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleQuery_CORS(t *testing.T) {
	s := newTestServer(t, &scriptedRunner{events: script}, false)

	req := httptest.NewRequest(http.MethodGet, "/query?q=x", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandleQuery_RejectsDuringShutdown(t *testing.T) {
	s := newTestServer(t, &scriptedRunner{events: script}, false)
	require.NoError(t, s.Stop(context.Background()))

	req := httptest.NewRequest(http.MethodGet, "/query?q=x", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	s := newTestServer(t, &scriptedRunner{events: script}, false)
	h := s.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	s.metrics.QueryStarted()
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "queries_in_flight")
}

// blockingReasoner blocks the plan call until released
type blockingReasoner struct {
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (b *blockingReasoner) Invoke(ctx context.Context, prompt string, opts ...reasoning.Option) (string, error) {
	b.mu.Lock()
	b.calls++
	n := b.calls
	b.mu.Unlock()

	if n == 1 {
		<-b.release
		return `{"tools": [{"name": "retrieve_realtime_stock_price", "args": {"symbol": "aapl"}}]}`, nil
	}
	return "Apple is at $190.00.", nil
}

func (b *blockingReasoner) Name() string { return "Bedrock" }

type fixedMarket struct{}

func (fixedMarket) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if symbol != "AAPL" {
		return 0, marketdata.ErrUnknownSymbol
	}
	return 190, nil
}

func (fixedMarket) HistoricalPrices(ctx context.Context, symbol string, start, end time.Time) (marketdata.Series, error) {
	return marketdata.Series{}, errors.New("not used")
}

func TestServer_EndToEndStreaming(t *testing.T) {
	registry, err := toolexecutor.NewStockRegistry(fixedMarket{})
	require.NoError(t, err)
	m := metrics.NewMetrics()
	dispatcher := toolexecutor.NewDispatcher(registry, toolexecutor.DispatcherConfig{}, m, zerolog.Nop())
	reasoner := &blockingReasoner{release: make(chan struct{})}
	pipeline := orchestrator.NewPipeline(reasoner, dispatcher, orchestrator.DefaultConfig(), m, zerolog.Nop())

	s, err := NewServer(Config{Host: "127.0.0.1", Port: 0, Pipeline: pipeline, Metrics: m, Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, s.Stop(ctx))
	}()

	resp, err := http.Get("http://" + s.Addr() + "/query?q=What+is+AAPL+trading+at%3F")
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)

	// Ack arrives while the plan call is still blocked
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "Processing query: What is AAPL trading at?\n", line)

	close(reasoner.release)

	rest, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "Apple is at $190.00.\n", string(rest))
}
