package planner

import (
	"reflect"
	"strings"
	"testing"

	"github.com/harun/stockagent/pkg/toolexecutor"
)

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []toolexecutor.InvocationRequest
	}{
		{
			name:  "single tool",
			input: `{"tools": [{"name": "retrieve_realtime_stock_price", "args": {"symbol": "AAPL"}}]}`,
			want: []toolexecutor.InvocationRequest{
				{Name: "retrieve_realtime_stock_price", Args: map[string]any{"symbol": "AAPL"}},
			},
		},
		{
			name: "multiple tools keep order",
			input: `{"tools": [
				{"name": "retrieve_historical_stock_price", "args": {"symbol": "MSFT", "start_date": "2024-01-01", "end_date": "2024-02-01"}},
				{"name": "retrieve_realtime_stock_price", "args": {"symbol": "AAPL"}}
			]}`,
			want: []toolexecutor.InvocationRequest{
				{Name: "retrieve_historical_stock_price", Args: map[string]any{"symbol": "MSFT", "start_date": "2024-01-01", "end_date": "2024-02-01"}},
				{Name: "retrieve_realtime_stock_price", Args: map[string]any{"symbol": "AAPL"}},
			},
		},
		{
			name:  "leading whitespace",
			input: " \n {\"tools\": [{\"name\": \"x\", \"args\": {}}]}\n",
			want:  []toolexecutor.InvocationRequest{{Name: "x", Args: map[string]any{}}},
		},
		{
			name:  "json code fence",
			input: "```json\n{\"tools\": [{\"name\": \"x\", \"args\": {\"n\": 1}}]}\n```",
			want:  []toolexecutor.InvocationRequest{{Name: "x", Args: map[string]any{"n": 1.0}}},
		},
		{
			name:  "bare code fence",
			input: "```\n{\"tools\": []}\n```",
			want:  []toolexecutor.InvocationRequest{},
		},
		{
			name:  "malformed elements skipped",
			input: `{"tools": [42, {"name": 7, "args": {}}, {"name": "y"}, {"name": "z", "args": []}, {"name": "ok", "args": {"symbol": "A"}}]}`,
			want:  []toolexecutor.InvocationRequest{{Name: "ok", Args: map[string]any{"symbol": "A"}}},
		},
		{name: "empty string", input: "", want: []toolexecutor.InvocationRequest{}},
		{name: "prose", input: "I would use the realtime price tool for AAPL.", want: []toolexecutor.InvocationRequest{}},
		{name: "prose around json", input: `Sure! {"tools": []}`, want: []toolexecutor.InvocationRequest{}},
		{name: "truncated json", input: `{"tools": [{"name": "x", "args": {`, want: []toolexecutor.InvocationRequest{}},
		{name: "missing tools", input: `{"steps": []}`, want: []toolexecutor.InvocationRequest{}},
		{name: "tools not array", input: `{"tools": {"name": "x"}}`, want: []toolexecutor.InvocationRequest{}},
		{name: "top level array", input: `[{"name": "x", "args": {}}]`, want: []toolexecutor.InvocationRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePlan(tt.input)
			if got == nil {
				t.Fatal("ParsePlan returned nil")
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParsePlan() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := map[string]string{
		"  {}  ":               "{}",
		"```json\n{}\n```":     "{}",
		"```\n{}\n```":         "{}",
		"```{}```":             "{}",
		"```":                  "```",
		"```json\n{\"a\":1}```": `{"a":1}`,
	}

	for in, want := range tests {
		if got := stripCodeFence(in); got != want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildPlanPrompt(t *testing.T) {
	prompt := BuildPlanPrompt("What is Apple trading at?", "- retrieve_realtime_stock_price(symbol)")

	for _, want := range []string{
		"User Query: What is Apple trading at?",
		"- retrieve_realtime_stock_price(symbol)",
		`{"tools": [{"name": "retrieve_realtime_stock_price", "args": {"symbol": "AAPL"}}]}`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("plan prompt missing %q", want)
		}
	}
}

func TestBuildRespondPrompt(t *testing.T) {
	results := []toolexecutor.ToolResult{
		{ToolName: "retrieve_realtime_stock_price", Symbol: "AAPL", Payload: map[string]any{"latest_price": "$190.00"}},
	}

	prompt, err := BuildRespondPrompt("price of AAPL?", results)
	if err != nil {
		t.Fatalf("BuildRespondPrompt failed: %v", err)
	}

	if !strings.Contains(prompt, `"price of AAPL?"`) {
		t.Error("respond prompt missing quoted query")
	}
	if !strings.Contains(prompt, `[{"tool":"retrieve_realtime_stock_price","symbol":"AAPL","latest_price":"$190.00"}]`) {
		t.Errorf("respond prompt missing results, got:\n%s", prompt)
	}
}

func TestBuildRespondPrompt_NoResults(t *testing.T) {
	prompt, err := BuildRespondPrompt("Delete my portfolio", nil)
	if err != nil {
		t.Fatalf("BuildRespondPrompt failed: %v", err)
	}
	if !strings.Contains(prompt, "\n[]\n") {
		t.Errorf("expected empty result list in prompt, got:\n%s", prompt)
	}
}
