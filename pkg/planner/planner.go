package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/harun/stockagent/pkg/toolexecutor"
)

// ParsePlan decodes a plan completion of the form
//
//	{"tools": [{"name": "...", "args": {...}}, ...]}
//
// into tool requests. It never fails: undecodable text yields an empty plan
// and malformed elements are skipped one by one. Surrounding whitespace and a
// Markdown code fence are tolerated.
func ParsePlan(completion string) []toolexecutor.InvocationRequest {
	requests := []toolexecutor.InvocationRequest{}

	raw := stripCodeFence(completion)
	if !gjson.Valid(raw) {
		return requests
	}

	tools := gjson.Parse(raw).Get("tools")
	if !tools.IsArray() {
		return requests
	}

	tools.ForEach(func(_, elem gjson.Result) bool {
		if !elem.IsObject() {
			return true
		}
		name := elem.Get("name")
		if name.Type != gjson.String {
			return true
		}
		args := elem.Get("args")
		if !args.IsObject() {
			return true
		}
		argMap, ok := args.Value().(map[string]any)
		if !ok {
			return true
		}

		requests = append(requests, toolexecutor.InvocationRequest{
			Name: name.String(),
			Args: argMap,
		})
		return true
	})

	return requests
}

// stripCodeFence trims whitespace and removes a surrounding ``` fence,
// including an optional language tag on the opening line
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}

	body := strings.TrimSuffix(s[3:], "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		tag := strings.TrimSpace(body[:nl])
		if tag == "" || !strings.ContainsAny(tag, "{[") {
			body = body[nl+1:]
		}
	}
	return strings.TrimSpace(body)
}

// BuildPlanPrompt asks the model which tools answer query
func BuildPlanPrompt(query, capabilities string) string {
	return fmt.Sprintf(`
You are an AI agent that receives user questions about stocks. Respond in JSON format listing what tools to use and their arguments.

Available tools:
%s

Example output:
{"tools": [{"name": "retrieve_realtime_stock_price", "args": {"symbol": "AAPL"}}]}

User Query: %s
`, capabilities, query)
}

// BuildRespondPrompt asks the model to answer query from the tool results
func BuildRespondPrompt(query string, results []toolexecutor.ToolResult) (string, error) {
	if results == nil {
		results = []toolexecutor.ToolResult{}
	}
	summary, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool results: %w", err)
	}

	return fmt.Sprintf(`
The user asked the following question:

"%s"

Here are the results from calling the relevant tools in JSON format:

%s

Write a clear, user-friendly answer based on the above.
`, query, summary), nil
}
