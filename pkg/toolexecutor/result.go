package toolexecutor

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// InvocationRequest is one tool call proposed by the plan
type InvocationRequest struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResult is the outcome of one dispatched request
type ToolResult struct {
	ToolName string
	Symbol   string
	Payload  map[string]any
	Error    string
}

// Failed reports whether the tool produced an error instead of a payload
func (r ToolResult) Failed() bool {
	return r.Error != ""
}

// MarshalJSON flattens the result into
// {"tool": ..., "symbol": ..., <payload fields>..., "error": ...}
func (r ToolResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	write := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if err := write("tool", r.ToolName); err != nil {
		return nil, err
	}
	if err := write("symbol", r.Symbol); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(r.Payload))
	for k := range r.Payload {
		if k == "tool" || k == "symbol" || k == "error" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := write(k, r.Payload[k]); err != nil {
			return nil, err
		}
	}

	if r.Error != "" {
		if err := write("error", r.Error); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// symbolOf returns the upper-cased "symbol" argument, if any
func symbolOf(args map[string]any) string {
	s, _ := args["symbol"].(string)
	return strings.ToUpper(strings.TrimSpace(s))
}
