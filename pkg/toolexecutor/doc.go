// Package toolexecutor registers and executes the market data tools the
// planner may request.
//
// Invariants:
// - Tool names are unique and the registry is read-only once built.
// - Arguments are schema-validated before execution; invalid requests are
//   dropped (or reported, when configured) and never reach a handler.
// - Dispatch returns one result per accepted request, in request order,
//   regardless of completion order.
// - A failing or panicking tool produces a result with Error set; it never
//   aborts the other tools in the batch.
//
// Usage:
//
//	registry, _ := toolexecutor.NewStockRegistry(provider)
//	d := toolexecutor.NewDispatcher(registry, toolexecutor.DispatcherConfig{MaxConcurrency: 8}, m, log)
//	results := d.Dispatch(ctx, []toolexecutor.InvocationRequest{
//		{Name: toolexecutor.RealtimePriceTool, Args: map[string]any{"symbol": "AAPL"}},
//	})
package toolexecutor
