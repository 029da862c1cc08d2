// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for the roombooking server.
//
// # Metrics
//
// HTTP:
//   - http_requests_total: requests by method, route template and status
//   - http_request_duration_seconds: request durations
//   - http_rate_limited_total: requests rejected with 429
//
// Booking service:
//   - booking_backend_operations_total: calls by operation and status
//   - booking_backend_operation_duration_seconds: call durations
//
// Pending booking slot:
//   - pending_booking_events_total: staged, overwritten, taken, empty, cleared
//
// MCP tools:
//   - mcp_tool_invocations_total: invocations by tool and status
//   - mcp_tool_duration_seconds: tool execution durations
//
// Room and path labels are reduced with RoomLabel and PathLabel so caller
// input cannot grow the label set.
//
// # Tracing
//
// Spans are created for MCP tool invocations (tool.<name>) and booking
// service calls (backend.<operation>). Tracing is off unless an exporter is
// configured.
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordBackendOperation(ctx, instrumentation.OperationList, instrumentation.StatusSuccess, time.Since(start))
package instrumentation
