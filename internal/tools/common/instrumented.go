package common

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/roombooking/internal/instrumentation"
	"github.com/teemow/roombooking/internal/server"
)

// ToolHandler is the signature of an MCP tool handler.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with tracing, metrics and
// audit logging.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return InstrumentedToolHandlerWithOperation(toolName, "", sc, handler)
}

// InstrumentedToolHandlerWithOperation is like InstrumentedToolHandler but
// also records which booking service operation the tool performs.
//
// The room named in the arguments is added to the span and audit record,
// and to metrics when detailed labels are enabled.
func InstrumentedToolHandlerWithOperation(toolName, operation string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := ReservationFromRequest(request)

		attrs := instrumentation.NewSpanAttributeBuilder().
			WithRoom(args.RoomName).
			WithDate(args.Date)
		if operation != "" {
			attrs.WithOperation(operation)
		}

		ctx, span := instrumentation.StartToolSpan(ctx, toolName, attrs.Build()...)
		defer span.End()

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithBooking(args.Department, args.BookerName, args.RoomName, args.Date).
			WithOperation(operation)

		result, err := handler(context.WithValue(ctx, invocationKey{}, invocation), request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			resultErr := errors.New(resultText(result))
			invocation.CompleteWithError(resultErr)
			instrumentation.SetSpanError(span, resultErr)
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}

		sc.Metrics().RecordToolInvocationWithRoom(ctx, toolName, status, args.RoomName, duration)
		sc.AuditLogger().LogToolInvocation(invocation)

		return result, err
	}
}

type invocationKey struct{}

// RecordReservationID attaches the id assigned by the booking service to the
// current tool span and audit record. Outside an instrumented handler only
// the span, if any, is updated.
func RecordReservationID(ctx context.Context, id int64) {
	trace.SpanFromContext(ctx).SetAttributes(
		instrumentation.NewSpanAttributeBuilder().WithReservationID(id).Build()...)
	if invocation, ok := ctx.Value(invocationKey{}).(*instrumentation.ToolInvocation); ok {
		invocation.WithReservationID(id)
	}
}

// resultText returns the first text content of a tool result.
func resultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if text, ok := c.(mcp.TextContent); ok {
			return text.Text
		}
	}
	return "tool returned an error result"
}
