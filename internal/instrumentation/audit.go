package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/roombooking/internal/logging"
)

// ToolInvocation captures one MCP tool call for audit logging.
//
// # Privacy Considerations
//
// Booker is a person's name. LogAttrs replaces it with a stable hash; only
// LogAuditAttrs emits it verbatim.
type ToolInvocation struct {
	Tool string

	// Reservation being acted on, when the tool takes one
	Booker        string
	Department    string
	Room          string
	Date          string
	ReservationID int64

	// Operation is the booking service operation performed, if any
	Operation string

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete() when the tool operation finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// WithBooking records who is booking which room on which date.
func (ti *ToolInvocation) WithBooking(department, booker, room, date string) *ToolInvocation {
	ti.Department = department
	ti.Booker = booker
	ti.Room = room
	ti.Date = date
	return ti
}

// WithOperation sets the booking service operation.
func (ti *ToolInvocation) WithOperation(operation string) *ToolInvocation {
	ti.Operation = operation
	return ti
}

// WithReservationID sets the id assigned by the booking service.
func (ti *ToolInvocation) WithReservationID(id int64) *ToolInvocation {
	ti.ReservationID = id
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID = GetTraceID(ctx)
	ti.SpanID = GetSpanID(ctx)
	return ti
}

// Complete marks the invocation as completed and calculates duration.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteWithError marks the invocation as failed with the given error.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// LogAttrs returns slog attributes with the booker name hashed.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := ti.commonAttrs()
	if ti.Booker != "" {
		attrs = append(attrs, logging.BookerHash(ti.Booker))
	}
	return ti.appendOutcome(attrs)
}

// LogAuditAttrs returns slog attributes including the booker and department
// verbatim. Route these logs to storage with appropriate access controls.
func (ti *ToolInvocation) LogAuditAttrs() []slog.Attr {
	attrs := ti.commonAttrs()
	if ti.Booker != "" {
		attrs = append(attrs, slog.String("booker", ti.Booker))
	}
	if ti.Department != "" {
		attrs = append(attrs, slog.String("department", ti.Department))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	return ti.appendOutcome(attrs)
}

func (ti *ToolInvocation) commonAttrs() []slog.Attr {
	attrs := []slog.Attr{
		logging.Tool(ti.Tool),
		slog.Duration(logging.KeyDuration, ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.Room != "" {
		attrs = append(attrs, logging.Room(ti.Room))
	}
	if ti.Date != "" {
		attrs = append(attrs, logging.Date(ti.Date))
	}
	if ti.Operation != "" {
		attrs = append(attrs, logging.Operation(ti.Operation))
	}
	if ti.ReservationID != 0 {
		attrs = append(attrs, logging.ReservationID(ti.ReservationID))
	}
	return attrs
}

func (ti *ToolInvocation) appendOutcome(attrs []slog.Attr) []slog.Attr {
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String(logging.KeyError, ti.Error))
	}
	return attrs
}

// AuditLogger provides structured audit logging for tool invocations.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an enabled AuditLogger that hashes booker names.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation logs a completed tool invocation. Successful calls are
// logged at info, failures at warn.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = ti.LogAuditAttrs()
	} else {
		attrs = ti.LogAttrs()
	}

	level := slog.LevelInfo
	msg := "tool_executed"
	if !ti.Success {
		level = slog.LevelWarn
		msg = "tool_failed"
	}
	al.logger.LogAttrs(context.Background(), level, msg, attrs...)
}
