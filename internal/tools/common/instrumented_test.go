package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/teemow/roombooking/internal/instrumentation"
	"github.com/teemow/roombooking/internal/logging"
	"github.com/teemow/roombooking/internal/server"
	"github.com/teemow/roombooking/internal/server/servertest"
)

func newServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), server.Options{
		Bookings: &servertest.FakeBookings{},
		Logger:   logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func bookingRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestInstrumentedToolHandler(t *testing.T) {
	tests := []struct {
		name      string
		handler   ToolHandler
		wantErr   bool
		wantError bool
	}{
		{
			name: "success",
			handler: func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultText("ok"), nil
			},
		},
		{
			name: "go error is propagated",
			handler: func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return nil, errors.New("boom")
			},
			wantErr: true,
		},
		{
			name: "error result is passed through",
			handler: func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultError("room taken"), nil
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := newServerContext(t)
			called := false
			wrapped := InstrumentedToolHandler("test_tool", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				called = true
				return tt.handler(ctx, req)
			})

			result, err := wrapped(context.Background(), bookingRequest(nil))
			assert.True(t, called)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, tt.wantError, result.IsError)
		})
	}
}

func TestInstrumentedToolHandler_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := instrumentation.NewMetrics(mp.Meter("test"), true)
	require.NoError(t, err)

	sc := newServerContext(t)
	sc.SetMetrics(metrics)

	ok := InstrumentedToolHandlerWithOperation("book_guest", instrumentation.OperationCreate, sc,
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("booked"), nil
		})
	failing := InstrumentedToolHandlerWithOperation("book_guest", instrumentation.OperationCreate, sc,
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultError("booking failed: conflict"), nil
		})

	req := bookingRequest(map[string]any{ArgRoomName: "Focus Room"})
	_, err = ok(context.Background(), req)
	require.NoError(t, err)
	_, err = failing(context.Background(), req)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "mcp_tool_invocations_total" {
				continue
			}
			sum, isSum := m.Data.(metricdata.Sum[int64])
			require.True(t, isSum)
			for _, dp := range sum.DataPoints {
				status, _ := dp.Attributes.Value(attribute.Key("status"))
				room, _ := dp.Attributes.Value(attribute.Key("room"))
				assert.Equal(t, "Focus Room", room.AsString())
				counts[status.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{
		instrumentation.StatusSuccess: 1,
		instrumentation.StatusError:   1,
	}, counts)
}

func TestInstrumentedToolHandler_AuditLog(t *testing.T) {
	var buf bytes.Buffer
	sc := newServerContext(t)
	sc.SetAuditLogger(instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil))))

	wrapped := InstrumentedToolHandlerWithOperation("book_guest", instrumentation.OperationCreate, sc,
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultError("booking failed: Focus Room is already booked"), nil
		})

	_, err := wrapped(context.Background(), bookingRequest(map[string]any{
		ArgDepartment: "Design",
		ArgBookerName: "Kim",
		ArgRoomName:   "Focus Room",
		ArgDate:       "2025-01-10",
	}))
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "tool_failed", entry["msg"])
	assert.Equal(t, "book_guest", entry[logging.KeyTool])
	assert.Equal(t, "Focus Room", entry[logging.KeyRoom])
	assert.Equal(t, logging.AnonymizeName("Kim"), entry[logging.KeyBookerHash])
	assert.Equal(t, "booking failed: Focus Room is already booked", entry[logging.KeyError])
	assert.NotContains(t, buf.String(), `"Kim"`, "booker names are hashed by default")
}

func TestRecordReservationID(t *testing.T) {
	var buf bytes.Buffer
	sc := newServerContext(t)
	sc.SetAuditLogger(instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil))))

	wrapped := InstrumentedToolHandlerWithOperation("book_guest", instrumentation.OperationCreate, sc,
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			RecordReservationID(ctx, 42)
			return mcp.NewToolResultText("booked"), nil
		})

	_, err := wrapped(context.Background(), bookingRequest(map[string]any{ArgRoomName: "Focus Room"}))
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "tool_executed", entry["msg"])
	assert.Equal(t, float64(42), entry[logging.KeyReservationID])

	assert.NotPanics(t, func() { RecordReservationID(context.Background(), 7) })
}

func TestInstrumentedToolHandler_NoAuditLogger(t *testing.T) {
	sc := newServerContext(t)
	wrapped := InstrumentedToolHandler("get_rooms_info", sc,
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("{}"), nil
		})

	assert.NotPanics(t, func() {
		_, _ = wrapped(context.Background(), bookingRequest(nil))
	})
}

func TestResultText(t *testing.T) {
	assert.Equal(t, "nope", resultText(mcp.NewToolResultError("nope")))
	assert.Equal(t, "tool returned an error result", resultText(&mcp.CallToolResult{IsError: true}))
}
