package booking_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/roombooking/internal/booking"
	"github.com/teemow/roombooking/internal/instrumentation"
	"github.com/teemow/roombooking/internal/logging"
	"github.com/teemow/roombooking/internal/server"
	"github.com/teemow/roombooking/internal/tools/common"
)

// RegisterScheduleTools registers the read-only room and schedule tools.
func RegisterScheduleTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	roomsTool := mcp.NewTool("get_rooms_info",
		mcp.WithDescription("List the bookable meeting rooms with their capacity. Check this before booking: only these room names are accepted."),
		mcp.WithTitleAnnotation("List meeting rooms"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(roomsTool, common.InstrumentedToolHandler("get_rooms_info", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetRoomsInfo(ctx, request, sc)
		}))

	scheduleTool := mcp.NewTool("check_schedule",
		mcp.WithDescription("List all current room reservations and show them in the booking widget."),
		mcp.WithTitleAnnotation("Check reservation schedule"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	scheduleTool.Meta = widgetMeta("Checking the schedule...", "Schedule loaded")

	s.AddTool(scheduleTool, common.InstrumentedToolHandlerWithOperation(
		"check_schedule", instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCheckSchedule(ctx, request, sc)
		}))

	return nil
}

func handleGetRoomsInfo(_ context.Context, _ mcp.CallToolRequest, _ *server.ServerContext) (*mcp.CallToolResult, error) {
	details, err := json.MarshalIndent(booking.RoomDetails(), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode rooms: %v", err)), nil
	}
	return mcp.NewToolResultText("Bookable meeting rooms: " + string(details)), nil
}

// handleCheckSchedule discards any staged booking before listing, so a
// widget rendered for this result shows the schedule and not an old form.
func handleCheckSchedule(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if err := sc.Pending().Clear(ctx); err != nil {
		sc.Logger().Warn("failed to clear pending booking", logging.Tool("check_schedule"), logging.Err(err))
		return mcp.NewToolResultError(fmt.Sprintf("Failed to reset the booking form: %v", err)), nil
	}

	reservations, err := sc.Bookings().ListReservations(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list reservations: %v", err)), nil
	}
	if reservations == nil {
		reservations = []booking.Reservation{}
	}

	text, err := json.Marshal(reservations)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode reservations: %v", err)), nil
	}

	return mcp.NewToolResultStructured(map[string]any{"reservations": reservations}, string(text)), nil
}
