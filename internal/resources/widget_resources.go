package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/roombooking/internal/booking"
	"github.com/teemow/roombooking/internal/logging"
	"github.com/teemow/roombooking/internal/server"
	"github.com/teemow/roombooking/internal/ui"
)

// RoomsURI is the resource URI of the room catalog.
const RoomsURI = "roombooking://rooms"

const metaWidgetPrefersBorder = "openai/widgetPrefersBorder"

// RegisterWidgetResources registers the booking widget and the room
// catalog with the MCP server.
func RegisterWidgetResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	widgetResource := mcp.NewResource(
		ui.WidgetURI,
		"Room booking widget",
		mcp.WithResourceDescription("Booking form and reservation schedule, pre-filled with the booking prepared by open_booking_form"),
		mcp.WithMIMEType(ui.WidgetMIMEType),
	)

	s.AddResource(widgetResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleWidget(ctx, request, sc)
	})

	roomsResource := mcp.NewResource(
		RoomsURI,
		"Meeting rooms",
		mcp.WithResourceDescription("Bookable meeting rooms with capacity and purpose"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(roomsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleRooms(ctx, request, sc)
	})

	return nil
}

// handleWidget renders the widget with the staged booking, if any. Every
// read consumes the staged booking so a later render starts empty.
func handleWidget(ctx context.Context, _ mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	prefill, err := sc.Pending().Take(ctx)
	if err != nil {
		// The widget still works without a prefill.
		sc.Logger().Warn("failed to read pending booking", logging.Err(err))
		prefill = nil
	}

	page, err := sc.Renderer().Render(ui.RenderOptions{Embedded: true, Prefill: prefill})
	if err != nil {
		if prefill != nil {
			if _, stageErr := sc.Pending().Stage(ctx, *prefill); stageErr != nil {
				sc.Logger().Warn("failed to restore pending booking", logging.Err(stageErr))
			}
		}
		return nil, fmt.Errorf("failed to render booking widget: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			Meta:     map[string]any{metaWidgetPrefersBorder: true},
			URI:      ui.WidgetURI,
			MIMEType: ui.WidgetMIMEType,
			Text:     string(page),
		},
	}, nil
}

func handleRooms(_ context.Context, _ mcp.ReadResourceRequest, _ *server.ServerContext) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(booking.Rooms(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rooms: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      RoomsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
