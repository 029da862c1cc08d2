package booking_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/roombooking/internal/booking"
	"github.com/teemow/roombooking/internal/instrumentation"
	"github.com/teemow/roombooking/internal/logging"
	"github.com/teemow/roombooking/internal/server"
	"github.com/teemow/roombooking/internal/tools/common"
	"github.com/teemow/roombooking/internal/ui"
)

// RegisterReservationTools registers open_booking_form and, when direct
// booking is enabled, book_guest.
func RegisterReservationTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	formTool := mcp.NewTool("open_booking_form", reservationOptions(false,
		mcp.WithDescription("Prepare a meeting room reservation and open the booking widget pre-filled with it. "+
			"The user reviews and submits the form; nothing is booked until then."),
		mcp.WithTitleAnnotation("Open booking form"),
		mcp.WithReadOnlyHintAnnotation(true),
	)...)
	formTool.Meta = widgetMeta("Preparing the booking form...", "Booking form ready")

	s.AddTool(formTool, common.InstrumentedToolHandler("open_booking_form", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleOpenBookingForm(ctx, request, sc)
		}))

	if !sc.DirectBooking() {
		return nil
	}

	bookTool := mcp.NewTool("book_guest", reservationOptions(true,
		mcp.WithDescription("Book a meeting room directly in the booking service."),
		mcp.WithTitleAnnotation("Book meeting room"),
		mcp.WithDestructiveHintAnnotation(false),
	)...)
	bookTool.Meta = widgetMeta("Booking the room...", "Booking processed")

	s.AddTool(bookTool, common.InstrumentedToolHandlerWithOperation(
		"book_guest", instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleBookGuest(ctx, request, sc)
		}))

	return nil
}

// reservationOptions returns the shared reservation arguments followed by
// extra. Department and booker are only required for direct booking since
// the form lets the user fill them in.
func reservationOptions(direct bool, extra ...mcp.ToolOption) []mcp.ToolOption {
	who := func(desc string) []mcp.PropertyOption {
		opts := []mcp.PropertyOption{mcp.Description(desc)}
		if direct {
			opts = append(opts, mcp.Required())
		}
		return opts
	}

	opts := append([]mcp.ToolOption{}, extra...)
	return append(opts,
		mcp.WithString(common.ArgDepartment, who("Department of the person booking")...),
		mcp.WithString(common.ArgBookerName, who("Name of the person booking")...),
		mcp.WithString(common.ArgRoomName,
			mcp.Required(),
			mcp.Description("Room name, exactly one of: "+strings.Join(booking.RoomNames(), ", ")),
			mcp.Enum(booking.RoomNames()...),
		),
		mcp.WithString(common.ArgDate,
			mcp.Required(),
			mcp.Description("Date (YYYY-MM-DD)"),
		),
		mcp.WithString(common.ArgStartTime,
			mcp.Required(),
			mcp.Description("Start time (HH:MM, 24h)"),
		),
		mcp.WithString(common.ArgEndTime,
			mcp.Required(),
			mcp.Description("End time (HH:MM, 24h), after the start time"),
		),
		mcp.WithString(common.ArgDescription,
			mcp.Description("Meeting description (default: date and time range)"),
		),
	)
}

func handleOpenBookingForm(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	r := common.ReservationFromRequest(request)
	if err := r.ValidateForStaging(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r = r.WithDefaults()

	overwritten, err := sc.Pending().Stage(ctx, r)
	if err != nil {
		sc.Logger().Warn("failed to stage booking", logging.Tool("open_booking_form"), logging.Room(r.RoomName), logging.Err(err))
		return mcp.NewToolResultError(fmt.Sprintf("Failed to prepare the booking form: %v", err)), nil
	}

	text := fmt.Sprintf("Booking form prepared for %s on %s. Render %s so the user can review and confirm the reservation.",
		r.RoomName, r.TimeRange(), ui.WidgetURI)
	if overwritten {
		text += " A previously prepared form was replaced."
	}
	return mcp.NewToolResultText(text), nil
}

func handleBookGuest(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	r := common.ReservationFromRequest(request)
	if err := r.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	created, err := sc.Bookings().CreateReservation(ctx, r.WithDefaults())
	if err != nil {
		return mcp.NewToolResultError("booking failed: " + err.Error()), nil
	}
	common.RecordReservationID(ctx, created.ID)

	text := fmt.Sprintf("Booked %s on %s for %s (%s).", created.RoomName, created.TimeRange(), created.BookerName, created.Department)
	return mcp.NewToolResultStructured(map[string]any{"reservation": created}, text), nil
}
