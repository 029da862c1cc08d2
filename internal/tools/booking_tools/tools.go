package booking_tools

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/roombooking/internal/server"
	"github.com/teemow/roombooking/internal/ui"
)

// Tool metadata keys understood by widget capable chat hosts.
const (
	metaOutputTemplate = "openai/outputTemplate"
	metaInvoking       = "openai/toolInvocation/invoking"
	metaInvoked        = "openai/toolInvocation/invoked"
)

// RegisterBookingTools registers all booking tools with the MCP server
func RegisterBookingTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := RegisterScheduleTools(s, sc); err != nil {
		return fmt.Errorf("failed to register schedule tools: %w", err)
	}

	if err := RegisterReservationTools(s, sc); err != nil {
		return fmt.Errorf("failed to register reservation tools: %w", err)
	}

	return nil
}

// widgetMeta points the host at the booking widget and sets the status
// lines shown while the tool runs.
func widgetMeta(invoking, invoked string) *mcp.Meta {
	return mcp.NewMetaFromMap(map[string]any{
		metaOutputTemplate: ui.WidgetURI,
		metaInvoking:       invoking,
		metaInvoked:        invoked,
	})
}
