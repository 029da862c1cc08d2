package ui

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"os"
	"strings"

	"github.com/teemow/roombooking/internal/booking"
)

const (
	// IndexFile is the single page application entry point inside the asset FS.
	IndexFile = "index.html"

	// WidgetURI is the MCP resource URI under which the rendered
	// application is served to chat hosts.
	WidgetURI = "ui://widget/index.html"

	// WidgetMIMEType is the MIME type of the widget resource.
	WidgetMIMEType = "text/html"
)

//go:embed web
var embedded embed.FS

// Assets returns the asset filesystem. An empty staticDir selects the
// assets compiled into the binary; otherwise the directory must contain
// index.html.
func Assets(staticDir string) (fs.FS, error) {
	if staticDir == "" {
		return fs.Sub(embedded, "web")
	}

	info, err := os.Stat(staticDir)
	if err != nil {
		return nil, fmt.Errorf("static directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("static directory %s is not a directory", staticDir)
	}

	assets := os.DirFS(staticDir)
	if _, err := fs.Stat(assets, IndexFile); err != nil {
		return nil, fmt.Errorf("static directory %s has no %s: %w", staticDir, IndexFile, err)
	}
	return assets, nil
}

// RenderOptions controls a single render of the application shell.
type RenderOptions struct {
	// Embedded is true when the page is shown inside an agent host frame.
	Embedded bool

	// Prefill is the staged reservation, nil when nothing was staged.
	Prefill *booking.Reservation
}

// bootstrap is assigned to window.__ROOM_BOOKING__ before app.js runs.
type bootstrap struct {
	Embedded  bool                 `json:"embedded"`
	Prefill   *booking.Reservation `json:"prefill"`
	Rooms     []booking.Room       `json:"rooms"`
	TimeSlots []booking.TimeSlot   `json:"timeSlots"`
	GridSlots []string             `json:"gridSlots"`
}

// Renderer produces the HTML shell served to browsers and agent hosts.
type Renderer struct {
	assets  fs.FS
	baseURL string
}

// NewRenderer creates a renderer over assets. baseURL, when set, becomes the
// document base so relative asset and API paths resolve against the public
// server even when the markup is loaded from elsewhere. An empty baseURL
// makes the base the server root.
func NewRenderer(assets fs.FS, baseURL string) *Renderer {
	return &Renderer{
		assets:  assets,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

// FS returns the asset filesystem for static file serving.
func (r *Renderer) FS() fs.FS {
	return r.assets
}

// BaseURL returns the configured base URL without trailing slash.
func (r *Renderer) BaseURL() string {
	return r.baseURL
}

// Render reads index.html and injects the base tag and the bootstrap data.
// The base is the configured base URL, or the server root when none is set.
func (r *Renderer) Render(opts RenderOptions) ([]byte, error) {
	page, err := fs.ReadFile(r.assets, IndexFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", IndexFile, err)
	}

	// encoding/json escapes <, > and & so the payload cannot close the script
	data, err := json.Marshal(bootstrap{
		Embedded:  opts.Embedded,
		Prefill:   opts.Prefill,
		Rooms:     booking.Rooms(),
		TimeSlots: booking.FormTimeSlots(),
		GridSlots: booking.GridTimeSlots(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode bootstrap data: %w", err)
	}

	// app.js and index.html use relative paths; without a base they would
	// resolve under client-side routes such as /edit-guest/3.
	base := []byte(`<base href="` + html.EscapeString(r.baseURL) + `/">`)
	page = insertAfter(page, []byte("<head>"), base)

	script := []byte("<script>window.__ROOM_BOOKING__ = " + string(data) + ";</script>")
	page = insertBefore(page, []byte("</head>"), script)

	return page, nil
}

// insertAfter places addition right after the first marker. The page is
// returned unchanged when the marker is missing.
func insertAfter(page, marker, addition []byte) []byte {
	i := bytes.Index(page, marker)
	if i < 0 {
		return page
	}
	i += len(marker)
	return splice(page, i, addition)
}

// insertBefore places addition right before the first marker, or at the end
// of the page when the marker is missing.
func insertBefore(page, marker, addition []byte) []byte {
	i := bytes.Index(page, marker)
	if i < 0 {
		return append(page, addition...)
	}
	return splice(page, i, addition)
}

func splice(page []byte, at int, addition []byte) []byte {
	out := make([]byte, 0, len(page)+len(addition))
	out = append(out, page[:at]...)
	out = append(out, addition...)
	return append(out, page[at:]...)
}
