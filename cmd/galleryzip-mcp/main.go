package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	apiURL := os.Getenv("GALLERYZIP_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	c := newClient(apiURL, os.Getenv("GALLERYZIP_API_KEY"))

	s := server.NewMCPServer(
		"galleryzip",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	extractTool := mcp.NewTool("extract_gallery",
		mcp.WithDescription("Open a Tabelog or HotPepper restaurant page in a headless browser, scroll its photo gallery until no new photos appear, and list every photo with its high-resolution URL."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Store page or photo gallery URL on tabelog.com or hotpepper.jp"),
		),
		mcp.WithNumber("max_scrolls",
			mcp.Description("Maximum scroll attempts (default: server config, max 200)"),
		),
		mcp.WithNumber("stability_threshold",
			mcp.Description("Consecutive scrolls without new photos that end the extraction (default: server config, max 20)"),
		),
	)
	s.AddTool(extractTool, handleExtractGallery(c))

	processTool := mcp.NewTool("process_gallery",
		mcp.WithDescription("Extract a restaurant photo gallery, crop and resize every photo to one size, optionally brighten for mobile and stamp a logo, and pack the results into a zip archive."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Store page or photo gallery URL on tabelog.com or hotpepper.jp"),
		),
		mcp.WithString("preset",
			mcp.Description("Output size: 'portrait' 1080x1350 (default), 'landscape' 1024x682 or 'square' 1080x1080"),
			mcp.Enum("portrait", "landscape", "square"),
		),
		mcp.WithNumber("width",
			mcp.Description("Explicit output width; overrides preset together with height"),
		),
		mcp.WithNumber("height",
			mcp.Description("Explicit output height; overrides preset together with width"),
		),
		mcp.WithString("anchor",
			mcp.Description("Which part of the photo to keep when cropping (default: center)"),
			mcp.Enum("center", "top", "bottom"),
		),
		mcp.WithString("enhance",
			mcp.Description("Colour correction: 'none' (default), 'mobile', or 'auto' (mobile for portrait outputs)"),
			mcp.Enum("none", "mobile", "auto"),
		),
		mcp.WithString("logo_base64",
			mcp.Description("Base64 PNG logo to stamp on every photo"),
		),
		mcp.WithString("logo_position",
			mcp.Description("Logo position (default: bottom-right)"),
			mcp.Enum("top-left", "top", "top-right", "left", "center", "right", "bottom-left", "bottom", "bottom-right", "custom"),
		),
		mcp.WithNumber("logo_x_percent",
			mcp.Description("Horizontal logo position 0..100 when logo_position is 'custom'"),
		),
		mcp.WithNumber("logo_y_percent",
			mcp.Description("Vertical logo position 0..100 when logo_position is 'custom'"),
		),
		mcp.WithNumber("logo_offset_x",
			mcp.Description("Extra horizontal shift in pixels; the logo stays inside the photo"),
		),
		mcp.WithNumber("logo_offset_y",
			mcp.Description("Extra vertical shift in pixels; the logo stays inside the photo"),
		),
		mcp.WithNumber("logo_opacity",
			mcp.Description("Logo opacity 0..1 (default: 1)"),
		),
		mcp.WithNumber("logo_scale",
			mcp.Description("Logo width as a fraction of the photo width (default: 0.2)"),
		),
		mcp.WithNumber("logo_margin_px",
			mcp.Description("Distance between logo and photo edge in pixels (default: 24)"),
		),
		mcp.WithBoolean("logo_outline",
			mcp.Description("Draw a thin outline around the logo for contrast"),
		),
		mcp.WithString("output_path",
			mcp.Description("Where to save the zip archive; omit to only report the manifest"),
		),
	)
	s.AddTool(processTool, handleProcessGallery(c))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
