package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/galleryzip/models"
)

// client talks to a running galleryzip HTTP API.
type client struct {
	apiURL       string
	apiKey       string
	http         *http.Client
	pollInterval time.Duration
}

func newClient(apiURL, apiKey string) *client {
	return &client{
		apiURL:       strings.TrimRight(apiURL, "/"),
		apiKey:       apiKey,
		http:         &http.Client{Timeout: 10 * time.Minute},
		pollInterval: 2 * time.Second,
	}
}

// do sends one request and returns the status code and body.
func (c *client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// pollJob polls a batch job until it leaves the processing state or ctx is done.
func (c *client) pollJob(ctx context.Context, id string) (*models.BatchStatusResponse, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			code, body, err := c.do(ctx, http.MethodGet, "/api/v1/batch/"+id, nil)
			if err != nil {
				return nil, err
			}
			if code != http.StatusOK {
				return nil, fmt.Errorf("poll batch job: %s", apiError(code, body))
			}
			var status models.BatchStatusResponse
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}
			if status.Status != models.JobProcessing {
				return &status, nil
			}
		}
	}
}

// saveArchive downloads the job archive to dest.
func (c *client) saveArchive(ctx context.Context, archivePath, dest string) (int, error) {
	code, body, err := c.do(ctx, http.MethodGet, archivePath, nil)
	if err != nil {
		return 0, err
	}
	if code != http.StatusOK {
		return 0, fmt.Errorf("download archive: %s", apiError(code, body))
	}
	if err := os.WriteFile(dest, body, 0o644); err != nil {
		return 0, fmt.Errorf("write archive: %w", err)
	}
	return len(body), nil
}

func handleExtractGallery(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := models.ExtractRequest{
			URL:                url,
			MaxScrolls:         request.GetInt("max_scrolls", 0),
			StabilityThreshold: request.GetInt("stability_threshold", 0),
		}
		code, body, err := c.do(ctx, http.MethodPost, "/api/v1/gallery/extract", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp models.ExtractResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(apiError(code, body)), nil
		}
		return mcp.NewToolResultText(formatExtraction(resp)), nil
	}
}

func handleProcessGallery(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := models.BatchRequest{URL: url, Processing: processingFromRequest(request)}
		code, body, err := c.do(ctx, http.MethodPost, "/api/v1/batch", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch request failed: %v", err)), nil
		}
		if code != http.StatusAccepted {
			return mcp.NewToolResultError(apiError(code, body)), nil
		}

		var accepted models.BatchResponse
		if err := json.Unmarshal(body, &accepted); err != nil || accepted.ID == "" {
			return mcp.NewToolResultError("batch job creation failed"), nil
		}

		status, err := c.pollJob(ctx, accepted.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling batch job failed: %v", err)), nil
		}
		if status.Error != nil {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", status.Error.Code, status.Error.Message)), nil
		}

		text := formatManifest(*status)
		if dest := request.GetString("output_path", ""); dest != "" && status.ArchivePath != "" {
			n, err := c.saveArchive(ctx, status.ArchivePath, dest)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			text += fmt.Sprintf("\nArchive saved to %s (%d bytes)\n", dest, n)
		}
		return mcp.NewToolResultText(text), nil
	}
}

func processingFromRequest(request mcp.CallToolRequest) models.ProcessingParams {
	p := models.ProcessingParams{
		Preset:  request.GetString("preset", ""),
		Width:   request.GetInt("width", 0),
		Height:  request.GetInt("height", 0),
		Anchor:  request.GetString("anchor", ""),
		Enhance: request.GetString("enhance", ""),
	}
	if logo := request.GetString("logo_base64", ""); logo != "" {
		opacity := request.GetFloat("logo_opacity", 1)
		p.Logo = &models.LogoParams{
			ImageBase64: logo,
			Position:    request.GetString("logo_position", ""),
			Opacity:     &opacity,
			Scale:       request.GetFloat("logo_scale", 0.2),
			MarginPx:    request.GetInt("logo_margin_px", 24),
			Outline:     request.GetBool("logo_outline", false),
			XPercent:    request.GetFloat("logo_x_percent", 0),
			YPercent:    request.GetFloat("logo_y_percent", 0),
			OffsetX:     request.GetInt("logo_offset_x", 0),
			OffsetY:     request.GetInt("logo_offset_y", 0),
		}
	}
	return p
}

func formatExtraction(r models.ExtractResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Site: %s\nGallery: %s\nFound %d photos after %d scrolls (%d ms)\n\n",
		r.Site, r.PageURL, r.Total, r.ScrollCount, r.ElapsedMs)
	for _, img := range r.Images {
		fmt.Fprintf(&sb, "[%03d] %s\n", img.SequenceIndex, img.ResolvedURL)
	}
	return sb.String()
}

func formatManifest(s models.BatchStatusResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Batch %s: %s\n", s.ID, s.Status)
	m := s.Manifest
	if m == nil {
		return sb.String()
	}
	fmt.Fprintf(&sb, "%d of %d photos processed, %d skipped\n", m.TotalSucceeded, m.TotalRequested, m.TotalSkipped)
	for _, item := range m.Items {
		if item.Status == models.StatusSuccess {
			continue
		}
		fmt.Fprintf(&sb, "  skipped [%03d] %s: %s %s\n", item.SequenceIndex, item.SourceURL, item.Code, item.Reason)
	}
	return sb.String()
}

// apiError renders the error carried by an API response body.
func apiError(code int, body []byte) string {
	var resp models.ErrorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != nil {
		return fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
	}
	return fmt.Sprintf("API returned status %d", code)
}
