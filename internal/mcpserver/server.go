// Package mcpserver provides an MCP (Model Context Protocol) server that lets
// an agent extract and save document events via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/govcal/internal/apperr"
	"github.com/starford/govcal/internal/calendar"
	"github.com/starford/govcal/internal/civiltime"
	"github.com/starford/govcal/internal/event"
	"github.com/starford/govcal/internal/pipeline"
)

const schemaURI = "govcal://event-schema"

// Server wraps the MCP server with the event tools.
type Server struct {
	mcp  *server.MCPServer
	orch *pipeline.Orchestrator

	httpClient    *http.Client
	allowLoopback bool
}

// Option configures a Server.
type Option func(*Server)

// WithHTTPClient sets the client used for image URLs and lifts the loopback
// block. Tests use it with httptest servers.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) {
		s.httpClient = c
		s.allowLoopback = true
	}
}

// New creates a new MCP server with all tools registered.
func New(orch *pipeline.Orchestrator, version string, opts ...Option) *Server {
	s := &Server{orch: orch}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(
		"Govcal",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("extract_event",
		mcp.WithDescription("Read event details from a photo of a Thai government document. "+
			"Returns the event JSON without saving it; review it, then call create_calendar_events. "+
			"The result includes a rejection reason when it would not pass validation."),
		mcp.WithString("image", mcp.Required(),
			mcp.Description("Image as a data: URI (data:image/png;base64,...) or an http/https URL. JPEG, PNG, WEBP or GIF, at most 20 MB.")),
	), s.extractEvent)

	s.mcp.AddTool(mcp.NewTool("create_calendar_events",
		mcp.WithDescription("Create one Google Calendar entry per date range of an event. "+
			"The event MUST follow the contract from get_event_schema or the "+schemaURI+" resource. "+
			"Not idempotent: calling twice creates duplicates."),
		mcp.WithString("event", mcp.Required(), mcp.Description("Event JSON")),
	), s.createCalendarEvents)

	s.mcp.AddTool(mcp.NewTool("format_event_summary",
		mcp.WithDescription("Render the Thai summary of an event (title, dates in Buddhist era, location, description)."),
		mcp.WithString("event", mcp.Required(), mcp.Description("Event JSON")),
	), s.formatEventSummary)

	s.mcp.AddTool(mcp.NewTool("get_event_schema",
		mcp.WithDescription("Returns the event JSON contract. Call this before creating calendar events."),
	), s.getEventSchema)

	s.mcp.AddResource(
		mcp.NewResource(schemaURI, "Event Contract",
			mcp.WithResourceDescription("JSON shape and rules for extracted events."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEventSchemaResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type extractResult struct {
	Event     event.Event `json:"event"`
	Rejection string      `json:"rejection,omitempty"`
}

func (s *Server) extractEvent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("image")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	img, err := s.loadImage(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.orch.Extract(ctx, img)
	if err != nil {
		if errors.Is(err, apperr.ErrUpstreamUnparsable) {
			return mcp.NewToolResultError("the model did not return event JSON; try a clearer photo"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	res := extractResult{Event: e}
	var rej *event.Rejection
	if errors.As(event.Validate(e), &rej) {
		res.Rejection = string(rej.Reason)
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createCalendarEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := eventArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for i := range e.Dates {
		e.Dates[i].Start = civiltime.CompleteSeconds(e.Dates[i].Start)
		e.Dates[i].End = civiltime.CompleteSeconds(e.Dates[i].End)
	}

	links, err := s.orch.Save(ctx, pipeline.SourceMCP, e, event.Strict)
	if err != nil {
		var rej *event.Rejection
		if errors.As(err, &rej) {
			return mcp.NewToolResultError(rej.Error()), nil
		}
		var merr *calendar.Error
		if errors.As(err, &merr) {
			created := merr.Created()
			msg := err.Error()
			if len(created) > 0 {
				msg += "; already created: " + strings.Join(created, ", ")
			}
			return mcp.NewToolResultError(msg), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, _ := json.Marshal(map[string][]string{"links": links})
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) formatEventSummary(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := eventArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(pipeline.ComposeSummary(e)), nil
}

func (s *Server) getEventSchema(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EventSchemaContract), nil
}

func (s *Server) readEventSchemaResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      schemaURI,
			MIMEType: "text/markdown",
			Text:     EventSchemaContract,
		},
	}, nil
}

func eventArg(req mcp.CallToolRequest) (event.Event, error) {
	raw, err := req.RequireString("event")
	if err != nil {
		return event.Event{}, err
	}
	e, err := event.Decode([]byte(raw))
	if err != nil {
		return event.Event{}, fmt.Errorf("event is not valid JSON")
	}
	return e, nil
}
