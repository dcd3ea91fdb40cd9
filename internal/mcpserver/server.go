// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes gistcal calendar tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/darvall/gistcal/internal/apperr"
	"github.com/darvall/gistcal/internal/eventservice"
	"github.com/darvall/gistcal/internal/models"
)

// Server wraps the MCP server with gistcal tools.
type Server struct {
	mcp *server.MCPServer
	svc *eventservice.Service
}

// New creates a new MCP server with all gistcal tools registered.
func New(svc *eventservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Gistcal",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("import_events",
		mcp.WithDescription("Import calendar events from an Outlook CSV export. "+
			"Provide either the CSV text directly or a URL to fetch it from. "+
			"Input MUST follow the CSV import contract. Read the contract first via "+
			"the get_csv_contract tool or the gistcal://csv-format resource."),
		mcp.WithString("csv", mcp.Description("CSV content to import (header row required)")),
		mcp.WithString("url", mcp.Description("HTTP(S) URL of a CSV file to fetch and import")),
		mcp.WithString("publish", mcp.Description("Set to \"true\" to publish the calendar after importing")),
	), s.importEvents)

	s.mcp.AddTool(mcp.NewTool("get_csv_contract",
		mcp.WithDescription("Returns the canonical gistcal CSV import contract. "+
			"Call this before importing events to ensure correct structure."),
	), s.getCSVContract)

	s.mcp.AddTool(mcp.NewTool("search_events",
		mcp.WithDescription("Substring search through event subjects and descriptions."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchEvents)

	s.mcp.AddTool(mcp.NewTool("list_events",
		mcp.WithDescription("List the events inside the upcoming publication window."),
		mcp.WithString("all", mcp.Description("Set to \"true\" to list every stored event instead")),
	), s.listEvents)

	s.mcp.AddTool(mcp.NewTool("get_event",
		mcp.WithDescription("Read a single stored event by its calendar UID."),
		mcp.WithString("uid", mcp.Required(), mcp.Description("UID as reported by list_events or search_events")),
	), s.getEvent)

	s.mcp.AddTool(mcp.NewTool("build_calendar",
		mcp.WithDescription("Render the upcoming publication window as an iCalendar (ICS) document without publishing it."),
	), s.buildCalendar)

	s.mcp.AddTool(mcp.NewTool("publish_calendar",
		mcp.WithDescription("Render the upcoming publication window and push it to the configured GitHub Gist. "+
			"Returns the stable raw URL of the published feed."),
	), s.publishCalendar)

	// Resource: CSV import contract.
	s.mcp.AddResource(
		mcp.NewResource("gistcal://csv-format", "CSV Import Contract",
			mcp.WithResourceDescription("Outlook CSV export format that all imports must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCSVFormatResource,
	)

	return s
}

// ServeStdio blocks, speaking the MCP protocol over stdin/stdout until
// the client hangs up.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) searchEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := 20
	if v, lErr := req.RequireString("limit"); lErr == nil {
		if n, convErr := strconv.Atoi(v); convErr == nil && n > 0 {
			limit = n
		}
	}
	results, err := s.svc.Search(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(marshalEvents(results)), nil
}

func (s *Server) listEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	all := false
	if v, err := req.RequireString("all"); err == nil {
		all = v == "true"
	}
	events, err := s.svc.List(ctx, all, time.Now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(marshalEvents(events)), nil
}

func (s *Server) getEvent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, err := req.RequireString("uid")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ev, err := s.svc.Get(ctx, uid)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", uid)), nil
	}
	out, _ := json.MarshalIndent(eventView(*ev), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) buildCalendar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cal, err := s.svc.BuildCalendar(ctx, time.Now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(cal.Document), nil
}

func (s *Server) publishCalendar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.PublishCalendar(ctx, time.Now())
	if err != nil {
		if errors.Is(err, apperr.ErrPublishDisabled) {
			return mcp.NewToolResultError("publishing is not configured on this server"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getCSVContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CSVFormatContract), nil
}

func (s *Server) readCSVFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "gistcal://csv-format",
			MIMEType: "text/markdown",
			Text:     CSVFormatContract,
		},
	}, nil
}

// toolEvent is the shape events take in tool output. Wall-clock times
// are kept as strings so the LLM never sees a spurious zone suffix.
type toolEvent struct {
	UID      string `json:"uid"`
	Subject  string `json:"subject"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Location string `json:"location,omitempty"`
	AllDay   bool   `json:"all_day,omitempty"`
}

func eventView(ev models.CalendarEvent) toolEvent {
	return toolEvent{
		UID:      ev.UID(),
		Subject:  ev.Subject,
		Start:    ev.Start.Format(models.TimeLayout),
		End:      ev.End.Format(models.TimeLayout),
		Location: ev.Location,
		AllDay:   ev.IsAllDay(),
	}
}

func marshalEvents(events []models.CalendarEvent) string {
	views := make([]toolEvent, 0, len(events))
	for _, ev := range events {
		views = append(views, eventView(ev))
	}
	out, _ := json.MarshalIndent(views, "", "  ")
	return string(out)
}
