// Package mcpserver exposes read-only report queries as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"spill_report_service/internal/app"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

const (
	serverName    = "spill-reports"
	serverVersion = "1.0.0"
)

// Deps holds the services the tools read from.
type Deps struct {
	Reports   *app.ReportService
	Dashboard *app.DashboardService
	Log       *logrus.Entry
}

type Server struct {
	inner *mcpsdk.Server
	deps  Deps
	log   *logrus.Entry

	mu    sync.RWMutex
	tools []string
}

func NewServer(deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	inner := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	s := &Server{inner: inner, deps: deps, log: log}
	s.registerTools()
	return s
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)
	return names
}

// Run serves on stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	if err := s.inner.Run(ctx, transport); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools = append(s.tools, name)
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameListReports,
		Description: "List spill reports, newest first. Optional status, bucket (active|closed) and search filters.",
	}, s.handleListReports)
	s.trackTool(ToolNameListReports)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameGetReport,
		Description: "Fetch one spill report by its ENV-<year>-<seq> number.",
	}, s.handleGetReport)
	s.trackTool(ToolNameGetReport)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameGetStats,
		Description: "Counts of spill reports by bucket, status, cause and incident month.",
	}, s.handleGetStats)
	s.trackTool(ToolNameGetStats)
}
