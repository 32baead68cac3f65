package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"spill_report_service/internal/app"
	"spill_report_service/internal/domain/report"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ToolNameListReports = "list_reports"
	ToolNameGetReport   = "get_report"
	ToolNameGetStats    = "get_stats"

	defaultListLimit = 20
	maxListLimit     = 200
)

var (
	ErrEmptySequenceNumber = errors.New("sequence_number is required")
	ErrReportNotFound      = errors.New("no report has that sequence number")
)

type ListReportsInput struct {
	Limit  int    `json:"limit,omitempty"  jsonschema:"maximum number of reports to return (default 20, max 200)"`
	Status string `json:"status,omitempty" jsonschema:"status label or code, e.g. nouvelle or Traité"`
	Bucket string `json:"bucket,omitempty" jsonschema:"active or closed"`
	Query  string `json:"query,omitempty"  jsonschema:"substring of location, contaminant or date"`
}

type GetReportInput struct {
	SequenceNumber string `json:"sequence_number" jsonschema:"report number such as ENV-2024-003"`
}

type GetStatsInput struct {
	Year int `json:"year,omitempty" jsonschema:"year for the monthly breakdown (default: current year)"`
}

// ToolOutput wraps structured results.
type ToolOutput struct {
	Data any `json:"data"`
}

func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
		IsError: true,
	}, ToolOutput{}, nil
}

func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, ToolOutput{Data: value}, nil
}

func listFilter(in ListReportsInput) (app.Filter, report.ListOptions, error) {
	f := app.Filter{Search: in.Query}
	if in.Status != "" {
		st, err := report.ParseStatus(in.Status)
		if err != nil {
			return app.Filter{}, report.ListOptions{}, err
		}
		f.Status = st
	}
	if in.Bucket != "" {
		b, err := report.ParseBucket(in.Bucket)
		if err != nil {
			return app.Filter{}, report.ListOptions{}, err
		}
		f.Bucket = b
	}
	limit := in.Limit
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	return f, report.ListOptions{Limit: limit}, nil
}

func (s *Server) handleListReports(ctx context.Context, _ *mcpsdk.CallToolRequest, in ListReportsInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	f, opts, err := listFilter(in)
	if err != nil {
		return errorResult(err)
	}
	reports, err := s.deps.Dashboard.Search(ctx, f, opts)
	if err != nil {
		s.log.WithError(err).WithField("tool", ToolNameListReports).Error("Tool call failed")
		return errorResult(err)
	}
	return jsonResult(reports)
}

func (s *Server) handleGetReport(ctx context.Context, _ *mcpsdk.CallToolRequest, in GetReportInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	number := strings.ToUpper(strings.TrimSpace(in.SequenceNumber))
	if number == "" {
		return errorResult(ErrEmptySequenceNumber)
	}
	r, found, err := s.deps.Reports.GetBySequenceNumber(ctx, number)
	if err != nil {
		s.log.WithError(err).WithField("tool", ToolNameGetReport).Error("Tool call failed")
		return errorResult(err)
	}
	if !found {
		return errorResult(fmt.Errorf("%w: %s", ErrReportNotFound, number))
	}
	return jsonResult(r)
}

func (s *Server) handleGetStats(ctx context.Context, _ *mcpsdk.CallToolRequest, in GetStatsInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	sum, err := s.deps.Dashboard.Summary(ctx, in.Year)
	if err != nil {
		s.log.WithError(err).WithField("tool", ToolNameGetStats).Error("Tool call failed")
		return errorResult(err)
	}
	return jsonResult(sum)
}
