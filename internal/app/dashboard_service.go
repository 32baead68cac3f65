package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spill_report_service/internal/domain/report"
)

// UnspecifiedCause labels reports without a cause in the per-cause counts.
const UnspecifiedCause = "Non spécifié"

// Summary aggregates the report collection for the statistics view.
type Summary struct {
	Total    int                   `json:"total"`
	Active   int                   `json:"active"`
	Closed   int                   `json:"closed"`
	ByStatus map[report.Status]int `json:"byStatus"`
	ByCause  map[string]int        `json:"byCause"`
	Year     int                   `json:"year"`
	ByMonth  [12]int               `json:"byMonth"` // incident date, January first
}

// Filter narrows a report list. Empty members match everything.
type Filter struct {
	Search string
	Status report.Status
	Bucket report.Bucket
}

// Match reports whether r passes the filter. Search is a case-insensitive
// substring match on location and contaminant, or a substring of the date.
func (f Filter) Match(r report.Report) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Bucket != "" && r.Status.Bucket() != f.Bucket {
		return false
	}
	term := strings.TrimSpace(f.Search)
	if term == "" {
		return true
	}
	lower := strings.ToLower(term)
	return strings.Contains(strings.ToLower(r.Details.Location), lower) ||
		strings.Contains(strings.ToLower(r.Details.Contaminant), lower) ||
		strings.Contains(r.Details.Date, term) ||
		strings.EqualFold(r.EnvSequentialNumber, term)
}

// Apply returns the reports that match, keeping their order.
func (f Filter) Apply(reports []report.Report) []report.Report {
	out := make([]report.Report, 0, len(reports))
	for _, r := range reports {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Summarize counts reports by bucket, status, cause and incident month of year.
func Summarize(reports []report.Report, year int) Summary {
	sum := Summary{
		Total:    len(reports),
		ByStatus: make(map[report.Status]int, len(report.AllStatuses)),
		ByCause:  map[string]int{},
		Year:     year,
	}
	for _, r := range reports {
		if r.Status.Bucket() == report.BucketClosed {
			sum.Closed++
		} else {
			sum.Active++
		}
		sum.ByStatus[r.Status]++

		cause := strings.TrimSpace(r.Details.Cause)
		if cause == "" {
			cause = UnspecifiedCause
		}
		sum.ByCause[cause]++

		if d, ok := incidentDate(r.Details.Date); ok && d.Year() == year {
			sum.ByMonth[d.Month()-1]++
		}
	}
	return sum
}

func incidentDate(v string) (time.Time, bool) {
	if len(v) < len("2006-01-02") {
		return time.Time{}, false
	}
	d, err := time.Parse("2006-01-02", v[:10])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// DashboardService serves filtered lists and aggregate statistics.
type DashboardService struct {
	reports *ReportService
}

func NewDashboardService(reports *ReportService) *DashboardService {
	return &DashboardService{reports: reports}
}

// Search loads the whole collection, filters it and then applies the window.
func (s *DashboardService) Search(ctx context.Context, f Filter, opts report.ListOptions) ([]report.Report, error) {
	if opts.Limit < 0 || opts.Offset < 0 {
		return nil, newOpError("search reports", ErrInvalidInput, fmt.Errorf("limit and offset must not be negative"))
	}
	all, err := s.reports.List(ctx, report.ListOptions{})
	if err != nil {
		return nil, err
	}
	matched := f.Apply(all)
	if opts.Offset >= len(matched) {
		return []report.Report{}, nil
	}
	matched = matched[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}

// Summary aggregates every report. A zero year means the current year.
func (s *DashboardService) Summary(ctx context.Context, year int) (Summary, error) {
	if year == 0 {
		year = s.reports.Now().Year()
	}
	all, err := s.reports.List(ctx, report.ListOptions{})
	if err != nil {
		return Summary{}, err
	}
	return Summarize(all, year), nil
}
