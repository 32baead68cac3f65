package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"testing"
	"time"

	"spill_report_service/internal/app"
	"spill_report_service/internal/domain/report"
	"spill_report_service/internal/infra/bootstrap"
	"spill_report_service/internal/infra/memstore"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 2, 14, 0, 0, 0, time.UTC)

func newRuntime(t *testing.T) *bootstrap.Runtime {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	log := logrus.NewEntry(l)

	repo := memstore.NewReportStore()
	alloc := app.NewCounterAllocator(memstore.NewCounter(), repo, false, log)
	reports := app.NewReportService(repo, alloc, log, app.WithClock(func() time.Time { return fixedNow }))

	ctx := context.Background()
	_, err := reports.Create(ctx, report.Draft{Details: report.Details{Date: "2024-04-30", Location: "Quai 3", Contaminant: "Diesel"}})
	require.NoError(t, err)
	_, err = reports.Create(ctx, report.Draft{Details: report.Details{Date: "2024-05-01", Location: "Garage", Contaminant: "Huile"}})
	require.NoError(t, err)

	return &bootstrap.Runtime{
		Reports:   reports,
		Dashboard: app.NewDashboardService(reports),
	}
}

func run(t *testing.T, rt *bootstrap.Runtime, args ...string) (string, error) {
	t.Helper()
	open := func(context.Context) (*bootstrap.Runtime, error) { return rt, nil }
	cmd := NewRootCommand(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListCommand(t *testing.T) {
	t.Parallel()
	rt := newRuntime(t)

	out, err := run(t, rt, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ENV-2024-001")
	assert.Contains(t, out, "ENV-2024-002")
	assert.Contains(t, out, "Total: 2")

	out, err = run(t, rt, "list", "-q", "garage")
	require.NoError(t, err)
	assert.Contains(t, out, "ENV-2024-002")
	assert.NotContains(t, out, "ENV-2024-001")

	_, err = run(t, rt, "list", "--bucket", "ouvert")
	assert.Error(t, err)

	_, err = run(t, rt, "list", "--offset", "-1")
	assert.ErrorContains(t, err, "must not be negative")
}

func TestShowAndStatusCommands(t *testing.T) {
	t.Parallel()
	rt := newRuntime(t)

	out, err := run(t, rt, "show", "env-2024-001")
	require.NoError(t, err)
	assert.Contains(t, out, "Quai 3")
	assert.Contains(t, out, string(report.StatusNew))

	out, err = run(t, rt, "status", "ENV-2024-001", "traite")
	require.NoError(t, err)
	assert.Equal(t, "ENV-2024-001: Nouvelle demande -> Traité\n", out)

	r, found, err := rt.Reports.GetBySequenceNumber(context.Background(), "ENV-2024-001")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, report.StatusProcessed, r.Status)

	_, err = run(t, rt, "show", "ENV-2024-999")
	assert.ErrorIs(t, err, report.ErrReportNotFound)
}

func TestStatsCommand(t *testing.T) {
	t.Parallel()
	rt := newRuntime(t)

	out, err := run(t, rt, "stats", "--year", "2024")
	require.NoError(t, err)
	assert.Contains(t, out, "Rapports: 2 (actifs 2, fermés 0)")
	assert.Contains(t, out, "Incidents 2024")
}

func TestExportCommandCSVToStdout(t *testing.T) {
	t.Parallel()
	rt := newRuntime(t)

	out, err := run(t, rt, "export", "-f", "csv", "-o", "-")
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)

	_, err = run(t, rt, "export", "-f", "pdf", "-o", "-")
	assert.Error(t, err)
}

func TestRenderReportsEmpty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, msgNoReports, renderReports(nil, fixedNow))
}
