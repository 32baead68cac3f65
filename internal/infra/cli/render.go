package cli

import (
	"fmt"
	"strings"
	"time"

	"spill_report_service/internal/app"
	"spill_report_service/internal/domain/report"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
)

var monthLabels = [12]string{"jan", "fév", "mar", "avr", "mai", "jun", "jul", "aoû", "sep", "oct", "nov", "déc"}

const msgNoReports = "Aucun rapport."

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	return tbl
}

func incidentWhen(d report.Details) string {
	return strings.TrimSpace(d.Date + " " + d.Time)
}

// renderReports lists reports one per row, with the age of each relative to now.
func renderReports(reports []report.Report, now time.Time) string {
	if len(reports) == 0 {
		return msgNoReports
	}
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Numéro", "Statut", "Incident", "Lieu", "Contaminant", "Créé"})
	for _, r := range reports {
		tbl.AppendRow(table.Row{
			r.EnvSequentialNumber,
			r.Status,
			incidentWhen(r.Details),
			r.Details.Location,
			r.Details.Contaminant,
			humanize.RelTime(r.CreatedAt, now, "ago", "from now"),
		})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d", len(reports))})
	return tbl.Render()
}

func renderReport(r report.Report) string {
	cause := r.Details.Cause
	if r.Details.CauseOther != "" {
		cause = strings.TrimSpace(cause + " " + r.Details.CauseOther)
	}
	tbl := newTable()
	tbl.AppendRows([]table.Row{
		{"Numéro", r.EnvSequentialNumber},
		{"ID", r.ID},
		{"Statut", r.Status},
		{"Incident", incidentWhen(r.Details)},
		{"Lieu", r.Details.Location},
		{"Contaminant", r.Details.Contaminant},
		{"Étendue", r.Details.Extent},
		{"Cause", cause},
		{"Photos", len(r.PhotoURLs)},
		{"Documents", len(r.Documents)},
		{"Créé", r.CreatedAt.Format("2006-01-02 15:04")},
		{"Modifié", r.UpdatedAt.Format("2006-01-02 15:04")},
	})
	return tbl.Render()
}

func renderSummary(sum app.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rapports: %s (actifs %s, fermés %s)\n\n",
		humanize.Comma(int64(sum.Total)), humanize.Comma(int64(sum.Active)), humanize.Comma(int64(sum.Closed)))

	byStatus := newTable()
	byStatus.AppendHeader(table.Row{"Statut", "Nombre"})
	for _, st := range report.AllStatuses {
		byStatus.AppendRow(table.Row{st, sum.ByStatus[st]})
	}
	b.WriteString(byStatus.Render())

	byMonth := newTable()
	byMonth.SetTitle(fmt.Sprintf("Incidents %d", sum.Year))
	header := make(table.Row, 0, len(monthLabels))
	row := make(table.Row, 0, len(monthLabels))
	for i, n := range sum.ByMonth {
		header = append(header, monthLabels[i])
		row = append(row, n)
	}
	byMonth.AppendHeader(header)
	byMonth.AppendRow(row)
	b.WriteString("\n\n")
	b.WriteString(byMonth.Render())
	return b.String()
}
