// Package export renders report lists as CSV or Excel workbooks.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"spill_report_service/internal/domain/report"

	"github.com/xuri/excelize/v2"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	sheetName = "Déversements"
	headerRow = 4
)

var ErrUnknownFormat = fmt.Errorf("unknown export format")

type column struct {
	Label string
	Value func(report.Report) string
}

var columns = []column{
	{"No. ENV", func(r report.Report) string { return r.EnvSequentialNumber }},
	{"Statut", func(r report.Report) string { return string(r.Status) }},
	{"Date", func(r report.Report) string { return r.Details.Date }},
	{"Heure", func(r report.Report) string { return r.Details.Time }},
	{"Lieu", func(r report.Report) string { return r.Details.Location }},
	{"Contaminant", func(r report.Report) string { return r.Details.Contaminant }},
	{"Étendue", func(r report.Report) string { return r.Details.Extent }},
	{"Cause", func(r report.Report) string { return r.Details.Cause }},
	{"Complété par", func(r report.Report) string { return r.Details.CompletedBy }},
	{"Photos", func(r report.Report) string { return fmt.Sprint(len(r.PhotoURLs)) }},
	{"Créé le", func(r report.Report) string { return r.CreatedAt.Format("2006-01-02 15:04") }},
	{"Mis à jour le", func(r report.Report) string { return r.UpdatedAt.Format("2006-01-02 15:04") }},
}

// Headers returns the column labels in output order.
func Headers() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.Label
	}
	return out
}

// Row flattens one report into column order.
func Row(r report.Report) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.Value(r)
	}
	return out
}

// ContentType returns the MIME type for format.
func ContentType(format string) (string, error) {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8", nil
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Filename builds deversements_<yyyymmdd_hhmmss>.<format>.
func Filename(format string, at time.Time) string {
	return fmt.Sprintf("deversements_%s.%s", at.Format("20060102_150405"), format)
}

// File renders reports into memory and names the result after at.
func File(format string, reports []report.Report, at time.Time) (string, []byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, format, reports, at); err != nil {
		return "", nil, err
	}
	return Filename(format, at), buf.Bytes(), nil
}

// Write renders reports in the given format.
func Write(w io.Writer, format string, reports []report.Report, generatedAt time.Time) error {
	switch strings.ToLower(format) {
	case FormatCSV:
		return WriteCSV(w, reports)
	case FormatXLSX:
		return WriteXLSX(w, reports, generatedAt)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func WriteCSV(w io.Writer, reports []report.Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Headers()); err != nil {
		return err
	}
	for _, r := range reports {
		if err := writer.Write(Row(r)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes a single-sheet workbook: title, generation time, a header
// row and one row per report, followed by a count per status.
func WriteXLSX(w io.Writer, reports []report.Report, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#2E7D32"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	f.SetCellValue(sheetName, "A1", "Registre des déversements")
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	f.SetCellValue(sheetName, "A2", "Généré le "+generatedAt.Format("2006-01-02 15:04:05"))

	for i, label := range Headers() {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		f.SetCellValue(sheetName, cell, label)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 18)
	}

	for rowIdx, r := range reports {
		for colIdx, v := range Row(r) {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, headerRow+1+rowIdx)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	counts := make(map[report.Status]int)
	for _, r := range reports {
		counts[r.Status]++
	}
	row := headerRow + len(reports) + 2
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), "Total")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), len(reports))
	for _, st := range report.AllStatuses {
		row++
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), string(st))
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), counts[st])
	}

	return f.Write(w)
}
