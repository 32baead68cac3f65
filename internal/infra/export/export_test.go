package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"spill_report_service/internal/domain/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleReports() []report.Report {
	at := time.Date(2024, 3, 5, 9, 15, 0, 0, time.UTC)
	return []report.Report{
		{
			EnvSequentialNumber: "ENV-2024-002",
			Status:              report.StatusTakenInCharge,
			Details:             report.Details{Date: "2024-03-05", Location: "Garage, porte 3", Contaminant: "Diesel"},
			PhotoURLs:           []string{"a", "b"},
			CreatedAt:           at,
			UpdatedAt:           at,
		},
		{
			EnvSequentialNumber: "ENV-2024-001",
			Status:              report.StatusCompleted,
			Details:             report.Details{Location: "Usine"},
			CreatedAt:           at.Add(-time.Hour),
			UpdatedAt:           at,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReports()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Headers(), records[0])
	assert.Equal(t, "ENV-2024-002", records[1][0])
	assert.Equal(t, "Garage, porte 3", records[1][4])
	assert.Equal(t, "2", records[1][9])
	assert.Equal(t, "Complété", records[2][1])
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	generated := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
	require.NoError(t, WriteXLSX(&buf, sampleReports(), generated))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())

	v, err := f.GetCellValue(sheetName, "A4")
	require.NoError(t, err)
	assert.Equal(t, "No. ENV", v)

	v, err = f.GetCellValue(sheetName, "A5")
	require.NoError(t, err)
	assert.Equal(t, "ENV-2024-002", v)

	v, err = f.GetCellValue(sheetName, "A8")
	require.NoError(t, err)
	assert.Equal(t, "Total", v)
	v, err = f.GetCellValue(sheetName, "B8")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestWriteUnknownFormat(t *testing.T) {
	t.Parallel()

	err := Write(&bytes.Buffer{}, "pdf", nil, time.Now())
	assert.True(t, errors.Is(err, ErrUnknownFormat))

	_, err = ContentType("pdf")
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestFilename(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 12, 31, 23, 59, 1, 0, time.UTC)
	assert.Equal(t, "deversements_20241231_235901.xlsx", Filename(FormatXLSX, at))
}

func TestFileNamesOutput(t *testing.T) {
	t.Parallel()
	at := time.Date(2024, 5, 2, 14, 3, 9, 0, time.UTC)

	name, content, err := File(FormatCSV, nil, at)
	require.NoError(t, err)
	assert.Equal(t, "deversements_20240502_140309.csv", name)
	assert.True(t, strings.HasPrefix(string(content), "No. ENV,"))

	_, _, err = File("pdf", nil, at)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
