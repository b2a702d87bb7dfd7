package excel

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"excelviz/domain/core"
	"excelviz/domain/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbookBytes(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", ref, v))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseWorkbook(t *testing.T) {
	data := workbookBytes(t, [][]interface{}{
		{"Status", "Priority", " Owner "},
		{"Open", 1, "ana"},
		{"Closed", 2, "ben"},
		{"Open", 1, nil},
	})

	table, err := NewTabulator(DefaultTabulatorConfig()).Parse(bytes.NewReader(data), "tickets.xlsx", FormatXLSX)
	require.NoError(t, err)

	assert.Equal(t, "tickets.xlsx", table.Source)
	assert.Equal(t, []string{"Status", "Priority", "Owner"}, table.Columns)
	require.Len(t, table.Records, 3)

	priority, ok := table.Records[0].Get("Priority")
	require.True(t, ok)
	assert.Equal(t, dataset.CellNumber, priority.Kind)
	assert.Equal(t, "1", priority.String())

	_, ok = table.Records[2].Get("Owner")
	assert.False(t, ok, "blank cell should be null")
}

func TestParseWorkbookFormattedNumbers(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Amount", "Share", "Opened"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{1234.5, 0.12, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}))

	thousands, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "A2", "A2", thousands))
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 9})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "B2", "B2", percent))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	table, err := NewTabulator(DefaultTabulatorConfig()).Parse(bytes.NewReader(buf.Bytes()), "amounts.xlsx", FormatXLSX)
	require.NoError(t, err)
	require.Len(t, table.Records, 1)

	amount, _ := table.Records[0].Get("Amount")
	assert.Equal(t, dataset.CellNumber, amount.Kind)
	assert.Equal(t, "1234.5", amount.String())

	share, _ := table.Records[0].Get("Share")
	assert.Equal(t, dataset.CellNumber, share.Kind)
	assert.Equal(t, "0.12", share.String())

	opened, ok := table.Records[0].Get("Opened")
	require.True(t, ok)
	assert.Equal(t, dataset.CellText, opened.Kind, "dates keep their display text")
}

func TestParseColumnsFromFirstRecord(t *testing.T) {
	data := workbookBytes(t, [][]interface{}{
		{"A", "B", "C"},
		{"x", nil, "z"},
		{"x", "y", "z"},
	})

	table, err := NewTabulator(DefaultTabulatorConfig()).Parse(bytes.NewReader(data), "sparse.xlsx", FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, table.Columns)
	assert.Len(t, table.Records, 2)
}

func TestParseCSV(t *testing.T) {
	input := "\xEF\xBB\xBFName,Team,Team\nana,red,1\n,,\nben,blue,2\n"

	table, err := NewTabulator(DefaultTabulatorConfig()).Parse(strings.NewReader(input), "people.csv", FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Team", "Team_1"}, table.Columns)
	require.Len(t, table.Records, 2, "blank rows are skipped")
	cell, _ := table.Records[1].Get("Team_1")
	assert.Equal(t, dataset.CellText, cell.Kind)
	assert.Equal(t, "2", cell.String())
}

func TestParseEmptyInputs(t *testing.T) {
	tab := NewTabulator(DefaultTabulatorConfig())

	table, err := tab.Parse(strings.NewReader(""), "empty.csv", FormatCSV)
	require.NoError(t, err)
	assert.True(t, table.Empty())
	assert.Empty(t, table.Columns)

	table, err = tab.Parse(strings.NewReader("Only,Headers\n"), "headers.csv", FormatCSV)
	require.NoError(t, err)
	assert.True(t, table.Empty())
	assert.Empty(t, table.Columns)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := NewTabulator(DefaultTabulatorConfig()).Parse(strings.NewReader("not a zip archive"), "broken.xlsx", FormatXLSX)
	require.Error(t, err)
	assert.True(t, core.IsParseError(err))
}

func TestParseMaxRows(t *testing.T) {
	tab := NewTabulator(TabulatorConfig{MaxRows: 1})
	table, err := tab.Parse(strings.NewReader("A\n1\n2\n3\n"), "rows.csv", FormatCSV)
	require.NoError(t, err)
	assert.Len(t, table.Records, 1)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("Status\nOpen\nClosed\n"), 0o644))

	table, err := NewTabulator(DefaultTabulatorConfig()).ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data.csv", table.Source)
	assert.Len(t, table.Records, 2)

	_, err = NewTabulator(DefaultTabulatorConfig()).ParseFile(filepath.Join(dir, "notes.pdf"))
	assert.True(t, core.IsParseError(err))
}

func TestFormatFromName(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"a.xlsx", FormatXLSX, false},
		{"A.XLSM", FormatXLSX, false},
		{"b.csv", FormatCSV, false},
		{"c.ods", "", true},
	}
	for _, tt := range tests {
		got, err := FormatFromName(tt.name)
		if tt.wantErr {
			assert.Error(t, err, tt.name)
			continue
		}
		assert.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}
