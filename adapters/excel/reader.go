package excel

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"excelviz/domain/core"
	"excelviz/domain/dataset"

	"github.com/xuri/excelize/v2"
)

var (
	utf8BOM = []byte{0xEF, 0xBB, 0xBF}

	quotedText = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]|\\.`)
	dateTokens = regexp.MustCompile(`[ydh]|ss`)
)

// Tabulator converts uploaded spreadsheets into column-indexed records
type Tabulator struct {
	config TabulatorConfig
}

// NewTabulator creates a tabulator that handles both Excel and CSV input
func NewTabulator(config TabulatorConfig) *Tabulator {
	return &Tabulator{config: config}
}

// ParseFile opens path and decodes it according to its extension
func (t *Tabulator) ParseFile(path string) (*dataset.Table, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, core.NewParseError(filepath.Base(path), err)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	return t.Parse(file, filepath.Base(path), format)
}

// Parse decodes r as a sheet. An empty sheet yields an empty table, not an error.
func (t *Tabulator) Parse(r io.Reader, source string, format Format) (*dataset.Table, error) {
	log.Printf("[Tabulator] Starting to read %s input: %s", format, source)
	start := time.Now()

	var (
		rows  [][]dataset.Cell
		err   error
		sheet string
	)
	switch format {
	case FormatXLSX:
		rows, sheet, err = t.readWorkbook(r)
	case FormatCSV:
		rows, err = t.readCSV(r)
	default:
		err = fmt.Errorf("unsupported file type: %s", format)
	}
	if err != nil {
		return nil, core.NewParseError(source, err)
	}

	table := t.tabulate(rows)
	table.Source = source

	if sheet != "" {
		log.Printf("[Tabulator] %s (sheet %q) processed in %.2fms (%d columns, %d rows)",
			source, sheet, float64(time.Since(start).Nanoseconds())/1e6, len(table.Columns), len(table.Records))
	} else {
		log.Printf("[Tabulator] %s processed in %.2fms (%d columns, %d rows)",
			source, float64(time.Since(start).Nanoseconds())/1e6, len(table.Columns), len(table.Records))
	}
	return table, nil
}

// readWorkbook reads the configured (or first) worksheet using native cell types
func (t *Tabulator) readWorkbook(r io.Reader) ([][]dataset.Cell, string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open Excel workbook: %w", err)
	}
	defer f.Close()

	sheet := t.config.SheetName
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, "", errors.New("workbook contains no worksheets")
		}
		sheet = sheets[0]
	}

	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, sheet, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	rows := make([][]dataset.Cell, 0, len(raw))
	for rowIdx, row := range raw {
		cells := make([]dataset.Cell, len(row))
		for colIdx, value := range row {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			cells[colIdx] = t.workbookCell(f, sheet, colIdx, rowIdx, value)
		}
		rows = append(rows, cells)
	}
	return rows, sheet, nil
}

// workbookCell keeps numbers numeric when Excel stored them as numbers
func (t *Tabulator) workbookCell(f *excelize.File, sheet string, colIdx, rowIdx int, value string) dataset.Cell {
	ref, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
	if err != nil {
		return dataset.TextCell(value)
	}
	cellType, err := f.GetCellType(sheet, ref)
	if err != nil {
		return dataset.TextCell(value)
	}
	// Untyped cells are numbers in OOXML unless they are formatted dates.
	if cellType != excelize.CellTypeNumber && cellType != excelize.CellTypeUnset {
		return dataset.TextCell(value)
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return dataset.NumberCell(n)
	}
	// Formatted numbers such as "1,234" or "12%" keep their stored value;
	// dates keep their display text.
	if isDateFormatted(f, sheet, ref) {
		return dataset.TextCell(value)
	}
	raw, err := f.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
	if err != nil {
		return dataset.TextCell(value)
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		return dataset.NumberCell(n)
	}
	return dataset.TextCell(value)
}

func isDateFormatted(f *excelize.File, sheet, ref string) bool {
	styleID, err := f.GetCellStyle(sheet, ref)
	if err != nil || styleID == 0 {
		return false
	}
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	// built-in date and time formats
	if (style.NumFmt >= 14 && style.NumFmt <= 22) || (style.NumFmt >= 45 && style.NumFmt <= 47) {
		return true
	}
	if style.CustomNumFmt == nil {
		return false
	}
	return dateTokens.MatchString(quotedText.ReplaceAllString(strings.ToLower(*style.CustomNumFmt), ""))
}

// readCSV reads CSV data as text cells
func (t *Tabulator) readCSV(r io.Reader) ([][]dataset.Cell, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	raw, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	rows := make([][]dataset.Cell, 0, len(raw))
	for _, row := range raw {
		cells := make([]dataset.Cell, len(row))
		for i, value := range row {
			cells[i] = dataset.TextCell(strings.TrimSpace(value))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// tabulate turns a header row plus data rows into records. Columns are the keys
// of the first record, in header order.
func (t *Tabulator) tabulate(rows [][]dataset.Cell) *dataset.Table {
	table := &dataset.Table{Columns: []string{}, Records: []dataset.Record{}}
	if len(rows) == 0 {
		return table
	}

	headers := headerNames(rows[0])

	for _, row := range rows[1:] {
		if t.config.MaxRows > 0 && len(table.Records) >= t.config.MaxRows {
			break
		}
		record := make(dataset.Record, len(headers))
		for j, cell := range row {
			if j >= len(headers) || cell.IsNull() {
				continue
			}
			record[headers[j]] = cell
		}
		if len(record) == 0 && !t.config.KeepBlankRows {
			continue
		}
		table.Records = append(table.Records, record)
	}

	if len(table.Records) > 0 {
		first := table.Records[0]
		for _, h := range headers {
			if _, ok := first[h]; ok {
				table.Columns = append(table.Columns, h)
			}
		}
	}
	return table
}

// headerNames trims header cells, names blank headers __EMPTY and suffixes
// duplicates with _1, _2, ... so every header is a distinct record key.
func headerNames(row []dataset.Cell) []string {
	headers := make([]string, len(row))
	seen := make(map[string]int, len(row))
	for i, cell := range row {
		name := strings.TrimSpace(cell.String())
		if name == "" {
			name = "__EMPTY"
		}
		base := name
		for seen[name] > 0 {
			name = fmt.Sprintf("%s_%d", base, seen[base])
			seen[base]++
		}
		seen[name]++
		headers[i] = name
	}
	return headers
}
