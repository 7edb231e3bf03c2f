// Package tabular reads the input location table and writes the JSON output
// artifact.
package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/travel-score/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Required input columns.
const (
	ColumnCity    = "City"
	ColumnCountry = "Country"
)

// ErrMissingColumns is returned when the input header lacks a required column.
var ErrMissingColumns = errors.New("input file must contain columns City and Country")

// Reader extracts location rows from a CSV or XLSX file. The format is
// chosen by file extension; anything other than .xlsx/.xlsm is read as CSV.
type Reader struct {
	path string
}

// NewReader creates a Reader for path.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Extract reads the whole table, validates the header and returns every
// non-blank data row. No row is returned unless the header is valid.
func (r *Reader) Extract(_ context.Context) ([]domain.InputRow, error) {
	var (
		table []record
		err   error
	)
	switch strings.ToLower(filepath.Ext(r.path)) {
	case ".xlsx", ".xlsm":
		table, err = readXLSX(r.path)
	default:
		table, err = readCSV(r.path)
	}
	if err != nil {
		return nil, err
	}
	return rowsFromTable(table)
}

// record is one table row with its 1-based line or spreadsheet row number.
type record struct {
	line   int
	fields []string
}

func readCSV(path string) ([]record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var table []record
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return table, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read input file: %w", err)
		}
		line, _ := cr.FieldPos(0)
		table = append(table, record{line: line, fields: fields})
	}
}

func readXLSX(path string) ([]record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open input workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("input workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	table := make([]record, len(rows))
	for i, fields := range rows {
		table[i] = record{line: i + 1, fields: fields}
	}
	return table, nil
}

func rowsFromTable(table []record) ([]domain.InputRow, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: file has no header row", ErrMissingColumns)
	}

	cityCol, countryCol, err := findColumns(table[0].fields)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.InputRow, 0, len(table)-1)
	for _, rec := range table[1:] {
		if isBlank(rec.fields) {
			continue
		}
		rows = append(rows, domain.InputRow{
			Line:    rec.line,
			City:    cell(rec.fields, cityCol),
			Country: cell(rec.fields, countryCol),
		})
	}
	return rows, nil
}

func findColumns(header []string) (int, int, error) {
	cityCol, countryCol := -1, -1
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		switch name {
		case ColumnCity:
			if cityCol < 0 {
				cityCol = i
			}
		case ColumnCountry:
			if countryCol < 0 {
				countryCol = i
			}
		}
	}

	var missing []string
	if cityCol < 0 {
		missing = append(missing, ColumnCity)
	}
	if countryCol < 0 {
		missing = append(missing, ColumnCountry)
	}
	if len(missing) > 0 {
		return 0, 0, fmt.Errorf("%w: missing %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return cityCol, countryCol, nil
}

func cell(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
