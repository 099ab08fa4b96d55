// Package tabular reads uploaded CSV and Excel sheets into header-keyed rows.
package tabular

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for extensions other than .csv, .xlsx and .xls.
var ErrUnsupportedFormat = errors.New("unsupported file format: only CSV and Excel files are allowed")

// ErrEmptyFile is returned when the sheet has no header row.
var ErrEmptyFile = errors.New("file contains no data")

// Row maps a normalised header name to the trimmed cell value.
type Row map[string]string

// Get returns the trimmed value for key, or "".
func (r Row) Get(key string) string {
	return r[key]
}

// Missing lists the keys whose values are empty, in the order given.
func (r Row) Missing(keys ...string) []string {
	var out []string
	for _, k := range keys {
		if r[k] == "" {
			out = append(out, k)
		}
	}
	return out
}

// Format of an upload, derived from its file name.
type Format int

const (
	FormatCSV Format = iota + 1
	FormatExcel
)

// DetectFormat inspects the file extension.
func DetectFormat(fileName string) (Format, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xls":
		return FormatExcel, nil
	default:
		return 0, ErrUnsupportedFormat
	}
}

// Parse reads every data row of the file. Blank rows are skipped and a
// file without data rows yields ErrEmptyFile.
func Parse(fileName string, r io.Reader) ([]Row, error) {
	format, err := DetectFormat(fileName)
	if err != nil {
		return nil, err
	}
	var rows []Row
	switch format {
	case FormatCSV:
		rows, err = ParseCSV(r)
	default:
		rows, err = ParseExcel(r)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}

// ParseCSV reads a header-first CSV stream.
func ParseCSV(r io.Reader) ([]Row, error) {
	records, err := gocsv.CSVToMaps(r)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := make(Row, len(rec))
		for k, v := range rec {
			row[NormalizeHeader(k)] = strings.TrimSpace(v)
		}
		if !row.blank() {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// ParseExcel reads the first sheet of a workbook; the first row is the header.
func ParseExcel(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(grid) == 0 {
		return nil, ErrEmptyFile
	}

	headers := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		headers[i] = NormalizeHeader(h)
	}

	rows := make([]Row, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		row := make(Row, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(cells) {
				row[h] = strings.TrimSpace(cells[i])
			} else {
				row[h] = ""
			}
		}
		if !row.blank() {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// NormalizeHeader lower-cases and trims a header, turning spaces and dashes into underscores.
// "Agent Name" and "agent-name" both become "agent_name".
func NormalizeHeader(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	h = strings.ToLower(h)
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	return h
}

func (r Row) blank() bool {
	for _, v := range r {
		if v != "" {
			return false
		}
	}
	return true
}
