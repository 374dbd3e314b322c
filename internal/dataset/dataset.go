// Package dataset loads the comment table from CSV or XLSX and resolves the
// text column once, before any classification starts.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"crisis-monitor/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrMalformed means the input could not be parsed as a table
	ErrMalformed = errors.New("malformed dataset")
	// ErrColumnNotFound means the requested text column is not in the header
	ErrColumnNotFound = errors.New("column not found")
	// ErrUnsupportedFormat means the input is neither CSV nor XLSX
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
)

// Format of an input table
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Table is a parsed input with a header row
type Table struct {
	Header []string
	Rows   [][]string
}

// DetectFormat picks the format from the file name, falling back to content sniffing
func DetectFormat(name string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return CSV, nil
	case ".xlsx":
		return XLSX, nil
	}

	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is(xlsxMIME):
		return XLSX, nil
	case mtype.Is("text/csv"), mtype.Is("text/plain"):
		return CSV, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mtype.String())
	}
}

// Parse reads a whole table. XLSX input uses the first sheet.
func Parse(data []byte, format Format) (*Table, error) {
	var rows [][]string
	var err error

	switch format {
	case CSV:
		rows, err = parseCSV(data)
	case XLSX:
		rows, err = parseXLSX(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrMalformed)
	}

	header := rows[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	return &Table{Header: header, Rows: rows[1:]}, nil
}

func parseCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))
	// short rows are padded by Comments, rows wider than the header are rejected
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(rows) > 0 {
		for i, row := range rows[1:] {
			if len(row) > len(rows[0]) {
				return nil, fmt.Errorf("%w: line %d has %d fields, header has %d", ErrMalformed, i+2, len(row), len(rows[0]))
			}
		}
	}
	return rows, nil
}

func parseXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformed)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return rows, nil
}

// Column resolves a column name to its index. The match is exact first, then
// case-insensitive. An empty name selects the only column of a single-column table.
func (t *Table) Column(name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		if len(t.Header) == 1 {
			return 0, nil
		}
		return -1, fmt.Errorf("%w: no column given, available: %s", ErrColumnNotFound, strings.Join(t.Header, ", "))
	}

	for i, h := range t.Header {
		if h == name {
			return i, nil
		}
	}
	for i, h := range t.Header {
		if strings.EqualFold(h, name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q, available: %s", ErrColumnNotFound, name, strings.Join(t.Header, ", "))
}

// Comments returns one comment per row, reading the text at column index.
// Short rows give empty text.
func (t *Table) Comments(column int) []models.Comment {
	comments := make([]models.Comment, len(t.Rows))
	for i, row := range t.Rows {
		var text string
		if column < len(row) {
			text = row[column]
		}
		comments[i] = models.Comment{
			ID:   i + 1,
			Row:  i + 2,
			Text: text,
		}
	}
	return comments
}

// Load parses data named name and extracts the comments of column
func Load(data []byte, name, column string) ([]models.Comment, error) {
	format, err := DetectFormat(name, data)
	if err != nil {
		return nil, err
	}
	table, err := Parse(data, format)
	if err != nil {
		return nil, err
	}
	idx, err := table.Column(column)
	if err != nil {
		return nil, err
	}
	return table.Comments(idx), nil
}

// LoadReader is Load over a reader
func LoadReader(r io.Reader, name, column string) ([]models.Comment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return Load(data, name, column)
}

// LoadFile is Load over a file on disk
func LoadFile(path, column string) ([]models.Comment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return Load(data, filepath.Base(path), column)
}
