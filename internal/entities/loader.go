package entities

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/youruser/distintivos/internal/overlay"
)

var ErrTable = errors.New("cannot read input table")

// Column positions in the input table.
const (
	colName = iota
	colLogo
	colInfo
	colX
	colY
	colWidth
	colHeight
)

// LoadOptions tunes table parsing.
type LoadOptions struct {
	// Delimiter for CSV input; defaults to ','.
	Delimiter rune
	// Sheet selects the XLSX sheet; defaults to the first one.
	Sheet string
}

// LoadRecords reads a CSV or XLSX table. The first row is a header and is
// skipped. Any error here is fatal for the batch.
func LoadRecords(path string, opts LoadOptions) ([]Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return loadXLSX(path, opts.Sheet)
	default:
		fp, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTable, err)
		}
		defer fp.Close()
		return ReadCSV(fp, opts.Delimiter)
	}
}

// ReadCSV parses CSV rows from r.
func ReadCSV(r io.Reader, delimiter rune) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if delimiter != 0 {
		if !utf8.ValidRune(delimiter) || delimiter == '"' || delimiter == '\n' || delimiter == '\r' {
			return nil, fmt.Errorf("%w: invalid delimiter %q", ErrTable, delimiter)
		}
		cr.Comma = delimiter
	}

	var rows []tableRow
	for {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTable, err)
		}
		// Blank lines never reach here and quoted cells may span lines.
		line, _ := cr.FieldPos(0)
		rows = append(rows, tableRow{line: line, cells: cells})
	}
	return fromRows(rows)
}

func loadXLSX(path, sheet string) ([]Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTable, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook %s has no sheets", ErrTable, path)
		}
		sheet = sheets[0]
	}
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %v", ErrTable, sheet, err)
	}
	// GetRows keeps empty rows in place, so the index is the sheet row.
	rows := make([]tableRow, len(cells))
	for i, c := range cells {
		rows[i] = tableRow{line: i + 1, cells: c}
	}
	return fromRows(rows)
}

// tableRow is one raw row and the 1-based line it starts on.
type tableRow struct {
	line  int
	cells []string
}

func fromRows(rows []tableRow) ([]Record, error) {
	if len(rows) < 1 {
		return nil, fmt.Errorf("%w: table has no header", ErrTable)
	}

	out := make([]Record, 0, len(rows)-1)
	for _, tr := range rows[1:] {
		row := tr.cells
		if isBlank(row) {
			continue
		}
		get := func(idx int) string {
			if idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}
		rec := Record{
			Row:           tr.line,
			Name:          NormalizeName(get(colName)),
			LogoReference: get(colLogo),
			InfoPayload:   get(colInfo),
		}
		rec.Override, rec.overrideErr = parseOverride(get(colX), get(colY), get(colWidth), get(colHeight))
		out = append(out, rec)
	}
	return out, nil
}

// parseOverride returns a box only when all four coordinates are present.
func parseOverride(x, y, w, h string) (*overlay.Rect, error) {
	fields := []string{x, y, w, h}
	for _, f := range fields {
		if f == "" {
			return nil, nil
		}
	}
	var vals [4]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.ReplaceAll(f, ",", "."), 64)
		if err != nil {
			return nil, fmt.Errorf("override coordinate %q is not a number", f)
		}
		vals[i] = v
	}
	return &overlay.Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
