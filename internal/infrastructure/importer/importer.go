// Package importer reads student name lists from uploaded spreadsheets.
//
// Supported formats are .xlsx (first sheet) and .csv. The header row must
// contain a "name" column, matched case-insensitively; blank cells are
// skipped and the remaining names are returned in row order.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/classroll/classroll/internal/domain/shared"
)

// NameColumn is the required header of the name column.
const NameColumn = "name"

// Supported file extensions.
const (
	ExtXLSX = ".xlsx"
	ExtCSV  = ".csv"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither .xlsx nor .csv.
	ErrUnsupportedFormat = shared.NewDomainError("import", "Parse", shared.ErrValidation, "file must be .xlsx or .csv")

	// ErrNoNameColumn is returned when the header row has no "name" column.
	ErrNoNameColumn = shared.NewDomainError("import", "Parse", shared.ErrValidation, `header row must contain a "name" column`)

	// ErrNoNames is returned when the file has a header but no names.
	ErrNoNames = shared.NewDomainError("import", "Parse", shared.ErrValidation, "file contains no names")
)

// ParseNames reads names from r, choosing the format by filename's
// extension.
func ParseNames(filename string, r io.Reader) ([]string, error) {
	var (
		rows [][]string
		err  error
	)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ExtXLSX:
		rows, err = readXLSX(r)
	case ExtCSV:
		rows, err = readCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, shared.WrapError("import", "Parse", shared.ErrValidation, "could not read spreadsheet", err)
	}

	return namesFromRows(rows)
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr.ReadAll()
}

// namesFromRows locates the name column in the first non-empty row and
// collects the non-blank cells below it.
func namesFromRows(rows [][]string) ([]string, error) {
	header := -1
	col := -1
	for i, row := range rows {
		if isBlankRow(row) {
			continue
		}
		header = i
		for j, cell := range row {
			if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")), NameColumn) {
				col = j
				break
			}
		}
		break
	}
	if header < 0 || col < 0 {
		return nil, ErrNoNameColumn
	}

	var names []string
	for _, row := range rows[header+1:] {
		if col >= len(row) {
			continue
		}
		name := strings.TrimSpace(row[col])
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, ErrNoNames
	}
	return names, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// WriteTemplate writes an .xlsx workbook with the expected header and the
// given sample names, for users who need a starting file.
func WriteTemplate(w io.Writer, names ...string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetCellValue(sheet, "A1", NameColumn); err != nil {
		return err
	}
	for i, n := range names {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, n); err != nil {
			return err
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	return nil
}
