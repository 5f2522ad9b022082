package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tealeg/xlsx/v2"

	"realestate/server/internal/models"
)

// RequiredColumns lists the listing spreadsheet headers, lower-cased
var RequiredColumns = []string{
	"date", "time", "address", "development", "suburb", "seen", "price",
	"agent", "office", "com", "type", "bed", "bath", "gar", "land", "access",
	"single level", "rz zoning", "auctioneer",
}

var (
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format, expected .csv or .xlsx")
	ErrEmptySpreadsheet  = errors.New("spreadsheet has no header row")
)

// MissingColumnsError reports required headers absent from an upload
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

// ParseListings reads a CSV or XLSX upload into listing records keyed by
// lower-cased header. The format is chosen by file extension.
func ParseListings(filename string, data []byte) ([]models.ListingRecord, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		rows, err = readCSV(bytes.NewReader(data))
	case ".xlsx":
		rows, err = readXLSX(data)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	return toListingRecords(rows)
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	if len(f.Sheets) == 0 {
		return nil, ErrEmptySpreadsheet
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func toListingRecords(rows [][]string) ([]models.ListingRecord, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySpreadsheet
	}

	header := normalizeHeader(rows[0])
	if missing := missingColumns(header, RequiredColumns); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	records := make([]models.ListingRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		record := make(models.ListingRecord, len(header))
		for i, key := range header {
			if key == "" {
				continue
			}
			value := ""
			if i < len(row) {
				value = strings.TrimSpace(row[i])
			}
			record[key] = value
		}
		records = append(records, record)
	}
	return records, nil
}

func normalizeHeader(row []string) []string {
	header := make([]string, len(row))
	for i, name := range row {
		header[i] = strings.ToLower(strings.TrimSpace(name))
	}
	return header
}

func missingColumns(header, required []string) []string {
	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}
	var missing []string
	for _, name := range required {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
