package importer

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"realestate/server/internal/estimate"
	"realestate/server/internal/models"
)

var ComparableColumns = []string{
	"address", "suburb", "property_type", "sale_date", "sale_price",
	"bedrooms", "bathrooms", "parking", "land_size",
}

var errRequired = errors.New("required")

// RowError locates a bad value in a comparables file. Row numbers count the
// header as row 1.
type RowError struct {
	Row    int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, column %s: %v", e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ParseComparables reads a comparable sales CSV. Any invalid row fails the
// whole file so a partial dataset never reaches the calculator.
func ParseComparables(r io.Reader) ([]models.ComparableSale, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptySpreadsheet
	}

	header := normalizeHeader(rows[0])
	if missing := missingColumns(header, ComparableColumns); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	sales := make([]models.ComparableSale, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		sale, err := parseSaleRow(row, index, n+2)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, nil
}

func parseSaleRow(row []string, index map[string]int, rowNum int) (models.ComparableSale, error) {
	get := func(column string) string {
		i := index[column]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	fail := func(column string, err error) (models.ComparableSale, error) {
		return models.ComparableSale{}, &RowError{Row: rowNum, Column: column, Err: err}
	}

	sale := models.ComparableSale{
		Address: get("address"),
		Suburb:  NormalizeSuburb(get("suburb")),
	}
	if sale.Address == "" {
		return fail("address", errRequired)
	}
	if sale.Suburb == "" {
		return fail("suburb", errRequired)
	}

	pt, ok := estimate.ParsePropertyType(get("property_type"))
	if !ok {
		return fail("property_type", fmt.Errorf("must be house or unit, got %q", get("property_type")))
	}
	sale.PropertyType = string(pt)

	date := models.ParseDate(get("sale_date"))
	if date == nil {
		return fail("sale_date", fmt.Errorf("unrecognised date %q", get("sale_date")))
	}
	sale.SaleDate = *date

	price, ok := models.ExtractPrice(get("sale_price"))
	if !ok || price <= 0 {
		return fail("sale_price", fmt.Errorf("must be a positive amount, got %q", get("sale_price")))
	}
	sale.SalePrice = price

	var err error
	if sale.Bedrooms, err = optionalInt(get("bedrooms")); err != nil {
		return fail("bedrooms", err)
	}
	if sale.Bathrooms, err = optionalInt(get("bathrooms")); err != nil {
		return fail("bathrooms", err)
	}
	if sale.Parking, err = optionalInt(get("parking")); err != nil {
		return fail("parking", err)
	}
	if sale.LandSize, err = optionalFloat(get("land_size")); err != nil {
		return fail("land_size", err)
	}

	return sale, nil
}

// NormalizeSuburb collapses whitespace and title-cases each all-lower or
// all-upper word of a suburb name. Mixed-case words such as "McKellar" are
// kept, and the letter after an O' or D' prefix is capitalised.
func NormalizeSuburb(name string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		return ""
	}
	// Casers carry state, so one per call
	title := cases.Title(language.English)
	for i, word := range words {
		if word != strings.ToLower(word) && word != strings.ToUpper(word) {
			continue
		}
		r := []rune(title.String(word))
		if len(r) > 2 && r[1] == '\'' {
			r[2] = unicode.ToUpper(r[2])
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func optionalInt(value string) (*int, error) {
	if value == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("must be a non-negative whole number, got %q", value)
	}
	return &n, nil
}

func optionalFloat(value string) (*float64, error) {
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
	if err != nil || f < 0 {
		return nil, fmt.Errorf("must be a non-negative number, got %q", value)
	}
	return &f, nil
}
