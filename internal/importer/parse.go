// Package importer loads stock sheets into a warehouse.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/lotledger/internal/shared"
)

// Row is one normalised sheet line.
type Row struct {
	Line          int
	ReferenceCode string
	LotNumber     string
	Quantity      int64
	Barcode       string
	ExpiryDate    *time.Time
	ProductName   string
	SalePrice     *decimal.Decimal
	PurchasePrice *decimal.Decimal
	VatRate       *decimal.Decimal
}

const (
	colReference     = "reference_code"
	colLotNumber     = "lot_number"
	colQuantity      = "quantity"
	colBarcode       = "barcode"
	colExpiry        = "expiry_date"
	colProductName   = "product_name"
	colSalePrice     = "sale_price"
	colPurchasePrice = "purchase_price"
	colVatRate       = "vat_rate"
)

var requiredColumns = []string{colReference, colLotNumber, colQuantity}

var dateLayouts = []string{"2006-01-02", "02.01.2006", "02/01/2006", "2006/01/02", "01-02-06"}

// Errors.
var (
	ErrUnsupportedFormat = shared.NewError(shared.KindValidation, "importer: only .csv and .xlsx files are supported")
	ErrEmptySheet        = shared.NewError(shared.KindValidation, "importer: sheet has no header row")
	ErrMissingColumn     = shared.NewError(shared.KindValidation, "importer: required column missing")
	ErrInvalidCell       = shared.NewError(shared.KindValidation, "importer: invalid cell value")
)

// Parse reads a .csv or .xlsx sheet. The first row is the header; column
// order is free and unknown columns are ignored. Blank lines are skipped.
func Parse(filename string, r io.Reader) ([]Row, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		records, err = readCSV(r)
	case ".xlsx":
		records, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptySheet
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[headerKey(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		if blank(record) {
			continue
		}
		row, err := parseRecord(i+2, record, index)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCell, err)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	defer book.Close()
	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	return book.GetRows(sheets[0])
}

func headerKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(name), "_")
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseRecord(line int, record []string, index map[string]int) (Row, error) {
	cell := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	invalid := func(col, value string) error {
		return fmt.Errorf("%w: line %d column %s: %q", ErrInvalidCell, line, col, value)
	}

	row := Row{
		Line:          line,
		ReferenceCode: cell(colReference),
		LotNumber:     cell(colLotNumber),
		Barcode:       cell(colBarcode),
		ProductName:   cell(colProductName),
	}
	if row.ReferenceCode == "" {
		return Row{}, invalid(colReference, "")
	}
	if row.LotNumber == "" {
		return Row{}, invalid(colLotNumber, "")
	}
	qty, err := strconv.ParseInt(cell(colQuantity), 10, 64)
	if err != nil || qty < 0 {
		return Row{}, invalid(colQuantity, cell(colQuantity))
	}
	row.Quantity = qty

	if raw := cell(colExpiry); raw != "" {
		expiry, err := parseDate(raw)
		if err != nil {
			return Row{}, invalid(colExpiry, raw)
		}
		row.ExpiryDate = &expiry
	}
	for col, target := range map[string]**decimal.Decimal{
		colSalePrice:     &row.SalePrice,
		colPurchasePrice: &row.PurchasePrice,
		colVatRate:       &row.VatRate,
	} {
		raw := cell(col)
		if raw == "" {
			continue
		}
		amount, err := parseAmount(raw)
		if err != nil {
			return Row{}, invalid(col, raw)
		}
		*target = &amount
	}
	return row, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	// Spreadsheet cells without a date format carry the serial day number.
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC().Truncate(24 * time.Hour), nil
	}
	return time.Time{}, errors.New("unrecognised date")
}

// parseAmount accepts both "1234.50" and the comma-decimal "1234,50".
func parseAmount(raw string) (decimal.Decimal, error) {
	if strings.Contains(raw, ",") && !strings.Contains(raw, ".") {
		raw = strings.ReplaceAll(raw, ",", ".")
	}
	return decimal.NewFromString(raw)
}
