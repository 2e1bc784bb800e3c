package tabular

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/arden-atelier/orderdesk/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Error describes why an upload could not be decoded at all. Code is stable
// and ends up in API error envelopes.
type Error struct {
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string { return e.Message }

type Options struct {
	// MaxRows limits data rows; zero means unlimited.
	MaxRows int
	// Sheet selects an XLSX sheet by name; the first sheet is used when empty.
	Sheet string
}

// File is a decoded upload: every data row converted to an ImportRow with
// per-field issues attached.
type File struct {
	Filename string
	SHA256   string
	Format   Format
	Headers  []string
	Rows     []orders.ImportRow
}

func FormatFromFilename(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", &Error{Code: "invalid_file_type", Message: "Only .csv and .xlsx uploads are supported"}
	}
}

func Checksum(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}

// Decode parses a CSV or XLSX upload. The first row must be a header row.
func Decode(filename string, data []byte, opts Options) (File, error) {
	format, err := FormatFromFilename(filename)
	if err != nil {
		return File{}, err
	}

	var records [][]string
	switch format {
	case FormatXLSX:
		records, err = readXLSX(data, opts.Sheet)
	default:
		records, err = readCSV(data)
	}
	if err != nil {
		return File{}, err
	}
	if len(records) == 0 {
		return File{}, &Error{Code: "empty_file", Message: "Uploaded file is empty"}
	}

	headers := normalizeHeaderRow(records[0])
	dataRows := records[1:]
	if opts.MaxRows > 0 && len(dataRows) > opts.MaxRows {
		return File{}, &Error{
			Code:    "row_limit_exceeded",
			Message: "Row limit exceeded",
			Details: map[string]any{"maxRows": opts.MaxRows},
		}
	}

	mapping, missing := mapColumns(headers)
	if len(missing) > 0 {
		return File{}, &Error{
			Code:    "missing_columns",
			Message: "Required columns not found in header: " + strings.Join(missing, ", "),
			Details: map[string]any{"missing": missing},
		}
	}

	rows := make([]orders.ImportRow, 0, len(dataRows))
	for i, record := range dataRows {
		if blankRecord(record) {
			continue
		}
		// Line numbers are 1-based and count the header.
		rows = append(rows, buildRow(i+2, record, mapping))
	}

	return File{
		Filename: filename,
		SHA256:   Checksum(data),
		Format:   format,
		Headers:  headers,
		Rows:     rows,
	}, nil
}

func readCSV(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows := make([][]string, 0, 1024)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &Error{
				Code:    "invalid_csv",
				Message: "CSV parsing failed",
				Details: map[string]any{"reason": err.Error()},
			}
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func readXLSX(data []byte, sheet string) ([][]string, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &Error{Code: "invalid_xlsx", Message: "XLSX parsing failed", Details: map[string]any{"reason": err.Error()}}
	}
	defer book.Close()

	if sheet == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, &Error{Code: "empty_file", Message: "Workbook has no sheets"}
		}
		sheet = sheets[0]
	}
	rows, err := book.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &Error{
			Code:    "invalid_xlsx",
			Message: fmt.Sprintf("Sheet %q could not be read", sheet),
			Details: map[string]any{"reason": err.Error()},
		}
	}
	return rows, nil
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func buildRow(line int, record []string, mapping map[string]int) orders.ImportRow {
	get := func(field string) string {
		idx, ok := mapping[field]
		if !ok || idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	row := orders.ImportRow{
		Line:         line,
		OrderKey:     get(orders.FieldOrderKey),
		CustomerName: get(orders.FieldCustomerName),
		Phone:        get(orders.FieldPhone),
		ProductName:  get(orders.FieldProductName),
		Color:        get(orders.FieldColor),
		Size:         get(orders.FieldSize),
		UnitPrice:    decimal.Zero,
	}

	for _, field := range []string{orders.FieldOrderDate, orders.FieldDueDate} {
		raw := get(field)
		date, err := ParseDate(raw)
		if err != nil {
			row.Issues = append(row.Issues, orders.FieldIssue{Field: field, RawValue: raw, Message: err.Error()})
			continue
		}
		if field == orders.FieldOrderDate {
			row.OrderDate = date
		} else {
			row.DueDate = date
		}
	}

	if raw := get(orders.FieldQuantity); raw != "" {
		qty, err := ParseNumber(raw)
		if err != nil {
			row.Issues = append(row.Issues, orders.FieldIssue{Field: orders.FieldQuantity, RawValue: raw, Message: "invalid number"})
		} else {
			row.Quantity = &qty
		}
	}

	if raw := get(orders.FieldUnitPrice); raw != "" {
		price, err := ParseNumber(raw)
		switch {
		case err != nil:
			row.Issues = append(row.Issues, orders.FieldIssue{Field: orders.FieldUnitPrice, RawValue: raw, Message: "invalid number, using 0"})
		case price.IsNegative():
			row.Issues = append(row.Issues, orders.FieldIssue{Field: orders.FieldUnitPrice, RawValue: raw, Message: "negative price, using 0"})
		default:
			row.UnitPrice = price
		}
	}
	return row
}
