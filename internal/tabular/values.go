package tabular

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var errInvalidDate = errors.New("invalid date format")

var dateLayouts = []string{
	"2006-1-2",
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2006/1/2",
}

// ParseDate accepts ISO dates, day-first dates and spreadsheet serial numbers.
// Time-of-day suffixes are dropped. A blank value yields nil without error.
func ParseDate(value string) (*time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return nil, nil
	}
	if idx := strings.IndexAny(raw, " T"); idx > 0 && len(raw) > 10 {
		raw = raw[:idx]
	}

	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		date := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		return &date, nil
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial >= 1 && serial < 2958466 {
		parsed, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			date := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
			return &date, nil
		}
	}
	return nil, errInvalidDate
}

// ParseNumber reads quantities and prices as written in local spreadsheets:
// "100000", "100,000", "100.000.000", "1.234,5", "2.5", "150.000đ".
func ParseNumber(value string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return decimal.Zero, nil
	}
	cleaned := strings.NewReplacer(" ", "", "\u00a0", "").Replace(raw)
	withoutCurrency := currencyMarks.Replace(cleaned)
	// Amounts written with a currency mark never carry decimals.
	if withoutCurrency != cleaned {
		cleaned = strings.NewReplacer(".", "", ",", "").Replace(withoutCurrency)
		return decimal.NewFromString(cleaned)
	}

	hasDot := strings.Contains(cleaned, ".")
	hasComma := strings.Contains(cleaned, ",")
	switch {
	case hasDot && hasComma:
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case hasComma:
		if thousandsGrouped(cleaned, ",") {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		}
	case hasDot:
		if strings.Count(cleaned, ".") > 1 && thousandsGrouped(cleaned, ".") {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	}
	return decimal.NewFromString(cleaned)
}

var currencyMarks = strings.NewReplacer("đ", "", "₫", "", "VND", "", "vnd", "")

func thousandsGrouped(value, sep string) bool {
	parts := strings.Split(strings.TrimPrefix(value, "-"), sep)
	if len(parts) < 2 || parts[0] == "" || len(parts[0]) > 3 {
		return false
	}
	for _, part := range parts[1:] {
		if len(part) != 3 {
			return false
		}
	}
	return true
}
