package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/arden-atelier/orderdesk/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var ExportHeaders = []string{
	"Ma_don",
	"Ten_khach",
	"SDT",
	"Ngay_dat",
	"Ngay_giao",
	"Ngay_giao_thuc_te",
	"Trang_thai",
	"Tinh_trang",
	"So_ngay_con_lai",
	"Tong_tien",
	"Dat_coc",
	"Con_lai",
	"SL_dat",
	"SL_thuc_te",
}

const exportSheet = "Orders"

func WriteTemplateCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(TemplateHeaders); err != nil {
		return err
	}
	example := []string{"ARDEN-10032025-0001", "Nguyen Thi Lan", "0901234567", "2025-03-10", "2025-03-20", "Ao dai", "Do", "M", "2", "450000"}
	if err := writer.Write(example); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// ExportRecords renders orders as spreadsheet rows in ExportHeaders order,
// including the derived status as of now.
func ExportRecords(list []orders.OrderSummary, now time.Time) [][]string {
	records := make([][]string, 0, len(list))
	for _, o := range list {
		d := orders.Derive(o.DueDate, o.ActualDeliveryDate, o.Status, now)
		daysLeft := ""
		if d.DaysLeft != nil {
			daysLeft = strconv.Itoa(*d.DaysLeft)
		}
		phone := ""
		if o.CustomerPhone != nil {
			phone = *o.CustomerPhone
		}
		records = append(records, []string{
			o.DisplayCode(),
			o.CustomerName,
			phone,
			formatDate(&o.OrderDate),
			formatDate(o.DueDate),
			formatDate(o.ActualDeliveryDate),
			string(o.Status),
			string(d.Status),
			daysLeft,
			o.TotalAmount.String(),
			o.DepositAmount.String(),
			o.RemainingAmount().String(),
			o.PlannedQty.String(),
			o.ActualQty.String(),
		})
	}
	return records
}

func WriteOrdersCSV(w io.Writer, list []orders.OrderSummary, now time.Time) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ExportHeaders); err != nil {
		return err
	}
	if err := writer.WriteAll(ExportRecords(list, now)); err != nil {
		return err
	}
	return writer.Error()
}

// WriteOrdersXLSX writes a single-sheet workbook. Money and quantity columns
// are stored as numbers so spreadsheets can sum them.
func WriteOrdersXLSX(w io.Writer, list []orders.OrderSummary, now time.Time) error {
	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName(book.GetSheetName(0), exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(ExportHeaders))
	for i, h := range ExportHeaders {
		header[i] = h
	}
	if err := book.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, record := range ExportRecords(list, now) {
		cells := make([]any, len(record))
		for j, value := range record {
			cells[j] = xlsxCell(j, value)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := book.SetSheetRow(exportSheet, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := book.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Columns from Tong_tien onward are numeric.
const firstNumericColumn = 9

func xlsxCell(col int, value string) any {
	if col < firstNumericColumn || value == "" {
		return value
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return value
	}
	f, _ := d.Float64()
	return f
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
