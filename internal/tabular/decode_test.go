package tabular

import (
	"bytes"
	"testing"
	"time"

	"github.com/arden-atelier/orderdesk/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDecodeCSVWithTemplateHeaders(t *testing.T) {
	data := []byte("\ufeffMa_don,Ten_khach,SDT,Ngay_dat,Ngay_giao,San_pham,Mau,Size,So_luong,Don_gia\n" +
		"A1, Lan ,090,10/03/2025,2025-03-20,Shirt,Red,M,5,\"100,000\"\n" +
		"A1,Lan,090,,,Pants,,,0,50000\n" +
		",,,,,,,,,\n" +
		"A2,Hoa,,31/02/2025,,Dress,,,abc,x\n")

	file, err := Decode("orders.csv", data, Options{})
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, file.Format)
	assert.Equal(t, Checksum(data), file.SHA256)
	assert.Equal(t, "Ma_don", file.Headers[0])
	require.Len(t, file.Rows, 3)

	first := file.Rows[0]
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, "A1", first.OrderKey)
	assert.Equal(t, "Lan", first.CustomerName)
	assert.Equal(t, "090", first.Phone)
	require.NotNil(t, first.OrderDate)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), *first.OrderDate)
	require.NotNil(t, first.DueDate)
	assert.Equal(t, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), *first.DueDate)
	assert.Equal(t, "Red", first.Color)
	require.NotNil(t, first.Quantity)
	assert.True(t, first.Quantity.Equal(decimal.NewFromInt(5)))
	assert.True(t, first.UnitPrice.Equal(decimal.NewFromInt(100000)))
	assert.True(t, first.ValidItem())

	second := file.Rows[1]
	assert.Equal(t, 3, second.Line)
	assert.False(t, second.ValidItem())
	assert.Nil(t, second.DueDate)
	assert.Empty(t, second.Issues)

	third := file.Rows[2]
	assert.Equal(t, 5, third.Line)
	issue, ok := third.Issue(orders.FieldOrderDate)
	require.True(t, ok)
	assert.Equal(t, "31/02/2025", issue.RawValue)
	_, ok = third.Issue(orders.FieldQuantity)
	assert.True(t, ok)
	_, ok = third.Issue(orders.FieldUnitPrice)
	assert.True(t, ok)
	assert.Nil(t, third.Quantity)
	assert.True(t, third.UnitPrice.IsZero())
}

func TestDecodeAcceptsHeaderAliases(t *testing.T) {
	data := []byte("Mã đơn,Tên khách hàng,Số điện thoại,Sản phẩm,Số lượng,Đơn giá,Ghi chú\n" +
		"B7,Hoa,091,Vest,1,1.200.000,note\n")

	file, err := Decode("upload.CSV", data, Options{})
	require.NoError(t, err)
	require.Len(t, file.Rows, 1)
	row := file.Rows[0]
	assert.Equal(t, "B7", row.OrderKey)
	assert.Equal(t, "Hoa", row.CustomerName)
	assert.Equal(t, "091", row.Phone)
	assert.Equal(t, "Vest", row.ProductName)
	assert.True(t, row.UnitPrice.Equal(decimal.NewFromInt(1200000)))
}

func TestDecodeRejectsBadUploads(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     string
		opts     Options
		code     string
	}{
		{name: "extension", filename: "orders.txt", data: "a", code: "invalid_file_type"},
		{name: "empty", filename: "orders.csv", data: "", code: "empty_file"},
		{name: "missing columns", filename: "orders.csv", data: "Ma_don,Ten_khach\nA1,Lan\n", code: "missing_columns"},
		{name: "row limit", filename: "orders.csv", data: "Ma_don,Ten_khach,San_pham,So_luong\nA1,Lan,Shirt,1\nA2,Lan,Shirt,1\n", opts: Options{MaxRows: 1}, code: "row_limit_exceeded"},
		{name: "broken quotes", filename: "orders.csv", data: "Ma_don,Ten_khach\n\"A1,Lan\n", code: "invalid_csv"},
		{name: "broken xlsx", filename: "orders.xlsx", data: "not a zip", code: "invalid_xlsx"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.filename, []byte(tc.data), tc.opts)
			var derr *Error
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, tc.code, derr.Code)
		})
	}
}

func TestDecodeXLSX(t *testing.T) {
	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	header := []any{"Ma_don", "Ten_khach", "SDT", "Ngay_dat", "Ngay_giao", "San_pham", "Mau", "Size", "So_luong", "Don_gia"}
	require.NoError(t, book.SetSheetRow(sheet, "A1", &header))
	first := []any{"A1", "Lan", "090", 45726, "20/03/2025", "Shirt", "Red", "M", 5, 100000}
	require.NoError(t, book.SetSheetRow(sheet, "A2", &first))
	second := []any{"A1", "Lan", "090", "", "", "Scarf", "", "", 1.5, 20000.5}
	require.NoError(t, book.SetSheetRow(sheet, "A3", &second))

	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))
	require.NoError(t, book.Close())

	file, err := Decode("orders.xlsx", buf.Bytes(), Options{})
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, file.Format)
	require.Len(t, file.Rows, 2)

	row := file.Rows[0]
	require.NotNil(t, row.OrderDate)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), *row.OrderDate)
	require.NotNil(t, row.DueDate)
	assert.Equal(t, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), *row.DueDate)
	assert.True(t, row.UnitPrice.Equal(decimal.NewFromInt(100000)))

	scarf := file.Rows[1]
	require.NotNil(t, scarf.Quantity)
	assert.True(t, scarf.Quantity.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, scarf.UnitPrice.Equal(decimal.RequireFromString("20000.5")))
}

func TestDecodeXLSXUnknownSheet(t *testing.T) {
	book := excelize.NewFile()
	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))
	require.NoError(t, book.Close())

	_, err := Decode("orders.xlsx", buf.Bytes(), Options{Sheet: "Missing"})
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "invalid_xlsx", derr.Code)
}

func TestNormalizeHeaderKey(t *testing.T) {
	assert.Equal(t, "madon", normalizeHeaderKey("Mã đơn"))
	assert.Equal(t, "madon", normalizeHeaderKey(" Ma_don "))
	assert.Equal(t, "soluong", normalizeHeaderKey("SỐ LƯỢNG"))
	assert.Equal(t, "dongia", normalizeHeaderKey("Đơn giá"))
	assert.Equal(t, "customername", normalizeHeaderKey("customer-name"))
}
