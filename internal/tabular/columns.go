package tabular

import (
	"strings"
	"unicode"

	"github.com/arden-atelier/orderdesk/internal/orders"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TemplateHeaders is the column layout the workshop spreadsheets use.
var TemplateHeaders = []string{
	"Ma_don",
	"Ten_khach",
	"SDT",
	"Ngay_dat",
	"Ngay_giao",
	"San_pham",
	"Mau",
	"Size",
	"So_luong",
	"Don_gia",
}

var RequiredFields = []string{
	orders.FieldOrderKey,
	orders.FieldCustomerName,
	orders.FieldProductName,
	orders.FieldQuantity,
}

var headerAliases = map[string]string{
	"madon":         orders.FieldOrderKey,
	"ordercode":     orders.FieldOrderKey,
	"orderkey":      orders.FieldOrderKey,
	"code":          orders.FieldOrderKey,
	"tenkhach":      orders.FieldCustomerName,
	"tenkhachhang":  orders.FieldCustomerName,
	"khachhang":     orders.FieldCustomerName,
	"customername":  orders.FieldCustomerName,
	"customer":      orders.FieldCustomerName,
	"sdt":           orders.FieldPhone,
	"sodienthoai":   orders.FieldPhone,
	"dienthoai":     orders.FieldPhone,
	"phone":         orders.FieldPhone,
	"phonenumber":   orders.FieldPhone,
	"ngaydat":       orders.FieldOrderDate,
	"orderdate":     orders.FieldOrderDate,
	"ngaygiao":      orders.FieldDueDate,
	"ngayhen":       orders.FieldDueDate,
	"duedate":       orders.FieldDueDate,
	"deliverydate":  orders.FieldDueDate,
	"sanpham":       orders.FieldProductName,
	"tensanpham":    orders.FieldProductName,
	"productname":   orders.FieldProductName,
	"product":       orders.FieldProductName,
	"mau":           orders.FieldColor,
	"mausac":        orders.FieldColor,
	"color":         orders.FieldColor,
	"colour":        orders.FieldColor,
	"size":          orders.FieldSize,
	"kichco":        orders.FieldSize,
	"soluong":       orders.FieldQuantity,
	"sl":            orders.FieldQuantity,
	"quantity":      orders.FieldQuantity,
	"qty":           orders.FieldQuantity,
	"dongia":        orders.FieldUnitPrice,
	"gia":           orders.FieldUnitPrice,
	"unitprice":     orders.FieldUnitPrice,
	"price":         orders.FieldUnitPrice,
}

func normalizeHeaderRow(row []string) []string {
	headers := make([]string, len(row))
	for i, col := range row {
		headers[i] = strings.TrimPrefix(strings.TrimSpace(col), "\ufeff")
	}
	return headers
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeHeaderKey folds a header cell to its alias key: lower case, no
// separators, no Vietnamese diacritics ("Mã đơn" becomes "madon").
func normalizeHeaderKey(raw string) string {
	folded, _, err := transform.String(stripMarks, strings.TrimSpace(raw))
	if err != nil {
		folded = raw
	}
	folded = strings.NewReplacer("đ", "d", "Đ", "d").Replace(folded)
	replacer := strings.NewReplacer(" ", "", "_", "", "-", "", ".", "", "/", "")
	return strings.ToLower(replacer.Replace(folded))
}

// mapColumns resolves each known field to the first header column naming it.
// Unknown columns are ignored.
func mapColumns(headers []string) (map[string]int, []string) {
	mapping := map[string]int{}
	for idx, header := range headers {
		field, ok := headerAliases[normalizeHeaderKey(header)]
		if !ok {
			continue
		}
		if _, taken := mapping[field]; !taken {
			mapping[field] = idx
		}
	}

	var missing []string
	for _, field := range RequiredFields {
		if _, ok := mapping[field]; !ok {
			missing = append(missing, field)
		}
	}
	return mapping, missing
}
