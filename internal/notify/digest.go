package notify

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/arden-atelier/orderdesk/internal/orders"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	maxTextRunes    = 4096
	maxCaptionRunes = 1024
)

// Message is one Telegram send: plain HTML text, or a photo with the text as
// caption.
type Message struct {
	Text     string
	PhotoURL string
}

var printer = message.NewPrinter(language.Vietnamese)

// FormatMoney renders an amount the way the workshop writes it: grouped with
// dots and suffixed with the dong sign.
func FormatMoney(amount decimal.Decimal) string {
	return printer.Sprintf("%d", amount.Round(0).IntPart()) + " ₫"
}

func dueLabel(daysLeft int) string {
	switch {
	case daysLeft == 0:
		return "HÔM NAY HẠN GIAO!!!"
	case daysLeft > 0:
		return fmt.Sprintf("Còn %d ngày", daysLeft)
	default:
		return fmt.Sprintf("Quá hạn %d ngày", -daysLeft)
	}
}

func reminderBlock(r orders.Reminder) string {
	name := r.CustomerName
	if strings.TrimSpace(name) == "" {
		name = "Không rõ"
	}
	phone := r.CustomerPhone
	if strings.TrimSpace(phone) == "" {
		phone = "-"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Đơn #%s</b>\n", html.EscapeString(r.Code))
	fmt.Fprintf(&b, "Khách: %s\n", html.EscapeString(name))
	fmt.Fprintf(&b, "SĐT: %s\n", html.EscapeString(phone))
	fmt.Fprintf(&b, "Hạn giao: %s → <b>%s</b>\n", r.DueDate.Format("2/1/2006"), dueLabel(r.DaysLeft))
	fmt.Fprintf(&b, "Tổng: %s\n", FormatMoney(r.Total))
	fmt.Fprintf(&b, "Đã cọc: %s\n", FormatMoney(r.Deposit))
	fmt.Fprintf(&b, "Còn lại: %s\n\n", FormatMoney(r.Remaining))
	return b.String()
}

// BuildMessages batches reminders into as few messages as possible. Orders
// with an image go out as a photo whose caption is that order's block; the
// other blocks are joined into text messages under one heading.
func BuildMessages(reminders []orders.Reminder, now time.Time) []Message {
	if len(reminders) == 0 {
		return nil
	}

	heading := fmt.Sprintf("<b>Nhắc Đơn Hàng Sắp Tới Hạn</b> (%s)\n\n", now.Format("2/1/2006"))
	var out []Message
	var pending strings.Builder
	pending.WriteString(heading)
	pendingBlocks := 0

	flush := func() {
		if pendingBlocks == 0 {
			return
		}
		out = append(out, Message{Text: strings.TrimRight(pending.String(), "\n")})
		pending.Reset()
		pendingBlocks = 0
	}

	for _, r := range reminders {
		block := reminderBlock(r)
		if r.ImageURL != "" {
			out = append(out, Message{Text: truncateRunes(strings.TrimRight(block, "\n"), maxCaptionRunes), PhotoURL: r.ImageURL})
			continue
		}
		if pendingBlocks > 0 && utf8.RuneCountInString(pending.String())+utf8.RuneCountInString(block) > maxTextRunes {
			flush()
		}
		pending.WriteString(block)
		pendingBlocks++
	}
	flush()
	return out
}

func truncateRunes(value string, max int) string {
	if utf8.RuneCountInString(value) <= max {
		return value
	}
	runes := []rune(value)
	return string(runes[:max-1]) + "…"
}
