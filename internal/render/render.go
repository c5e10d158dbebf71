// Package render fills HTML templates with submission values.
//
// Invoice and title templates use {{key}} placeholders, trade cards use
// {key}. Only known keys are replaced and every value is HTML-escaped.
package render

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/m3rciful/pdfbot/internal/validate"
)

// CourseTitle is printed on every personal program title page.
const CourseTitle = "Персональная программа обучения D-Space"

// CurrencySuffix follows the formatted price.
const CurrencySuffix = " ₽"

const orderWidth = 6

// Invoice is the submission consumed by the invoice template.
type Invoice struct {
	Email        string
	CustomerName string
	Phone        string
	OrderNumber  string
	PurchaseDate string
	ProductName  string
	Tariff       string
	Cost         string
}

// Renderer substitutes template values. Timestamps come from now so tests
// can pin them.
type Renderer struct {
	now func() time.Time
}

// New returns a renderer; a nil clock means time.Now.
func New(now func() time.Time) *Renderer {
	if now == nil {
		now = time.Now
	}
	return &Renderer{now: now}
}

// InvoiceValues returns the placeholder values for inv, unescaped.
func (r *Renderer) InvoiceValues(inv Invoice) map[string]string {
	padded := PadOrder(inv.OrderNumber)
	return map[string]string{
		"customer_name":   inv.CustomerName,
		"order_number":    padded,
		"short_number":    ShortOrder(inv.OrderNumber),
		"phone":           inv.Phone,
		"purchase_date":   inv.PurchaseDate,
		"product_name":    inv.ProductName,
		"tariff":          inv.Tariff,
		"number":          "#" + padded,
		"price":           validate.FormatCost(inv.Cost) + CurrencySuffix,
		"generation_time": r.now().Format("02/01/2006 | 15:04"),
	}
}

// Invoice fills an invoice template. generation_time is taken at call time.
func (r *Renderer) Invoice(tpl string, inv Invoice) string {
	return Fill(tpl, r.InvoiceValues(inv))
}

// Title fills the personal program title page.
func (r *Renderer) Title(tpl, customer string) string {
	return Fill(tpl, map[string]string{
		"course_title":  CourseTitle,
		"customer_name": customer,
		"creation_date": r.now().Format("02.01.2006"),
	})
}

// Fill replaces {{key}} for every key in values with the escaped value.
// Unknown placeholders are left untouched.
func Fill(tpl string, values map[string]string) string {
	return replace(tpl, values, "{{", "}}")
}

// FillTokens is Fill for the single-brace {key} syntax of trade cards.
func FillTokens(tpl string, values map[string]string) string {
	return replace(tpl, values, "{", "}")
}

func replace(tpl string, values map[string]string, open, close string) string {
	if len(values) == 0 {
		return tpl
	}
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, open+k+close, html.EscapeString(v))
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// PadOrder left-pads an order number with zeros to six characters.
// Longer values are returned unchanged.
func PadOrder(order string) string {
	n := len([]rune(order))
	if n >= orderWidth {
		return order
	}
	return strings.Repeat("0", orderWidth-n) + order
}

// ShortOrder strips leading zeros; an all-zero or empty order becomes "0".
func ShortOrder(order string) string {
	if s := strings.TrimLeft(order, "0"); s != "" {
		return s
	}
	return "0"
}

var signedNumberRe = regexp.MustCompile(`^([+-]?)(\d+)(?:([.,])(\d+))?$`)

// GroupSigned groups the integer part of a numeric string by thousands,
// keeping a leading sign and the decimal separator. With a ',' decimal the
// groups are separated by spaces, with a '.' decimal by commas. Integers use
// spaces. Anything that is not a plain number is returned unchanged.
func GroupSigned(s string) string {
	m := signedNumberRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return s
	}
	sign, whole, dec, frac := m[1], m[2], m[3], m[4]
	sep := " "
	if dec == "." {
		sep = ","
	}
	out := sign + validate.GroupThousands(whole, sep)
	if dec != "" {
		out += dec + frac
	}
	return out
}

var unsafeNameRe = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]+`)

// SafeFileName makes s usable as a single file name component.
func SafeFileName(s string) string {
	s = strings.TrimSpace(unsafeNameRe.ReplaceAllString(s, "_"))
	if s == "" {
		return "_"
	}
	return s
}

// InvoiceFileName is the delivered name of an invoice PDF.
func InvoiceFileName(order string) string {
	return "invoice_" + SafeFileName(PadOrder(order)) + ".pdf"
}

// ProgramFileName is the delivered name of a personal program PDF.
func ProgramFileName(customer string) string {
	return "Персональная_программа_" + SafeFileName(customer) + ".pdf"
}
