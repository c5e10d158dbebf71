package form

import (
	"github.com/m3rciful/pdfbot/core/telegram/state"
	"github.com/m3rciful/pdfbot/internal/render"
)

// Session field keys.
const (
	FieldEmail         = "email"
	FieldProduct       = "product"
	FieldProductTitle  = "product_title"
	FieldDuration      = "duration"
	FieldDurationTitle = "duration_title"
	FieldName          = "name"
	FieldPhone         = "phone"
	FieldOrderNumber   = "order_number"
	FieldPurchaseDate  = "purchase_date"
	FieldCost          = "cost"
	FieldUserName      = "user_name"

	// Set after a document was delivered and kept for the mail step.
	FieldDocPath      = "doc_path"
	FieldDocName      = "doc_name"
	FieldSubmissionID = "submission_id"
)

// CustomCode is stored as product or duration code for free-text input.
const CustomCode = "custom"

// Product codes and titles offered as buttons, in display order.
var Products = []Option{
	{Code: "product_a", Title: "Торговая группа Dept Space"},
	{Code: "product_b", Title: "Обучение Dept Space"},
	{Code: "product_c", Title: "Soft Screener"},
}

// Durations offered as buttons, in display order.
var Durations = []Option{
	{Code: "1m", Title: "1 месяц"},
	{Code: "3m", Title: "3 месяца"},
	{Code: "12m", Title: "12 месяцев"},
}

// Option is a selectable code with its human title.
type Option struct {
	Code  string
	Title string
}

func lookup(opts []Option, code string) (string, bool) {
	for _, o := range opts {
		if o.Code == code {
			return o.Title, true
		}
	}
	return "", false
}

// InvoiceFrom reads the invoice fields collected in s.
func InvoiceFrom(s *state.Session) render.Invoice {
	product := s.Get(FieldProductTitle)
	if product == "" {
		product = titleOr(Products, s.Get(FieldProduct))
	}
	tariff := s.Get(FieldDurationTitle)
	if tariff == "" {
		tariff = titleOr(Durations, s.Get(FieldDuration))
	}
	return render.Invoice{
		Email:        s.Get(FieldEmail),
		CustomerName: s.Get(FieldName),
		Phone:        s.Get(FieldPhone),
		OrderNumber:  s.Get(FieldOrderNumber),
		PurchaseDate: s.Get(FieldPurchaseDate),
		ProductName:  product,
		Tariff:       tariff,
		Cost:         s.Get(FieldCost),
	}
}

func titleOr(opts []Option, code string) string {
	if t, ok := lookup(opts, code); ok {
		return t
	}
	return code
}
