package form

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/core/telegram/state"
	"github.com/m3rciful/pdfbot/internal/chat"
	"github.com/m3rciful/pdfbot/internal/journal"
	"github.com/m3rciful/pdfbot/internal/pipeline"
	"github.com/m3rciful/pdfbot/internal/render"
	"github.com/m3rciful/pdfbot/internal/validate"
)

// Flow names.
const (
	FlowInvoice = "invoice"
	FlowProgram = "user_pdf"
)

// Invoice flow states.
const (
	StateEmail            state.State = "invoice.email"
	StateProduct          state.State = "invoice.product"
	StateDuration         state.State = "invoice.duration"
	StateName             state.State = "invoice.name"
	StatePhone            state.State = "invoice.phone"
	StateOrderNumber      state.State = "invoice.order_number"
	StatePurchaseDate     state.State = "invoice.purchase_date"
	StateCost             state.State = "invoice.cost"
	StateConfirm          state.State = "invoice.confirm"
	StateSendEmailConfirm state.State = "invoice.send_email_confirm"
)

// Invoice flow texts.
const (
	MsgInvoiceCancelled = "❌ Создание инвойса отменено."
	MsgRejected         = "Отменено."
	MsgBadEmail         = "Неверная почта, попробуйте снова."
	MsgBadDateFormat    = "Неверный формат даты. Введите дату в формате ДД/ММ/ГГГГ (например: 25/12/2023):"
	MsgBadDate          = "Неверная дата. Проверьте правильность введенной даты:"
	MsgRenderFailed     = "Ошибка при генерации PDF. Попробуйте еще раз."
	MsgDeliveryFailed   = "Не удалось отправить PDF в чат. Попробуйте еще раз."
	MsgMailSkipped      = "Отправка на email отменена."
	MsgMailMissing      = "Файл для отправки не найден. Попробуйте сгенерировать инвойс заново."
	MsgMailSent         = "Письмо отправлено на указанную почту."
	MsgMailFailed       = "Не удалось отправить письмо. Проверьте настройки почты и попробуйте снова."

	promptEmail        = "Введите почту:"
	promptProduct      = "Выберите продукт кнопкой ниже или введите название вручную:"
	promptDuration     = "Выберите продолжительность кнопкой ниже или введите вручную (например: 1 месяц):"
	promptName         = "Введите имя:"
	promptPhone        = "Введите телефон:"
	promptOrder        = "Введите номер заказа:"
	promptPurchaseDate = "Введите дату покупки (ДД/ММ/ГГГГ):"
	promptCost         = "Введите стоимость:"
)

// Documents is the part of the pipeline the flows drive.
type Documents interface {
	NewWorkspace(ctx context.Context, kind pipeline.Kind) (*pipeline.Workspace, error)
	Invoice(ctx context.Context, ws *pipeline.Workspace, inv render.Invoice) (pipeline.Document, error)
	Program(ctx context.Context, ws *pipeline.Workspace, customer, contentPath string) (pipeline.Document, error)
	SendMail(ctx context.Context, doc pipeline.Document, recipient string) error
}

// Deps are shared by the flow constructors.
type Deps struct {
	Transport chat.Transport
	Documents Documents
	Journal   journal.Recorder
	// DefaultDocument is the content used by "use existing" in the program flow.
	DefaultDocument string
}

func (d Deps) journal() journal.Recorder {
	if d.Journal == nil {
		return journal.Nop{}
	}
	return d.Journal
}

func staticPrompt(text string, kb func() chat.Keyboard) func(*state.Session) Prompt {
	return func(*state.Session) Prompt {
		return Prompt{Text: text, Keyboard: kb()}
	}
}

// InvoiceFlow collects invoice fields, renders the PDF and optionally mails it.
func InvoiceFlow(d Deps) Flow {
	tr := d.Transport

	textStep := func(field string, next state.State) Handler {
		return func(ctx context.Context, t *Turn) (state.State, error) {
			v, err := validate.NonEmpty(field, t.Input)
			if err != nil {
				return t.Session.State, errUnmatched
			}
			t.Session.Set(field, v)
			return advance(ctx, tr, t, next, invoicePrompts)
		}
	}

	choice := func(prefix, codeField, titleField string, opts []Option, next state.State) (Handler, Handler) {
		onCallback := func(ctx context.Context, t *Turn) (state.State, error) {
			code, ok := strings.CutPrefix(t.Input, prefix)
			if !ok {
				return t.Session.State, errUnmatched
			}
			title, known := lookup(opts, code)
			if !known {
				title = code
			}
			t.Session.Set(codeField, code)
			t.Session.Set(titleField, title)
			return advance(ctx, tr, t, next, invoicePrompts)
		}
		onText := func(ctx context.Context, t *Turn) (state.State, error) {
			title, err := validate.NonEmpty(codeField, t.Input)
			if err != nil {
				return t.Session.State, errUnmatched
			}
			t.Session.Set(codeField, CustomCode)
			t.Session.Set(titleField, title)
			return advance(ctx, tr, t, next, invoicePrompts)
		}
		return onCallback, onText
	}

	productCB, productText := choice(callbackProduct, FieldProduct, FieldProductTitle, Products, StateDuration)
	durationCB, durationText := choice(callbackDuration, FieldDuration, FieldDurationTitle, Durations, StateName)

	return Flow{
		Name:      FlowInvoice,
		Start:     StateEmail,
		Cancelled: MsgInvoiceCancelled,
		Prompts:   invoicePrompts,
		Table: Table{
			{chat.KindText, StateEmail}: func(ctx context.Context, t *Turn) (state.State, error) {
				email, err := validate.Email(t.Input)
				if err != nil {
					return invalid(ctx, tr, t, err, MsgBadEmail, cancelKeyboard())
				}
				t.Session.Set(FieldEmail, email)
				return advance(ctx, tr, t, StateProduct, invoicePrompts)
			},
			{chat.KindCallback, StateProduct}: productCB,
			{chat.KindText, StateProduct}:     productText,
			{chat.KindCallback, StateDuration}: durationCB,
			{chat.KindText, StateDuration}:     durationText,
			{chat.KindText, StateName}:         textStep(FieldName, StatePhone),
			{chat.KindText, StatePhone}:        textStep(FieldPhone, StateOrderNumber),
			{chat.KindText, StateOrderNumber}:  textStep(FieldOrderNumber, StatePurchaseDate),
			{chat.KindText, StatePurchaseDate}: func(ctx context.Context, t *Turn) (state.State, error) {
				date, err := validate.Date(t.Input)
				switch {
				case errors.Is(err, &validate.Error{Reason: validate.ReasonDateFormat}):
					return invalid(ctx, tr, t, err, MsgBadDateFormat, cancelKeyboard())
				case err != nil:
					return invalid(ctx, tr, t, err, MsgBadDate, cancelKeyboard())
				}
				t.Session.Set(FieldPurchaseDate, date)
				return advance(ctx, tr, t, StateCost, invoicePrompts)
			},
			{chat.KindText, StateCost}:                textStep(FieldCost, StateConfirm),
			{chat.KindCallback, StateConfirm}:          confirmHandler(d),
			{chat.KindCallback, StateSendEmailConfirm}: sendMailHandler(d),
		},
	}
}

var invoicePrompts = map[state.State]func(*state.Session) Prompt{
	StateEmail:        staticPrompt(promptEmail, cancelKeyboard),
	StateProduct:      staticPrompt(promptProduct, productKeyboard),
	StateDuration:     staticPrompt(promptDuration, durationKeyboard),
	StateName:         staticPrompt(promptName, cancelKeyboard),
	StatePhone:        staticPrompt(promptPhone, cancelKeyboard),
	StateOrderNumber:  staticPrompt(promptOrder, cancelKeyboard),
	StatePurchaseDate: staticPrompt(promptPurchaseDate, cancelKeyboard),
	StateCost:         staticPrompt(promptCost, cancelKeyboard),
	StateConfirm: func(s *state.Session) Prompt {
		return Prompt{Text: Summary(s), Keyboard: confirmKeyboard()}
	},
	StateSendEmailConfirm: func(s *state.Session) Prompt {
		return Prompt{
			Text:     "Отправляем данный инвойс на указанную почту " + html.EscapeString(s.Get(FieldEmail)) + "?",
			Keyboard: mailKeyboard(),
		}
	},
}

// advance moves to next and sends its prompt.
func advance(ctx context.Context, tr chat.Transport, t *Turn, next state.State, prompts map[state.State]func(*state.Session) Prompt) (state.State, error) {
	p := prompts[next](t.Session)
	if err := tr.Text(ctx, t.Session.ChatID, p.Text, p.Keyboard); err != nil {
		return t.Session.State, err
	}
	return next, nil
}

// Summary is the confirmation text listing every collected field.
func Summary(s *state.Session) string {
	inv := InvoiceFrom(s)
	e := html.EscapeString
	return fmt.Sprintf("Подтвердите данные:\nEmail: %s\nПродукт: %s\nПродолжительность: %s\nИмя: %s\nТелефон: %s\nЗаказ: %s\nДата: %s\nСумма: %s руб.",
		e(inv.Email), e(inv.ProductName), e(inv.Tariff), e(inv.CustomerName),
		e(inv.Phone), e(inv.OrderNumber), e(inv.PurchaseDate), e(inv.Cost))
}

func confirmHandler(d Deps) Handler {
	tr := d.Transport
	return func(ctx context.Context, t *Turn) (state.State, error) {
		s := t.Session
		switch t.Input {
		case CallbackReject:
			return state.StateIdle, tr.Text(ctx, s.ChatID, MsgRejected, nil)
		case CallbackConfirm:
		default:
			return s.State, errUnmatched
		}

		_ = tr.Notify(ctx, s.ChatID, chat.ActionUploadDocument)
		ws, err := d.Documents.NewWorkspace(ctx, pipeline.KindInvoice)
		if err != nil {
			logger.Error(ctx, logger.CompForm, "invoice.workspace", logger.ErrAttrs(err)...)
			return state.StateIdle, tr.Text(ctx, s.ChatID, MsgRenderFailed, nil)
		}
		s.AddScratch(ws.Dir)

		doc, err := d.Documents.Invoice(ctx, ws, InvoiceFrom(s))
		if err != nil {
			return state.StateIdle, tr.Text(ctx, s.ChatID, MsgRenderFailed, nil)
		}
		if err := tr.Document(ctx, s.ChatID, doc.Path, doc.FileName); err != nil {
			logger.Error(ctx, logger.CompForm, "invoice.deliver", logger.ErrAttrs(err)...)
			return state.StateIdle, tr.Text(ctx, s.ChatID, MsgDeliveryFailed, nil)
		}
		_ = d.journal().Record(ctx, journal.Entry{
			ID:       doc.SubmissionID,
			Kind:     string(doc.Kind),
			ChatID:   s.ChatID,
			UserID:   t.Event.UserID,
			FileName: doc.FileName,
		})
		s.Set(FieldDocPath, doc.Path)
		s.Set(FieldDocName, doc.FileName)
		s.Set(FieldSubmissionID, doc.SubmissionID)
		return advance(ctx, tr, t, StateSendEmailConfirm, invoicePrompts)
	}
}

func sendMailHandler(d Deps) Handler {
	tr := d.Transport
	return func(ctx context.Context, t *Turn) (state.State, error) {
		s := t.Session
		switch t.Input {
		case CallbackMailNo:
			return state.StateIdle, tr.Text(ctx, s.ChatID, MsgMailSkipped, nil)
		case CallbackMailYes:
		default:
			return s.State, errUnmatched
		}

		doc := pipeline.Document{
			Kind:         pipeline.KindInvoice,
			SubmissionID: s.Get(FieldSubmissionID),
			Path:         s.Get(FieldDocPath),
			FileName:     s.Get(FieldDocName),
		}
		if doc.Path == "" {
			return state.StateIdle, tr.Text(ctx, s.ChatID, MsgMailMissing, nil)
		}
		_ = tr.Notify(ctx, s.ChatID, chat.ActionTyping)
		err := d.Documents.SendMail(ctx, doc, s.Get(FieldEmail))
		switch {
		case errors.Is(err, pipeline.ErrDocumentMissing):
			return state.StateIdle, tr.Text(ctx, s.ChatID, MsgMailMissing, nil)
		case err != nil:
			return state.StateIdle, tr.Text(ctx, s.ChatID, MsgMailFailed, nil)
		}
		_ = d.journal().MarkEmailed(ctx, doc.SubmissionID)
		logger.Info(ctx, logger.CompForm, "invoice.mailed",
			slog.String("status", "ok"),
			slog.String("outcome", "delivered"),
			slog.String("file", doc.FileName),
		)
		return state.StateIdle, tr.Text(ctx, s.ChatID, MsgMailSent, nil)
	}
}
