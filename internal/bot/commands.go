package bot

import (
	"context"

	"github.com/m3rciful/pdfbot/internal/chat"
	"github.com/m3rciful/pdfbot/internal/form"
	"github.com/m3rciful/pdfbot/internal/journal"
)

// FormStarter starts and cancels conversational flows.
type FormStarter interface {
	Start(ctx context.Context, ev chat.Event, name string) error
	Cancel(ctx context.Context, ev chat.Event) (bool, error)
}

// TradeCards renders trade result images.
type TradeCards interface {
	OKX(ctx context.Context, ev chat.Event, args string) error
	Forex(ctx context.Context, ev chat.Event, args string) error
}

// ChannelAdmin manages channel comment settings.
type ChannelAdmin interface {
	AddChannel(ctx context.Context, ev chat.Event, args string) error
	SetComment(ctx context.Context, ev chat.Event, args string) error
	RemoveChannel(ctx context.Context, ev chat.Event, args string) error
	ListChannels(ctx context.Context, ev chat.Event, args string) error
}

// Commands returns the bot's command table.
func Commands(tr chat.Transport, forms FormStarter, cards TradeCards, chans ChannelAdmin, hist journal.History) []Command {
	start := func(flow string) CommandFunc {
		return func(ctx context.Context, ev chat.Event, _ string) error {
			return forms.Start(ctx, ev, flow)
		}
	}
	return []Command{
		{
			Name:        "/start",
			Description: "Показать доступные команды",
			Aliases:     []string{"/help"},
			Run: func(ctx context.Context, ev chat.Event, _ string) error {
				return tr.Text(ctx, ev.ChatID, HintText, nil)
			},
		},
		{Name: "/create_invoice", Description: "Создать PDF счёт и отправить на почту", Run: start(form.FlowInvoice)},
		{Name: "/create_user_pdf", Description: "Сгенерировать персональный PDF", PrivateOnly: true, Run: start(form.FlowProgram)},
		{
			Name:        "/cancel",
			Description: "Отменить текущее действие",
			Run: func(ctx context.Context, ev chat.Event, _ string) error {
				ok, err := forms.Cancel(ctx, ev)
				if err != nil || ok {
					return err
				}
				return tr.Text(ctx, ev.ChatID, NothingToCancel, nil)
			},
		},
		{Name: "/recent", Description: "Последние созданные документы", Run: recentDocuments(tr, hist)},
		{Name: "/okx", Description: "Изображение торговой сделки на OKX", Run: cards.OKX},
		{Name: "/forex", Description: "Карточка сделки Forex", Run: cards.Forex},
		{Name: "/add_comment_channel", Description: "Добавить канал для комментариев", PrivateOnly: true, Run: chans.AddChannel},
		{Name: "/set_comment", Description: "Изменить текст комментария канала", PrivateOnly: true, Run: chans.SetComment},
		{Name: "/rm_channel", Description: "Удалить канал из списка", PrivateOnly: true, Run: chans.RemoveChannel},
		{Name: "/get_comment_channels", Description: "Показать каналы для комментариев", PrivateOnly: true, Run: chans.ListChannels},
	}
}
