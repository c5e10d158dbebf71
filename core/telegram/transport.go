package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/core/telegram/callbacks"
	"github.com/m3rciful/pdfbot/core/telegram/keyboard"
	tgsender "github.com/m3rciful/pdfbot/core/telegram/sender"
	"github.com/m3rciful/pdfbot/internal/chat"
)

// API is the subset of *tele.Bot the transport calls.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Notify(to tele.Recipient, action tele.ChatAction, threadID ...int) error
	Download(file *tele.File, localFilename string) error
}

// Transport implements chat.Transport over the Bot API. Every outbound call
// runs on the chat's dispatcher worker, so retries never reorder a chat.
type Transport struct {
	api  API
	disp *tgsender.Dispatcher
}

var _ chat.Transport = (*Transport)(nil)

// NewTransport binds api to disp. A nil dispatcher sends inline without retries.
func NewTransport(api API, disp *tgsender.Dispatcher) *Transport {
	return &Transport{api: api, disp: disp}
}

func (t *Transport) do(ctx context.Context, chatID int64, action string, run func() error) error {
	if t.disp == nil {
		return run()
	}
	return t.disp.Do(ctx, chatID, action, run)
}

// Text sends an HTML message with an optional inline keyboard.
func (t *Transport) Text(ctx context.Context, chatID int64, text string, kb chat.Keyboard) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML}
	if len(kb) > 0 {
		opts.ReplyMarkup = Markup(kb)
	}
	return t.do(ctx, chatID, "send.text", func() error {
		_, err := t.api.Send(tele.ChatID(chatID), text, opts)
		return err
	})
}

// Document uploads the file at path under fileName.
func (t *Transport) Document(ctx context.Context, chatID int64, path, fileName string) error {
	return t.do(ctx, chatID, "send.document", func() error {
		doc := &tele.Document{File: tele.FromDisk(path), FileName: fileName}
		_, err := t.api.Send(tele.ChatID(chatID), doc)
		return err
	})
}

// Photo uploads the image at path.
func (t *Transport) Photo(ctx context.Context, chatID int64, path string) error {
	return t.do(ctx, chatID, "send.photo", func() error {
		_, err := t.api.Send(tele.ChatID(chatID), &tele.Photo{File: tele.FromDisk(path)})
		return err
	})
}

// Reply answers messageID in chatID with HTML text.
func (t *Transport) Reply(ctx context.Context, chatID int64, messageID int, text string) error {
	opts := &tele.SendOptions{
		ParseMode: tele.ModeHTML,
		ReplyTo:   &tele.Message{ID: messageID, Chat: &tele.Chat{ID: chatID}},
	}
	return t.do(ctx, chatID, "send.reply", func() error {
		_, err := t.api.Send(tele.ChatID(chatID), text, opts)
		return err
	})
}

// Notify shows a chat action. Failures are logged and swallowed.
func (t *Transport) Notify(ctx context.Context, chatID int64, action chat.Action) error {
	if err := t.api.Notify(tele.ChatID(chatID), tele.ChatAction(action)); err != nil {
		logger.Debug(ctx, logger.CompTG, "send.notify",
			slog.String("status", "skip"),
			slog.String("op", string(action)),
			slog.String("err", err.Error()),
		)
	}
	return nil
}

// Download fetches an uploaded file to dst. The Bot API call itself has no
// context, so cancellation only stops the wait.
func (t *Transport) Download(ctx context.Context, fileID, dst string) error {
	if fileID == "" {
		return errors.New("telegram: empty file id")
	}
	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- t.api.Download(&tele.File{FileID: fileID}, dst)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram: download: %w", err)
		}
		logger.Debug(ctx, logger.CompTG, "file.downloaded",
			slog.String("status", "ok"),
			slog.Duration("duration", logger.Took(start)),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Markup converts a chat keyboard into inline reply markup.
func Markup(kb chat.Keyboard) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(kb))
	for _, row := range kb {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			r = append(r, keyboard.InlineBtn{Text: b.Text, Data: b.Data})
		}
		rows = append(rows, r)
	}
	return keyboard.InlineButtonsRows(rows...)
}

// EventFrom maps an update onto the transport-neutral event.
func EventFrom(c tele.Context) chat.Event {
	ev := chat.Event{Kind: chat.KindOther}
	if ch := c.Chat(); ch != nil {
		ev.ChatID = ch.ID
		ev.Private = ch.Type == tele.ChatPrivate
	}
	if u := c.Sender(); u != nil {
		ev.UserID = u.ID
	}

	if cb := c.Callback(); cb != nil {
		ev.Kind = chat.KindCallback
		ev.Text = callbacks.Data(cb)
		if cb.Message != nil {
			ev.MessageID = cb.Message.ID
		}
		return ev
	}

	msg := c.Message()
	if msg == nil {
		return ev
	}
	ev.MessageID = msg.ID
	if msg.AutomaticForward && msg.SenderChat != nil && msg.SenderChat.Type == tele.ChatChannel {
		ev.AutoForwardFrom = msg.SenderChat.ID
	}
	switch {
	case msg.Document != nil:
		ev.Kind = chat.KindDocument
		ev.Text = msg.Caption
		ev.Document = &chat.Document{
			FileID:   msg.Document.FileID,
			FileName: msg.Document.FileName,
			MIME:     msg.Document.MIME,
			Size:     int64(msg.Document.FileSize),
		}
	case msg.Text != "":
		ev.Kind = chat.KindText
		ev.Text = msg.Text
	default:
		ev.Text = msg.Caption
	}
	return ev
}
