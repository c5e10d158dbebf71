package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tgsender "github.com/m3rciful/pdfbot/core/telegram/sender"
	"github.com/m3rciful/pdfbot/internal/chat"
)

type sent struct {
	to   tele.Recipient
	what interface{}
	opts []interface{}
}

type fakeAPI struct {
	mu       sync.Mutex
	sent     []sent
	failures int
	download func(file *tele.File, dst string) error
}

func (f *fakeAPI) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, &tele.Error{Code: 502, Description: "Bad Gateway"}
	}
	f.sent = append(f.sent, sent{to: to, what: what, opts: opts})
	return &tele.Message{}, nil
}

func (f *fakeAPI) Notify(tele.Recipient, tele.ChatAction, ...int) error {
	return errors.New("not supported")
}

func (f *fakeAPI) Download(file *tele.File, dst string) error {
	if f.download != nil {
		return f.download(file, dst)
	}
	return nil
}

func TestTransportText(t *testing.T) {
	api := &fakeAPI{}
	tr := NewTransport(api, nil)
	kb := chat.Keyboard{chat.Row(chat.Button{Text: "Да", Data: "confirm:yes"})}

	require.NoError(t, tr.Text(context.Background(), 42, "<b>hi</b>", kb))
	require.Len(t, api.sent, 1)
	assert.Equal(t, "42", api.sent[0].to.Recipient())
	assert.Equal(t, "<b>hi</b>", api.sent[0].what)

	opts := api.sent[0].opts[0].(*tele.SendOptions)
	assert.Equal(t, tele.ModeHTML, opts.ParseMode)
	require.NotNil(t, opts.ReplyMarkup)
	assert.Equal(t, "confirm:yes", opts.ReplyMarkup.InlineKeyboard[0][0].Data)
}

func TestTransportRetriesThroughDispatcher(t *testing.T) {
	api := &fakeAPI{failures: 1}
	disp := tgsender.NewDispatcher(tgsender.Options{MaxRetries: 2, RetryBackoff: time.Millisecond})
	defer disp.Close()
	tr := NewTransport(api, disp)

	require.NoError(t, tr.Document(context.Background(), 7, "/tmp/invoice.pdf", "invoice_000123.pdf"))
	require.Len(t, api.sent, 1)
	doc := api.sent[0].what.(*tele.Document)
	assert.Equal(t, "invoice_000123.pdf", doc.FileName)
	assert.Equal(t, "/tmp/invoice.pdf", doc.FileLocal)
}

func TestTransportReplyAndNotify(t *testing.T) {
	api := &fakeAPI{}
	tr := NewTransport(api, nil)

	require.NoError(t, tr.Reply(context.Background(), -100, 55, "comment"))
	opts := api.sent[0].opts[0].(*tele.SendOptions)
	require.NotNil(t, opts.ReplyTo)
	assert.Equal(t, 55, opts.ReplyTo.ID)

	assert.NoError(t, tr.Notify(context.Background(), 1, chat.ActionTyping), "notify errors are swallowed")
}

func TestTransportDownload(t *testing.T) {
	var gotID string
	api := &fakeAPI{download: func(f *tele.File, dst string) error {
		gotID = f.FileID
		return nil
	}}
	tr := NewTransport(api, nil)
	require.NoError(t, tr.Download(context.Background(), "file-1", "/tmp/x.pdf"))
	assert.Equal(t, "file-1", gotID)
	assert.Error(t, tr.Download(context.Background(), "", "/tmp/x.pdf"))

	api.download = func(*tele.File, string) error { return errors.New("too big") }
	assert.ErrorContains(t, tr.Download(context.Background(), "file-2", "/tmp/x.pdf"), "too big")
}

func newContext(t *testing.T, upd tele.Update) tele.Context {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return bot.NewContext(upd)
}

func TestEventFrom(t *testing.T) {
	user := &tele.User{ID: 5}
	private := &tele.Chat{ID: 5, Type: tele.ChatPrivate}

	ev := EventFrom(newContext(t, tele.Update{ID: 1, Message: &tele.Message{ID: 9, Sender: user, Chat: private, Text: "/okx BTCUSDT"}}))
	assert.Equal(t, chat.KindText, ev.Kind)
	assert.True(t, ev.Private)
	assert.Equal(t, int64(5), ev.UserID)
	assert.Equal(t, 9, ev.MessageID)

	ev = EventFrom(newContext(t, tele.Update{ID: 2, Callback: &tele.Callback{
		Sender:  user,
		Data:    "product:basic",
		Message: &tele.Message{ID: 11, Chat: private},
	}}))
	assert.Equal(t, chat.KindCallback, ev.Kind)
	assert.Equal(t, "product:basic", ev.Text)
	assert.Equal(t, int64(5), ev.ChatID)

	doc := &tele.Document{File: tele.File{FileID: "abc"}, FileName: "Program.PDF", MIME: "application/pdf"}
	ev = EventFrom(newContext(t, tele.Update{ID: 3, Message: &tele.Message{ID: 12, Sender: user, Chat: private, Document: doc}}))
	assert.Equal(t, chat.KindDocument, ev.Kind)
	require.NotNil(t, ev.Document)
	assert.Equal(t, "abc", ev.Document.FileID)
	assert.Equal(t, "Program.PDF", ev.Document.FileName)

	group := &tele.Chat{ID: -100, Type: tele.ChatSuperGroup}
	ev = EventFrom(newContext(t, tele.Update{ID: 4, Message: &tele.Message{
		ID:               13,
		Sender:           &tele.User{ID: 777000},
		Chat:             group,
		SenderChat:       &tele.Chat{ID: -200, Type: tele.ChatChannel},
		AutomaticForward: true,
		Photo:            &tele.Photo{File: tele.File{FileID: "p"}},
	}}))
	assert.Equal(t, chat.KindOther, ev.Kind)
	assert.False(t, ev.Private)
	assert.Equal(t, int64(-200), ev.AutoForwardFrom)
	assert.Equal(t, int64(-100), ev.ChatID)
}
