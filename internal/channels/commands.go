package channels

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/internal/chat"
)

const (
	helpSetComment = "Команда для установки комментария к постам канала.\n\n" +
		"Пример:\n" +
		"<code>/set_comment -1003750090568 &lt;b&gt;Ваш текст&lt;/b&gt;</code>\n\n"
	helpAddChannel = "Команда для добавления нового канала в список.\n\n" +
		"Пример:\n" +
		"<code>/add_comment_channel -1003750090568 Ростислав Dept FX Chat</code>\n\n" +
		"Не забудьте добавить бота админом в канал и связанный чат\n\n"
	helpRemove = "Команда для удаления канала из списка.\n\n" +
		"Пример:\n" +
		"<code>/rm_channel -1003750090568</code>\n\n"

	msgBadID        = "Некорректный ID канала. ID должен быть числом.\n\n"
	msgEmptyComment = "Текст комментария не может быть пустым.\n\n" +
		"Пример:\n" +
		"<code>/set_comment -1003750090568 &lt;b&gt;Ваш текст&lt;/b&gt;</code>\n\n"
	msgEmptyName = "Имя канала не может быть пустым.\n\n" +
		"Пример:\n" +
		"<code>/add_comment_channel -1003750090568 Ростислав Dept FX Chat</code>\n\n"
	msgExists    = "Канал с таким ID уже есть в списке.\n\n"
	msgNotFound  = "Канал с таким ID не найден.\n\n"
	msgStoreFail = "Не удалось сохранить изменения."
	msgEmptyList = "Список каналов пуст."
)

// Handler serves the admin channel commands and the auto-forward reply.
type Handler struct {
	store Store
	tr    chat.Transport
}

// NewHandler binds a store to a transport.
func NewHandler(store Store, tr chat.Transport) *Handler {
	return &Handler{store: store, tr: tr}
}

// AddChannel handles "/add_comment_channel <id> <name>".
func (h *Handler) AddChannel(ctx context.Context, ev chat.Event, args string) error {
	rawID, name := splitArgs(args)
	if rawID == "" {
		return h.withList(ctx, ev.ChatID, helpAddChannel)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return h.withList(ctx, ev.ChatID, msgBadID)
	}
	if name == "" {
		return h.withList(ctx, ev.ChatID, msgEmptyName)
	}
	switch err := h.store.Add(ctx, id, name); {
	case errors.Is(err, ErrExists):
		return h.withList(ctx, ev.ChatID, msgExists)
	case err != nil:
		h.storeFailed(ctx, "channels.add", err)
		return h.tr.Text(ctx, ev.ChatID, msgStoreFail, nil)
	}
	logger.Info(ctx, logger.CompChannels, "channels.add", slog.String("status", "ok"), slog.Int64("chat_id", id))
	return h.tr.Text(ctx, ev.ChatID, fmt.Sprintf(
		"Канал добавлен в список.\n\nКанал: <b>%s</b>\nID: <code>%d</code>", html.EscapeString(name), id), nil)
}

// SetComment handles "/set_comment <id> <html>".
func (h *Handler) SetComment(ctx context.Context, ev chat.Event, args string) error {
	rawID, text := splitArgs(args)
	if rawID == "" {
		return h.withList(ctx, ev.ChatID, helpSetComment)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return h.withList(ctx, ev.ChatID, msgBadID)
	}
	if text == "" {
		return h.withList(ctx, ev.ChatID, msgEmptyComment)
	}
	ch, err := h.store.SetComment(ctx, id, text)
	switch {
	case errors.Is(err, ErrNotFound):
		return h.withList(ctx, ev.ChatID, msgNotFound)
	case err != nil:
		h.storeFailed(ctx, "channels.set_comment", err)
		return h.tr.Text(ctx, ev.ChatID, msgStoreFail, nil)
	}
	logger.Info(ctx, logger.CompChannels, "channels.set_comment", slog.String("status", "ok"), slog.Int64("chat_id", id))
	return h.tr.Text(ctx, ev.ChatID, fmt.Sprintf(
		"Текст комментария обновлён.\n\nКанал: <b>%s</b>\nID: <code>%d</code>", html.EscapeString(ch.Name), id), nil)
}

// RemoveChannel handles "/rm_channel <id>".
func (h *Handler) RemoveChannel(ctx context.Context, ev chat.Event, args string) error {
	rawID, _ := splitArgs(args)
	if rawID == "" {
		return h.withList(ctx, ev.ChatID, helpRemove)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return h.withList(ctx, ev.ChatID, msgBadID)
	}
	switch err := h.store.Remove(ctx, id); {
	case errors.Is(err, ErrNotFound):
		return h.withList(ctx, ev.ChatID, msgNotFound)
	case err != nil:
		h.storeFailed(ctx, "channels.remove", err)
		return h.tr.Text(ctx, ev.ChatID, msgStoreFail, nil)
	}
	logger.Info(ctx, logger.CompChannels, "channels.remove", slog.String("status", "ok"), slog.Int64("chat_id", id))
	return h.tr.Text(ctx, ev.ChatID, fmt.Sprintf("Канал удалён из списка.\n\nID: <code>%d</code>", id), nil)
}

// ListChannels handles "/get_comment_channels" and shows each comment as
// escaped source so it can be copied back.
func (h *Handler) ListChannels(ctx context.Context, ev chat.Event, _ string) error {
	list, err := h.store.List(ctx)
	if err != nil {
		h.storeFailed(ctx, "channels.list", err)
		return h.tr.Text(ctx, ev.ChatID, msgStoreFail, nil)
	}
	if len(list) == 0 {
		return h.tr.Text(ctx, ev.ChatID, msgEmptyList, nil)
	}
	var b strings.Builder
	b.WriteString("Доступные каналы:")
	for _, ch := range list {
		fmt.Fprintf(&b, "\n\nID: <code>%d</code> — %s", ch.ID, html.EscapeString(ch.Name))
		if ch.Comment != "" {
			fmt.Fprintf(&b, "\n<pre>%s</pre>", html.EscapeString(ch.Comment))
		}
	}
	return h.tr.Text(ctx, ev.ChatID, b.String(), nil)
}

// AutoForward replies to an automatic forward of a registered channel post
// with that channel's comment. Unknown channels and empty comments are skipped.
func (h *Handler) AutoForward(ctx context.Context, ev chat.Event) error {
	if ev.AutoForwardFrom == 0 {
		return nil
	}
	ch, err := h.store.Get(ctx, ev.AutoForwardFrom)
	if errors.Is(err, ErrNotFound) {
		logger.Debug(ctx, logger.CompChannels, "channels.forward",
			slog.String("outcome", "ignored"),
			slog.Int64("chat_id", ev.AutoForwardFrom),
		)
		return nil
	}
	if err != nil {
		h.storeFailed(ctx, "channels.forward", err)
		return nil
	}
	text := strings.TrimSpace(ch.Comment)
	if text == "" {
		return nil
	}
	if err := h.tr.Reply(ctx, ev.ChatID, ev.MessageID, text); err != nil {
		logger.Error(ctx, logger.CompChannels, "channels.forward",
			slog.String("status", "fail"),
			slog.Int64("chat_id", ev.ChatID),
			slog.String("err", err.Error()),
		)
		return err
	}
	logger.Info(ctx, logger.CompChannels, "channels.forward",
		slog.String("status", "ok"),
		slog.String("outcome", "delivered"),
		slog.Int64("chat_id", ev.ChatID),
	)
	return nil
}

func (h *Handler) withList(ctx context.Context, chatID int64, head string) error {
	list, err := h.store.List(ctx)
	if err != nil {
		h.storeFailed(ctx, "channels.list", err)
		return h.tr.Text(ctx, chatID, strings.TrimSpace(head), nil)
	}
	return h.tr.Text(ctx, chatID, head+listText(list), nil)
}

func (h *Handler) storeFailed(ctx context.Context, event string, err error) {
	logger.Error(ctx, logger.CompChannels, event,
		slog.String("status", "fail"),
		slog.String("err", err.Error()),
	)
}

func listText(list []Channel) string {
	if len(list) == 0 {
		return msgEmptyList
	}
	lines := make([]string, 0, len(list)+1)
	lines = append(lines, "Доступные каналы:")
	for _, ch := range list {
		lines = append(lines, fmt.Sprintf("ID: <code>%d</code> — %s", ch.ID, html.EscapeString(ch.Name)))
	}
	return strings.Join(lines, "\n")
}

// splitArgs returns the first whitespace-separated token and the trimmed rest.
func splitArgs(args string) (string, string) {
	args = strings.TrimSpace(args)
	if args == "" {
		return "", ""
	}
	i := strings.IndexFunc(args, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' })
	if i < 0 {
		return args, ""
	}
	return args[:i], strings.TrimSpace(args[i:])
}
