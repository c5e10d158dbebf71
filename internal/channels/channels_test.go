package channels

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/pdfbot/internal/chat"
	"github.com/m3rciful/pdfbot/internal/chat/chattest"
)

func newHandler(t *testing.T) (*Handler, *Memory, *chattest.Recorder) {
	t.Helper()
	store := NewMemory()
	rec := chattest.New()
	return NewHandler(store, rec), store, rec
}

func adminEvent() chat.Event {
	return chat.Event{ChatID: 10, UserID: 10, Kind: chat.KindText, Private: true}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Add(ctx, -100, "B"))
	require.NoError(t, s.Add(ctx, -200, "A"))
	assert.ErrorIs(t, s.Add(ctx, -100, "again"), ErrExists)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].Name)

	ch, err := s.SetComment(ctx, -100, "<b>hi</b>")
	require.NoError(t, err)
	assert.Equal(t, "<b>hi</b>", ch.Comment)
	_, err = s.SetComment(ctx, -1, "x")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Remove(ctx, -100))
	assert.ErrorIs(t, s.Remove(ctx, -100), ErrNotFound)
	_, err = s.Get(ctx, -100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddChannel(t *testing.T) {
	h, store, rec := newHandler(t)
	ctx := context.Background()

	require.NoError(t, h.AddChannel(ctx, adminEvent(), ""))
	assert.Contains(t, rec.LastText(), "Команда для добавления нового канала")
	assert.Contains(t, rec.LastText(), "Список каналов пуст.")

	require.NoError(t, h.AddChannel(ctx, adminEvent(), "abc Name"))
	assert.Contains(t, rec.LastText(), "Некорректный ID канала")

	require.NoError(t, h.AddChannel(ctx, adminEvent(), "-1003750090568"))
	assert.Contains(t, rec.LastText(), "Имя канала не может быть пустым.")

	require.NoError(t, h.AddChannel(ctx, adminEvent(), "-1003750090568 Dept <FX> Chat"))
	assert.Contains(t, rec.LastText(), "Канал добавлен в список.")
	assert.Contains(t, rec.LastText(), "Dept &lt;FX&gt; Chat")

	ch, err := store.Get(ctx, -1003750090568)
	require.NoError(t, err)
	assert.Equal(t, "Dept <FX> Chat", ch.Name)

	require.NoError(t, h.AddChannel(ctx, adminEvent(), "-1003750090568 other"))
	assert.Contains(t, rec.LastText(), "Канал с таким ID уже есть в списке.")
	assert.Contains(t, rec.LastText(), "ID: <code>-1003750090568</code>")
}

func TestSetCommentAndAutoForward(t *testing.T) {
	h, store, rec := newHandler(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, -42, "Chan"))

	require.NoError(t, h.SetComment(ctx, adminEvent(), "-7 <b>x</b>"))
	assert.Contains(t, rec.LastText(), "Канал с таким ID не найден.")

	require.NoError(t, h.SetComment(ctx, adminEvent(), "-42"))
	assert.Contains(t, rec.LastText(), "Текст комментария не может быть пустым.")

	require.NoError(t, h.SetComment(ctx, adminEvent(), "-42 <b>Join us</b>"))
	assert.Contains(t, rec.LastText(), "Текст комментария обновлён.")

	post := chat.Event{ChatID: -555, MessageID: 77, Kind: chat.KindText, AutoForwardFrom: -42}
	require.NoError(t, h.AutoForward(ctx, post))
	last := rec.Last()
	assert.Equal(t, "reply", last.Op)
	assert.Equal(t, int64(-555), last.ChatID)
	assert.Equal(t, 77, last.MessageID)
	assert.Equal(t, "<b>Join us</b>", last.Text)
}

func TestAutoForwardSkipsUnknownAndEmpty(t *testing.T) {
	h, store, rec := newHandler(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, -42, "Chan"))

	require.NoError(t, h.AutoForward(ctx, chat.Event{ChatID: -1, AutoForwardFrom: -99}))
	require.NoError(t, h.AutoForward(ctx, chat.Event{ChatID: -1, AutoForwardFrom: -42}))
	assert.Empty(t, rec.All())
}

func TestRemoveAndList(t *testing.T) {
	h, store, rec := newHandler(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, -42, "Chan"))
	_, err := store.SetComment(ctx, -42, "<i>t</i>")
	require.NoError(t, err)

	require.NoError(t, h.ListChannels(ctx, adminEvent(), ""))
	assert.Contains(t, rec.LastText(), "ID: <code>-42</code> — Chan")
	assert.Contains(t, rec.LastText(), "<pre>&lt;i&gt;t&lt;/i&gt;</pre>")

	require.NoError(t, h.RemoveChannel(ctx, adminEvent(), "-42"))
	assert.Equal(t, "Канал удалён из списка.\n\nID: <code>-42</code>", rec.LastText())

	require.NoError(t, h.RemoveChannel(ctx, adminEvent(), "-42"))
	assert.Contains(t, rec.LastText(), "Канал с таким ID не найден.")

	require.NoError(t, h.ListChannels(ctx, adminEvent(), ""))
	assert.Equal(t, "Список каналов пуст.", rec.LastText())
}

func TestSplitArgs(t *testing.T) {
	id, rest := splitArgs("  -1  hello   world ")
	assert.Equal(t, "-1", id)
	assert.Equal(t, "hello   world", rest)
	id, rest = splitArgs("")
	assert.Empty(t, id)
	assert.Empty(t, rest)
}
