package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func TestAntiSpamBlocksBurst(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 9, 15, 20, 0, 0, 0, time.UTC)}
	guard := NewAntiSpam(AntiSpamOptions{Limit: 5, Interval: 2 * time.Second, Block: 30 * time.Second, Now: clock.Now})

	for i := 0; i < 5; i++ {
		allowed, tripped := guard.Allow(42)
		require.True(t, allowed, "update %d", i)
		require.False(t, tripped)
	}

	allowed, tripped := guard.Allow(42)
	assert.False(t, allowed)
	assert.True(t, tripped)

	clock.now = clock.now.Add(10 * time.Second)
	allowed, tripped = guard.Allow(42)
	assert.False(t, allowed)
	assert.False(t, tripped, "already blocked")

	allowed, _ = guard.Allow(7)
	assert.True(t, allowed, "other users are unaffected")

	clock.now = clock.now.Add(21 * time.Second)
	allowed, _ = guard.Allow(42)
	assert.True(t, allowed, "block expired")
}

func TestAntiSpamCountsWholeWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 9, 15, 20, 0, 0, 0, time.UTC)}
	guard := NewAntiSpam(AntiSpamOptions{Limit: 5, Interval: 2 * time.Second, Now: clock.Now})

	for i := 0; i < 5; i++ {
		allowed, _ := guard.Allow(42)
		require.True(t, allowed, "update %d", i)
		clock.now = clock.now.Add(200 * time.Millisecond)
	}
	allowed, tripped := guard.Allow(42)
	assert.False(t, allowed, "sixth update within 2s")
	assert.True(t, tripped)
}

func TestAntiSpamWindowSlides(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 9, 15, 20, 0, 0, 0, time.UTC)}
	guard := NewAntiSpam(AntiSpamOptions{Limit: 5, Interval: 2 * time.Second, Now: clock.Now})

	for i := 0; i < 5; i++ {
		allowed, _ := guard.Allow(42)
		require.True(t, allowed)
	}
	clock.now = clock.now.Add(2100 * time.Millisecond)
	allowed, _ := guard.Allow(42)
	assert.True(t, allowed, "earlier updates left the window")
}

func TestAntiSpamRefills(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 9, 15, 20, 0, 0, 0, time.UTC)}
	guard := NewAntiSpam(AntiSpamOptions{Limit: 5, Interval: 2 * time.Second, Now: clock.Now})

	for i := 0; i < 20; i++ {
		allowed, _ := guard.Allow(42)
		require.True(t, allowed, "update %d", i)
		clock.now = clock.now.Add(time.Second)
	}
}

func newTestContext(t *testing.T, upd tele.Update) tele.Context {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return bot.NewContext(upd)
}

func TestAntiSpamMiddleware(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 9, 15, 20, 0, 0, 0, time.UTC)}
	warned := 0
	guard := NewAntiSpam(AntiSpamOptions{
		Limit:     1,
		Interval:  time.Minute,
		Now:       clock.Now,
		OnBlocked: func(tele.Context) error { warned++; return nil },
	})

	handled := 0
	h := guard.Middleware(func(tele.Context) error { handled++; return nil })

	user := &tele.User{ID: 42}
	chat := &tele.Chat{ID: 42, Type: tele.ChatPrivate}
	for i := 1; i <= 3; i++ {
		c := newTestContext(t, tele.Update{ID: i, Message: &tele.Message{ID: i, Sender: user, Chat: chat, Text: "hi"}})
		require.NoError(t, h(c))
	}
	assert.Equal(t, 1, handled)
	assert.Equal(t, 2, warned)

	forward := &tele.Message{
		ID:               10,
		Sender:           &tele.User{ID: 777000},
		Chat:             &tele.Chat{ID: -100, Type: tele.ChatSuperGroup},
		SenderChat:       &tele.Chat{ID: -200, Type: tele.ChatChannel},
		AutomaticForward: true,
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, h(newTestContext(t, tele.Update{ID: 100 + i, Message: forward})))
	}
	assert.Equal(t, 6, handled, "automatic forwards bypass the guard")
}
