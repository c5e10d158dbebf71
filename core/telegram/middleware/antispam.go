package middleware

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/pdfbot/core/logger"
	tghelpers "github.com/m3rciful/pdfbot/core/telegram/helpers"
)

// SpamWarning is sent to a user who trips the flood guard.
const SpamWarning = "🚫 Пожалуйста, не спамьте. Подождите 30 секунд."

// AntiSpamOptions configures the per-user flood guard.
type AntiSpamOptions struct {
	// More than Limit updates within Interval trips the guard.
	Limit    int
	Interval time.Duration
	// Block is how long a flooding user is ignored.
	Block time.Duration
	// OnBlocked answers a dropped update. Nil drops silently.
	OnBlocked func(c tele.Context) error
	Now       func() time.Time
}

// AntiSpam keeps a sliding window of recent update times per user and a
// block list, both expiring through go-cache so idle users cost nothing.
type AntiSpam struct {
	opts    AntiSpamOptions
	mu      sync.Mutex
	windows *cache.Cache
	blocked *cache.Cache
}

// window holds the arrival times still inside the interval, oldest first.
type window struct {
	hits []time.Time
}

// NewAntiSpam applies defaults of 5 updates per 2 s and a 30 s block.
func NewAntiSpam(opts AntiSpamOptions) *AntiSpam {
	if opts.Limit <= 0 {
		opts.Limit = 5
	}
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.Block <= 0 {
		opts.Block = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	idle := 10 * opts.Interval
	if idle < time.Minute {
		idle = time.Minute
	}
	return &AntiSpam{
		opts:    opts,
		windows: cache.New(idle, idle),
		blocked: cache.New(opts.Block, time.Minute),
	}
}

// Allow reports whether userID may proceed. tripped is true for the update
// that started a block.
func (a *AntiSpam) Allow(userID int64) (allowed, tripped bool) {
	key := strconv.FormatInt(userID, 10)
	now := a.opts.Now()

	a.mu.Lock()
	defer a.mu.Unlock()

	if v, ok := a.blocked.Get(key); ok {
		if until := v.(time.Time); now.Before(until) {
			return false, false
		}
		a.blocked.Delete(key)
	}

	w, ok := a.windows.Get(key)
	if !ok {
		w = &window{hits: make([]time.Time, 0, a.opts.Limit+1)}
	}
	win := w.(*window)
	win.hits = append(win.hits, now)
	drop := 0
	for drop < len(win.hits) && now.Sub(win.hits[drop]) > a.opts.Interval {
		drop++
	}
	win.hits = win.hits[drop:]

	if len(win.hits) <= a.opts.Limit {
		a.windows.SetDefault(key, win)
		return true, false
	}
	a.blocked.Set(key, now.Add(a.opts.Block), a.opts.Block)
	a.windows.Delete(key)
	return false, true
}

// Middleware drops updates from blocked users. Automatic forwards from
// linked channels are never counted.
func (a *AntiSpam) Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		user := c.Sender()
		if user == nil {
			return next(c)
		}
		if msg := c.Message(); msg != nil && (msg.AutomaticForward || msg.SenderChat != nil) {
			return next(c)
		}
		allowed, tripped := a.Allow(user.ID)
		if allowed {
			return next(c)
		}

		ctx := tghelpers.BuildContext(c)
		logger.Warn(ctx, logger.CompTG, "update.dropped",
			slog.String("status", "rate_limited"),
			slog.Int64("user_id", user.ID),
			slog.Bool("rate_limited", tripped),
		)
		if c.Callback() != nil {
			_ = c.Respond()
		}
		if a.opts.OnBlocked != nil {
			return a.opts.OnBlocked(c)
		}
		return nil
	}
}
