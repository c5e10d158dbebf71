package telegram

import (
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/pdfbot/core/config"
	"github.com/m3rciful/pdfbot/core/telegram/middleware"
)

// DefaultMiddlewares builds the shared middleware chain: panic recovery,
// update logging and, unless disabled, the per-user flood guard.
func DefaultMiddlewares(cfg *coreconfig.Config, onBlocked func(tele.Context) error) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
	}

	if cfg != nil && !cfg.AntiSpam.Disabled {
		guard := middleware.NewAntiSpam(middleware.AntiSpamOptions{
			Limit:     cfg.AntiSpam.Limit,
			Interval:  time.Duration(cfg.AntiSpam.IntervalMS) * time.Millisecond,
			Block:     time.Duration(cfg.AntiSpam.BlockSeconds) * time.Second,
			OnBlocked: onBlocked,
		})
		mws = append(mws, Middleware{Name: "antispam", Use: guard.Middleware})
	}

	return mws
}
