package bot

import (
	"context"
	"log/slog"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/internal/chat"
)

// NotifyStartup tells every main admin the bot is up. A failed send is
// logged and the rest are still attempted.
func NotifyStartup(ctx context.Context, tr chat.Transport, ids []int64) int {
	sent := 0
	for _, id := range ids {
		if err := tr.Text(ctx, id, StartupText, nil); err != nil {
			logger.Warn(ctx, logger.CompApp, "startup.notice",
				slog.String("status", "fail"),
				slog.Int64("chat_id", id),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			continue
		}
		sent++
	}
	logger.Info(ctx, logger.CompApp, "startup.notice",
		slog.String("status", "ok"),
		slog.Int("count", sent),
	)
	return sent
}
