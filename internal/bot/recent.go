package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/internal/chat"
	"github.com/m3rciful/pdfbot/internal/journal"
	"github.com/m3rciful/pdfbot/internal/pipeline"
)

const recentLimit = 10

var kindTitles = map[string]string{
	string(pipeline.KindInvoice): "Инвойс",
	string(pipeline.KindProgram): "Программа",
}

// recentDocuments lists the latest documents delivered to the chat.
func recentDocuments(tr chat.Transport, hist journal.History) CommandFunc {
	return func(ctx context.Context, ev chat.Event, _ string) error {
		if hist == nil {
			return tr.Text(ctx, ev.ChatID, NoDocumentsText, nil)
		}
		entries, err := hist.Recent(ctx, ev.ChatID, recentLimit)
		if err != nil {
			logger.Warn(ctx, logger.CompJournal, "journal.recent", logger.ErrAttrs(err)...)
			return tr.Text(ctx, ev.ChatID, HistoryFailText, nil)
		}
		logger.Debug(ctx, logger.CompJournal, "journal.recent",
			slog.String("status", "ok"),
			slog.Int("count", len(entries)),
		)
		if len(entries) == 0 {
			return tr.Text(ctx, ev.ChatID, NoDocumentsText, nil)
		}
		return tr.Text(ctx, ev.ChatID, formatRecent(entries), nil)
	}
}

func formatRecent(entries []journal.Entry) string {
	var b strings.Builder
	b.WriteString("📄 <b>Последние документы:</b>")
	for _, e := range entries {
		title, ok := kindTitles[e.Kind]
		if !ok {
			title = e.Kind
		}
		fmt.Fprintf(&b, "\n%s %s: %s", e.CreatedAt.Format("02.01.2006 15:04"), title, html.EscapeString(e.FileName))
		if e.Emailed {
			b.WriteString(" ✉️")
		}
	}
	return b.String()
}
