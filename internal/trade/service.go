package trade

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/internal/chat"
	"github.com/m3rciful/pdfbot/internal/pipeline"
)

const (
	msgNoTemplate  = "Шаблон не найден."
	msgRenderError = "Не удалось сгенерировать изображение. Попробуйте еще раз."
)

// Renderer is the part of the pipeline trade cards need.
type Renderer interface {
	NewWorkspace(ctx context.Context, kind pipeline.Kind) (*pipeline.Workspace, error)
	Card(ctx context.Context, ws *pipeline.Workspace, template string, values map[string]string, fileName string) (pipeline.Document, error)
}

// Service renders trade cards and sends them as photos.
type Service struct {
	renderer Renderer
	tr       chat.Transport
	dir      string
	now      func() time.Time
}

// NewService returns a service reading templates and icons from dir.
func NewService(renderer Renderer, tr chat.Transport, dir string, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{renderer: renderer, tr: tr, dir: dir, now: now}
}

// OKX handles "/okx ...".
func (s *Service) OKX(ctx context.Context, ev chat.Event, args string) error {
	card, err := ParseOKX(args, s.dir, s.now())
	return s.handle(ctx, ev, card, err)
}

// Forex handles "/forex key=value ...".
func (s *Service) Forex(ctx context.Context, ev chat.Event, args string) error {
	card, err := ParseForex(args)
	return s.handle(ctx, ev, card, err)
}

func (s *Service) handle(ctx context.Context, ev chat.Event, card Card, err error) error {
	var usage *UsageError
	if errors.As(err, &usage) {
		logger.Debug(ctx, logger.CompTrade, "trade.parse",
			slog.String("status", "invalid"),
			slog.String("err_code", usage.Code()),
		)
		return s.tr.Text(ctx, ev.ChatID, usage.Text, nil)
	}
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(s.dir, card.Template)); err != nil {
		logger.Warn(ctx, logger.CompTrade, "trade.template",
			slog.String("status", "fail"),
			slog.String("path", card.Template),
		)
		return s.tr.Text(ctx, ev.ChatID, msgNoTemplate, nil)
	}

	_ = s.tr.Notify(ctx, ev.ChatID, chat.ActionUploadPhoto)
	ws, err := s.renderer.NewWorkspace(ctx, pipeline.KindTrade)
	if err != nil {
		logger.Error(ctx, logger.CompTrade, "trade.workspace", logger.ErrAttrs(err)...)
		return s.tr.Text(ctx, ev.ChatID, msgRenderError, nil)
	}
	defer pipeline.Cleanup(ctx, ws.Dir)

	doc, err := s.renderer.Card(ctx, ws, card.Template, card.Values, card.FileName)
	if err != nil {
		return s.tr.Text(ctx, ev.ChatID, msgRenderError, nil)
	}
	if err := s.tr.Photo(ctx, ev.ChatID, doc.Path); err != nil {
		return err
	}
	logger.Info(ctx, logger.CompTrade, "trade.sent",
		slog.String("status", "ok"),
		slog.String("file", doc.FileName),
	)
	return nil
}
