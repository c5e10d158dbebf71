// Package pdfmerge joins a title page and a content document with pdfcpu.
package pdfmerge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/internal/pipeline"
)

// Merger implements pipeline.Merger.
type Merger struct {
	conf *model.Configuration
}

var _ pipeline.Merger = (*Merger)(nil)

// New returns a merger using pdfcpu's default configuration.
func New() *Merger {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Merger{conf: conf}
}

// Merge writes page 1 of titlePath followed by every page of contentPath.
func (m *Merger) Merge(ctx context.Context, titlePath, contentPath, outPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	if err := api.ValidateFile(contentPath, m.conf); err != nil {
		return fmt.Errorf("pdfmerge: invalid content pdf: %w", err)
	}

	firstPage := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".title1.pdf"
	defer os.Remove(firstPage)
	if err := api.TrimFile(titlePath, firstPage, []string{"1"}, m.conf); err != nil {
		return fmt.Errorf("pdfmerge: trim title: %w", err)
	}
	if err := api.MergeCreateFile([]string{firstPage, contentPath}, outPath, false, m.conf); err != nil {
		return fmt.Errorf("pdfmerge: merge: %w", err)
	}

	attrs := []slog.Attr{slog.Duration("duration", logger.Took(start))}
	if pages, err := api.PageCountFile(outPath); err == nil {
		attrs = append(attrs, slog.Int("pages", pages))
	}
	logger.Debug(ctx, logger.CompPipeline, "merge.done", attrs...)
	return nil
}
