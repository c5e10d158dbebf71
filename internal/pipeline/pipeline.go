// Package pipeline turns a completed submission into delivered files:
// template copy, HTML fill, headless render, optional merge and mail, and
// cleanup of every scratch path it created.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/internal/render"
)

// Kind names a document family and its template set.
type Kind string

const (
	KindInvoice Kind = "invoice"
	KindProgram Kind = "user_pdf"
	KindTrade   Kind = "trade"
)

// Template file names inside the template directories.
const (
	InvoiceTemplate = "pdf.html"
	InvoiceStyles   = "styles.css"
	TitleTemplate   = "title.html"
)

// MailBody is the fixed text of invoice emails.
const MailBody = "Здравствуйте! Во вложении ваш счёт."

// PDFOptions controls PDF printing.
type PDFOptions struct {
	Landscape bool
	Scale     float64
	// CSSPath is injected as a <style> block when set.
	CSSPath string
}

// ImageOptions controls element screenshots.
type ImageOptions struct {
	Selector string
	Width    int
	Scale    float64
	Settle   time.Duration
}

// Engine renders a local HTML file with a headless browser.
type Engine interface {
	RenderPDF(ctx context.Context, htmlPath, outPath string, opts PDFOptions) error
	RenderImage(ctx context.Context, htmlPath, outPath string, opts ImageOptions) error
}

// Merger writes page 1 of title followed by every page of content to out.
type Merger interface {
	Merge(ctx context.Context, titlePath, contentPath, outPath string) error
}

// Mail is one outgoing message with a single attachment.
type Mail struct {
	To             string
	Subject        string
	Body           string
	AttachmentPath string
	AttachmentName string
}

// Mailer delivers Mail.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// Document is a rendered file ready for delivery.
type Document struct {
	Kind         Kind
	SubmissionID string
	Path         string
	FileName     string
}

// Workspace is one submission's scratch directory holding a copy of its
// template set.
type Workspace struct {
	ID   string
	Kind Kind
	Dir  string
}

// Path joins name onto the workspace directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// Options locates templates and carries render defaults.
type Options struct {
	ScratchDir string
	Templates  map[Kind]string
	PDF        PDFOptions
	Image      ImageOptions
}

// Pipeline runs document jobs. It is safe for concurrent use.
type Pipeline struct {
	opts     Options
	engine   Engine
	merger   Merger
	mailer   Mailer
	renderer *render.Renderer
}

// New wires a pipeline. A nil renderer uses the wall clock.
func New(opts Options, engine Engine, merger Merger, mailer Mailer, renderer *render.Renderer) *Pipeline {
	if renderer == nil {
		renderer = render.New(nil)
	}
	if opts.ScratchDir == "" {
		opts.ScratchDir = os.TempDir()
	}
	return &Pipeline{opts: opts, engine: engine, merger: merger, mailer: mailer, renderer: renderer}
}

// NewWorkspace creates <scratch>/<kind>_<uuid> and copies the kind's
// template directory into it, so relative assets keep resolving.
// The caller owns the directory and must pass ws.Dir to Cleanup.
func (p *Pipeline) NewWorkspace(ctx context.Context, kind Kind) (*Workspace, error) {
	id := uuid.NewString()
	dir := filepath.Join(p.opts.ScratchDir, fmt.Sprintf("%s_%s", kind, id))
	if err := os.MkdirAll(p.opts.ScratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: scratch dir: %w", err)
	}
	if src := p.opts.Templates[kind]; src != "" {
		if err := os.CopyFS(dir, os.DirFS(src)); err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("pipeline: copy templates %s: %w", src, err)
		}
	} else if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: workspace: %w", err)
	}
	logger.Debug(logger.WithSubmission(ctx, id), logger.CompPipeline, "workspace.created",
		slog.String("kind", string(kind)),
		slog.String("path", dir),
	)
	return &Workspace{ID: id, Kind: kind, Dir: dir}, nil
}

// Invoice fills the invoice template in ws and prints it to PDF.
func (p *Pipeline) Invoice(ctx context.Context, ws *Workspace, inv render.Invoice) (Document, error) {
	ctx = logger.WithSubmission(ctx, ws.ID)
	htmlPath, err := p.fill(ws, InvoiceTemplate, "invoice.html", func(tpl string) string {
		return p.renderer.Invoice(tpl, inv)
	})
	if err != nil {
		return Document{}, err
	}

	opts := p.opts.PDF
	if css := ws.Path(InvoiceStyles); fileExists(css) {
		opts.CSSPath = css
	}
	out := ws.Path("invoice.pdf")
	if err := p.renderPDF(ctx, ws.Kind, htmlPath, out, opts); err != nil {
		return Document{}, err
	}
	return p.delivered(ctx, Document{
		Kind:         KindInvoice,
		SubmissionID: ws.ID,
		Path:         out,
		FileName:     render.InvoiceFileName(inv.OrderNumber),
	}), nil
}

// Program renders the landscape title page for customer and merges it in
// front of the pages of contentPath.
func (p *Pipeline) Program(ctx context.Context, ws *Workspace, customer, contentPath string) (Document, error) {
	ctx = logger.WithSubmission(ctx, ws.ID)
	htmlPath, err := p.fill(ws, TitleTemplate, "title_filled.html", func(tpl string) string {
		return p.renderer.Title(tpl, customer)
	})
	if err != nil {
		return Document{}, err
	}

	opts := p.opts.PDF
	opts.Landscape = true
	titlePDF := ws.Path("title.pdf")
	if err := p.renderPDF(ctx, ws.Kind, htmlPath, titlePDF, opts); err != nil {
		return Document{}, err
	}

	out := ws.Path("program.pdf")
	start := time.Now()
	if err := p.merger.Merge(ctx, titlePDF, contentPath, out); err != nil {
		merr := &MergeError{Err: err}
		logger.Error(ctx, logger.CompPipeline, "pipeline.merge",
			append(logger.ErrAttrs(merr), slog.String("status", "fail"), slog.Duration("duration", logger.Took(start)))...,
		)
		return Document{}, merr
	}
	logger.Debug(ctx, logger.CompPipeline, "pipeline.merge",
		slog.String("status", "ok"),
		slog.Duration("duration", logger.Took(start)),
	)
	return p.delivered(ctx, Document{
		Kind:         KindProgram,
		SubmissionID: ws.ID,
		Path:         out,
		FileName:     render.ProgramFileName(customer),
	}), nil
}

// Card fills a trade card template with {token} values and screenshots it.
func (p *Pipeline) Card(ctx context.Context, ws *Workspace, template string, values map[string]string, fileName string) (Document, error) {
	ctx = logger.WithSubmission(ctx, ws.ID)
	htmlPath, err := p.fill(ws, template, "card_filled.html", func(tpl string) string {
		return render.FillTokens(tpl, values)
	})
	if err != nil {
		return Document{}, err
	}
	out := ws.Path("card.png")
	start := time.Now()
	if err := p.engine.RenderImage(ctx, htmlPath, out, p.opts.Image); err != nil {
		rerr := &RenderError{Kind: KindTrade, Err: err}
		logger.Error(ctx, logger.CompPipeline, "pipeline.render",
			append(logger.ErrAttrs(rerr), slog.String("status", "fail"), slog.Duration("duration", logger.Took(start)))...,
		)
		return Document{}, rerr
	}
	return p.delivered(ctx, Document{
		Kind:         KindTrade,
		SubmissionID: ws.ID,
		Path:         out,
		FileName:     render.SafeFileName(fileName),
	}), nil
}

// SendMail emails doc to recipient with the fixed invoice body.
func (p *Pipeline) SendMail(ctx context.Context, doc Document, recipient string) error {
	ctx = logger.WithSubmission(ctx, doc.SubmissionID)
	if !fileExists(doc.Path) {
		return ErrDocumentMissing
	}
	start := time.Now()
	err := p.mailer.Send(ctx, Mail{
		To:             recipient,
		Subject:        "Документ: " + doc.FileName,
		Body:           MailBody,
		AttachmentPath: doc.Path,
		AttachmentName: doc.FileName,
	})
	if err != nil {
		merr := &MailError{Err: err}
		logger.Error(ctx, logger.CompPipeline, "pipeline.mail",
			append(logger.ErrAttrs(merr),
				slog.String("status", "fail"),
				slog.String("stage", merr.Stage()),
				slog.Duration("duration", logger.Took(start)),
			)...,
		)
		return merr
	}
	logger.Info(ctx, logger.CompPipeline, "pipeline.mail",
		slog.String("status", "ok"),
		slog.String("file", doc.FileName),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func (p *Pipeline) fill(ws *Workspace, template, output string, fill func(string) string) (string, error) {
	data, err := os.ReadFile(ws.Path(template))
	if err != nil {
		return "", &RenderError{Kind: ws.Kind, Err: fmt.Errorf("read template: %w", err)}
	}
	out := ws.Path(output)
	if err := os.WriteFile(out, []byte(fill(string(data))), 0o644); err != nil {
		return "", &RenderError{Kind: ws.Kind, Err: fmt.Errorf("write html: %w", err)}
	}
	return out, nil
}

func (p *Pipeline) renderPDF(ctx context.Context, kind Kind, htmlPath, out string, opts PDFOptions) error {
	start := time.Now()
	if err := p.engine.RenderPDF(ctx, htmlPath, out, opts); err != nil {
		rerr := &RenderError{Kind: kind, Err: err}
		logger.Error(ctx, logger.CompPipeline, "pipeline.render",
			append(logger.ErrAttrs(rerr), slog.String("status", "fail"), slog.Duration("duration", logger.Took(start)))...,
		)
		return rerr
	}
	logger.Debug(ctx, logger.CompPipeline, "pipeline.render",
		slog.String("status", "ok"),
		slog.Bool("landscape", opts.Landscape),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func (p *Pipeline) delivered(ctx context.Context, doc Document) Document {
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("kind", string(doc.Kind)),
		slog.String("file", doc.FileName),
	}
	if st, err := os.Stat(doc.Path); err == nil {
		attrs = append(attrs, slog.Int64("bytes", st.Size()))
	}
	logger.Info(ctx, logger.CompPipeline, "pipeline.ready", attrs...)
	return doc
}

// Cleanup removes every path. Missing paths are fine; other failures are
// logged and skipped so the remaining paths are still removed.
func Cleanup(ctx context.Context, paths ...string) {
	removed := 0
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.RemoveAll(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn(ctx, logger.CompPipeline, "cleanup.failed",
				slog.String("path", path),
				slog.String("err", err.Error()),
			)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Debug(ctx, logger.CompPipeline, "cleanup.done", slog.Int("count", removed))
	}
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
