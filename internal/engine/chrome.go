// Package engine renders local HTML files with headless Chrome through chromedp.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/internal/pipeline"
)

// A4 in inches, the unit Chrome's print API takes.
const (
	a4Width  = 8.27
	a4Height = 11.69
)

// Options configures the browser process.
type Options struct {
	ExecPath  string
	NoSandbox bool
	// Timeout bounds a single render including page load.
	Timeout time.Duration
}

// Chrome is a pipeline.Engine backed by one shared browser process.
// Every render opens its own tab, so renders may run in parallel.
type Chrome struct {
	opts Options

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
}

var _ pipeline.Engine = (*Chrome)(nil)

// New returns an engine; the browser starts lazily on the first render.
func New(opts Options) *Chrome {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Chrome{opts: opts}
}

func (c *Chrome) browser() (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browserCtx != nil && c.browserCtx.Err() == nil {
		return c.browserCtx, nil
	}

	allocOpts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.DisableGPU, chromedp.Flag("disable-dev-shm-usage", true))
	if c.opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}
	if c.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(c.opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserStop := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserStop()
		allocCancel()
		return nil, fmt.Errorf("engine: start browser: %w", err)
	}
	c.allocCtx, c.allocCancel = allocCtx, allocCancel
	c.browserCtx, c.browserStop = browserCtx, browserStop
	logger.Info(context.Background(), logger.CompRender, "browser.started",
		slog.String("path", c.opts.ExecPath),
	)
	return browserCtx, nil
}

// tab opens a new tab bound to ctx cancellation and the render timeout.
func (c *Chrome) tab(ctx context.Context) (context.Context, context.CancelFunc, error) {
	browserCtx, err := c.browser()
	if err != nil {
		return nil, nil, err
	}
	tabCtx, closeTab := chromedp.NewContext(browserCtx)
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, c.opts.Timeout)
	stop := context.AfterFunc(ctx, cancelTimeout)
	return tabCtx, func() {
		stop()
		cancelTimeout()
		closeTab()
	}, nil
}

// RenderPDF prints htmlPath to an A4 PDF without margins.
func (c *Chrome) RenderPDF(ctx context.Context, htmlPath, outPath string, opts pipeline.PDFOptions) error {
	url, err := fileURL(htmlPath)
	if err != nil {
		return err
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}

	tabCtx, done, err := c.tab(ctx)
	if err != nil {
		return err
	}
	defer done()

	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if opts.CSSPath != "" {
		css, err := os.ReadFile(opts.CSSPath)
		if err != nil {
			return fmt.Errorf("engine: read css: %w", err)
		}
		actions = append(actions, injectCSS(string(css)))
	}

	var buf []byte
	actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := page.PrintToPDF().
			WithPrintBackground(true).
			WithPaperWidth(a4Width).
			WithPaperHeight(a4Height).
			WithMarginTop(0).
			WithMarginBottom(0).
			WithMarginLeft(0).
			WithMarginRight(0).
			WithScale(scale).
			WithLandscape(opts.Landscape).
			WithPreferCSSPageSize(false).
			Do(ctx)
		buf = data
		return err
	}))

	start := time.Now()
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return fmt.Errorf("engine: print pdf: %w", err)
	}
	if err := os.WriteFile(outPath, buf, 0o644); err != nil {
		return fmt.Errorf("engine: write pdf: %w", err)
	}
	logger.Debug(ctx, logger.CompRender, "render.pdf",
		slog.String("status", "ok"),
		slog.Int("bytes", len(buf)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// RenderImage screenshots the element matched by opts.Selector as PNG.
func (c *Chrome) RenderImage(ctx context.Context, htmlPath, outPath string, opts pipeline.ImageOptions) error {
	url, err := fileURL(htmlPath)
	if err != nil {
		return err
	}
	width := opts.Width
	if width <= 0 {
		width = 1200
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}

	tabCtx, done, err := c.tab(ctx)
	if err != nil {
		return err
	}
	defer done()

	var buf []byte
	start := time.Now()
	err = chromedp.Run(tabCtx,
		chromedp.EmulateViewport(int64(width), 800, chromedp.EmulateScale(scale)),
		chromedp.Navigate(url),
		chromedp.WaitVisible(opts.Selector, chromedp.ByQuery),
		chromedp.Sleep(opts.Settle),
		chromedp.Screenshot(opts.Selector, &buf, chromedp.NodeVisible, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("engine: screenshot %q: %w", opts.Selector, err)
	}
	if err := os.WriteFile(outPath, buf, 0o644); err != nil {
		return fmt.Errorf("engine: write image: %w", err)
	}
	logger.Debug(ctx, logger.CompRender, "render.image",
		slog.String("status", "ok"),
		slog.Int("bytes", len(buf)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// Close shuts the browser down.
func (c *Chrome) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browserStop != nil {
		c.browserStop()
		c.allocCancel()
		c.browserCtx, c.browserStop = nil, nil
		c.allocCtx, c.allocCancel = nil, nil
	}
}

func injectCSS(css string) chromedp.Action {
	literal, _ := json.Marshal(css)
	script := `(() => { const s = document.createElement('style'); s.textContent = ` +
		string(literal) + `; document.head.appendChild(s); return true; })()`
	var ok bool
	return chromedp.Evaluate(script, &ok)
}

func fileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("engine: resolve %s: %w", path, err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}
