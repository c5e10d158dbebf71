package bot

import (
	"context"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/pdfbot/core/bootstrap"
	coreconfig "github.com/m3rciful/pdfbot/core/config"
	"github.com/m3rciful/pdfbot/core/logger"
	tg "github.com/m3rciful/pdfbot/core/telegram"
	tghelpers "github.com/m3rciful/pdfbot/core/telegram/helpers"
	"github.com/m3rciful/pdfbot/core/telegram/middleware"
	"github.com/m3rciful/pdfbot/core/telegram/router"
	tgsender "github.com/m3rciful/pdfbot/core/telegram/sender"
	"github.com/m3rciful/pdfbot/core/telegram/state"
	"github.com/m3rciful/pdfbot/internal/access"
	"github.com/m3rciful/pdfbot/internal/channels"
	"github.com/m3rciful/pdfbot/internal/chat"
	"github.com/m3rciful/pdfbot/internal/engine"
	"github.com/m3rciful/pdfbot/internal/form"
	"github.com/m3rciful/pdfbot/internal/journal"
	"github.com/m3rciful/pdfbot/internal/mailer"
	"github.com/m3rciful/pdfbot/internal/pdfmerge"
	"github.com/m3rciful/pdfbot/internal/pipeline"
	"github.com/m3rciful/pdfbot/internal/render"
	"github.com/m3rciful/pdfbot/internal/trade"
)

// App owns every long-lived component of the bot.
type App struct {
	cfg      *coreconfig.Config
	infra    *bootstrap.Result
	access   access.Filter
	engine   *engine.Chrome
	pipeline *pipeline.Pipeline
	sessions state.Store
	journal  journal.Recorder
	history  journal.History
	channels channels.Store
	now      func() time.Time
}

// New builds the transport-independent part of the application.
// infra may be nil or carry a nil DB; in-memory stores are used then.
func New(ctx context.Context, cfg *coreconfig.Config, infra *bootstrap.Result) *App {
	filter := access.New(cfg.Access.AdminIDs)
	access.ReportLoaded(ctx, filter, cfg.Access.Rejected)

	chrome := engine.New(engine.Options{
		ExecPath:  cfg.Render.ChromePath,
		NoSandbox: cfg.Render.NoSandbox,
		Timeout:   time.Duration(cfg.Render.TimeoutSeconds) * time.Second,
	})
	pipe := pipeline.New(pipeline.Options{
		ScratchDir: cfg.Paths.ScratchDir,
		Templates: map[pipeline.Kind]string{
			pipeline.KindInvoice: cfg.Paths.InvoiceDir,
			pipeline.KindProgram: cfg.Paths.TitleDir,
			pipeline.KindTrade:   cfg.Paths.TradeDir,
		},
		PDF: pipeline.PDFOptions{Scale: cfg.Render.PDFScale},
		Image: pipeline.ImageOptions{
			Selector: cfg.Render.ImageSelector,
			Width:    cfg.Render.ImageWidth,
			Scale:    cfg.Render.ImageScale,
			Settle:   time.Duration(cfg.Render.SettleMS) * time.Millisecond,
		},
	}, chrome, pdfmerge.New(), mailer.New(cfg.Mail), render.New(nil))

	docs := journal.NewMemory(0)
	app := &App{
		cfg:      cfg,
		infra:    infra,
		access:   filter,
		engine:   chrome,
		pipeline: pipe,
		sessions: state.NewMemoryStore(),
		journal:  docs,
		history:  docs,
		channels: channels.NewMemory(),
		now:      time.Now,
	}
	if infra != nil && infra.DB != nil {
		pg := journal.NewPostgres(infra.DB)
		app.journal, app.history = pg, pg
		app.channels = channels.NewPostgres(infra.DB)
	}
	logger.Info(ctx, logger.CompApp, "app.wired",
		slog.Bool("db", infra != nil && infra.DB != nil),
		slog.String("path", cfg.Paths.ScratchDir),
	)
	return app
}

// Router builds the dispatcher for tr. The registry receives every command.
func (a *App) Router(tr chat.Transport, reg *tg.Registry) (*Router, error) {
	deps := form.Deps{
		Transport:       tr,
		Documents:       a.pipeline,
		Journal:         a.journal,
		DefaultDocument: a.cfg.Paths.DefaultDocument,
	}
	machine, err := form.NewMachine(a.sessions, tr, form.InvoiceFlow(deps), form.ProgramFlow(deps))
	if err != nil {
		return nil, err
	}
	cards := trade.NewService(a.pipeline, tr, a.cfg.Paths.TradeDir, a.now)
	chans := channels.NewHandler(a.channels, tr)

	return NewRouter(RouterOptions{
		Access:    a.access,
		Transport: tr,
		Forms:     machine,
		Forwarder: chans,
		Registry:  reg,
		Commands:  Commands(tr, machine, cards, chans, a.history),
		Hint:      HintText,
	})
}

// TelegramRunOptions wires the app into the telebot runtime.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	onBlocked := func(c tele.Context) error {
		_, err := c.Bot().Send(c.Sender(), middleware.SpamWarning)
		return err
	}

	return tg.RunOptions{
		Config:   a.cfg,
		Registry: reg,
		DispatcherOptions: tgsender.Options{
			QueueSize:     a.cfg.Sender.QueueSize,
			Workers:       a.cfg.Sender.Workers,
			MaxRetries:    a.cfg.Sender.MaxRetries,
			RetryBackoff:  time.Duration(a.cfg.Sender.RetryBackoffMS) * time.Millisecond,
			RatePerSecond: a.cfg.Sender.RatePerSecond,
		},
		Middlewares: tg.DefaultMiddlewares(a.cfg, onBlocked),
		Routes: func(rt tg.Runtime) ([]tg.Route, error) {
			r, err := a.Router(rt.Transport, reg)
			if err != nil {
				return nil, err
			}
			return router.UpdateRoutes(Handler(r)), nil
		},
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			NotifyStartup(ctx, rt.Transport, a.cfg.Access.MainAdminIDs)
			return nil
		},
		OnStop: func(ctx context.Context, rt tg.Runtime) error {
			a.engine.Close()
			return nil
		},
	}, nil
}

// Handler adapts the router to a telebot handler. Callbacks are answered
// up front so the button spinner stops even when rendering takes a while.
func Handler(r *Router) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		if c.Callback() != nil {
			_ = c.Respond()
		}
		return r.Dispatch(ctx, tg.EventFrom(c))
	}
}

// Close releases the browser and the database pool.
func (a *App) Close() error {
	a.engine.Close()
	return a.infra.Close()
}
