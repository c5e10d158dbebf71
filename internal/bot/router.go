// Package bot routes inbound events to commands, running forms and the
// catch-all hint, and wires the whole application together.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/pdfbot/core/logger"
	tg "github.com/m3rciful/pdfbot/core/telegram"
	"github.com/m3rciful/pdfbot/core/telegram/commands"
	"github.com/m3rciful/pdfbot/core/telegram/router"
	"github.com/m3rciful/pdfbot/internal/access"
	"github.com/m3rciful/pdfbot/internal/chat"
	"github.com/m3rciful/pdfbot/internal/form"
)

// CommandFunc handles one slash command; args is the text after the name.
type CommandFunc func(ctx context.Context, ev chat.Event, args string) error

// Command binds a slash command to its handler.
type Command struct {
	Name        string
	Description string
	Aliases     []string
	// PrivateOnly commands are ignored outside private chats.
	PrivateOnly bool
	Hidden      bool
	Run         CommandFunc
}

// Forms is the part of the form machine the router needs.
type Forms interface {
	Active(chatID int64) bool
	Handle(ctx context.Context, ev chat.Event) error
}

// Forwarder answers automatic forwards from linked channels.
type Forwarder interface {
	AutoForward(ctx context.Context, ev chat.Event) error
}

// Router is the single dispatch point for every update. The order is fixed:
// channel auto-forwards, the allow-list, commands, the chat's running form,
// then the catch-all.
type Router struct {
	access   access.Filter
	tr       chat.Transport
	forms    Forms
	forwards Forwarder
	registry *tg.Registry
	commands map[string]Command
	hint     string
}

// RouterOptions collects the router's collaborators.
type RouterOptions struct {
	Access    access.Filter
	Transport chat.Transport
	Forms     Forms
	Forwarder Forwarder
	Registry  *tg.Registry
	Commands  []Command
	// Hint is sent to allowed users for anything no handler claims.
	Hint string
}

// NewRouter registers every command in the registry and builds the router.
func NewRouter(opts RouterOptions) (*Router, error) {
	if opts.Transport == nil {
		return nil, errors.New("bot: router needs a transport")
	}
	reg := opts.Registry
	if reg == nil {
		reg = tg.NewRegistry()
	}
	r := &Router{
		access:   opts.Access,
		tr:       opts.Transport,
		forms:    opts.Forms,
		forwards: opts.Forwarder,
		registry: reg,
		commands: make(map[string]Command, len(opts.Commands)),
		hint:     opts.Hint,
	}
	for _, cmd := range opts.Commands {
		if cmd.Run == nil {
			return nil, fmt.Errorf("bot: command %s has no handler", cmd.Name)
		}
		err := reg.RegisterCommand(cmd.Name, commands.Command{
			Description: cmd.Description,
			Hidden:      cmd.Hidden,
			Aliases:     cmd.Aliases,
		})
		if err != nil {
			return nil, err
		}
		key, _, _ := reg.LookupCommand(cmd.Name)
		r.commands[key] = cmd
	}
	return r, nil
}

// Registry returns the command registry used for the bot menu.
func (r *Router) Registry() *tg.Registry {
	return r.registry
}

// Dispatch routes one event.
func (r *Router) Dispatch(ctx context.Context, ev chat.Event) error {
	if ev.AutoForwardFrom != 0 {
		if r.forwards == nil {
			return nil
		}
		return router.HandleWithSummary(ctx, "auto_forward", func(ctx context.Context) error {
			return r.forwards.AutoForward(ctx, ev)
		})
	}

	if err := r.access.Check(ev.UserID); err != nil {
		return r.deny(ctx, ev, err)
	}

	if name, args, ok := ev.Command(); ok {
		if key, _, found := r.registry.LookupCommand(name); found {
			cmd := r.commands[key]
			if cmd.PrivateOnly && !ev.Private {
				router.LogSummary(ctx, router.NormalizeHandlerName(key), time.Now(),
					router.Summary{Status: "skip", Outcome: "ignored"}, nil)
				return nil
			}
			return router.HandleWithSummary(ctx, key, func(ctx context.Context) error {
				return cmd.Run(ctx, ev, args)
			})
		}
	}

	if r.forms != nil && r.forms.Active(ev.ChatID) {
		gone := false
		err := router.HandleWithSummary(ctx, "form", func(ctx context.Context) error {
			err := r.forms.Handle(ctx, ev)
			if errors.Is(err, form.ErrNoSession) {
				gone = true
				return nil
			}
			return err
		}, slog.String("kind", string(ev.Kind)))
		if !gone {
			return err
		}
	}

	return r.fallback(ctx, ev)
}

func (r *Router) deny(ctx context.Context, ev chat.Event, cause error) error {
	start := time.Now()
	logger.Warn(ctx, logger.CompAccess, "access.denied",
		append(logger.ErrAttrs(cause),
			slog.String("status", "denied"),
			slog.Int64("user_id", ev.UserID),
			slog.String("kind", string(ev.Kind)),
		)...,
	)
	if !ev.Private {
		router.LogSummary(ctx, "denied", start, router.Summary{Status: "denied", Outcome: "ignored"}, nil)
		return nil
	}
	err := r.tr.Text(ctx, ev.ChatID, NotAllowedText, nil)
	router.LogSummary(ctx, "denied", start, router.Summary{Status: "denied"}, err)
	return err
}

func (r *Router) fallback(ctx context.Context, ev chat.Event) error {
	start := time.Now()
	if !ev.Private || ev.Kind == chat.KindCallback || r.hint == "" {
		router.LogSummary(ctx, "fallback", start, router.Summary{Status: "skip", Outcome: "ignored"}, nil)
		return nil
	}
	return router.HandleWithSummary(ctx, "hint", func(ctx context.Context) error {
		return r.tr.Text(ctx, ev.ChatID, r.hint, nil)
	})
}
