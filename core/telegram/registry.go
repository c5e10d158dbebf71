package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/core/telegram/commands"
)

// Registry holds the bot's command table metadata.
type Registry struct {
	commands map[string]commands.Command
	aliases  map[string]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]commands.Command),
		aliases:  make(map[string]string),
	}
}

// RegisterCommand adds a command. Names must start with '/'.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) < 2 || name[0] != '/' {
		logger.Warn(context.Background(), logger.CompTGWire, "register.command.skip",
			slog.String("status", "invalid"),
			slog.String("handler", name),
			slog.String("cause", "no_slash_prefix"),
		)
		return fmt.Errorf("telegram: invalid command name %q", name)
	}
	if cmd.Description == "" {
		return fmt.Errorf("telegram: command %s has no description", name)
	}
	if _, exists := r.commands[name]; exists {
		logger.Warn(context.Background(), logger.CompTGWire, "register.command.duplicate",
			slog.String("handler", name),
		)
		return fmt.Errorf("telegram: command already registered: %s", name)
	}
	if _, exists := r.aliases[name]; exists {
		return fmt.Errorf("telegram: command %s shadows an alias", name)
	}
	r.commands[name] = cmd
	for _, alias := range cmd.Aliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if !strings.HasPrefix(alias, "/") {
			alias = "/" + alias
		}
		r.aliases[alias] = name
	}
	return nil
}

// ListCommands returns the menu entries sorted by name, optionally without
// hidden commands.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	list := make([]tele.Command, 0, len(r.commands))
	for name, meta := range r.commands {
		if visibleOnly && meta.Hidden {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves a name or alias to its canonical key.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name = strings.ToLower(name)
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	if key, ok := r.aliases[name]; ok {
		return key, r.commands[key], true
	}
	return "", commands.Command{}, false
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	return len(r.commands)
}

// InitBotCommands publishes the visible commands as the bot menu.
func InitBotCommands(ctx context.Context, bot *tele.Bot, reg *Registry) {
	list := reg.ListCommands(true)
	if err := bot.SetCommands(list); err != nil {
		logger.Error(ctx, logger.CompTGWire, "register.commands",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Info(ctx, logger.CompTGWire, "register.commands",
		slog.String("status", "ok"),
		slog.Int("count", len(list)),
	)
}
