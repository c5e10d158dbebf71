// Package form runs the multi-step conversations that collect submission
// data. Every flow is a table of (event kind, state) handlers; the machine
// owns session lifecycle, cancellation and scratch cleanup.
package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/core/telegram/state"
	"github.com/m3rciful/pdfbot/internal/chat"
	"github.com/m3rciful/pdfbot/internal/pipeline"
	"github.com/m3rciful/pdfbot/internal/validate"
)

// CallbackCancel aborts the active flow from any state.
const CallbackCancel = "cancel"

// ErrNoSession is returned by Handle when the chat has no active flow.
var ErrNoSession = errors.New("form: no active session")

// errUnmatched makes the machine treat an event as if no handler existed.
var errUnmatched = errors.New("form: unmatched event")

// Key selects a handler.
type Key struct {
	Kind  chat.Kind
	State state.State
}

// Turn is one event applied to a session. Handlers mutate Session in place;
// the machine persists it after the handler returns.
type Turn struct {
	Event   chat.Event
	Session *state.Session
	// Input is the trimmed message text or the callback data.
	Input string
}

// Handler consumes a turn and returns the next state. Returning the current
// state keeps the flow where it is; StateIdle ends it.
type Handler func(ctx context.Context, t *Turn) (state.State, error)

// Table maps events to handlers.
type Table map[Key]Handler

// Prompt is the message sent when a state is entered or re-entered.
type Prompt struct {
	Text     string
	Keyboard chat.Keyboard
}

// Flow is one conversation: its states, handlers and texts.
type Flow struct {
	Name  string
	Start state.State
	// Cancelled is sent when the operator aborts the flow.
	Cancelled string
	Prompts   map[state.State]func(*state.Session) Prompt
	Table     Table
}

// Machine dispatches events to flow handlers. Events for one chat are
// handled one at a time.
type Machine struct {
	store state.Store
	tr    chat.Transport
	flows map[string]Flow
	owner map[state.State]string
	table Table
}

// NewMachine merges the flows' tables. State names must be unique across flows.
func NewMachine(store state.Store, tr chat.Transport, flows ...Flow) (*Machine, error) {
	m := &Machine{
		store: store,
		tr:    tr,
		flows: make(map[string]Flow, len(flows)),
		owner: make(map[state.State]string),
		table: make(Table),
	}
	for _, f := range flows {
		if _, dup := m.flows[f.Name]; dup {
			return nil, fmt.Errorf("form: duplicate flow %q", f.Name)
		}
		m.flows[f.Name] = f
		for st := range f.Prompts {
			if other, dup := m.owner[st]; dup && other != f.Name {
				return nil, fmt.Errorf("form: state %q owned by %q and %q", st, other, f.Name)
			}
			m.owner[st] = f.Name
		}
		for k, h := range f.Table {
			if _, ok := f.Prompts[k.State]; !ok {
				return nil, fmt.Errorf("form: flow %q handles state %q without a prompt", f.Name, k.State)
			}
			m.table[k] = h
		}
		if _, ok := f.Prompts[f.Start]; !ok {
			return nil, fmt.Errorf("form: flow %q has no prompt for start state %q", f.Name, f.Start)
		}
	}
	return m, nil
}

// Active reports whether chatID is inside a flow.
func (m *Machine) Active(chatID int64) bool {
	_, ok := m.store.Get(chatID)
	return ok
}

// Start begins flow name, discarding any session the chat already had.
func (m *Machine) Start(ctx context.Context, ev chat.Event, name string) error {
	f, ok := m.flows[name]
	if !ok {
		return fmt.Errorf("form: unknown flow %q", name)
	}
	unlock := m.store.Lock(ev.ChatID)
	defer unlock()

	if old, ok := m.store.Get(ev.ChatID); ok {
		m.end(ctx, old, "restarted")
	}
	s := m.store.Create(ev.ChatID, f.Start)
	ctx = logger.WithFlowState(ctx, string(f.Start))
	logger.Info(ctx, logger.CompForm, "flow.start", slog.String("kind", name))
	if err := m.prompt(ctx, s); err != nil {
		m.end(ctx, s, "fail")
		return err
	}
	return nil
}

// Cancel aborts the chat's flow and sends the flow's acknowledgement.
// It reports false when there was nothing to cancel.
func (m *Machine) Cancel(ctx context.Context, ev chat.Event) (bool, error) {
	unlock := m.store.Lock(ev.ChatID)
	defer unlock()
	s, ok := m.store.Get(ev.ChatID)
	if !ok {
		return false, nil
	}
	return true, m.cancel(ctx, s)
}

// Handle applies ev to the chat's session.
func (m *Machine) Handle(ctx context.Context, ev chat.Event) error {
	unlock := m.store.Lock(ev.ChatID)
	defer unlock()

	s, ok := m.store.Get(ev.ChatID)
	if !ok {
		return ErrNoSession
	}
	ctx = logger.WithFlowState(ctx, string(s.State))

	input := strings.TrimSpace(ev.Text)
	if ev.Kind == chat.KindCallback && input == CallbackCancel {
		return m.cancel(ctx, s)
	}

	h, ok := m.table[Key{Kind: ev.Kind, State: s.State}]
	if !ok {
		return m.unmatched(ctx, ev, s)
	}

	start := time.Now()
	current := s.State
	next, err := h(ctx, &Turn{Event: ev, Session: s, Input: input})
	switch {
	case errors.Is(err, errUnmatched):
		return m.unmatched(ctx, ev, s)
	case err != nil:
		logger.Error(ctx, logger.CompForm, "flow.step",
			append(logger.ErrAttrs(err),
				slog.String("status", "fail"),
				slog.Duration("duration", logger.Took(start)),
			)...,
		)
		m.end(ctx, s, "fail")
		return err
	case next == state.StateIdle:
		logger.Debug(ctx, logger.CompForm, "flow.step",
			slog.String("status", "ok"),
			slog.String("next_state", string(next)),
			slog.Duration("duration", logger.Took(start)),
		)
		m.end(ctx, s, "done")
		return nil
	}

	s.State = next
	m.store.Update(s)
	status := "ok"
	if next == current {
		status = "invalid"
	}
	logger.Debug(ctx, logger.CompForm, "flow.step",
		slog.String("status", status),
		slog.String("next_state", string(next)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func (m *Machine) unmatched(ctx context.Context, ev chat.Event, s *state.Session) error {
	if ev.Kind == chat.KindCallback {
		logger.Debug(ctx, logger.CompForm, "flow.unmatched", slog.String("outcome", "ignored"))
		return nil
	}
	logger.Debug(ctx, logger.CompForm, "flow.unmatched",
		slog.String("outcome", "reprompt"),
		slog.String("kind", string(ev.Kind)),
	)
	if err := m.prompt(ctx, s); err != nil {
		m.end(ctx, s, "fail")
		return err
	}
	return nil
}

func (m *Machine) cancel(ctx context.Context, s *state.Session) error {
	f := m.flows[m.owner[s.State]]
	m.end(ctx, s, "cancelled")
	if f.Cancelled == "" {
		return nil
	}
	return m.tr.Text(ctx, s.ChatID, f.Cancelled, nil)
}

// end removes every scratch path of s and clears the session.
func (m *Machine) end(ctx context.Context, s *state.Session, reason string) {
	pipeline.Cleanup(ctx, s.Scratch...)
	m.store.Clear(s.ChatID)
	logger.Info(ctx, logger.CompForm, "flow.end",
		slog.String("kind", m.owner[s.State]),
		slog.String("outcome", reason),
		slog.Int("count", len(s.Scratch)),
	)
}

func (m *Machine) prompt(ctx context.Context, s *state.Session) error {
	f := m.flows[m.owner[s.State]]
	build, ok := f.Prompts[s.State]
	if !ok {
		return nil
	}
	p := build(s)
	return m.tr.Text(ctx, s.ChatID, p.Text, p.Keyboard)
}

// invalid logs a validation failure and sends msg, keeping the state.
func invalid(ctx context.Context, tr chat.Transport, t *Turn, err error, msg string, kb chat.Keyboard) (state.State, error) {
	var verr *validate.Error
	if errors.As(err, &verr) {
		logger.Debug(ctx, logger.CompForm, "flow.invalid",
			slog.String("status", "invalid"),
			slog.String("err_code", verr.Code()),
		)
	}
	return t.Session.State, tr.Text(ctx, t.Session.ChatID, msg, kb)
}
