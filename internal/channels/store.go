// Package channels manages the comment posted under auto-forwarded channel
// posts in linked discussion chats.
package channels

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrExists   = errors.New("channels: channel already registered")
	ErrNotFound = errors.New("channels: channel not found")
)

// Channel is one registered channel.
type Channel struct {
	ID        int64     `db:"channel_id"`
	Name      string    `db:"name"`
	Comment   string    `db:"comment"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Store persists channels.
type Store interface {
	List(ctx context.Context) ([]Channel, error)
	Get(ctx context.Context, id int64) (Channel, error)
	Add(ctx context.Context, id int64, name string) error
	SetComment(ctx context.Context, id int64, comment string) (Channel, error)
	Remove(ctx context.Context, id int64) error
}

// Memory is a process-local Store.
type Memory struct {
	mu    sync.RWMutex
	items map[int64]Channel
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{items: make(map[int64]Channel)}
}

func (m *Memory) List(context.Context) ([]Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Channel, 0, len(m.items))
	for _, ch := range m.items {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) Get(_ context.Context, id int64) (Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.items[id]
	if !ok {
		return Channel{}, ErrNotFound
	}
	return ch, nil
}

func (m *Memory) Add(_ context.Context, id int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; ok {
		return ErrExists
	}
	m.items[id] = Channel{ID: id, Name: name, UpdatedAt: time.Now()}
	return nil
}

func (m *Memory) SetComment(_ context.Context, id int64, comment string) (Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.items[id]
	if !ok {
		return Channel{}, ErrNotFound
	}
	ch.Comment = comment
	ch.UpdatedAt = time.Now()
	m.items[id] = ch
	return ch, nil
}

func (m *Memory) Remove(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// Postgres stores channels in the comment_channels table.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres returns a store over db.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

const selectChannel = `SELECT channel_id, name, comment, updated_at FROM comment_channels`

func (p *Postgres) List(ctx context.Context) ([]Channel, error) {
	var out []Channel
	if err := p.db.SelectContext(ctx, &out, selectChannel+` ORDER BY name`); err != nil {
		return nil, fmt.Errorf("channels: list: %w", err)
	}
	return out, nil
}

func (p *Postgres) Get(ctx context.Context, id int64) (Channel, error) {
	var ch Channel
	err := p.db.GetContext(ctx, &ch, selectChannel+` WHERE channel_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Channel{}, ErrNotFound
	}
	if err != nil {
		return Channel{}, fmt.Errorf("channels: get: %w", err)
	}
	return ch, nil
}

func (p *Postgres) Add(ctx context.Context, id int64, name string) error {
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO comment_channels (channel_id, name) VALUES ($1, $2) ON CONFLICT (channel_id) DO NOTHING`,
		id, name)
	if err != nil {
		return fmt.Errorf("channels: add: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrExists
	}
	return nil
}

func (p *Postgres) SetComment(ctx context.Context, id int64, comment string) (Channel, error) {
	var ch Channel
	err := p.db.GetContext(ctx, &ch,
		`UPDATE comment_channels SET comment = $2, updated_at = now() WHERE channel_id = $1
		 RETURNING channel_id, name, comment, updated_at`,
		id, comment)
	if errors.Is(err, sql.ErrNoRows) {
		return Channel{}, ErrNotFound
	}
	if err != nil {
		return Channel{}, fmt.Errorf("channels: set comment: %w", err)
	}
	return ch, nil
}

func (p *Postgres) Remove(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM comment_channels WHERE channel_id = $1`, id)
	if err != nil {
		return fmt.Errorf("channels: remove: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
