// Package journal records delivered documents.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/pdfbot/core/logger"
)

// Entry is one delivered document.
type Entry struct {
	ID        string    `db:"id"`
	Kind      string    `db:"kind"`
	ChatID    int64     `db:"chat_id"`
	UserID    int64     `db:"user_id"`
	FileName  string    `db:"file_name"`
	Emailed   bool      `db:"emailed"`
	CreatedAt time.Time `db:"created_at"`
}

// Recorder stores journal entries. Implementations log their own failures;
// callers never act on the returned error beyond logging it.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	MarkEmailed(ctx context.Context, id string) error
}

// History lists what was delivered to a chat.
type History interface {
	Recent(ctx context.Context, chatID int64, limit int) ([]Entry, error)
}

const defaultRecent = 10

// Nop discards everything.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error      { return nil }
func (Nop) MarkEmailed(context.Context, string) error { return nil }

// Memory keeps the last entries in process. Used when the database is
// disabled; history is lost on restart.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	max     int
	now     func() time.Time
}

// NewMemory keeps at most size entries; size <= 0 means 500.
func NewMemory(size int) *Memory {
	if size <= 0 {
		size = 500
	}
	return &Memory{max: size, now: time.Now}
}

func (m *Memory) Record(_ context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	if over := len(m.entries) - m.max; over > 0 {
		m.entries = append(m.entries[:0:0], m.entries[over:]...)
	}
	return nil
}

func (m *Memory) MarkEmailed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].ID == id {
			m.entries[i].Emailed = true
		}
	}
	return nil
}

// Recent returns the latest entries for chatID, newest first.
func (m *Memory) Recent(_ context.Context, chatID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecent
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].ChatID == chatID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

// Postgres writes to the documents table.
type Postgres struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgres returns a recorder over db.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

const insertEntry = `INSERT INTO documents (id, kind, chat_id, user_id, file_name, emailed, created_at)
VALUES (:id, :kind, :chat_id, :user_id, :file_name, :emailed, :created_at)
ON CONFLICT (id) DO NOTHING`

// Record inserts e. Submission ids that are not UUIDs get a fresh one.
func (p *Postgres) Record(ctx context.Context, e Entry) error {
	if _, err := uuid.Parse(e.ID); err != nil {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = p.now().UTC()
	}
	if _, err := p.db.NamedExecContext(ctx, insertEntry, e); err != nil {
		logger.Warn(ctx, logger.CompJournal, "journal.record",
			slog.String("status", "fail"),
			slog.String("kind", e.Kind),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("journal: record: %w", err)
	}
	logger.Debug(ctx, logger.CompJournal, "journal.record",
		slog.String("status", "ok"),
		slog.String("kind", e.Kind),
		slog.String("file", e.FileName),
	)
	return nil
}

// MarkEmailed flags the entry with id as mailed.
func (p *Postgres) MarkEmailed(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE documents SET emailed = TRUE, emailed_at = $2 WHERE id = $1`,
		id, p.now().UTC())
	if err != nil {
		logger.Warn(ctx, logger.CompJournal, "journal.emailed",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("journal: mark emailed: %w", err)
	}
	return nil
}

// Recent returns the latest entries for chatID, newest first.
func (p *Postgres) Recent(ctx context.Context, chatID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecent
	}
	var out []Entry
	err := p.db.SelectContext(ctx, &out,
		`SELECT id, kind, chat_id, user_id, file_name, emailed, created_at
		 FROM documents WHERE chat_id = $1 ORDER BY created_at DESC LIMIT $2`,
		chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	return out, nil
}
