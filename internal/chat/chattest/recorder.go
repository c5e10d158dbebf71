// Package chattest provides an in-memory chat.Transport for tests.
package chattest

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/m3rciful/pdfbot/internal/chat"
)

// Sent is one recorded outbound call.
type Sent struct {
	Op        string
	ChatID    int64
	Text      string
	Keyboard  chat.Keyboard
	Path      string
	FileName  string
	MessageID int
	// Existed reports whether Path existed on disk when the call was made.
	Existed bool
}

// Recorder implements chat.Transport and records every call.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent

	// FailText makes Text return an error when set.
	FailText error
	// FailDocument makes Document return an error when set.
	FailDocument error
	// Files maps file IDs to content written by Download.
	Files map[string][]byte
}

var _ chat.Transport = (*Recorder)(nil)

// New returns an empty recorder.
func New() *Recorder {
	return &Recorder{Files: map[string][]byte{}}
}

func (r *Recorder) add(s Sent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, s)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (r *Recorder) Text(_ context.Context, chatID int64, text string, kb chat.Keyboard) error {
	r.add(Sent{Op: "text", ChatID: chatID, Text: text, Keyboard: kb})
	return r.FailText
}

func (r *Recorder) Document(_ context.Context, chatID int64, path, fileName string) error {
	r.add(Sent{Op: "document", ChatID: chatID, Path: path, FileName: fileName, Existed: exists(path)})
	return r.FailDocument
}

func (r *Recorder) Photo(_ context.Context, chatID int64, path string) error {
	r.add(Sent{Op: "photo", ChatID: chatID, Path: path, Existed: exists(path)})
	return nil
}

func (r *Recorder) Reply(_ context.Context, chatID int64, messageID int, text string) error {
	r.add(Sent{Op: "reply", ChatID: chatID, MessageID: messageID, Text: text})
	return nil
}

func (r *Recorder) Notify(_ context.Context, chatID int64, action chat.Action) error {
	r.add(Sent{Op: "notify", ChatID: chatID, Text: string(action)})
	return nil
}

func (r *Recorder) Download(_ context.Context, fileID, dst string) error {
	r.mu.Lock()
	data, ok := r.Files[fileID]
	r.mu.Unlock()
	if !ok {
		return errors.New("chattest: unknown file id " + fileID)
	}
	return os.WriteFile(dst, data, 0o644)
}

// All returns a copy of every recorded call.
func (r *Recorder) All() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Texts returns the bodies of text messages in order.
func (r *Recorder) Texts() []string {
	var out []string
	for _, s := range r.All() {
		if s.Op == "text" {
			out = append(out, s.Text)
		}
	}
	return out
}

// Last returns the most recent call, or a zero Sent.
func (r *Recorder) Last() Sent {
	all := r.All()
	if len(all) == 0 {
		return Sent{}
	}
	return all[len(all)-1]
}

// LastText returns the most recent text message body.
func (r *Recorder) LastText() string {
	texts := r.Texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

// Of returns recorded calls with the given op.
func (r *Recorder) Of(op string) []Sent {
	var out []Sent
	for _, s := range r.All() {
		if s.Op == op {
			out = append(out, s)
		}
	}
	return out
}

// Reset drops recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
