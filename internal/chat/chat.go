// Package chat holds the transport-neutral view of inbound updates and
// outbound messages used by the form machine and the router.
package chat

import (
	"context"
	"strings"
)

// Kind classifies an inbound event.
type Kind string

const (
	KindText     Kind = "text"
	KindCallback Kind = "callback"
	KindDocument Kind = "document"
	// KindOther covers photos, videos and anything else a form cannot consume.
	KindOther Kind = "other"
)

// Document describes an uploaded file that has not been downloaded yet.
type Document struct {
	FileID   string
	FileName string
	MIME     string
	Size     int64
}

// Event is one inbound update from an operator or a linked channel.
type Event struct {
	ChatID    int64
	UserID    int64
	MessageID int
	Kind      Kind
	// Text carries the message text, the document caption or the callback data.
	Text     string
	Document *Document
	Private  bool

	// AutoForwardFrom is the channel ID of an automatic forward in a linked
	// discussion chat, zero otherwise.
	AutoForwardFrom int64
}

// Command splits "/name@bot args" into its lowercase name and argument tail.
// ok is false for anything that is not a text command.
func (e Event) Command() (name, args string, ok bool) {
	text := strings.TrimSpace(e.Text)
	if e.Kind != KindText || !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, tail, _ := strings.Cut(text, " ")
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	if len(head) < 2 {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(tail), true
}

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Keyboard is a grid of inline buttons, one slice per row.
type Keyboard [][]Button

// Row is a helper for building keyboards.
func Row(buttons ...Button) []Button {
	return buttons
}

// Action is a chat action indicator such as "uploading document".
type Action string

const (
	ActionUploadDocument Action = "upload_document"
	ActionUploadPhoto    Action = "upload_photo"
	ActionTyping         Action = "typing"
)

// Transport sends messages and files back to a chat. Texts are HTML.
type Transport interface {
	Text(ctx context.Context, chatID int64, text string, kb Keyboard) error
	Document(ctx context.Context, chatID int64, path, fileName string) error
	Photo(ctx context.Context, chatID int64, path string) error
	Reply(ctx context.Context, chatID int64, messageID int, text string) error
	Notify(ctx context.Context, chatID int64, action Action) error
	Download(ctx context.Context, fileID, dst string) error
}
