package pipeline

import (
	"errors"
	"fmt"
)

// ErrDocumentMissing is returned by SendMail when the rendered file is gone.
var ErrDocumentMissing = errors.New("pipeline: document file not found")

// RenderError wraps a headless render failure. It is never retried.
type RenderError struct {
	Kind Kind
	Err  error
}

func (e *RenderError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("pipeline: render %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("pipeline: render: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Code implements the err_code contract used in handler logs.
func (e *RenderError) Code() string { return "RENDER_FAILED" }

// MergeError wraps a PDF merge failure.
type MergeError struct {
	Err error
}

func (e *MergeError) Error() string { return fmt.Sprintf("pipeline: merge: %v", e.Err) }

func (e *MergeError) Unwrap() error { return e.Err }

// Code implements the err_code contract used in handler logs.
func (e *MergeError) Code() string { return "MERGE_FAILED" }

// MailError wraps a mail transport failure.
type MailError struct {
	Err error
}

func (e *MailError) Error() string { return fmt.Sprintf("pipeline: mail: %v", e.Err) }

func (e *MailError) Unwrap() error { return e.Err }

// Code implements the err_code contract used in handler logs.
func (e *MailError) Code() string { return "MAIL_FAILED" }

// Stage reports where SMTP delivery failed (auth, connect, recipient, send)
// when the mailer says so, or "".
func (e *MailError) Stage() string {
	var staged interface{ Stage() string }
	if errors.As(e.Err, &staged) {
		return staged.Stage()
	}
	return ""
}
