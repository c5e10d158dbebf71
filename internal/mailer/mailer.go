// Package mailer sends rendered documents over SMTP with gomail.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/textproto"
	"os"
	"time"

	"gopkg.in/gomail.v2"

	coreconfig "github.com/m3rciful/pdfbot/core/config"
	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/internal/pipeline"
)

// ErrNotConfigured is returned when SMTP credentials are missing.
var ErrNotConfigured = errors.New("mailer: GMAIL_USER and GMAIL_APP_PASSWORD are required")

// Failure stages reported in logs.
const (
	StageConnect   = "connect"
	StageAuth      = "auth"
	StageRecipient = "recipient"
	StageSend      = "send"
)

type dialer interface {
	Dial() (gomail.SendCloser, error)
}

// Mailer implements pipeline.Mailer.
type Mailer struct {
	dialer  dialer
	from    string
	ready   bool
	timeout time.Duration
	host    string
	port    int
}

var _ pipeline.Mailer = (*Mailer)(nil)

// New builds a mailer from the mail config section. Port 465 uses implicit TLS.
func New(cfg coreconfig.MailConfig) *Mailer {
	return &Mailer{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		ready:   cfg.Username != "" && cfg.Password != "",
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		host:    cfg.Host,
		port:    cfg.Port,
	}
}

// Send delivers m. Connection, authentication and recipient failures are
// logged distinctly and returned as a single error.
func (s *Mailer) Send(ctx context.Context, m pipeline.Mail) error {
	if !s.ready {
		logger.Error(ctx, logger.CompMail, "mail.config", slog.String("err", ErrNotConfigured.Error()))
		return ErrNotConfigured
	}
	if _, err := os.Stat(m.AttachmentPath); err != nil {
		return fmt.Errorf("mailer: attachment: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Body)
	msg.Attach(m.AttachmentPath, gomail.Rename(m.AttachmentName))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- s.deliver(msg) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = &stageError{stage: StageConnect, err: ctx.Err()}
	}
	if err != nil {
		stage := StageSend
		var se *stageError
		if errors.As(err, &se) {
			stage = se.stage
		}
		logger.Error(ctx, logger.CompMail, "mail."+stage+"_failed",
			slog.String("status", "fail"),
			slog.String("host", s.host),
			slog.Int("port", s.port),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.Took(start)),
		)
		return err
	}
	logger.Info(ctx, logger.CompMail, "mail.sent",
		slog.String("status", "ok"),
		slog.String("file", m.AttachmentName),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func (s *Mailer) deliver(msg *gomail.Message) error {
	conn, err := s.dialer.Dial()
	if err != nil {
		return &stageError{stage: classifyDial(err), err: err}
	}
	defer conn.Close()
	if err := gomail.Send(conn, msg); err != nil {
		return &stageError{stage: classifySend(err), err: err}
	}
	return nil
}

type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return fmt.Sprintf("mailer: %s: %v", e.stage, e.err) }

func (e *stageError) Unwrap() error { return e.err }

// Stage reports where delivery failed.
func (e *stageError) Stage() string { return e.stage }

func classifyDial(err error) string {
	var tp *textproto.Error
	if errors.As(err, &tp) && (tp.Code == 535 || tp.Code == 534 || tp.Code == 530) {
		return StageAuth
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return StageConnect
	}
	if tp != nil {
		return StageAuth
	}
	return StageConnect
}

func classifySend(err error) string {
	var tp *textproto.Error
	if errors.As(err, &tp) && tp.Code >= 550 && tp.Code <= 553 {
		return StageRecipient
	}
	return StageSend
}
