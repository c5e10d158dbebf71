package mailer

import (
	"context"
	"errors"
	"io"
	"net"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	coreconfig "github.com/m3rciful/pdfbot/core/config"
	"github.com/m3rciful/pdfbot/internal/pipeline"
)

type fakeConn struct {
	from    string
	to      []string
	body    strings.Builder
	sendErr error
	closed  bool
}

func (c *fakeConn) Send(from string, to []string, msg io.WriterTo) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.from, c.to = from, to
	_, err := msg.WriteTo(&c.body)
	return err
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeDialer struct {
	conn *fakeConn
	err  error
	wait time.Duration
}

func (d *fakeDialer) Dial() (gomail.SendCloser, error) {
	time.Sleep(d.wait)
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func newTestMailer(d dialer) *Mailer {
	m := New(coreconfig.MailConfig{
		Host:           "smtp.example.com",
		Port:           465,
		Username:       "bot@example.com",
		Password:       "secret",
		From:           "bot@example.com",
		TimeoutSeconds: 5,
	})
	m.dialer = d
	return m
}

func attachment(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoice.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	return path
}

func TestSendBuildsMessage(t *testing.T) {
	conn := &fakeConn{}
	m := newTestMailer(&fakeDialer{conn: conn})
	err := m.Send(context.Background(), pipeline.Mail{
		To:             "client@example.com",
		Subject:        "Документ: invoice_000001.pdf",
		Body:           pipeline.MailBody,
		AttachmentPath: attachment(t),
		AttachmentName: "invoice_000001.pdf",
	})
	require.NoError(t, err)
	assert.True(t, conn.closed)
	assert.Equal(t, "bot@example.com", conn.from)
	assert.Equal(t, []string{"client@example.com"}, conn.to)
	assert.Contains(t, conn.body.String(), `filename="invoice_000001.pdf"`)
}

func TestSendRequiresCredentials(t *testing.T) {
	m := New(coreconfig.MailConfig{Host: "smtp.example.com", Port: 465})
	err := m.Send(context.Background(), pipeline.Mail{To: "a@b.c", AttachmentPath: attachment(t)})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSendClassifiesFailures(t *testing.T) {
	cases := []struct {
		name  string
		d     *fakeDialer
		stage string
	}{
		{"auth", &fakeDialer{err: &textproto.Error{Code: 535, Msg: "bad credentials"}}, StageAuth},
		{"connect", &fakeDialer{err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}}, StageConnect},
		{"recipient", &fakeDialer{conn: &fakeConn{sendErr: &textproto.Error{Code: 550, Msg: "no such user"}}}, StageRecipient},
		{"send", &fakeDialer{conn: &fakeConn{sendErr: errors.New("eof")}}, StageSend},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := newTestMailer(tc.d).Send(context.Background(), pipeline.Mail{To: "a@b.c", AttachmentPath: attachment(t), AttachmentName: "x.pdf"})
			require.Error(t, err)
			assert.Equal(t, tc.stage, (&pipeline.MailError{Err: err}).Stage())
		})
	}
}

func TestSendHonoursContext(t *testing.T) {
	m := newTestMailer(&fakeDialer{conn: &fakeConn{}, wait: 200 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := m.Send(ctx, pipeline.Mail{To: "a@b.c", AttachmentPath: attachment(t), AttachmentName: "x.pdf"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
