package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/pdfbot/internal/render"
)

type fakeEngine struct {
	mu      sync.Mutex
	pdfs    []PDFOptions
	failPDF error
	failImg error
}

func (e *fakeEngine) RenderPDF(_ context.Context, htmlPath, outPath string, opts PDFOptions) error {
	e.mu.Lock()
	e.pdfs = append(e.pdfs, opts)
	e.mu.Unlock()
	if e.failPDF != nil {
		return e.failPDF
	}
	data, err := os.ReadFile(htmlPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, append([]byte("PDF:"), data...), 0o644)
}

func (e *fakeEngine) RenderImage(_ context.Context, htmlPath, outPath string, _ ImageOptions) error {
	if e.failImg != nil {
		return e.failImg
	}
	data, err := os.ReadFile(htmlPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, append([]byte("PNG:"), data...), 0o644)
}

type fakeMerger struct{ fail error }

func (m fakeMerger) Merge(_ context.Context, title, content, out string) error {
	if m.fail != nil {
		return m.fail
	}
	a, err := os.ReadFile(title)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(content)
	if err != nil {
		return err
	}
	return os.WriteFile(out, append(a, b...), 0o644)
}

type stagedErr struct{ stage string }

func (e stagedErr) Error() string { return "smtp " + e.stage }
func (e stagedErr) Stage() string { return e.stage }

type fakeMailer struct {
	sent []Mail
	fail error
}

func (m *fakeMailer) Send(_ context.Context, mail Mail) error {
	m.sent = append(m.sent, mail)
	return m.fail
}

func writeTemplates(t *testing.T) map[Kind]string {
	t.Helper()
	root := t.TempDir()
	inv := filepath.Join(root, "invoice")
	title := filepath.Join(root, "title")
	trade := filepath.Join(root, "trade")
	for _, dir := range []string{inv, filepath.Join(inv, "img"), title, trade} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(inv, InvoiceTemplate), []byte("<p>{{number}} {{customer_name}} {{price}}</p>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inv, InvoiceStyles), []byte("body{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inv, "img", "logo.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(title, TitleTemplate), []byte("{{course_title}}/{{customer_name}}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(trade, "long.html"), []byte("{pair}:{profit_amount}"), 0o644))
	return map[Kind]string{KindInvoice: inv, KindProgram: title, KindTrade: trade}
}

func newTestPipeline(t *testing.T, engine Engine, merger Merger, mailer Mailer) (*Pipeline, string) {
	t.Helper()
	scratch := filepath.Join(t.TempDir(), "temp")
	clock := func() time.Time { return time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC) }
	p := New(Options{
		ScratchDir: scratch,
		Templates:  writeTemplates(t),
		PDF:        PDFOptions{Scale: 1.3348},
	}, engine, merger, mailer, render.New(clock))
	return p, scratch
}

func TestWorkspaceCopiesTemplates(t *testing.T) {
	p, scratch := newTestPipeline(t, &fakeEngine{}, fakeMerger{}, &fakeMailer{})
	ws, err := p.NewWorkspace(context.Background(), KindInvoice)
	require.NoError(t, err)

	assert.Equal(t, scratch, filepath.Dir(ws.Dir))
	assert.True(t, strings.HasPrefix(filepath.Base(ws.Dir), "invoice_"+ws.ID))
	assert.FileExists(t, ws.Path("img/logo.png"))
	assert.FileExists(t, ws.Path(InvoiceTemplate))

	Cleanup(context.Background(), ws.Dir)
	assert.NoDirExists(t, ws.Dir)
}

func TestParallelWorkspacesAreDistinct(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeEngine{}, fakeMerger{}, &fakeMailer{})
	const n = 32
	dirs := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ws, err := p.NewWorkspace(context.Background(), KindInvoice)
			if assert.NoError(t, err) {
				dirs[i] = ws.Dir
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, d := range dirs {
		require.NotEmpty(t, d)
		assert.False(t, seen[d], "duplicate workspace %s", d)
		seen[d] = true
	}
}

func TestInvoiceRendersPDF(t *testing.T) {
	engine := &fakeEngine{}
	p, _ := newTestPipeline(t, engine, fakeMerger{}, &fakeMailer{})
	ctx := context.Background()
	ws, err := p.NewWorkspace(ctx, KindInvoice)
	require.NoError(t, err)
	defer Cleanup(ctx, ws.Dir)

	doc, err := p.Invoice(ctx, ws, render.Invoice{CustomerName: "A&B", OrderNumber: "7", Cost: "1500"})
	require.NoError(t, err)
	assert.Equal(t, "invoice_000007.pdf", doc.FileName)
	assert.Equal(t, ws.ID, doc.SubmissionID)

	data, err := os.ReadFile(doc.Path)
	require.NoError(t, err)
	assert.Equal(t, "PDF:<p>#000007 A&amp;B 1 500 ₽</p>", string(data))

	require.Len(t, engine.pdfs, 1)
	assert.False(t, engine.pdfs[0].Landscape)
	assert.Equal(t, ws.Path(InvoiceStyles), engine.pdfs[0].CSSPath)
}

func TestInvoiceRenderFailure(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeEngine{failPDF: errors.New("chrome crashed")}, fakeMerger{}, &fakeMailer{})
	ctx := context.Background()
	ws, err := p.NewWorkspace(ctx, KindInvoice)
	require.NoError(t, err)
	defer Cleanup(ctx, ws.Dir)

	_, err = p.Invoice(ctx, ws, render.Invoice{OrderNumber: "1"})
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindInvoice, rerr.Kind)
	assert.Equal(t, "RENDER_FAILED", rerr.Code())
}

func TestProgramMergesTitleFirst(t *testing.T) {
	engine := &fakeEngine{}
	p, _ := newTestPipeline(t, engine, fakeMerger{}, &fakeMailer{})
	ctx := context.Background()
	ws, err := p.NewWorkspace(ctx, KindProgram)
	require.NoError(t, err)
	defer Cleanup(ctx, ws.Dir)

	content := ws.Path("upload.pdf")
	require.NoError(t, os.WriteFile(content, []byte("|CONTENT"), 0o644))

	doc, err := p.Program(ctx, ws, "Иван", content)
	require.NoError(t, err)
	assert.Equal(t, "Персональная_программа_Иван.pdf", doc.FileName)

	data, err := os.ReadFile(doc.Path)
	require.NoError(t, err)
	assert.Equal(t, "PDF:"+render.CourseTitle+"/Иван|CONTENT", string(data))
	require.Len(t, engine.pdfs, 1)
	assert.True(t, engine.pdfs[0].Landscape)
}

func TestProgramMergeFailure(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeEngine{}, fakeMerger{fail: errors.New("broken xref")}, &fakeMailer{})
	ctx := context.Background()
	ws, err := p.NewWorkspace(ctx, KindProgram)
	require.NoError(t, err)
	defer Cleanup(ctx, ws.Dir)

	_, err = p.Program(ctx, ws, "x", ws.Path("missing.pdf"))
	var merr *MergeError
	require.ErrorAs(t, err, &merr)
	var rerr *RenderError
	assert.False(t, errors.As(err, &rerr))
}

func TestCardRendersImage(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeEngine{}, fakeMerger{}, &fakeMailer{})
	ctx := context.Background()
	ws, err := p.NewWorkspace(ctx, KindTrade)
	require.NoError(t, err)
	defer Cleanup(ctx, ws.Dir)

	doc, err := p.Card(ctx, ws, "long.html", map[string]string{"pair": "SOLUSDT", "profit_amount": "+2 531,3"}, "SOLUSDT_лонг.png")
	require.NoError(t, err)
	data, err := os.ReadFile(doc.Path)
	require.NoError(t, err)
	assert.Equal(t, "PNG:SOLUSDT:+2 531,3", string(data))
	assert.Equal(t, "SOLUSDT_лонг.png", doc.FileName)
}

func TestSendMail(t *testing.T) {
	mailer := &fakeMailer{}
	p, _ := newTestPipeline(t, &fakeEngine{}, fakeMerger{}, mailer)
	ctx := context.Background()
	ws, err := p.NewWorkspace(ctx, KindInvoice)
	require.NoError(t, err)
	defer Cleanup(ctx, ws.Dir)

	doc, err := p.Invoice(ctx, ws, render.Invoice{OrderNumber: "12"})
	require.NoError(t, err)

	require.NoError(t, p.SendMail(ctx, doc, "to@example.com"))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, Mail{
		To:             "to@example.com",
		Subject:        "Документ: invoice_000012.pdf",
		Body:           MailBody,
		AttachmentPath: doc.Path,
		AttachmentName: "invoice_000012.pdf",
	}, mailer.sent[0])

	mailer.fail = errors.New("535 auth")
	err = p.SendMail(ctx, doc, "to@example.com")
	var merr *MailError
	require.ErrorAs(t, err, &merr)
	assert.Empty(t, merr.Stage())

	mailer.fail = stagedErr{stage: "auth"}
	err = p.SendMail(ctx, doc, "to@example.com")
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "auth", merr.Stage())

	Cleanup(ctx, ws.Dir)
	assert.ErrorIs(t, p.SendMail(ctx, doc, "to@example.com"), ErrDocumentMissing)
}

func TestCleanupIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	Cleanup(context.Background(), file, "", filepath.Join(dir, "never-existed"))
	assert.NoFileExists(t, file)
	Cleanup(context.Background(), file)
}
