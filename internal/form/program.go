package form

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"os"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/core/telegram/state"
	"github.com/m3rciful/pdfbot/internal/chat"
	"github.com/m3rciful/pdfbot/internal/journal"
	"github.com/m3rciful/pdfbot/internal/pipeline"
	"github.com/m3rciful/pdfbot/internal/validate"
)

// Program flow states.
const (
	StateUserName state.State = "user_pdf.user_name"
	StatePDFFile  state.State = "user_pdf.pdf_file"
)

// Program flow texts.
const (
	MsgProgramCancelled = "❌ Создание PDF отменено."
	MsgNotPDF           = "❌ Пожалуйста, загрузите PDF файл:"
	MsgNoDefault        = "❌ Существующий PDF файл не найден."
	MsgTitleFailed      = "❌ Ошибка при создании титульной страницы."
	MsgMergeFailed      = "❌ Ошибка при объединении PDF файлов."
	MsgProgramFailed    = "❌ Произошла ошибка при создании PDF. Попробуйте еще раз."
	MsgDownloadFailed   = "❌ Не удалось загрузить PDF файл. Попробуйте еще раз."
	MsgProgramDone      = "✅ PDF успешно создан."

	promptUserName = "📝 Создание персонального PDF\n\nВведите имя пользователя, которое будет вставлено в PDF:"
	promptPDFFile  = "Пожалуйста, загрузите PDF файл или выберите существующий:"
	uploadName     = "upload.pdf"
)

var programPrompts = map[state.State]func(*state.Session) Prompt{
	StateUserName: staticPrompt(promptUserName, cancelKeyboard),
	StatePDFFile:  staticPrompt(promptPDFFile, fileChoiceKeyboard),
}

// ProgramFlow asks for a customer name and a content PDF, then delivers the
// content with a generated title page in front.
func ProgramFlow(d Deps) Flow {
	tr := d.Transport
	return Flow{
		Name:      FlowProgram,
		Start:     StateUserName,
		Cancelled: MsgProgramCancelled,
		Prompts:   programPrompts,
		Table: Table{
			{chat.KindText, StateUserName}: func(ctx context.Context, t *Turn) (state.State, error) {
				name, err := validate.NonEmpty(FieldUserName, t.Input)
				if err != nil {
					return t.Session.State, errUnmatched
				}
				t.Session.Set(FieldUserName, name)
				text := "✅ Имя сохранено: " + html.EscapeString(name) + "\n\n📁 Теперь загрузите PDF файл или используйте существующий:"
				if err := tr.Text(ctx, t.Session.ChatID, text, fileChoiceKeyboard()); err != nil {
					return t.Session.State, err
				}
				return StatePDFFile, nil
			},
			{chat.KindCallback, StatePDFFile}: func(ctx context.Context, t *Turn) (state.State, error) {
				if t.Input != CallbackExisting {
					return t.Session.State, errUnmatched
				}
				if st, err := os.Stat(d.DefaultDocument); d.DefaultDocument == "" || err != nil || st.IsDir() {
					logger.Warn(ctx, logger.CompForm, "program.default_missing", slog.String("path", d.DefaultDocument))
					return state.StateIdle, tr.Text(ctx, t.Session.ChatID, MsgNoDefault, nil)
				}
				return buildProgram(ctx, d, t, nil, d.DefaultDocument)
			},
			{chat.KindDocument, StatePDFFile}: func(ctx context.Context, t *Turn) (state.State, error) {
				doc := t.Event.Document
				if doc == nil {
					return t.Session.State, errUnmatched
				}
				if err := validate.PDFName(doc.FileName); err != nil {
					return invalid(ctx, tr, t, err, MsgNotPDF, fileChoiceKeyboard())
				}
				ws, err := d.Documents.NewWorkspace(ctx, pipeline.KindProgram)
				if err != nil {
					logger.Error(ctx, logger.CompForm, "program.workspace", logger.ErrAttrs(err)...)
					return state.StateIdle, tr.Text(ctx, t.Session.ChatID, MsgProgramFailed, nil)
				}
				t.Session.AddScratch(ws.Dir)
				content := ws.Path(uploadName)
				if err := tr.Download(ctx, doc.FileID, content); err != nil {
					logger.Error(ctx, logger.CompForm, "program.download", logger.ErrAttrs(err)...)
					return state.StateIdle, tr.Text(ctx, t.Session.ChatID, MsgDownloadFailed, nil)
				}
				return buildProgram(ctx, d, t, ws, content)
			},
		},
	}
}

func buildProgram(ctx context.Context, d Deps, t *Turn, ws *pipeline.Workspace, content string) (state.State, error) {
	tr := d.Transport
	s := t.Session
	_ = tr.Notify(ctx, s.ChatID, chat.ActionTyping)

	if ws == nil {
		var err error
		ws, err = d.Documents.NewWorkspace(ctx, pipeline.KindProgram)
		if err != nil {
			logger.Error(ctx, logger.CompForm, "program.workspace", logger.ErrAttrs(err)...)
			return state.StateIdle, tr.Text(ctx, s.ChatID, MsgProgramFailed, nil)
		}
		s.AddScratch(ws.Dir)
	}

	doc, err := d.Documents.Program(ctx, ws, s.Get(FieldUserName), content)
	var (
		renderErr *pipeline.RenderError
		mergeErr  *pipeline.MergeError
	)
	switch {
	case errors.As(err, &renderErr):
		return state.StateIdle, tr.Text(ctx, s.ChatID, MsgTitleFailed, nil)
	case errors.As(err, &mergeErr):
		return state.StateIdle, tr.Text(ctx, s.ChatID, MsgMergeFailed, nil)
	case err != nil:
		return state.StateIdle, tr.Text(ctx, s.ChatID, MsgProgramFailed, nil)
	}

	_ = tr.Notify(ctx, s.ChatID, chat.ActionUploadDocument)
	if err := tr.Document(ctx, s.ChatID, doc.Path, doc.FileName); err != nil {
		logger.Error(ctx, logger.CompForm, "program.deliver", logger.ErrAttrs(err)...)
		return state.StateIdle, tr.Text(ctx, s.ChatID, MsgProgramFailed, nil)
	}
	_ = d.journal().Record(ctx, journal.Entry{
		ID:       doc.SubmissionID,
		Kind:     string(doc.Kind),
		ChatID:   s.ChatID,
		UserID:   t.Event.UserID,
		FileName: doc.FileName,
	})
	return state.StateIdle, tr.Text(ctx, s.ChatID, MsgProgramDone, nil)
}
