package trade

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/pdfbot/internal/chat"
	"github.com/m3rciful/pdfbot/internal/chat/chattest"
	"github.com/m3rciful/pdfbot/internal/pipeline"
	"github.com/m3rciful/pdfbot/internal/render"
)

var fixedNow = time.Date(2025, 10, 1, 15, 26, 49, 0, time.UTC)

func tradeDir(t *testing.T, icons ...string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "icons"), 0o755))
	for _, name := range append(icons, "default.png") {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "icons", name), []byte("png"), 0o644))
	}
	for _, tpl := range []string{LongTemplate, ShortTemplate, ForexTemplate} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, tpl), []byte(`<div>{pair} {profit_amount} {icon} {profit_class}</div>`), 0o644))
	}
	return dir
}

func TestParseOKX(t *testing.T) {
	dir := tradeDir(t, "SOLUSDT.svg")
	card, err := ParseOKX("solusdt Шорт 50,00x +25,31 +2531,3 165,90 165,06 01.10.2025 15:26:49", dir, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, ShortTemplate, card.Template)
	assert.Equal(t, "SOLUSDT_шорт.png", card.FileName)
	assert.Equal(t, "SOLUSDT", card.Values["pair"])
	assert.Equal(t, "+2 531,3", card.Values["profit_amount"])
	assert.Equal(t, "50,00x", card.Values["leverage"])
	assert.Equal(t, "icons/SOLUSDT.svg", card.Values["icon"])
	assert.Equal(t, "01.10.2025", card.Values["share_date"])
}

func TestParseOKXPipesAndDefaults(t *testing.T) {
	dir := tradeDir(t)
	card, err := ParseOKX("BTCUSDT|Лонг|100|-5,53|-3,48|114962.0|114956.0", dir, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, LongTemplate, card.Template)
	assert.Equal(t, "114,962.0", card.Values["entry_price"])
	assert.Equal(t, "icons/default.png", card.Values["icon"])
	assert.Equal(t, "01.10.2025", card.Values["share_date"])
	assert.Equal(t, "15:26:49", card.Values["share_time"])
}

func TestParseOKXTooShort(t *testing.T) {
	_, err := ParseOKX("BTCUSDT Лонг 100", "", fixedNow)
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, OKXUsage, usage.Text)
}

func TestParseForex(t *testing.T) {
	card, err := ParseForex(`pair=eurusd side=Buy desc="Euro vs US Dollar" open=1.16540 close=1.16252 profit=-6108.01 open_dt="2026.01.26 10:12:45"`)
	require.NoError(t, err)
	assert.Equal(t, ForexTemplate, card.Template)
	assert.Equal(t, "EURUSD", card.Values["pair"])
	assert.Equal(t, "buy", card.Values["side"])
	assert.Equal(t, "Euro vs US Dollar", card.Values["desc"])
	assert.Equal(t, "2026.01.26 10:12:45", card.Values["open_dt"])
	assert.Equal(t, "-6,108.01", card.Values["profit"])
	assert.Equal(t, "negative", card.Values["profit_class"])
	assert.Equal(t, "", card.Values["tp"])
	assert.Equal(t, "EURUSD_buy.png", card.FileName)
}

func TestParseForexMissing(t *testing.T) {
	_, err := ParseForex(`pair=EURUSD open=1`)
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Contains(t, usage.Text, "side, close, profit")

	_, err = ParseForex(`pair="EURUSD`)
	require.ErrorAs(t, err, &usage)
}

func TestSplitQuoted(t *testing.T) {
	got, err := splitQuoted(`a=1  b="x y"   c=""`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a=1", "b=x y", "c="}, got)
}

type pngEngine struct{ fail bool }

func (e pngEngine) RenderPDF(context.Context, string, string, pipeline.PDFOptions) error {
	return errors.New("unused")
}

func (e pngEngine) RenderImage(_ context.Context, _, out string, _ pipeline.ImageOptions) error {
	if e.fail {
		return errors.New("chrome crashed")
	}
	return os.WriteFile(out, []byte("png"), 0o644)
}

func newService(t *testing.T, fail bool) (*Service, *chattest.Recorder, string) {
	t.Helper()
	dir := tradeDir(t)
	scratch := t.TempDir()
	p := pipeline.New(pipeline.Options{
		ScratchDir: scratch,
		Templates:  map[pipeline.Kind]string{pipeline.KindTrade: dir},
	}, pngEngine{fail: fail}, nil, nil, render.New(func() time.Time { return fixedNow }))
	rec := chattest.New()
	return NewService(p, rec, dir, func() time.Time { return fixedNow }), rec, scratch
}

func TestServiceSendsPhotoAndCleansUp(t *testing.T) {
	svc, rec, scratch := newService(t, false)
	ev := chat.Event{ChatID: 5, Kind: chat.KindText}
	require.NoError(t, svc.OKX(context.Background(), ev, "SOLUSDT Шорт 50x +25 +2531 165 166"))

	photos := rec.Of("photo")
	require.Len(t, photos, 1)
	assert.True(t, photos[0].Existed)

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestServiceRenderFailure(t *testing.T) {
	svc, rec, scratch := newService(t, true)
	ev := chat.Event{ChatID: 5, Kind: chat.KindText}
	require.NoError(t, svc.Forex(context.Background(), ev, "pair=EURUSD side=sell open=1 close=2 profit=3"))
	assert.Equal(t, msgRenderError, rec.LastText())
	assert.Empty(t, rec.Of("photo"))

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestServiceUsage(t *testing.T) {
	svc, rec, _ := newService(t, false)
	require.NoError(t, svc.OKX(context.Background(), chat.Event{ChatID: 5}, ""))
	assert.Equal(t, OKXUsage, rec.LastText())
}
