package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/pdfbot/core/config"
	coretelegram "github.com/m3rciful/pdfbot/core/telegram"
)

func TestResolveConfigPath(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(existing, []byte("{}"), 0o644))

	t.Setenv("PDFBOT_TEST_CONFIG", "")
	assert.Equal(t, "flag.yaml", ResolveConfigPath("flag.yaml", "PDFBOT_TEST_CONFIG", existing))
	assert.Equal(t, existing, ResolveConfigPath("", "PDFBOT_TEST_CONFIG", existing))
	assert.Equal(t, "", ResolveConfigPath("", "PDFBOT_TEST_CONFIG", filepath.Join(dir, "missing.yaml")))

	t.Setenv("PDFBOT_TEST_CONFIG", "env.yaml")
	assert.Equal(t, "env.yaml", ResolveConfigPath("", "PDFBOT_TEST_CONFIG", existing))
}

type fakeApp struct {
	closed bool
}

func (a *fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{}, nil
}

func (a *fakeApp) Close() error {
	a.closed = true
	return nil
}

func TestRunWiresHooks(t *testing.T) {
	app := &fakeApp{}
	var started, stopped bool
	err := Run(Options{
		ConfigPath:     "ignored.yaml",
		LoadConfig:     func(string) (*coreconfig.Config, error) { return &coreconfig.Config{}, nil },
		Bootstrap:      func(context.Context, *coreconfig.Config) (TelegramApp, error) { return app, nil },
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			require.NotNil(t, opts.OnStart)
			require.NotNil(t, opts.OnStop)
			started = opts.OnStart(ctx, coretelegram.Runtime{}) == nil
			stopped = opts.OnStop(ctx, coretelegram.Runtime{}) == nil
			return nil
		},
	})
	require.NoError(t, err)
	assert.True(t, started)
	assert.True(t, stopped)
	assert.True(t, app.closed)
}

func TestRunPropagatesErrors(t *testing.T) {
	assert.Error(t, Run(Options{}))

	err := Run(Options{
		LoadConfig: func(string) (*coreconfig.Config, error) { return nil, errors.New("bad yaml") },
		Bootstrap:  func(context.Context, *coreconfig.Config) (TelegramApp, error) { return nil, nil },
	})
	assert.ErrorContains(t, err, "bad yaml")

	err = Run(Options{
		LoadConfig: func(string) (*coreconfig.Config, error) { return &coreconfig.Config{}, nil },
		Bootstrap: func(context.Context, *coreconfig.Config) (TelegramApp, error) {
			return nil, errors.New("db down")
		},
	})
	assert.ErrorContains(t, err, "db down")
}
