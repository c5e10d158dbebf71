package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/pdfbot/core/config"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunSkipsDisabledDatabase(t *testing.T) {
	connected := false
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Connect: func(context.Context, coreconfig.DatabaseConfig) (*sqlx.DB, error) {
			connected = true
			return nil, nil
		},
	})
	require.NoError(t, err)
	assert.Nil(t, res.DB)
	assert.False(t, connected)
	assert.NoError(t, res.Close())
}

func openLazy(t *testing.T) *sqlx.DB {
	t.Helper()
	raw, err := sql.Open("postgres", "host=127.0.0.1 port=1 dbname=none sslmode=disable")
	require.NoError(t, err)
	return sqlx.NewDb(raw, "postgres")
}

func TestRunConnectsAndMigrates(t *testing.T) {
	cfg := &coreconfig.Config{Database: coreconfig.DatabaseConfig{Enabled: true, Host: "db", Name: "pdfbot"}}
	var migrated bool
	res, err := Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Connect: func(_ context.Context, c coreconfig.DatabaseConfig) (*sqlx.DB, error) {
			assert.Equal(t, "pdfbot", c.Name)
			return openLazy(t), nil
		},
		Migrate: func(context.Context, coreconfig.DatabaseConfig) error {
			migrated = true
			return nil
		},
	})
	require.NoError(t, err)
	require.NotNil(t, res.DB)
	assert.True(t, migrated)
	assert.NoError(t, res.Close())
}

func TestRunFailures(t *testing.T) {
	cfg := &coreconfig.Config{Database: coreconfig.DatabaseConfig{Enabled: true, Host: "db", Name: "pdfbot"}}

	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)

	_, err = Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: func(*coreconfig.Config) error { return errors.New("disk full") },
	})
	assert.ErrorContains(t, err, "logger init failed")

	_, err = Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Connect: func(context.Context, coreconfig.DatabaseConfig) (*sqlx.DB, error) {
			return nil, errors.New("refused")
		},
	})
	assert.ErrorContains(t, err, "database initialization failed")

	_, err = Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Connect: func(context.Context, coreconfig.DatabaseConfig) (*sqlx.DB, error) {
			return openLazy(t), nil
		},
		Migrate: func(context.Context, coreconfig.DatabaseConfig) error { return errors.New("dirty") },
	})
	assert.ErrorContains(t, err, "migrations failed")
}
