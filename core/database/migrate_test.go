package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsListed(t *testing.T) {
	files := listMigrationFiles(migrationsFS)
	require.Equal(t, []string{
		"000001_documents.up.sql",
		"000002_comment_channels.up.sql",
	}, files)
}

func TestSelectApplied(t *testing.T) {
	files := []string{"000001_a.up.sql", "000002_b.up.sql", "000003_c.up.sql"}

	assert.Equal(t, []string{"000002_b.up.sql", "000003_c.up.sql"}, selectApplied(files, 1, 3))
	assert.Empty(t, selectApplied(files, 3, 3))
	assert.Equal(t, uint64(2), parseVersion("000002_b.up.sql"))
	assert.Equal(t, uint64(0), parseVersion("junk"))
}
