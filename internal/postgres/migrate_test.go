package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesOrdered(t *testing.T) {
	files, err := migrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_init.sql", files[0])
	assert.IsIncreasing(t, files)
}

func TestInitMigrationHasPaymentDedupIndex(t *testing.T) {
	b, err := migrationFS.ReadFile("migrations/001_init.sql")
	require.NoError(t, err)
	sql := string(b)
	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS transactions")
	assert.True(t, strings.Contains(sql, "provider_txn_id <> ''"), "dedup index must be partial on non-empty provider txn ids")
}
