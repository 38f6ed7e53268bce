package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MigrationFailureClosesDB(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var migrated *sql.DB
	gooseUpContext = func(_ context.Context, db *sql.DB, _ string, _ ...goose.OptionsFunc) error {
		migrated = db
		return errors.New("schema broken")
	}

	path := filepath.Join(t.TempDir(), "cache.sqlite")
	b, err := Open(context.Background(), path, nil)
	require.Error(t, err)
	assert.Nil(t, b)
	assert.ErrorContains(t, err, "schema broken")
	assert.ErrorContains(t, err, path)

	// соединение закрыто после неудачной миграции
	require.NotNil(t, migrated)
	assert.Error(t, migrated.Ping())
}

func TestOpen_MigrationsAreRepeatable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.sqlite")

	b, err := Open(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	b, err = Open(ctx, path, nil)
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, path, b.Path())
	require.NoError(t, b.Migrate(ctx))
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "", nil)
	assert.Error(t, err)
}
