package kv_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgileKeeper/internal/cli/kv"
	"AgileKeeper/internal/cli/kv/bolt"
	"AgileKeeper/internal/cli/kv/gormkv"
	"AgileKeeper/internal/cli/kv/memory"
	"AgileKeeper/internal/cli/kv/sqlite"
)

// backends возвращает по свежему экземпляру каждого бэкенда.
func backends(t *testing.T) map[string]kv.Backend {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	sq, err := sqlite.Open(ctx, filepath.Join(dir, "cache.sqlite"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })

	bb, err := bolt.Open(filepath.Join(dir, "cache.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { bb.Close() })

	gk, err := gormkv.Open(ctx, filepath.Join(dir, "cache-gorm.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { gk.Close() })

	return map[string]kv.Backend{
		"memory": memory.NewBackend(),
		"sqlite": sq,
		"bolt":   bb,
		"gorm":   gk,
	}
}

func createStores(names ...string) kv.MigrateFunc {
	return func(_ context.Context, m kv.Migrator, _, _ int) error {
		for _, n := range names {
			if err := m.CreateStore(n); err != nil {
				return err
			}
		}
		return nil
	}
}

func TestBackend_ObjectStore(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			db, err := b.Open(ctx, "cache", 1, createStores("items", "keys"))
			require.NoError(t, err)
			assert.Equal(t, "cache", db.Name())
			assert.Equal(t, 1, db.Version())

			items, err := db.Store("items")
			require.NoError(t, err)

			_, err = items.Get(ctx, "overview/A")
			assert.ErrorIs(t, err, kv.ErrNotFound)

			require.NoError(t, items.Set(ctx, "overview/B", []byte("b")))
			require.NoError(t, items.Set(ctx, "overview/A", []byte("a1")))
			require.NoError(t, items.Set(ctx, "overview/A", []byte("a2")))
			require.NoError(t, items.Set(ctx, "content/A", []byte("secret")))

			got, err := items.Get(ctx, "overview/A")
			require.NoError(t, err)
			assert.Equal(t, "a2", string(got))

			keys, err := items.List(ctx, "overview/")
			require.NoError(t, err)
			assert.Equal(t, []string{"overview/A", "overview/B"}, keys)

			all, err := items.List(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []string{"content/A", "overview/A", "overview/B"}, all)

			require.NoError(t, items.Remove(ctx, "overview/A"))
			require.NoError(t, items.Remove(ctx, "overview/A"))
			_, err = items.Get(ctx, "overview/A")
			assert.ErrorIs(t, err, kv.ErrNotFound)

			// хранилища изолированы
			keyStore, err := db.Store("keys")
			require.NoError(t, err)
			keys, err = keyStore.List(ctx, "")
			require.NoError(t, err)
			assert.Empty(t, keys)

			_, err = db.Store("missing")
			assert.ErrorIs(t, err, kv.ErrNoSuchStore)
		})
	}
}

func TestBackend_Versioning(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var calls [][2]int
			record := func(next kv.MigrateFunc) kv.MigrateFunc {
				return func(ctx context.Context, m kv.Migrator, from, to int) error {
					calls = append(calls, [2]int{from, to})
					return next(ctx, m, from, to)
				}
			}

			db, err := b.Open(ctx, "cache", 1, record(createStores("items")))
			require.NoError(t, err)
			s, err := db.Store("items")
			require.NoError(t, err)
			require.NoError(t, s.Set(ctx, "k", []byte("v")))

			// та же версия: миграция не вызывается, данные на месте
			db, err = b.Open(ctx, "cache", 1, record(createStores("items")))
			require.NoError(t, err)
			s, err = db.Store("items")
			require.NoError(t, err)
			v, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "v", string(v))

			// обновление: удаляем items, создаём sync
			db, err = b.Open(ctx, "cache", 2, record(func(_ context.Context, m kv.Migrator, _, _ int) error {
				if err := m.DeleteStore("items"); err != nil {
					return err
				}
				return m.CreateStore("sync")
			}))
			require.NoError(t, err)
			assert.Equal(t, 2, db.Version())
			_, err = db.Store("items")
			assert.ErrorIs(t, err, kv.ErrNoSuchStore)
			_, err = db.Store("sync")
			require.NoError(t, err)

			assert.Equal(t, [][2]int{{0, 1}, {1, 2}}, calls)

			_, err = b.Open(ctx, "cache", 1, nil)
			assert.ErrorIs(t, err, kv.ErrVersion)
		})
	}
}

func TestBackend_FailedMigrationKeepsVersion(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.Open(ctx, "cache", 1, createStores("items"))
			require.NoError(t, err)

			_, err = b.Open(ctx, "cache", 2, func(context.Context, kv.Migrator, int, int) error { return boom })
			assert.ErrorIs(t, err, boom)

			db, err := b.Open(ctx, "cache", 1, nil)
			require.NoError(t, err)
			assert.Equal(t, 1, db.Version())
			_, err = db.Store("items")
			assert.NoError(t, err)
		})
	}
}

func TestBackend_DatabasesAreIsolated(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			a, err := b.Open(ctx, "a", 1, createStores("items"))
			require.NoError(t, err)
			other, err := b.Open(ctx, "b", 1, createStores("items"))
			require.NoError(t, err)

			sa, err := a.Store("items")
			require.NoError(t, err)
			sb, err := other.Store("items")
			require.NoError(t, err)
			require.NoError(t, sa.Set(ctx, "k", []byte("from-a")))

			_, err = sb.Get(ctx, "k")
			assert.ErrorIs(t, err, kv.ErrNotFound)
		})
	}
}

func TestNeedsUpgrade(t *testing.T) {
	up, err := kv.NeedsUpgrade("x", 0, 1)
	require.NoError(t, err)
	assert.True(t, up)

	up, err = kv.NeedsUpgrade("x", 3, 3)
	require.NoError(t, err)
	assert.False(t, up)

	_, err = kv.NeedsUpgrade("x", 0, 0)
	assert.Error(t, err)
}
