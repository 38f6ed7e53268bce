package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgileKeeper/internal/cli/crypto"
	"AgileKeeper/internal/cli/service"
	"AgileKeeper/internal/cli/store/vault"
	"AgileKeeper/internal/config"
)

// helper: конфигурация во временном каталоге
func tempConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		VaultPath:   filepath.Join(dir, "test.agilekeychain"),
		CacheDriver: driver,
		Iterations:  10,
		KDFWorkers:  1,
		AutoLock:    time.Minute,
		SyncWorkers: 2,
	}
	switch driver {
	case config.DriverSQLite:
		cfg.CacheDSN = filepath.Join(dir, "cache.db")
	case config.DriverBolt:
		cfg.CacheDSN = filepath.Join(dir, "cache.bolt")
	case config.DriverGorm:
		cfg.CacheDSN = filepath.Join(dir, "cache-gorm.db")
	}
	return cfg
}

func TestOpen_AllDrivers(t *testing.T) {
	for _, driver := range []string{config.DriverMemory, config.DriverSQLite, config.DriverBolt, config.DriverGorm} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			app, err := Open(ctx, tempConfig(t, driver), nil)
			require.NoError(t, err)

			require.NoError(t, app.CreateVault(ctx, vault.CreateParams{Password: "pw", Hint: "hint", Iterations: 10}))
			require.NoError(t, app.Syncer.SyncKeys(ctx))

			svc := service.NewItemService(app.Cache)
			_, err = svc.Add(ctx, service.NewLogin{Title: "Mail", Username: "me", Password: "secret"})
			require.NoError(t, err)
			res, err := app.Syncer.SyncItems(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, res.Changed)

			items, err := service.NewItemService(app.Vault).List(ctx)
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, "Mail", items[0].Title)

			require.NoError(t, app.Close())
			// повторный вызов Close не должен падать
			require.NoError(t, app.Close())
			assert.Empty(t, app.Agent.ListKeyIDs())
		})
	}
}

func TestOpen_VaultOnDisk(t *testing.T) {
	ctx := context.Background()
	cfg := tempConfig(t, config.DriverMemory)
	app, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.CreateVault(ctx, vault.CreateParams{Password: "pw", Iterations: 10}))
	_, err = os.Stat(filepath.Join(cfg.VaultPath, "data", "default", "encryptionKeys.js"))
	require.NoError(t, err)

	err = app.CreateVault(ctx, vault.CreateParams{Password: "other", Iterations: 10})
	assert.ErrorIs(t, err, vault.ErrVaultExists)
}

func TestApp_UnlockFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	cfg := tempConfig(t, config.DriverSQLite)
	app, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, app.CreateVault(ctx, vault.CreateParams{Password: "pw", Iterations: 10}))
	require.NoError(t, app.Syncer.SyncKeys(ctx))
	require.NoError(t, app.Close())

	// сейф пропал (например, не смонтирован диск), кэш остался
	require.NoError(t, os.RemoveAll(cfg.VaultPath))
	app, err = Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.Unlock(ctx, "pw"))
	locked, err := app.Cache.IsLocked(ctx)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestApp_UnlockWrongPassword(t *testing.T) {
	ctx := context.Background()
	app, err := Open(ctx, tempConfig(t, config.DriverMemory), nil)
	require.NoError(t, err)
	defer app.Close()
	require.NoError(t, app.CreateVault(ctx, vault.CreateParams{Password: "pw", Iterations: 10}))
	app.Vault.Lock()

	assert.ErrorIs(t, app.Unlock(ctx, "nope"), crypto.ErrIncorrectPassword)
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := tempConfig(t, "mongo")
	_, err := Open(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "mongo")

	_, _, err = OpenBackend(context.Background(), "mongo", "", nil)
	assert.Error(t, err)
}

func TestOpen_SQLiteCacheOnFileFails(t *testing.T) {
	cfg := tempConfig(t, config.DriverSQLite)
	// каталог вместо файла БД
	require.NoError(t, os.MkdirAll(cfg.CacheDSN, 0o700))
	_, err := Open(context.Background(), cfg, nil)
	assert.Error(t, err)
}
