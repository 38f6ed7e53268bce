// Package bootstrap собирает клиент из конфигурации: сейф на диске,
// локальный кэш, агент ключей и синхронизатор.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"AgileKeeper/internal/cli/crypto"
	"AgileKeeper/internal/cli/keyagent"
	"AgileKeeper/internal/cli/kv"
	"AgileKeeper/internal/cli/kv/bolt"
	"AgileKeeper/internal/cli/kv/gormkv"
	"AgileKeeper/internal/cli/kv/memory"
	"AgileKeeper/internal/cli/kv/sqlite"
	"AgileKeeper/internal/cli/service"
	"AgileKeeper/internal/cli/store/local"
	"AgileKeeper/internal/cli/store/vault"
	"AgileKeeper/internal/cli/vfs"
	"AgileKeeper/internal/cli/vfs/localfs"
	"AgileKeeper/internal/config"
)

// App открытые хранилища клиента. Vault и Cache разделяют один агент,
// поэтому разблокировка одного открывает и другой.
type App struct {
	Log    *zap.SugaredLogger
	Agent  *keyagent.Agent
	Vault  *vault.Vault
	Cache  *local.Store
	Syncer *service.Syncer

	vaultFS   vfs.FS
	vaultRoot string
	vaultOpts vault.Options
	closers   []func() error
}

// Open открывает сейф по cfg.VaultPath и кэш выбранным драйвером.
// Close необходимо вызвать после окончания работы, чтобы закрыть БД кэша.
func Open(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	app := &App{Log: log, Agent: keyagent.New(log)}
	app.Agent.SetAutoLockTimeout(cfg.AutoLock)
	app.closers = append(app.closers, func() error {
		app.Agent.SetAutoLockTimeout(0)
		app.Agent.ForgetKeys()
		return nil
	})

	deriver := crypto.Deriver{Workers: cfg.KDFWorkers}
	vaultDir, err := filepath.Abs(cfg.VaultPath)
	if err != nil {
		return nil, err
	}
	fs, err := localfs.New(filepath.Dir(vaultDir))
	if err != nil {
		return nil, fmt.Errorf("open vault location: %w", err)
	}
	app.vaultFS, app.vaultRoot = fs, filepath.Base(vaultDir)
	app.vaultOpts = vault.Options{Deriver: deriver, Logger: log}
	app.Vault = vault.Open(app.vaultFS, app.vaultRoot, app.Agent, app.vaultOpts)

	backend, closeBackend, err := OpenBackend(ctx, cfg.CacheDriver, cfg.CacheDSN, log)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.closers = append(app.closers, closeBackend)
	app.Cache, err = local.Open(ctx, backend, app.Agent, local.Options{Deriver: deriver, Logger: log})
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}

	app.Syncer = service.NewSyncer(app.Cache, app.Vault, service.SyncerOptions{
		Workers: cfg.SyncWorkers,
		Logger:  log,
	})
	log.Debugw("client opened", "vault", vaultDir, "cache_driver", cfg.CacheDriver)
	return app, nil
}

// OpenBackend открывает key-value хранилище кэша и возвращает функцию его закрытия.
func OpenBackend(ctx context.Context, driver, dsn string, log *zap.SugaredLogger) (kv.Backend, func() error, error) {
	switch driver {
	case config.DriverMemory:
		return memory.NewBackend(), func() error { return nil }, nil
	case config.DriverSQLite:
		b, err := sqlite.Open(ctx, dsn, log)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite cache: %w", err)
		}
		return b, b.Close, nil
	case config.DriverBolt:
		b, err := bolt.Open(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open bolt cache: %w", err)
		}
		return b, b.Close, nil
	case config.DriverGorm:
		b, err := gormkv.Open(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open gorm cache: %w", err)
		}
		return b, b.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown cache driver %q", driver)
}

// Close закрывает кэш и забывает ключи. Повторный вызов безопасен.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// CreateVault создаёт новый сейф по пути из конфигурации. Сейф остаётся
// разблокированным.
func (a *App) CreateVault(ctx context.Context, p vault.CreateParams) error {
	if _, err := vault.CreateVault(ctx, a.vaultFS, a.vaultRoot, a.Agent, p, a.vaultOpts); err != nil {
		return err
	}
	return a.Vault.Unlock(ctx, p.Password)
}

// Unlock разблокирует сейф, а если он недоступен, кэш по сохранённым ключам.
func (a *App) Unlock(ctx context.Context, password string) error {
	err := a.Vault.Unlock(ctx, password)
	if err == nil {
		return nil
	}
	if errors.Is(err, crypto.ErrIncorrectPassword) {
		return err
	}
	a.Log.Infow("vault unavailable, unlocking cache", "error", err)
	if cacheErr := a.Cache.Unlock(ctx, password); cacheErr != nil {
		return errors.Join(err, cacheErr)
	}
	return nil
}
