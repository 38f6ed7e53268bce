package commands

import (
	"context"
	"errors"
	"fmt"

	"AgileKeeper/internal/cli/vfs"
	"AgileKeeper/internal/config"
)

type statusCmd struct{}

func (statusCmd) Name() string { return "status" }
func (statusCmd) Description() string {
	return "Показать расположение сейфа и состояние кэша"
}
func (statusCmd) Usage() string { return "status" }

// Run не требует пароля: состояние записей в кэше хранится открыто.
func (statusCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	app, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	vaultState := "найден"
	if _, err := app.Vault.ListKeys(ctx); err != nil {
		if !errors.Is(err, vfs.ErrNotFound) {
			return err
		}
		vaultState = "не найден (выполните init)"
	}
	fmt.Fprintf(Out, "vault:  %s (%s)\n", cfg.VaultPath, vaultState)
	fmt.Fprintf(Out, "cache:  %s %s\n", cfg.CacheDriver, cfg.CacheDSN)

	keys, err := app.Cache.ListKeys(ctx)
	if err != nil {
		return err
	}
	states, err := app.Cache.ListItemStates(ctx)
	if err != nil {
		return err
	}
	live := 0
	for _, st := range states {
		if !st.Deleted {
			live++
		}
	}
	fmt.Fprintf(Out, "cached keys:  %d\n", len(keys))
	fmt.Fprintf(Out, "cached items: %d (удалённых %d)\n", live, len(states)-live)
	return nil
}

func init() { RegisterCmd(statusCmd{}) }
