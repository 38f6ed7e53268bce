package commands

import (
	"context"
	"fmt"

	"AgileKeeper/internal/cli/service"
	"AgileKeeper/internal/config"
)

type syncCmd struct{}

func (syncCmd) Name() string { return "sync" }
func (syncCmd) Description() string {
	return "Синхронизировать локальный кэш с сейфом"
}
func (syncCmd) Usage() string { return "sync" }

func (syncCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	app, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	pw, err := readPassword("Мастер-пароль: ")
	if err != nil {
		return err
	}
	if err := app.Vault.Unlock(ctx, pw); err != nil {
		return err
	}

	fmt.Fprintln(Out, "→ Запуск синхронизации…")
	if err := app.Syncer.SyncKeys(ctx); err != nil {
		return err
	}
	unsubscribe := app.Syncer.OnProgress(func(p service.Progress) {
		fmt.Fprintf(Out, "  %d/%d\n", p.Updated, p.Total)
	})
	defer unsubscribe()

	res, err := app.Syncer.SyncItems(ctx)
	if err != nil {
		fmt.Fprintf(Out, "× Ошибка синхронизации: %v\n", err)
		return err
	}
	fmt.Fprintf(Out, "✓ Синхронизировано: всего %d, изменено %d, ошибок %d\n", res.Total, res.Changed, res.Failed)
	if res.Failed > 0 {
		return fmt.Errorf("не удалось синхронизировать записей: %d", res.Failed)
	}
	return nil
}

func init() { RegisterCmd(syncCmd{}) }
