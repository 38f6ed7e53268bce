package commands

import (
	"context"
	"fmt"

	"AgileKeeper/internal/cli/store/vault"
	"AgileKeeper/internal/config"
)

type initCmd struct{}

func (initCmd) Name() string        { return "init" }
func (initCmd) Description() string { return "Создать новый сейф по пути --vault" }
func (initCmd) Usage() string       { return "init [<hint>]" }

func (initCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 1 {
		return ErrUsage
	}
	var hint string
	if len(args) == 1 {
		hint = args[0]
	}
	app, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	pw, err := readNewPassword("Новый мастер-пароль: ")
	if err != nil {
		return err
	}
	err = app.CreateVault(ctx, vault.CreateParams{Password: pw, Hint: hint, Iterations: cfg.Iterations})
	if err != nil {
		return err
	}
	if err := app.Syncer.SyncKeys(ctx); err != nil {
		return err
	}
	fmt.Fprintf(Out, "✓ Сейф создан: %s\n", cfg.VaultPath)
	return nil
}

func init() { RegisterCmd(initCmd{}) }
