package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"AgileKeeper/internal/config"
)

type passwdCmd struct{}

func (passwdCmd) Name() string        { return "passwd" }
func (passwdCmd) Description() string { return "Сменить мастер-пароль сейфа" }
func (passwdCmd) Usage() string       { return "passwd [--hint <hint>]" }

func (passwdCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("passwd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	hint := fs.String("hint", "", "новая подсказка (по умолчанию прежняя)")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return ErrUsage
	}
	hintSet := false
	fs.Visit(func(f *flag.Flag) { hintSet = hintSet || f.Name == "hint" })

	app, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	old, err := readPassword("Текущий мастер-пароль: ")
	if err != nil {
		return err
	}
	// смена пароля возможна только для самого сейфа, не для кэша
	if err := app.Vault.Unlock(ctx, old); err != nil {
		return err
	}
	if !hintSet {
		if *hint, err = app.Vault.PasswordHint(ctx); err != nil {
			return err
		}
	}
	pw, err := readNewPassword("Новый мастер-пароль: ")
	if err != nil {
		return err
	}
	if err := app.Vault.ChangePassword(ctx, old, pw, *hint, cfg.Iterations); err != nil {
		return err
	}
	if err := app.Syncer.SyncKeys(ctx); err != nil {
		return err
	}
	fmt.Fprintln(Out, "✓ Мастер-пароль изменён")
	return nil
}

func init() { RegisterCmd(passwdCmd{}) }
