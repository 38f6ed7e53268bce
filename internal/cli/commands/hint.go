package commands

import (
	"context"
	"fmt"

	"AgileKeeper/internal/config"
)

type hintCmd struct{}

func (hintCmd) Name() string        { return "hint" }
func (hintCmd) Description() string { return "Показать подсказку к мастер-паролю" }
func (hintCmd) Usage() string       { return "hint" }

func (hintCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	app, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	hint, err := app.Vault.PasswordHint(ctx)
	if err != nil || hint == "" {
		// сейф недоступен: подсказка могла остаться в кэше
		if cached, cacheErr := app.Cache.PasswordHint(ctx); cacheErr == nil && cached != "" {
			hint, err = cached, nil
		}
	}
	if err != nil {
		return err
	}
	if hint == "" {
		fmt.Fprintln(Out, "Подсказка не задана")
		return nil
	}
	fmt.Fprintf(Out, "Подсказка: %s\n", hint)
	return nil
}

func init() { RegisterCmd(hintCmd{}) }
