package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"AgileKeeper/internal/cli/bootstrap"
	"AgileKeeper/internal/config"
	"AgileKeeper/internal/logger"
)

// errPasswordMismatch введённые пароли не совпали.
var errPasswordMismatch = errors.New("пароли не совпадают")

// openApp открывает клиент по конфигурации.
var openApp = func(ctx context.Context, cfg *config.Config) (*bootstrap.App, error) {
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return bootstrap.Open(ctx, cfg, log)
}

// readPassword читает пароль с терминала без эха. В тестах подменяется.
var readPassword = func(prompt string) (string, error) {
	fmt.Fprint(Out, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(Out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// readNewPassword запрашивает новый пароль дважды.
func readNewPassword(prompt string) (string, error) {
	pw, err := readPassword(prompt)
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", errors.New("пустой пароль")
	}
	again, err := readPassword("Повторите пароль: ")
	if err != nil {
		return "", err
	}
	if pw != again {
		return "", errPasswordMismatch
	}
	return pw, nil
}

// unlocked открывает клиент, разблокирует его мастер-паролем и подтягивает
// изменения сейфа в кэш. Если сейф недоступен, команда работает с кэшем.
func unlocked(ctx context.Context, cfg *config.Config) (*bootstrap.App, error) {
	app, err := openApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pw, err := readPassword("Мастер-пароль: ")
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	if err := app.Unlock(ctx, pw); err != nil {
		_ = app.Close()
		return nil, err
	}
	syncQuiet(ctx, app)
	return app, nil
}

// syncQuiet синхронизирует кэш с сейфом и печатает только проблемы.
func syncQuiet(ctx context.Context, app *bootstrap.App) bool {
	if err := app.Syncer.SyncKeys(ctx); err != nil {
		fmt.Fprintf(Out, "! Сейф недоступен, работаем с локальным кэшем: %v\n", err)
		return false
	}
	res, err := app.Syncer.SyncItems(ctx)
	if err != nil {
		fmt.Fprintf(Out, "× Ошибка синхронизации: %v\n", err)
		return false
	}
	if res.Failed > 0 {
		fmt.Fprintf(Out, "! Не синхронизировано записей: %d\n", res.Failed)
		return false
	}
	return true
}
