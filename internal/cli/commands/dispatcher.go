package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"AgileKeeper/internal/cli/codec"
	"AgileKeeper/internal/cli/crypto"
	"AgileKeeper/internal/cli/keyagent"
	"AgileKeeper/internal/cli/service"
	"AgileKeeper/internal/cli/store"
	"AgileKeeper/internal/cli/store/vault"
	"AgileKeeper/internal/cli/vfs"
	"AgileKeeper/internal/config"
)

// hints пояснения к ошибкам, которые пользователь может исправить сам.
var hints = []struct {
	err  error
	hint string
}{
	{crypto.ErrIncorrectPassword, "неверный мастер-пароль"},
	{crypto.ErrCorrupt, "сейф повреждён: зашифрованные данные не читаются"},
	{codec.ErrFormat, "сейф повреждён: неожиданный формат файла"},
	{keyagent.ErrLockedDuringUnlock, "сейф заблокирован во время разблокировки, повторите"},
	{store.ErrLocked, "сейф заблокирован"},
	{vault.ErrVaultExists, "сейф уже существует"},
	{service.ErrAmbiguous, "уточните запрос: подходит несколько записей"},
	{store.ErrNotFound, "запись не найдена"},
	{vfs.ErrNotFound, "сейф не найден, выполните init или укажите --vault"},
	{vfs.ErrConflict, "сейф изменён другим клиентом, повторите"},
}

// describeError добавляет к ошибке пояснение для пользователя, если оно известно.
func describeError(err error) string {
	for _, h := range hints {
		if errors.Is(err, h.err) {
			return fmt.Sprintf("%s (%v)", h.hint, err)
		}
	}
	return err.Error()
}

// Dispatch is the single entry point to execute CLI commands.
// It prints help and usage messages and returns a process exit code.
func Dispatch(ctx context.Context, cfg *config.Config, args []string) int {
	// If user passed global --help after flags parsing, show global usage
	for _, a := range os.Args[1:] {
		if a == "--help" || a == "-h" {
			fmt.Fprint(Out, FormatGlobalUsage())
			return 0
		}
	}

	if !flag.Parsed() {
		flag.Parse()
	}

	if len(args) == 0 {
		fmt.Fprint(Out, FormatGlobalUsage())
		return 2
	}

	name := strings.ToLower(args[0])
	if name == "help" { // akcli help [command]
		if len(args) == 1 {
			fmt.Fprint(Out, FormatGlobalUsage())
			return 0
		}
		if c, ok := Get(args[1]); ok {
			fmt.Fprintf(Out, "Usage: %s\n", c.Usage())
			return 0
		}
		fmt.Fprintf(Out, "Unknown command: %s\n\n", args[1])
		fmt.Fprint(Out, FormatGlobalUsage())
		return 2
	}

	c, ok := Get(name)
	if !ok {
		fmt.Fprintf(Out, "Unknown command: %s\n\n", name)
		fmt.Fprint(Out, FormatGlobalUsage())
		return 2
	}

	err := c.Run(ctx, cfg, args[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrUsage):
		fmt.Fprintf(Out, "Usage: %s\n", c.Usage())
		return 2
	default:
		fmt.Fprintf(Out, "%s error: %s\n", name, describeError(err))
		return 1
	}
}
