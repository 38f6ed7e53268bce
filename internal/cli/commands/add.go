package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"AgileKeeper/internal/cli/crypto"
	"AgileKeeper/internal/cli/service"
	"AgileKeeper/internal/config"
)

// defaultPasswordLength длина пароля, который генерируется для новой записи.
const defaultPasswordLength = 20

type addCmd struct{}

func (addCmd) Name() string { return "add" }
func (addCmd) Description() string {
	return "Добавить запись входа (без пароля будет сгенерирован)"
}
func (addCmd) Usage() string {
	return "add [--url <url>] [--notes <text>] [--generate] <title> [<username>]"
}

func (addCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	url := fs.String("url", "", "адрес сайта")
	notes := fs.String("notes", "", "заметки")
	generate := fs.Bool("generate", false, "сгенерировать пароль не спрашивая")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if fs.NArg() < 1 || fs.NArg() > 2 || fs.Arg(0) == "" {
		return ErrUsage
	}
	in := service.NewLogin{Title: fs.Arg(0), Username: fs.Arg(1), URL: *url, Notes: *notes}

	app, err := unlocked(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if !*generate {
		if in.Password, err = readPassword("Пароль записи (пусто: сгенерировать): "); err != nil {
			return err
		}
	}
	generated := in.Password == ""
	if generated {
		if in.Password, err = crypto.GeneratePassword(defaultPasswordLength); err != nil {
			return err
		}
	}

	it, err := service.NewItemService(app.Cache).Add(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintln(Out, "Created:")
	fmt.Fprintf(Out, "  uuid:  %s\n", it.UUID)
	fmt.Fprintf(Out, "  title: %s\n", it.Title)
	if generated {
		fmt.Fprintf(Out, "  password: %s\n", in.Password)
	}
	fmt.Fprintln(Out, "→ Синхронизация с сейфом...")
	if syncQuiet(ctx, app) {
		fmt.Fprintln(Out, "✓ Синхронизировано")
	}
	return nil
}

func init() { RegisterCmd(addCmd{}) }
