package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"AgileKeeper/internal/cli/model"
	"AgileKeeper/internal/cli/service"
	"AgileKeeper/internal/config"
)

type showCmd struct{}

func (showCmd) Name() string { return "show" }
func (showCmd) Description() string {
	return "Показать запись по UUID, префиксу UUID или названию"
}
func (showCmd) Usage() string { return "show [--reveal] <query>" }

func (showCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	reveal := fs.Bool("reveal", false, "показать пароль")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return ErrUsage
	}
	app, err := unlocked(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	it, err := service.NewItemService(app.Cache).Find(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	content, err := it.Content(ctx)
	if err != nil {
		return err
	}
	password := content.Password()
	if !*reveal && password != "" {
		password = strings.Repeat("*", 8)
	}
	fmt.Fprintf(Out, "uuid:      %s\n", it.UUID)
	fmt.Fprintf(Out, "title:     %s\n", it.Title)
	fmt.Fprintf(Out, "type:      %s\n", model.TypeDisplayName(it.TypeName))
	fmt.Fprintf(Out, "created:   %s\n", it.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(Out, "updated:   %s\n", it.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(Out, "trashed:   %t\n", it.Trashed)
	fmt.Fprintf(Out, "url:       %s\n", it.PrimaryURL())
	fmt.Fprintf(Out, "username:  %s\n", content.Account())
	fmt.Fprintf(Out, "password:  %s\n", password)
	for _, sec := range content.Sections {
		for _, f := range sec.Fields {
			if f.Kind == model.FieldPassword && !*reveal {
				continue
			}
			fmt.Fprintf(Out, "%s.%s: %v\n", sec.Title, f.Title, f.Value)
		}
	}
	if content.Notes != "" {
		fmt.Fprintf(Out, "notes:\n%s\n", content.Notes)
	}
	return nil
}

func init() { RegisterCmd(showCmd{}) }
