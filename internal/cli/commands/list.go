package commands

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"AgileKeeper/internal/cli/service"
	"AgileKeeper/internal/config"
)

type listCmd struct{}

func (listCmd) Name() string        { return "list" }
func (listCmd) Description() string { return "Показать все записи" }
func (listCmd) Usage() string       { return "list" }

func (listCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	app, err := unlocked(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	list, err := service.NewItemService(app.Cache).List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(Out, "Нет записей")
		return nil
	}
	t := table.NewWriter()
	t.SetOutputMirror(Out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"UUID", "Title", "URL", "Trashed"})
	for _, it := range list {
		trashed := ""
		if it.Trashed {
			trashed = "да"
		}
		t.AppendRow(table.Row{it.UUID[:8], it.Title, it.Location, trashed})
	}
	t.Render()
	fmt.Fprintf(Out, "Всего: %d\n", len(list))
	return nil
}

func init() { RegisterCmd(listCmd{}) }
