package commands

import (
	"context"
	"fmt"

	"AgileKeeper/internal/cli/service"
	"AgileKeeper/internal/config"
)

type rmCmd struct{}

func (rmCmd) Name() string        { return "rm" }
func (rmCmd) Description() string { return "Удалить запись" }
func (rmCmd) Usage() string       { return "rm <query>" }

func (rmCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	app, err := unlocked(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	removed, err := service.NewItemService(app.Cache).Remove(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Removed: %s (%s)\n", removed.Title, removed.UUID)
	fmt.Fprintln(Out, "→ Синхронизация с сейфом...")
	if syncQuiet(ctx, app) {
		fmt.Fprintln(Out, "✓ Синхронизировано")
	}
	return nil
}

func init() { RegisterCmd(rmCmd{}) }
