package commands

import (
	"context"
	"fmt"
	"strconv"

	"AgileKeeper/internal/cli/crypto"
	"AgileKeeper/internal/config"
)

type genCmd struct{}

func (genCmd) Name() string        { return "gen" }
func (genCmd) Description() string { return "Сгенерировать пароль" }
func (genCmd) Usage() string       { return "gen [<length>]" }

func (genCmd) Run(_ context.Context, _ *config.Config, args []string) error {
	if len(args) > 1 {
		return ErrUsage
	}
	length := defaultPasswordLength
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return ErrUsage
		}
		length = n
	}
	pw, err := crypto.GeneratePassword(length)
	if err != nil {
		return err
	}
	fmt.Fprintln(Out, pw)
	return nil
}

func init() { RegisterCmd(genCmd{}) }
