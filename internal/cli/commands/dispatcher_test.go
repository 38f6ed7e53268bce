package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"AgileKeeper/internal/cli/crypto"
	"AgileKeeper/internal/cli/service"
	"AgileKeeper/internal/cli/vfs"
	"AgileKeeper/internal/config"
)

// fakeCmd позволяет управлять возвратом ошибок из Run
type fakeCmd struct {
	name, usage, desc string
	run               func(ctx context.Context, cfg *config.Config, args []string) error
}

func (f fakeCmd) Name() string        { return f.name }
func (f fakeCmd) Description() string { return f.desc }
func (f fakeCmd) Usage() string       { return f.usage }
func (f fakeCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	return f.run(ctx, cfg, args)
}

func TestDispatcher_HelpAndUnknown(t *testing.T) {
	out := withStdoutCapture(t, func() { _ = Dispatch(context.Background(), &config.Config{}, []string{}) })
	if !strings.Contains(out, "AgileKeeper CLI") {
		t.Fatalf("global help expected")
	}
	for _, name := range []string{"init", "list", "show", "add", "rm", "passwd", "hint", "sync", "gen", "status"} {
		if _, ok := Get(name); !ok {
			t.Fatalf("command %q must be registered", name)
		}
		if !strings.Contains(out, name) {
			t.Fatalf("help must mention %q", name)
		}
	}

	out = withStdoutCapture(t, func() { _ = Dispatch(context.Background(), &config.Config{}, []string{"help"}) })
	if !strings.Contains(out, "Usage:") {
		t.Fatalf("usage expected")
	}

	var code int
	out = withStdoutCapture(t, func() { code = Dispatch(context.Background(), &config.Config{}, []string{"help", "show"}) })
	if code != 0 || !strings.Contains(out, "show [--reveal] <query>") {
		t.Fatalf("expected show usage, got %d %q", code, out)
	}

	out = withStdoutCapture(t, func() { _ = Dispatch(context.Background(), &config.Config{}, []string{"help", "nope"}) })
	if !strings.Contains(out, "Unknown command") {
		t.Fatalf("unknown command message expected")
	}

	withStdoutCapture(t, func() { code = Dispatch(context.Background(), &config.Config{}, []string{"no-such"}) })
	if code != 2 {
		t.Fatalf("expected 2 for unknown command, got %d", code)
	}
}

func TestDispatcher_RunPaths(t *testing.T) {
	cmdOK := fakeCmd{name: "x", usage: "x", run: func(_ context.Context, _ *config.Config, _ []string) error { return nil }}
	RegisterCmd(cmdOK)
	if code := Dispatch(context.Background(), &config.Config{}, []string{"x"}); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}

	cmdUsage := fakeCmd{name: "u", usage: "u <arg>", run: func(_ context.Context, _ *config.Config, _ []string) error { return ErrUsage }}
	RegisterCmd(cmdUsage)
	out := withStdoutCapture(t, func() { _ = Dispatch(context.Background(), &config.Config{}, []string{"u"}) })
	if !strings.Contains(out, "Usage: u <arg>") {
		t.Fatalf("usage text expected")
	}

	cmdErr := fakeCmd{name: "e", usage: "e", run: func(_ context.Context, _ *config.Config, _ []string) error { return errors.New("boom") }}
	RegisterCmd(cmdErr)
	var code int
	out = withStdoutCapture(t, func() { code = Dispatch(context.Background(), &config.Config{}, []string{"E"}) })
	if code != 1 || !strings.Contains(out, "e error: boom") {
		t.Fatalf("expected error exit, got %d %q", code, out)
	}

	for _, name := range []string{"x", "u", "e"} {
		delete(registry, name)
	}
}

func TestDescribeError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("unlock key X: %w", &crypto.DecryptionError{Kind: crypto.ErrIncorrectPassword}), "неверный мастер-пароль"},
		{fmt.Errorf("find: %w", service.ErrAmbiguous), "уточните запрос"},
		{fmt.Errorf("stat key file: %w", vfs.ErrNotFound), "выполните init"},
		{errors.New("plain"), "plain"},
	}
	for _, c := range cases {
		if got := describeError(c.err); !strings.Contains(got, c.want) {
			t.Fatalf("describeError(%v) = %q, want it to contain %q", c.err, got, c.want)
		}
	}
}
