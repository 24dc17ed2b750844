// Package app wires configuration, the session store and the API services
// into the vidclient command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vidfriends/vidclient/internal/config"
	"github.com/vidfriends/vidclient/internal/logging"
)

const usage = `usage: vidclient <command> [flags]

Account:
  login [--email E] [--password P]
  signup --email E --mobile M --password P --confirm P
  logout
  status

Videos:
  feed [--search S] [--category C,..] [--difficulty D] [--tags T,..] [--pages N]
  show <id> [--related-pages N]
  like <id>
  comment <id> <text>
  comments <id>
  delete-comment <id>
  upload (--file F | --link L) --title T --tags T,.. --difficulty D --category C
         [--description D] [--thumbnail URL|FILE] [--duration mm:ss]
  edit <id> [--title T] [--description D] [--category C] [--difficulty D] [--tags T,..] [--thumbnail URL|FILE]
  delete <id>
  tags

Creator:
  analytics [--page N]

Maintenance:
  migrate [up|status]
`

// Run bootstraps the vidclient application.
func Run(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(out, usage)
		if len(args) == 0 {
			return errors.New("expected command")
		}
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(errOut, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	ctx = logging.WithLogger(ctx, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if args[0] == "migrate" {
		return runMigrations(ctx, cfg, args[1:], out)
	}

	deps, cleanup, err := buildDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	return NewCLI(cfg, deps, in, out, errOut).Execute(ctx, args)
}
