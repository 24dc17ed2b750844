package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vidfriends/vidclient/internal/config"
	"github.com/vidfriends/vidclient/internal/db"
	"github.com/vidfriends/vidclient/internal/repositories"
)

// runMigrations prepares the schema of the postgres session driver.
func runMigrations(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}

	migrationDir := cfg.MigrationDir
	if !filepath.IsAbs(migrationDir) {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("determine working directory: %w", err)
		}
		migrationDir = filepath.Join(wd, migrationDir)
	}

	pool, err := db.Connect(ctx, cfg.Session.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator := repositories.NewMigrator(pool, migrationDir)

	switch command {
	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			mark := " "
			if s.Applied {
				mark = "x"
			}
			fmt.Fprintf(out, "[%s] %s\n", mark, s.Name)
		}
		return nil
	case "up", "":
		applied, err := migrator.Up(ctx)
		if errors.Is(err, repositories.ErrMigrationsMissing) {
			fmt.Fprintln(out, "no migrations to apply")
			return nil
		}
		if err != nil {
			return err
		}
		for _, name := range applied {
			fmt.Fprintf(out, "applied migration %s\n", name)
		}
		if len(applied) == 0 {
			fmt.Fprintln(out, "schema is up to date")
		}
		return nil
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}
