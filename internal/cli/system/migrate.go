package system

import (
	"fmt"

	"github.com/julianstephens/devotional/internal/cli"
	"github.com/julianstephens/devotional/internal/storage"
)

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	m, ok := ctx.Store.(storage.Migrator)
	if !ok {
		return fmt.Errorf("storage backend does not support migrations")
	}

	current, latest, err := m.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current < latest {
		if err := snapshotBeforeChange(ctx, "migration"); err != nil {
			return err
		}
	}

	count, err := m.Migrate(func(msg string) {
		fmt.Fprintln(ctx.Stdout(), msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		fmt.Fprintln(ctx.Stdout(), "No migrations to apply. Database is up to date.")
	} else {
		fmt.Fprintf(ctx.Stdout(), "\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}
