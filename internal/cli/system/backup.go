package system

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/devotional/internal/backup"
	"github.com/julianstephens/devotional/internal/cli"
	"github.com/julianstephens/devotional/internal/storage/sqlite"
)

func backupManager(ctx *cli.Context) (*backup.Manager, error) {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return nil, fmt.Errorf("backups are only supported for SQLite storage")
	}
	return backup.NewManager(ctx.Store.GetConfigPath(), ctx.Clock), nil
}

// snapshotBeforeChange takes a backup if the SQLite database exists. Other
// backends are left alone.
func snapshotBeforeChange(ctx *cli.Context, reason string) error {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return nil
	}
	if _, err := os.Stat(ctx.Store.GetConfigPath()); err != nil {
		return nil
	}
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	path, err := mgr.Create()
	if err != nil {
		return fmt.Errorf("failed to back up database before %s: %w", reason, err)
	}
	fmt.Fprintf(ctx.Stdout(), "Backed up database to: %s\n", path)
	return nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	path, err := mgr.Create()
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout(), "Created backup: %s\n", path)
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	backups, err := mgr.List()
	if err != nil {
		return err
	}
	out := ctx.Stdout()
	if len(backups) == 0 {
		fmt.Fprintf(out, "No backups in %s\n", mgr.Dir())
		return nil
	}
	fmt.Fprintln(out, cli.TitleStyle.Render(fmt.Sprintf("Backups (%d)", len(backups))))
	for _, b := range backups {
		fmt.Fprintf(out, "  %s  %s  %s\n",
			b.Timestamp.In(ctx.Location).Format("2006-01-02 15:04:05"),
			cli.MutedStyle.Render(fmt.Sprintf("%6.1f KB", float64(b.Size)/1024)),
			filepath.Base(b.Path))
	}
	return nil
}

type BackupRestoreCmd struct {
	Path string `arg:"" help:"Backup file to restore, or its file name inside the backup directory."`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	path := c.Path
	if _, err := os.Stat(path); os.IsNotExist(err) && filepath.Base(path) == path {
		path = filepath.Join(mgr.Dir(), path)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("backup not found: %s", c.Path)
	}

	if err := ctx.Store.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	if err := mgr.Restore(path); err != nil {
		return err
	}
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("restored database failed to load: %w", err)
	}
	fmt.Fprintf(ctx.Stdout(), "Restored database from: %s\n", path)
	return nil
}
