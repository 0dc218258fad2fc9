package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/devotional/internal/cli"
	"github.com/julianstephens/devotional/internal/keyring"
	"github.com/julianstephens/devotional/internal/models"
	"github.com/julianstephens/devotional/internal/notifier"
	"github.com/julianstephens/devotional/internal/storage"
	"github.com/julianstephens/devotional/internal/utils"
)

type DoctorCmd struct{}

type check struct {
	name    string
	run     func(ctx *cli.Context) error
	warning bool
}

var checks = []check{
	{name: "Database reachable", run: checkDBReachable},
	{name: "Schema version", run: checkSchemaVersion},
	{name: "Content cache", run: checkContentCache, warning: true},
	{name: "Triggers registered", run: checkTriggers, warning: true},
	{name: "Clock/timezone", run: checkClockTimezone},
	{name: "Tray notifier", run: checkTray, warning: true},
	{name: "Backups", run: checkBackups, warning: true},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	out := ctx.Stdout()
	fmt.Fprintln(out, "Running diagnostics...")
	fmt.Fprintln(out)

	hasError := false
	dbReachable := true
	for i, c := range checks {
		// schema, cache and trigger checks need the database
		if i > 0 && i < 4 && !dbReachable {
			fmt.Fprintf(out, "⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			fmt.Fprintf(out, "%s %s: OK\n", cli.OKStyle.Render("✓"), c.name)
		case c.warning:
			fmt.Fprintf(out, "%s %s: WARNING\n", cli.WarnStyle.Render("⚠"), c.name)
			fmt.Fprintf(out, "   %v\n", err)
		default:
			fmt.Fprintf(out, "%s %s: FAIL\n", cli.FailStyle.Render("❌"), c.name)
			fmt.Fprintf(out, "   Error: %v\n", err)
			hasError = true
			if i == 0 {
				dbReachable = false
			}
		}
	}

	fmt.Fprintln(out)
	if hasError {
		fmt.Fprintln(out, "Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	fmt.Fprintln(out, "All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		if cli.IsPostgres(ctx.Store.GetConfigPath()) && !keyring.IsAvailable() {
			return fmt.Errorf("failed to load database (OS keyring unavailable): %w", err)
		}
		return fmt.Errorf("failed to load database: %w", err)
	}
	if p, ok := ctx.Store.(interface{ Ping() error }); ok {
		if err := p.Ping(); err != nil {
			return fmt.Errorf("failed to query database: %w", err)
		}
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	m, ok := ctx.Store.(storage.Migrator)
	if !ok {
		return nil
	}
	current, latest, err := m.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("database is at version %d, latest is %d; run 'devotional migrate'", current, latest)
	}
	return nil
}

func checkContentCache(ctx *cli.Context) error {
	entries := ctx.Store.LoadEntries()
	if len(entries) == 0 {
		return errors.New("no devotionals cached; run 'devotional sync'")
	}
	if s, ok := ctx.Store.(interface{ EntriesSavedAt() (time.Time, bool) }); ok {
		if at, ok := s.EntriesSavedAt(); ok && ctx.Clock.Now().Sub(at) > 48*time.Hour {
			return fmt.Errorf("cache last refreshed %s", at.In(ctx.Location).Format(time.RFC1123))
		}
	}
	if _, ok := ctx.Content().TodayEntry(); !ok {
		return fmt.Errorf("%d devotionals cached but none for %s", len(entries), utils.Today(ctx.Clock.Now().In(ctx.Location)))
	}
	return nil
}

func checkTriggers(ctx *cli.Context) error {
	prefs := ctx.Store.LoadPreferences()
	status, err := ctx.Scheduler().Status(context.Background())
	if err != nil {
		return err
	}
	for _, st := range status {
		if prefs.Allows(st.Kind) && st.State != models.StateScheduled {
			return fmt.Errorf("%s is enabled but not scheduled; run 'devotional schedule'", st.Kind)
		}
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	now := ctx.Clock.Now()
	if now.Year() < 2020 {
		return fmt.Errorf("system clock looks wrong: %s", now.Format(time.RFC3339))
	}
	if ctx.Location == nil {
		return errors.New("no timezone configured")
	}
	if !utils.ValidateTimezone(ctx.Location.String()) {
		return fmt.Errorf("timezone %q cannot be loaded", ctx.Location.String())
	}
	return nil
}

func checkTray(ctx *cli.Context) error {
	dir, err := notifier.GetTrayAppConfigDir()
	if err != nil {
		return err
	}
	if err := notifier.CheckTray(dir); err != nil {
		return fmt.Errorf("%v; notifications will print to the terminal", err)
	}
	return nil
}

func checkBackups(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		// postgres is backed up by its operator
		return nil
	}
	backups, err := mgr.List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return errors.New("no backups yet; run 'devotional backup'")
	}
	if age := ctx.Clock.Now().Sub(backups[0].Timestamp); age > 7*24*time.Hour {
		return fmt.Errorf("latest backup is %d days old", int(age.Hours()/24))
	}
	return nil
}
