package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/devotional/internal/cli"
	"github.com/julianstephens/devotional/internal/cli/content"
	"github.com/julianstephens/devotional/internal/cli/notify"
	"github.com/julianstephens/devotional/internal/cli/system"
	"github.com/julianstephens/devotional/internal/config"
	"github.com/julianstephens/devotional/internal/constants"
	apperrors "github.com/julianstephens/devotional/internal/errors"
	"github.com/julianstephens/devotional/internal/fetcher"
	"github.com/julianstephens/devotional/internal/logger"
	"github.com/julianstephens/devotional/internal/notifier"
	"github.com/julianstephens/devotional/internal/utils"
)

var CLI struct {
	Version       kong.VersionFlag
	Config        string `help:"SQLite database path, or 'postgres' to use the connection string from ${db_env} or the OS keyring. A postgres:// URL without a password is also accepted." default:"${config_path}" env:"DEVOTIONAL_CONFIG"`
	BaseURL       string `help:"Upstream WordPress REST API base URL." default:"${base_url}" env:"DEVOTIONAL_BASE_URL"`
	Timezone      string `help:"IANA timezone for entry dates and trigger times." default:"${timezone}" env:"DEVOTIONAL_TIMEZONE"`
	Debug         bool   `help:"Enable debug logging to stderr." env:"DEVOTIONAL_DEBUG"`
	LogLevel      string `help:"Log level for the log file (debug, info, warn, error)." env:"DEVOTIONAL_LOG_LEVEL"`
	LogJSON       bool   `help:"Write the log file as JSON lines." name:"log-json" env:"DEVOTIONAL_LOG_JSON"`
	NoExactAlarms bool   `help:"Deny exact alarms so triggers fall back to inexact ones."`
	Console       bool   `help:"Print notifications to the terminal instead of the tray."`

	Init    system.InitCmd    `cmd:"" help:"Initialize devotional storage."`
	Migrate system.MigrateCmd `cmd:"" help:"Run database migrations."`
	Doctor  system.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Serve   system.ServeCmd   `cmd:"" help:"Serve the HTTP API."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store the PostgreSQL connection string."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string (masked)."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Delete the stored connection string."`
		Status system.KeyringStatusCmd `cmd:"" help:"Check keyring availability." default:"1"`
	} `cmd:"" help:"Manage database credentials in the OS keyring."`
	Backup struct {
		Create  system.BackupCreateCmd  `cmd:"" help:"Snapshot the SQLite database." default:"1"`
		List    system.BackupListCmd    `cmd:"" help:"List database snapshots."`
		Restore system.BackupRestoreCmd `cmd:"" help:"Replace the database with a snapshot."`
	} `cmd:"" help:"Manage SQLite database backups."`

	Sync   content.SyncCmd   `cmd:"" help:"Refresh devotionals from upstream."`
	Today  content.TodayCmd  `cmd:"" help:"Show today's devotional." default:"1"`
	Nugget content.NuggetCmd `cmd:"" help:"Show today's nugget."`
	List   content.ListCmd   `cmd:"" help:"List cached devotionals."`
	Open   content.OpenCmd   `cmd:"" help:"Open the entry a notification points at."`

	Prefs    notify.PrefsCmd    `cmd:"" help:"Show or change notification preferences."`
	Schedule notify.ScheduleCmd `cmd:"" help:"Register triggers from preferences."`
	Status   notify.StatusCmd   `cmd:"" help:"Show triggers and recent deliveries."`
	Start    notify.StartCmd    `cmd:"" help:"Cold-start event: prepare storage and register triggers."`
	Boot     notify.BootCmd     `cmd:"" help:"Boot-completed event: drop stale triggers and re-register."`
	Tick     notify.TickCmd     `cmd:"" help:"Fire every due trigger once (for cron or timers)."`
	Run      notify.RunCmd      `cmd:"" help:"Host the trigger runner until interrupted."`
	Fire     notify.FireCmd     `cmd:"" hidden:"" help:"Deliver one trigger now (used internally)."`
}

// commands that open storage themselves or do not need it loaded
var skipLoad = map[string]bool{
	"init":   true,
	"start":  true,
	"boot":   true,
	"doctor": true,
}

func main() {
	config.LoadEnv()

	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Daily devotional content sync and notification scheduler"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"config_path": constants.DefaultConfigPath,
			"base_url":    constants.DefaultBaseURL,
			"timezone":    constants.DefaultTimezone,
			"server_addr": constants.DefaultServerAddr,
			"db_env":      constants.EnvDBConn,
		},
	)

	command := strings.Fields(ctx.Command())[0]

	configDir, err := cli.ConfigDir(CLI.Config)
	if err != nil {
		apperrors.Fatal(err)
	}
	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug,
		ConfigDir: configDir,
		Level:     CLI.LogLevel,
		JSON:      CLI.LogJSON,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}
	logger.Debug("Starting", "command", ctx.Command(), "env", config.GetAppEnv())

	loc, err := utils.LoadLocation(CLI.Timezone)
	if err != nil {
		apperrors.Fatalf("invalid timezone %q: %v", CLI.Timezone, err)
	}
	slots, err := config.LoadSlots()
	if err != nil {
		apperrors.Fatal(err)
	}

	var n notifier.Notifier = notifier.NewConsole(os.Stdout)
	if !CLI.Console {
		n = notifier.Chain{notifier.NewTray(), n}
	}

	appCtx := &cli.Context{
		Fetcher:     fetcher.New(CLI.BaseURL, fetcher.WithTimeout(constants.FetchTimeout), fetcher.WithPageSize(constants.DefaultPageSize)),
		Notifier:    n,
		Clock:       utils.SystemClock{},
		Location:    loc,
		Slots:       slots,
		ExactAlarms: !CLI.NoExactAlarms,
	}

	if command != "keyring" {
		store, err := cli.OpenStore(CLI.Config)
		if err != nil {
			apperrors.Fatal(err)
		}
		appCtx.Store = store
		defer store.Close()

		if !skipLoad[command] {
			if err := store.Load(); err != nil {
				apperrors.Fatal(err)
			}
		}
	}

	if err := ctx.Run(appCtx); err != nil {
		if appCtx.Store != nil {
			appCtx.Store.Close()
		}
		apperrors.Fatal(err)
	}
}
