package notify

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julianstephens/devotional/internal/cli"
	"github.com/julianstephens/devotional/internal/constants"
	"github.com/julianstephens/devotional/internal/logger"
	"github.com/julianstephens/devotional/internal/models"
	"github.com/julianstephens/devotional/internal/server"
)

// StartCmd is the cold-start event: it readies storage and registers
// triggers from preferences.
type StartCmd struct {
	Refresh bool `help:"Refresh content after scheduling."`
}

func (c *StartCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Init(); err != nil {
		return err
	}
	content := ctx.Content()
	logger.Info("Cold start", "cached", len(content.Entries()))

	if err := ctx.Scheduler().RescheduleAllFromPreferences(context.Background()); err != nil {
		return err
	}
	if c.Refresh {
		if _, err := content.Refresh(context.Background()); err != nil {
			logger.Warn("Startup refresh failed", "error", err)
		}
	}
	fmt.Fprintln(ctx.Stdout(), "Triggers registered.")
	return nil
}

// BootCmd is the boot-completed event: stale registrations are removed
// and triggers re-registered.
type BootCmd struct{}

func (c *BootCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Init(); err != nil {
		return err
	}
	sched := ctx.Scheduler()
	removed, err := sched.CleanupStale(context.Background())
	if err != nil {
		return err
	}
	if err := sched.RescheduleAllFromPreferences(context.Background()); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout(), "Triggers registered (%d stale removed).\n", removed)
	return nil
}

// FireCmd delivers one trigger now, as the platform would at its firing time
type FireCmd struct {
	Kind string `help:"Trigger kind to fire." enum:"morning,nugget,prefetch" required:""`
}

func (c *FireCmd) Run(ctx *cli.Context) error {
	kind, err := models.ParseTriggerKind(c.Kind)
	if err != nil {
		return err
	}
	t := models.Trigger{ID: triggerID(kind), Kind: kind, FireAt: ctx.Clock.Now()}
	return ctx.Dispatcher().Fire(context.Background(), t)
}

func triggerID(kind models.TriggerKind) string {
	switch kind {
	case models.KindMorning:
		return constants.MorningTriggerID
	case models.KindNugget:
		return constants.NuggetTriggerID
	default:
		return constants.PrefetchTriggerID
	}
}

// TickCmd fires every due registration once. Meant for cron or a timer unit.
type TickCmd struct{}

func (c *TickCmd) Run(ctx *cli.Context) error {
	n, err := ctx.Runner(0).Tick(context.Background())
	if err != nil {
		return err
	}
	logger.Debug("Tick complete", "fired", n)
	return nil
}

// RunCmd hosts the alarm runner until interrupted, optionally serving the
// HTTP API alongside it.
type RunCmd struct {
	Interval time.Duration `help:"How often to check for due triggers." default:"30s"`
	Listen   string        `help:"Also serve the HTTP API on this address."`
}

func (c *RunCmd) Run(ctx *cli.Context) error {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := ctx.Scheduler()
	if _, err := sched.CleanupStale(runCtx); err != nil {
		logger.Warn("Stale trigger cleanup failed", "error", err)
	}
	if err := sched.RescheduleAllFromPreferences(runCtx); err != nil {
		return err
	}

	if c.Listen != "" {
		srv := server.New(ctx.Store, ctx.Content(), sched).HTTPServer(c.Listen)
		go func() {
			logger.Info("API listening", "addr", c.Listen)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("API server failed", "error", err)
				stop()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	fmt.Fprintf(ctx.Stdout(), "Running, checking triggers every %s. Press Ctrl+C to stop.\n", c.Interval)
	if err := ctx.Runner(c.Interval).Run(runCtx); err != nil && runCtx.Err() == nil {
		return err
	}
	return nil
}
