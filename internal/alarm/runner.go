package alarm

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/devotional/internal/constants"
	"github.com/julianstephens/devotional/internal/logger"
	"github.com/julianstephens/devotional/internal/models"
	"github.com/julianstephens/devotional/internal/storage"
	"github.com/julianstephens/devotional/internal/utils"
)

// Handler is invoked once per due trigger
type Handler interface {
	Fire(ctx context.Context, t models.Trigger) error
}

type HandlerFunc func(ctx context.Context, t models.Trigger) error

func (f HandlerFunc) Fire(ctx context.Context, t models.Trigger) error {
	return f(ctx, t)
}

// Runner fires due registrations
type Runner struct {
	store    storage.AlarmStore
	handler  Handler
	clock    utils.Clock
	interval time.Duration
	log      *log.Logger
}

func NewRunner(store storage.AlarmStore, handler Handler, clock utils.Clock, interval time.Duration) *Runner {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if interval <= 0 {
		interval = constants.DefaultTickInterval
	}
	return &Runner{
		store:    store,
		handler:  handler,
		clock:    clock,
		interval: interval,
		log:      logger.Component("alarm"),
	}
}

// Tick fires every due trigger once. A one-shot registration is removed
// before its handler runs; a periodic one is moved past now. When several
// channels of the same trigger are due together the handler runs once.
// It returns the number of triggers fired.
func (r *Runner) Tick(ctx context.Context) (int, error) {
	regs, err := r.store.GetRegistrations()
	if err != nil {
		return 0, fmt.Errorf("failed to read registrations: %w", err)
	}

	now := r.clock.Now()
	var (
		due  []models.Trigger
		seen = map[string]bool{}
	)
	for _, reg := range regs {
		if !reg.Due(now) {
			continue
		}
		if reg.OneShot() {
			if err := r.store.DeleteRegistration(reg.TriggerID, reg.Channel); err != nil {
				return 0, fmt.Errorf("failed to consume %s: %w", reg.TriggerID, err)
			}
		} else {
			reg.Advance(now)
			fired := now
			reg.LastFiredAt = &fired
			if err := r.store.PutRegistration(reg); err != nil {
				return 0, fmt.Errorf("failed to advance %s: %w", reg.TriggerID, err)
			}
		}
		if seen[reg.TriggerID] {
			r.log.Debug("Coalesced duplicate firing", "trigger", reg.TriggerID, "channel", reg.Channel)
			continue
		}
		seen[reg.TriggerID] = true
		t := reg.Trigger()
		t.FireAt = now
		due = append(due, t)
	}

	for _, t := range due {
		r.log.Info("Trigger fired", "trigger", t.ID, "kind", t.Kind)
		if err := r.handler.Fire(ctx, t); err != nil {
			r.log.Error("Trigger handler failed", "trigger", t.ID, "error", err)
		}
	}
	return len(due), nil
}

// Run ticks immediately and then on every interval until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("Alarm runner started", "interval", r.interval)

	if _, err := r.Tick(ctx); err != nil {
		r.log.Error("Tick failed", "error", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Alarm runner stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Tick(ctx); err != nil {
				r.log.Error("Tick failed", "error", err)
			}
		}
	}
}
