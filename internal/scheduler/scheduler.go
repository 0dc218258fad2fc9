// Package scheduler computes trigger times for the morning reminder and
// the daily nugget and keeps their platform registrations in step with the
// user's preferences.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/devotional/internal/alarm"
	"github.com/julianstephens/devotional/internal/config"
	"github.com/julianstephens/devotional/internal/constants"
	"github.com/julianstephens/devotional/internal/logger"
	"github.com/julianstephens/devotional/internal/models"
	"github.com/julianstephens/devotional/internal/utils"
)

// AlarmSink is the platform scheduling facility
type AlarmSink interface {
	Register(ctx context.Context, r models.Registration) error
	Unregister(ctx context.Context, triggerID string) error
	Registrations(ctx context.Context) ([]models.Registration, error)
}

// TrayClearer removes delivered notifications from the tray
type TrayClearer interface {
	Clear(ctx context.Context, notificationID int) error
}

type PreferenceStore interface {
	LoadPreferences() models.Preferences
}

const day = 24 * time.Hour

type Scheduler struct {
	sink  AlarmSink
	prefs PreferenceStore
	tray  TrayClearer
	clock utils.Clock
	loc   *time.Location
	slots config.Slots
	log   *log.Logger
}

func New(sink AlarmSink, prefs PreferenceStore, tray TrayClearer, clock utils.Clock, loc *time.Location, slots config.Slots) *Scheduler {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		sink:  sink,
		prefs: prefs,
		tray:  tray,
		clock: clock,
		loc:   loc,
		slots: slots,
		log:   logger.Component("scheduler"),
	}
}

// NextOccurrence returns the next instant after now at tod in the
// scheduler's zone.
func (s *Scheduler) NextOccurrence(tod utils.TimeOfDay) time.Time {
	return utils.NextOccurrence(s.clock.Now().In(s.loc), tod)
}

// ScheduleMorning registers the morning reminder on two channels under the
// same trigger id: an exact alarm (inexact when exact is denied) and a
// periodic daily job. Repeated calls replace the registrations.
func (s *Scheduler) ScheduleMorning(ctx context.Context) error {
	fireAt := s.NextOccurrence(s.slots.Morning)
	now := s.clock.Now()

	var errs []error
	alarmErr := s.registerAlarm(ctx, constants.MorningTriggerID, models.KindMorning, fireAt, now)
	if alarmErr != nil {
		errs = append(errs, alarmErr)
	}
	workErr := s.sink.Register(ctx, models.Registration{
		TriggerID: constants.MorningTriggerID,
		Kind:      models.KindMorning,
		Channel:   models.ChannelWork,
		Mechanism: models.MechanismPeriodic,
		FireAt:    fireAt,
		Interval:  day,
		CreatedAt: now,
	})
	if workErr != nil {
		s.log.Warn("Periodic morning registration failed", "error", workErr)
		errs = append(errs, workErr)
	}

	// one surviving registration is enough
	if alarmErr != nil && workErr != nil {
		return fmt.Errorf("failed to schedule morning reminder: %w", errors.Join(errs...))
	}
	s.log.Info("Scheduled morning reminder", "trigger", constants.MorningTriggerID, "fire_at", fireAt)
	return nil
}

// registerAlarm registers an exact one-shot alarm and degrades to an
// inexact one when the capability is denied.
func (s *Scheduler) registerAlarm(ctx context.Context, id string, kind models.TriggerKind, fireAt, now time.Time) error {
	r := models.Registration{
		TriggerID: id,
		Kind:      kind,
		Channel:   models.ChannelAlarm,
		Mechanism: models.MechanismExact,
		FireAt:    fireAt,
		CreatedAt: now,
	}
	err := s.sink.Register(ctx, r)
	if errors.Is(err, alarm.ErrExactAlarmDenied) {
		s.log.Warn("Exact alarms denied, falling back to inexact", "trigger", id, "reason", err)
		r.Mechanism = models.MechanismInexact
		err = s.sink.Register(ctx, r)
	}
	if err != nil {
		s.log.Warn("Alarm registration failed", "trigger", id, "error", err)
	}
	return err
}

// ScheduleNugget registers the nugget as periodic daily work and, ahead of
// it, the background prefetch that warms the cache.
func (s *Scheduler) ScheduleNugget(ctx context.Context) error {
	now := s.clock.Now()
	nuggetAt := s.NextOccurrence(s.slots.Nugget)
	prefetchAt := s.NextOccurrence(s.slots.Prefetch)

	if err := s.sink.Register(ctx, models.Registration{
		TriggerID: constants.NuggetTriggerID,
		Kind:      models.KindNugget,
		Channel:   models.ChannelWork,
		Mechanism: models.MechanismPeriodic,
		FireAt:    nuggetAt,
		Interval:  day,
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("failed to schedule nugget: %w", err)
	}

	if err := s.sink.Register(ctx, models.Registration{
		TriggerID: constants.PrefetchTriggerID,
		Kind:      models.KindPrefetch,
		Channel:   models.ChannelWork,
		Mechanism: models.MechanismPeriodic,
		FireAt:    prefetchAt,
		Interval:  day,
		CreatedAt: now,
	}); err != nil {
		// the nugget still fires; it falls back to a fetch at delivery
		s.log.Warn("Failed to schedule nugget prefetch", "error", err)
	}

	s.log.Info("Scheduled nugget", "trigger", constants.NuggetTriggerID, "fire_at", nuggetAt, "prefetch_at", prefetchAt)
	return nil
}

// CancelMorning unregisters the morning trigger and clears its notification
func (s *Scheduler) CancelMorning(ctx context.Context) error {
	return s.cancel(ctx, constants.MorningNotificationID, constants.MorningTriggerID)
}

// CancelNugget unregisters the nugget and its prefetch and clears the
// nugget notification.
func (s *Scheduler) CancelNugget(ctx context.Context) error {
	return s.cancel(ctx, constants.NuggetNotificationID, constants.NuggetTriggerID, constants.PrefetchTriggerID)
}

func (s *Scheduler) cancel(ctx context.Context, notificationID int, triggerIDs ...string) error {
	for _, id := range triggerIDs {
		if err := s.sink.Unregister(ctx, id); err != nil {
			return fmt.Errorf("failed to cancel %s: %w", id, err)
		}
	}
	if s.tray != nil {
		if err := s.tray.Clear(ctx, notificationID); err != nil {
			// nothing delivered or no tray running
			s.log.Debug("Could not clear notification", "id", notificationID, "error", err)
		}
	}
	s.log.Info("Cancelled trigger", "trigger", triggerIDs[0])
	return nil
}

// RescheduleAllFromPreferences schedules each kind whose master and own
// toggles are on and cancels the rest.
func (s *Scheduler) RescheduleAllFromPreferences(ctx context.Context) error {
	prefs := s.prefs.LoadPreferences()
	s.log.Debug("Rescheduling from preferences", "master", prefs.MasterEnabled, "morning", prefs.MorningEnabled, "nugget", prefs.NuggetEnabled)

	var errs []error
	if prefs.Allows(models.KindMorning) {
		errs = append(errs, s.ScheduleMorning(ctx))
	} else {
		errs = append(errs, s.CancelMorning(ctx))
	}
	if prefs.Allows(models.KindNugget) {
		errs = append(errs, s.ScheduleNugget(ctx))
	} else {
		errs = append(errs, s.CancelNugget(ctx))
	}
	return errors.Join(errs...)
}

// Rearm schedules the next occurrence of a fired kind. A kind disabled since
// it was registered is cancelled instead, so its periodic registration stops
// firing. Prefetch follows the nugget.
func (s *Scheduler) Rearm(ctx context.Context, kind models.TriggerKind) error {
	enabled := s.prefs.LoadPreferences().Allows(kind)
	switch kind {
	case models.KindMorning:
		if !enabled {
			return s.CancelMorning(ctx)
		}
		return s.ScheduleMorning(ctx)
	case models.KindNugget:
		if !enabled {
			return s.CancelNugget(ctx)
		}
		return s.ScheduleNugget(ctx)
	case models.KindPrefetch:
		if !enabled {
			return s.CancelNugget(ctx)
		}
	}
	return nil
}

// knownTriggers maps each trigger id to its kind
var knownTriggers = map[string]models.TriggerKind{
	constants.MorningTriggerID:  models.KindMorning,
	constants.NuggetTriggerID:   models.KindNugget,
	constants.PrefetchTriggerID: models.KindPrefetch,
}

// CleanupStale removes registrations left by older versions, those whose
// trigger id is unknown or whose kind does not match the id.
func (s *Scheduler) CleanupStale(ctx context.Context) (int, error) {
	regs, err := s.sink.Registrations(ctx)
	if err != nil {
		return 0, err
	}

	stale := map[string]bool{}
	for _, r := range regs {
		if kind, ok := knownTriggers[r.TriggerID]; !ok || kind != r.Kind {
			stale[r.TriggerID] = true
		}
	}
	for id := range stale {
		if err := s.sink.Unregister(ctx, id); err != nil {
			return 0, fmt.Errorf("failed to remove stale trigger %s: %w", id, err)
		}
		s.log.Info("Removed stale trigger", "trigger", id)
	}
	return len(stale), nil
}

// Status reports each kind's registrations. A kind without registrations
// is unscheduled.
func (s *Scheduler) Status(ctx context.Context) ([]models.TriggerStatus, error) {
	regs, err := s.sink.Registrations(ctx)
	if err != nil {
		return nil, err
	}

	order := []struct {
		kind models.TriggerKind
		id   string
	}{
		{models.KindMorning, constants.MorningTriggerID},
		{models.KindNugget, constants.NuggetTriggerID},
		{models.KindPrefetch, constants.PrefetchTriggerID},
	}

	out := make([]models.TriggerStatus, 0, len(order))
	for _, o := range order {
		st := models.TriggerStatus{Kind: o.kind, TriggerID: o.id, State: models.StateUnscheduled, Registrations: []models.Registration{}}
		for _, r := range regs {
			if r.TriggerID != o.id {
				continue
			}
			st.Registrations = append(st.Registrations, r)
			if st.NextFireAt == nil || r.FireAt.Before(*st.NextFireAt) {
				next := r.FireAt.In(s.loc)
				st.NextFireAt = &next
			}
		}
		if len(st.Registrations) > 0 {
			st.State = models.StateScheduled
		}
		out = append(out, st)
	}
	return out, nil
}
