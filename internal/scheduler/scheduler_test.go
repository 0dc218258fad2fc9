package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/devotional/internal/alarm"
	"github.com/julianstephens/devotional/internal/config"
	"github.com/julianstephens/devotional/internal/constants"
	"github.com/julianstephens/devotional/internal/models"
	"github.com/julianstephens/devotional/internal/storage/sqlite"
	"github.com/julianstephens/devotional/internal/utils"
)

type key struct {
	id      string
	channel models.Channel
}

// fakeSink keeps registrations keyed like the real alarm table
type fakeSink struct {
	mu           sync.Mutex
	regs         map[key]models.Registration
	denyExact    bool
	failChannels map[models.Channel]bool
	registers    int
}

func newFakeSink() *fakeSink {
	return &fakeSink{regs: map[key]models.Registration{}, failChannels: map[models.Channel]bool{}}
}

func (f *fakeSink) Register(ctx context.Context, r models.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registers++
	if r.Mechanism == models.MechanismExact && f.denyExact {
		return alarm.ErrExactAlarmDenied
	}
	if f.failChannels[r.Channel] {
		return errors.New("channel unavailable")
	}
	f.regs[key{r.TriggerID, r.Channel}] = r
	return nil
}

func (f *fakeSink) Unregister(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.regs {
		if k.id == id {
			delete(f.regs, k)
		}
	}
	return nil
}

func (f *fakeSink) Registrations(ctx context.Context) ([]models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Registration
	for _, r := range f.regs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TriggerID != out[j].TriggerID {
			return out[i].TriggerID < out[j].TriggerID
		}
		return out[i].Channel < out[j].Channel
	})
	return out, nil
}

func (f *fakeSink) forTrigger(id string) []models.Registration {
	regs, _ := f.Registrations(context.Background())
	var out []models.Registration
	for _, r := range regs {
		if r.TriggerID == id {
			out = append(out, r)
		}
	}
	return out
}

type fakeTray struct {
	cleared []int
}

func (f *fakeTray) Clear(ctx context.Context, id int) error {
	f.cleared = append(f.cleared, id)
	return nil
}

type prefsStub struct {
	prefs models.Preferences
}

func (p *prefsStub) LoadPreferences() models.Preferences { return p.prefs }

var morningOfMarch1 = time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC)

func newTestScheduler(sink AlarmSink, prefs models.Preferences, tray *fakeTray, now time.Time) *Scheduler {
	return New(sink, &prefsStub{prefs: prefs}, tray, utils.FixedClock{T: now}, time.UTC, config.DefaultSlots())
}

func TestScheduleMorningDualRegistration(t *testing.T) {
	sink := newFakeSink()
	s := newTestScheduler(sink, models.DefaultPreferences(), &fakeTray{}, morningOfMarch1)

	if err := s.ScheduleMorning(context.Background()); err != nil {
		t.Fatalf("ScheduleMorning() error: %v", err)
	}

	regs := sink.forTrigger(constants.MorningTriggerID)
	if len(regs) != 2 {
		t.Fatalf("expected alarm and work registrations, got %+v", regs)
	}
	want := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	for _, r := range regs {
		if !r.FireAt.Equal(want) {
			t.Errorf("%s fire_at = %s, want %s", r.Channel, r.FireAt, want)
		}
		if r.Kind != models.KindMorning {
			t.Errorf("%s kind = %s", r.Channel, r.Kind)
		}
	}
	if regs[0].Channel != models.ChannelAlarm || regs[0].Mechanism != models.MechanismExact {
		t.Errorf("alarm registration = %+v", regs[0])
	}
	if regs[1].Channel != models.ChannelWork || regs[1].Interval != 24*time.Hour {
		t.Errorf("work registration = %+v", regs[1])
	}
}

func TestScheduleMorningIdempotent(t *testing.T) {
	sink := newFakeSink()
	s := newTestScheduler(sink, models.DefaultPreferences(), &fakeTray{}, morningOfMarch1)

	for i := 0; i < 2; i++ {
		if err := s.ScheduleMorning(context.Background()); err != nil {
			t.Fatalf("ScheduleMorning() error: %v", err)
		}
	}
	status, _ := s.Status(context.Background())
	if status[0].State != models.StateScheduled || len(status[0].Registrations) != 2 {
		t.Errorf("expected one trigger with two channels, got %+v", status[0])
	}
}

func TestScheduleMorningAfterSlotTargetsTomorrow(t *testing.T) {
	sink := newFakeSink()
	now := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	s := newTestScheduler(sink, models.DefaultPreferences(), &fakeTray{}, now)

	if err := s.ScheduleMorning(context.Background()); err != nil {
		t.Fatalf("ScheduleMorning() error: %v", err)
	}
	want := time.Date(2024, 3, 2, 6, 0, 0, 0, time.UTC)
	for _, r := range sink.forTrigger(constants.MorningTriggerID) {
		if !r.FireAt.Equal(want) {
			t.Errorf("fire_at = %s, want %s", r.FireAt, want)
		}
	}
}

func TestScheduleMorningExactDenied(t *testing.T) {
	sink := newFakeSink()
	sink.denyExact = true
	s := newTestScheduler(sink, models.DefaultPreferences(), &fakeTray{}, morningOfMarch1)

	if err := s.ScheduleMorning(context.Background()); err != nil {
		t.Fatalf("ScheduleMorning() should degrade, got %v", err)
	}
	regs := sink.forTrigger(constants.MorningTriggerID)
	if len(regs) != 2 || regs[0].Mechanism != models.MechanismInexact {
		t.Errorf("expected inexact alarm fallback, got %+v", regs)
	}
}

func TestScheduleMorningOneChannelSuffices(t *testing.T) {
	sink := newFakeSink()
	sink.failChannels[models.ChannelWork] = true
	s := newTestScheduler(sink, models.DefaultPreferences(), &fakeTray{}, morningOfMarch1)

	if err := s.ScheduleMorning(context.Background()); err != nil {
		t.Fatalf("ScheduleMorning() error: %v", err)
	}

	sink.failChannels[models.ChannelAlarm] = true
	if err := s.ScheduleMorning(context.Background()); err == nil {
		t.Error("expected error when every channel fails")
	}
}

func TestScheduleNugget(t *testing.T) {
	sink := newFakeSink()
	now := time.Date(2024, 3, 1, 9, 50, 0, 0, time.UTC)
	s := newTestScheduler(sink, models.DefaultPreferences(), &fakeTray{}, now)

	if err := s.ScheduleNugget(context.Background()); err != nil {
		t.Fatalf("ScheduleNugget() error: %v", err)
	}

	nugget := sink.forTrigger(constants.NuggetTriggerID)
	if len(nugget) != 1 || !nugget[0].FireAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("nugget registration = %+v", nugget)
	}
	// prefetch slot already passed today
	prefetch := sink.forTrigger(constants.PrefetchTriggerID)
	if len(prefetch) != 1 || !prefetch[0].FireAt.Equal(time.Date(2024, 3, 2, 9, 45, 0, 0, time.UTC)) {
		t.Errorf("prefetch registration = %+v", prefetch)
	}
}

func TestCancel(t *testing.T) {
	sink := newFakeSink()
	tray := &fakeTray{}
	s := newTestScheduler(sink, models.DefaultPreferences(), tray, morningOfMarch1)
	ctx := context.Background()

	if err := s.ScheduleMorning(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.ScheduleNugget(ctx); err != nil {
		t.Fatal(err)
	}

	if err := s.CancelNugget(ctx); err != nil {
		t.Fatalf("CancelNugget() error: %v", err)
	}
	if len(sink.forTrigger(constants.NuggetTriggerID)) != 0 || len(sink.forTrigger(constants.PrefetchTriggerID)) != 0 {
		t.Error("nugget and prefetch should be unregistered")
	}
	if len(sink.forTrigger(constants.MorningTriggerID)) != 2 {
		t.Error("cancelling the nugget must not touch the morning trigger")
	}

	if err := s.CancelMorning(ctx); err != nil {
		t.Fatalf("CancelMorning() error: %v", err)
	}
	if len(sink.forTrigger(constants.MorningTriggerID)) != 0 {
		t.Error("morning should be unregistered")
	}

	want := []int{constants.NuggetNotificationID, constants.MorningNotificationID}
	if len(tray.cleared) != 2 || tray.cleared[0] != want[0] || tray.cleared[1] != want[1] {
		t.Errorf("cleared = %v, want %v", tray.cleared, want)
	}
}

func TestRescheduleAllFromPreferences(t *testing.T) {
	tests := []struct {
		name        string
		prefs       models.Preferences
		wantMorning bool
		wantNugget  bool
	}{
		{name: "all on", prefs: models.DefaultPreferences(), wantMorning: true, wantNugget: true},
		{name: "master off", prefs: models.Preferences{MasterEnabled: false, MorningEnabled: true, NuggetEnabled: true}},
		{name: "morning off nugget on", prefs: models.Preferences{MasterEnabled: true, MorningEnabled: false, NuggetEnabled: true}, wantNugget: true},
		{name: "nugget off", prefs: models.Preferences{MasterEnabled: true, MorningEnabled: true, NuggetEnabled: false}, wantMorning: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := newFakeSink()
			ctx := context.Background()

			// start from everything scheduled
			all := newTestScheduler(sink, models.DefaultPreferences(), &fakeTray{}, morningOfMarch1)
			if err := all.RescheduleAllFromPreferences(ctx); err != nil {
				t.Fatal(err)
			}

			s := newTestScheduler(sink, tt.prefs, &fakeTray{}, morningOfMarch1)
			if err := s.RescheduleAllFromPreferences(ctx); err != nil {
				t.Fatalf("RescheduleAllFromPreferences() error: %v", err)
			}

			status, err := s.Status(ctx)
			if err != nil {
				t.Fatal(err)
			}
			gotMorning := status[0].State == models.StateScheduled
			gotNugget := status[1].State == models.StateScheduled
			gotPrefetch := status[2].State == models.StateScheduled
			if gotMorning != tt.wantMorning || gotNugget != tt.wantNugget || gotPrefetch != tt.wantNugget {
				t.Errorf("scheduled morning=%v nugget=%v prefetch=%v; want morning=%v nugget=%v",
					gotMorning, gotNugget, gotPrefetch, tt.wantMorning, tt.wantNugget)
			}
		})
	}
}

func TestRearm(t *testing.T) {
	sink := newFakeSink()
	prefs := &prefsStub{prefs: models.DefaultPreferences()}
	now := time.Date(2024, 3, 1, 6, 0, 1, 0, time.UTC)
	s := New(sink, prefs, &fakeTray{}, utils.FixedClock{T: now}, time.UTC, config.DefaultSlots())
	ctx := context.Background()

	if err := s.Rearm(ctx, models.KindMorning); err != nil {
		t.Fatalf("Rearm() error: %v", err)
	}
	regs := sink.forTrigger(constants.MorningTriggerID)
	if len(regs) != 2 || !regs[0].FireAt.Equal(time.Date(2024, 3, 2, 6, 0, 0, 0, time.UTC)) {
		t.Errorf("re-armed registrations = %+v", regs)
	}

	prefs.prefs.NuggetEnabled = false
	if err := s.Rearm(ctx, models.KindNugget); err != nil {
		t.Fatalf("Rearm() error: %v", err)
	}
	if len(sink.forTrigger(constants.NuggetTriggerID)) != 0 {
		t.Error("disabled kind must not be re-armed")
	}
}

func TestRearmCancelsKindDisabledAfterRegistration(t *testing.T) {
	sink := newFakeSink()
	prefs := &prefsStub{prefs: models.DefaultPreferences()}
	s := New(sink, prefs, &fakeTray{}, utils.FixedClock{T: morningOfMarch1}, time.UTC, config.DefaultSlots())
	ctx := context.Background()

	if err := s.RescheduleAllFromPreferences(ctx); err != nil {
		t.Fatal(err)
	}
	prefs.prefs.NuggetEnabled = false
	prefs.prefs.MorningEnabled = false

	for _, kind := range []models.TriggerKind{models.KindPrefetch, models.KindMorning} {
		if err := s.Rearm(ctx, kind); err != nil {
			t.Fatalf("Rearm(%s) error: %v", kind, err)
		}
	}

	status, err := s.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, st := range status {
		if st.State != models.StateUnscheduled {
			t.Errorf("%s should fall to unscheduled, got %s with %d registrations", st.Kind, st.State, len(st.Registrations))
		}
	}
}

func TestCleanupStale(t *testing.T) {
	sink := newFakeSink()
	s := newTestScheduler(sink, models.DefaultPreferences(), &fakeTray{}, morningOfMarch1)
	ctx := context.Background()

	if err := s.ScheduleNugget(ctx); err != nil {
		t.Fatal(err)
	}
	stale := []models.Registration{
		{TriggerID: "com.devotionalapp.nuggetAlarm", Kind: models.KindNugget, Channel: models.ChannelAlarm, Mechanism: models.MechanismExact, FireAt: morningOfMarch1},
		{TriggerID: constants.MorningTriggerID, Kind: models.KindNugget, Channel: models.ChannelAlarm, Mechanism: models.MechanismExact, FireAt: morningOfMarch1},
	}
	for _, r := range stale {
		if err := sink.Register(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.CleanupStale(ctx)
	if err != nil {
		t.Fatalf("CleanupStale() error: %v", err)
	}
	if n != 2 {
		t.Errorf("CleanupStale() removed %d, want 2", n)
	}
	regs, _ := sink.Registrations(ctx)
	if len(regs) != 2 {
		t.Errorf("expected nugget and prefetch to survive, got %+v", regs)
	}
}

func TestWithStoreBackedSink(t *testing.T) {
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	defer store.Close()

	sink := alarm.NewSink(store, false)
	s := New(sink, store, &fakeTray{}, utils.FixedClock{T: morningOfMarch1}, time.UTC, config.DefaultSlots())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.RescheduleAllFromPreferences(ctx); err != nil {
			t.Fatalf("RescheduleAllFromPreferences() error: %v", err)
		}
	}

	regs, err := store.GetRegistrations()
	if err != nil {
		t.Fatal(err)
	}
	// morning alarm + morning work + nugget work + prefetch work
	if len(regs) != 4 {
		t.Fatalf("expected 4 registrations, got %d: %+v", len(regs), regs)
	}
	for _, r := range regs {
		if r.Mechanism == models.MechanismExact {
			t.Errorf("exact registration stored although denied: %+v", r)
		}
	}
}
