package dispatcher

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/devotional/internal/constants"
	"github.com/julianstephens/devotional/internal/coordinator"
	"github.com/julianstephens/devotional/internal/fetcher"
	"github.com/julianstephens/devotional/internal/models"
	"github.com/julianstephens/devotional/internal/storage/sqlite"
	"github.com/julianstephens/devotional/internal/utils"
)

var march1 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type stubSource struct {
	mu      sync.Mutex
	calls   int
	entries []models.Entry
	err     error
}

func (s *stubSource) FetchAll(ctx context.Context) ([]models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.Entry{}, s.entries...), nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	shown []models.Notification
	err   error
}

func (r *recordingNotifier) Show(ctx context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.shown = append(r.shown, n)
	return nil
}

func (r *recordingNotifier) Clear(ctx context.Context, id int) error { return nil }

type fakeRearmer struct {
	kinds []models.TriggerKind
	err   error
}

func (f *fakeRearmer) Rearm(ctx context.Context, kind models.TriggerKind) error {
	f.kinds = append(f.kinds, kind)
	return f.err
}

type fixture struct {
	store    *sqlite.Store
	source   *stubSource
	notifier *recordingNotifier
	rearm    *fakeRearmer
	d        *Dispatcher
}

func setup(t *testing.T, cached []models.Entry) *fixture {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if cached != nil {
		if err := store.SaveEntries(cached); err != nil {
			t.Fatal(err)
		}
	}

	f := &fixture{
		store:    store,
		source:   &stubSource{},
		notifier: &recordingNotifier{},
		rearm:    &fakeRearmer{},
	}
	clock := utils.FixedClock{T: march1}
	content := coordinator.New(store, f.source, clock, time.UTC)
	f.d = New(store, content, f.rearm, f.notifier, clock)
	return f
}

func entry(id int, date, nugget string) models.Entry {
	e := models.Entry{ID: id, Date: date, Title: "entry"}
	if nugget != "" {
		e.Fields.Nugget = models.StringPtr(nugget)
	}
	return e
}

func trigger(kind models.TriggerKind) models.Trigger {
	ids := map[models.TriggerKind]string{
		models.KindMorning:  constants.MorningTriggerID,
		models.KindNugget:   constants.NuggetTriggerID,
		models.KindPrefetch: constants.PrefetchTriggerID,
	}
	return models.Trigger{ID: ids[kind], Kind: kind, FireAt: march1}
}

func (f *fixture) deliveries(t *testing.T) []models.Delivery {
	t.Helper()
	d, err := f.store.GetDeliveries(10)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestFireMorning(t *testing.T) {
	f := setup(t, nil)

	if err := f.d.Fire(context.Background(), trigger(models.KindMorning)); err != nil {
		t.Fatalf("Fire() error: %v", err)
	}

	if len(f.notifier.shown) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(f.notifier.shown))
	}
	n := f.notifier.shown[0]
	if n.ID != constants.MorningNotificationID || n.Title != constants.MorningTitle || n.Body != constants.MorningBody {
		t.Errorf("unexpected morning notification: %+v", n)
	}
	if n.Payload.Kind != models.KindMorning || n.Payload.EntryID != 0 {
		t.Errorf("unexpected payload: %+v", n.Payload)
	}
	if f.source.calls != 0 {
		t.Errorf("morning must not fetch, got %d calls", f.source.calls)
	}
	if len(f.rearm.kinds) != 1 || f.rearm.kinds[0] != models.KindMorning {
		t.Errorf("expected morning re-arm, got %v", f.rearm.kinds)
	}
	if d := f.deliveries(t); len(d) != 1 || d[0].Kind != models.KindMorning || d[0].Fallback {
		t.Errorf("unexpected deliveries: %+v", d)
	}
}

func TestFireNuggetFromCache(t *testing.T) {
	f := setup(t, []models.Entry{entry(7, "2024-03-01T00:05:38", "<p>Grace &amp; peace</p>")})

	if err := f.d.Fire(context.Background(), trigger(models.KindNugget)); err != nil {
		t.Fatalf("Fire() error: %v", err)
	}

	n := f.notifier.shown[0]
	if n.ID != constants.NuggetNotificationID || n.Body != "Grace & peace" {
		t.Errorf("unexpected nugget notification: %+v", n)
	}
	if n.Payload.Kind != models.KindNugget || n.Payload.EntryID != 7 {
		t.Errorf("unexpected payload: %+v", n.Payload)
	}
	if f.source.calls != 0 {
		t.Errorf("cached nugget must not fetch, got %d calls", f.source.calls)
	}
	d := f.deliveries(t)
	if len(d) != 1 || d[0].EntryID != 7 || d[0].Fallback {
		t.Errorf("unexpected deliveries: %+v", d)
	}
	if len(f.rearm.kinds) != 1 || f.rearm.kinds[0] != models.KindNugget {
		t.Errorf("expected nugget re-arm, got %v", f.rearm.kinds)
	}
}

func TestFireNuggetRefreshesOnce(t *testing.T) {
	f := setup(t, []models.Entry{entry(6, "2024-02-29T00:00:00", "old")})
	f.source.entries = []models.Entry{entry(8, "2024-03-01T00:00:00", "Fresh word")}

	if err := f.d.Fire(context.Background(), trigger(models.KindNugget)); err != nil {
		t.Fatalf("Fire() error: %v", err)
	}
	if f.source.calls != 1 {
		t.Errorf("expected one fetch, got %d", f.source.calls)
	}
	if got := f.notifier.shown[0]; got.Body != "Fresh word" || got.Payload.EntryID != 8 {
		t.Errorf("unexpected notification: %+v", got)
	}
}

func TestFireNuggetFallback(t *testing.T) {
	f := setup(t, []models.Entry{entry(9, "2024-03-01T00:00:00", "")})
	f.source.err = &fetcher.FetchError{Kind: fetcher.NoConnectivity, Err: errors.New("offline")}

	if err := f.d.Fire(context.Background(), trigger(models.KindNugget)); err != nil {
		t.Fatalf("Fire() error: %v", err)
	}

	n := f.notifier.shown[0]
	if n.Body != constants.NuggetFallback {
		t.Errorf("expected fallback body, got %q", n.Body)
	}
	if n.Payload.EntryID != 9 {
		t.Errorf("fallback should still point at today's entry, got %d", n.Payload.EntryID)
	}
	if f.source.calls != 1 {
		t.Errorf("expected a single fetch attempt, got %d", f.source.calls)
	}
	if d := f.deliveries(t); len(d) != 1 || !d[0].Fallback {
		t.Errorf("expected a fallback delivery, got %+v", d)
	}
	if len(f.store.LoadEntries()) != 1 {
		t.Error("failed refresh must leave the cache untouched")
	}
}

func TestFireSuppressedWhenDisabled(t *testing.T) {
	f := setup(t, nil)
	prefs := models.DefaultPreferences()
	prefs.NuggetEnabled = false
	if err := f.store.SavePreferences(prefs); err != nil {
		t.Fatal(err)
	}

	for _, kind := range []models.TriggerKind{models.KindNugget, models.KindPrefetch} {
		if err := f.d.Fire(context.Background(), trigger(kind)); err != nil {
			t.Fatalf("Fire(%s) error: %v", kind, err)
		}
	}
	if len(f.notifier.shown) != 0 || f.source.calls != 0 {
		t.Errorf("disabled kinds must not deliver or fetch: shown=%d calls=%d", len(f.notifier.shown), f.source.calls)
	}
	// the scheduler cancels a kind that is re-armed while disabled
	if !reflect.DeepEqual(f.rearm.kinds, []models.TriggerKind{models.KindNugget, models.KindPrefetch}) {
		t.Errorf("disabled kinds should be handed back to the scheduler, got %v", f.rearm.kinds)
	}

	if err := f.d.Fire(context.Background(), trigger(models.KindMorning)); err != nil {
		t.Fatal(err)
	}
	if len(f.notifier.shown) != 1 {
		t.Error("morning should still fire")
	}
}

func TestFirePrefetch(t *testing.T) {
	f := setup(t, nil)
	f.source.entries = []models.Entry{entry(8, "2024-03-01T00:00:00", "Fresh word")}

	if err := f.d.Fire(context.Background(), trigger(models.KindPrefetch)); err != nil {
		t.Fatalf("Fire() error: %v", err)
	}
	if len(f.notifier.shown) != 0 {
		t.Error("prefetch must not show a notification")
	}
	if len(f.rearm.kinds) != 0 {
		t.Errorf("prefetch must not re-arm, got %v", f.rearm.kinds)
	}
	if got := f.store.LoadEntries(); len(got) != 1 || got[0].ID != 8 {
		t.Errorf("prefetch should warm the cache, got %+v", got)
	}

	f.source.err = errors.New("boom")
	if err := f.d.Fire(context.Background(), trigger(models.KindPrefetch)); err != nil {
		t.Errorf("prefetch failure must not surface, got %v", err)
	}
}

func TestFireNotifierFailure(t *testing.T) {
	f := setup(t, nil)
	f.notifier.err = errors.New("tray gone")

	if err := f.d.Fire(context.Background(), trigger(models.KindMorning)); err != nil {
		t.Fatalf("Fire() error: %v", err)
	}
	if d := f.deliveries(t); len(d) != 0 {
		t.Errorf("undelivered notification must not be logged, got %+v", d)
	}
	if len(f.rearm.kinds) != 1 {
		t.Error("re-arm must happen even when showing fails")
	}
}

func TestFireRearmFailure(t *testing.T) {
	f := setup(t, nil)
	f.rearm.err = errors.New("sink down")

	if err := f.d.Fire(context.Background(), trigger(models.KindMorning)); err == nil {
		t.Error("expected re-arm error")
	}
	if len(f.notifier.shown) != 1 {
		t.Error("notification should be shown before re-arming")
	}
}

func TestFireUnknownKind(t *testing.T) {
	f := setup(t, nil)
	if err := f.d.Fire(context.Background(), models.Trigger{ID: "x", Kind: "bogus"}); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestOpen(t *testing.T) {
	f := setup(t, []models.Entry{
		entry(8, "2024-03-01T00:00:00", "today"),
		entry(6, "2024-02-29T00:00:00", "yesterday"),
	})

	tests := []struct {
		name    string
		payload models.Payload
		wantID  int
	}{
		{"morning opens today", models.Payload{Kind: models.KindMorning}, 8},
		{"nugget opens its entry", models.Payload{Kind: models.KindNugget, EntryID: 6}, 6},
		{"nugget without id opens today", models.Payload{Kind: models.KindNugget}, 8},
		{"nugget with unknown id", models.Payload{Kind: models.KindNugget, EntryID: 99}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest, err := f.d.Open(tt.payload.Encode())
			if err != nil {
				t.Fatalf("Open() error: %v", err)
			}
			if dest.Kind != tt.payload.Kind {
				t.Errorf("kind = %s, want %s", dest.Kind, tt.payload.Kind)
			}
			gotID := 0
			if dest.Entry != nil {
				gotID = dest.Entry.ID
			}
			if gotID != tt.wantID {
				t.Errorf("entry = %d, want %d", gotID, tt.wantID)
			}
		})
	}

	if _, err := f.d.Open("not json"); err == nil {
		t.Error("expected error for malformed payload")
	}
	if f.source.calls != 0 {
		t.Error("Open must not fetch")
	}
}
