// Package coordinator is the single source of truth for cached content. It
// serves reads from the store and refreshes it from the network on request.
package coordinator

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/devotional/internal/fetcher"
	"github.com/julianstephens/devotional/internal/logger"
	"github.com/julianstephens/devotional/internal/models"
	"github.com/julianstephens/devotional/internal/storage"
	"github.com/julianstephens/devotional/internal/utils"
)

// ContentSource fetches the full entry list from upstream
type ContentSource interface {
	FetchAll(ctx context.Context) ([]models.Entry, error)
}

type Coordinator struct {
	store  storage.ContentStore
	source ContentSource
	clock  utils.Clock
	loc    *time.Location
	log    *log.Logger
}

// New wires a coordinator. loc is the zone in which entry dates and "today"
// are compared; nil means the system zone.
func New(store storage.ContentStore, source ContentSource, clock utils.Clock, loc *time.Location) *Coordinator {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Coordinator{
		store:  store,
		source: source,
		clock:  clock,
		loc:    loc,
		log:    logger.Component("coordinator"),
	}
}

// WithSource returns a coordinator sharing the store but fetching through source
func (c *Coordinator) WithSource(source ContentSource) *Coordinator {
	cp := *c
	cp.source = source
	return &cp
}

// Entries returns the cached entries. It never touches the network.
func (c *Coordinator) Entries() []models.Entry {
	return c.store.LoadEntries()
}

// Refresh fetches, sorts by date descending and persists the result. On
// failure the cache is left as it was.
func (c *Coordinator) Refresh(ctx context.Context) ([]models.Entry, error) {
	return c.refreshFrom(ctx, c.source)
}

func (c *Coordinator) refreshFrom(ctx context.Context, source ContentSource) ([]models.Entry, error) {
	entries, err := source.FetchAll(ctx)
	if err != nil {
		c.log.Warn("Refresh failed, keeping cached content", "error", err)
		return nil, err
	}

	c.sortByDateDesc(entries)
	if err := c.store.SaveEntries(entries); err != nil {
		c.log.Error("Failed to persist refreshed entries", "error", err)
		return nil, err
	}
	c.log.Info("Refreshed entries", "count", len(entries))
	return entries, nil
}

// sortByDateDesc orders entries newest first. Unparsable dates sort last;
// ties keep upstream order.
func (c *Coordinator) sortByDateDesc(entries []models.Entry) {
	type keyed struct {
		entry models.Entry
		at    time.Time
		ok    bool
	}
	ks := make([]keyed, len(entries))
	for i, e := range entries {
		t, err := models.ParseEntryDate(e.Date, c.loc)
		ks[i] = keyed{entry: e, at: t, ok: err == nil}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		if ks[i].ok != ks[j].ok {
			return ks[i].ok
		}
		return ks[i].at.After(ks[j].at)
	})
	for i := range ks {
		entries[i] = ks[i].entry
	}
}

// Now returns the current time in the content zone
func (c *Coordinator) Now() time.Time {
	return c.clock.Now().In(c.loc)
}

// Location returns the content zone
func (c *Coordinator) Location() *time.Location {
	return c.loc
}

// TodayEntry returns the first cached entry, in storage order, whose date
// falls on the current calendar day.
func (c *Coordinator) TodayEntry() (models.Entry, bool) {
	return findToday(c.Entries(), c.Now())
}

func findToday(entries []models.Entry, now time.Time) (models.Entry, bool) {
	for _, e := range entries {
		if e.FallsOn(now) {
			return e, true
		}
	}
	return models.Entry{}, false
}

// nuggetSource is the source for the nugget fallback refresh. A fetcher
// loses its retry policy so the lookup makes at most one network attempt.
func (c *Coordinator) nuggetSource() ContentSource {
	if f, ok := c.source.(*fetcher.Fetcher); ok {
		return f.Once()
	}
	return c.source
}

// TodayNuggetEntry resolves today's nugget cache-first. When the cache has
// no nugget for today it makes one single-attempt refresh and looks again,
// whatever retry policy the coordinator's source carries. The returned
// entry is today's entry even when it carries no nugget.
func (c *Coordinator) TodayNuggetEntry(ctx context.Context) (models.Entry, string, bool) {
	entry, found := c.TodayEntry()
	if found {
		if nugget, ok := entry.Nugget(); ok {
			return entry, nugget, true
		}
	}

	c.log.Debug("No cached nugget for today, refreshing", "today", utils.Today(c.Now()), "entry_found", found)
	entries, err := c.refreshFrom(ctx, c.nuggetSource())
	if err != nil {
		return entry, "", false
	}

	entry, found = findToday(entries, c.Now())
	if !found {
		return models.Entry{}, "", false
	}
	nugget, ok := entry.Nugget()
	return entry, nugget, ok
}

// TodayNugget returns today's nugget, or false when neither cache nor one
// refresh has it.
func (c *Coordinator) TodayNugget(ctx context.Context) (string, bool) {
	_, nugget, ok := c.TodayNuggetEntry(ctx)
	return nugget, ok
}

// Entry returns the cached entry with id
func (c *Coordinator) Entry(id int) (models.Entry, bool) {
	for _, e := range c.Entries() {
		if e.ID == id {
			return e, true
		}
	}
	return models.Entry{}, false
}
