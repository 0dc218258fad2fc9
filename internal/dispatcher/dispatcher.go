// Package dispatcher handles a fired trigger: it resolves the message,
// shows it, records the delivery and re-arms the trigger for the next day.
package dispatcher

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/devotional/internal/constants"
	"github.com/julianstephens/devotional/internal/coordinator"
	"github.com/julianstephens/devotional/internal/logger"
	"github.com/julianstephens/devotional/internal/models"
	"github.com/julianstephens/devotional/internal/notifier"
	"github.com/julianstephens/devotional/internal/storage"
	"github.com/julianstephens/devotional/internal/utils"
)

// Store is the part of the storage provider a firing touches
type Store interface {
	storage.ContentStore
	storage.DeliveryLog
}

// Rearmer schedules the next occurrence of a kind
type Rearmer interface {
	Rearm(ctx context.Context, kind models.TriggerKind) error
}

type Dispatcher struct {
	store    Store
	content  *coordinator.Coordinator
	rearm    Rearmer
	notifier notifier.Notifier
	clock    utils.Clock
	log      *log.Logger
}

// New wires a dispatcher. content should fetch with a single attempt so a
// firing never waits on retries.
func New(store Store, content *coordinator.Coordinator, rearm Rearmer, n notifier.Notifier, clock utils.Clock) *Dispatcher {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Dispatcher{
		store:    store,
		content:  content,
		rearm:    rearm,
		notifier: n,
		clock:    clock,
		log:      logger.Component("dispatcher"),
	}
}

// Fire handles one firing of t. Delivery problems are logged, never shown
// to the user; the returned error only reports a failed re-arm.
func (d *Dispatcher) Fire(ctx context.Context, t models.Trigger) error {
	prefs := d.store.LoadPreferences()
	if !prefs.Allows(t.Kind) {
		d.log.Info("Suppressed disabled trigger", "trigger", t.ID, "kind", t.Kind)
		// unregisters the kind so it stops firing
		if err := d.rearm.Rearm(ctx, t.Kind); err != nil {
			return fmt.Errorf("failed to cancel disabled %s trigger: %w", t.Kind, err)
		}
		return nil
	}

	switch t.Kind {
	case models.KindMorning:
		d.deliver(ctx, d.morning(), 0, false)
	case models.KindNugget:
		n, entryID, fallback := d.nugget(ctx)
		d.deliver(ctx, n, entryID, fallback)
	case models.KindPrefetch:
		if _, err := d.content.Refresh(ctx); err != nil {
			d.log.Warn("Prefetch failed", "error", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown trigger kind %q", t.Kind)
	}

	if err := d.rearm.Rearm(ctx, t.Kind); err != nil {
		return fmt.Errorf("failed to re-arm %s: %w", t.Kind, err)
	}
	return nil
}

func (d *Dispatcher) morning() models.Notification {
	return models.Notification{
		ID:      constants.MorningNotificationID,
		Title:   constants.MorningTitle,
		Body:    constants.MorningBody,
		Payload: models.Payload{Kind: models.KindMorning},
	}
}

// nugget resolves today's nugget cache-first with at most one refresh and
// falls back to the static body.
func (d *Dispatcher) nugget(ctx context.Context) (models.Notification, int, bool) {
	n := models.Notification{
		ID:      constants.NuggetNotificationID,
		Title:   constants.NuggetTitle,
		Body:    constants.NuggetFallback,
		Payload: models.Payload{Kind: models.KindNugget},
	}

	entry, text, ok := d.content.TodayNuggetEntry(ctx)
	if entry.ID != 0 {
		n.Payload.EntryID = entry.ID
	}
	if ok {
		if plain := utils.PlainText(text); plain != "" {
			n.Body = plain
			return n, entry.ID, false
		}
	}
	d.log.Info("Using fallback nugget body", "reason", "no nugget for today", "entry_id", entry.ID)
	return n, entry.ID, true
}

func (d *Dispatcher) deliver(ctx context.Context, n models.Notification, entryID int, fallback bool) {
	if err := d.notifier.Show(ctx, n); err != nil {
		d.log.Error("Failed to show notification", "id", n.ID, "kind", n.Payload.Kind, "error", err)
		return
	}
	d.log.Info("Notification shown", "id", n.ID, "kind", n.Payload.Kind, "fallback", fallback)

	err := d.store.RecordDelivery(models.Delivery{
		NotificationID: n.ID,
		Kind:           n.Payload.Kind,
		EntryID:        entryID,
		Body:           n.Body,
		Fallback:       fallback,
		DeliveredAt:    d.clock.Now(),
	})
	if err != nil {
		d.log.Warn("Failed to record delivery", "id", n.ID, "error", err)
	}
}

// Destination is where a tapped notification leads
type Destination struct {
	Kind  models.TriggerKind `json:"kind"`
	Entry *models.Entry      `json:"entry,omitempty"`
}

// Open resolves a notification payload to the entry the UI should show.
// Morning opens today's devotional; nugget opens the entry that supplied
// the nugget, or today's when the payload has no id. A missing entry is not
// an error.
func (d *Dispatcher) Open(payload string) (Destination, error) {
	p, err := models.DecodePayload(payload)
	if err != nil {
		return Destination{}, err
	}
	return Resolve(d.content, p), nil
}

// Resolve maps a decoded payload to its destination using cached content only
func Resolve(content *coordinator.Coordinator, p models.Payload) Destination {
	dest := Destination{Kind: p.Kind}
	if p.Kind == models.KindNugget && p.EntryID != 0 {
		if e, ok := content.Entry(p.EntryID); ok {
			dest.Entry = &e
		}
		return dest
	}
	if e, ok := content.TodayEntry(); ok {
		dest.Entry = &e
	}
	return dest
}
