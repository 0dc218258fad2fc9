// Package alarm is the platform scheduler: registrations live in the store
// and a Runner fires the ones that come due.
package alarm

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/devotional/internal/logger"
	"github.com/julianstephens/devotional/internal/models"
	"github.com/julianstephens/devotional/internal/storage"
)

// ErrExactAlarmDenied is returned when an exact registration is requested
// but the host does not grant the capability.
var ErrExactAlarmDenied = errors.New("exact alarms are not permitted")

// Sink accepts trigger registrations. Registering the same trigger id and
// channel twice replaces the first registration.
type Sink struct {
	store        storage.AlarmStore
	exactAllowed bool
	log          *log.Logger
}

func NewSink(store storage.AlarmStore, exactAllowed bool) *Sink {
	return &Sink{
		store:        store,
		exactAllowed: exactAllowed,
		log:          logger.Component("alarm"),
	}
}

// ExactAllowed reports whether exact registrations are accepted
func (s *Sink) ExactAllowed() bool {
	return s.exactAllowed
}

func (s *Sink) Register(ctx context.Context, r models.Registration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Mechanism == models.MechanismExact && !s.exactAllowed {
		return ErrExactAlarmDenied
	}
	if err := s.store.PutRegistration(r); err != nil {
		return err
	}
	s.log.Debug("Registered trigger", "trigger", r.TriggerID, "channel", r.Channel, "mechanism", r.Mechanism, "fire_at", r.FireAt)
	return nil
}

// Unregister removes every channel of a trigger. Unknown ids are not an error.
func (s *Sink) Unregister(ctx context.Context, triggerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.DeleteRegistrations(triggerID); err != nil {
		return err
	}
	s.log.Debug("Unregistered trigger", "trigger", triggerID)
	return nil
}

func (s *Sink) Registrations(ctx context.Context) ([]models.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.GetRegistrations()
}
