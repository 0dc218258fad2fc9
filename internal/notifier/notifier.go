// Package notifier delivers notifications to the desktop tray or, when no
// tray is running, to the terminal.
package notifier

import (
	"context"
	"errors"

	"github.com/julianstephens/devotional/internal/models"
)

// Notifier shows and clears notifications. Showing a notification whose id
// is already displayed replaces it.
type Notifier interface {
	Show(ctx context.Context, n models.Notification) error
	Clear(ctx context.Context, id int) error
}

// Chain tries each notifier in order until one succeeds
type Chain []Notifier

func (c Chain) Show(ctx context.Context, n models.Notification) error {
	var errs []error
	for _, nt := range c {
		err := nt.Show(ctx, n)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return errors.New("no notifier configured")
	}
	return errors.Join(errs...)
}

// Clear asks every notifier to clear id and succeeds when any of them did
func (c Chain) Clear(ctx context.Context, id int) error {
	var errs []error
	for _, nt := range c {
		if err := nt.Clear(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		return nil
	}
	return errors.Join(errs...)
}
