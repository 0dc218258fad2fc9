// Package cli holds the state shared by every command and the wiring that
// turns it into engine components.
package cli

import (
	"io"
	"os"
	"time"

	"github.com/julianstephens/devotional/internal/alarm"
	"github.com/julianstephens/devotional/internal/config"
	"github.com/julianstephens/devotional/internal/coordinator"
	"github.com/julianstephens/devotional/internal/dispatcher"
	"github.com/julianstephens/devotional/internal/fetcher"
	"github.com/julianstephens/devotional/internal/notifier"
	"github.com/julianstephens/devotional/internal/scheduler"
	"github.com/julianstephens/devotional/internal/storage"
	"github.com/julianstephens/devotional/internal/utils"
)

type Context struct {
	Store       storage.Provider
	Fetcher     *fetcher.Fetcher
	Notifier    notifier.Notifier
	Clock       utils.Clock
	Location    *time.Location
	Slots       config.Slots
	ExactAlarms bool
	Out         io.Writer
}

// Stdout is where commands print
func (c *Context) Stdout() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// Content returns a coordinator that refreshes with the interactive retry policy
func (c *Context) Content() *coordinator.Coordinator {
	return coordinator.New(c.Store, c.Fetcher.WithRetry(fetcher.UIRetry), c.Clock, c.Location)
}

// BackgroundContent returns a coordinator that makes a single fetch attempt
func (c *Context) BackgroundContent() *coordinator.Coordinator {
	return coordinator.New(c.Store, c.Fetcher.Once(), c.Clock, c.Location)
}

func (c *Context) Sink() *alarm.Sink {
	return alarm.NewSink(c.Store, c.ExactAlarms)
}

func (c *Context) Scheduler() *scheduler.Scheduler {
	return scheduler.New(c.Sink(), c.Store, c.Notifier, c.Clock, c.Location, c.Slots)
}

func (c *Context) Dispatcher() *dispatcher.Dispatcher {
	return dispatcher.New(c.Store, c.BackgroundContent(), c.Scheduler(), c.Notifier, c.Clock)
}

// Runner fires due registrations through the dispatcher
func (c *Context) Runner(interval time.Duration) *alarm.Runner {
	return alarm.NewRunner(c.Store, c.Dispatcher(), c.Clock, interval)
}
