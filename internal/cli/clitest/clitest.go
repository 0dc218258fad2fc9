// Package clitest builds command contexts backed by a temporary database,
// a fake upstream and a recording notifier.
package clitest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/devotional/internal/cli"
	"github.com/julianstephens/devotional/internal/config"
	"github.com/julianstephens/devotional/internal/fetcher"
	"github.com/julianstephens/devotional/internal/models"
	"github.com/julianstephens/devotional/internal/storage/sqlite"
	"github.com/julianstephens/devotional/internal/utils"
)

// Notifier records shown and cleared notifications
type Notifier struct {
	mu      sync.Mutex
	Shown   []models.Notification
	Cleared []int
}

func (n *Notifier) Show(ctx context.Context, notification models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Shown = append(n.Shown, notification)
	return nil
}

func (n *Notifier) Clear(ctx context.Context, id int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Cleared = append(n.Cleared, id)
	return nil
}

type Env struct {
	Ctx      *cli.Context
	Store    *sqlite.Store
	Out      *bytes.Buffer
	Notifier *Notifier
}

// New returns an initialized context whose upstream is served by handler.
// A nil handler answers every request with 404.
func New(t *testing.T, handler http.HandlerFunc, now time.Time) *Env {
	t.Helper()
	if handler == nil {
		handler = http.NotFound
	}
	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)

	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	env := &Env{Store: store, Out: &bytes.Buffer{}, Notifier: &Notifier{}}
	env.Ctx = &cli.Context{
		Store:       store,
		Fetcher:     fetcher.New(upstream.URL),
		Notifier:    env.Notifier,
		Clock:       utils.FixedClock{T: now},
		Location:    time.UTC,
		Slots:       config.DefaultSlots(),
		ExactAlarms: true,
		Out:         env.Out,
	}
	return env
}

// JSON serves body as a JSON response
func JSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}
