package notifier

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/devotional/internal/models"
)

var (
	consoleTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E0B04A"))
	consoleBoxStyle   = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("#8A5A44")).
				Padding(0, 1)
)

// Console prints notifications to a terminal. It stands in for the tray
// when none is running.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Show(ctx context.Context, n models.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	box := consoleBoxStyle.Render(consoleTitleStyle.Render(n.Title) + "\n" + n.Body)
	_, err := fmt.Fprintln(c.w, box)
	return err
}

// Clear is a no-op; printed output cannot be withdrawn
func (c *Console) Clear(ctx context.Context, id int) error {
	return nil
}
