package content

import (
	"context"
	"fmt"

	"github.com/julianstephens/devotional/internal/cli"
	"github.com/julianstephens/devotional/internal/utils"
)

// SyncCmd refreshes the cache from upstream
type SyncCmd struct{}

func (c *SyncCmd) Run(ctx *cli.Context) error {
	entries, err := ctx.Content().Refresh(context.Background())
	if err != nil {
		return fmt.Errorf("sync failed, cached content kept: %w", err)
	}
	fmt.Fprintf(ctx.Stdout(), "Synced %d devotionals.\n", len(entries))
	return nil
}

// TodayCmd shows today's devotional from the cache
type TodayCmd struct {
	Refresh bool `help:"Refresh from upstream when today's entry is not cached."`
}

func (c *TodayCmd) Run(ctx *cli.Context) error {
	content := ctx.Content()
	entry, ok := content.TodayEntry()
	if !ok && c.Refresh {
		if _, err := content.Refresh(context.Background()); err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}
		entry, ok = content.TodayEntry()
	}
	if !ok {
		fmt.Fprintf(ctx.Stdout(), "No devotional cached for %s. Run 'devotional sync' or pass --refresh.\n", utils.Today(content.Now()))
		return nil
	}
	fmt.Fprintln(ctx.Stdout(), RenderEntry(entry, content.Location()))
	return nil
}

// NuggetCmd prints today's nugget, refreshing once when it is not cached
type NuggetCmd struct{}

func (c *NuggetCmd) Run(ctx *cli.Context) error {
	entry, nugget, ok := ctx.Content().TodayNuggetEntry(context.Background())
	if !ok {
		fmt.Fprintln(ctx.Stdout(), "No nugget for today.")
		return nil
	}
	fmt.Fprintln(ctx.Stdout(), cli.TitleStyle.Render("Daily Nugget")+cli.MutedStyle.Render(fmt.Sprintf("  #%d", entry.ID)))
	fmt.Fprintln(ctx.Stdout(), utils.PlainText(nugget))
	return nil
}

// ListCmd lists cached devotionals, newest first
type ListCmd struct {
	Limit int `help:"Maximum number of entries to show (0 for all)." default:"10"`
}

func (c *ListCmd) Run(ctx *cli.Context) error {
	content := ctx.Content()
	entries := content.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(ctx.Stdout(), "No devotionals cached. Run 'devotional sync'.")
		return nil
	}
	if c.Limit > 0 && len(entries) > c.Limit {
		entries = entries[:c.Limit]
	}
	for _, e := range entries {
		date, err := e.CalendarDate(content.Location())
		if err != nil {
			date = "????-??-??"
		}
		fmt.Fprintf(ctx.Stdout(), "%s  %s  %s\n", cli.MutedStyle.Render(fmt.Sprintf("%6d", e.ID)), date, utils.PlainText(e.Title))
	}
	return nil
}

// OpenCmd resolves a notification payload to the entry it points at
type OpenCmd struct {
	Payload string `arg:"" help:"Payload carried by the notification."`
}

func (c *OpenCmd) Run(ctx *cli.Context) error {
	dest, err := ctx.Dispatcher().Open(c.Payload)
	if err != nil {
		return err
	}
	if dest.Entry == nil {
		fmt.Fprintf(ctx.Stdout(), "Nothing cached for %s notification.\n", dest.Kind)
		return nil
	}
	fmt.Fprintln(ctx.Stdout(), RenderEntry(*dest.Entry, ctx.Location))
	return nil
}
