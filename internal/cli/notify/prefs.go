package notify

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/devotional/internal/cli"
	"github.com/julianstephens/devotional/internal/models"
)

// PrefsCmd shows or changes notification preferences. Any change
// reschedules triggers immediately.
type PrefsCmd struct {
	Interactive bool  `help:"Edit preferences in a form." short:"i"`
	Enabled     *bool `help:"Master switch for all notifications."`
	Morning     *bool `help:"Morning devotional reminder."`
	Nugget      *bool `help:"Daily nugget."`

	form func(*models.Preferences) error
}

func (c *PrefsCmd) Run(ctx *cli.Context) error {
	prefs := ctx.Store.LoadPreferences()
	updated := prefs

	if c.Interactive {
		form := c.form
		if form == nil {
			form = runPrefsForm
		}
		if err := form(&updated); err != nil {
			return err
		}
	}
	if c.Enabled != nil {
		updated.MasterEnabled = *c.Enabled
	}
	if c.Morning != nil {
		updated.MorningEnabled = *c.Morning
	}
	if c.Nugget != nil {
		updated.NuggetEnabled = *c.Nugget
	}

	if updated != prefs {
		if err := ctx.Store.SavePreferences(updated); err != nil {
			return fmt.Errorf("failed to save preferences: %w", err)
		}
		if err := ctx.Scheduler().RescheduleAllFromPreferences(context.Background()); err != nil {
			return fmt.Errorf("preferences saved but rescheduling failed: %w", err)
		}
		fmt.Fprintln(ctx.Stdout(), "Preferences updated.")
	}

	printPrefs(ctx, updated)
	return nil
}

func printPrefs(ctx *cli.Context, p models.Preferences) {
	out := ctx.Stdout()
	fmt.Fprintln(out, cli.TitleStyle.Render("Notification Preferences"))
	fmt.Fprintf(out, "  Notifications:     %s\n", cli.Bool(p.MasterEnabled))
	fmt.Fprintf(out, "  Morning reminder:  %s  %s\n", cli.Bool(p.MorningEnabled), cli.MutedStyle.Render(ctx.Slots.Morning.String()))
	fmt.Fprintf(out, "  Daily nugget:      %s  %s\n", cli.Bool(p.NuggetEnabled), cli.MutedStyle.Render(ctx.Slots.Nugget.String()))
}

func runPrefsForm(p *models.Preferences) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications?").
				Value(&p.MasterEnabled),
			huh.NewConfirm().
				Title("Morning devotional reminder?").
				Description("A daily reminder to read the devotional.").
				Value(&p.MorningEnabled),
			huh.NewConfirm().
				Title("Daily nugget?").
				Description("A short thought from today's devotional.").
				Value(&p.NuggetEnabled),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("preferences form: %w", err)
	}
	return nil
}
