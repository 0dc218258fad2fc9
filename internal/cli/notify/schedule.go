package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/devotional/internal/cli"
	"github.com/julianstephens/devotional/internal/constants"
	"github.com/julianstephens/devotional/internal/models"
)

// ScheduleCmd registers or cancels triggers to match the saved preferences
type ScheduleCmd struct{}

func (c *ScheduleCmd) Run(ctx *cli.Context) error {
	if err := ctx.Scheduler().RescheduleAllFromPreferences(context.Background()); err != nil {
		return err
	}
	return printStatus(ctx, false)
}

// StatusCmd shows trigger registrations and recent deliveries
type StatusCmd struct {
	Deliveries bool `help:"Include the delivery log." default:"true" negatable:""`
}

func (c *StatusCmd) Run(ctx *cli.Context) error {
	return printStatus(ctx, c.Deliveries)
}

func printStatus(ctx *cli.Context, withDeliveries bool) error {
	status, err := ctx.Scheduler().Status(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read triggers: %w", err)
	}

	out := ctx.Stdout()
	fmt.Fprintln(out, cli.TitleStyle.Render("Triggers"))
	for _, st := range status {
		state := cli.MutedStyle.Render(string(st.State))
		if st.State == models.StateScheduled {
			state = cli.OKStyle.Render(string(st.State))
		}
		next := "-"
		if st.NextFireAt != nil {
			next = st.NextFireAt.In(ctx.Location).Format("Mon Jan 2 15:04 MST")
		}
		fmt.Fprintf(out, "  %-9s %-12s next %s\n", st.Kind, state, next)
		for _, r := range st.Registrations {
			mech := string(r.Mechanism)
			if r.Interval > 0 {
				mech += " every " + r.Interval.String()
			}
			line := fmt.Sprintf("%s: %s", r.Channel, mech)
			if r.LastFiredAt != nil {
				line += ", last fired " + r.LastFiredAt.In(ctx.Location).Format(time.RFC3339)
			}
			fmt.Fprintln(out, "      "+cli.MutedStyle.Render(line))
		}
	}

	if !withDeliveries {
		return nil
	}
	deliveries, err := ctx.Store.GetDeliveries(constants.DeliveryLogLimit)
	if err != nil {
		return fmt.Errorf("failed to read delivery log: %w", err)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.TitleStyle.Render("Recent deliveries"))
	if len(deliveries) == 0 {
		fmt.Fprintln(out, "  none")
		return nil
	}
	for _, d := range deliveries {
		body := d.Body
		if r := []rune(body); len(r) > 60 {
			body = strings.TrimSpace(string(r[:57])) + "..."
		}
		tag := ""
		if d.Fallback {
			tag = cli.WarnStyle.Render(" (fallback)")
		}
		fmt.Fprintf(out, "  %s  %-8s %s%s\n", d.DeliveredAt.In(ctx.Location).Format("2006-01-02 15:04"), d.Kind, body, tag)
	}
	return nil
}
