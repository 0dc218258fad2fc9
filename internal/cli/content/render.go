package content

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/devotional/internal/cli"
	"github.com/julianstephens/devotional/internal/models"
	"github.com/julianstephens/devotional/internal/utils"
)

// RenderEntry formats an entry as a card. HTML is reduced to plain text.
func RenderEntry(e models.Entry, loc *time.Location) string {
	var b strings.Builder

	b.WriteString(cli.TitleStyle.Render(utils.PlainText(e.Title)))
	if date, err := e.CalendarDate(loc); err == nil {
		b.WriteString("\n" + cli.MutedStyle.Render(date))
	}

	section := func(label string, v *string) {
		if v == nil {
			return
		}
		text := utils.PlainText(*v)
		if text == "" {
			return
		}
		b.WriteString("\n\n" + cli.LabelStyle.Render(label) + "\n" + text)
	}
	section("Bible Verse", e.Fields.BibleVerse)
	section("Devotional", e.Body)
	section("Further Study", e.Fields.FurtherStudy)
	section("Prayer", e.Fields.Prayer)
	section("Reading Plan", e.Fields.ReadingPlan)
	section("Nugget", e.Fields.Nugget)

	if e.BannerImageURL != "" {
		b.WriteString("\n\n" + cli.MutedStyle.Render(e.BannerImageURL))
	}
	b.WriteString("\n" + cli.MutedStyle.Render(fmt.Sprintf("#%d", e.ID)))
	return cli.CardStyle.Render(b.String())
}
