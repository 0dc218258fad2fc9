package models

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted for an entry date. The upstream sends a naive local
// timestamp ("2026-01-05T00:05:38"); the others are tolerated.
var entryDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Fields holds the optional named fields of an entry. A nil pointer means
// the field was absent upstream.
type Fields struct {
	BibleVerse   *string `json:"bible_verse,omitempty"`
	FurtherStudy *string `json:"further_study,omitempty"`
	Prayer       *string `json:"prayer,omitempty"`
	ReadingPlan  *string `json:"reading_plan,omitempty"`
	Nugget       *string `json:"nugget,omitempty"`
}

// Entry is one devotional record. ID is assigned upstream and never changes.
type Entry struct {
	ID             int     `json:"id"`
	Date           string  `json:"date"`  // as sent upstream, timezone-less
	Title          string  `json:"title"` // HTML-bearing
	Body           *string `json:"body,omitempty"`
	Fields         Fields  `json:"fields"`
	BannerImageURL string  `json:"banner_image_url,omitempty"`
}

// ParseEntryDate parses an upstream date string. Naive values are read as
// wall-clock time in loc; values carrying an offset are converted into loc.
func ParseEntryDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range entryDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized entry date %q", s)
}

// CalendarDate returns the entry's calendar day (YYYY-MM-DD) in loc.
func (e Entry) CalendarDate(loc *time.Location) (string, error) {
	t, err := ParseEntryDate(e.Date, loc)
	if err != nil {
		return "", err
	}
	return t.Format("2006-01-02"), nil
}

// FallsOn reports whether the entry's calendar day equals day's calendar day,
// both taken in day's location.
func (e Entry) FallsOn(day time.Time) bool {
	date, err := e.CalendarDate(day.Location())
	if err != nil {
		return false
	}
	return date == day.Format("2006-01-02")
}

// Nugget returns the nugget field when present and non-blank.
func (e Entry) Nugget() (string, bool) {
	if e.Fields.Nugget == nil {
		return "", false
	}
	n := strings.TrimSpace(*e.Fields.Nugget)
	if n == "" {
		return "", false
	}
	return n, true
}

// StringPtr is a helper for building optional fields
func StringPtr(s string) *string {
	return &s
}
