package fetcher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/julianstephens/devotional/internal/models"
)

// wpEntry is one element of the WordPress devotional list
type wpEntry struct {
	ID      *int            `json:"id"`
	Date    *string         `json:"date"`
	Title   wpRendered      `json:"title"`
	Content *wpRendered     `json:"content"`
	ACF     json.RawMessage `json:"acf"`
	Yoast   *struct {
		OGImage []struct {
			URL string `json:"url"`
		} `json:"og_image"`
	} `json:"yoast_head_json"`
}

type wpRendered struct {
	Rendered *string `json:"rendered"`
}

// wpACF holds the custom fields. Empty fields arrive as "", false or null.
type wpACF struct {
	BibleVerse   json.RawMessage `json:"bible_verse"`
	FurtherStudy json.RawMessage `json:"further_study"`
	Prayer       json.RawMessage `json:"prayer"`
	ReadingPlan  json.RawMessage `json:"bible_reading_plan"`
	Nugget       json.RawMessage `json:"nugget"`
}

// decodeEntries decodes a JSON array, skipping elements that are not usable
// entries. It fails when the document is not an array or when a non-empty
// array yields no usable entry. An empty array is a valid result.
func decodeEntries(data []byte) ([]models.Entry, int, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, err
	}

	entries := make([]models.Entry, 0, len(raw))
	skipped := 0
	for _, item := range raw {
		e, err := decodeEntry(item)
		if err != nil {
			skipped++
			continue
		}
		entries = append(entries, e)
	}
	if len(raw) > 0 && len(entries) == 0 {
		return nil, skipped, fmt.Errorf("none of %d entries could be decoded", len(raw))
	}
	return entries, skipped, nil
}

func decodeEntry(data []byte) (models.Entry, error) {
	var w wpEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return models.Entry{}, err
	}
	if w.ID == nil {
		return models.Entry{}, fmt.Errorf("entry without id")
	}
	if w.Date == nil || strings.TrimSpace(*w.Date) == "" {
		return models.Entry{}, fmt.Errorf("entry %d without date", *w.ID)
	}

	e := models.Entry{
		ID:     *w.ID,
		Date:   *w.Date,
		Fields: decodeFields(w.ACF),
	}
	if w.Title.Rendered != nil {
		e.Title = *w.Title.Rendered
	}
	if w.Content != nil && w.Content.Rendered != nil {
		body := *w.Content.Rendered
		e.Body = &body
	}
	if w.Yoast != nil && len(w.Yoast.OGImage) > 0 {
		e.BannerImageURL = w.Yoast.OGImage[0].URL
	}
	return e, nil
}

// decodeFields tolerates a missing, empty-array or false acf value
func decodeFields(raw json.RawMessage) models.Fields {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return models.Fields{}
	}
	var acf wpACF
	if err := json.Unmarshal(raw, &acf); err != nil {
		return models.Fields{}
	}
	return models.Fields{
		BibleVerse:   optString(acf.BibleVerse),
		FurtherStudy: optString(acf.FurtherStudy),
		Prayer:       optString(acf.Prayer),
		ReadingPlan:  optString(acf.ReadingPlan),
		Nugget:       optString(acf.Nugget),
	}
}

// optString returns nil unless raw is a non-empty JSON string
func optString(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return nil
	}
	return &s
}
