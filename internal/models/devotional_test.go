package models

import (
	"testing"
	"time"
)

func TestParseEntryDate(t *testing.T) {
	lagos, err := time.LoadLocation("Africa/Lagos")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "naive wordpress timestamp", input: "2026-01-05T00:05:38", want: "2026-01-05"},
		{name: "plain date", input: "2024-03-01", want: "2024-03-01"},
		{name: "space separated", input: "2024-03-01 23:59:59", want: "2024-03-01"},
		{name: "offset converted into location", input: "2024-03-01T23:30:00Z", want: "2024-03-02"},
		{name: "garbage", input: "1 March 2024", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEntryDate(tt.input, lagos)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEntryDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Format("2006-01-02") != tt.want {
				t.Errorf("ParseEntryDate(%q) = %s, want %s", tt.input, got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestEntryFallsOn(t *testing.T) {
	day := time.Date(2024, 3, 1, 4, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		date string
		want bool
	}{
		{name: "same day midnight", date: "2024-03-01T00:00:00", want: true},
		{name: "same day late", date: "2024-03-01T23:59:59", want: true},
		{name: "previous day", date: "2024-02-29T23:59:59", want: false},
		{name: "next day", date: "2024-03-02T00:00:00", want: false},
		{name: "unparsable never matches", date: "March 1", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Entry{ID: 1, Date: tt.date}
			if got := e.FallsOn(day); got != tt.want {
				t.Errorf("FallsOn(%s) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}

func TestEntryNugget(t *testing.T) {
	if _, ok := (Entry{}).Nugget(); ok {
		t.Error("entry without fields should have no nugget")
	}
	if _, ok := (Entry{Fields: Fields{Nugget: StringPtr("   ")}}).Nugget(); ok {
		t.Error("blank nugget should be treated as absent")
	}
	n, ok := (Entry{Fields: Fields{Nugget: StringPtr(" Be still ")}}).Nugget()
	if !ok || n != "Be still" {
		t.Errorf("Nugget() = %q, %v; want %q, true", n, ok, "Be still")
	}
}

func TestPreferencesAllows(t *testing.T) {
	tests := []struct {
		name  string
		prefs Preferences
		kind  TriggerKind
		want  bool
	}{
		{name: "defaults allow morning", prefs: DefaultPreferences(), kind: KindMorning, want: true},
		{name: "defaults allow nugget", prefs: DefaultPreferences(), kind: KindNugget, want: true},
		{name: "master off blocks morning", prefs: Preferences{MorningEnabled: true, NuggetEnabled: true}, kind: KindMorning, want: false},
		{name: "master off blocks nugget", prefs: Preferences{MorningEnabled: true, NuggetEnabled: true}, kind: KindNugget, want: false},
		{name: "morning off", prefs: Preferences{MasterEnabled: true, NuggetEnabled: true}, kind: KindMorning, want: false},
		{name: "prefetch follows nugget", prefs: Preferences{MasterEnabled: true, MorningEnabled: true}, kind: KindPrefetch, want: false},
		{name: "unknown kind", prefs: DefaultPreferences(), kind: TriggerKind("evening"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.prefs.Allows(tt.kind); got != tt.want {
				t.Errorf("Allows(%s) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}
