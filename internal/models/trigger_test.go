package models

import (
	"testing"
	"time"
)

func TestRegistrationAdvance(t *testing.T) {
	fireAt := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 3, 7, 30, 0, 0, time.UTC)

	r := Registration{FireAt: fireAt, Interval: 24 * time.Hour}
	if !r.Due(now) {
		t.Fatal("registration in the past should be due")
	}
	r.Advance(now)

	want := time.Date(2024, 3, 4, 6, 0, 0, 0, time.UTC)
	if !r.FireAt.Equal(want) {
		t.Errorf("Advance() fire_at = %s, want %s", r.FireAt, want)
	}
	if r.Due(now) {
		t.Error("advanced registration should not be due")
	}
}

func TestRegistrationAdvanceOneShot(t *testing.T) {
	fireAt := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	r := Registration{FireAt: fireAt}
	if !r.OneShot() {
		t.Fatal("registration without interval should be one-shot")
	}
	r.Advance(fireAt.Add(time.Hour))
	if !r.FireAt.Equal(fireAt) {
		t.Errorf("one-shot registration should not move, got %s", r.FireAt)
	}
}

func TestParseTriggerKind(t *testing.T) {
	for _, s := range []string{"morning", "nugget", "prefetch"} {
		if _, err := ParseTriggerKind(s); err != nil {
			t.Errorf("ParseTriggerKind(%q) unexpected error: %v", s, err)
		}
	}
	if _, err := ParseTriggerKind("evening"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	p := Payload{Kind: KindNugget, EntryID: 9}
	got, err := DecodePayload(p.Encode())
	if err != nil {
		t.Fatalf("DecodePayload() error: %v", err)
	}
	if got != p {
		t.Errorf("DecodePayload() = %+v, want %+v", got, p)
	}

	if _, err := DecodePayload(`{"kind":"prefetch"}`); err == nil {
		t.Error("prefetch is not a user-visible kind")
	}
	if _, err := DecodePayload("not json"); err == nil {
		t.Error("expected error for malformed payload")
	}
}
