package models

import (
	"fmt"
	"time"
)

type TriggerKind string

const (
	KindMorning  TriggerKind = "morning"
	KindNugget   TriggerKind = "nugget"
	KindPrefetch TriggerKind = "prefetch"
)

// ParseTriggerKind validates a kind name
func ParseTriggerKind(s string) (TriggerKind, error) {
	switch k := TriggerKind(s); k {
	case KindMorning, KindNugget, KindPrefetch:
		return k, nil
	default:
		return "", fmt.Errorf("unknown trigger kind %q", s)
	}
}

// Channel is the platform facility a registration lives in. A trigger has at
// most one registration per channel.
type Channel string

const (
	ChannelAlarm Channel = "alarm" // exact or inexact one-shot alarm
	ChannelWork  Channel = "work"  // periodic background work
)

type Mechanism string

const (
	MechanismExact    Mechanism = "exact"
	MechanismInexact  Mechanism = "inexact"
	MechanismPeriodic Mechanism = "periodic"
)

type RepeatPolicy string

const RepeatDaily RepeatPolicy = "daily"

// Trigger is the logical scheduled event for one kind.
type Trigger struct {
	ID     string       `json:"id"`
	Kind   TriggerKind  `json:"kind"`
	FireAt time.Time    `json:"fire_at"`
	Repeat RepeatPolicy `json:"repeat"`
}

// Registration is one platform mechanism carrying a trigger.
type Registration struct {
	TriggerID   string        `json:"trigger_id"`
	Kind        TriggerKind   `json:"kind"`
	Channel     Channel       `json:"channel"`
	Mechanism   Mechanism     `json:"mechanism"`
	FireAt      time.Time     `json:"fire_at"`
	Interval    time.Duration `json:"interval,omitempty"` // zero for one-shot alarms
	LastFiredAt *time.Time    `json:"last_fired_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Trigger returns the logical trigger a registration carries
func (r Registration) Trigger() Trigger {
	return Trigger{ID: r.TriggerID, Kind: r.Kind, FireAt: r.FireAt, Repeat: RepeatDaily}
}

// OneShot reports whether the registration is consumed when it fires
func (r Registration) OneShot() bool {
	return r.Interval <= 0
}

// Due reports whether the registration should fire at now
func (r Registration) Due(now time.Time) bool {
	return !now.Before(r.FireAt)
}

// Advance moves a periodic registration to its first occurrence after now.
func (r *Registration) Advance(now time.Time) {
	if r.Interval <= 0 {
		return
	}
	for !r.FireAt.After(now) {
		r.FireAt = r.FireAt.Add(r.Interval)
	}
}

type TriggerState string

const (
	StateUnscheduled TriggerState = "unscheduled"
	StateScheduled   TriggerState = "scheduled"
)

// TriggerStatus summarizes the registrations of one kind
type TriggerStatus struct {
	Kind          TriggerKind    `json:"kind"`
	TriggerID     string         `json:"trigger_id"`
	State         TriggerState   `json:"state"`
	NextFireAt    *time.Time     `json:"next_fire_at,omitempty"`
	Registrations []Registration `json:"registrations"`
}
