package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payload is delivered back to the UI when the user taps a notification.
type Payload struct {
	Kind    TriggerKind `json:"kind"`
	EntryID int         `json:"entryId,omitempty"`
}

// Encode renders the payload as the compact string carried by a notification
func (p Payload) Encode() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}

// DecodePayload parses a payload string produced by Encode
func DecodePayload(s string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return Payload{}, fmt.Errorf("invalid notification payload: %w", err)
	}
	if p.Kind != KindMorning && p.Kind != KindNugget {
		return Payload{}, fmt.Errorf("invalid notification payload: unknown kind %q", p.Kind)
	}
	return p, nil
}

// Notification is what the tray shows
type Notification struct {
	ID      int     `json:"id"`
	Title   string  `json:"title"`
	Body    string  `json:"body"`
	Payload Payload `json:"payload"`
}

// Delivery is a log record of one shown notification
type Delivery struct {
	ID             string      `json:"id"`
	NotificationID int         `json:"notification_id"`
	Kind           TriggerKind `json:"kind"`
	EntryID        int         `json:"entry_id,omitempty"`
	Body           string      `json:"body"`
	Fallback       bool        `json:"fallback"`
	DeliveredAt    time.Time   `json:"delivered_at"`
}
