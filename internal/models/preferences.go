package models

// Preferences are the user's notification toggles. A kind is active only
// when both the master switch and its own switch are on.
type Preferences struct {
	MasterEnabled  bool `json:"master_enabled"`
	MorningEnabled bool `json:"morning_enabled"`
	NuggetEnabled  bool `json:"nugget_enabled"`
}

// DefaultPreferences is what a first run sees.
func DefaultPreferences() Preferences {
	return Preferences{
		MasterEnabled:  true,
		MorningEnabled: true,
		NuggetEnabled:  true,
	}
}

// Allows reports whether notifications of kind may be scheduled and shown.
func (p Preferences) Allows(kind TriggerKind) bool {
	if !p.MasterEnabled {
		return false
	}
	switch kind {
	case KindMorning:
		return p.MorningEnabled
	case KindNugget, KindPrefetch:
		// prefetch only exists to warm the cache for the nugget
		return p.NuggetEnabled
	default:
		return false
	}
}
