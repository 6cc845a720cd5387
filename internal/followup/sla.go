package followup

import "time"

// DefaultSLA applies before classification and to intents without a
// dedicated entry.
const DefaultSLA = 6 * time.Hour

// slaByIntent is the per-intent escalation budget applied after
// classification. Hot intents escalate sooner.
var slaByIntent = map[string]time.Duration{
	"price_inquiry": 2 * time.Hour,
	"appointment":   1 * time.Hour,
}

// SLAFor returns the follow-up delay for an intent. debugOverride, when
// positive, replaces every entry; it exists so the full escalation path can be
// exercised in seconds during testing.
func SLAFor(intent string, debugOverride time.Duration) time.Duration {
	if debugOverride > 0 {
		return debugOverride
	}
	if d, ok := slaByIntent[intent]; ok {
		return d
	}
	return DefaultSLA
}
