package intent

import "regexp"

// Known intents. Unmatched text classifies as IntentOther.
const (
	IntentPriceInquiry = "price_inquiry"
	IntentAppointment  = "appointment"
	IntentShipping     = "shipping"
	IntentOther        = "other"
)

// ConfidenceThreshold gates the classify job: heuristic results at or above
// it are trusted as-is and no model classification is scheduled.
const ConfidenceThreshold = 0.75

// Classification is the result shape shared by the heuristic and model tiers.
type Classification struct {
	Intent         string            `json:"intent"`
	Confidence     float64           `json:"confidence"`
	Entities       map[string]string `json:"entities,omitempty"`
	Urgency        string            `json:"urgency,omitempty"`
	SuggestedStage string            `json:"suggested_stage,omitempty"`
}

var (
	rePrice       = regexp.MustCompile(`(?i)(fiyat|ne kadar|kaç tl|ücret)`)
	reAppointment = regexp.MustCompile(`(?i)(randevu|tarih|saat|uygun musunuz)`)
	reShipping    = regexp.MustCompile(`(?i)(kargo|teslimat|kaç günde|adres)`)
)

// Heuristic classifies text against a small fixed vocabulary. It is total:
// every input, including empty text, yields a valid intent and a confidence
// in [0,1]. It is the floor the model tier falls back to, so it must never
// fail.
func Heuristic(text string) Classification {
	if text == "" {
		return Classification{Intent: IntentOther, Confidence: 0}
	}
	switch {
	case rePrice.MatchString(text):
		return Classification{Intent: IntentPriceInquiry, Confidence: 0.9}
	case reAppointment.MatchString(text):
		return Classification{Intent: IntentAppointment, Confidence: 0.9}
	case reShipping.MatchString(text):
		return Classification{Intent: IntentShipping, Confidence: 0.9}
	default:
		return Classification{Intent: IntentOther, Confidence: 0.5}
	}
}

func validIntent(s string) bool {
	switch s {
	case IntentPriceInquiry, IntentAppointment, IntentShipping, IntentOther:
		return true
	default:
		return false
	}
}
