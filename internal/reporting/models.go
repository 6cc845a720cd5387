package reporting

import "time"

// DailySummary aggregates one calendar day of conversation traffic.

type DailySummary struct {
	Date string `json:"date"`

	InboundMessages  int `json:"inbound_messages"`
	OutboundMessages int `json:"outbound_messages"`

	// AvgFirstResponseMs averages, over conversations that received at least
	// one reply, the gap between the first inbound message and the first
	// outbound message after it. Zero when no conversation was answered.
	AvgFirstResponseMs int64 `json:"avg_first_response_ms"`

	IntentDistribution map[string]int `json:"intent_distribution"`

	Funnel FunnelCounts `json:"funnel"`
}

// FunnelCounts buckets conversations by stage. Statuses other than the two
// built-in ones are operator-set and counted under Other.

type FunnelCounts struct {
	New       int `json:"new"`
	Qualified int `json:"qualified"`
	Other     int `json:"other"`
	Overdue   int `json:"overdue"`
}

// Snapshot is one stored run of the nightly report loop.

type Snapshot struct {
	ID      string       `json:"id"`
	TakenAt time.Time    `json:"taken_at"`
	Summary DailySummary `json:"summary"`
}
