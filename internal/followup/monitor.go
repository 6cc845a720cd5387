package followup

import "time"

// Outcome of evaluating a conversation when its follow-up timer fires.
type Outcome string

const (
	// OutcomeAnswered: an agent reply at or after the customer's last message
	// exists; the timer terminates with no action.
	OutcomeAnswered Outcome = "answered"
	// OutcomeOverdue: no qualifying agent reply; the conversation escalates.
	OutcomeOverdue Outcome = "overdue"
)

// Evaluate applies the escalation rule to the two conversation timestamps.
//
// The rule is deliberately timestamp-only: the timer's delay already encoded
// the SLA, so firing means the budget is spent and the only question left is
// whether the agent got there first. Marking overdue twice is harmless; the
// flag is idempotent and, by default, sticky (no un-escalation here).
func Evaluate(lastCustomerMessageAt, lastAgentMessageAt *time.Time) Outcome {
	if lastCustomerMessageAt == nil {
		// Nothing to answer; never escalate a conversation the customer has
		// not written to.
		return OutcomeAnswered
	}
	if lastAgentMessageAt != nil && !lastAgentMessageAt.Before(*lastCustomerMessageAt) {
		return OutcomeAnswered
	}
	return OutcomeOverdue
}
