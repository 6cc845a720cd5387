package conversation

import "time"

// Window is the period after a customer's last message during which providers
// accept free-form replies.
const Window = 24 * time.Hour

// SendType decides text vs template for an outbound send. The conversation is
// open while strictly less than 24 hours have elapsed since the customer's
// last message; with no prior customer message the window never opened.
//
// Pure and total. Call it at send time, never cache the result: both the clock
// and the customer's next message move the boundary. This is the single gate
// keeping outbound traffic inside the provider's allowed window.
func SendType(lastCustomerMessageAt *time.Time, now time.Time) MessageType {
	if lastCustomerMessageAt == nil {
		return TypeTemplate
	}
	if now.Sub(*lastCustomerMessageAt) < Window {
		return TypeText
	}
	return TypeTemplate
}
