package channel

// Channel tags the source of an inbound message.
type Channel string

const (
	WhatsApp  Channel = "wa"
	Instagram Channel = "ig"
)

func (c Channel) Valid() bool {
	return c == WhatsApp || c == Instagram
}
