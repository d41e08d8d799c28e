package channel

import "context"

// Message represents a command message from a channel.
type Message struct {
	ID        string
	Channel   string
	UserID    string
	UserName  string
	ChannelID string
	Content   string
	Timestamp int64
}

// Response represents a reply to send back to a channel. FilePath, when set,
// is uploaded as an attachment alongside the content.
type Response struct {
	Content  string
	FilePath string
}

// Adapter is the interface for chat channel adapters.
type Adapter interface {
	// Start connects the adapter and begins delivering incoming messages.
	Start(ctx context.Context) error

	// Stop disconnects the adapter.
	Stop() error

	// Reply sends a response in the context of an incoming message.
	Reply(msg *Message, resp *Response) error

	// Typing signals that a reply is being prepared for the message.
	Typing(msg *Message)

	// Incoming returns the channel of incoming command messages.
	Incoming() <-chan *Message

	// Name returns the adapter name.
	Name() string

	// IsEnabled reports whether the adapter is configured to run.
	IsEnabled() bool
}
