package chathub

// Client is one connection registered with the hub. It abstracts the
// underlying transport so the hub can be driven without a real socket.
type Client interface {
	// GetUserID returns the authenticated identity bound to the connection.
	GetUserID() string

	// GetSendChannel returns the channel the hub writes outbound frames to.
	// Only the hub sends on it.
	GetSendChannel() chan<- Frame

	// Run starts the client's read and write pumps.
	Run()
	// Close stops the write pump. The hub calls it once, on unregister.
	Close()
}
