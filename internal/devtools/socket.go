package devtools

// ReceiveStatus is the outcome of a SyncWebSocket receive call.
type ReceiveStatus int

const (
	ReceiveOK ReceiveStatus = iota
	ReceiveTimeout
	ReceiveDisconnected
)

// SyncWebSocket is the synchronous framing transport the client drives. The
// client owns exactly one at a time and calls it from a single goroutine.
// This abstraction enables testing with fake transports.
type SyncWebSocket interface {
	// Connect establishes the connection to a DevTools endpoint.
	Connect(url string) error

	// Send writes one text frame. An error means the connection is gone.
	Send(message string) error

	// ReceiveNextMessage blocks for the next frame, bounded by the
	// timeout's deadline.
	ReceiveNextMessage(timeout Timeout) (string, ReceiveStatus)

	// HasNextMessage reports whether a received frame is buffered and not
	// yet consumed.
	HasNextMessage() bool

	// IsConnected reports whether the connection is believed healthy.
	IsConnected() bool

	// Close releases the connection and any resources pumping it.
	Close() error
}

// SocketFactory produces a fresh transport for each connection attempt.
type SocketFactory func() SyncWebSocket
