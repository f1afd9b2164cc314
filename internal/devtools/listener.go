package devtools

// DevToolsClient is the view of the client available to listeners and
// managers. Listeners hold it as a non-owning reference; the client outlives
// its listeners by contract.
type DevToolsClient interface {
	ID() string
	SessionID() string
	AddListener(listener Listener)
	ConnectIfNecessary() error
	SendCommand(method string, params map[string]any) error
	SendCommandWithTimeout(method string, params map[string]any, timeout Timeout) error
	SendCommandAndGetResult(method string, params map[string]any) (map[string]any, error)
	SendCommandAndIgnoreResponse(method string, params map[string]any) error
	HandleReceivedEvents() error
	HandleEventsUntil(cond ConditionalFunc, timeout Timeout) error
	NextMessageID() int64
}

// Listener observes the lifecycle of a DevTools connection. Callbacks run on
// the client's dispatch stack and are free to issue commands, which are
// served by the same pump. Implementations usually embed BaseListener and
// override what they need.
type Listener interface {
	// OnConnected runs after every successful (re)connect, before any event
	// from that connection is dispatched.
	OnConnected(client DevToolsClient) error

	// OnEvent runs for every event, in listener registration order.
	OnEvent(client DevToolsClient, method string, params map[string]any) error

	// OnCommandSuccess runs when a command response without an error
	// arrives, before the response is returned to the command's caller.
	// timeout is what remains of the command's deadline.
	OnCommandSuccess(client DevToolsClient, method string, result map[string]any, timeout Timeout) error
}

// BaseListener provides no-op defaults for the Listener contract.
type BaseListener struct{}

func (BaseListener) OnConnected(DevToolsClient) error { return nil }

func (BaseListener) OnEvent(DevToolsClient, string, map[string]any) error { return nil }

func (BaseListener) OnCommandSuccess(DevToolsClient, string, map[string]any, Timeout) error {
	return nil
}

// ConditionalFunc reports whether the condition a waiter is pumping events
// for has been met.
type ConditionalFunc func() (met bool, err error)

// FrontendCloserFunc releases frontend resources that cannot survive a
// transport restart. It runs exactly once per detected reconnection edge.
type FrontendCloserFunc func() error
