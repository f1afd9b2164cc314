// Package devtools implements a synchronous Chrome DevTools Protocol client:
// numbered commands with correlated responses and server-pushed events over
// one persistent WebSocket, dispatched on a single caller goroutine.
package devtools

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout is the default deadline for command round trips.
const DefaultTimeout = 30 * time.Second

// Modal dialog events that gate command traffic.
const (
	dialogOpeningEvent = "Page.javascriptDialogOpening"
	dialogClosedEvent  = "Page.javascriptDialogClosed"
)

type slotState int

const (
	slotWaiting slotState = iota
	slotReceived
	slotBlocked
	slotIgnored
)

// responseSlot tracks one in-flight command until its caller consumes it.
type responseSlot struct {
	method   string
	state    slotState
	response *CommandResponse
}

type commandNotification struct {
	method  string
	result  map[string]any
	timeout Timeout
}

// Client speaks the DevTools protocol over one synchronous transport.
//
// Dispatch is reentrant: a listener callback may send commands, and those
// commands pump the same connection from deeper in the call stack. Each pump
// returns to its caller only once that caller's own command is fulfilled;
// notifications owed to listeners are queued and drained at the top of every
// pump so they are delivered in order no matter which stack frame receives
// the triggering frame.
type Client struct {
	id        string
	sessionID string
	url       string

	newSocket SocketFactory
	socket    SyncWebSocket

	nextID        int64
	parse         ParserFunc
	closeFrontend FrontendCloserFunc

	listeners []Listener
	responses map[int64]*responseSlot

	unnotifiedAlertOpen bool
	reconnectPending    bool
	stackDepth          int

	unnotifiedConnectListeners []Listener
	unnotifiedEventListeners   []Listener
	unnotifiedEvent            *Event
	unnotifiedCommandListeners []Listener
	unnotifiedCommand          *commandNotification

	defaultTimeout time.Duration
	log            *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for devtools traffic and connection
// transitions. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithDefaultTimeout sets the deadline applied to commands sent without an
// explicit Timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

// WithSessionID attaches the client to a session; commands carry the id and
// the root session keeps the empty string.
func WithSessionID(sessionID string) Option {
	return func(c *Client) { c.sessionID = sessionID }
}

// NewClient creates a disconnected client. id is a stable label used for
// debugging and logging; factory produces a fresh transport per connection
// attempt.
func NewClient(id, url string, factory SocketFactory, opts ...Option) *Client {
	c := &Client{
		id:             id,
		url:            url,
		newSocket:      factory,
		nextID:         1,
		parse:          ParseInspectorMessage,
		responses:      map[int64]*responseSlot{},
		defaultTimeout: DefaultTimeout,
		log:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the client's debug label.
func (c *Client) ID() string { return c.id }

// SessionID returns the session this client is attached to; empty for the
// root session.
func (c *Client) SessionID() string { return c.sessionID }

// AddListener appends a listener. Listeners are never removed and are
// notified in registration order; a listener added during a callback sees
// future notifications only.
func (c *Client) AddListener(listener Listener) {
	c.listeners = append(c.listeners, listener)
}

// SetFrontendCloserFunc registers the hook run once per detected
// reconnection edge, before the reconnect attempt.
func (c *Client) SetFrontendCloserFunc(closer FrontendCloserFunc) {
	c.closeFrontend = closer
}

// SetParserFuncForTesting substitutes the frame parser.
func (c *Client) SetParserFuncForTesting(parse ParserFunc) {
	c.parse = parse
}

// NextMessageID returns the id the next outgoing command will bear, without
// consuming it. Ids are monotonic for the life of the client, across
// reconnects.
func (c *Client) NextMessageID() int64 { return c.nextID }

// ConnectIfNecessary makes sure the client is connected. On a reconnection
// edge the frontend closer runs first; after a successful connect every
// listener's OnConnected is invoked, in order, before any event from the new
// connection is dispatched.
func (c *Client) ConnectIfNecessary() error {
	if c.stackDepth > 0 {
		return NewError(CodeUnknownError, "cannot connect when nested in a dispatch")
	}
	if c.socket != nil && c.socket.IsConnected() {
		return nil
	}

	if c.reconnectPending {
		c.reconnectPending = false
		if c.closeFrontend != nil {
			if err := c.closeFrontend(); err != nil {
				return err
			}
		}
	}

	c.socket = c.newSocket()
	if err := c.socket.Connect(c.url); err != nil {
		c.log.Warn("devtools connect failed",
			zap.String("client", c.id), zap.String("url", c.url), zap.Error(err))
		return NewError(CodeDisconnected, "unable to connect to renderer")
	}
	c.log.Debug("devtools connected", zap.String("client", c.id), zap.String("url", c.url))

	c.unnotifiedAlertOpen = false
	c.responses = map[int64]*responseSlot{}
	c.unnotifiedEvent, c.unnotifiedEventListeners = nil, nil
	c.unnotifiedCommand, c.unnotifiedCommandListeners = nil, nil
	c.unnotifiedConnectListeners = append([]Listener(nil), c.listeners...)
	return c.notifyConnectListeners()
}

// Close releases the current transport, if any.
func (c *Client) Close() error {
	if c.socket == nil {
		return nil
	}
	err := c.socket.Close()
	c.socket = nil
	return err
}

// SendCommand sends a command and waits for its response, discarding the
// result.
func (c *Client) SendCommand(method string, params map[string]any) error {
	_, err := c.sendCommandInternal(method, params, true, NewTimeout(c.defaultTimeout))
	return err
}

// SendCommandWithTimeout is SendCommand under an explicit deadline.
func (c *Client) SendCommandWithTimeout(method string, params map[string]any, timeout Timeout) error {
	_, err := c.sendCommandInternal(method, params, true, timeout)
	return err
}

// SendCommandAndGetResult sends a command, waits for its response and
// returns the result object.
func (c *Client) SendCommandAndGetResult(method string, params map[string]any) (map[string]any, error) {
	return c.sendCommandInternal(method, params, true, NewTimeout(c.defaultTimeout))
}

// SendCommandAndIgnoreResponse enqueues a command without blocking; the
// response is consumed silently by whichever pump receives it.
func (c *Client) SendCommandAndIgnoreResponse(method string, params map[string]any) error {
	_, err := c.sendCommandInternal(method, params, false, NewTimeout(c.defaultTimeout))
	return err
}

// HandleReceivedEvents drains and dispatches the frames currently buffered
// at the transport.
func (c *Client) HandleReceivedEvents() error {
	if c.socket == nil || !c.socket.IsConnected() {
		return NewError(CodeDisconnected, "not connected to DevTools")
	}
	for c.socket != nil && c.socket.HasNextMessage() {
		if err := c.processNextMessage(-1, false, NewTimeout(c.defaultTimeout)); err != nil {
			return err
		}
	}
	return nil
}

// HandleEventsUntil pumps events until cond reports met or the timeout
// expires. A command response received during the wait is an error; nested
// commands issued by listeners consume their responses inside their own
// pumps and are unaffected.
func (c *Client) HandleEventsUntil(cond ConditionalFunc, timeout Timeout) error {
	if c.socket == nil || !c.socket.IsConnected() {
		return NewError(CodeDisconnected, "not connected to DevTools")
	}
	for {
		if c.socket == nil {
			return NewError(CodeDisconnected, "not connected to DevTools")
		}
		if !c.socket.HasNextMessage() {
			met, err := cond()
			if err != nil {
				return err
			}
			if met {
				return nil
			}
		}
		if err := c.processNextMessage(-1, true, timeout); err != nil {
			return err
		}
	}
}

func (c *Client) sendCommandInternal(method string, params map[string]any, waitForResponse bool, timeout Timeout) (map[string]any, error) {
	if c.socket == nil || !c.socket.IsConnected() {
		return nil, NewError(CodeDisconnected, "not connected to DevTools")
	}

	id := c.nextID
	c.nextID++
	if params == nil {
		params = map[string]any{}
	}
	envelope := map[string]any{"id": id, "method": method, "params": params}
	if c.sessionID != "" {
		envelope["sessionId"] = c.sessionID
	}
	message, err := json.Marshal(envelope)
	if err != nil {
		return nil, NewError(CodeUnknownError, "cannot serialize command: "+err.Error())
	}

	// An open dialog refuses commands; the id stays consumed so callers can
	// still correlate via NextMessageID.
	if c.unnotifiedAlertOpen {
		return nil, NewError(CodeUnexpectedAlertOpen, "")
	}

	c.log.Debug("devtools command",
		zap.String("client", c.id), zap.Int64("id", id),
		zap.String("method", method), zap.Any("params", params))
	if err := c.socket.Send(string(message)); err != nil {
		c.markDisconnected()
		return nil, NewError(CodeDisconnected, "unable to send message to renderer")
	}

	slot := &responseSlot{method: method}
	c.responses[id] = slot
	if !waitForResponse {
		slot.state = slotIgnored
		return nil, nil
	}

	for slot.state == slotWaiting {
		if err := c.processNextMessage(id, false, timeout); err != nil {
			if slot.state == slotReceived {
				delete(c.responses, id)
			}
			return nil, err
		}
	}
	if slot.state == slotBlocked {
		// Leave the slot behind so the eventual response is swallowed.
		slot.state = slotIgnored
		return nil, NewError(CodeUnexpectedAlertOpen, "")
	}

	delete(c.responses, id)
	if slot.response.Error != "" {
		return nil, ParseInspectorError(slot.response.Error)
	}
	return slot.response.Result, nil
}

// processNextMessage receives and dispatches one frame. It first drains the
// deferred notification queues, which is what keeps listener callbacks
// ordered across reentrant pumps: a nested pump finishes notifying the outer
// frame's listeners before it can observe anything new.
func (c *Client) processNextMessage(expectedID int64, onlyEvents bool, timeout Timeout) error {
	c.stackDepth++
	defer func() { c.stackDepth-- }()

	if err := c.notifyConnectListeners(); err != nil {
		return err
	}
	if err := c.notifyEventListeners(); err != nil {
		return err
	}
	if err := c.notifyCommandListeners(); err != nil {
		return err
	}

	// Commands issued by the listeners just notified may have consumed this
	// pump's response already; receiving again would starve the caller.
	if expectedID != -1 {
		if slot, ok := c.responses[expectedID]; ok && slot.state != slotWaiting {
			return nil
		}
	}

	if c.socket == nil {
		return NewError(CodeDisconnected, "not connected to DevTools")
	}
	message, status := c.socket.ReceiveNextMessage(timeout)
	switch status {
	case ReceiveTimeout:
		return NewError(CodeTimeout, "timed out receiving message from renderer")
	case ReceiveDisconnected:
		c.markDisconnected()
		return NewError(CodeDisconnected, "unable to receive message from renderer")
	}

	msg, err := c.parse([]byte(message), expectedID)
	if err != nil {
		c.log.Warn("bad inspector message",
			zap.String("client", c.id), zap.String("message", message), zap.Error(err))
		return NewError(CodeUnknownError, "bad inspector message: "+message)
	}
	switch {
	case msg.Event != nil:
		return c.processEvent(msg.Event)
	case msg.Response != nil:
		if onlyEvents {
			return NewError(CodeUnknownError, "unexpected command while waiting for event")
		}
		return c.processCommandResponse(msg.Response, timeout)
	default:
		return NewError(CodeUnknownError, "bad inspector message: "+message)
	}
}

func (c *Client) processEvent(event *Event) error {
	c.log.Debug("devtools event",
		zap.String("client", c.id), zap.String("method", event.Method),
		zap.Any("params", event.Params))

	// Alert bookkeeping happens before fan-out so a listener sending a
	// command during this very dispatch observes the new state.
	switch event.Method {
	case dialogOpeningEvent:
		c.unnotifiedAlertOpen = true
		for _, slot := range c.responses {
			if slot.state == slotWaiting {
				slot.state = slotBlocked
			}
		}
	case dialogClosedEvent:
		c.unnotifiedAlertOpen = false
	}

	c.unnotifiedEventListeners = append([]Listener(nil), c.listeners...)
	c.unnotifiedEvent = event
	err := c.notifyEventListeners()
	c.unnotifiedEventListeners = nil
	c.unnotifiedEvent = nil
	return err
}

func (c *Client) processCommandResponse(response *CommandResponse, timeout Timeout) error {
	slot, ok := c.responses[response.ID]
	if !ok || slot.state == slotReceived {
		// A response to a command already consumed, or one we never sent
		// (e.g. a disable completing after a reconnect). Drop it.
		c.log.Debug("dropping unexpected command response",
			zap.String("client", c.id), zap.Int64("id", response.ID))
		return nil
	}
	c.log.Debug("devtools response",
		zap.String("client", c.id), zap.Int64("id", response.ID),
		zap.String("method", slot.method))

	slot.response = response
	switch slot.state {
	case slotWaiting:
		slot.state = slotReceived
	case slotIgnored:
		delete(c.responses, response.ID)
	}

	if response.Error == "" {
		c.unnotifiedCommandListeners = append([]Listener(nil), c.listeners...)
		c.unnotifiedCommand = &commandNotification{
			method:  slot.method,
			result:  response.Result,
			timeout: timeout,
		}
		err := c.notifyCommandListeners()
		c.unnotifiedCommandListeners = nil
		c.unnotifiedCommand = nil
		return err
	}
	return nil
}

// markDisconnected runs the disconnect bookkeeping: the transport is
// dropped, pending commands surface as disconnected when their pumps fail,
// the alert flag resets, and the reconnection edge is armed. The listener
// list and the id counter survive.
func (c *Client) markDisconnected() {
	if c.socket != nil {
		_ = c.socket.Close()
		c.reconnectPending = true
	}
	c.socket = nil
	c.responses = map[int64]*responseSlot{}
	c.unnotifiedAlertOpen = false
	c.log.Debug("devtools disconnected", zap.String("client", c.id))
}

func (c *Client) notifyConnectListeners() error {
	for len(c.unnotifiedConnectListeners) > 0 {
		listener := c.unnotifiedConnectListeners[0]
		c.unnotifiedConnectListeners = c.unnotifiedConnectListeners[1:]
		if err := listener.OnConnected(c); err != nil {
			c.unnotifiedConnectListeners = nil
			return err
		}
	}
	return nil
}

func (c *Client) notifyEventListeners() error {
	for len(c.unnotifiedEventListeners) > 0 {
		if c.unnotifiedEvent == nil {
			c.unnotifiedEventListeners = nil
			return nil
		}
		listener := c.unnotifiedEventListeners[0]
		c.unnotifiedEventListeners = c.unnotifiedEventListeners[1:]
		event := c.unnotifiedEvent
		if err := listener.OnEvent(c, event.Method, event.Params); err != nil {
			c.unnotifiedEventListeners = nil
			c.unnotifiedEvent = nil
			return err
		}
	}
	return nil
}

func (c *Client) notifyCommandListeners() error {
	for len(c.unnotifiedCommandListeners) > 0 {
		if c.unnotifiedCommand == nil {
			c.unnotifiedCommandListeners = nil
			return nil
		}
		listener := c.unnotifiedCommandListeners[0]
		c.unnotifiedCommandListeners = c.unnotifiedCommandListeners[1:]
		n := c.unnotifiedCommand
		if err := listener.OnCommandSuccess(c, n.method, n.result, n.timeout); err != nil {
			c.unnotifiedCommandListeners = nil
			c.unnotifiedCommand = nil
			return err
		}
	}
	return nil
}
