package devtools

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// DefaultDialTimeout bounds the WebSocket handshake.
const DefaultDialTimeout = 10 * time.Second

// receiveBuffer is how many unread frames the reader may hold before it
// applies backpressure to the connection.
const receiveBuffer = 256

// WebSocket is the production SyncWebSocket over a coder/websocket
// connection. A single reader goroutine pumps frames into a buffered queue
// so receives can honor deadlines and HasNextMessage never blocks.
type WebSocket struct {
	dialTimeout time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	frames    chan string
}

// NewWebSocket creates an unconnected transport.
func NewWebSocket() *WebSocket {
	return &WebSocket{dialTimeout: DefaultDialTimeout}
}

// Connect dials the DevTools endpoint and starts the reader.
func (s *WebSocket) Connect(url string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	// Screenshots and DOM snapshots exceed the library's default read limit.
	conn.SetReadLimit(-1)

	frames := make(chan string, receiveBuffer)
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.frames = frames
	s.mu.Unlock()

	go s.readLoop(conn, frames)
	return nil
}

func (s *WebSocket) readLoop(conn *websocket.Conn, frames chan string) {
	for {
		_, data, err := conn.Read(context.Background())
		if err != nil {
			s.mu.Lock()
			if s.conn == conn {
				s.connected = false
			}
			s.mu.Unlock()
			close(frames)
			return
		}
		frames <- string(data)
	}
}

// Send writes one text frame.
func (s *WebSocket) Send(message string) error {
	s.mu.Lock()
	conn, connected := s.conn, s.connected
	s.mu.Unlock()
	if conn == nil || !connected {
		return errors.New("websocket is not connected")
	}
	if err := conn.Write(context.Background(), websocket.MessageText, []byte(message)); err != nil {
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReceiveNextMessage returns the next buffered frame, waiting until the
// timeout's deadline if none is buffered yet.
func (s *WebSocket) ReceiveNextMessage(timeout Timeout) (string, ReceiveStatus) {
	s.mu.Lock()
	frames := s.frames
	s.mu.Unlock()
	if frames == nil {
		return "", ReceiveDisconnected
	}
	if timeout.Expired() {
		return "", ReceiveTimeout
	}

	timer := time.NewTimer(timeout.Remaining())
	defer timer.Stop()
	select {
	case msg, ok := <-frames:
		if !ok {
			return "", ReceiveDisconnected
		}
		return msg, ReceiveOK
	case <-timer.C:
		return "", ReceiveTimeout
	}
}

// HasNextMessage reports whether a frame is buffered.
func (s *WebSocket) HasNextMessage() bool {
	s.mu.Lock()
	frames := s.frames
	s.mu.Unlock()
	return frames != nil && len(frames) > 0
}

// IsConnected reports connection health as last observed.
func (s *WebSocket) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Close tears down the connection; the reader exits and drains.
func (s *WebSocket) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "client closing")
}
