package devtools

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event is a server-pushed notification: a method with no id.
type Event struct {
	Method string
	Params map[string]any
}

// CommandResponse answers a numbered command. Exactly one of Result and
// Error is meaningful: Error holds the raw JSON text of the protocol error
// object, verbatim, and is empty on success.
type CommandResponse struct {
	ID     int64
	Result map[string]any
	Error  string
}

// InspectorMessage is a parsed frame. Exactly one of Event and Response is
// non-nil. SessionID is empty for the root session.
type InspectorMessage struct {
	SessionID string
	Event     *Event
	Response  *CommandResponse
}

// ParserFunc turns a raw frame into an InspectorMessage. expectedID is the
// id of the command the current pump is waiting for; the default parser
// ignores it, but substitute parsers installed for testing use it to
// fabricate matching responses.
type ParserFunc func(message []byte, expectedID int64) (*InspectorMessage, error)

// ParseInspectorMessage classifies a frame as an event or a command
// response. A frame with a string "method" is an event (params default to an
// empty object). Otherwise a frame with an integer "id" is a command
// response; when it carries neither "result" nor "error", an empty result is
// synthesized, since DevTools may omit both on trivially-successful
// commands. Anything else is a parse failure.
func ParseInspectorMessage(message []byte, expectedID int64) (*InspectorMessage, error) {
	var frame struct {
		ID        *int64          `json:"id"`
		Method    *string         `json:"method"`
		SessionID string          `json:"sessionId"`
		Params    json.RawMessage `json:"params"`
		Result    json.RawMessage `json:"result"`
		Error     json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(message, &frame); err != nil {
		return nil, fmt.Errorf("not an inspector message: %w", err)
	}

	switch {
	case frame.Method != nil:
		params := map[string]any{}
		if present(frame.Params) {
			if err := json.Unmarshal(frame.Params, &params); err != nil {
				return nil, fmt.Errorf("malformed event params: %w", err)
			}
		}
		return &InspectorMessage{
			SessionID: frame.SessionID,
			Event:     &Event{Method: *frame.Method, Params: params},
		}, nil

	case frame.ID != nil:
		resp := &CommandResponse{ID: *frame.ID}
		if present(frame.Error) {
			resp.Error = string(frame.Error)
		} else {
			resp.Result = map[string]any{}
			if present(frame.Result) {
				if err := json.Unmarshal(frame.Result, &resp.Result); err != nil {
					return nil, fmt.Errorf("malformed command result: %w", err)
				}
			}
		}
		return &InspectorMessage{SessionID: frame.SessionID, Response: resp}, nil

	default:
		return nil, errors.New("message is neither an event nor a command response")
	}
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}
