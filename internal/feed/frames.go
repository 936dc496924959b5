package feed

import (
	"encoding/json"
	"fmt"
)

// FrameError carries structured context for a bad frame.
type FrameError struct {
	Code    string // "INVALID_JSON", "MISSING_FIELD", "UNKNOWN_TYPE"
	Field   string
	Message string
}

func (e *FrameError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("frame error [%s]: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("frame error [%s]: %s", e.Code, e.Message)
}

const frameTypeEvent = "event"

// EventHandled is emitted once per dispatched request.
const EventHandled = "interaction.handled"

// EventFrame is the only frame the feed sends.
type EventFrame struct {
	Type    string          `json:"type"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Seq     int64           `json:"seq"`
}

// HandledPayload describes one dispatch outcome.
type HandledPayload struct {
	InteractionID string  `json:"interaction_id,omitempty"`
	Type          string  `json:"type"`
	Target        string  `json:"target,omitempty"`
	Status        int     `json:"status"`
	Outcome       string  `json:"outcome"`
	Error         string  `json:"error,omitempty"`
	DurationMS    float64 `json:"duration_ms"`
	Canonicalized bool    `json:"canonicalized,omitempty"`
	Bypassed      bool    `json:"bypassed,omitempty"`
}

// MarshalEvent encodes an event frame with sequence number seq.
func MarshalEvent(event string, seq int64, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return json.Marshal(EventFrame{Type: frameTypeEvent, Event: event, Payload: raw, Seq: seq})
}

// ParseEvent decodes and validates an event frame.
func ParseEvent(data []byte) (*EventFrame, error) {
	var evt EventFrame
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, &FrameError{Code: "INVALID_JSON", Message: fmt.Sprintf("invalid frame JSON: %v", err)}
	}
	if evt.Type == "" {
		return nil, &FrameError{Code: "MISSING_FIELD", Field: "type", Message: "frame missing required \"type\" field"}
	}
	if evt.Type != frameTypeEvent {
		return nil, &FrameError{Code: "UNKNOWN_TYPE", Message: fmt.Sprintf("unknown frame type: %q", evt.Type)}
	}
	if evt.Event == "" {
		return nil, &FrameError{Code: "MISSING_FIELD", Field: "event", Message: "event frame missing required \"event\" field"}
	}
	return &evt, nil
}

// Handled decodes the payload of an interaction.handled frame.
func (f *EventFrame) Handled() (*HandledPayload, error) {
	if f.Event != EventHandled {
		return nil, fmt.Errorf("frame is %q, not %q", f.Event, EventHandled)
	}
	var p HandledPayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		return nil, &FrameError{Code: "INVALID_JSON", Field: "payload", Message: err.Error()}
	}
	return &p, nil
}
