package collab

import (
	"encoding/json"
	"fmt"
)

/*
LEARNING: WIRE PROTOCOL DESIGN

Every message on the collaboration socket is a single JSON object (a "frame")
with a discriminating "type" field. One struct with omitempty fields covers
the whole protocol - simpler than a type hierarchy, and the server can route
on Type without decoding twice.
*/

// Frame types exchanged over the collaboration socket.
// Some are client-to-server only ("cursor", "selection", "ping"), some are
// server-to-client only ("init", "cursor_update", "pong", ...); "update"
// flows both ways.
const (
	FrameInit             = "init"
	FrameUpdate           = "update"
	FrameUserJoined       = "user_joined"
	FrameUserLeft         = "user_left"
	FrameCursor           = "cursor"
	FrameCursorUpdate     = "cursor_update"
	FrameCursorRemoved    = "cursor_removed"
	FrameSelection        = "selection"
	FrameSelectionUpdate  = "selection_update"
	FrameSelectionRemoved = "selection_removed"
	FramePing             = "ping"
	FramePong             = "pong"
	FrameError            = "error"
)

// knownFrameTypes guards against routing garbage further into the engine.
var knownFrameTypes = map[string]bool{
	FrameInit:             true,
	FrameUpdate:           true,
	FrameUserJoined:       true,
	FrameUserLeft:         true,
	FrameCursor:           true,
	FrameCursorUpdate:     true,
	FrameCursorRemoved:    true,
	FrameSelection:        true,
	FrameSelectionUpdate:  true,
	FrameSelectionRemoved: true,
	FramePing:             true,
	FramePong:             true,
	FrameError:            true,
}

// Frame is one discrete message on the collaboration socket.
type Frame struct {
	Type        string          `json:"type"`
	Content     string          `json:"content,omitempty"`
	UserID      string          `json:"user_id,omitempty"`
	UserName    string          `json:"user_name,omitempty"`
	Color       string          `json:"color,omitempty"`
	Timestamp   int64           `json:"timestamp,omitempty"` // epoch milliseconds
	ActiveUsers int             `json:"active_users,omitempty"`
	Position    json.RawMessage `json:"position,omitempty"` // producer-defined shape, see ValidPosition
	Selection   *SelectionRange `json:"selection,omitempty"`
	Message     string          `json:"message,omitempty"` // error frames only
}

// SelectionRange is a text range highlighted by a collaborator.
type SelectionRange struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text,omitempty"`
}

// cursorShape is used only to validate position payloads. Producers send
// either pixel offsets {x,y} or a text-offset pair {start,end}.
type cursorShape struct {
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
	Start *int     `json:"start"`
	End   *int     `json:"end"`
}

// Encode serializes the frame for transmission.
func (f *Frame) Encode() ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s frame: %w", f.Type, err)
	}
	return data, nil
}

// DecodeFrame parses a raw socket message into a Frame.
// Undecodable JSON and unknown frame types are errors; callers log and drop
// the frame without touching connection state.
func DecodeFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	if !knownFrameTypes[f.Type] {
		return nil, fmt.Errorf("unknown frame type %q", f.Type)
	}
	return &f, nil
}

// ValidPosition reports whether a raw cursor position payload has one of the
// two recognized shapes. A nil payload is valid (it clears the rendered
// cursor); anything else malformed is dropped silently by the caller.
func ValidPosition(raw json.RawMessage) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return true
	}
	var shape cursorShape
	if err := json.Unmarshal(raw, &shape); err != nil {
		return false
	}
	if shape.X != nil && shape.Y != nil {
		return true
	}
	if shape.Start != nil && shape.End != nil {
		return true
	}
	return false
}
