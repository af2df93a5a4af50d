package collab

import (
	"encoding/json"
	"time"
)

// DefaultCursorColor is used when a presence frame carries no color.
const DefaultCursorColor = "#9ca3af"

// RemoteCursor is the live pointer/caret state of another collaborator.
type RemoteCursor struct {
	UserID   string
	UserName string
	Color    string
	Position json.RawMessage // producer-defined {x,y} or {start,end}; nil clears rendering
	LastSeen time.Time
}

// RemoteSelection is the live text-range highlight of another collaborator.
type RemoteSelection struct {
	UserID    string
	UserName  string
	Color     string
	Selection SelectionRange
	LastSeen  time.Time
}

// presenceTracker maintains the active-user count and the time-bounded maps
// of remote cursor/selection state for one session. Entries are refreshed on
// every frame from their owner and evicted by the periodic TTL sweep when a
// peer vanishes without a graceful teardown frame (network partition).
//
// All methods run on the session event loop; the session copies the maps
// before handing them out.
type presenceTracker struct {
	userID      string
	activeUsers int
	cursors     map[string]*RemoteCursor
	selections  map[string]*RemoteSelection
	ttl         time.Duration
}

func newPresenceTracker(userID string, ttl time.Duration) *presenceTracker {
	return &presenceTracker{
		userID:     userID,
		cursors:    make(map[string]*RemoteCursor),
		selections: make(map[string]*RemoteSelection),
		ttl:        ttl,
	}
}

// setCount replaces the active-user count with the server's authoritative
// value, verbatim. The count is never incremented locally - not even
// optimistically on connect - so it can briefly read zero until the init
// frame lands.
func (p *presenceTracker) setCount(n int) {
	p.activeUsers = n
}

// handleCursorUpdate upserts the cursor entry for a non-local user.
// Positions with an unrecognized shape are dropped silently; a null/absent
// position still refreshes the entry's metadata and lastSeen.
func (p *presenceTracker) handleCursorUpdate(f *Frame, now time.Time) {
	if f.UserID == "" || f.UserID == p.userID {
		return
	}
	if !ValidPosition(f.Position) {
		return
	}

	cursor := p.cursors[f.UserID]
	if cursor == nil {
		cursor = &RemoteCursor{UserID: f.UserID}
		p.cursors[f.UserID] = cursor
	}
	cursor.Position = f.Position
	cursor.LastSeen = now
	if f.UserName != "" {
		cursor.UserName = f.UserName
	}
	cursor.Color = f.Color
	if cursor.Color == "" {
		cursor.Color = DefaultCursorColor
	}
}

// handleCursorRemoved deletes the entry immediately, bypassing the TTL.
func (p *presenceTracker) handleCursorRemoved(f *Frame) {
	delete(p.cursors, f.UserID)
}

func (p *presenceTracker) handleSelectionUpdate(f *Frame, now time.Time) {
	if f.UserID == "" || f.UserID == p.userID || f.Selection == nil {
		return
	}

	sel := p.selections[f.UserID]
	if sel == nil {
		sel = &RemoteSelection{UserID: f.UserID}
		p.selections[f.UserID] = sel
	}
	sel.Selection = *f.Selection
	sel.LastSeen = now
	if f.UserName != "" {
		sel.UserName = f.UserName
	}
	sel.Color = f.Color
	if sel.Color == "" {
		sel.Color = DefaultCursorColor
	}
}

func (p *presenceTracker) handleSelectionRemoved(f *Frame) {
	delete(p.selections, f.UserID)
}

// sweep evicts every entry not refreshed within the TTL window. This is the
// only cleanup path for peers that disconnected without cursor_removed or
// user_left frames.
func (p *presenceTracker) sweep(now time.Time) int {
	evicted := 0
	for id, cursor := range p.cursors {
		if now.Sub(cursor.LastSeen) > p.ttl {
			delete(p.cursors, id)
			evicted++
		}
	}
	for id, sel := range p.selections {
		if now.Sub(sel.LastSeen) > p.ttl {
			delete(p.selections, id)
			evicted++
		}
	}
	return evicted
}

// clear drops all presence state. Called synchronously on every close:
// presence is connection-scoped and never assumed valid across a reconnect.
func (p *presenceTracker) clear() {
	p.cursors = make(map[string]*RemoteCursor)
	p.selections = make(map[string]*RemoteSelection)
	p.activeUsers = 0
}

func (p *presenceTracker) cursorSnapshot() map[string]RemoteCursor {
	out := make(map[string]RemoteCursor, len(p.cursors))
	for id, cursor := range p.cursors {
		out[id] = *cursor
	}
	return out
}

func (p *presenceTracker) selectionSnapshot() map[string]RemoteSelection {
	out := make(map[string]RemoteSelection, len(p.selections))
	for id, sel := range p.selections {
		out[id] = *sel
	}
	return out
}
