package collab

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pos(s string) json.RawMessage { return json.RawMessage(s) }

func TestPresenceCursorUpdate(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("upsert and refresh", func(t *testing.T) {
		p := newPresenceTracker("me", 30*time.Second)

		p.handleCursorUpdate(&Frame{
			Type: FrameCursorUpdate, UserID: "u2", UserName: "Bob",
			Color: "#ef4444", Position: pos(`{"x":1,"y":2}`),
		}, base)

		cursor, ok := p.cursorSnapshot()["u2"]
		require.True(t, ok)
		assert.Equal(t, "Bob", cursor.UserName)
		assert.Equal(t, "#ef4444", cursor.Color)
		assert.Equal(t, base, cursor.LastSeen)

		// A later frame refreshes lastSeen and moves the cursor.
		p.handleCursorUpdate(&Frame{
			Type: FrameCursorUpdate, UserID: "u2",
			Color: "#ef4444", Position: pos(`{"x":5,"y":6}`),
		}, base.Add(10*time.Second))

		cursor = p.cursorSnapshot()["u2"]
		assert.Equal(t, base.Add(10*time.Second), cursor.LastSeen)
		assert.JSONEq(t, `{"x":5,"y":6}`, string(cursor.Position))
		assert.Equal(t, "Bob", cursor.UserName, "name survives frames that omit it")
	})

	t.Run("local user never tracked", func(t *testing.T) {
		p := newPresenceTracker("me", 30*time.Second)
		p.handleCursorUpdate(&Frame{UserID: "me", Position: pos(`{"x":1,"y":2}`)}, base)
		p.handleCursorUpdate(&Frame{UserID: "", Position: pos(`{"x":1,"y":2}`)}, base)
		assert.Empty(t, p.cursorSnapshot())
	})

	t.Run("invalid position shape dropped", func(t *testing.T) {
		p := newPresenceTracker("me", 30*time.Second)
		p.handleCursorUpdate(&Frame{UserID: "u2", Position: pos(`{"x":1}`)}, base)
		assert.Empty(t, p.cursorSnapshot())
	})

	t.Run("null position still refreshes metadata", func(t *testing.T) {
		p := newPresenceTracker("me", 30*time.Second)
		p.handleCursorUpdate(&Frame{UserID: "u2", UserName: "Bob", Position: pos(`{"x":1,"y":2}`)}, base)
		p.handleCursorUpdate(&Frame{UserID: "u2", Position: pos(`null`)}, base.Add(5*time.Second))

		cursor := p.cursorSnapshot()["u2"]
		assert.Equal(t, base.Add(5*time.Second), cursor.LastSeen)
	})

	t.Run("missing color falls back to default", func(t *testing.T) {
		p := newPresenceTracker("me", 30*time.Second)
		p.handleCursorUpdate(&Frame{UserID: "u2", Position: pos(`{"start":0,"end":3}`)}, base)
		assert.Equal(t, DefaultCursorColor, p.cursorSnapshot()["u2"].Color)
	})
}

func TestPresenceTTL(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := newPresenceTracker("me", 30*time.Second)

	p.handleCursorUpdate(&Frame{UserID: "u2", Position: pos(`{"x":1,"y":2}`)}, base)
	p.handleSelectionUpdate(&Frame{UserID: "u3", Selection: &SelectionRange{Start: 1, End: 5}}, base)

	// One millisecond inside the window: nothing evicted.
	assert.Zero(t, p.sweep(base.Add(29999*time.Millisecond)))
	assert.Len(t, p.cursorSnapshot(), 1)
	assert.Len(t, p.selectionSnapshot(), 1)

	// Exactly at the boundary the entry survives; eviction is strictly-greater.
	assert.Zero(t, p.sweep(base.Add(30000*time.Millisecond)))

	// One millisecond past the window: both entries go.
	assert.Equal(t, 2, p.sweep(base.Add(30001*time.Millisecond)))
	assert.Empty(t, p.cursorSnapshot())
	assert.Empty(t, p.selectionSnapshot())
}

func TestPresenceRemoval(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := newPresenceTracker("me", 30*time.Second)

	p.handleCursorUpdate(&Frame{UserID: "u2", Position: pos(`{"x":1,"y":2}`)}, base)
	p.handleSelectionUpdate(&Frame{UserID: "u2", Selection: &SelectionRange{Start: 0, End: 2}}, base)

	// cursor_removed takes effect immediately, no TTL wait.
	p.handleCursorRemoved(&Frame{UserID: "u2"})
	assert.Empty(t, p.cursorSnapshot())
	assert.Len(t, p.selectionSnapshot(), 1, "selection untouched by cursor removal")

	p.handleSelectionRemoved(&Frame{UserID: "u2"})
	assert.Empty(t, p.selectionSnapshot())
}

func TestPresenceCount(t *testing.T) {
	p := newPresenceTracker("me", 30*time.Second)

	// The count is taken verbatim from the server, never computed locally.
	p.setCount(7)
	assert.Equal(t, 7, p.activeUsers)
	p.setCount(0)
	assert.Equal(t, 0, p.activeUsers)
}

func TestPresenceClear(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := newPresenceTracker("me", 30*time.Second)

	p.setCount(3)
	p.handleCursorUpdate(&Frame{UserID: "u2", Position: pos(`{"x":1,"y":2}`)}, base)
	p.handleSelectionUpdate(&Frame{UserID: "u3", Selection: &SelectionRange{Start: 1, End: 5}}, base)

	p.clear()
	assert.Zero(t, p.activeUsers)
	assert.Empty(t, p.cursorSnapshot())
	assert.Empty(t, p.selectionSnapshot())
}
