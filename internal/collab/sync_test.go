package collab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestSendUpdate(t *testing.T) {
	t.Run("duplicate content is suppressed", func(t *testing.T) {
		s := newSynchronizer("u1", nil, fixedNow)

		var sent []*Frame
		send := func(f *Frame) bool {
			sent = append(sent, f)
			return true
		}

		assert.True(t, s.sendUpdate("hello", send))
		assert.False(t, s.sendUpdate("hello", send), "identical content must not retransmit")
		assert.True(t, s.sendUpdate("hello!", send))

		require.Len(t, sent, 2)
		assert.Equal(t, FrameUpdate, sent[0].Type)
		assert.Equal(t, "hello", sent[0].Content)
		assert.Equal(t, "u1", sent[0].UserID)
		assert.Equal(t, fixedNow().UnixMilli(), sent[0].Timestamp)
		assert.Equal(t, "hello!", sent[1].Content)
	})

	t.Run("snapshot advances even when the transport drops the frame", func(t *testing.T) {
		s := newSynchronizer("u1", nil, fixedNow)

		drop := func(*Frame) bool { return false }
		assert.False(t, s.sendUpdate("offline edit", drop))

		// The edit is gone for good: retrying with the same content is a
		// duplicate against the advanced snapshot.
		var sent int
		accept := func(*Frame) bool { sent++; return true }
		assert.False(t, s.sendUpdate("offline edit", accept))
		assert.Zero(t, sent)
	})
}

func TestHandleInit(t *testing.T) {
	var applied []string
	s := newSynchronizer("u1", func(c string) { applied = append(applied, c) }, fixedNow)
	s.lastSent = "my unsaved local edit"

	// The init snapshot is authoritative and overwrites local state.
	s.handleInit(&Frame{Type: FrameInit, Content: "server truth"})
	assert.Equal(t, []string{"server truth"}, applied)
	assert.Equal(t, "server truth", s.lastSent)

	// An init matching current content is a no-op.
	s.handleInit(&Frame{Type: FrameInit, Content: "server truth"})
	assert.Len(t, applied, 1)
}

func TestHandleUpdate(t *testing.T) {
	t.Run("own echo is never applied", func(t *testing.T) {
		var applied int
		s := newSynchronizer("u1", func(string) { applied++ }, fixedNow)

		s.sendUpdate("draft", func(*Frame) bool { return true })
		s.handleUpdate(&Frame{Type: FrameUpdate, Content: "draft", UserID: "u1"})
		s.handleUpdate(&Frame{Type: FrameUpdate, Content: "something else entirely", UserID: "u1"})
		assert.Zero(t, applied, "frames carrying the local user id must be ignored")
	})

	t.Run("remote content identical to snapshot is not re-applied", func(t *testing.T) {
		var applied int
		s := newSynchronizer("u1", func(string) { applied++ }, fixedNow)
		s.lastSent = "shared"

		s.handleUpdate(&Frame{Type: FrameUpdate, Content: "shared", UserID: "u2"})
		assert.Zero(t, applied)
	})

	t.Run("remote edit replaces content", func(t *testing.T) {
		var applied []string
		s := newSynchronizer("u1", func(c string) { applied = append(applied, c) }, fixedNow)
		s.lastSent = "v1"

		s.handleUpdate(&Frame{Type: FrameUpdate, Content: "v2", UserID: "u2"})
		assert.Equal(t, []string{"v2"}, applied)
		assert.Equal(t, "v2", s.lastSent)
	})

	t.Run("interleaved edits are last-writer-wins", func(t *testing.T) {
		var applied []string
		s := newSynchronizer("u1", func(c string) { applied = append(applied, c) }, fixedNow)

		s.sendUpdate("mine", func(*Frame) bool { return true })
		// A concurrent remote edit lands after ours: it wins, wholesale.
		s.handleUpdate(&Frame{Type: FrameUpdate, Content: "theirs", UserID: "u2"})
		assert.Equal(t, []string{"theirs"}, applied)
		assert.Equal(t, "theirs", s.lastSent)
	})
}
