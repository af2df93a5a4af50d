package collab

import "time"

/*
LEARNING: LAST-WRITER-WINS SYNCHRONIZATION

There is no operational transform or CRDT here. The engine keeps one
authoritative "last known content" snapshot and replaces the whole document
whenever the server broadcasts something different. Concurrent edits inside
one round-trip window clobber each other; whichever update is processed last
wins. That is a deliberate simplicity/latency trade-off carried over from
the product, not a bug.

The same snapshot doubles as the feedback-loop suppressor: an outbound
update equal to the snapshot is a duplicate and is dropped, and an inbound
update equal to the snapshot is an echo and is not re-applied.
*/

// synchronizer reconciles local edits with server broadcasts for one
// document. All methods run on the session event loop.
type synchronizer struct {
	userID   string
	lastSent string             // most recently observed content, local or remote
	apply    func(content string) // sink into the editing surface
	now      func() time.Time
}

func newSynchronizer(userID string, apply func(string), now func() time.Time) *synchronizer {
	if apply == nil {
		apply = func(string) {}
	}
	return &synchronizer{userID: userID, apply: apply, now: now}
}

// sendUpdate transmits a content replacement unless it matches the last
// known content (duplicate suppression). The snapshot is advanced before the
// send is attempted, so a frame dropped while disconnected is not resent -
// delivery is best-effort by design.
func (s *synchronizer) sendUpdate(content string, send func(*Frame) bool) bool {
	if content == s.lastSent {
		return false
	}
	s.lastSent = content

	return send(&Frame{
		Type:      FrameUpdate,
		Content:   content,
		UserID:    s.userID,
		Timestamp: s.now().UnixMilli(),
	})
}

// handleInit seeds the session with the server's authoritative snapshot.
// Sent once immediately after every (re)connect.
func (s *synchronizer) handleInit(f *Frame) {
	if f.Content == s.lastSent {
		return
	}
	s.lastSent = f.Content
	s.apply(f.Content)
}

// handleUpdate applies a content broadcast from another user. An update
// carrying the local user id is the server echoing our own change and is
// ignored, so the editor never flickers on its own edits.
func (s *synchronizer) handleUpdate(f *Frame) {
	if f.UserID == s.userID {
		return
	}
	if f.Content == s.lastSent {
		return
	}
	s.lastSent = f.Content
	s.apply(f.Content)
}
