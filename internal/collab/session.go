package collab

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
)

/*
LEARNING: SINGLE EVENT LOOP PER SESSION

Inbound frames, user commands and every timer (heartbeat, backoff, TTL sweep)
funnel into one goroutine, so handlers run to completion in arrival order and
the shared maps need no per-field locking. The RWMutex below exists only so
UI-side readers can take consistent snapshots while the loop is mutating.

Frames are processed exactly in the order the transport delivers them; there
is deliberately no reordering or sequencing layer on top, because the
last-writer-wins policy in the synchronizer depends on it.
*/

// Options configures a collaboration session for one open document.
// Zero durations and counts fall back to the production defaults.
type Options struct {
	// URL is the collaboration endpoint without the document id, e.g.
	// "ws://localhost:8080/ws/documents".
	URL        string
	DocumentID string
	UserID     string
	UserName   string

	// OnContent receives server-applied content replacements (the editor
	// sink). It is invoked from the session's event loop and must not block.
	OnContent func(content string)

	MaxReconnectAttempts int           // default 5
	BackoffBase          time.Duration // default 1s
	BackoffMax           time.Duration // default 30s
	HeartbeatInterval    time.Duration // default 30s
	PresenceTTL          time.Duration // default 30s
	SweepInterval        time.Duration // default 10s
	HandshakeTimeout     time.Duration // default 10s
}

func (o *Options) withDefaults() {
	if o.UserName == "" {
		o.UserName = "Anonymous"
	}
	if o.MaxReconnectAttempts == 0 {
		o.MaxReconnectAttempts = 5
	}
	if o.BackoffBase == 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffMax == 0 {
		o.BackoffMax = 30 * time.Second
	}
	if o.HeartbeatInterval == 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
	if o.PresenceTTL == 0 {
		o.PresenceTTL = 30 * time.Second
	}
	if o.SweepInterval == 0 {
		o.SweepInterval = 10 * time.Second
	}
	if o.HandshakeTimeout == 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
}

type cmdKind int

const (
	cmdSendContent cmdKind = iota
	cmdSendCursor
	cmdSendSelection
	cmdReconnect
)

type command struct {
	kind      cmdKind
	content   string
	position  json.RawMessage
	selection SelectionRange
}

// Session is the live collaboration context for one open document by one
// user: the single object the editing surface and UI chrome talk to. All
// failures stay local to the session; the worst outcome is a visibly
// disconnected session awaiting a manual Reconnect.
type Session struct {
	id   string
	opts Options

	conn     *connManager
	syncer   *synchronizer
	presence *presenceTracker

	commands chan command
	done     chan struct{}
	stopped  chan struct{}
	closing  sync.Once

	now func() time.Time

	// mu guards the observable state the event loop mutates so accessors
	// can read it from other goroutines.
	mu sync.RWMutex
}

// Open starts a collaboration session and dials the server. The returned
// session is live immediately; connection progress is observable via State.
func Open(opts Options) (*Session, error) {
	if opts.URL == "" {
		return nil, errors.New("collab: URL is required")
	}
	if opts.DocumentID == "" {
		return nil, errors.New("collab: DocumentID is required")
	}
	if opts.UserID == "" {
		return nil, errors.New("collab: UserID is required")
	}
	opts.withDefaults()

	s := &Session{
		id:       ksuid.New().String(),
		opts:     opts,
		commands: make(chan command, 16),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		now:      time.Now,
	}
	s.conn = newConnManager(&s.opts)
	s.syncer = newSynchronizer(opts.UserID, opts.OnContent, func() time.Time { return s.now() })
	s.presence = newPresenceTracker(opts.UserID, opts.PresenceTTL)

	go s.run()
	return s, nil
}

// Close performs the clean teardown used when the document view unmounts:
// cancel all pending timers, send close code 1000 so no retry is scheduled,
// and stop the event loop. Safe to call more than once; no callback fires
// after Close returns.
func (s *Session) Close() {
	s.closing.Do(func() { close(s.done) })
	<-s.stopped
}

// SendContentUpdate transmits the full document content, unless it is a
// duplicate of the last known content or the connection is not open.
func (s *Session) SendContentUpdate(content string) {
	s.enqueue(command{kind: cmdSendContent, content: content})
}

// SendCursorPosition broadcasts the local caret/pointer position. The
// payload shape is producer-defined ({x,y} or {start,end}).
func (s *Session) SendCursorPosition(position json.RawMessage) {
	s.enqueue(command{kind: cmdSendCursor, position: position})
}

// SendSelection broadcasts the local text selection.
func (s *Session) SendSelection(sel SelectionRange) {
	s.enqueue(command{kind: cmdSendSelection, selection: sel})
}

// Reconnect is the manual escape hatch from the Failed state: force the
// transport closed, reset the retry budget and dial immediately.
func (s *Session) Reconnect() {
	s.enqueue(command{kind: cmdReconnect})
}

func (s *Session) enqueue(cmd command) {
	select {
	case s.commands <- cmd:
	case <-s.stopped:
		// Session already torn down; command dropped.
	}
}

// State returns the current connection lifecycle state.
func (s *Session) State() ConnState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn.state
}

// Connected reports whether the transport is open.
func (s *Session) Connected() bool {
	return s.State() == StateOpen
}

// ActiveUsers returns the server's authoritative collaborator count.
func (s *Session) ActiveUsers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.presence.activeUsers
}

// RemoteCursors returns a copy of the live remote cursor map, keyed by user
// id. The local user never appears in it.
func (s *Session) RemoteCursors() map[string]RemoteCursor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.presence.cursorSnapshot()
}

// RemoteSelections returns a copy of the live remote selection map.
func (s *Session) RemoteSelections() map[string]RemoteSelection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.presence.selectionSnapshot()
}

// ConnectionError returns the most recent human-readable connection error,
// or "" when healthy. Cleared on every successful connect.
func (s *Session) ConnectionError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn.lastErr
}

// run is the session event loop. Everything that mutates session state
// happens here.
func (s *Session) run() {
	defer close(s.stopped)

	heartbeat := time.NewTicker(s.opts.HeartbeatInterval)
	defer heartbeat.Stop()
	sweep := time.NewTicker(s.opts.SweepInterval)
	defer sweep.Stop()

	// retryC is non-nil only while a backoff retry is pending; selecting on
	// a nil channel blocks forever, which is exactly what we want otherwise.
	var retryC <-chan time.Time

	s.mu.Lock()
	s.conn.connect()
	s.mu.Unlock()

	for {
		select {
		case <-s.done:
			s.mu.Lock()
			s.conn.shutdown()
			s.presence.clear()
			s.mu.Unlock()
			return

		case ev := <-s.conn.events:
			retryC = s.handleConnEvent(ev, retryC)

		case cmd := <-s.commands:
			retryC = s.handleCommand(cmd, retryC)

		case <-heartbeat.C:
			s.mu.Lock()
			s.conn.send(&Frame{Type: FramePing})
			s.mu.Unlock()

		case <-sweep.C:
			s.mu.Lock()
			if n := s.presence.sweep(s.now()); n > 0 {
				log.Printf("collab: session %s evicted %d stale presence entries", s.id, n)
			}
			s.mu.Unlock()

		case <-retryC:
			retryC = nil
			s.mu.Lock()
			s.conn.connect()
			s.mu.Unlock()
		}
	}
}

func (s *Session) handleConnEvent(ev connEvent, retryC <-chan time.Time) <-chan time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Events from a connection we already abandoned must not touch current
	// state; an orphaned dial still hands us a socket to dispose of.
	if ev.epoch != s.conn.epoch {
		if ev.kind == connOpened && ev.ws != nil {
			ev.ws.Close()
		}
		return retryC
	}

	switch ev.kind {
	case connOpened:
		if s.conn.handleOpened(ev) {
			log.Printf("collab: session %s connected to document %s", s.id, s.opts.DocumentID)
		}
		return nil

	case connErrored:
		// Transport errors surface a message but do not drive the state
		// machine; the close event that follows does.
		s.conn.lastErr = fmt.Sprintf("connection error: %v", ev.err)
		return retryC

	case connClosed:
		delay := s.conn.handleClosed(ev)
		// Presence is connection-scoped: cleared synchronously on any close.
		s.presence.clear()
		if delay < 0 {
			return nil
		}
		return time.After(delay)

	case connFrame:
		s.handleFrame(ev.frame)
	}
	return retryC
}

func (s *Session) handleFrame(f *Frame) {
	switch f.Type {
	case FrameInit:
		s.syncer.handleInit(f)
		s.presence.setCount(f.ActiveUsers)

	case FrameUpdate:
		s.syncer.handleUpdate(f)

	case FrameUserJoined, FrameUserLeft:
		s.presence.setCount(f.ActiveUsers)

	case FrameCursorUpdate:
		s.presence.handleCursorUpdate(f, s.now())

	case FrameCursorRemoved:
		s.presence.handleCursorRemoved(f)

	case FrameSelectionUpdate:
		s.presence.handleSelectionUpdate(f, s.now())

	case FrameSelectionRemoved:
		s.presence.handleSelectionRemoved(f)

	case FramePong:
		// Accepted but never enforced; the heartbeat is one-directional.
		s.conn.lastPong = s.now()

	case FrameError:
		// Server-reported error, surfaced verbatim. The connection stays
		// open unless the server also closes it.
		s.conn.lastErr = f.Message

	default:
		log.Printf("collab: session %s ignoring unexpected %s frame", s.id, f.Type)
	}
}

func (s *Session) handleCommand(cmd command, retryC <-chan time.Time) <-chan time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd.kind {
	case cmdSendContent:
		s.syncer.sendUpdate(cmd.content, s.conn.send)

	case cmdSendCursor:
		s.conn.send(&Frame{
			Type:     FrameCursor,
			Position: cmd.position,
			UserID:   s.opts.UserID,
		})

	case cmdSendSelection:
		sel := cmd.selection
		s.conn.send(&Frame{
			Type:      FrameSelection,
			Selection: &sel,
			UserID:    s.opts.UserID,
		})

	case cmdReconnect:
		s.conn.forceClose()
		s.presence.clear()
		s.conn.connect()
		return nil // cancel any pending automatic retry
	}
	return retryC
}
