package collaboration

import (
	"context"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"collabdocs/internal/collab"
	"collabdocs/internal/models"

	"github.com/gorilla/websocket"
)

/*
LEARNING: DOCUMENT ROOM HUB

One hub coordinates every open document. Each document id maps to a "room":
the set of live sessions editing it plus the current in-memory content.
Register/unregister/broadcast all flow through a single event loop goroutine,
so room membership changes are serialized; per-session send channels decouple
slow clients from the loop. Work already running on the loop calls the
handlers directly and never sends on the loop's own channels, which would
block it against itself.

The hub is the authoritative side of the wire protocol the collab client
speaks: it seeds joiners with an init snapshot, stamps and rebroadcasts
updates, fans out presence, and answers heartbeats.
*/

// cursorPalette provides stable per-user cursor colors; a user keeps the
// same color across sessions because the pick is hashed from the user id.
var cursorPalette = []string{
	"#ef4444", "#f97316", "#eab308", "#22c55e",
	"#06b6d4", "#3b82f6", "#8b5cf6", "#ec4899",
}

func colorFor(userID string) string {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return cursorPalette[int(h.Sum32())%len(cursorPalette)]
}

// ContentProvider seeds a freshly opened room with the document's persisted
// content, so the init snapshot survives the room having been empty.
type ContentProvider interface {
	GetContent(ctx context.Context, documentID string) (string, error)
}

// roomMessage is a frame to fan out to a document room. A non-nil Sender is
// skipped (rebroadcasts never echo back over the hub; the protocol's echo
// suppression on the client is a second line of defense).
type roomMessage struct {
	DocumentID string
	Frame      *collab.Frame
	Sender     *Session
}

// DocumentManager owns every document room and serializes membership and
// broadcast through its event loop.
type DocumentManager struct {
	rooms   map[string]map[*Session]bool // documentID -> live sessions
	content map[string]string            // documentID -> current content

	register   chan *Session
	unregister chan *Session
	broadcast  chan *roomMessage

	provider ContentProvider

	mu   sync.RWMutex
	done chan struct{}
}

// Session is one live WebSocket connection inside a room.
type Session struct {
	*models.LiveSession
	Conn    *websocket.Conn
	Send    chan []byte // buffered outbound queue
	Manager *DocumentManager
}

func NewDocumentManager(provider ContentProvider) *DocumentManager {
	return &DocumentManager{
		rooms:      make(map[string]map[*Session]bool),
		content:    make(map[string]string),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		broadcast:  make(chan *roomMessage, 256),
		provider:   provider,
		done:       make(chan struct{}),
	}
}

// Start begins the hub event loop and the stale-session cleanup ticker.
func (dm *DocumentManager) Start() {
	log.Println("🔄 Starting document collaboration hub...")

	go func() {
		for {
			select {
			case <-dm.done:
				log.Println("Collaboration hub shutting down...")
				return
			case session := <-dm.register:
				dm.handleRegister(session)
			case session := <-dm.unregister:
				dm.handleUnregister(session)
			case msg := <-dm.broadcast:
				dm.handleBroadcast(msg)
			}
		}
	}()

	go dm.cleanupLoop()

	log.Println("✓ Document collaboration hub started")
}

// handleRegister adds a session to its document room and runs the join
// protocol: seed the room content if this is the first session, send the
// init snapshot to the joiner, announce the join to everyone else.
func (dm *DocumentManager) handleRegister(session *Session) {
	dm.mu.Lock()

	room := dm.rooms[session.DocumentID]
	if room == nil {
		room = make(map[*Session]bool)
		dm.rooms[session.DocumentID] = room

		if _, ok := dm.content[session.DocumentID]; !ok && dm.provider != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			content, err := dm.provider.GetContent(ctx, session.DocumentID)
			cancel()
			if err != nil {
				log.Printf("⚠️  Failed to seed room %s from store: %v", session.DocumentID, err)
			} else {
				dm.content[session.DocumentID] = content
			}
		}
	}

	room[session] = true
	active := len(room)
	content := dm.content[session.DocumentID]
	dm.mu.Unlock()

	log.Printf("  Session %s (%s) joined document %s (total: %d users)",
		session.ID, session.UserName, session.DocumentID, active)

	dm.sendTo(session, &collab.Frame{
		Type:        collab.FrameInit,
		Content:     content,
		ActiveUsers: active,
	})

	// Fan out directly: this runs on the hub loop, and enqueueing onto the
	// loop's own channels from here could wedge it.
	dm.handleBroadcast(&roomMessage{
		DocumentID: session.DocumentID,
		Frame: &collab.Frame{
			Type:        collab.FrameUserJoined,
			UserID:      session.UserID,
			UserName:    session.UserName,
			ActiveUsers: active,
		},
		Sender: session,
	})
}

// handleUnregister removes a session and announces the departure, including
// explicit cursor/selection teardown so peers do not wait out the TTL.
func (dm *DocumentManager) handleUnregister(session *Session) {
	dm.mu.Lock()

	room, ok := dm.rooms[session.DocumentID]
	if !ok || !room[session] {
		dm.mu.Unlock()
		return
	}

	delete(room, session)
	close(session.Send)
	remaining := len(room)
	if remaining == 0 {
		delete(dm.rooms, session.DocumentID)
		delete(dm.content, session.DocumentID)
	}
	dm.mu.Unlock()

	log.Printf("  Session %s left document %s (remaining: %d users)",
		session.ID, session.DocumentID, remaining)

	if remaining == 0 {
		return
	}

	for _, frame := range []*collab.Frame{
		{Type: collab.FrameCursorRemoved, UserID: session.UserID},
		{Type: collab.FrameSelectionRemoved, UserID: session.UserID},
		{Type: collab.FrameUserLeft, UserID: session.UserID, UserName: session.UserName, ActiveUsers: remaining},
	} {
		dm.handleBroadcast(&roomMessage{DocumentID: session.DocumentID, Frame: frame})
	}
}

// handleBroadcast fans a frame out to a room, skipping the sender.
func (dm *DocumentManager) handleBroadcast(msg *roomMessage) {
	data, err := msg.Frame.Encode()
	if err != nil {
		log.Printf("collab hub: %v", err)
		return
	}

	dm.mu.RLock()
	room := dm.rooms[msg.DocumentID]
	sessions := make([]*Session, 0, len(room))
	for session := range room {
		if msg.Sender != nil && session == msg.Sender {
			continue
		}
		sessions = append(sessions, session)
	}
	dm.mu.RUnlock()

	var doomed []*Session
	for _, session := range sessions {
		select {
		case session.Send <- data:
		default:
			// Buffer full: connection is slow or dead, drop it.
			log.Printf("⚠️  Session %s buffer full, closing connection", session.ID)
			doomed = append(doomed, session)
		}
	}

	// Unregister directly rather than via dm.unregister: that channel's only
	// receiver is the event loop running this very function, so a self-send
	// would block the loop forever and stall every room.
	for _, session := range doomed {
		dm.handleUnregister(session)
	}
}

// HandleFrame processes one inbound frame from a session's read pump.
func (dm *DocumentManager) HandleFrame(session *Session, frame *collab.Frame) {
	switch frame.Type {
	case collab.FrameUpdate:
		dm.mu.Lock()
		dm.content[session.DocumentID] = frame.Content
		dm.mu.Unlock()

		ts := frame.Timestamp
		if ts == 0 {
			ts = time.Now().UnixMilli()
		}
		dm.broadcast <- &roomMessage{
			DocumentID: session.DocumentID,
			Frame: &collab.Frame{
				Type:      collab.FrameUpdate,
				Content:   frame.Content,
				UserID:    session.UserID,
				UserName:  session.UserName,
				Timestamp: ts,
			},
			Sender: session,
		}

	case collab.FrameCursor:
		dm.broadcast <- &roomMessage{
			DocumentID: session.DocumentID,
			Frame: &collab.Frame{
				Type:      collab.FrameCursorUpdate,
				Position:  frame.Position,
				UserID:    session.UserID,
				UserName:  session.UserName,
				Color:     session.Color,
				Timestamp: time.Now().UnixMilli(),
			},
			Sender: session,
		}

	case collab.FrameSelection:
		dm.broadcast <- &roomMessage{
			DocumentID: session.DocumentID,
			Frame: &collab.Frame{
				Type:      collab.FrameSelectionUpdate,
				Selection: frame.Selection,
				UserID:    session.UserID,
				UserName:  session.UserName,
				Color:     session.Color,
			},
			Sender: session,
		}

	case collab.FramePing:
		dm.sendTo(session, &collab.Frame{Type: collab.FramePong})

	default:
		log.Printf("collab hub: unhandled %s frame from session %s", frame.Type, session.ID)
	}
}

// sendTo queues a frame for a single session.
func (dm *DocumentManager) sendTo(session *Session, frame *collab.Frame) {
	data, err := frame.Encode()
	if err != nil {
		log.Printf("collab hub: %v", err)
		return
	}
	select {
	case session.Send <- data:
	default:
		log.Printf("⚠️  Failed to queue %s frame for session %s", frame.Type, session.ID)
	}
}

// ActiveUsers returns the live collaborator count for a document.
func (dm *DocumentManager) ActiveUsers(documentID string) int {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return len(dm.rooms[documentID])
}

// Sessions returns the live sessions editing a document.
func (dm *DocumentManager) Sessions(documentID string) []*models.LiveSession {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	room := dm.rooms[documentID]
	out := make([]*models.LiveSession, 0, len(room))
	for session := range room {
		out = append(out, session.LiveSession)
	}
	return out
}

// cleanupLoop periodically evicts sessions with no activity. The read
// deadline normally catches dead sockets first; this is the backstop.
func (dm *DocumentManager) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-dm.done:
			return
		case <-ticker.C:
			dm.cleanup()
		}
	}
}

func (dm *DocumentManager) cleanup() {
	const timeout = 5 * time.Minute

	dm.mu.RLock()
	var stale []*Session
	now := time.Now()
	for _, room := range dm.rooms {
		for session := range room {
			if now.Sub(session.LastActiveAt) > timeout {
				stale = append(stale, session)
			}
		}
	}
	dm.mu.RUnlock()

	for _, session := range stale {
		log.Printf("  Cleaning up inactive session %s", session.ID)
		dm.unregister <- session
	}
}

// Shutdown closes every connection and stops the hub.
func (dm *DocumentManager) Shutdown() {
	log.Println("🛑 Shutting down collaboration hub...")

	close(dm.done)

	dm.mu.Lock()
	defer dm.mu.Unlock()

	for _, room := range dm.rooms {
		for session := range room {
			close(session.Send)
			if session.Conn != nil {
				session.Conn.Close()
			}
		}
	}
	dm.rooms = make(map[string]map[*Session]bool)
	dm.content = make(map[string]string)

	log.Println("✓ Collaboration hub shutdown complete")
}

// Session pumps, following the one-reader-one-writer rule gorilla requires.

// ReadPump reads frames off the socket and dispatches them to the hub until
// the connection dies, then unregisters the session.
func (s *Session) ReadPump() {
	defer func() {
		s.Manager.unregister <- s
		s.Conn.Close()
	}()

	s.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	s.Conn.SetPongHandler(func(string) error {
		s.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		s.LastActiveAt = time.Now()
		return nil
	})

	for {
		_, data, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("collab hub: read error on session %s: %v", s.ID, err)
			}
			return
		}

		s.LastActiveAt = time.Now()

		frame, err := collab.DecodeFrame(data)
		if err != nil {
			log.Printf("collab hub: bad frame from session %s: %v", s.ID, err)
			s.Manager.sendTo(s, &collab.Frame{
				Type:    collab.FrameError,
				Message: "invalid frame",
			})
			continue
		}

		s.Manager.HandleFrame(s, frame)
	}
}

// WritePump drains the send channel onto the socket and keeps the transport
// alive with control pings.
func (s *Session) WritePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		s.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.Send:
			s.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				s.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			s.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
