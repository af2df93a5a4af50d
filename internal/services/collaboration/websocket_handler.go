package collaboration

import (
	"log"
	"net/http"

	"collabdocs/internal/models"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The editor runs on a different origin in development; the socket
		// carries its own identity in the query string.
		return true
	},
}

// WebSocketHandler upgrades document collaboration connections.
type WebSocketHandler struct {
	manager *DocumentManager
}

func NewWebSocketHandler(manager *DocumentManager) *WebSocketHandler {
	return &WebSocketHandler{manager: manager}
}

// HandleDocumentConnection joins a client to a document room. Identity is
// supplied once, at connect time, via URL-encoded query parameters.
func (h *WebSocketHandler) HandleDocumentConnection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	documentID := vars["id"]

	userID := r.URL.Query().Get("user_id")
	userName := r.URL.Query().Get("user_name")
	if userID == "" {
		userID = "anonymous"
	}
	if userName == "" {
		userName = "Anonymous"
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return
	}

	session := &Session{
		LiveSession: models.NewLiveSession(documentID, userID, userName, colorFor(userID)),
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     h.manager,
	}

	h.manager.register <- session

	// Separate pump goroutines so a slow write can never block reads.
	go session.WritePump()
	go session.ReadPump()

	log.Printf("✓ WebSocket connection established for document %s (user: %s)",
		documentID, userName)
}
