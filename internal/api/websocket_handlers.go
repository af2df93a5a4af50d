package api

import "net/http"

// HandleDocumentWebSocket delegates document collaboration sockets to the
// hub. Unauthenticated: identity arrives in the connect query string.
func (h *Handler) HandleDocumentWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsHandler.HandleDocumentConnection(w, r)
}
