package api

import (
	"net/http"

	"collabdocs/internal/middleware"

	"github.com/gorilla/mux"
)

func SetupRoutes(h *Handler) *mux.Router {
	r := mux.NewRouter()

	// Middleware runs in order: tracing first, then recovery, then CORS
	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.ErrorRecoveryMiddleware)
	r.Use(middleware.CORSMiddleware)

	api := r.PathPrefix("/api").Subrouter()

	// Auth endpoints (public)
	api.HandleFunc("/auth/signup", h.Signup).Methods("POST")
	api.HandleFunc("/auth/login", h.Login).Methods("POST")

	// Health check endpoint
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Workspace endpoints require a bearer token.
	ws := api.NewRoute().Subrouter()
	ws.Use(h.authSvc.Middleware)

	ws.HandleFunc("/auth/me", h.Me).Methods("GET")

	// Document endpoints
	ws.HandleFunc("/documents", h.CreateDocument).Methods("POST")
	ws.HandleFunc("/documents/{id}", h.GetDocument).Methods("GET")
	ws.HandleFunc("/documents/{id}", h.UpdateDocument).Methods("PUT")
	ws.HandleFunc("/documents/{id}", h.DeleteDocument).Methods("DELETE")
	ws.HandleFunc("/documents/{id}/content", h.UpdateDocumentContent).Methods("PUT")
	ws.HandleFunc("/documents/{id}/move", h.MoveDocument).Methods("PUT")
	ws.HandleFunc("/documents/{id}/active-users", h.GetActiveUsers).Methods("GET")
	ws.HandleFunc("/documents/{id}/users", h.GetDocumentUsers).Methods("GET")
	ws.HandleFunc("/directories/{directory_id}/documents", h.ListDocumentsByDirectory).Methods("GET")

	// Directory endpoints
	ws.HandleFunc("/directories", h.CreateDirectory).Methods("POST")
	ws.HandleFunc("/directories/{id}", h.UpdateDirectory).Methods("PUT")
	ws.HandleFunc("/directories/{id}", h.DeleteDirectory).Methods("DELETE")
	ws.HandleFunc("/users/{user_id}/directories", h.ListDirectories).Methods("GET")
	ws.HandleFunc("/users/{user_id}/tree", h.GetFileTree).Methods("GET")

	// Sharing endpoints
	ws.HandleFunc("/access", h.GrantAccess).Methods("POST")
	ws.HandleFunc("/access/invite", h.InviteByEmail).Methods("POST")
	ws.HandleFunc("/documents/{id}/access", h.ListDocumentAccess).Methods("GET")
	ws.HandleFunc("/documents/{id}/access/{user_id}", h.RevokeAccess).Methods("DELETE")
	ws.HandleFunc("/shared-with-me", h.ListSharedWithMe).Methods("GET")

	// WebSocket route stays outside the auth middleware; the socket carries
	// identity in the connect query string.
	r.HandleFunc("/ws/documents/{id}", h.HandleDocumentWebSocket)

	return r
}
