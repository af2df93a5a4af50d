package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"collabdocs/internal/auth"
	"collabdocs/internal/models"
	"collabdocs/internal/repository"
	"collabdocs/internal/services/collaboration"

	"github.com/gorilla/mux"
)

// Handler handles HTTP requests for the workspace API.
type Handler struct {
	userRepo   *repository.UserRepositoryImpl
	dirRepo    *repository.DirectoryRepositoryImpl
	docRepo    *repository.DocumentRepositoryImpl
	accessRepo *repository.AccessRepositoryImpl
	authSvc    *auth.Service
	wsHandler  *collaboration.WebSocketHandler
	hub        *collaboration.DocumentManager
}

func NewHandler(
	userRepo *repository.UserRepositoryImpl,
	dirRepo *repository.DirectoryRepositoryImpl,
	docRepo *repository.DocumentRepositoryImpl,
	accessRepo *repository.AccessRepositoryImpl,
	authSvc *auth.Service,
	wsHandler *collaboration.WebSocketHandler,
	hub *collaboration.DocumentManager,
) *Handler {
	return &Handler{
		userRepo:   userRepo,
		dirRepo:    dirRepo,
		docRepo:    docRepo,
		accessRepo: accessRepo,
		authSvc:    authSvc,
		wsHandler:  wsHandler,
		hub:        hub,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps repository errors onto HTTP statuses without the handlers
// having to inspect database internals.
func statusFor(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"), strings.Contains(msg, "no access grant"):
		return http.StatusNotFound
	case strings.Contains(msg, "already exists"):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Document handlers

func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var in models.DocumentCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if in.DocName == "" || in.DirectoryID == "" {
		http.Error(w, "doc_name and directory_id are required", http.StatusBadRequest)
		return
	}

	doc, err := h.docRepo.Create(r.Context(), &in)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	doc, err := h.docRepo.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var in models.DocumentUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := h.docRepo.Update(r.Context(), id, &in)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// UpdateDocumentContent is the explicit "Save" action: it persists content
// through REST, independent of the live collaboration channel.
func (h *Handler) UpdateDocumentContent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var in models.DocumentContent
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := h.docRepo.UpdateContent(r.Context(), id, in.Content)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) MoveDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var in models.DocumentMove
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := h.docRepo.Move(r.Context(), id, in.NewDirectoryID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.docRepo.Delete(r.Context(), id); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Document " + id + " deleted successfully",
	})
}

func (h *Handler) ListDocumentsByDirectory(w http.ResponseWriter, r *http.Request) {
	directoryID := mux.Vars(r)["directory_id"]

	documents, err := h.docRepo.ListByDirectory(r.Context(), directoryID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, documents)
}

// GetActiveUsers reports the live collaborator count for a document from
// the hub, not the database.
func (h *Handler) GetActiveUsers(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"doc_id":       id,
		"active_users": h.hub.ActiveUsers(id),
	})
}

func (h *Handler) GetDocumentUsers(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	sessions := h.hub.Sessions(id)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"doc_id":      id,
		"users":       sessions,
		"total_users": len(sessions),
	})
}

// Directory handlers

func (h *Handler) CreateDirectory(w http.ResponseWriter, r *http.Request) {
	var in models.DirectoryCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if in.DirName == "" {
		http.Error(w, "dir_name is required", http.StatusBadRequest)
		return
	}

	dir, err := h.dirRepo.Create(r.Context(), &in)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusCreated, dir)
}

func (h *Handler) ListDirectories(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseUint(mux.Vars(r)["user_id"], 10, 32)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	directories, err := h.dirRepo.ListByUser(r.Context(), uint(userID))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, directories)
}

func (h *Handler) UpdateDirectory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var in models.DirectoryUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	dir, err := h.dirRepo.Update(r.Context(), id, &in)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, dir)
}

func (h *Handler) DeleteDirectory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.dirRepo.Delete(r.Context(), id); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Directory " + id + " deleted successfully",
	})
}

// GetFileTree returns the nested folder/document tree the sidebar renders.
func (h *Handler) GetFileTree(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseUint(mux.Vars(r)["user_id"], 10, 32)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	tree, err := h.dirRepo.Tree(r.Context(), uint(userID))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, tree)
}
