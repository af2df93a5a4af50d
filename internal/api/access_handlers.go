package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"collabdocs/internal/models"
	"collabdocs/internal/repository"

	"github.com/gorilla/mux"
)

// GrantAccess shares a document with another user by id.
func (h *Handler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	var in models.AccessCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if in.DocID == "" || in.UserID == 0 {
		http.Error(w, "doc_id and user_id are required", http.StatusBadRequest)
		return
	}

	// The document must exist before we hand out a grant on it.
	if _, err := h.docRepo.GetByID(r.Context(), in.DocID); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	grant, err := h.accessRepo.Grant(r.Context(), &in)
	if err != nil {
		if errors.Is(err, repository.ErrAccessExists) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, grant)
}

// InviteByEmail shares a document with a collaborator identified by email,
// the flow the share dialog uses.
func (h *Handler) InviteByEmail(w http.ResponseWriter, r *http.Request) {
	var in models.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if in.DocID == "" || in.Email == "" {
		http.Error(w, "doc_id and email are required", http.StatusBadRequest)
		return
	}

	user, err := h.userRepo.GetByEmail(r.Context(), in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			http.Error(w, "no account with that email", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if _, err := h.docRepo.GetByID(r.Context(), in.DocID); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	grant, err := h.accessRepo.Grant(r.Context(), &models.AccessCreate{
		DocID:          in.DocID,
		UserID:         user.UserID,
		PermissionType: in.PermissionType,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAccessExists) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Printf("✓ Document %s shared with %s", in.DocID, in.Email)
	writeJSON(w, http.StatusCreated, grant)
}

// ListDocumentAccess returns everyone a document is shared with.
func (h *Handler) ListDocumentAccess(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["id"]

	grants, err := h.accessRepo.ListByDocument(r.Context(), docID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, grants)
}

// ListSharedWithMe returns the documents shared with the authenticated caller.
func (h *Handler) ListSharedWithMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	grants, err := h.accessRepo.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, grants)
}

// RevokeAccess removes a user's grant on a document.
func (h *Handler) RevokeAccess(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	docID := vars["id"]

	userID, err := strconv.ParseUint(vars["user_id"], 10, 32)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	if err := h.accessRepo.Revoke(r.Context(), docID, uint(userID)); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Access revoked successfully",
	})
}
