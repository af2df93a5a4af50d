package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"collabdocs/internal/auth"
	"collabdocs/internal/models"
	"collabdocs/internal/repository"
)

func claimsFrom(r *http.Request) (*auth.Claims, bool) {
	return auth.ClaimsFromContext(r.Context())
}

// Signup registers a new workspace account and returns the public profile.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var in models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if in.Username == "" || in.Email == "" || in.Password == "" {
		http.Error(w, "username, email and password are required", http.StatusBadRequest)
		return
	}

	if _, err := h.userRepo.GetByEmail(r.Context(), in.Email); err == nil {
		http.Error(w, "email already registered", http.StatusConflict)
		return
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	hash, err := h.authSvc.HashPassword(in.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	user := &models.User{
		Username:       in.Username,
		Email:          in.Email,
		FullName:       in.FullName,
		HashedPassword: hash,
	}
	if err := h.userRepo.Create(r.Context(), user); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	log.Printf("✓ New account registered: %s", user.Username)
	writeJSON(w, http.StatusCreated, user.Out())
}

// Login verifies credentials and mints a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.userRepo.GetByEmail(r.Context(), in.Email)
	if err != nil {
		// Same response for unknown account and wrong password.
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if !h.authSvc.VerifyPassword(in.Password, user.HashedPassword) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.authSvc.IssueToken(user.UserID, user.Username)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// Me returns the profile of the authenticated caller.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.userRepo.GetByID(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, user.Out())
}
