package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/thornbury/seedling/internal/auth"
	"github.com/thornbury/seedling/internal/model"
	"github.com/thornbury/seedling/internal/progress"
	"github.com/thornbury/seedling/internal/store"
)

const sessionCookieName = "seedling_session"

type AuthHandler struct {
	userStore       *store.UserStore
	familyStore     *store.FamilyStore
	sessionStore    *store.SessionStore
	defaultTimezone string
	logger          *slog.Logger
}

func NewAuthHandler(
	us *store.UserStore,
	fs *store.FamilyStore,
	ss *store.SessionStore,
	defaultTimezone string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		userStore:       us,
		familyStore:     fs,
		sessionStore:    ss,
		defaultTimezone: defaultTimezone,
		logger:          logger,
	}
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   90 * 24 * 60 * 60, // 90 days
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}

// Register creates a family and its first parent account, then signs the
// parent in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FamilyName string `json:"family_name"`
		Timezone   string `json:"timezone"`
		Email      string `json:"email"`
		Name       string `json:"name"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.FamilyName = strings.TrimSpace(req.FamilyName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if req.FamilyName == "" || req.Email == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "family_name, email, and name are required"})
		return
	}
	if len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}

	if req.Timezone == "" {
		req.Timezone = h.defaultTimezone
	}
	if _, err := progress.ResolveLocation(req.Timezone); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown timezone"})
		return
	}

	existing, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("register lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check email"})
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "an account with that email already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to hash password"})
		return
	}

	family, err := h.familyStore.Create(req.FamilyName, req.Timezone)
	if err != nil {
		h.logger.Error("create family", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create family"})
		return
	}

	user, err := h.userStore.Create(family.ID, req.Email, req.Name, string(hash))
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create account"})
		return
	}

	sess, err := h.sessionStore.Create(user.ID, family.ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
		return
	}

	h.setSessionCookie(w, r, sess.Token)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":   user,
		"family": family,
		"token":  sess.Token,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to look up account"})
		return
	}
	// Same response for unknown email and wrong password, to avoid
	// confirming which emails have accounts.
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
		return
	}

	hash, err := h.userStore.PasswordHash(user.ID)
	if err != nil {
		h.logger.Error("login password hash", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to look up account"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
		return
	}

	sess, err := h.sessionStore.Create(user.ID, user.FamilyID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
		return
	}

	h.setSessionCookie(w, r, sess.Token)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  user,
		"token": sess.Token,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if ac, ok := auth.FromContext(r.Context()); ok {
		if err := h.sessionStore.Delete(ac.SessionID); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in parent and their family.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	user, err := h.userStore.GetByID(ac.UserID)
	if err != nil || user == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get account"})
		return
	}
	family, err := h.familyStore.GetByID(ac.FamilyID)
	if err != nil || family == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get family"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":   user,
		"family": family,
	})
}

// ListParents returns the family's parent accounts.
func (h *AuthHandler) ListParents(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	parents, err := h.userStore.ListByFamily(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list parents"})
		return
	}
	if parents == nil {
		parents = []model.User{}
	}
	writeJSON(w, http.StatusOK, parents)
}

// CreateParent adds a second parent account to the signed-in family. There
// is no invite email; the new credentials are handed over in person.
func (h *AuthHandler) CreateParent(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and name are required"})
		return
	}
	if len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}

	existing, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check email"})
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "an account with that email already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to hash password"})
		return
	}

	user, err := h.userStore.Create(familyID, req.Email, req.Name, string(hash))
	if err != nil {
		h.logger.Error("create parent", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create account"})
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// DeleteParent removes a parent account. The last parent of a family
// cannot be removed.
func (h *AuthHandler) DeleteParent(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	user, err := h.userStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get account"})
		return
	}
	if user == nil || user.FamilyID != familyID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "account not found"})
		return
	}

	parents, err := h.userStore.ListByFamily(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list parents"})
		return
	}
	if len(parents) <= 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot remove the last parent"})
		return
	}

	if err := h.sessionStore.DeleteByUserID(id); err != nil {
		h.logger.Error("delete sessions", "error", err)
	}
	if err := h.userStore.Delete(id); err != nil {
		h.logger.Error("delete parent", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete account"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword verifies the current password, stores the new hash, and
// rotates the caller's sessions.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if len(req.NewPassword) < 8 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}

	hash, err := h.userStore.PasswordHash(ac.UserID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to look up account"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.CurrentPassword)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "incorrect password"})
		return
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to hash password"})
		return
	}
	if err := h.userStore.UpdatePassword(ac.UserID, string(newHash)); err != nil {
		h.logger.Error("update password", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update password"})
		return
	}

	// Old sessions may be on devices that should no longer have access.
	if err := h.sessionStore.DeleteByUserID(ac.UserID); err != nil {
		h.logger.Error("rotate sessions", "error", err)
	}
	sess, err := h.sessionStore.Create(ac.UserID, ac.FamilyID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
		return
	}

	h.setSessionCookie(w, r, sess.Token)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "password changed",
		"token":  sess.Token,
	})
}
