package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/thornbury/seedling/internal/auth"
	"github.com/thornbury/seedling/internal/progress"
	"github.com/thornbury/seedling/internal/store"
	"github.com/thornbury/seedling/internal/websocket"
)

type FamilyHandler struct {
	familyStore *store.FamilyStore
	hub         *websocket.Hub
}

func NewFamilyHandler(fs *store.FamilyStore, hub *websocket.Hub) *FamilyHandler {
	return &FamilyHandler{familyStore: fs, hub: hub}
}

func (h *FamilyHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	family, err := h.familyStore.GetByID(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get family"})
		return
	}
	if family == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "family not found"})
		return
	}
	writeJSON(w, http.StatusOK, family)
}

func (h *FamilyHandler) Update(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	existing, err := h.familyStore.GetByID(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get family"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "family not found"})
		return
	}

	var req struct {
		Name     string `json:"name"`
		Timezone string `json:"timezone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		req.Name = existing.Name
	}
	if req.Timezone == "" {
		req.Timezone = existing.Timezone
	}
	// Day boundaries shift with the timezone; reject names the tz database
	// does not know rather than silently falling back to UTC.
	if _, err := progress.ResolveLocation(req.Timezone); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown timezone"})
		return
	}

	family, err := h.familyStore.Update(familyID, req.Name, req.Timezone)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update family"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("family", "updated", familyID, nil))

	writeJSON(w, http.StatusOK, family)
}

// UpdateRewardConfig sets the streak bonus amounts. A zero amount disables
// that period.
func (h *FamilyHandler) UpdateRewardConfig(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	var req struct {
		Daily   int `json:"daily"`
		Weekly  int `json:"weekly"`
		Monthly int `json:"monthly"`
		Yearly  int `json:"yearly"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if req.Daily < 0 || req.Weekly < 0 || req.Monthly < 0 || req.Yearly < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reward amounts must be >= 0"})
		return
	}

	family, err := h.familyStore.UpdateRewardConfig(familyID, req.Daily, req.Weekly, req.Monthly, req.Yearly)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update reward config"})
		return
	}
	if family == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "family not found"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("family", "updated", familyID, nil))

	writeJSON(w, http.StatusOK, family)
}
