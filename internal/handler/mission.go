package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/thornbury/seedling/internal/auth"
	"github.com/thornbury/seedling/internal/model"
	"github.com/thornbury/seedling/internal/store"
	"github.com/thornbury/seedling/internal/websocket"
)

// MissionHandler serves one-off bonus jobs. Missions have no schedule and
// no streak effect; awarding one just adds seeds to the ledger.
type MissionHandler struct {
	missionStore *store.MissionStore
	familyStore  *store.FamilyStore
	hub          *websocket.Hub
}

func NewMissionHandler(ms *store.MissionStore, fs *store.FamilyStore, hub *websocket.Hub) *MissionHandler {
	return &MissionHandler{missionStore: ms, familyStore: fs, hub: hub}
}

func (h *MissionHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

func (h *MissionHandler) getMission(familyID, id int64) (*model.Mission, error) {
	mission, err := h.missionStore.GetByID(id)
	if err != nil {
		return nil, err
	}
	if mission == nil || mission.FamilyID != familyID {
		return nil, nil
	}
	return mission, nil
}

func (h *MissionHandler) getChild(familyID, id int64) (*model.Child, error) {
	child, err := h.familyStore.GetChildByID(id)
	if err != nil {
		return nil, err
	}
	if child == nil || child.FamilyID != familyID {
		return nil, nil
	}
	return child, nil
}

func (h *MissionHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())
	activeOnly := r.URL.Query().Get("active") == "true"

	missions, err := h.missionStore.ListByFamily(familyID, activeOnly)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list missions"})
		return
	}
	if missions == nil {
		missions = []model.Mission{}
	}
	writeJSON(w, http.StatusOK, missions)
}

func (h *MissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Seeds       int    `json:"seeds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.Seeds < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "seeds must be >= 0"})
		return
	}

	mission, err := h.missionStore.Create(familyID, req.Title, req.Description, req.Seeds)
	if err != nil {
		log.Printf("failed to create mission: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create mission"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("mission", "created", mission.ID, nil))

	writeJSON(w, http.StatusCreated, mission)
}

func (h *MissionHandler) Update(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.getMission(familyID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get mission"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "mission not found"})
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Seeds       int    `json:"seeds"`
		Active      *bool  `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.Seeds < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "seeds must be >= 0"})
		return
	}

	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}

	mission, err := h.missionStore.Update(id, req.Title, req.Description, req.Seeds, active)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update mission"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("mission", "updated", mission.ID, nil))

	writeJSON(w, http.StatusOK, mission)
}

func (h *MissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.getMission(familyID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get mission"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "mission not found"})
		return
	}

	if err := h.missionStore.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete mission"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("mission", "deleted", id, nil))

	w.WriteHeader(http.StatusNoContent)
}

// Award grants a mission's seeds to a child. A mission can be awarded to
// the same child more than once; each award is its own ledger entry.
func (h *MissionHandler) Award(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	mission, err := h.getMission(familyID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get mission"})
		return
	}
	if mission == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "mission not found"})
		return
	}
	if !mission.Active {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "mission is inactive"})
		return
	}

	var req struct {
		ChildID int64 `json:"child_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	child, err := h.getChild(familyID, req.ChildID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get child"})
		return
	}
	if child == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "child not found"})
		return
	}

	award, err := h.missionStore.Award(id, req.ChildID, mission.Seeds, userID)
	if err != nil {
		log.Printf("failed to award mission: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to award mission"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("mission", "awarded", award.ID, map[string]any{
		"child_id": req.ChildID,
		"seeds":    award.SeedsEarned,
	}))

	writeJSON(w, http.StatusCreated, award)
}

// Awards lists a child's mission awards, newest first.
func (h *MissionHandler) Awards(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	childID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	child, err := h.getChild(familyID, childID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get child"})
		return
	}
	if child == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}

	awards, err := h.missionStore.ListAwardsByChild(childID, parseLimit(r, 50))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list awards"})
		return
	}
	if awards == nil {
		awards = []model.MissionAward{}
	}
	writeJSON(w, http.StatusOK, awards)
}
