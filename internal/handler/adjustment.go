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

// AdjustmentHandler serves manual seed corrections. Negative adjustments
// are allowed; a reason is always required so the history stays readable.
type AdjustmentHandler struct {
	adjStore    *store.AdjustmentStore
	familyStore *store.FamilyStore
	hub         *websocket.Hub
}

func NewAdjustmentHandler(as *store.AdjustmentStore, fs *store.FamilyStore, hub *websocket.Hub) *AdjustmentHandler {
	return &AdjustmentHandler{adjStore: as, familyStore: fs, hub: hub}
}

func (h *AdjustmentHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

func (h *AdjustmentHandler) getChild(familyID, id int64) (*model.Child, error) {
	child, err := h.familyStore.GetChildByID(id)
	if err != nil {
		return nil, err
	}
	if child == nil || child.FamilyID != familyID {
		return nil, nil
	}
	return child, nil
}

func (h *AdjustmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())
	userID := auth.UserID(r.Context())

	var req struct {
		ChildID int64  `json:"child_id"`
		Seeds   int    `json:"seeds"`
		Reason  string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reason is required"})
		return
	}
	if req.Seeds == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "seeds must not be zero"})
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

	adj, err := h.adjStore.Create(req.ChildID, req.Seeds, req.Reason, userID)
	if err != nil {
		log.Printf("failed to create adjustment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create adjustment"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("adjustment", "created", adj.ID, map[string]any{
		"child_id": req.ChildID,
		"seeds":    adj.Seeds,
	}))

	writeJSON(w, http.StatusCreated, adj)
}

// ListByChild lists a child's adjustments, newest first.
func (h *AdjustmentHandler) ListByChild(w http.ResponseWriter, r *http.Request) {
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

	adjustments, err := h.adjStore.ListByChild(childID, parseLimit(r, 50))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list adjustments"})
		return
	}
	if adjustments == nil {
		adjustments = []model.SeedAdjustment{}
	}
	writeJSON(w, http.StatusOK, adjustments)
}
