package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/thornbury/seedling/internal/auth"
	"github.com/thornbury/seedling/internal/model"
	"github.com/thornbury/seedling/internal/progress"
	"github.com/thornbury/seedling/internal/push"
	"github.com/thornbury/seedling/internal/store"
	"github.com/thornbury/seedling/internal/websocket"
)

type RewardHandler struct {
	rewardStore *store.RewardStore
	familyStore *store.FamilyStore
	engine      *progress.Engine
	hub         *websocket.Hub
	notifier    *push.Notifier
	logger      *slog.Logger
}

func NewRewardHandler(
	rs *store.RewardStore,
	fs *store.FamilyStore,
	engine *progress.Engine,
	hub *websocket.Hub,
	notifier *push.Notifier,
	logger *slog.Logger,
) *RewardHandler {
	return &RewardHandler{
		rewardStore: rs,
		familyStore: fs,
		engine:      engine,
		hub:         hub,
		notifier:    notifier,
		logger:      logger,
	}
}

func (h *RewardHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

func (h *RewardHandler) getReward(familyID, id int64) (*model.Reward, error) {
	reward, err := h.rewardStore.GetByID(id)
	if err != nil {
		return nil, err
	}
	if reward == nil || reward.FamilyID != familyID {
		return nil, nil
	}
	return reward, nil
}

func (h *RewardHandler) getChild(familyID, id int64) (*model.Child, error) {
	child, err := h.familyStore.GetChildByID(id)
	if err != nil {
		return nil, err
	}
	if child == nil || child.FamilyID != familyID {
		return nil, nil
	}
	return child, nil
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())
	activeOnly := r.URL.Query().Get("active") == "true"

	rewards, err := h.rewardStore.ListByFamily(familyID, activeOnly)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list rewards"})
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		SeedCost    int    `json:"seed_cost"`
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
	if req.SeedCost < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "seed_cost must be >= 0"})
		return
	}

	reward, err := h.rewardStore.Create(familyID, req.Title, req.Description, req.SeedCost)
	if err != nil {
		h.logger.Error("create reward", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create reward"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("reward", "created", reward.ID, nil))

	writeJSON(w, http.StatusCreated, reward)
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.getReward(familyID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get reward"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "reward not found"})
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		SeedCost    int    `json:"seed_cost"`
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
	if req.SeedCost < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "seed_cost must be >= 0"})
		return
	}

	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}

	reward, err := h.rewardStore.Update(id, req.Title, req.Description, req.SeedCost, active)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update reward"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("reward", "updated", reward.ID, nil))

	writeJSON(w, http.StatusOK, reward)
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.getReward(familyID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get reward"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "reward not found"})
		return
	}

	if err := h.rewardStore.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete reward"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("reward", "deleted", id, nil))

	w.WriteHeader(http.StatusNoContent)
}

// Redeem spends a child's seeds on a reward. The balance is checked first;
// redeeming never drives a balance negative.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	reward, err := h.getReward(familyID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get reward"})
		return
	}
	if reward == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "reward not found"})
		return
	}
	if !reward.Active {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reward is inactive"})
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

	balance, err := h.engine.Balance(req.ChildID)
	if err != nil {
		h.logger.Error("balance check", "child_id", req.ChildID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute balance"})
		return
	}
	if balance < reward.SeedCost {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "insufficient seeds"})
		return
	}

	redemption, err := h.rewardStore.Redeem(id, req.ChildID, reward.SeedCost)
	if err != nil {
		h.logger.Error("redeem reward", "reward_id", id, "child_id", req.ChildID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to redeem reward"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("reward", "redeemed", redemption.ID, map[string]any{
		"child_id": req.ChildID,
		"seeds":    redemption.SeedsSpent,
	}))

	if h.notifier != nil {
		go h.notifier.RewardRedeemed(familyID, auth.UserID(r.Context()), child.Name, reward.Title)
	}

	writeJSON(w, http.StatusCreated, redemption)
}

// Redemptions lists a child's redemption history, newest first.
func (h *RewardHandler) Redemptions(w http.ResponseWriter, r *http.Request) {
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

	redemptions, err := h.rewardStore.ListRedemptionsByChild(childID, parseLimit(r, 50))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list redemptions"})
		return
	}
	if redemptions == nil {
		redemptions = []model.RewardRedemption{}
	}
	writeJSON(w, http.StatusOK, redemptions)
}

// DeleteRedemption refunds a redemption, returning the spent seeds to the
// child's balance.
func (h *RewardHandler) DeleteRedemption(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	redemption, err := h.rewardStore.GetRedemptionByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get redemption"})
		return
	}
	if redemption == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "redemption not found"})
		return
	}

	child, err := h.getChild(familyID, redemption.ChildID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get child"})
		return
	}
	if child == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "redemption not found"})
		return
	}

	if err := h.rewardStore.DeleteRedemption(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete redemption"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("redemption", "deleted", id, map[string]any{"child_id": redemption.ChildID}))

	w.WriteHeader(http.StatusNoContent)
}
