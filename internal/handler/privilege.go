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

type PrivilegeHandler struct {
	privStore   *store.PrivilegeStore
	familyStore *store.FamilyStore
	engine      *progress.Engine
	hub         *websocket.Hub
	notifier    *push.Notifier
	logger      *slog.Logger
}

func NewPrivilegeHandler(
	ps *store.PrivilegeStore,
	fs *store.FamilyStore,
	engine *progress.Engine,
	hub *websocket.Hub,
	notifier *push.Notifier,
	logger *slog.Logger,
) *PrivilegeHandler {
	return &PrivilegeHandler{
		privStore:   ps,
		familyStore: fs,
		engine:      engine,
		hub:         hub,
		notifier:    notifier,
		logger:      logger,
	}
}

func (h *PrivilegeHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

func (h *PrivilegeHandler) getPrivilege(familyID, id int64) (*model.Privilege, error) {
	priv, err := h.privStore.GetByID(id)
	if err != nil {
		return nil, err
	}
	if priv == nil || priv.FamilyID != familyID {
		return nil, nil
	}
	return priv, nil
}

func (h *PrivilegeHandler) getChild(familyID, id int64) (*model.Child, error) {
	child, err := h.familyStore.GetChildByID(id)
	if err != nil {
		return nil, err
	}
	if child == nil || child.FamilyID != familyID {
		return nil, nil
	}
	return child, nil
}

func (h *PrivilegeHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())
	activeOnly := r.URL.Query().Get("active") == "true"

	privs, err := h.privStore.ListByFamily(familyID, activeOnly)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list privileges"})
		return
	}
	if privs == nil {
		privs = []model.Privilege{}
	}
	writeJSON(w, http.StatusOK, privs)
}

func (h *PrivilegeHandler) Create(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Cost        int    `json:"cost"`
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
	if req.Cost < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cost must be >= 0"})
		return
	}

	priv, err := h.privStore.Create(familyID, req.Title, req.Description, req.Cost)
	if err != nil {
		h.logger.Error("create privilege", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create privilege"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("privilege", "created", priv.ID, nil))

	writeJSON(w, http.StatusCreated, priv)
}

func (h *PrivilegeHandler) Update(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.getPrivilege(familyID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get privilege"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "privilege not found"})
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Cost        int    `json:"cost"`
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
	if req.Cost < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cost must be >= 0"})
		return
	}

	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}

	priv, err := h.privStore.Update(id, req.Title, req.Description, req.Cost, active)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update privilege"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("privilege", "updated", priv.ID, nil))

	writeJSON(w, http.StatusOK, priv)
}

func (h *PrivilegeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.getPrivilege(familyID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get privilege"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "privilege not found"})
		return
	}

	if err := h.privStore.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete privilege"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("privilege", "deleted", id, nil))

	w.WriteHeader(http.StatusNoContent)
}

// CreateRequest files a child's request for a privilege. The cost is
// snapshotted now; the balance check happens at approval.
func (h *PrivilegeHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	priv, err := h.getPrivilege(familyID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get privilege"})
		return
	}
	if priv == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "privilege not found"})
		return
	}
	if !priv.Active {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "privilege is inactive"})
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

	request, err := h.privStore.CreateRequest(id, req.ChildID, priv.Cost)
	if err != nil {
		h.logger.Error("create privilege request", "privilege_id", id, "child_id", req.ChildID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create request"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("privilege_request", "created", request.ID, map[string]any{
		"child_id": req.ChildID,
	}))

	writeJSON(w, http.StatusCreated, request)
}

// ListRequests lists the family's privilege requests, optionally filtered
// by status.
func (h *PrivilegeHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	var status model.PrivilegeStatus
	if v := r.URL.Query().Get("status"); v != "" {
		switch model.PrivilegeStatus(v) {
		case model.PrivilegePending, model.PrivilegeApproved, model.PrivilegeDenied, model.PrivilegeTerminated:
			status = model.PrivilegeStatus(v)
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be pending, approved, denied, or terminated"})
			return
		}
	}

	requests, err := h.privStore.ListRequestsByFamily(familyID, status)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list requests"})
		return
	}
	if requests == nil {
		requests = []model.PrivilegeRequest{}
	}
	writeJSON(w, http.StatusOK, requests)
}

// ChildRequests lists one child's privilege requests.
func (h *PrivilegeHandler) ChildRequests(w http.ResponseWriter, r *http.Request) {
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

	requests, err := h.privStore.ListRequestsByChild(childID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list requests"})
		return
	}
	if requests == nil {
		requests = []model.PrivilegeRequest{}
	}
	writeJSON(w, http.StatusOK, requests)
}

// Decide moves a request through its lifecycle: pending requests may be
// approved or denied, approved ones terminated. Approval spends the
// snapshotted cost, so it checks the balance first.
func (h *PrivilegeHandler) Decide(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	request, err := h.privStore.GetRequestByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get request"})
		return
	}
	if request == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "request not found"})
		return
	}

	child, err := h.getChild(familyID, request.ChildID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get child"})
		return
	}
	if child == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "request not found"})
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	status := model.PrivilegeStatus(req.Status)
	switch status {
	case model.PrivilegeApproved, model.PrivilegeDenied:
		if request.Status != model.PrivilegePending {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request has already been decided"})
			return
		}
	case model.PrivilegeTerminated:
		if request.Status != model.PrivilegeApproved {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only approved requests can be terminated"})
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be approved, denied, or terminated"})
		return
	}

	if status == model.PrivilegeApproved {
		balance, err := h.engine.Balance(request.ChildID)
		if err != nil {
			h.logger.Error("balance check", "child_id", request.ChildID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute balance"})
			return
		}
		if balance < request.Cost {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "insufficient seeds"})
			return
		}
	}

	decided, err := h.privStore.Decide(id, status, userID)
	if err != nil {
		h.logger.Error("decide privilege request", "request_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to decide request"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("privilege_request", "decided", decided.ID, map[string]any{
		"child_id": decided.ChildID,
		"status":   string(decided.Status),
	}))

	if h.notifier != nil {
		priv, err := h.privStore.GetByID(request.PrivilegeID)
		if err == nil && priv != nil {
			go h.notifier.PrivilegeDecided(familyID, userID, child.Name, priv.Title, string(status))
		}
	}

	writeJSON(w, http.StatusOK, decided)
}
