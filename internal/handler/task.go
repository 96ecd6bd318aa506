package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/thornbury/seedling/internal/auth"
	"github.com/thornbury/seedling/internal/model"
	"github.com/thornbury/seedling/internal/progress"
	"github.com/thornbury/seedling/internal/push"
	"github.com/thornbury/seedling/internal/schedule"
	"github.com/thornbury/seedling/internal/store"
	"github.com/thornbury/seedling/internal/websocket"
)

type TaskHandler struct {
	taskStore   *store.TaskStore
	familyStore *store.FamilyStore
	engine      *progress.Engine
	hub         *websocket.Hub
	notifier    *push.Notifier
	logger      *slog.Logger
}

func NewTaskHandler(
	ts *store.TaskStore,
	fs *store.FamilyStore,
	engine *progress.Engine,
	hub *websocket.Hub,
	notifier *push.Notifier,
	logger *slog.Logger,
) *TaskHandler {
	return &TaskHandler{
		taskStore:   ts,
		familyStore: fs,
		engine:      engine,
		hub:         hub,
		notifier:    notifier,
		logger:      logger,
	}
}

func (h *TaskHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

func (h *TaskHandler) getTask(familyID, id int64) (*model.Task, error) {
	task, err := h.taskStore.GetByID(id)
	if err != nil {
		return nil, err
	}
	if task == nil || task.FamilyID != familyID {
		return nil, nil
	}
	return task, nil
}

func (h *TaskHandler) getChild(familyID, id int64) (*model.Child, error) {
	child, err := h.familyStore.GetChildByID(id)
	if err != nil {
		return nil, err
	}
	if child == nil || child.FamilyID != familyID {
		return nil, nil
	}
	return child, nil
}

type taskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Seeds       int    `json:"seeds"`
	Schedule    string `json:"schedule"`
	Active      *bool  `json:"active"`
}

func (r *taskRequest) validate() (string, bool) {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return "title is required", false
	}
	if r.Seeds < 0 {
		return "seeds must be >= 0", false
	}
	set, err := schedule.Parse(r.Schedule)
	if err != nil {
		return "schedule must be a comma-separated list of weekdays (e.g. MON,WED,FRI)", false
	}
	r.Schedule = set.String()
	return "", true
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	tasks, err := h.taskStore.ListByFamily(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// ListForChild returns the active tasks assigned to one child.
func (h *TaskHandler) ListForChild(w http.ResponseWriter, r *http.Request) {
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

	tasks, err := h.taskStore.ListForChild(childID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg, ok := req.validate(); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	task, err := h.taskStore.Create(familyID, req.Title, req.Description, req.Seeds, req.Schedule)
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create task"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("task", "created", task.ID, nil))

	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.getTask(familyID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg, ok := req.validate(); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}

	task, err := h.taskStore.Update(id, req.Title, req.Description, req.Seeds, req.Schedule, active)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update task"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("task", "updated", task.ID, nil))

	writeJSON(w, http.StatusOK, task)
}

// Delete removes a task. Tasks that already have completion history are
// deactivated instead, so earned seeds stay on the ledger.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.getTask(familyID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	hasHistory, err := h.taskStore.HasCompletions(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check task history"})
		return
	}

	if hasHistory {
		if err := h.taskStore.SetActive(id, false); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to deactivate task"})
			return
		}
		h.broadcast(familyID, websocket.NewMessage("task", "updated", id, nil))
	} else {
		if err := h.taskStore.Delete(id); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete task"})
			return
		}
		h.broadcast(familyID, websocket.NewMessage("task", "deleted", id, nil))
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) Assign(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	task, err := h.getTask(familyID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
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

	if err := h.taskStore.Assign(id, req.ChildID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to assign task"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("assignment", "created", id, map[string]any{"child_id": req.ChildID}))

	writeJSON(w, http.StatusCreated, map[string]string{"status": "assigned"})
}

func (h *TaskHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	childID, err := strconv.ParseInt(r.PathValue("childID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid child id"})
		return
	}

	task, err := h.getTask(familyID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	if err := h.taskStore.Unassign(id, childID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to unassign task"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("assignment", "deleted", id, map[string]any{"child_id": childID}))

	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	assignments, err := h.taskStore.ListAssignments(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list assignments"})
		return
	}
	if assignments == nil {
		assignments = []model.TaskAssignment{}
	}
	writeJSON(w, http.StatusOK, assignments)
}

// Complete marks the task done for a child today and runs the streak
// reconciliation, which may issue bonus seeds.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	task, err := h.getTask(familyID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	if !task.Active {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "task is inactive"})
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

	assigned, err := h.taskStore.IsAssigned(id, req.ChildID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check assignment"})
		return
	}
	if !assigned {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "task is not assigned to this child"})
		return
	}

	family, err := h.familyStore.GetByID(familyID)
	if err != nil || family == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get family"})
		return
	}

	comp, res, err := h.engine.CompleteTask(id, req.ChildID, familyID, task.Seeds, family.Timezone)
	if err != nil {
		h.logger.Error("complete task", "task_id", id, "child_id", req.ChildID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to record completion"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("task", "completed", id, map[string]any{"child_id": req.ChildID}))

	for _, rw := range res.Issued {
		h.broadcast(familyID, websocket.NewMessage("streak_reward", "issued", rw.ID, map[string]any{
			"child_id": rw.ChildID,
			"period":   string(rw.Period),
			"seeds":    rw.SeedsEarned,
		}))
		// The daily bonus rides along with the all-done notification below;
		// only the milestone bonuses get their own push.
		if h.notifier != nil && rw.Period != model.PeriodDaily {
			go h.notifier.StreakBonus(familyID, child.Name, string(rw.Period), rw.SeedsEarned)
		}
	}

	if res.AllDone && h.notifier != nil {
		go h.notifier.AllTasksDone(familyID, child.Name)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"completion": comp,
		"result":     res,
	})
}

// Uncomplete flips today's record back to pending, revoking today's daily
// bonus if the due set is no longer fully complete.
func (h *TaskHandler) Uncomplete(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	task, err := h.getTask(familyID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
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

	family, err := h.familyStore.GetByID(familyID)
	if err != nil || family == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get family"})
		return
	}

	comp, err := h.engine.UncompleteTask(id, req.ChildID, familyID, family.Timezone)
	if err != nil {
		h.logger.Error("uncomplete task", "task_id", id, "child_id", req.ChildID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update completion"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("task", "uncompleted", id, map[string]any{"child_id": req.ChildID}))

	writeJSON(w, http.StatusOK, map[string]any{"completion": comp})
}
