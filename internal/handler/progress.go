package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/thornbury/seedling/internal/auth"
	"github.com/thornbury/seedling/internal/model"
	"github.com/thornbury/seedling/internal/progress"
	"github.com/thornbury/seedling/internal/schedule"
	"github.com/thornbury/seedling/internal/store"
)

type ProgressHandler struct {
	familyStore *store.FamilyStore
	taskStore   *store.TaskStore
	ledger      *store.Ledger
	streakStore *store.StreakRewardStore
	engine      *progress.Engine
	logger      *slog.Logger
}

func NewProgressHandler(
	fs *store.FamilyStore,
	ts *store.TaskStore,
	ledger *store.Ledger,
	srs *store.StreakRewardStore,
	engine *progress.Engine,
	logger *slog.Logger,
) *ProgressHandler {
	return &ProgressHandler{
		familyStore: fs,
		taskStore:   ts,
		ledger:      ledger,
		streakStore: srs,
		engine:      engine,
		logger:      logger,
	}
}

func (h *ProgressHandler) getChild(familyID, id int64) (*model.Child, error) {
	child, err := h.familyStore.GetChildByID(id)
	if err != nil {
		return nil, err
	}
	if child == nil || child.FamilyID != familyID {
		return nil, nil
	}
	return child, nil
}

// Snapshot returns one child's streak, balance and today's counts. The
// engine backfills missed days before computing, so stale dashboards
// self-correct on read.
func (h *ProgressHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
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

	family, err := h.familyStore.GetByID(familyID)
	if err != nil || family == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get family"})
		return
	}

	snap, err := h.engine.Snapshot(childID, familyID, family.Timezone)
	if err != nil {
		h.logger.Error("progress snapshot", "child_id", childID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute progress"})
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// FamilyProgress returns a snapshot per child, for the household dashboard.
func (h *ProgressHandler) FamilyProgress(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	family, err := h.familyStore.GetByID(familyID)
	if err != nil || family == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get family"})
		return
	}

	children, err := h.familyStore.ListChildren(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list children"})
		return
	}

	type childProgress struct {
		Child    model.Child        `json:"child"`
		Progress *progress.Snapshot `json:"progress"`
	}

	out := make([]childProgress, 0, len(children))
	for _, c := range children {
		snap, err := h.engine.Snapshot(c.ID, familyID, family.Timezone)
		if err != nil {
			h.logger.Error("progress snapshot", "child_id", c.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute progress"})
			return
		}
		out = append(out, childProgress{Child: c, Progress: snap})
	}

	writeJSON(w, http.StatusOK, out)
}

// Balance returns the child's seed balance with the per-source breakdown.
func (h *ProgressHandler) Balance(w http.ResponseWriter, r *http.Request) {
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

	sums, err := h.ledger.SumSeedSources(childID)
	if err != nil {
		h.logger.Error("sum seed sources", "child_id", childID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute balance"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"balance": sums.Total(),
		"earned": map[string]int{
			"completions": sums.CompletionSeeds,
			"streaks":     sums.StreakSeeds,
			"missions":    sums.MissionSeeds,
			"adjustments": sums.AdjustmentSeeds,
		},
		"spent": map[string]int{
			"redemptions": sums.RedemptionSeeds,
			"privileges":  sums.PrivilegeSeeds,
		},
	})
}

// Today returns the child's assigned tasks with today's due flag and
// completion status, for the daily checklist view.
func (h *ProgressHandler) Today(w http.ResponseWriter, r *http.Request) {
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

	family, err := h.familyStore.GetByID(familyID)
	if err != nil || family == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get family"})
		return
	}

	loc, _ := progress.ResolveLocation(family.Timezone)
	start, end := progress.DayBounds(loc, time.Now())
	weekday := progress.WeekdayOn(loc, time.Now())

	tasks, err := h.taskStore.ListForChild(childID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
		return
	}

	comps, err := h.ledger.ListCompletions(childID, progress.CompletionFilter{From: start, To: end})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list completions"})
		return
	}
	byTask := make(map[int64]model.TaskCompletion, len(comps))
	for _, c := range comps {
		byTask[c.TaskID] = c
	}

	type todayItem struct {
		Task        model.Task             `json:"task"`
		Due         bool                   `json:"due"`
		Status      model.CompletionStatus `json:"status"`
		SeedsEarned int                    `json:"seeds_earned"`
	}

	items := make([]todayItem, 0, len(tasks))
	for _, t := range tasks {
		set, err := schedule.Parse(t.Schedule)
		if err != nil {
			// A bad stored schedule means due every day rather than a
			// broken checklist.
			set = schedule.Set{}
		}
		item := todayItem{Task: t, Due: set.DueOn(weekday), Status: model.CompletionPending}
		if c, ok := byTask[t.ID]; ok {
			item.Status = c.Status
			item.SeedsEarned = c.SeedsEarned
		}
		items = append(items, item)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":  progress.StartOfDay(loc, time.Now()),
		"tasks": items,
	})
}

// History lists a child's completion records, newest first. Optional from
// and to query parameters take YYYY-MM-DD in the family timezone.
func (h *ProgressHandler) History(w http.ResponseWriter, r *http.Request) {
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

	family, err := h.familyStore.GetByID(familyID)
	if err != nil || family == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get family"})
		return
	}
	loc, _ := progress.ResolveLocation(family.Timezone)

	filter := progress.CompletionFilter{Limit: 200, Desc: true}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from must be YYYY-MM-DD"})
			return
		}
		filter.From = progress.StartOfDay(loc, t)
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "to must be YYYY-MM-DD"})
			return
		}
		// to is inclusive in the query string, exclusive in the filter.
		_, end := progress.DayBounds(loc, t)
		filter.To = end
	}
	if v := r.URL.Query().Get("status"); v != "" {
		switch model.CompletionStatus(v) {
		case model.CompletionPending, model.CompletionCompleted, model.CompletionSkipped:
			filter.Status = model.CompletionStatus(v)
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be pending, completed, or skipped"})
			return
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 1000"})
			return
		}
		filter.Limit = n
	}

	comps, err := h.ledger.ListCompletions(childID, filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list completions"})
		return
	}
	if comps == nil {
		comps = []model.TaskCompletion{}
	}
	writeJSON(w, http.StatusOK, comps)
}

// StreakRewards lists a child's earned streak bonuses, newest first.
func (h *ProgressHandler) StreakRewards(w http.ResponseWriter, r *http.Request) {
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

	rewards, err := h.streakStore.ListByChild(childID, parseLimit(r, 50))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list streak rewards"})
		return
	}
	if rewards == nil {
		rewards = []model.StreakReward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

// FamilyStreakRewards lists recent streak bonuses across the whole family,
// for the activity feed.
func (h *ProgressHandler) FamilyStreakRewards(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	rewards, err := h.streakStore.ListByFamily(familyID, parseLimit(r, 50))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list streak rewards"})
		return
	}
	if rewards == nil {
		rewards = []model.StreakReward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

// parseLimit reads a limit query parameter, falling back to def when it is
// absent or out of range.
func parseLimit(r *http.Request, def int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 1000 {
		return def
	}
	return n
}
