package store

import (
	"testing"
	"time"

	"github.com/thornbury/seedling/internal/database"
	"github.com/thornbury/seedling/internal/model"
	"github.com/thornbury/seedling/internal/progress"
)

func setupLedgerTestDB(t *testing.T) (*Ledger, *FamilyStore, *TaskStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewLedger(db), NewFamilyStore(db), NewTaskStore(db)
}

// ledgerFixture is the common family/child/task scaffolding for engine tests.
func ledgerFixture(t *testing.T, lg *Ledger, fs *FamilyStore, ts *TaskStore, taskSeeds int) (familyID, childID, taskID int64) {
	t.Helper()
	fam, err := fs.Create("Thornbury", "UTC")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	child, err := fs.CreateChild(fam.ID, "Alice", "", "")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	task, err := ts.Create(fam.ID, "Feed the dog", "", taskSeeds, "")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := ts.Assign(task.ID, child.ID); err != nil {
		t.Fatalf("assign task: %v", err)
	}
	return fam.ID, child.ID, task.ID
}

// pinnedEngine returns an engine whose clock is fixed at 15:00 UTC today, so
// engine-written dates line up with rows the test writes relative to today.
func pinnedEngine(lg *Ledger) (*progress.Engine, time.Time) {
	today := progress.StartOfDay(time.UTC, time.Now())
	now := today.Add(15 * time.Hour)
	return progress.NewWithClock(lg, func() time.Time { return now }), today
}

// --- Completion methods ---

func TestUpsertCompletionReplaces(t *testing.T) {
	lg, fs, ts := setupLedgerTestDB(t)
	_, childID, taskID := ledgerFixture(t, lg, fs, ts, 2)

	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	first, err := lg.UpsertCompletion(taskID, childID, date, model.CompletionCompleted, 2)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if first.Status != model.CompletionCompleted {
		t.Errorf("status = %q, want completed", first.Status)
	}
	if first.SeedsEarned != 2 {
		t.Errorf("seeds_earned = %d, want 2", first.SeedsEarned)
	}

	// Same key again flips the row instead of adding one.
	second, err := lg.UpsertCompletion(taskID, childID, date, model.CompletionPending, 0)
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("id = %d, want %d (same row)", second.ID, first.ID)
	}
	if second.Status != model.CompletionPending {
		t.Errorf("status = %q, want pending", second.Status)
	}
	if second.SeedsEarned != 0 {
		t.Errorf("seeds_earned = %d, want 0", second.SeedsEarned)
	}

	var count int
	lg.db.QueryRow(`SELECT COUNT(*) FROM task_completions`).Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}
}

func TestInsertCompletionIfAbsent(t *testing.T) {
	lg, fs, ts := setupLedgerTestDB(t)
	_, childID, taskID := ledgerFixture(t, lg, fs, ts, 2)

	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	if _, err := lg.UpsertCompletion(taskID, childID, date, model.CompletionCompleted, 2); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Must not clobber the completed row with a skipped one.
	if err := lg.InsertCompletionIfAbsent(taskID, childID, date, model.CompletionSkipped, 0); err != nil {
		t.Fatalf("insert if absent: %v", err)
	}

	got, err := lg.ListCompletions(childID, progress.CompletionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 completion, got %d", len(got))
	}
	if got[0].Status != model.CompletionCompleted {
		t.Errorf("status = %q, want completed", got[0].Status)
	}
}

func TestListCompletionsFilters(t *testing.T) {
	lg, fs, ts := setupLedgerTestDB(t)
	famID, childID, taskID := ledgerFixture(t, lg, fs, ts, 2)

	other, _ := ts.Create(famID, "Other chore", "", 1, "")
	ts.Assign(other.ID, childID)

	day := func(n int) time.Time { return time.Date(2026, 3, n, 0, 0, 0, 0, time.UTC) }
	lg.UpsertCompletion(taskID, childID, day(8), model.CompletionCompleted, 2)
	lg.UpsertCompletion(taskID, childID, day(9), model.CompletionSkipped, 0)
	lg.UpsertCompletion(taskID, childID, day(10), model.CompletionCompleted, 2)
	lg.UpsertCompletion(other.ID, childID, day(10), model.CompletionCompleted, 1)

	// By status
	completed, err := lg.ListCompletions(childID, progress.CompletionFilter{Status: model.CompletionCompleted})
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(completed) != 3 {
		t.Errorf("expected 3 completed, got %d", len(completed))
	}

	// By task
	forTask, _ := lg.ListCompletions(childID, progress.CompletionFilter{TaskID: other.ID})
	if len(forTask) != 1 {
		t.Errorf("expected 1 for other task, got %d", len(forTask))
	}

	// Date window [9, 10)
	window, _ := lg.ListCompletions(childID, progress.CompletionFilter{From: day(9), To: day(10)})
	if len(window) != 1 {
		t.Fatalf("expected 1 in window, got %d", len(window))
	}
	if !window[0].Date.Equal(day(9)) {
		t.Errorf("date = %v, want %v", window[0].Date, day(9))
	}

	// Descending with limit
	desc, _ := lg.ListCompletions(childID, progress.CompletionFilter{Desc: true, Limit: 2})
	if len(desc) != 2 {
		t.Fatalf("expected 2 with limit, got %d", len(desc))
	}
	if !desc[0].Date.Equal(day(10)) {
		t.Errorf("first date = %v, want %v", desc[0].Date, day(10))
	}
}

func TestDueTasksActiveOnly(t *testing.T) {
	lg, fs, ts := setupLedgerTestDB(t)
	famID, childID, _ := ledgerFixture(t, lg, fs, ts, 2)

	inactive, _ := ts.Create(famID, "Retired chore", "", 1, "")
	ts.Assign(inactive.ID, childID)
	ts.SetActive(inactive.ID, false)

	due, err := lg.DueTasks(childID)
	if err != nil {
		t.Fatalf("due tasks: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 due task, got %d", len(due))
	}
	if due[0].Seeds != 2 {
		t.Errorf("seeds = %d, want 2", due[0].Seeds)
	}
	if due[0].AssignedAt.IsZero() {
		t.Error("expected assigned_at to be set")
	}
}

// --- Balance methods ---

func TestSumSeedSourcesAllSix(t *testing.T) {
	lg, fs, ts := setupLedgerTestDB(t)
	famID, childID, taskID := ledgerFixture(t, lg, fs, ts, 10)

	rs := NewRewardStore(lg.db)
	ps := NewPrivilegeStore(lg.db)
	ms := NewMissionStore(lg.db)
	as := NewAdjustmentStore(lg.db)
	us := NewUserStore(lg.db)

	parent, _ := us.Create(famID, "dad@example.com", "Dad", "hash")

	// Earned: 10 (completion) + 5 (streak bonus) + 20 (mission) + 3 (adjustment) = 38
	lg.UpsertCompletion(taskID, childID, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), model.CompletionCompleted, 10)
	lg.InsertStreakReward(&model.StreakReward{
		ChildID: childID, FamilyID: famID, Period: model.PeriodDaily,
		StreakValue: 1, SeedsEarned: 5,
		StreakStartDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		AwardedAt:       time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
	})
	mission, _ := ms.Create(famID, "Clean the garage", "", 20)
	ms.Award(mission.ID, childID, mission.Seeds, parent.ID)
	as.Create(childID, 3, "found seeds under couch", parent.ID)

	// Spent: 8 (redemption) + 6 (approved privilege) = 14
	reward, _ := rs.Create(famID, "Ice cream", "", 8)
	rs.Redeem(reward.ID, childID, reward.SeedCost)
	priv, _ := ps.Create(famID, "Screen time", "", 6)
	req, _ := ps.CreateRequest(priv.ID, childID, priv.Cost)
	ps.Decide(req.ID, model.PrivilegeApproved, parent.ID)

	// A pending privilege request costs nothing yet.
	ps.CreateRequest(priv.ID, childID, priv.Cost)

	// A skipped completion contributes nothing.
	lg.UpsertCompletion(taskID, childID, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), model.CompletionSkipped, 0)

	src, err := lg.SumSeedSources(childID)
	if err != nil {
		t.Fatalf("sum seed sources: %v", err)
	}
	if src.CompletionSeeds != 10 {
		t.Errorf("completion seeds = %d, want 10", src.CompletionSeeds)
	}
	if src.StreakSeeds != 5 {
		t.Errorf("streak seeds = %d, want 5", src.StreakSeeds)
	}
	if src.MissionSeeds != 20 {
		t.Errorf("mission seeds = %d, want 20", src.MissionSeeds)
	}
	if src.AdjustmentSeeds != 3 {
		t.Errorf("adjustment seeds = %d, want 3", src.AdjustmentSeeds)
	}
	if src.RedemptionSeeds != 8 {
		t.Errorf("redemption seeds = %d, want 8", src.RedemptionSeeds)
	}
	if src.PrivilegeSeeds != 6 {
		t.Errorf("privilege seeds = %d, want 6", src.PrivilegeSeeds)
	}
	if src.Total() != 24 {
		t.Errorf("total = %d, want 24", src.Total())
	}

	eng := progress.New(lg)
	balance, err := eng.Balance(childID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 24 {
		t.Errorf("balance = %d, want 24", balance)
	}
}

func TestTerminatedPrivilegeStillCounts(t *testing.T) {
	lg, fs, ts := setupLedgerTestDB(t)
	famID, childID, _ := ledgerFixture(t, lg, fs, ts, 2)

	ps := NewPrivilegeStore(lg.db)
	us := NewUserStore(lg.db)
	parent, _ := us.Create(famID, "dad@example.com", "Dad", "hash")

	priv, _ := ps.Create(famID, "Screen time", "", 6)
	req, _ := ps.CreateRequest(priv.ID, childID, priv.Cost)
	ps.Decide(req.ID, model.PrivilegeApproved, parent.ID)
	ps.Decide(req.ID, model.PrivilegeTerminated, parent.ID)

	denied, _ := ps.CreateRequest(priv.ID, childID, priv.Cost)
	ps.Decide(denied.ID, model.PrivilegeDenied, parent.ID)

	src, err := lg.SumSeedSources(childID)
	if err != nil {
		t.Fatalf("sum seed sources: %v", err)
	}
	if src.PrivilegeSeeds != 6 {
		t.Errorf("privilege seeds = %d, want 6 (terminated counts, denied does not)", src.PrivilegeSeeds)
	}
}

func TestRewardConfigMissingFamily(t *testing.T) {
	lg, _, _ := setupLedgerTestDB(t)

	cfg, err := lg.RewardConfig(999)
	if err != nil {
		t.Fatalf("reward config: %v", err)
	}
	if cfg != (progress.RewardConfig{}) {
		t.Errorf("config = %+v, want zero", cfg)
	}
}

// --- Streak reward methods ---

func TestInsertStreakRewardIdempotent(t *testing.T) {
	lg, fs, ts := setupLedgerTestDB(t)
	famID, childID, _ := ledgerFixture(t, lg, fs, ts, 2)

	start := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	r1 := &model.StreakReward{
		ChildID: childID, FamilyID: famID, Period: model.PeriodWeekly,
		StreakValue: 7, SeedsEarned: 5, StreakStartDate: start,
		AwardedAt: time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
	}
	inserted, err := lg.InsertStreakReward(r1)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !inserted {
		t.Fatal("expected first insert to land")
	}
	if r1.ID == 0 {
		t.Error("expected ID to be set")
	}

	// Same run (same start date) must not double-award.
	r2 := &model.StreakReward{
		ChildID: childID, FamilyID: famID, Period: model.PeriodWeekly,
		StreakValue: 8, SeedsEarned: 5, StreakStartDate: start,
		AwardedAt: time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC),
	}
	inserted, err = lg.InsertStreakReward(r2)
	if err != nil {
		t.Fatalf("insert duplicate: %v", err)
	}
	if inserted {
		t.Error("expected duplicate insert to be ignored")
	}

	// A different period with the same start date is its own award.
	r3 := &model.StreakReward{
		ChildID: childID, FamilyID: famID, Period: model.PeriodMonthly,
		StreakValue: 31, SeedsEarned: 20, StreakStartDate: start,
		AwardedAt: time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
	}
	inserted, _ = lg.InsertStreakReward(r3)
	if !inserted {
		t.Error("expected monthly insert to land")
	}
}

func TestLatestStreakReward(t *testing.T) {
	lg, fs, ts := setupLedgerTestDB(t)
	famID, childID, _ := ledgerFixture(t, lg, fs, ts, 2)

	got, err := lg.LatestStreakReward(childID, model.PeriodWeekly)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got != nil {
		t.Error("expected nil with no rewards")
	}

	old := &model.StreakReward{
		ChildID: childID, FamilyID: famID, Period: model.PeriodWeekly,
		StreakValue: 7, SeedsEarned: 5,
		StreakStartDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		AwardedAt:       time.Date(2026, 2, 7, 15, 0, 0, 0, time.UTC),
	}
	recent := &model.StreakReward{
		ChildID: childID, FamilyID: famID, Period: model.PeriodWeekly,
		StreakValue: 7, SeedsEarned: 5,
		StreakStartDate: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		AwardedAt:       time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
	}
	lg.InsertStreakReward(old)
	lg.InsertStreakReward(recent)

	got, err = lg.LatestStreakReward(childID, model.PeriodWeekly)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got == nil {
		t.Fatal("expected a reward")
	}
	if got.ID != recent.ID {
		t.Errorf("id = %d, want %d (most recent)", got.ID, recent.ID)
	}
}

func TestDeleteStreakRewardsWindow(t *testing.T) {
	lg, fs, ts := setupLedgerTestDB(t)
	famID, childID, _ := ledgerFixture(t, lg, fs, ts, 2)

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	inWindow := &model.StreakReward{
		ChildID: childID, FamilyID: famID, Period: model.PeriodDaily,
		StreakValue: 1, SeedsEarned: 3, StreakStartDate: day,
		AwardedAt: day.Add(15 * time.Hour),
	}
	before := &model.StreakReward{
		ChildID: childID, FamilyID: famID, Period: model.PeriodDaily,
		StreakValue: 1, SeedsEarned: 3,
		StreakStartDate: day.AddDate(0, 0, -1),
		AwardedAt:       day.Add(-9 * time.Hour),
	}
	weekly := &model.StreakReward{
		ChildID: childID, FamilyID: famID, Period: model.PeriodWeekly,
		StreakValue: 7, SeedsEarned: 5,
		StreakStartDate: day.AddDate(0, 0, -6),
		AwardedAt:       day.Add(15 * time.Hour),
	}
	lg.InsertStreakReward(inWindow)
	lg.InsertStreakReward(before)
	lg.InsertStreakReward(weekly)

	err := lg.DeleteStreakRewards(childID, famID, model.PeriodDaily, day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	srs := NewStreakRewardStore(lg.db)
	remaining, _ := srs.ListByChild(childID, 10)
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(remaining))
	}
	for _, r := range remaining {
		if r.ID == inWindow.ID {
			t.Error("in-window daily reward should be gone")
		}
	}
}

// --- Engine end-to-end ---

func TestEngineDailyBonusOverSQLite(t *testing.T) {
	lg, fs, ts := setupLedgerTestDB(t)
	famID, childID, taskID := ledgerFixture(t, lg, fs, ts, 2)
	fs.UpdateRewardConfig(famID, 3, 0, 0, 0)

	eng, _ := pinnedEngine(lg)

	completion, result, err := eng.CompleteTask(taskID, childID, famID, 2, "UTC")
	if err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if completion.Status != model.CompletionCompleted {
		t.Errorf("status = %q, want completed", completion.Status)
	}
	if !result.AllDone {
		t.Error("expected all done")
	}
	if result.Streak.Count != 1 {
		t.Errorf("streak = %d, want 1", result.Streak.Count)
	}
	if len(result.Issued) != 1 {
		t.Fatalf("expected 1 issued reward, got %d", len(result.Issued))
	}
	if result.Issued[0].Period != model.PeriodDaily {
		t.Errorf("period = %q, want daily", result.Issued[0].Period)
	}
	if result.Issued[0].SeedsEarned != 3 {
		t.Errorf("bonus seeds = %d, want 3", result.Issued[0].SeedsEarned)
	}

	balance, err := eng.Balance(childID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 5 {
		t.Errorf("balance = %d, want 5 (2 task + 3 bonus)", balance)
	}

	// Checking in again must not double-award.
	again, err := eng.CheckIn(childID, famID, "UTC")
	if err != nil {
		t.Fatalf("second check-in: %v", err)
	}
	if len(again.Issued) != 0 {
		t.Errorf("expected no new rewards, got %d", len(again.Issued))
	}
	balance, _ = eng.Balance(childID)
	if balance != 5 {
		t.Errorf("balance after re-check = %d, want 5", balance)
	}
}

func TestEngineUncompleteRevokesDaily(t *testing.T) {
	lg, fs, ts := setupLedgerTestDB(t)
	famID, childID, taskID := ledgerFixture(t, lg, fs, ts, 2)
	fs.UpdateRewardConfig(famID, 3, 0, 0, 0)

	eng, _ := pinnedEngine(lg)

	if _, _, err := eng.CompleteTask(taskID, childID, famID, 2, "UTC"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	balance, _ := eng.Balance(childID)
	if balance != 5 {
		t.Fatalf("balance = %d, want 5", balance)
	}

	completion, err := eng.UncompleteTask(taskID, childID, famID, "UTC")
	if err != nil {
		t.Fatalf("uncomplete: %v", err)
	}
	if completion.Status != model.CompletionPending {
		t.Errorf("status = %q, want pending", completion.Status)
	}
	if completion.SeedsEarned != 0 {
		t.Errorf("seeds_earned = %d, want 0", completion.SeedsEarned)
	}

	balance, _ = eng.Balance(childID)
	if balance != 0 {
		t.Errorf("balance after uncomplete = %d, want 0", balance)
	}
}

func TestEngineWeeklyRewardOverSQLite(t *testing.T) {
	lg, fs, ts := setupLedgerTestDB(t)
	famID, childID, taskID := ledgerFixture(t, lg, fs, ts, 2)
	fs.UpdateRewardConfig(famID, 0, 5, 0, 0)

	eng, today := pinnedEngine(lg)

	// Six completed days leading up to today.
	for n := 1; n <= 6; n++ {
		date := today.AddDate(0, 0, -n)
		if _, err := lg.UpsertCompletion(taskID, childID, date, model.CompletionCompleted, 2); err != nil {
			t.Fatalf("seed completion: %v", err)
		}
	}

	_, result, err := eng.CompleteTask(taskID, childID, famID, 2, "UTC")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.Streak.Count != 7 {
		t.Fatalf("streak = %d, want 7", result.Streak.Count)
	}
	if len(result.Issued) != 1 {
		t.Fatalf("expected 1 issued reward, got %d", len(result.Issued))
	}
	issued := result.Issued[0]
	if issued.Period != model.PeriodWeekly {
		t.Errorf("period = %q, want weekly", issued.Period)
	}
	if issued.SeedsEarned != 5 {
		t.Errorf("seeds = %d, want 5", issued.SeedsEarned)
	}
	if issued.StreakValue != 7 {
		t.Errorf("streak_value = %d, want 7", issued.StreakValue)
	}
	if !issued.StreakStartDate.Equal(today.AddDate(0, 0, -6)) {
		t.Errorf("start = %v, want %v", issued.StreakStartDate, today.AddDate(0, 0, -6))
	}

	// Re-running the check-in the same day stays quiet.
	for i := 0; i < 3; i++ {
		again, err := eng.CheckIn(childID, famID, "UTC")
		if err != nil {
			t.Fatalf("check-in %d: %v", i, err)
		}
		if len(again.Issued) != 0 {
			t.Fatalf("check-in %d issued %d rewards, want 0", i, len(again.Issued))
		}
	}

	srs := NewStreakRewardStore(lg.db)
	all, _ := srs.ListByChild(childID, 10)
	if len(all) != 1 {
		t.Errorf("expected 1 stored reward, got %d", len(all))
	}
}

func TestEngineBackfillOverSQLite(t *testing.T) {
	lg, fs, ts := setupLedgerTestDB(t)
	famID, childID, taskID := ledgerFixture(t, lg, fs, ts, 2)

	eng, today := pinnedEngine(lg)

	// Backdate the assignment five days.
	if _, err := lg.db.Exec(
		`UPDATE task_assignments SET created_at = ? WHERE task_id = ?`,
		today.AddDate(0, 0, -5), taskID,
	); err != nil {
		t.Fatalf("backdate assignment: %v", err)
	}

	if _, err := eng.CheckIn(childID, famID, "UTC"); err != nil {
		t.Fatalf("check-in: %v", err)
	}

	recs, err := lg.ListCompletions(childID, progress.CompletionFilter{Status: model.CompletionSkipped})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 5 {
		t.Fatalf("expected 5 skipped records, got %d", len(recs))
	}
	for _, r := range recs {
		if r.SeedsEarned != 0 {
			t.Errorf("skipped record earned %d seeds, want 0", r.SeedsEarned)
		}
		if !r.Date.Before(today) {
			t.Errorf("skipped record dated %v, want before today", r.Date)
		}
	}

	// Idempotent on re-run.
	if _, err := eng.CheckIn(childID, famID, "UTC"); err != nil {
		t.Fatalf("second check-in: %v", err)
	}
	recs, _ = lg.ListCompletions(childID, progress.CompletionFilter{Status: model.CompletionSkipped})
	if len(recs) != 5 {
		t.Errorf("expected 5 skipped records after re-run, got %d", len(recs))
	}
}

func TestEngineSnapshotOverSQLite(t *testing.T) {
	lg, fs, ts := setupLedgerTestDB(t)
	famID, childID, taskID := ledgerFixture(t, lg, fs, ts, 2)

	second, _ := ts.Create(famID, "Water plants", "", 1, "")
	ts.Assign(second.ID, childID)

	eng, _ := pinnedEngine(lg)

	if _, _, err := eng.CompleteTask(taskID, childID, famID, 2, "UTC"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	snap, err := eng.Snapshot(childID, famID, "UTC")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.DueToday != 2 {
		t.Errorf("due = %d, want 2", snap.DueToday)
	}
	if snap.DoneToday != 1 {
		t.Errorf("done = %d, want 1", snap.DoneToday)
	}
	if snap.AllDone {
		t.Error("expected not all done")
	}
	if snap.Streak.Count != 1 {
		t.Errorf("streak = %d, want 1", snap.Streak.Count)
	}
	if snap.Balance != 2 {
		t.Errorf("balance = %d, want 2", snap.Balance)
	}
}
