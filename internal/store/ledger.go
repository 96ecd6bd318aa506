package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/thornbury/seedling/internal/model"
	"github.com/thornbury/seedling/internal/progress"
)

// Ledger is the storage boundary for the progress engine: task completions,
// streak rewards, and the seed-source sums behind a child's balance.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// --- Completion methods ---

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.TaskCompletion, error) {
	var c model.TaskCompletion
	err := scanner.Scan(
		&c.ID, &c.TaskID, &c.ChildID, &c.Date, &c.Status, &c.SeedsEarned,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const completionCols = `id, task_id, child_id, date, status, seeds_earned, created_at, updated_at`

func (s *Ledger) ListCompletions(childID int64, f progress.CompletionFilter) ([]model.TaskCompletion, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + completionCols + ` FROM task_completions WHERE child_id = ?`)
	args := []any{childID}

	if f.TaskID != 0 {
		sb.WriteString(` AND task_id = ?`)
		args = append(args, f.TaskID)
	}
	if f.Status != "" {
		sb.WriteString(` AND status = ?`)
		args = append(args, f.Status)
	}
	if !f.From.IsZero() {
		sb.WriteString(` AND date >= ?`)
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		sb.WriteString(` AND date < ?`)
		args = append(args, f.To.UTC())
	}
	if f.Desc {
		sb.WriteString(` ORDER BY date DESC, id DESC`)
	} else {
		sb.WriteString(` ORDER BY date ASC, id ASC`)
	}
	if f.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []model.TaskCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

// UpsertCompletion writes the record for (task, child, date), replacing the
// status and seeds of an existing one. Dates are stored in UTC so the unique
// index compares them reliably.
func (s *Ledger) UpsertCompletion(taskID, childID int64, date time.Time, status model.CompletionStatus, seeds int) (*model.TaskCompletion, error) {
	date = date.UTC()
	_, err := s.db.Exec(
		`INSERT INTO task_completions (task_id, child_id, date, status, seeds_earned)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(task_id, child_id, date) DO UPDATE SET
		   status = excluded.status,
		   seeds_earned = excluded.seeds_earned,
		   updated_at = CURRENT_TIMESTAMP`,
		taskID, childID, date, status, seeds,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert completion: %w", err)
	}
	return s.getCompletionByKey(taskID, childID, date)
}

func (s *Ledger) InsertCompletionIfAbsent(taskID, childID int64, date time.Time, status model.CompletionStatus, seeds int) error {
	_, err := s.db.Exec(
		`INSERT INTO task_completions (task_id, child_id, date, status, seeds_earned)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(task_id, child_id, date) DO NOTHING`,
		taskID, childID, date.UTC(), status, seeds,
	)
	if err != nil {
		return fmt.Errorf("insert completion: %w", err)
	}
	return nil
}

func (s *Ledger) getCompletionByKey(taskID, childID int64, date time.Time) (*model.TaskCompletion, error) {
	row := s.db.QueryRow(
		`SELECT `+completionCols+` FROM task_completions WHERE task_id = ? AND child_id = ? AND date = ?`,
		taskID, childID, date.UTC(),
	)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

// --- Due task methods ---

func (s *Ledger) DueTasks(childID int64) ([]progress.DueTask, error) {
	rows, err := s.db.Query(
		`SELECT t.id, t.schedule, t.seeds, ta.created_at
		 FROM task_assignments ta
		 JOIN tasks t ON t.id = ta.task_id
		 WHERE ta.child_id = ? AND t.active = 1
		 ORDER BY t.id`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	defer rows.Close()

	var tasks []progress.DueTask
	for rows.Next() {
		var t progress.DueTask
		if err := rows.Scan(&t.TaskID, &t.Schedule, &t.Seeds, &t.AssignedAt); err != nil {
			return nil, fmt.Errorf("scan due task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// --- Balance methods ---

func (s *Ledger) SumSeedSources(childID int64) (progress.SeedSources, error) {
	var src progress.SeedSources
	sums := []struct {
		dest  *int
		query string
	}{
		{&src.CompletionSeeds, `SELECT COALESCE(SUM(seeds_earned), 0) FROM task_completions WHERE child_id = ? AND status = 'completed'`},
		{&src.StreakSeeds, `SELECT COALESCE(SUM(seeds_earned), 0) FROM streak_rewards WHERE child_id = ?`},
		{&src.MissionSeeds, `SELECT COALESCE(SUM(seeds_earned), 0) FROM mission_awards WHERE child_id = ?`},
		{&src.AdjustmentSeeds, `SELECT COALESCE(SUM(seeds), 0) FROM seed_adjustments WHERE child_id = ?`},
		{&src.RedemptionSeeds, `SELECT COALESCE(SUM(seeds_spent), 0) FROM reward_redemptions WHERE child_id = ?`},
		{&src.PrivilegeSeeds, `SELECT COALESCE(SUM(cost), 0) FROM privilege_requests WHERE child_id = ? AND status IN ('approved', 'terminated')`},
	}
	for _, sum := range sums {
		if err := s.db.QueryRow(sum.query, childID).Scan(sum.dest); err != nil {
			return progress.SeedSources{}, fmt.Errorf("sum seed source: %w", err)
		}
	}
	return src, nil
}

// RewardConfig reads the family's streak bonus amounts. A missing family
// yields the zero config, which disables every bonus.
func (s *Ledger) RewardConfig(familyID int64) (progress.RewardConfig, error) {
	var cfg progress.RewardConfig
	err := s.db.QueryRow(
		`SELECT daily_streak_reward, weekly_streak_reward, monthly_streak_reward, yearly_streak_reward FROM families WHERE id = ?`,
		familyID,
	).Scan(&cfg.Daily, &cfg.Weekly, &cfg.Monthly, &cfg.Yearly)
	if err == sql.ErrNoRows {
		return progress.RewardConfig{}, nil
	}
	if err != nil {
		return progress.RewardConfig{}, fmt.Errorf("get reward config: %w", err)
	}
	return cfg, nil
}

// --- Streak reward methods ---

func (s *Ledger) LatestStreakReward(childID int64, period model.RewardPeriod) (*model.StreakReward, error) {
	row := s.db.QueryRow(
		`SELECT `+streakRewardCols+` FROM streak_rewards
		 WHERE child_id = ? AND period = ?
		 ORDER BY awarded_at DESC, id DESC LIMIT 1`,
		childID, period,
	)
	r, err := scanStreakReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest streak reward: %w", err)
	}
	return r, nil
}

// InsertStreakReward records a streak bonus. The unique index on
// (child_id, period, streak_start_date) makes issuance idempotent per run;
// the bool reports whether a row was actually written.
func (s *Ledger) InsertStreakReward(r *model.StreakReward) (bool, error) {
	result, err := s.db.Exec(
		`INSERT INTO streak_rewards (child_id, family_id, period, streak_value, seeds_earned, streak_start_date, awarded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(child_id, period, streak_start_date) DO NOTHING`,
		r.ChildID, r.FamilyID, r.Period, r.StreakValue, r.SeedsEarned, r.StreakStartDate.UTC(), r.AwardedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert streak reward: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("last insert id: %w", err)
	}
	r.ID = id
	return true, nil
}

func (s *Ledger) DeleteStreakRewards(childID, familyID int64, period model.RewardPeriod, from, to time.Time) error {
	_, err := s.db.Exec(
		`DELETE FROM streak_rewards
		 WHERE child_id = ? AND family_id = ? AND period = ? AND awarded_at >= ? AND awarded_at < ?`,
		childID, familyID, period, from.UTC(), to.UTC(),
	)
	if err != nil {
		return fmt.Errorf("delete streak rewards: %w", err)
	}
	return nil
}
