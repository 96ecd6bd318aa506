package progress

import "fmt"

// SeedSources carries the six ledger sums a child's balance is derived
// from. The balance is never stored; it is recomputed from these on every
// read so it self-heals after any ledger correction.
type SeedSources struct {
	CompletionSeeds int // task completions
	StreakSeeds     int // streak bonuses
	MissionSeeds    int // mission awards
	AdjustmentSeeds int // manual adjustments, may be negative
	RedemptionSeeds int // reward redemptions (spent)
	PrivilegeSeeds  int // approved or terminated privilege costs (spent)
}

// Total folds the sums into the child's seed balance. It may be negative;
// spending call sites check the balance before allowing a spend.
func (s SeedSources) Total() int {
	return s.CompletionSeeds + s.StreakSeeds + s.MissionSeeds + s.AdjustmentSeeds -
		s.RedemptionSeeds - s.PrivilegeSeeds
}

// Balance returns the child's current seed balance.
func (e *Engine) Balance(childID int64) (int, error) {
	sums, err := e.store.SumSeedSources(childID)
	if err != nil {
		return 0, fmt.Errorf("sum seed sources: %w", err)
	}
	return sums.Total(), nil
}
