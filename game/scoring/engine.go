package scoring

import "github.com/questforge/server/model"

// Level thresholds are cumulative triangular numbers scaled by 100:
// reaching level k+1 costs sum(i*100, i=1..k) total XP. Level 1 spans
// [0,99], level 2 [100,299], level 3 [300,599], and so on.
const levelStep = 100

// Bonus percentages applied on top of a quest's base reward.
const (
	epicBonusPct          = 50
	streakBonusPct        = 20
	streakMilestoneLength = 5
)

// LevelOf maps accumulated XP to a level. Pure, total for all xp >= 0 and
// monotonic non-decreasing.
func LevelOf(totalXP int64) int {
	level := 1
	xpNeeded := int64(0)
	for {
		xpNeeded += int64(level) * levelStep
		if totalXP < xpNeeded {
			return level
		}
		level++
	}
}

// XPToNext returns how much more XP is needed to reach the next level.
func XPToNext(totalXP int64) int64 {
	level := 1
	xpNeeded := int64(0)
	for {
		xpNeeded += int64(level) * levelStep
		if totalXP < xpNeeded {
			return xpNeeded - totalXP
		}
		level++
	}
}

// Reward breaks down the XP awarded for one quest completion. BaseXP is
// what gets recorded on the progress row; TotalXP (base plus bonuses) is
// what gets added to the user's aggregate.
type Reward struct {
	BaseXP  int `json:"base_xp"`
	BonusXP int `json:"bonus_xp"`
	TotalXP int `json:"total_xp"`
}

// RewardFor computes the reward for completing quest given the user's
// aggregate state before the completion. Bonuses are additive and floored:
// epic quests pay +50% of base, and hitting a streak milestone (the streak
// after this completion being a multiple of 5) pays +20% of base.
func RewardFor(quest *model.Quest, stats *model.UserStats) Reward {
	base := quest.PointsReward
	bonus := 0
	if quest.Difficulty == model.DifficultyEpic {
		bonus += base * epicBonusPct / 100
	}
	if (stats.CurrentStreak+1)%streakMilestoneLength == 0 {
		bonus += base * streakBonusPct / 100
	}
	return Reward{
		BaseXP:  base,
		BonusXP: bonus,
		TotalXP: base + bonus,
	}
}

// LeveledUp reports whether adding gained XP crosses a level threshold.
func LeveledUp(oldTotalXP int64, gained int) bool {
	return LevelOf(oldTotalXP+int64(gained)) > LevelOf(oldTotalXP)
}
