package model

import "time"

// UserStats is a user's progression aggregate: accumulated XP, derived
// level, completion count and daily streak. One row per user; every quest
// completion mutates it, so writes are guarded by the Version counter:
// the store bumps it on every commit and rejects stale snapshots.
type UserStats struct {
	UserID           int64      `gorm:"primaryKey" json:"user_id"`
	TotalXP          int64      `gorm:"default:0" json:"total_xp"`
	CurrentLevel     int        `gorm:"default:1" json:"current_level"`
	QuestsCompleted  int        `gorm:"default:0" json:"quests_completed"`
	CurrentStreak    int        `gorm:"default:0" json:"current_streak"`
	LongestStreak    int        `gorm:"default:0" json:"longest_streak"`
	LastActivityDate *time.Time `json:"last_activity_date"`
	Version          int64      `gorm:"default:0" json:"-"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
