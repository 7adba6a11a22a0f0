package model

import "time"

// BadgeRarity tags how hard a badge is to earn.
type BadgeRarity string

const (
	RarityCommon    BadgeRarity = "common"
	RarityRare      BadgeRarity = "rare"
	RarityEpic      BadgeRarity = "epic"
	RarityLegendary BadgeRarity = "legendary"
)

// Badge is a catalog entry for an unlockable achievement.
type Badge struct {
	ID          string      `gorm:"primaryKey;size:64" json:"id"`
	Name        string      `gorm:"size:64;not null" json:"name"`
	Description string      `gorm:"size:255" json:"description"`
	Rarity      BadgeRarity `gorm:"size:16;default:'common'" json:"rarity"`
}

// UserBadge records a badge unlock. A badge id appears at most once per
// user; the composite unique index enforces it at the storage layer.
type UserBadge struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"uniqueIndex:idx_user_badge;not null" json:"user_id"`
	BadgeID    string    `gorm:"uniqueIndex:idx_user_badge;size:64;not null" json:"badge_id"`
	UnlockedAt time.Time `gorm:"autoCreateTime" json:"unlocked_at"`
}
