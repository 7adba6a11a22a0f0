package model

import "time"

// QuestDifficulty rates how demanding a quest is. Epic quests carry an XP bonus.
type QuestDifficulty string

const (
	DifficultyEasy   QuestDifficulty = "easy"
	DifficultyMedium QuestDifficulty = "medium"
	DifficultyHard   QuestDifficulty = "hard"
	DifficultyEpic   QuestDifficulty = "epic"
)

// QuestState is the publication state of a quest.
type QuestState string

const (
	QuestDraft     QuestState = "draft"
	QuestAvailable QuestState = "available"
	QuestArchived  QuestState = "archived"
)

// Quest is a challenge users can take on for XP.
type Quest struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Title           string          `gorm:"size:128;not null" json:"title"`
	Description     string          `gorm:"type:text" json:"description"`
	Difficulty      QuestDifficulty `gorm:"size:16;default:'easy'" json:"difficulty"`
	State           QuestState      `gorm:"size:16;index;default:'draft'" json:"state"`
	PointsReward    int             `gorm:"not null" json:"points_reward"`
	TotalSteps      int             `gorm:"default:1" json:"total_steps"`
	CompletionCount int64           `gorm:"default:0" json:"completion_count"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
