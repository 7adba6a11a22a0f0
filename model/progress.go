package model

import "time"

// ProgressStatus is the lifecycle state of a user's run at a quest.
// The absence of a row means the quest was never started.
type ProgressStatus string

const (
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressSubmitted  ProgressStatus = "submitted"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressAbandoned  ProgressStatus = "abandoned"

	// ProgressNotStarted is never stored; it is synthesized for reads when
	// no row exists for the (user, quest) pair.
	ProgressNotStarted ProgressStatus = "not_started"
)

// QuestProgress tracks one user's run at one quest. Exactly one row exists
// per (user, quest) pair; restarting an abandoned quest reuses the row.
type QuestProgress struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64          `gorm:"uniqueIndex:idx_user_quest;not null" json:"user_id"`
	QuestID      int64          `gorm:"uniqueIndex:idx_user_quest;not null" json:"quest_id"`
	Status       ProgressStatus `gorm:"size:16;not null" json:"status"`
	CurrentStep  int            `gorm:"default:0" json:"current_step"`
	TotalSteps   int            `gorm:"default:1" json:"total_steps"`
	XPEarned     int            `gorm:"default:0" json:"xp_earned"`
	SubmissionID *int64         `json:"submission_id"`
	StartedAt    time.Time      `json:"started_at"`
	SubmittedAt  *time.Time     `json:"submitted_at"`
	CompletedAt  *time.Time     `json:"completed_at"`
	AbandonedAt  *time.Time     `json:"abandoned_at"`
}
