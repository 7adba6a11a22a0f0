package model

import (
	"time"

	"gorm.io/datatypes"
)

// SubmissionStatus is the review state of a proof submission.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// Submission is the proof a user attaches when submitting a quest.
// ChecklistData and Metadata are schema-less payloads passed through
// unvalidated; content review belongs to the submission collaborator.
type Submission struct {
	ID            int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64            `gorm:"index:idx_sub_user;not null" json:"user_id"`
	QuestID       int64            `gorm:"index:idx_sub_quest;not null" json:"quest_id"`
	Type          string           `gorm:"size:16;default:'photo'" json:"type"` // photo|video|text|checklist
	Caption       string           `gorm:"size:500" json:"caption"`
	Privacy       string           `gorm:"size:16;default:'public'" json:"privacy"`
	MediaRef      string           `gorm:"size:255" json:"media_ref"`
	Status        SubmissionStatus `gorm:"size:16;index;default:'pending'" json:"status"`
	ChecklistData datatypes.JSON   `json:"checklist_data"`
	Metadata      datatypes.JSON   `json:"metadata"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
	ReviewedAt    *time.Time       `json:"reviewed_at"`
}
