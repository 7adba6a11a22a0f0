package progression

import (
	"time"

	"github.com/questforge/server/model"
)

// The progress lifecycle:
//
//	(no row) ──start──▶ IN_PROGRESS ──submit──▶ SUBMITTED
//	              ▲          │    │                  │
//	              │          │    └────complete──────┤
//	              │       abandon                    ▼
//	              │          ▼                  COMPLETED (terminal)
//	              └────── ABANDONED
//
// COMPLETED is terminal; ABANDONED can be restarted, which resets the step
// counter and clears the abandon timestamp. Statuses never regress.

// Start begins a quest run. With no existing row it returns a fresh
// IN_PROGRESS record; an ABANDONED row is reset in place. Any other
// current status is rejected.
func Start(p *model.QuestProgress, userID, questID int64, totalSteps int, now time.Time) (*model.QuestProgress, error) {
	if p == nil {
		return &model.QuestProgress{
			UserID:     userID,
			QuestID:    questID,
			Status:     model.ProgressInProgress,
			TotalSteps: totalSteps,
			StartedAt:  now,
		}, nil
	}
	if p.Status != model.ProgressAbandoned {
		return nil, validationf("cannot start quest: status is %s", p.Status)
	}
	restarted := *p
	restarted.Status = model.ProgressInProgress
	restarted.CurrentStep = 0
	restarted.TotalSteps = totalSteps
	restarted.StartedAt = now
	restarted.SubmittedAt = nil
	restarted.AbandonedAt = nil
	restarted.SubmissionID = nil
	return &restarted, nil
}

// Submit moves an IN_PROGRESS run to SUBMITTED.
func Submit(p *model.QuestProgress, now time.Time) (*model.QuestProgress, error) {
	if p == nil {
		return nil, ErrNotFound
	}
	if p.Status != model.ProgressInProgress {
		return nil, validationf("cannot submit quest: status is %s", p.Status)
	}
	next := *p
	next.Status = model.ProgressSubmitted
	t := now
	next.SubmittedAt = &t
	return &next, nil
}

// Complete moves an IN_PROGRESS or SUBMITTED run to COMPLETED. This is the
// only transition that triggers scoring.
func Complete(p *model.QuestProgress, now time.Time) (*model.QuestProgress, error) {
	if p == nil {
		return nil, ErrNotFound
	}
	if p.Status != model.ProgressInProgress && p.Status != model.ProgressSubmitted {
		return nil, validationf("cannot complete quest: status is %s", p.Status)
	}
	next := *p
	next.Status = model.ProgressCompleted
	next.CurrentStep = next.TotalSteps
	t := now
	next.CompletedAt = &t
	return &next, nil
}

// Abandon moves an IN_PROGRESS run to ABANDONED.
func Abandon(p *model.QuestProgress, now time.Time) (*model.QuestProgress, error) {
	if p == nil {
		return nil, ErrNotFound
	}
	if p.Status != model.ProgressInProgress {
		return nil, validationf("cannot abandon quest: status is %s", p.Status)
	}
	next := *p
	next.Status = model.ProgressAbandoned
	t := now
	next.AbandonedAt = &t
	return &next, nil
}
