package progression

import (
	"context"
	"errors"
	"strings"

	"github.com/questforge/server/model"
	"gorm.io/gorm"
)

// Snapshot is one consistent read of everything an action needs: the user,
// the quest, the user's aggregate (created on first touch), the progress
// row if any, and the badge ids already unlocked.
type Snapshot struct {
	User     *model.User
	Quest    *model.Quest
	Stats    *model.UserStats
	Progress *model.QuestProgress
	BadgeIDs []string
}

// CommitSet is the full write set of one action. Commit applies it
// all-or-nothing and reports ErrConflict when the snapshot it was computed
// from has gone stale.
type CommitSet struct {
	Progress *model.QuestProgress
	// PriorStatus guards updates of an existing progress row: the write
	// only applies while the row is still in this status. Ignored for
	// newly created rows.
	PriorStatus model.ProgressStatus
	// Stats is the updated aggregate, or nil when the action does not
	// touch it. PriorVersion is the Version read at snapshot time.
	Stats        *model.UserStats
	PriorVersion int64
	NewBadges    []model.UserBadge
	// IncCompletion bumps the quest's completion counter.
	IncCompletion bool
	// Submission, when set, is saved alongside (status/review updates).
	Submission *model.Submission
}

// Store is the persistence collaborator of the Coordinator.
type Store interface {
	Snapshot(ctx context.Context, userID, questID int64) (*Snapshot, error)
	Submission(ctx context.Context, id int64) (*model.Submission, error)
	Commit(ctx context.Context, cs *CommitSet) error
}

// GormStore implements Store on a relational database. Conflict detection
// is optimistic: progress updates are guarded by the status they were read
// in, aggregate updates by a version counter bumped on every commit.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Snapshot reads the state an action computes against. The user and quest
// must exist; the aggregate row is created on the user's first action; a
// missing progress row is returned as nil, meaning NOT_STARTED.
func (s *GormStore) Snapshot(ctx context.Context, userID, questID int64) (*Snapshot, error) {
	tx := s.db.WithContext(ctx)

	var user model.User
	if err := tx.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var quest model.Quest
	if err := tx.First(&quest, questID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	stats, err := s.ensureStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{User: &user, Quest: &quest, Stats: stats}

	var progress model.QuestProgress
	err = tx.Where("user_id = ? AND quest_id = ?", userID, questID).First(&progress).Error
	switch {
	case err == nil:
		snap.Progress = &progress
	case errors.Is(err, gorm.ErrRecordNotFound):
		// never started
	default:
		return nil, err
	}

	var unlocked []model.UserBadge
	if err := tx.Where("user_id = ?", userID).Find(&unlocked).Error; err != nil {
		return nil, err
	}
	for _, ub := range unlocked {
		snap.BadgeIDs = append(snap.BadgeIDs, ub.BadgeID)
	}
	return snap, nil
}

// ensureStats returns the user's aggregate row, creating the level-1 default
// on first touch. A create race is resolved by re-reading.
func (s *GormStore) ensureStats(ctx context.Context, userID int64) (*model.UserStats, error) {
	tx := s.db.WithContext(ctx)
	var stats model.UserStats
	err := tx.Where("user_id = ?", userID).First(&stats).Error
	if err == nil {
		return &stats, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	stats = model.UserStats{UserID: userID, CurrentLevel: 1}
	if createErr := tx.Create(&stats).Error; createErr != nil {
		if !isUniqueViolation(createErr) {
			return nil, createErr
		}
		if err := tx.Where("user_id = ?", userID).First(&stats).Error; err != nil {
			return nil, err
		}
	}
	return &stats, nil
}

// Submission loads one submission by id.
func (s *GormStore) Submission(ctx context.Context, id int64) (*model.Submission, error) {
	var sub model.Submission
	if err := s.db.WithContext(ctx).First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// Commit applies the write set in a single transaction. Any guard failure
// rolls the whole set back and reports ErrConflict so the coordinator can
// recompute from a fresh snapshot.
func (s *GormStore) Commit(ctx context.Context, cs *CommitSet) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cs.Progress != nil {
			if err := commitProgress(tx, cs); err != nil {
				return err
			}
		}

		if cs.Stats != nil {
			st := cs.Stats
			res := tx.Model(&model.UserStats{}).
				Where("user_id = ? AND version = ?", st.UserID, cs.PriorVersion).
				Updates(map[string]interface{}{
					"total_xp":           st.TotalXP,
					"current_level":      st.CurrentLevel,
					"quests_completed":   st.QuestsCompleted,
					"current_streak":     st.CurrentStreak,
					"longest_streak":     st.LongestStreak,
					"last_activity_date": st.LastActivityDate,
					"version":            cs.PriorVersion + 1,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrConflict
			}
		}

		for i := range cs.NewBadges {
			if err := tx.Create(&cs.NewBadges[i]).Error; err != nil {
				if isUniqueViolation(err) {
					return ErrConflict
				}
				return err
			}
		}

		if cs.IncCompletion {
			if err := tx.Model(&model.Quest{}).
				Where("id = ?", cs.Progress.QuestID).
				Update("completion_count", gorm.Expr("completion_count + 1")).Error; err != nil {
				return err
			}
		}

		if cs.Submission != nil {
			if err := tx.Save(cs.Submission).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func commitProgress(tx *gorm.DB, cs *CommitSet) error {
	p := cs.Progress
	if p.ID == 0 {
		if err := tx.Create(p).Error; err != nil {
			// A concurrent start created the row first.
			if isUniqueViolation(err) {
				return ErrConflict
			}
			return err
		}
		return nil
	}

	res := tx.Model(&model.QuestProgress{}).
		Where("id = ? AND status = ?", p.ID, cs.PriorStatus).
		Updates(map[string]interface{}{
			"status":        p.Status,
			"current_step":  p.CurrentStep,
			"total_steps":   p.TotalSteps,
			"xp_earned":     p.XPEarned,
			"submission_id": p.SubmissionID,
			"started_at":    p.StartedAt,
			"submitted_at":  p.SubmittedAt,
			"completed_at":  p.CompletedAt,
			"abandoned_at":  p.AbandonedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
