package progression

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/questforge/server/cache"
	"github.com/questforge/server/game/badge"
	"github.com/questforge/server/game/scoring"
	"github.com/questforge/server/game/streak"
	"github.com/questforge/server/model"
	"go.uber.org/zap"
)

// RankingKey is the sorted set holding the XP leaderboard.
const RankingKey = "ranking:xp"

const completionLockTTL = 10 * time.Second

// RewardSummary describes everything a completion earned.
type RewardSummary struct {
	XPGained        int           `json:"xp_gained"`
	BaseXP          int           `json:"base_xp"`
	BonusXP         int           `json:"bonus_xp"`
	LeveledUp       bool          `json:"leveled_up"`
	NewLevel        int           `json:"new_level"`
	NewTotalXP      int64         `json:"new_total_xp"`
	StreakIncreased bool          `json:"streak_increased"`
	NewStreak       int           `json:"new_streak"`
	UnlockedBadges  []model.Badge `json:"unlocked_badges"`
}

// CompletionResult is returned by CompleteQuest.
type CompletionResult struct {
	Progress *model.QuestProgress `json:"progress"`
	Rewards  *RewardSummary       `json:"rewards"`
}

// SubmitResult is returned by SubmitQuest. Rewards is nil unless the
// submission was already approved and the quest completed in the same
// action.
type SubmitResult struct {
	Submission *model.Submission    `json:"submission"`
	Progress   *model.QuestProgress `json:"progress"`
	Rewards    *RewardSummary       `json:"rewards,omitempty"`
}

// ProgressView is returned by GetProgress. Progress is nil when the user
// never started the quest, in which case Status is NOT_STARTED.
type ProgressView struct {
	Status   model.ProgressStatus `json:"status"`
	Progress *model.QuestProgress `json:"progress,omitempty"`
	Quest    *model.Quest         `json:"quest"`
}

// Coordinator orchestrates quest progression: it validates transitions,
// computes scoring, streak and badge changes from a consistent snapshot,
// and commits the whole write set atomically. Conflicting concurrent
// writes are retried a bounded number of times.
type Coordinator struct {
	store   Store
	cache   cache.Cache
	logger  *zap.Logger
	retries int
	now     func() time.Time
}

// NewCoordinator creates a Coordinator. retries bounds the
// conflict-retry loop; values below 1 fall back to 3.
func NewCoordinator(store Store, c cache.Cache, logger *zap.Logger, retries int) *Coordinator {
	if retries < 1 {
		retries = 3
	}
	return &Coordinator{
		store:   store,
		cache:   c,
		logger:  logger,
		retries: retries,
		now:     time.Now,
	}
}

// StartQuest begins (or restarts, after an abandon) a quest run.
func (co *Coordinator) StartQuest(ctx context.Context, userID, questID int64) (*model.QuestProgress, error) {
	if err := checkIDs(userID, questID); err != nil {
		return nil, err
	}
	var started *model.QuestProgress
	err := co.withRetry(ctx, "start_quest", func() error {
		snap, err := co.store.Snapshot(ctx, userID, questID)
		if err != nil {
			return err
		}
		if snap.Quest.State != model.QuestAvailable {
			return validationf("quest %d is not available", questID)
		}
		next, err := Start(snap.Progress, userID, questID, snap.Quest.TotalSteps, co.now())
		if err != nil {
			return err
		}
		if err := co.store.Commit(ctx, &CommitSet{
			Progress:    next,
			PriorStatus: model.ProgressAbandoned,
		}); err != nil {
			return err
		}
		started = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	co.logger.Info("quest started",
		zap.Int64("user_id", userID),
		zap.Int64("quest_id", questID))
	return started, nil
}

// SubmitQuest attaches a proof submission to an IN_PROGRESS run and moves
// it to SUBMITTED. If the submission is already approved the quest
// completes in the same atomic action and rewards are returned.
func (co *Coordinator) SubmitQuest(ctx context.Context, userID, questID, submissionID int64) (*SubmitResult, error) {
	if err := checkIDs(userID, questID); err != nil {
		return nil, err
	}
	sub, err := co.store.Submission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID || sub.QuestID != questID {
		return nil, validationf("submission %d does not belong to this quest run", submissionID)
	}

	var result *SubmitResult
	err = co.withRetry(ctx, "submit_quest", func() error {
		snap, err := co.store.Snapshot(ctx, userID, questID)
		if err != nil {
			return err
		}
		submitted, err := Submit(snap.Progress, co.now())
		if err != nil {
			return err
		}
		submitted.SubmissionID = &sub.ID

		cs := &CommitSet{Progress: submitted, PriorStatus: model.ProgressInProgress}
		res := &SubmitResult{Submission: sub, Progress: submitted}

		if sub.Status == model.SubmissionApproved {
			completed, err := Complete(submitted, co.now())
			if err != nil {
				return err
			}
			stats, badges, summary := co.computeCompletion(snap, completed)
			cs.Progress = completed
			cs.Stats = stats
			cs.PriorVersion = snap.Stats.Version
			cs.NewBadges = badges
			cs.IncCompletion = true
			res.Progress = completed
			res.Rewards = summary
		}

		if err := co.store.Commit(ctx, cs); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	co.afterScoring(ctx, userID, result.Rewards)
	co.logger.Info("quest submitted",
		zap.Int64("user_id", userID),
		zap.Int64("quest_id", questID),
		zap.Int64("submission_id", sub.ID),
		zap.Bool("completed", result.Rewards != nil))
	return result, nil
}

// CompleteQuest finishes an IN_PROGRESS or SUBMITTED run, awarding XP,
// advancing the streak and evaluating badge unlocks, all in one atomic
// commit. A run already COMPLETED fails validation and never re-awards.
func (co *Coordinator) CompleteQuest(ctx context.Context, userID, questID int64) (*CompletionResult, error) {
	if err := checkIDs(userID, questID); err != nil {
		return nil, err
	}

	// Per-user lock to cut down conflict retries under contention.
	// Correctness does not depend on it: the version guard in the store is
	// what serializes aggregate updates.
	lockKey := fmt.Sprintf("lock:progression:%d", userID)
	if ok, err := co.cache.SetNX(ctx, lockKey, "1", completionLockTTL); err == nil && ok {
		defer func() { _ = co.cache.Del(ctx, lockKey) }()
	}

	var result *CompletionResult
	err := co.withRetry(ctx, "complete_quest", func() error {
		snap, err := co.store.Snapshot(ctx, userID, questID)
		if err != nil {
			return err
		}
		if snap.Progress != nil && snap.Progress.Status == model.ProgressSubmitted {
			if err := co.checkSubmissionApproved(ctx, snap.Progress); err != nil {
				return err
			}
		}
		prior := model.ProgressInProgress
		if snap.Progress != nil {
			prior = snap.Progress.Status
		}
		completed, err := Complete(snap.Progress, co.now())
		if err != nil {
			return err
		}
		stats, badges, summary := co.computeCompletion(snap, completed)
		if err := co.store.Commit(ctx, &CommitSet{
			Progress:      completed,
			PriorStatus:   prior,
			Stats:         stats,
			PriorVersion:  snap.Stats.Version,
			NewBadges:     badges,
			IncCompletion: true,
		}); err != nil {
			return err
		}
		result = &CompletionResult{Progress: completed, Rewards: summary}
		return nil
	})
	if err != nil {
		return nil, err
	}
	co.afterScoring(ctx, userID, result.Rewards)
	co.logger.Info("quest completed",
		zap.Int64("user_id", userID),
		zap.Int64("quest_id", questID),
		zap.Int("xp_gained", result.Rewards.XPGained),
		zap.Int("new_level", result.Rewards.NewLevel),
		zap.Int("new_streak", result.Rewards.NewStreak))
	return result, nil
}

// AbandonQuest gives up an IN_PROGRESS run. No scoring happens; the run
// can be restarted later.
func (co *Coordinator) AbandonQuest(ctx context.Context, userID, questID int64) (*model.QuestProgress, error) {
	if err := checkIDs(userID, questID); err != nil {
		return nil, err
	}
	var abandoned *model.QuestProgress
	err := co.withRetry(ctx, "abandon_quest", func() error {
		snap, err := co.store.Snapshot(ctx, userID, questID)
		if err != nil {
			return err
		}
		next, err := Abandon(snap.Progress, co.now())
		if err != nil {
			return err
		}
		if err := co.store.Commit(ctx, &CommitSet{
			Progress:    next,
			PriorStatus: model.ProgressInProgress,
		}); err != nil {
			return err
		}
		abandoned = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	co.logger.Info("quest abandoned",
		zap.Int64("user_id", userID),
		zap.Int64("quest_id", questID))
	return abandoned, nil
}

// GetProgress reads the current run state; a never-started quest reports
// NOT_STARTED with the quest attached.
func (co *Coordinator) GetProgress(ctx context.Context, userID, questID int64) (*ProgressView, error) {
	if err := checkIDs(userID, questID); err != nil {
		return nil, err
	}
	snap, err := co.store.Snapshot(ctx, userID, questID)
	if err != nil {
		return nil, err
	}
	view := &ProgressView{Status: model.ProgressNotStarted, Quest: snap.Quest}
	if snap.Progress != nil {
		view.Status = snap.Progress.Status
		view.Progress = snap.Progress
	}
	return view, nil
}

// computeCompletion derives the updated aggregate, new badge rows and the
// reward summary from a snapshot. Pure: no I/O, safe to recompute on
// retry.
func (co *Coordinator) computeCompletion(snap *Snapshot, completed *model.QuestProgress) (*model.UserStats, []model.UserBadge, *RewardSummary) {
	now := co.now()
	prior := snap.Stats
	priorLevel := scoring.LevelOf(prior.TotalXP)

	reward := scoring.RewardFor(snap.Quest, prior)
	str := streak.Advance(prior.LastActivityDate, now, prior.CurrentStreak, prior.LongestStreak)

	updated := *prior
	updated.TotalXP = prior.TotalXP + int64(reward.TotalXP)
	updated.CurrentLevel = scoring.LevelOf(updated.TotalXP)
	updated.QuestsCompleted = prior.QuestsCompleted + 1
	updated.CurrentStreak = str.Streak
	updated.LongestStreak = str.Longest
	activity := now
	updated.LastActivityDate = &activity

	// Only the base reward is recorded on the progress row; bonuses go to
	// the aggregate.
	completed.XPEarned = reward.BaseXP

	rules := badge.Evaluate(badge.Event{
		Prior:      badge.NewSet(snap.BadgeIDs),
		Stats:      &updated,
		PriorLevel: priorLevel,
		Quest:      snap.Quest,
	})
	newRows := make([]model.UserBadge, 0, len(rules))
	unlocked := make([]model.Badge, 0, len(rules))
	for _, r := range rules {
		newRows = append(newRows, model.UserBadge{
			UserID:     prior.UserID,
			BadgeID:    r.ID,
			UnlockedAt: now,
		})
		unlocked = append(unlocked, model.Badge{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Rarity:      r.Rarity,
		})
	}

	summary := &RewardSummary{
		XPGained:        reward.TotalXP,
		BaseXP:          reward.BaseXP,
		BonusXP:         reward.BonusXP,
		LeveledUp:       updated.CurrentLevel > priorLevel,
		NewLevel:        updated.CurrentLevel,
		NewTotalXP:      updated.TotalXP,
		StreakIncreased: str.Increased,
		NewStreak:       str.Streak,
		UnlockedBadges:  unlocked,
	}
	return &updated, newRows, summary
}

// checkSubmissionApproved rejects completing a SUBMITTED run whose linked
// submission has not been approved yet.
func (co *Coordinator) checkSubmissionApproved(ctx context.Context, p *model.QuestProgress) error {
	if p.SubmissionID == nil {
		return validationf("submitted run has no linked submission")
	}
	sub, err := co.store.Submission(ctx, *p.SubmissionID)
	if err != nil {
		return err
	}
	if sub.Status != model.SubmissionApproved {
		return validationf("submission %d is not approved", sub.ID)
	}
	return nil
}

// afterScoring pushes the new XP total onto the leaderboard. Best effort;
// the scheduler rebuild heals any miss.
func (co *Coordinator) afterScoring(ctx context.Context, userID int64, rewards *RewardSummary) {
	if rewards == nil {
		return
	}
	member := strconv.FormatInt(userID, 10)
	if err := co.cache.ZAdd(ctx, RankingKey, float64(rewards.NewTotalXP), member); err != nil {
		co.logger.Warn("leaderboard update failed",
			zap.Int64("user_id", userID), zap.Error(err))
	}
}

// withRetry runs fn up to the configured attempt budget, retrying only on
// snapshot conflicts. Everything else propagates unchanged.
func (co *Coordinator) withRetry(ctx context.Context, action string, fn func() error) error {
	for attempt := 1; attempt <= co.retries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}
		co.logger.Debug("commit conflict, retrying",
			zap.String("action", action),
			zap.Int("attempt", attempt))
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return ErrTransient
}

func checkIDs(userID, questID int64) error {
	if userID <= 0 {
		return validationf("missing user id")
	}
	if questID <= 0 {
		return validationf("missing quest id")
	}
	return nil
}
